package entity

import "database/sql"

type User struct {
	Base
	Name           string `gorm:"unique"`
	HashedPassword string

	Points       uint64
	Streak       uint64
	LastStreakAt sql.NullTime

	AboutMe string

	// Avatars holds the blob references of the resized avatar variants,
	// largest first. Empty if the user has no profile picture.
	Avatars Array[string] `gorm:"type:text"`
}
