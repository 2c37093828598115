package entity

import (
	"time"

	"github.com/ecosteps/backend/pkg/enum"
)

type RequestSide string

var (
	Outgoing = enum.New(RequestSide("outgoing"))
	Incoming = enum.New(RequestSide("incoming"))
)

// FriendRequest is one side of a pending request. A pending request between
// two users is exactly two rows, the outgoing one on the sender and the
// incoming one on the receiver. The two rows are written independently so
// each write stays a single-row atomic statement.
type FriendRequest struct {
	OwnerID string `gorm:"primaryKey"`
	Owner   User   `gorm:"foreignKey:OwnerID"`

	OtherID string `gorm:"primaryKey"`
	Other   User   `gorm:"foreignKey:OtherID"`

	Side   RequestSide `gorm:"primaryKey"`
	SentAt time.Time
}

// FriendEdge is one side of a friendship. A friendship is exactly two rows,
// one per direction.
type FriendEdge struct {
	CreatedAt time.Time

	UserID string `gorm:"primaryKey"`
	User   User   `gorm:"foreignKey:UserID"`

	FriendID string `gorm:"primaryKey"`
	Friend   User   `gorm:"foreignKey:FriendID"`
}
