package model

import "time"

type Activity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name,omitempty"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Caption      string    `json:"caption,omitempty"`
	PointsGained uint64    `json:"points_gained"`
	Streak       uint64    `json:"streak"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateActivityRequest is a multipart form with "type", "title" and
// "caption" value fields and up to the configured number of "images" files.
type CreateActivityRequest struct{}

type CreateActivityResponse struct {
	Activity Activity `json:"activity"`
}

type GetActivityRequest struct {
	ID string `json:"id"`
}

type GetActivityResponse struct {
	Activity Activity `json:"activity"`
}

// UpdateActivityRequest is a multipart form with optional "title", "caption"
// and repeated "removed_images" value fields, plus new "images" files.
type UpdateActivityRequest struct{}

type UpdateActivityResponse struct {
	Activity Activity `json:"activity"`
}

type DeleteActivityRequest struct {
	ID string `json:"id"`
}

type DeleteActivityResponse struct{}

type GetFeedRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type GetFeedResponse struct {
	Activities []Activity `json:"activities"`
}

type GetActivityTypesRequest struct{}

type ActivityTypeInfo struct {
	Type   string `json:"type"`
	Points uint64 `json:"points"`
}

type GetActivityTypesResponse struct {
	Types []ActivityTypeInfo `json:"types"`
}
