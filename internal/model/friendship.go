package model

import "time"

type FriendRequest struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

type SendFriendRequestRequest struct {
	UserID string `json:"user_id"`
}

type SendFriendRequestResponse struct{}

type CancelFriendRequestRequest struct {
	UserID string `json:"user_id"`
}

type CancelFriendRequestResponse struct{}

type DeclineFriendRequestRequest struct {
	UserID string `json:"user_id"`
}

type DeclineFriendRequestResponse struct{}

type AcceptFriendRequestRequest struct {
	UserID string `json:"user_id"`
}

type AcceptFriendRequestResponse struct{}

type UnfriendRequest struct {
	UserID string `json:"user_id"`
}

type UnfriendResponse struct{}

type GetFriendsRequest struct{}

type GetFriendsResponse struct {
	Friends []User `json:"friends"`
}

type GetFriendRequestsRequest struct{}

type GetFriendRequestsResponse struct {
	Incoming []FriendRequest `json:"incoming"`
	Outgoing []FriendRequest `json:"outgoing"`
}

type GetRecommendationsRequest struct {
	Amount int `json:"amount"`
}

type GetRecommendationsResponse struct {
	Users []User `json:"users"`
}
