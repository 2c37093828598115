package model

// User is the profile view of a user. The private fields are only filled for
// the owner and accepted friends.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Points      uint64 `json:"points"`
	Streak      uint64 `json:"streak"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	FriendCount int64  `json:"friend_count"`

	AboutMe     string   `json:"about_me,omitempty"`
	Friends     []string `json:"friends,omitempty"`
	ActivityIDs []string `json:"activity_ids,omitempty"`
}

type GetMeRequest struct{}

type GetMeResponse struct {
	User             User            `json:"user"`
	IncomingRequests []FriendRequest `json:"incoming_requests"`
	OutgoingRequests []FriendRequest `json:"outgoing_requests"`
}

type GetUserRequest struct {
	ID string `json:"id"`
}

type GetUserResponse struct {
	User User `json:"user"`
}

type SetAboutMeRequest struct {
	AboutMe string `json:"about_me"`
}

type SetAboutMeResponse struct{}

// UploadAvatarRequest is a multipart form with an "image" file field.
type UploadAvatarRequest struct{}

type UploadAvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

type DeleteAvatarRequest struct{}

type DeleteAvatarResponse struct{}

type SearchUsersRequest struct {
	Q     string `json:"q"`
	Limit int    `json:"limit"`
}

type SearchUsersResponse struct {
	Users []User `json:"users"`
}
