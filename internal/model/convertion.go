package model

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/pkg/xcontext"
)

// BlobURL resolves a blob reference to its public URL.
func BlobURL(ctx context.Context, blobRef string) string {
	if blobRef == "" {
		return ""
	}

	cfg := xcontext.Configs(ctx).Storage
	return fmt.Sprintf("%s/%s/%s", cfg.PublicURL, cfg.Bucket, blobRef)
}

func ConvertUser(
	ctx context.Context,
	user *entity.User,
	friendCount int64,
	includePrivate bool,
) User {
	if user == nil {
		return User{}
	}

	avatarURL := ""
	if len(user.Avatars) > 0 {
		avatarURL = BlobURL(ctx, user.Avatars[0])
	}

	converted := User{
		ID:          user.ID,
		Name:        user.Name,
		Points:      user.Points,
		Streak:      user.Streak,
		AvatarURL:   avatarURL,
		FriendCount: friendCount,
	}

	if includePrivate {
		converted.AboutMe = user.AboutMe
	}

	return converted
}

func ConvertActivity(ctx context.Context, activity *entity.Activity, userName string) Activity {
	if activity == nil {
		return Activity{}
	}

	images := []string{}
	for _, blobRef := range activity.Images {
		images = append(images, BlobURL(ctx, blobRef))
	}

	return Activity{
		ID:           strconv.FormatInt(activity.ID, 10),
		UserID:       activity.UserID,
		UserName:     userName,
		Type:         string(activity.Type),
		Title:        activity.Title,
		Caption:      activity.Caption,
		PointsGained: activity.PointsGained,
		Streak:       activity.Streak,
		Images:       images,
		CreatedAt:    activity.CreatedAt,
	}
}

func ConvertFriendRequest(
	ctx context.Context, request *entity.FriendRequest, other *entity.User,
) FriendRequest {
	converted := FriendRequest{
		UserID: request.OtherID,
		SentAt: request.SentAt,
	}

	if other != nil {
		converted.Name = other.Name
		if len(other.Avatars) > 0 {
			converted.AvatarURL = BlobURL(ctx, other.Avatars[0])
		}
	}

	return converted
}
