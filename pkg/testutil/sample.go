package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/google/uuid"
)

var sampleNode, _ = snowflake.NewNode(0)

// SampleUser creates a new user in database with many fields are randomized.
// The sample user can be overwritten by non-zero fields of init.
func SampleUser(ctx context.Context, init *entity.User) (entity.User, error) {
	userRepo := repository.NewUserRepository(nil)

	sample := &entity.User{
		Base:           entity.Base{ID: uuid.NewString()},
		Name:           uuid.NewString(),
		HashedPassword: uuid.NewString(),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := userRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

// SampleActivity creates a new activity owned by userID. The sample activity
// can be overwritten by non-zero fields of init.
func SampleActivity(ctx context.Context, userID string, init *entity.Activity) (entity.Activity, error) {
	activityRepo := repository.NewActivityRepository()

	sample := &entity.Activity{
		SnowFlakeBase: entity.SnowFlakeBase{ID: sampleNode.Generate().Int64()},
		UserID:        userID,
		Type:          entity.TrashPicking,
		Title:         uuid.NewString(),
		PointsGained:  entity.PointsOf(entity.TrashPicking),
		Streak:        1,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := activityRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

// MakeFriends writes both edges of a friendship directly.
func MakeFriends(ctx context.Context, userID, friendID string) error {
	friendshipRepo := repository.NewFriendshipRepository()
	if _, err := friendshipRepo.CreateEdge(ctx, userID, friendID); err != nil {
		return err
	}

	_, err := friendshipRepo.CreateEdge(ctx, friendID, userID)
	return err
}

// MakePendingRequest writes both sides of a pending friend request directly.
func MakePendingRequest(ctx context.Context, senderID, receiverID string) error {
	friendshipRepo := repository.NewFriendshipRepository()
	sentAt := time.Now()
	if _, err := friendshipRepo.CreateRequestSide(
		ctx, senderID, receiverID, entity.Outgoing, sentAt); err != nil {
		return err
	}

	_, err := friendshipRepo.CreateRequestSide(ctx, receiverID, senderID, entity.Incoming, sentAt)
	return err
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if !overwriteField.IsZero() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}
