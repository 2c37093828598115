package repository

import (
	"context"
	"time"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

// FriendshipRepository exposes the per-side writes of the friendship graph.
// Every mutation is a single-row statement returning the number of rows it
// modified, so callers can tell "applied" from "was already in that state".
type FriendshipRepository interface {
	CreateRequestSide(ctx context.Context, owner, other string, side entity.RequestSide, sentAt time.Time) (int64, error)
	DeleteRequestSide(ctx context.Context, owner, other string, side entity.RequestSide) (int64, error)
	GetRequests(ctx context.Context, owner string, side entity.RequestSide) ([]entity.FriendRequest, error)
	GetRequest(ctx context.Context, owner, other string, side entity.RequestSide) (*entity.FriendRequest, error)

	CreateEdge(ctx context.Context, userID, friendID string) (int64, error)
	DeleteEdge(ctx context.Context, userID, friendID string) (int64, error)
	IsFriend(ctx context.Context, userID, friendID string) (bool, error)
	GetFriendIDs(ctx context.Context, userID string) ([]string, error)
	GetEdgesOfUsers(ctx context.Context, userIDs []string) ([]entity.FriendEdge, error)
	CountFriends(ctx context.Context, userID string) (int64, error)
}

type friendshipRepository struct{}

func NewFriendshipRepository() FriendshipRepository {
	return &friendshipRepository{}
}

func (r *friendshipRepository) CreateRequestSide(
	ctx context.Context, owner, other string, side entity.RequestSide, sentAt time.Time,
) (int64, error) {
	tx := xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.FriendRequest{
			OwnerID: owner,
			OtherID: other,
			Side:    side,
			SentAt:  sentAt,
		})

	return tx.RowsAffected, tx.Error
}

func (r *friendshipRepository) DeleteRequestSide(
	ctx context.Context, owner, other string, side entity.RequestSide,
) (int64, error) {
	tx := xcontext.DB(ctx).
		Where("owner_id=? AND other_id=? AND side=?", owner, other, side).
		Delete(&entity.FriendRequest{})

	return tx.RowsAffected, tx.Error
}

func (r *friendshipRepository) GetRequests(
	ctx context.Context, owner string, side entity.RequestSide,
) ([]entity.FriendRequest, error) {
	var records []entity.FriendRequest
	err := xcontext.DB(ctx).
		Where("owner_id=? AND side=?", owner, side).
		Order("sent_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *friendshipRepository) GetRequest(
	ctx context.Context, owner, other string, side entity.RequestSide,
) (*entity.FriendRequest, error) {
	var record entity.FriendRequest
	err := xcontext.DB(ctx).
		Where("owner_id=? AND other_id=? AND side=?", owner, other, side).
		Take(&record).Error
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *friendshipRepository) CreateEdge(ctx context.Context, userID, friendID string) (int64, error) {
	tx := xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.FriendEdge{UserID: userID, FriendID: friendID})

	return tx.RowsAffected, tx.Error
}

func (r *friendshipRepository) DeleteEdge(ctx context.Context, userID, friendID string) (int64, error) {
	tx := xcontext.DB(ctx).
		Where("user_id=? AND friend_id=?", userID, friendID).
		Delete(&entity.FriendEdge{})

	return tx.RowsAffected, tx.Error
}

func (r *friendshipRepository) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.FriendEdge{}).
		Where("user_id=? AND friend_id=?", userID, friendID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *friendshipRepository) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := xcontext.DB(ctx).Model(&entity.FriendEdge{}).
		Where("user_id=?", userID).
		Order("created_at ASC").
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// GetEdgesOfUsers loads the outgoing edges of all given users in one query.
// It is the second hop of the recommendation walk.
func (r *friendshipRepository) GetEdgesOfUsers(
	ctx context.Context, userIDs []string,
) ([]entity.FriendEdge, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var records []entity.FriendEdge
	err := xcontext.DB(ctx).
		Where("user_id IN (?)", userIDs).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *friendshipRepository) CountFriends(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.FriendEdge{}).
		Where("user_id=?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
