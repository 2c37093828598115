package repository

import (
	"context"
	"errors"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ActivityRepository interface {
	Create(ctx context.Context, data *entity.Activity) error
	GetByID(ctx context.Context, id int64) (*entity.Activity, error)
	UpdateByID(ctx context.Context, id int64, data *entity.Activity) error
	DeleteByID(ctx context.Context, id int64) error
	GetFeed(ctx context.Context, userIDs []string, offset, limit int) ([]entity.Activity, error)
	GetByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.Activity, error)
}

type activityRepository struct{}

func NewActivityRepository() ActivityRepository {
	return &activityRepository{}
}

func (r *activityRepository) Create(ctx context.Context, data *entity.Activity) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *activityRepository) GetByID(ctx context.Context, id int64) (*entity.Activity, error) {
	var record entity.Activity
	if err := xcontext.DB(ctx).Where("id=?", id).Take(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *activityRepository) UpdateByID(ctx context.Context, id int64, data *entity.Activity) error {
	updateMap := map[string]any{}
	if data.Title != "" {
		updateMap["title"] = data.Title
	}

	if data.Caption != "" {
		updateMap["caption"] = data.Caption
	}

	if data.Images != nil {
		updateMap["images"] = data.Images
	}

	if len(updateMap) == 0 {
		return nil
	}

	tx := xcontext.DB(ctx).Model(&entity.Activity{}).Where("id=?", id).Updates(updateMap)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *activityRepository) DeleteByID(ctx context.Context, id int64) error {
	tx := xcontext.DB(ctx).Delete(&entity.Activity{}, "id=?", id)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of rows effected is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// GetFeed returns the newest activities of the given users. Snowflake ids are
// time ordered, so sorting by id is sorting by creation time.
func (r *activityRepository) GetFeed(
	ctx context.Context, userIDs []string, offset, limit int,
) ([]entity.Activity, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var records []entity.Activity
	err := xcontext.DB(ctx).
		Where("user_id IN (?)", userIDs).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *activityRepository) GetByUserID(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.Activity, error) {
	var records []entity.Activity
	err := xcontext.DB(ctx).
		Where("user_id=?", userID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}
