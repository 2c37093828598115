package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/ecosteps/backend/pkg/xredis"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, data *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByName(ctx context.Context, name string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.User, error)
	Search(ctx context.Context, q string, limit int) ([]entity.User, error)
	UpdateByID(ctx context.Context, id string, data *entity.User) error
	ApplyAccrual(ctx context.Context, id string, gained, streak uint64, lastStreakAt time.Time) error
	RefundPoints(ctx context.Context, id string, points uint64) error
	ResetPoints(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	redisClient xredis.Client
}

func NewUserRepository(redisClient xredis.Client) UserRepository {
	return &userRepository{redisClient: redisClient}
}

func (r *userRepository) cacheKey(id string) string {
	return fmt.Sprintf("cache:user:%s", id)
}

func (r *userRepository) cache(ctx context.Context, user *entity.User) {
	if r.redisClient == nil {
		return
	}

	ttl := xcontext.Configs(ctx).Redis.CacheExpiration.Duration
	if err := r.redisClient.SetObj(ctx, r.cacheKey(user.ID), user, ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot set user cache: %v", err)
	}
}

func (r *userRepository) invalidateCache(ctx context.Context, id string) {
	if r.redisClient == nil {
		return
	}

	if err := r.redisClient.Del(ctx, r.cacheKey(id)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate user cache: %v", err)
	}
}

func (r *userRepository) Create(ctx context.Context, data *entity.User) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if r.redisClient != nil {
		var cached entity.User
		if err := r.redisClient.GetObj(ctx, r.cacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	var record entity.User
	if err := xcontext.DB(ctx).Where("id=?", id).Take(&record).Error; err != nil {
		return nil, err
	}

	r.cache(ctx, &record)
	return &record, nil
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*entity.User, error) {
	var record entity.User
	if err := xcontext.DB(ctx).Where("name=?", name).Take(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []entity.User
	if err := xcontext.DB(ctx).Where("id IN (?)", ids).Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *userRepository) Search(ctx context.Context, q string, limit int) ([]entity.User, error) {
	var records []entity.User
	err := xcontext.DB(ctx).
		Where("name LIKE ?", "%"+q+"%").
		Order("name ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *userRepository) UpdateByID(ctx context.Context, id string, data *entity.User) error {
	updateMap := map[string]any{}
	if data.AboutMe != "" {
		updateMap["about_me"] = data.AboutMe
	}

	if data.Avatars != nil {
		updateMap["avatars"] = data.Avatars
	}

	if len(updateMap) == 0 {
		return nil
	}

	err := xcontext.DB(ctx).Model(&entity.User{}).Where("id=?", id).Updates(updateMap).Error
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	return nil
}

// ApplyAccrual atomically adds gained points and replaces the streak fields.
func (r *userRepository) ApplyAccrual(
	ctx context.Context, id string, gained, streak uint64, lastStreakAt time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", id).
		Updates(map[string]any{
			"points":         gorm.Expr("points+?", gained),
			"streak":         streak,
			"last_streak_at": lastStreakAt,
		})

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of rows effected is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.invalidateCache(ctx, id)
	return nil
}

// RefundPoints decreases points by the given amount. The write is conditioned
// on the balance covering the refund; it returns gorm.ErrRecordNotFound if
// the user is missing or the balance is too small.
func (r *userRepository) RefundPoints(ctx context.Context, id string, points uint64) error {
	tx := xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=? AND points >= ?", id, points).
		Update("points", gorm.Expr("points-?", points))

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of rows effected is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.invalidateCache(ctx, id)
	return nil
}

func (r *userRepository) ResetPoints(ctx context.Context, id string) error {
	err := xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", id).
		Update("points", 0).Error
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := xcontext.DB(ctx).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
