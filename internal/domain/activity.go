package domain

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ecosteps/backend/internal/common"
	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/model"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/enum"
	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/storage"
	"github.com/ecosteps/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

type ActivityDomain interface {
	Create(context.Context, *model.CreateActivityRequest) (*model.CreateActivityResponse, error)
	Get(context.Context, *model.GetActivityRequest) (*model.GetActivityResponse, error)
	Update(context.Context, *model.UpdateActivityRequest) (*model.UpdateActivityResponse, error)
	Delete(context.Context, *model.DeleteActivityRequest) (*model.DeleteActivityResponse, error)
	GetFeed(context.Context, *model.GetFeedRequest) (*model.GetFeedResponse, error)
	GetTypes(context.Context, *model.GetActivityTypesRequest) (*model.GetActivityTypesResponse, error)
}

type activityDomain struct {
	activityRepo   repository.ActivityRepository
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
	fileStorage    storage.Storage
	idGenerator    *snowflake.Node
}

func NewActivityDomain(
	activityRepo repository.ActivityRepository,
	userRepo repository.UserRepository,
	friendshipRepo repository.FriendshipRepository,
	fileStorage storage.Storage,
	idGenerator *snowflake.Node,
) *activityDomain {
	return &activityDomain{
		activityRepo:   activityRepo,
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		fileStorage:    fileStorage,
		idGenerator:    idGenerator,
	}
}

func (d *activityDomain) Create(
	ctx context.Context, req *model.CreateActivityRequest,
) (*model.CreateActivityResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	httpReq := xcontext.HTTPRequest(ctx)

	activityType, err := enum.ToEnum[entity.ActivityType](httpReq.FormValue("type"))
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid activity type")
	}

	title := httpReq.FormValue("title")
	if title == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty title")
	}

	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	// Every image is validated before the first blob write.
	maxImages := xcontext.Configs(ctx).File.MaxPerActivity
	images, err := common.ProcessImages(ctx, d.fileStorage, "images", maxImages)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	streak := nextStreak(ctx, user, now)
	pointsGained := entity.PointsOf(activityType)

	activity := &entity.Activity{
		SnowFlakeBase: entity.SnowFlakeBase{ID: d.idGenerator.Generate().Int64()},
		UserID:        userID,
		Type:          activityType,
		Title:         title,
		Caption:       httpReq.FormValue("caption"),
		PointsGained:  pointsGained,
		Streak:        streak,
		Images:        images,
	}

	// The activity is inserted before the aggregates are touched. A
	// dangling activity is recoverable; an aggregate bump with no activity
	// is not.
	if err := d.activityRepo.Create(ctx, activity); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create activity: %v", err)
		d.deferredDeleteBlobs(ctx, images)
		return nil, errorx.Unknown
	}

	if err := d.userRepo.ApplyAccrual(ctx, userID, pointsGained, streak, now); err != nil {
		xcontext.Logger(ctx).Errorf(
			"Cannot apply accrual of activity %d for user %s, reconcile manually: %v",
			activity.ID, userID, err)
		return nil, errorx.New(errorx.PartialWrite,
			"The activity was recorded but your points were not updated, please contact the administrator")
	}

	return &model.CreateActivityResponse{
		Activity: model.ConvertActivity(ctx, activity, user.Name),
	}, nil
}

// nextStreak applies the grace-window rule: the streak keeps growing while
// the gap since the previous activity stays under the window, otherwise it
// restarts at one.
func nextStreak(ctx context.Context, user *entity.User, now time.Time) uint64 {
	if !user.LastStreakAt.Valid {
		return 1
	}

	window := xcontext.Configs(ctx).Activity.StreakWindow.Duration
	if now.Sub(user.LastStreakAt.Time) < window {
		return user.Streak + 1
	}

	return 1
}

func (d *activityDomain) Get(
	ctx context.Context, req *model.GetActivityRequest,
) (*model.GetActivityResponse, error) {
	activity, err := d.loadActivity(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	userID := xcontext.RequestUserID(ctx)
	if activity.UserID != userID {
		isFriend, err := d.friendshipRepo.IsFriend(ctx, userID, activity.UserID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot check friendship: %v", err)
			return nil, errorx.Unknown
		}

		if !isFriend {
			return nil, errorx.New(errorx.PermissionDenied, "Only friends can view this activity")
		}
	}

	owner, err := d.userRepo.GetByID(ctx, activity.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get activity owner: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetActivityResponse{
		Activity: model.ConvertActivity(ctx, activity, owner.Name),
	}, nil
}

func (d *activityDomain) Update(
	ctx context.Context, req *model.UpdateActivityRequest,
) (*model.UpdateActivityResponse, error) {
	httpReq := xcontext.HTTPRequest(ctx)
	activity, err := d.loadActivity(ctx, httpReq.FormValue("id"))
	if err != nil {
		return nil, err
	}

	userID := xcontext.RequestUserID(ctx)
	if activity.UserID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Only the owner can edit an activity")
	}

	removed := []string{}
	if httpReq.MultipartForm != nil {
		for _, blobRef := range httpReq.MultipartForm.Value["removed_images"] {
			if !slices.Contains([]string(activity.Images), blobRef) {
				return nil, errorx.New(errorx.BadRequest, "The image %s does not belong to this activity", blobRef)
			}

			removed = append(removed, blobRef)
		}
	}

	// The image cap is checked before any new blob is written.
	maxImages := xcontext.Configs(ctx).File.MaxPerActivity
	newCount := 0
	if httpReq.MultipartForm != nil {
		newCount = len(httpReq.MultipartForm.File["images"])
	}

	if len(activity.Images)-len(removed)+newCount > maxImages {
		return nil, errorx.New(errorx.BadRequest, "Not allow more than %d images", maxImages)
	}

	added, err := common.ProcessImages(ctx, d.fileStorage, "images", maxImages)
	if err != nil {
		return nil, err
	}

	images := entity.Array[string]{}
	for _, blobRef := range activity.Images {
		if !slices.Contains(removed, blobRef) {
			images = append(images, blobRef)
		}
	}
	images = append(images, added...)

	update := &entity.Activity{
		Title:   httpReq.FormValue("title"),
		Caption: httpReq.FormValue("caption"),
		Images:  images,
	}

	if err := d.activityRepo.UpdateByID(ctx, activity.ID, update); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update activity: %v", err)
		return nil, errorx.Unknown
	}

	d.deferredDeleteBlobs(ctx, removed)

	activity, err = d.activityRepo.GetByID(ctx, activity.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reload activity: %v", err)
		return nil, errorx.Unknown
	}

	return &model.UpdateActivityResponse{
		Activity: model.ConvertActivity(ctx, activity, ""),
	}, nil
}

func (d *activityDomain) Delete(
	ctx context.Context, req *model.DeleteActivityRequest,
) (*model.DeleteActivityResponse, error) {
	activity, err := d.loadActivity(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	userID := xcontext.RequestUserID(ctx)
	if activity.UserID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Only the owner can delete an activity")
	}

	if err := d.activityRepo.DeleteByID(ctx, activity.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found activity")
		}

		xcontext.Logger(ctx).Errorf("Cannot delete activity: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.userRepo.RefundPoints(ctx, userID, activity.PointsGained); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The balance no longer covers the refund. Clamp at zero
			// instead of going negative, but make it loud.
			xcontext.Logger(ctx).Warnf(
				"Points of user %s do not cover the refund of activity %d, clamping to zero",
				userID, activity.ID)
			if err := d.userRepo.ResetPoints(ctx, userID); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot reset points, reconcile manually: %v", err)
				return nil, errorx.New(errorx.PartialWrite,
					"The activity was deleted but your points were not updated, please contact the administrator")
			}
		} else {
			xcontext.Logger(ctx).Errorf(
				"Cannot refund points of activity %d for user %s, reconcile manually: %v",
				activity.ID, userID, err)
			return nil, errorx.New(errorx.PartialWrite,
				"The activity was deleted but your points were not updated, please contact the administrator")
		}
	}

	d.deferredDeleteBlobs(ctx, activity.Images)
	return &model.DeleteActivityResponse{}, nil
}

func (d *activityDomain) GetFeed(
	ctx context.Context, req *model.GetFeedRequest,
) (*model.GetFeedResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	friendIDs, err := d.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get friend ids: %v", err)
		return nil, errorx.Unknown
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	if limit > 50 {
		return nil, errorx.New(errorx.BadRequest, "Exceeded the maximum of limit (50)")
	}

	feedUserIDs := append(friendIDs, userID)
	activities, err := d.activityRepo.GetFeed(ctx, feedUserIDs, req.Offset, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get feed: %v", err)
		return nil, errorx.Unknown
	}

	users, err := d.userRepo.GetByIDs(ctx, feedUserIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get feed users: %v", err)
		return nil, errorx.Unknown
	}

	nameMap := map[string]string{}
	for _, user := range users {
		nameMap[user.ID] = user.Name
	}

	clientActivities := []model.Activity{}
	for i := range activities {
		clientActivities = append(clientActivities,
			model.ConvertActivity(ctx, &activities[i], nameMap[activities[i].UserID]))
	}

	return &model.GetFeedResponse{Activities: clientActivities}, nil
}

func (d *activityDomain) GetTypes(
	ctx context.Context, req *model.GetActivityTypesRequest,
) (*model.GetActivityTypesResponse, error) {
	types := []model.ActivityTypeInfo{}
	for _, t := range enum.ToList[entity.ActivityType]() {
		types = append(types, model.ActivityTypeInfo{
			Type:   string(t),
			Points: entity.PointsOf(t),
		})
	}

	return &model.GetActivityTypesResponse{Types: types}, nil
}

func (d *activityDomain) loadActivity(ctx context.Context, id string) (*entity.Activity, error) {
	activityID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid activity id")
	}

	activity, err := d.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found activity")
		}

		xcontext.Logger(ctx).Errorf("Cannot get activity: %v", err)
		return nil, errorx.Unknown
	}

	return activity, nil
}

// deferredDeleteBlobs removes blobs after the response is sent. Failures are
// swallowed, an orphan blob is harmless.
func (d *activityDomain) deferredDeleteBlobs(ctx context.Context, blobRefs []string) {
	if len(blobRefs) == 0 {
		return
	}

	log := xcontext.Logger(ctx)
	go func() {
		detached := xcontext.WithLogger(context.Background(), log)
		if err := d.fileStorage.BulkDelete(detached, blobRefs); err != nil {
			log.Warnf("Cannot delete blobs %v: %v", blobRefs, err)
		}
	}()
}
