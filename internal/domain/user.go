package domain

import (
	"context"
	"errors"
	"strconv"

	"github.com/ecosteps/backend/internal/common"
	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/model"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/storage"
	"github.com/ecosteps/backend/pkg/xcontext"
	"gorm.io/gorm"
)

const maxAboutMeLength = 1024

type UserDomain interface {
	GetMe(context.Context, *model.GetMeRequest) (*model.GetMeResponse, error)
	GetUser(context.Context, *model.GetUserRequest) (*model.GetUserResponse, error)
	SetAboutMe(context.Context, *model.SetAboutMeRequest) (*model.SetAboutMeResponse, error)
	UploadAvatar(context.Context, *model.UploadAvatarRequest) (*model.UploadAvatarResponse, error)
	DeleteAvatar(context.Context, *model.DeleteAvatarRequest) (*model.DeleteAvatarResponse, error)
	Search(context.Context, *model.SearchUsersRequest) (*model.SearchUsersResponse, error)
}

type userDomain struct {
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
	activityRepo   repository.ActivityRepository
	fileStorage    storage.Storage
}

func NewUserDomain(
	userRepo repository.UserRepository,
	friendshipRepo repository.FriendshipRepository,
	activityRepo repository.ActivityRepository,
	fileStorage storage.Storage,
) *userDomain {
	return &userDomain{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		activityRepo:   activityRepo,
		fileStorage:    fileStorage,
	}
}

func (d *userDomain) GetMe(
	ctx context.Context, req *model.GetMeRequest,
) (*model.GetMeResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	converted, err := d.convertPrivate(ctx, user)
	if err != nil {
		return nil, err
	}

	incoming, err := d.convertRequests(ctx, userID, entity.Incoming)
	if err != nil {
		return nil, err
	}

	outgoing, err := d.convertRequests(ctx, userID, entity.Outgoing)
	if err != nil {
		return nil, err
	}

	return &model.GetMeResponse{
		User:             converted,
		IncomingRequests: incoming,
		OutgoingRequests: outgoing,
	}, nil
}

func (d *userDomain) GetUser(
	ctx context.Context, req *model.GetUserRequest,
) (*model.GetUserResponse, error) {
	user, err := d.userRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	userID := xcontext.RequestUserID(ctx)
	includePrivate := userID == user.ID
	if !includePrivate {
		isFriend, err := d.friendshipRepo.IsFriend(ctx, userID, user.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot check friendship: %v", err)
			return nil, errorx.Unknown
		}

		includePrivate = isFriend
	}

	if !includePrivate {
		count, err := d.friendshipRepo.CountFriends(ctx, user.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count friends: %v", err)
			return nil, errorx.Unknown
		}

		return &model.GetUserResponse{User: model.ConvertUser(ctx, user, count, false)}, nil
	}

	converted, err := d.convertPrivate(ctx, user)
	if err != nil {
		return nil, err
	}

	return &model.GetUserResponse{User: converted}, nil
}

// convertPrivate builds the view shown to the owner and accepted friends,
// including the friend ids and the activity ids.
func (d *userDomain) convertPrivate(ctx context.Context, user *entity.User) (model.User, error) {
	friendIDs, err := d.friendshipRepo.GetFriendIDs(ctx, user.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get friend ids: %v", err)
		return model.User{}, errorx.Unknown
	}

	activities, err := d.activityRepo.GetByUserID(ctx, user.ID, 0, -1)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get activities: %v", err)
		return model.User{}, errorx.Unknown
	}

	activityIDs := []string{}
	for _, activity := range activities {
		activityIDs = append(activityIDs, strconv.FormatInt(activity.ID, 10))
	}

	converted := model.ConvertUser(ctx, user, int64(len(friendIDs)), true)
	converted.Friends = friendIDs
	converted.ActivityIDs = activityIDs
	return converted, nil
}

func (d *userDomain) convertRequests(
	ctx context.Context, userID string, side entity.RequestSide,
) ([]model.FriendRequest, error) {
	requests, err := d.friendshipRepo.GetRequests(ctx, userID, side)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get %s requests: %v", side, err)
		return nil, errorx.Unknown
	}

	otherIDs := []string{}
	for _, request := range requests {
		otherIDs = append(otherIDs, request.OtherID)
	}

	others, err := d.userRepo.GetByIDs(ctx, otherIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get users of requests: %v", err)
		return nil, errorx.Unknown
	}

	otherMap := map[string]*entity.User{}
	for i := range others {
		otherMap[others[i].ID] = &others[i]
	}

	clientRequests := []model.FriendRequest{}
	for i := range requests {
		clientRequests = append(clientRequests,
			model.ConvertFriendRequest(ctx, &requests[i], otherMap[requests[i].OtherID]))
	}

	return clientRequests, nil
}

func (d *userDomain) SetAboutMe(
	ctx context.Context, req *model.SetAboutMeRequest,
) (*model.SetAboutMeResponse, error) {
	if len(req.AboutMe) > maxAboutMeLength {
		return nil, errorx.New(errorx.BadRequest,
			"Exceeded the maximum length of about me (%d)", maxAboutMeLength)
	}

	userID := xcontext.RequestUserID(ctx)
	err := d.userRepo.UpdateByID(ctx, userID, &entity.User{AboutMe: req.AboutMe})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update about me: %v", err)
		return nil, errorx.Unknown
	}

	return &model.SetAboutMeResponse{}, nil
}

func (d *userDomain) UploadAvatar(
	ctx context.Context, req *model.UploadAvatarRequest,
) (*model.UploadAvatarResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	blobRefs, err := common.ProcessAvatar(ctx, d.fileStorage, "image")
	if err != nil {
		return nil, err
	}

	err = d.userRepo.UpdateByID(ctx, userID, &entity.User{Avatars: blobRefs})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update avatars: %v", err)
		return nil, errorx.Unknown
	}

	d.deferredDeleteBlobs(ctx, user.Avatars)
	return &model.UploadAvatarResponse{
		AvatarURL: model.BlobURL(ctx, blobRefs[0]),
	}, nil
}

func (d *userDomain) DeleteAvatar(
	ctx context.Context, req *model.DeleteAvatarRequest,
) (*model.DeleteAvatarResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	if len(user.Avatars) == 0 {
		return nil, errorx.New(errorx.NotFound, "You have no profile picture")
	}

	err = d.userRepo.UpdateByID(ctx, userID, &entity.User{Avatars: entity.Array[string]{}})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot clear avatars: %v", err)
		return nil, errorx.Unknown
	}

	d.deferredDeleteBlobs(ctx, user.Avatars)
	return &model.DeleteAvatarResponse{}, nil
}

func (d *userDomain) Search(
	ctx context.Context, req *model.SearchUsersRequest,
) (*model.SearchUsersResponse, error) {
	if req.Q == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow an empty query")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	if limit > 50 {
		return nil, errorx.New(errorx.BadRequest, "Exceeded the maximum of limit (50)")
	}

	users, err := d.userRepo.Search(ctx, req.Q, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot search users: %v", err)
		return nil, errorx.Unknown
	}

	clientUsers := []model.User{}
	for i := range users {
		count, err := d.friendshipRepo.CountFriends(ctx, users[i].ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count friends: %v", err)
			return nil, errorx.Unknown
		}

		clientUsers = append(clientUsers, model.ConvertUser(ctx, &users[i], count, false))
	}

	return &model.SearchUsersResponse{Users: clientUsers}, nil
}

func (d *userDomain) deferredDeleteBlobs(ctx context.Context, blobRefs []string) {
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
