package domain

import (
	"context"
	"errors"
	"time"

	"github.com/ecosteps/backend/internal/common"
	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/model"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/ecosteps/backend/pkg/xredis"
	"gorm.io/gorm"
)

type FriendshipDomain interface {
	SendRequest(context.Context, *model.SendFriendRequestRequest) (*model.SendFriendRequestResponse, error)
	CancelRequest(context.Context, *model.CancelFriendRequestRequest) (*model.CancelFriendRequestResponse, error)
	DeclineRequest(context.Context, *model.DeclineFriendRequestRequest) (*model.DeclineFriendRequestResponse, error)
	AcceptRequest(context.Context, *model.AcceptFriendRequestRequest) (*model.AcceptFriendRequestResponse, error)
	Unfriend(context.Context, *model.UnfriendRequest) (*model.UnfriendResponse, error)
	GetFriends(context.Context, *model.GetFriendsRequest) (*model.GetFriendsResponse, error)
	GetRequests(context.Context, *model.GetFriendRequestsRequest) (*model.GetFriendRequestsResponse, error)
}

type friendshipDomain struct {
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
	redisClient    xredis.Client
}

func NewFriendshipDomain(
	userRepo repository.UserRepository,
	friendshipRepo repository.FriendshipRepository,
	redisClient xredis.Client,
) *friendshipDomain {
	return &friendshipDomain{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		redisClient:    redisClient,
	}
}

// errNothingApplied reports a dual write where neither side changed a row.
// The caller maps it to the right client error for its transition.
var errNothingApplied = errors.New("no side of the dual write was applied")

// sideWrite is one half of a dual-document mutation. The underlying store
// gives no cross-row atomicity, so every transition is two independent
// single-row writes plus a best-effort compensation.
type sideWrite struct {
	apply      func(ctx context.Context) (int64, error)
	compensate func(ctx context.Context) (int64, error)
}

// transition applies both sides of a dual write. Both sides are always
// attempted. If exactly one side applied, the applied side is compensated;
// a failed compensation leaves the graph halved and is surfaced as a partial
// write for out-of-band reconciliation.
func (d *friendshipDomain) transition(ctx context.Context, first, second sideWrite) error {
	firstModified, firstErr := first.apply(ctx)
	secondModified, secondErr := second.apply(ctx)

	firstApplied := firstErr == nil && firstModified == 1
	secondApplied := secondErr == nil && secondModified == 1

	switch {
	case firstApplied && secondApplied:
		return nil

	case !firstApplied && !secondApplied:
		if firstErr != nil || secondErr != nil {
			xcontext.Logger(ctx).Errorf(
				"Both sides of the dual write failed: %v, %v", firstErr, secondErr)
			return errorx.Unknown
		}

		return errNothingApplied

	case firstApplied:
		return d.compensate(ctx, first, firstErr, secondErr)

	default:
		return d.compensate(ctx, second, firstErr, secondErr)
	}
}

func (d *friendshipDomain) compensate(
	ctx context.Context, applied sideWrite, firstErr, secondErr error,
) error {
	xcontext.Logger(ctx).Warnf(
		"One side of the dual write was not applied (errors %v, %v), compensating",
		firstErr, secondErr)

	if _, err := applied.compensate(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("CANNOT COMPENSATE the dual write, reconcile manually: %v", err)
		return errorx.New(errorx.PartialWrite,
			"The operation was applied partially, please contact the administrator")
	}

	return errorx.Unknown
}

func (d *friendshipDomain) addRequestPair(sender, receiver string, sentAt time.Time) (sideWrite, sideWrite) {
	senderSide := sideWrite{
		apply: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.CreateRequestSide(ctx, sender, receiver, entity.Outgoing, sentAt)
		},
		compensate: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.DeleteRequestSide(ctx, sender, receiver, entity.Outgoing)
		},
	}

	receiverSide := sideWrite{
		apply: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.CreateRequestSide(ctx, receiver, sender, entity.Incoming, sentAt)
		},
		compensate: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.DeleteRequestSide(ctx, receiver, sender, entity.Incoming)
		},
	}

	return senderSide, receiverSide
}

func (d *friendshipDomain) removeRequestPair(sender, receiver string) (sideWrite, sideWrite) {
	sentAt := time.Now()
	senderSide := sideWrite{
		apply: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.DeleteRequestSide(ctx, sender, receiver, entity.Outgoing)
		},
		compensate: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.CreateRequestSide(ctx, sender, receiver, entity.Outgoing, sentAt)
		},
	}

	receiverSide := sideWrite{
		apply: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.DeleteRequestSide(ctx, receiver, sender, entity.Incoming)
		},
		compensate: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.CreateRequestSide(ctx, receiver, sender, entity.Incoming, sentAt)
		},
	}

	return senderSide, receiverSide
}

func (d *friendshipDomain) SendRequest(
	ctx context.Context, req *model.SendFriendRequestRequest,
) (*model.SendFriendRequestResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if req.UserID == userID {
		return nil, errorx.New(errorx.AlreadyExists, "Not allow sending a friend request to yourself")
	}

	if _, err := d.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	isFriend, err := d.friendshipRepo.IsFriend(ctx, userID, req.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check friendship: %v", err)
		return nil, errorx.Unknown
	}

	if isFriend {
		return nil, errorx.New(errorx.AlreadyExists, "You are already friends with this user")
	}

	_, err = d.friendshipRepo.GetRequest(ctx, userID, req.UserID, entity.Incoming)
	if err == nil {
		return nil, errorx.New(errorx.AlreadyExists, "This user has already sent you a friend request")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get incoming request: %v", err)
		return nil, errorx.Unknown
	}

	senderSide, receiverSide := d.addRequestPair(userID, req.UserID, time.Now())
	if err := d.transition(ctx, senderSide, receiverSide); err != nil {
		if errors.Is(err, errNothingApplied) {
			return nil, errorx.New(errorx.AlreadyExists, "You have already sent a friend request to this user")
		}

		return nil, err
	}

	return &model.SendFriendRequestResponse{}, nil
}

func (d *friendshipDomain) CancelRequest(
	ctx context.Context, req *model.CancelFriendRequestRequest,
) (*model.CancelFriendRequestResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	senderSide, receiverSide := d.removeRequestPair(userID, req.UserID)
	if err := d.transition(ctx, senderSide, receiverSide); err != nil {
		if errors.Is(err, errNothingApplied) {
			return nil, errorx.New(errorx.NotFound, "Not found a friend request to this user")
		}

		return nil, err
	}

	return &model.CancelFriendRequestResponse{}, nil
}

// DeclineRequest removes a request the caller received. It is the exact
// mirror of CancelRequest with the roles swapped.
func (d *friendshipDomain) DeclineRequest(
	ctx context.Context, req *model.DeclineFriendRequestRequest,
) (*model.DeclineFriendRequestResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	senderSide, receiverSide := d.removeRequestPair(req.UserID, userID)
	if err := d.transition(ctx, senderSide, receiverSide); err != nil {
		if errors.Is(err, errNothingApplied) {
			return nil, errorx.New(errorx.NotFound, "Not found a friend request from this user")
		}

		return nil, err
	}

	return &model.DeclineFriendRequestResponse{}, nil
}

func (d *friendshipDomain) AcceptRequest(
	ctx context.Context, req *model.AcceptFriendRequestRequest,
) (*model.AcceptFriendRequestResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	// Clear the pending request pair first. If this fails, no friendship
	// edge is written.
	senderSide, receiverSide := d.removeRequestPair(req.UserID, userID)
	if err := d.transition(ctx, senderSide, receiverSide); err != nil {
		if errors.Is(err, errNothingApplied) {
			return nil, errorx.New(errorx.NotFound, "Not found a friend request from this user")
		}

		return nil, err
	}

	// The edge writes use set semantics, adding an existing friend changes
	// nothing. A zero-modified result without an error is therefore fine.
	firstModified, firstErr := d.friendshipRepo.CreateEdge(ctx, userID, req.UserID)
	secondModified, secondErr := d.friendshipRepo.CreateEdge(ctx, req.UserID, userID)
	if firstErr != nil || secondErr != nil {
		xcontext.Logger(ctx).Errorf("Cannot create friend edges: %v, %v", firstErr, secondErr)
		if firstErr == nil && firstModified == 1 {
			if _, err := d.friendshipRepo.DeleteEdge(ctx, userID, req.UserID); err != nil {
				xcontext.Logger(ctx).Errorf("CANNOT COMPENSATE the friend edge, reconcile manually: %v", err)
				return nil, errorx.New(errorx.PartialWrite,
					"The operation was applied partially, please contact the administrator")
			}
		}

		if secondErr == nil && secondModified == 1 {
			if _, err := d.friendshipRepo.DeleteEdge(ctx, req.UserID, userID); err != nil {
				xcontext.Logger(ctx).Errorf("CANNOT COMPENSATE the friend edge, reconcile manually: %v", err)
				return nil, errorx.New(errorx.PartialWrite,
					"The operation was applied partially, please contact the administrator")
			}
		}

		return nil, errorx.Unknown
	}

	d.invalidateRecommendations(ctx, userID, req.UserID)
	return &model.AcceptFriendRequestResponse{}, nil
}

func (d *friendshipDomain) Unfriend(
	ctx context.Context, req *model.UnfriendRequest,
) (*model.UnfriendResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	mySide := sideWrite{
		apply: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.DeleteEdge(ctx, userID, req.UserID)
		},
		compensate: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.CreateEdge(ctx, userID, req.UserID)
		},
	}

	otherSide := sideWrite{
		apply: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.DeleteEdge(ctx, req.UserID, userID)
		},
		compensate: func(ctx context.Context) (int64, error) {
			return d.friendshipRepo.CreateEdge(ctx, req.UserID, userID)
		},
	}

	if err := d.transition(ctx, mySide, otherSide); err != nil {
		if errors.Is(err, errNothingApplied) {
			return nil, errorx.New(errorx.NotFound, "You are not friends with this user")
		}

		return nil, err
	}

	d.invalidateRecommendations(ctx, userID, req.UserID)
	return &model.UnfriendResponse{}, nil
}

func (d *friendshipDomain) GetFriends(
	ctx context.Context, req *model.GetFriendsRequest,
) (*model.GetFriendsResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	friendIDs, err := d.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get friend ids: %v", err)
		return nil, errorx.Unknown
	}

	friends, err := d.userRepo.GetByIDs(ctx, friendIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get friends: %v", err)
		return nil, errorx.Unknown
	}

	clientFriends := []model.User{}
	for i := range friends {
		count, err := d.friendshipRepo.CountFriends(ctx, friends[i].ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count friends: %v", err)
			return nil, errorx.Unknown
		}

		clientFriends = append(clientFriends, model.ConvertUser(ctx, &friends[i], count, false))
	}

	return &model.GetFriendsResponse{Friends: clientFriends}, nil
}

func (d *friendshipDomain) GetRequests(
	ctx context.Context, req *model.GetFriendRequestsRequest,
) (*model.GetFriendRequestsResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	incoming, err := d.convertRequests(ctx, userID, entity.Incoming)
	if err != nil {
		return nil, err
	}

	outgoing, err := d.convertRequests(ctx, userID, entity.Outgoing)
	if err != nil {
		return nil, err
	}

	return &model.GetFriendRequestsResponse{Incoming: incoming, Outgoing: outgoing}, nil
}

func (d *friendshipDomain) convertRequests(
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

func (d *friendshipDomain) invalidateRecommendations(ctx context.Context, userIDs ...string) {
	if d.redisClient == nil {
		return
	}

	keys := []string{}
	for _, id := range userIDs {
		keys = append(keys, common.RedisKeyRecommendation(id))
	}

	if err := d.redisClient.Del(ctx, keys...); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate recommendation cache: %v", err)
	}
}
