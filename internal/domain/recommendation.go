package domain

import (
	"context"
	"sort"

	"github.com/ecosteps/backend/internal/common"
	"github.com/ecosteps/backend/internal/model"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/ecosteps/backend/pkg/xredis"
	"golang.org/x/exp/slices"
)

type RecommendationDomain interface {
	Get(context.Context, *model.GetRecommendationsRequest) (*model.GetRecommendationsResponse, error)
}

type recommendationDomain struct {
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
	redisClient    xredis.Client
}

func NewRecommendationDomain(
	userRepo repository.UserRepository,
	friendshipRepo repository.FriendshipRepository,
	redisClient xredis.Client,
) *recommendationDomain {
	return &recommendationDomain{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		redisClient:    redisClient,
	}
}

func (d *recommendationDomain) Get(
	ctx context.Context, req *model.GetRecommendationsRequest,
) (*model.GetRecommendationsResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	amount := req.Amount
	maxAmount := xcontext.Configs(ctx).Activity.MaxRecommendations
	if amount <= 0 || amount > maxAmount {
		amount = maxAmount
	}

	candidateIDs, err := d.rankedCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(candidateIDs) > amount {
		candidateIDs = candidateIDs[:amount]
	}

	candidates, err := d.userRepo.GetByIDs(ctx, candidateIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get candidate users: %v", err)
		return nil, errorx.Unknown
	}

	candidateMap := map[string]int{}
	for i := range candidates {
		candidateMap[candidates[i].ID] = i
	}

	users := []model.User{}
	for _, id := range candidateIDs {
		i, ok := candidateMap[id]
		if !ok {
			continue
		}

		count, err := d.friendshipRepo.CountFriends(ctx, id)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count friends: %v", err)
			return nil, errorx.Unknown
		}

		users = append(users, model.ConvertUser(ctx, &candidates[i], count, false))
	}

	return &model.GetRecommendationsResponse{Users: users}, nil
}

// rankedCandidates walks exactly two hops of the friend graph and ranks the
// friend-of-friend candidates by the number of mutual friends. Ties keep
// their first-seen order, which the second-hop query makes deterministic.
func (d *recommendationDomain) rankedCandidates(ctx context.Context, userID string) ([]string, error) {
	if d.redisClient != nil {
		var cached []string
		if err := d.redisClient.GetObj(ctx, common.RedisKeyRecommendation(userID), &cached); err == nil {
			return cached, nil
		}
	}

	friendIDs, err := d.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get friend ids: %v", err)
		return nil, errorx.Unknown
	}

	if len(friendIDs) == 0 {
		return nil, nil
	}

	secondHop, err := d.friendshipRepo.GetEdgesOfUsers(ctx, friendIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get edges of friends: %v", err)
		return nil, errorx.Unknown
	}

	tally := map[string]int{}
	firstSeen := []string{}
	for _, edge := range secondHop {
		candidateID := edge.FriendID
		if candidateID == userID || slices.Contains(friendIDs, candidateID) {
			continue
		}

		if _, ok := tally[candidateID]; !ok {
			firstSeen = append(firstSeen, candidateID)
		}

		tally[candidateID]++
	}

	// Stable sort keeps first-seen order between equal scores.
	ranked := append([]string{}, firstSeen...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return tally[ranked[i]] > tally[ranked[j]]
	})

	if d.redisClient != nil {
		ttl := xcontext.Configs(ctx).Redis.CacheExpiration.Duration
		err := d.redisClient.SetObj(ctx, common.RedisKeyRecommendation(userID), ranked, ttl)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot cache recommendations: %v", err)
		}
	}

	return ranked, nil
}
