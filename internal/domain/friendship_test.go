package domain

import (
	"testing"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/model"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/testutil"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_friendshipDomain_SendRequest(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	friendshipRepo := repository.NewFriendshipRepository()
	domain := NewFriendshipDomain(repository.NewUserRepository(nil), friendshipRepo, nil)

	ctx1 := xcontext.WithRequestUserID(ctx, user1.ID)
	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: user2.ID})
	require.NoError(t, err)

	// Both sides of the request must exist.
	_, err = friendshipRepo.GetRequest(ctx, user1.ID, user2.ID, entity.Outgoing)
	require.NoError(t, err)
	_, err = friendshipRepo.GetRequest(ctx, user2.ID, user1.ID, entity.Incoming)
	require.NoError(t, err)

	// Sending twice changes nothing and is rejected.
	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: user2.ID})
	require.Error(t, err)
	require.Equal(t, "You have already sent a friend request to this user", err.Error())
}

func Test_friendshipDomain_SendRequest_invalidTargets(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	domain := NewFriendshipDomain(
		repository.NewUserRepository(nil), repository.NewFriendshipRepository(), nil)
	ctx1 := xcontext.WithRequestUserID(ctx, user1.ID)

	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: user1.ID})
	require.Error(t, err)
	require.Equal(t, "Not allow sending a friend request to yourself", err.Error())

	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: "unknown-user"})
	require.Error(t, err)
	require.Equal(t, "Not found user", err.Error())

	require.NoError(t, testutil.MakeFriends(ctx, user1.ID, user2.ID))
	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: user2.ID})
	require.Error(t, err)
	require.Equal(t, "You are already friends with this user", err.Error())
}

func Test_friendshipDomain_SendRequest_reversePending(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakePendingRequest(ctx, user2.ID, user1.ID))

	domain := NewFriendshipDomain(
		repository.NewUserRepository(nil), repository.NewFriendshipRepository(), nil)

	ctx1 := xcontext.WithRequestUserID(ctx, user1.ID)
	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: user2.ID})
	require.Error(t, err)
	require.Equal(t, "This user has already sent you a friend request", err.Error())
}

func Test_friendshipDomain_AcceptRequest(t *testing.T) {
	ctx := testutil.MockContext()
	sender, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	receiver, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakePendingRequest(ctx, sender.ID, receiver.ID))

	friendshipRepo := repository.NewFriendshipRepository()
	domain := NewFriendshipDomain(repository.NewUserRepository(nil), friendshipRepo, nil)

	receiverCtx := xcontext.WithRequestUserID(ctx, receiver.ID)
	_, err = domain.AcceptRequest(receiverCtx, &model.AcceptFriendRequestRequest{UserID: sender.ID})
	require.NoError(t, err)

	// The friendship must be mutual and the pending request gone.
	isFriend, err := friendshipRepo.IsFriend(ctx, sender.ID, receiver.ID)
	require.NoError(t, err)
	require.True(t, isFriend)

	isFriend, err = friendshipRepo.IsFriend(ctx, receiver.ID, sender.ID)
	require.NoError(t, err)
	require.True(t, isFriend)

	outgoing, err := friendshipRepo.GetRequests(ctx, sender.ID, entity.Outgoing)
	require.NoError(t, err)
	require.Empty(t, outgoing)

	incoming, err := friendshipRepo.GetRequests(ctx, receiver.ID, entity.Incoming)
	require.NoError(t, err)
	require.Empty(t, incoming)
}

func Test_friendshipDomain_AcceptRequest_noPending(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	domain := NewFriendshipDomain(
		repository.NewUserRepository(nil), repository.NewFriendshipRepository(), nil)

	ctx2 := xcontext.WithRequestUserID(ctx, user2.ID)
	_, err = domain.AcceptRequest(ctx2, &model.AcceptFriendRequestRequest{UserID: user1.ID})
	require.Error(t, err)
	require.Equal(t, "Not found a friend request from this user", err.Error())
}

func Test_friendshipDomain_CancelRequest(t *testing.T) {
	ctx := testutil.MockContext()
	sender, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	receiver, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakePendingRequest(ctx, sender.ID, receiver.ID))

	friendshipRepo := repository.NewFriendshipRepository()
	domain := NewFriendshipDomain(repository.NewUserRepository(nil), friendshipRepo, nil)

	senderCtx := xcontext.WithRequestUserID(ctx, sender.ID)
	_, err = domain.CancelRequest(senderCtx, &model.CancelFriendRequestRequest{UserID: receiver.ID})
	require.NoError(t, err)

	incoming, err := friendshipRepo.GetRequests(ctx, receiver.ID, entity.Incoming)
	require.NoError(t, err)
	require.Empty(t, incoming)

	_, err = domain.CancelRequest(senderCtx, &model.CancelFriendRequestRequest{UserID: receiver.ID})
	require.Error(t, err)
	require.Equal(t, "Not found a friend request to this user", err.Error())
}

func Test_friendshipDomain_DeclineRequest(t *testing.T) {
	ctx := testutil.MockContext()
	sender, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	receiver, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakePendingRequest(ctx, sender.ID, receiver.ID))

	friendshipRepo := repository.NewFriendshipRepository()
	domain := NewFriendshipDomain(repository.NewUserRepository(nil), friendshipRepo, nil)

	receiverCtx := xcontext.WithRequestUserID(ctx, receiver.ID)
	_, err = domain.DeclineRequest(receiverCtx, &model.DeclineFriendRequestRequest{UserID: sender.ID})
	require.NoError(t, err)

	// Declining removes both sides, no friendship is created.
	outgoing, err := friendshipRepo.GetRequests(ctx, sender.ID, entity.Outgoing)
	require.NoError(t, err)
	require.Empty(t, outgoing)

	isFriend, err := friendshipRepo.IsFriend(ctx, sender.ID, receiver.ID)
	require.NoError(t, err)
	require.False(t, isFriend)
}

func Test_friendshipDomain_Unfriend(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakeFriends(ctx, user1.ID, user2.ID))

	friendshipRepo := repository.NewFriendshipRepository()
	domain := NewFriendshipDomain(repository.NewUserRepository(nil), friendshipRepo, nil)

	ctx1 := xcontext.WithRequestUserID(ctx, user1.ID)
	_, err = domain.Unfriend(ctx1, &model.UnfriendRequest{UserID: user2.ID})
	require.NoError(t, err)

	isFriend, err := friendshipRepo.IsFriend(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	require.False(t, isFriend)

	isFriend, err = friendshipRepo.IsFriend(ctx, user2.ID, user1.ID)
	require.NoError(t, err)
	require.False(t, isFriend)

	_, err = domain.Unfriend(ctx1, &model.UnfriendRequest{UserID: user2.ID})
	require.Error(t, err)
	require.Equal(t, "You are not friends with this user", err.Error())

	// A new friend request can be sent after unfriending.
	_, err = domain.SendRequest(ctx1, &model.SendFriendRequestRequest{UserID: user2.ID})
	require.NoError(t, err)
}

func Test_friendshipDomain_GetRequests(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user3, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakePendingRequest(ctx, user1.ID, user2.ID))
	require.NoError(t, testutil.MakePendingRequest(ctx, user3.ID, user1.ID))

	domain := NewFriendshipDomain(
		repository.NewUserRepository(nil), repository.NewFriendshipRepository(), nil)

	ctx1 := xcontext.WithRequestUserID(ctx, user1.ID)
	resp, err := domain.GetRequests(ctx1, &model.GetFriendRequestsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Incoming, 1)
	require.Equal(t, user3.ID, resp.Incoming[0].UserID)
	require.Equal(t, user3.Name, resp.Incoming[0].Name)
	require.Len(t, resp.Outgoing, 1)
	require.Equal(t, user2.ID, resp.Outgoing[0].UserID)
}

func Test_friendshipDomain_GetFriends(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakeFriends(ctx, user1.ID, user2.ID))

	domain := NewFriendshipDomain(
		repository.NewUserRepository(nil), repository.NewFriendshipRepository(), nil)

	ctx1 := xcontext.WithRequestUserID(ctx, user1.ID)
	resp, err := domain.GetFriends(ctx1, &model.GetFriendsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Friends, 1)
	require.Equal(t, user2.ID, resp.Friends[0].ID)
	require.Equal(t, user2.Name, resp.Friends[0].Name)
	require.Equal(t, int64(1), resp.Friends[0].FriendCount)
}
