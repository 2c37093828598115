package repository_test

import (
	"testing"
	"time"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_friendshipRepository_requestSideSetSemantics(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	repo := repository.NewFriendshipRepository()
	sentAt := time.Now()

	// The first insert applies, the duplicate is a no-op.
	modified, err := repo.CreateRequestSide(ctx, user1.ID, user2.ID, entity.Outgoing, sentAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), modified)

	modified, err = repo.CreateRequestSide(ctx, user1.ID, user2.ID, entity.Outgoing, sentAt)
	require.NoError(t, err)
	require.Equal(t, int64(0), modified)

	// Same pair on the other side is a different row.
	modified, err = repo.CreateRequestSide(ctx, user2.ID, user1.ID, entity.Incoming, sentAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), modified)

	modified, err = repo.DeleteRequestSide(ctx, user1.ID, user2.ID, entity.Outgoing)
	require.NoError(t, err)
	require.Equal(t, int64(1), modified)

	modified, err = repo.DeleteRequestSide(ctx, user1.ID, user2.ID, entity.Outgoing)
	require.NoError(t, err)
	require.Equal(t, int64(0), modified)
}

func Test_friendshipRepository_edgeSetSemantics(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	repo := repository.NewFriendshipRepository()

	modified, err := repo.CreateEdge(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), modified)

	modified, err = repo.CreateEdge(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), modified)

	// Edges are directional, each side is its own row.
	isFriend, err := repo.IsFriend(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	require.True(t, isFriend)

	isFriend, err = repo.IsFriend(ctx, user2.ID, user1.ID)
	require.NoError(t, err)
	require.False(t, isFriend)

	modified, err = repo.DeleteEdge(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), modified)

	modified, err = repo.DeleteEdge(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), modified)
}

func Test_friendshipRepository_GetEdgesOfUsers(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user3, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakeFriends(ctx, user1.ID, user3.ID))
	require.NoError(t, testutil.MakeFriends(ctx, user2.ID, user3.ID))

	repo := repository.NewFriendshipRepository()
	edges, err := repo.GetEdgesOfUsers(ctx, []string{user1.ID, user2.ID})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	require.Equal(t, user3.ID, edges[0].FriendID)
	require.Equal(t, user3.ID, edges[1].FriendID)

	edges, err = repo.GetEdgesOfUsers(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func Test_friendshipRepository_GetFriendIDs(t *testing.T) {
	ctx := testutil.MockContext()
	user1, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user2, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	user3, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakeFriends(ctx, user1.ID, user2.ID))
	require.NoError(t, testutil.MakeFriends(ctx, user1.ID, user3.ID))

	repo := repository.NewFriendshipRepository()
	ids, err := repo.GetFriendIDs(ctx, user1.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{user2.ID, user3.ID}, ids)

	count, err := repo.CountFriends(ctx, user1.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
