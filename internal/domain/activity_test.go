package domain

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/internal/model"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/storage"
	"github.com/ecosteps/backend/pkg/testutil"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type formFile struct {
	field    string
	fileName string
	mime     string
	data     []byte
}

// multipartContext attaches a multipart POST request to the context, the way
// the router hands it to the domain.
func multipartContext(
	t *testing.T, ctx context.Context, values map[string][]string, files []formFile,
) context.Context {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for field, fieldValues := range values {
		for _, value := range fieldValues {
			require.NoError(t, writer.WriteField(field, value))
		}
	}

	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(
			`form-data; name="%s"; filename="%s"`, file.field, file.fileName))
		header.Set("Content-Type", file.mime)

		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return xcontext.WithHTTPRequest(ctx, req)
}

func newActivityDomain(fileStorage storage.Storage) *activityDomain {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	return NewActivityDomain(
		repository.NewActivityRepository(),
		repository.NewUserRepository(nil),
		repository.NewFriendshipRepository(),
		fileStorage,
		node,
	)
}

func Test_activityDomain_Create(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	createCtx := multipartContext(t, userCtx, map[string][]string{
		"type":  {"trash_picking"},
		"title": {"Beach cleanup"},
	}, nil)

	resp, err := domain.Create(createCtx, &model.CreateActivityRequest{})
	require.NoError(t, err)
	require.Equal(t, "trash_picking", resp.Activity.Type)
	require.Equal(t, uint64(150), resp.Activity.PointsGained)
	require.Equal(t, uint64(1), resp.Activity.Streak)
	require.Equal(t, user.Name, resp.Activity.UserName)

	updated, err := repository.NewUserRepository(nil).GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(150), updated.Points)
	require.Equal(t, uint64(1), updated.Streak)

	// A second activity inside the grace window grows the streak.
	createCtx = multipartContext(t, userCtx, map[string][]string{
		"type":  {"plant_tree"},
		"title": {"Oak in the garden"},
	}, nil)

	resp, err = domain.Create(createCtx, &model.CreateActivityRequest{})
	require.NoError(t, err)
	require.Equal(t, uint64(2), resp.Activity.Streak)

	updated, err = repository.NewUserRepository(nil).GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(350), updated.Points)
	require.Equal(t, uint64(2), updated.Streak)
}

func Test_activityDomain_Create_invalidInput(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	createCtx := multipartContext(t, userCtx, map[string][]string{
		"type":  {"fly_to_the_moon"},
		"title": {"A title"},
	}, nil)
	_, err = domain.Create(createCtx, &model.CreateActivityRequest{})
	require.Error(t, err)
	require.Equal(t, "Invalid activity type", err.Error())

	createCtx = multipartContext(t, userCtx, map[string][]string{
		"type": {"trash_picking"},
	}, nil)
	_, err = domain.Create(createCtx, &model.CreateActivityRequest{})
	require.Error(t, err)
	require.Equal(t, "Not allow an empty title", err.Error())
}

func Test_nextStreak(t *testing.T) {
	ctx := testutil.MockContext()
	now := time.Now()

	// No previous streak.
	require.Equal(t, uint64(1), nextStreak(ctx, &entity.User{}, now))

	// Inside the grace window.
	require.Equal(t, uint64(4), nextStreak(ctx, &entity.User{
		Streak:       3,
		LastStreakAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
	}, now))

	// Outside the grace window, the streak restarts.
	require.Equal(t, uint64(1), nextStreak(ctx, &entity.User{
		Streak:       3,
		LastStreakAt: sql.NullTime{Time: now.Add(-50 * time.Hour), Valid: true},
	}, now))
}

func Test_activityDomain_Create_rejectsImagesBeforeUpload(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	uploaded := false
	mockStorage := &testutil.MockStorage{
		BulkUploadFunc: func(
			ctx context.Context, objs []*storage.UploadObject,
		) ([]*storage.UploadResponse, error) {
			uploaded = true
			return nil, nil
		},
	}

	domain := newActivityDomain(mockStorage)
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	// An unsupported mime type is rejected without writing any blob, even
	// when valid images come first.
	createCtx := multipartContext(t, userCtx, map[string][]string{
		"type":  {"trash_picking"},
		"title": {"A title"},
	}, []formFile{
		{field: "images", fileName: "ok.jpg", mime: "image/jpeg", data: []byte("fake")},
		{field: "images", fileName: "evil.txt", mime: "text/plain", data: []byte("fake")},
	})
	_, err = domain.Create(createCtx, &model.CreateActivityRequest{})
	require.Error(t, err)
	require.Equal(t, "We just accept jpeg, gif or png", err.Error())
	require.False(t, uploaded)

	// Too many images are rejected the same way.
	files := []formFile{}
	for i := 0; i < 7; i++ {
		files = append(files, formFile{
			field:    "images",
			fileName: fmt.Sprintf("%d.jpg", i),
			mime:     "image/jpeg",
			data:     []byte("fake"),
		})
	}

	createCtx = multipartContext(t, userCtx, map[string][]string{
		"type":  {"trash_picking"},
		"title": {"A title"},
	}, files)
	_, err = domain.Create(createCtx, &model.CreateActivityRequest{})
	require.Error(t, err)
	require.Equal(t, "Not allow more than 6 images", err.Error())
	require.False(t, uploaded)
}

func Test_activityDomain_Get_permissions(t *testing.T) {
	ctx := testutil.MockContext()
	owner, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	friend, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	stranger, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakeFriends(ctx, owner.ID, friend.ID))
	activity, err := testutil.SampleActivity(ctx, owner.ID, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	id := strconv.FormatInt(activity.ID, 10)

	resp, err := domain.Get(
		xcontext.WithRequestUserID(ctx, owner.ID), &model.GetActivityRequest{ID: id})
	require.NoError(t, err)
	require.Equal(t, owner.Name, resp.Activity.UserName)

	_, err = domain.Get(
		xcontext.WithRequestUserID(ctx, friend.ID), &model.GetActivityRequest{ID: id})
	require.NoError(t, err)

	_, err = domain.Get(
		xcontext.WithRequestUserID(ctx, stranger.ID), &model.GetActivityRequest{ID: id})
	require.Error(t, err)
	require.Equal(t, "Only friends can view this activity", err.Error())
}

func Test_activityDomain_Update(t *testing.T) {
	ctx := testutil.MockContext()
	owner, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	activity, err := testutil.SampleActivity(ctx, owner.ID, &entity.Activity{
		Images: entity.Array[string]{"a.jpg", "b.jpg"},
	})
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	ownerCtx := xcontext.WithRequestUserID(ctx, owner.ID)
	id := strconv.FormatInt(activity.ID, 10)

	updateCtx := multipartContext(t, ownerCtx, map[string][]string{
		"id":             {id},
		"title":          {"New title"},
		"removed_images": {"a.jpg"},
	}, nil)

	resp, err := domain.Update(updateCtx, &model.UpdateActivityRequest{})
	require.NoError(t, err)
	require.Equal(t, "New title", resp.Activity.Title)

	reloaded, err := repository.NewActivityRepository().GetByID(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, entity.Array[string]{"b.jpg"}, reloaded.Images)

	// Removing an image of another activity is rejected.
	updateCtx = multipartContext(t, ownerCtx, map[string][]string{
		"id":             {id},
		"removed_images": {"zzz.jpg"},
	}, nil)
	_, err = domain.Update(updateCtx, &model.UpdateActivityRequest{})
	require.Error(t, err)
	require.Equal(t, "The image zzz.jpg does not belong to this activity", err.Error())

	// Only the owner can edit.
	other, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	updateCtx = multipartContext(t,
		xcontext.WithRequestUserID(ctx, other.ID),
		map[string][]string{"id": {id}, "title": {"Hijack"}}, nil)
	_, err = domain.Update(updateCtx, &model.UpdateActivityRequest{})
	require.Error(t, err)
	require.Equal(t, "Only the owner can edit an activity", err.Error())
}

func Test_activityDomain_Delete_refundsPoints(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Points: 200})
	require.NoError(t, err)
	activity, err := testutil.SampleActivity(ctx, user.ID, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	_, err = domain.Delete(userCtx, &model.DeleteActivityRequest{
		ID: strconv.FormatInt(activity.ID, 10),
	})
	require.NoError(t, err)

	updated, err := repository.NewUserRepository(nil).GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(50), updated.Points)

	_, err = repository.NewActivityRepository().GetByID(ctx, activity.ID)
	require.Error(t, err)
}

func Test_activityDomain_Delete_clampsAtZero(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Points: 50})
	require.NoError(t, err)
	activity, err := testutil.SampleActivity(ctx, user.ID, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)

	// The balance does not cover the refund, it is clamped instead of going
	// negative.
	_, err = domain.Delete(userCtx, &model.DeleteActivityRequest{
		ID: strconv.FormatInt(activity.ID, 10),
	})
	require.NoError(t, err)

	updated, err := repository.NewUserRepository(nil).GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), updated.Points)
}

func Test_activityDomain_Delete_notOwner(t *testing.T) {
	ctx := testutil.MockContext()
	owner, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	other, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	activity, err := testutil.SampleActivity(ctx, owner.ID, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	_, err = domain.Delete(
		xcontext.WithRequestUserID(ctx, other.ID),
		&model.DeleteActivityRequest{ID: strconv.FormatInt(activity.ID, 10)})
	require.Error(t, err)
	require.Equal(t, "Only the owner can delete an activity", err.Error())
}

func Test_activityDomain_GetFeed(t *testing.T) {
	ctx := testutil.MockContext()
	me, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	friend, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	stranger, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, testutil.MakeFriends(ctx, me.ID, friend.ID))

	mine, err := testutil.SampleActivity(ctx, me.ID, nil)
	require.NoError(t, err)
	theirs, err := testutil.SampleActivity(ctx, friend.ID, nil)
	require.NoError(t, err)
	_, err = testutil.SampleActivity(ctx, stranger.ID, nil)
	require.NoError(t, err)

	domain := newActivityDomain(&testutil.MockStorage{})
	meCtx := xcontext.WithRequestUserID(ctx, me.ID)

	resp, err := domain.GetFeed(meCtx, &model.GetFeedRequest{})
	require.NoError(t, err)

	// Newest first, only me and my friends.
	require.Len(t, resp.Activities, 2)
	require.Equal(t, strconv.FormatInt(theirs.ID, 10), resp.Activities[0].ID)
	require.Equal(t, friend.Name, resp.Activities[0].UserName)
	require.Equal(t, strconv.FormatInt(mine.ID, 10), resp.Activities[1].ID)

	_, err = domain.GetFeed(meCtx, &model.GetFeedRequest{Limit: 51})
	require.Error(t, err)
	require.Equal(t, "Exceeded the maximum of limit (50)", err.Error())
}

func Test_activityDomain_GetTypes(t *testing.T) {
	ctx := testutil.MockContext()
	domain := newActivityDomain(&testutil.MockStorage{})

	resp, err := domain.GetTypes(ctx, &model.GetActivityTypesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Types, 14)

	points := map[string]uint64{}
	for _, info := range resp.Types {
		points[info.Type] = info.Points
	}

	require.Equal(t, uint64(150), points["trash_picking"])
	require.Equal(t, uint64(200), points["plant_tree"])
	require.Equal(t, uint64(25), points["other"])
}
