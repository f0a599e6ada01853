package service

import (
	"Herald/internal/api/dto"
	"Herald/internal/model"
	"Herald/internal/pkg/mongo"
	"Herald/internal/pkg/ws"
	"Herald/internal/testkit"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type groupFixture struct {
	groups *testkit.GroupRepo
	repo   *testkit.MessageRepo
	users  *testkit.NotificationRepo
	pool   *PersistPool
	store  MessageStore
	svc    GroupNotifyService
}

func newGroupFixture(t *testing.T, hubs HubProvider) *groupFixture {
	t.Helper()
	groups := &testkit.GroupRepo{
		Groups: map[string]*model.Group{
			"g1": {ID: "g1", GroupName: "Group 1", OwnerID: "admin"},
			"g2": {ID: "g2", GroupName: "Group 2", OwnerID: "admin"},
			"g3": {ID: "g3", GroupName: "Other", OwnerID: "someone"},
		},
		Members: map[string][]string{
			"g1": {"u1", "u2"},
			"g2": {"u2"},
			"g3": {"u3"},
		},
	}
	f := &groupFixture{
		groups: groups,
		repo:   &testkit.MessageRepo{},
		users:  &testkit.NotificationRepo{},
		pool:   newTestPool(),
	}
	f.store = NewMessageStore(f.repo, newTestCodec(t))
	d := NewDispatcher(hubs, f.users, &testkit.NotificationRepo{}, f.pool)
	f.svc = NewGroupNotifyService(groups, f.store, d, f.pool)
	return f
}

func TestGroupNotify_Immediate(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	ctx := context.Background()

	resp, err := f.svc.NotifyGroup(ctx, "admin", "g1", &dto.NotifyGroupReq{Message: "maintenance tonight"})
	require.NoError(t, err)
	f.pool.Close()

	assert.False(t, resp.Scheduled)
	assert.Equal(t, 2, resp.MembersNotified)

	notified := map[string]bool{}
	for _, n := range f.users.All() {
		notified[n.TargetID] = true
		assert.Equal(t, "g1", n.Data["groupId"])
	}
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, notified)

	stored := f.repo.All()
	require.Len(t, stored, 1)
	assert.Equal(t, mongo.MessageTypeAdmin, stored[0].MessageType)
	assert.True(t, stored[0].IsSent)
	assert.Equal(t, resp.MessageID, stored[0].ID.Hex())
}

func TestGroupNotify_Rejects(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	defer f.pool.Close()
	ctx := context.Background()

	_, err := f.svc.NotifyGroup(ctx, "admin", "g3", &dto.NotifyGroupReq{Message: "x"})
	assert.ErrorIs(t, err, UnauthorizedError)

	_, err = f.svc.NotifyGroup(ctx, "admin", "missing", &dto.NotifyGroupReq{Message: "x"})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	_, err = f.svc.NotifyGroup(ctx, "admin", "g1", &dto.NotifyGroupReq{})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = f.svc.NotifyAllGroups(ctx, "nobody", &dto.NotifyGroupReq{Message: "x"})
	assert.ErrorIs(t, err, ErrNoGroups)
}

func TestGroupNotify_NotReady(t *testing.T) {
	f := newGroupFixture(t, missingHub)

	_, err := f.svc.NotifyGroup(context.Background(), "admin", "g1", &dto.NotifyGroupReq{Message: "x"})
	assert.ErrorIs(t, err, ErrDispatcherNotReady)
	f.pool.Close()
	assert.Empty(t, f.repo.All())
	assert.Empty(t, f.users.All())
}

func TestGroupNotify_AllGroups(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))

	resp, err := f.svc.NotifyAllGroups(context.Background(), "admin", &dto.NotifyGroupReq{Message: "hello all"})
	require.NoError(t, err)
	f.pool.Close()

	assert.Equal(t, 2, resp.Groups)
	assert.Equal(t, 3, resp.MembersNotified)
	assert.Len(t, f.repo.All(), 2)
	assert.Len(t, f.users.All(), 3)
}

func TestGroupNotify_AllGroupsPartialFailure(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	f.groups.MemberErrs = map[string]error{"g2": errors.New("db down")}

	resp, err := f.svc.NotifyAllGroups(context.Background(), "admin", &dto.NotifyGroupReq{Message: "hello all"})
	require.NoError(t, err)
	f.pool.Close()

	assert.Equal(t, 2, resp.Groups)
	assert.Equal(t, 2, resp.MembersNotified)
	assert.Equal(t, []string{"g2"}, resp.FailedGroups)
	stored := f.repo.All()
	require.Len(t, stored, 1)
	assert.Equal(t, "g1", stored[0].GroupID)
	assert.Len(t, f.users.All(), 2)
}

func TestGroupNotify_AllGroupsFailed(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	dbErr := errors.New("db down")
	f.groups.MemberErrs = map[string]error{"g1": dbErr, "g2": dbErr}

	_, err := f.svc.NotifyAllGroups(context.Background(), "admin", &dto.NotifyGroupReq{Message: "hello all"})
	assert.ErrorIs(t, err, dbErr)
	f.pool.Close()
	assert.Empty(t, f.repo.All())
}

func TestGroupNotify_ScheduledThenDelivered(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	resp, err := f.svc.NotifyGroup(ctx, "admin", "g1", &dto.NotifyGroupReq{Message: "later", ScheduledAt: &at})
	require.NoError(t, err)
	assert.True(t, resp.Scheduled)
	assert.Zero(t, resp.MembersNotified)

	stored := f.repo.All()
	require.Len(t, stored, 1)
	assert.False(t, stored[0].IsSent)

	// 未发送的广播不出现在成员的列表中
	mine, err := f.svc.GetMyGroupMessages(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, mine)

	due, err := f.store.FindDueBroadcasts(ctx, at.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.NoError(t, f.svc.DeliverDue(ctx, due[0]))
	// 已发送的广播不再重复推送
	require.NoError(t, f.svc.DeliverDue(ctx, due[0]))
	f.pool.Close()

	assert.True(t, f.repo.All()[0].IsSent)
	assert.Len(t, f.users.All(), 2)

	mine, err = f.svc.GetMyGroupMessages(ctx, "u1", "g1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "later", mine[0].Messages[0].Message)
}

func TestGroupNotify_PastScheduleSendsNow(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	at := time.Now().Add(-time.Minute)

	resp, err := f.svc.NotifyGroup(context.Background(), "admin", "g2", &dto.NotifyGroupReq{Message: "now", ScheduledAt: &at})
	require.NoError(t, err)
	f.pool.Close()

	assert.False(t, resp.Scheduled)
	assert.Equal(t, 1, resp.MembersNotified)
	assert.True(t, f.repo.All()[0].IsSent)
}

func TestGroupNotify_DeliverDueUndecryptable(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	at := time.Now().Add(-time.Minute)
	msg := &mongo.Message{
		ID:            primitive.NewObjectID(),
		MessageType:   mongo.MessageTypeAdmin,
		SenderID:      "admin",
		SenderModel:   mongo.SenderModelAdmin,
		GroupID:       "g1",
		GroupName:     "Group 1",
		Ciphertext:    "deadbeef",
		IV:            "00000000000000000000000000000000",
		ScheduledTime: &at,
		Timestamp:     at,
	}
	f.repo.Put(msg)

	require.NoError(t, f.svc.DeliverDue(context.Background(), f.store.Open(msg)))
	f.pool.Close()

	assert.True(t, msg.IsSent)
	assert.Empty(t, f.users.All())
}

func TestGroupNotify_Listings(t *testing.T) {
	f := newGroupFixture(t, readyHub(ws.NewHub()))
	ctx := context.Background()

	_, err := f.svc.NotifyGroup(ctx, "admin", "g1", &dto.NotifyGroupReq{Message: "first"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.NotifyGroup(ctx, "admin", "g2", &dto.NotifyGroupReq{Message: "second"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.NotifyGroup(ctx, "admin", "g1", &dto.NotifyGroupReq{Message: "third"})
	require.NoError(t, err)
	f.pool.Close()

	grouped, err := f.svc.GetGroupNotifications(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, "g1", grouped[0].GroupID)
	assert.Equal(t, 2, grouped[0].Total)
	assert.Equal(t, "third", grouped[0].Messages[0].Message)
	assert.Equal(t, "first", grouped[0].Messages[1].Message)
	assert.Equal(t, "g2", grouped[1].GroupID)

	mine, err := f.svc.GetMyGroupMessages(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Group 1", mine[0].GroupName)

	_, err = f.svc.GetMyGroupMessages(ctx, "u1", "g2")
	assert.ErrorIs(t, err, ErrNotGroupMember)
}
