// Package testkit 仓储接口的内存实现，供服务层与网关测试使用
package testkit

import (
	"Herald/internal/model"
	"Herald/internal/pkg/mongo"
	"Herald/internal/repository"
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

var (
	_ mongo.MessageRepo          = (*MessageRepo)(nil)
	_ mongo.NotificationRepo     = (*NotificationRepo)(nil)
	_ repository.UnreadCountRepo = (*UnreadRepo)(nil)
	_ repository.GroupRepo       = (*GroupRepo)(nil)
)

type MessageRepo struct {
	mu        sync.Mutex
	messages  []*mongo.Message
	FailSaves int // 前 FailSaves 次写入返回错误
}

func (r *MessageRepo) SaveMessage(_ context.Context, msg *mongo.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSaves > 0 {
		r.FailSaves--
		return errors.New("mongo unavailable")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	for _, m := range r.messages {
		if m.ID == msg.ID {
			return mongoDB.WriteException{WriteErrors: mongoDB.WriteErrors{{Code: 11000}}}
		}
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *MessageRepo) FindConversation(_ context.Context, q mongo.ConversationQuery) ([]*mongo.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*mongo.Message
	for _, m := range r.messages {
		if !m.IsDirect() {
			continue
		}
		if (m.SenderID == q.UserA && m.ReceiverID == q.UserB) || (m.SenderID == q.UserB && m.ReceiverID == q.UserA) {
			list = append(list, m)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	total := int64(len(list))
	if q.Offset >= total {
		return nil, total, nil
	}
	list = list[q.Offset:]
	if q.Limit > 0 && int64(len(list)) > q.Limit {
		list = list[:q.Limit]
	}
	return list, total, nil
}

func (r *MessageRepo) MarkConversationRead(_ context.Context, senderID, receiverID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.IsDirect() && m.SenderID == senderID && m.ReceiverID == receiverID && m.IsRead != nil && !*m.IsRead {
			read := true
			m.IsRead = &read
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) FindBroadcasts(_ context.Context, q mongo.BroadcastQuery) ([]*mongo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*mongo.Message
	for _, m := range r.messages {
		if m.IsDirect() {
			continue
		}
		if q.SenderID != "" && m.SenderID != q.SenderID {
			continue
		}
		if q.GroupIDs != nil && !slices.Contains(q.GroupIDs, m.GroupID) {
			continue
		}
		if q.OnlySent && !m.IsSent {
			continue
		}
		list = append(list, m)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.After(list[j].Timestamp) })
	return list, nil
}

func (r *MessageRepo) FindDueBroadcasts(_ context.Context, now time.Time, limit int64) ([]*mongo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*mongo.Message
	for _, m := range r.messages {
		if !m.IsDirect() && !m.IsSent && m.ScheduledTime != nil && !m.ScheduledTime.After(now) {
			list = append(list, m)
		}
	}
	if limit > 0 && int64(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *MessageRepo) MarkSent(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id && !m.IsSent {
			m.IsSent = true
			return nil
		}
	}
	return mongoDB.ErrNoDocuments
}

func (r *MessageRepo) FindContactIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	var ids []string
	for _, m := range r.messages {
		if !m.IsDirect() {
			continue
		}
		var other string
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			ids = append(ids, other)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MessageRepo) EnsureIndexes(context.Context) error { return nil }

// Put 直接写入一条记录，跳过校验
func (r *MessageRepo) Put(msg *mongo.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *MessageRepo) All() []*mongo.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

type NotificationRepo struct {
	mu    sync.Mutex
	items []*mongo.Notification
	Fails int // 前 Fails 次写入返回错误
}

func (r *NotificationRepo) CreateNotification(_ context.Context, n *mongo.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fails > 0 {
		r.Fails--
		return mongoDB.ErrClientDisconnected
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.items = append(r.items, n)
	return nil
}

func (r *NotificationRepo) GetNotificationList(_ context.Context, targetID string, limit, offset int64) ([]*mongo.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*mongo.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].TargetID == targetID {
			list = append(list, r.items[i])
		}
	}
	total := int64(len(list))
	if offset >= total {
		return nil, total, nil
	}
	list = list[offset:]
	if limit > 0 && int64(len(list)) > limit {
		list = list[:limit]
	}
	return list, total, nil
}

func (r *NotificationRepo) EnsureIndexes(context.Context) error { return nil }

func (r *NotificationRepo) All() []*mongo.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

type UnreadRepo struct {
	mu     sync.Mutex
	counts map[[2]string]uint64
}

func NewUnreadRepo() *UnreadRepo {
	return &UnreadRepo{counts: map[[2]string]uint64{}}
}

func (r *UnreadRepo) Increment(_ context.Context, userID, contactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[[2]string{userID, contactID}]++
	return nil
}

func (r *UnreadRepo) GetMany(_ context.Context, userID string, contactIDs []string) (map[string]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make(map[string]uint64, len(contactIDs))
	for _, id := range contactIDs {
		res[id] = r.counts[[2]string{userID, id}]
	}
	return res, nil
}

func (r *UnreadRepo) Reset(_ context.Context, userID, contactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, [2]string{userID, contactID})
	return nil
}

func (r *UnreadRepo) Get(userID, contactID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[[2]string{userID, contactID}]
}

type GroupRepo struct {
	Groups     map[string]*model.Group
	Members    map[string][]string
	MemberErrs map[string]error
}

func (r *GroupRepo) GetGroupByID(_ context.Context, groupID string) (*model.Group, error) {
	return r.Groups[groupID], nil
}

func (r *GroupRepo) ListGroupsByOwner(_ context.Context, ownerID string) ([]*model.Group, error) {
	var res []*model.Group
	for _, g := range r.Groups {
		if g.OwnerID == ownerID {
			res = append(res, g)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *GroupRepo) ListMemberIDs(_ context.Context, groupID string) ([]string, error) {
	if err := r.MemberErrs[groupID]; err != nil {
		return nil, err
	}
	return r.Members[groupID], nil
}

func (r *GroupRepo) ListGroupIDsForUser(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for gid, members := range r.Members {
		if slices.Contains(members, userID) {
			ids = append(ids, gid)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
