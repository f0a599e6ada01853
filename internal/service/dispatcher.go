package service

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/mongo"
	"Herald/internal/pkg/security"
	"Herald/internal/pkg/ws"
	"context"
	log "log/slog"
	"time"

	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// Recipient 投递目标，只有以下三种实现
type Recipient interface {
	TargetID() string
	recipient()
}

// UserRecipient 推送并写入 notifications
type UserRecipient struct{ ID string }

// MemberRecipient 推送并写入 member_notifications
type MemberRecipient struct{ ID string }

// GroupRecipient 只推送，广播记录由群组广播流程写入
type GroupRecipient struct{ ID string }

func (r UserRecipient) TargetID() string   { return r.ID }
func (r MemberRecipient) TargetID() string { return r.ID }
func (r GroupRecipient) TargetID() string  { return r.ID }

func (UserRecipient) recipient()   {}
func (MemberRecipient) recipient() {}
func (GroupRecipient) recipient()  {}

const RoleGroup = "group"

// RecipientFor 将外部传入的 role 字符串解析为投递目标
func RecipientFor(role, id string) (Recipient, error) {
	switch role {
	case security.KindUser:
		return UserRecipient{ID: id}, nil
	case security.KindMember:
		return MemberRecipient{ID: id}, nil
	case RoleGroup:
		return GroupRecipient{ID: id}, nil
	default:
		return nil, ErrUnknownRole
	}
}

// HubProvider 获取进程内 Hub，生产环境为 ws.Default
type HubProvider func() (*ws.Hub, error)

type Dispatcher interface {
	Ready() error
	Dispatch(ctx context.Context, to Recipient, message string, data map[string]any) error
	EmitDirectMessage(ctx context.Context, push *dto.DirectMessagePush) error
}

type dispatcherImpl struct {
	hubs                HubProvider
	notifications       mongo.NotificationRepo
	memberNotifications mongo.NotificationRepo
	pool                *PersistPool
}

func NewDispatcher(hubs HubProvider, notifications, memberNotifications mongo.NotificationRepo, pool *PersistPool) Dispatcher {
	return &dispatcherImpl{
		hubs:                hubs,
		notifications:       notifications,
		memberNotifications: memberNotifications,
		pool:                pool,
	}
}

// Ready Hub 是否已初始化
func (s *dispatcherImpl) Ready() error {
	if _, err := s.hubs(); err != nil {
		return ErrDispatcherNotReady
	}
	return nil
}

// Dispatch 同步推送到 notification-<targetId> 房间，用户与成员通知异步落库
// Hub 未初始化时返回 ErrDispatcherNotReady
func (s *dispatcherImpl) Dispatch(ctx context.Context, to Recipient, message string, data map[string]any) error {
	if to == nil || to.TargetID() == "" || message == "" {
		return ErrTargetRequired
	}
	if data == nil {
		data = map[string]any{}
	}

	hub, err := s.hubs()
	if err != nil {
		return ErrDispatcherNotReady
	}

	room := consts.NotificationRoom(to.TargetID())
	push := &dto.NotificationPush{TargetID: to.TargetID(), Message: message, Data: data}
	delivered, err := hub.Emit(room, room, push)
	if err != nil {
		return err
	}

	switch r := to.(type) {
	case UserRecipient:
		s.persist(ctx, s.notifications, r.ID, message, data)
	case MemberRecipient:
		s.persist(ctx, s.memberNotifications, r.ID, message, data)
	case GroupRecipient:
		// 群组广播的记录由调用方写入 messages
	}

	log.InfoContext(ctx, "notification dispatched", "room", room, "delivered", delivered)
	return nil
}

// EmitDirectMessage 推送私信到接收方房间，事件名为 direct-message-<toUserId>
func (s *dispatcherImpl) EmitDirectMessage(ctx context.Context, push *dto.DirectMessagePush) error {
	hub, err := s.hubs()
	if err != nil {
		return ErrDispatcherNotReady
	}

	room := consts.NotificationRoom(push.ToUserID)
	delivered, err := hub.Emit(room, consts.DirectMessageEvent(push.ToUserID), push)
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "direct message emitted", "room", room, "delivered", delivered)
	return nil
}

func (s *dispatcherImpl) persist(ctx context.Context, repo mongo.NotificationRepo, targetID, message string, data map[string]any) {
	n := &mongo.Notification{
		TargetID:  targetID,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	s.pool.Submit(ctx, "notification:"+targetID, func(ctx context.Context) error {
		if err := repo.CreateNotification(ctx, n); err != nil && !mongoDB.IsDuplicateKeyError(err) {
			return err
		}
		return nil
	})
}
