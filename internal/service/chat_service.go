package service

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/mongo"
	"Herald/internal/pkg/util"
	"Herald/internal/repository"
	"context"
	log "log/slog"
	"time"

	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// ChatService 用户私信
type ChatService interface {
	SendDirectMessage(ctx context.Context, fromUserID, toUserID, text string) (*dto.DirectMessagePush, error)
	GetChatHistory(ctx context.Context, userID string, q *dto.ChatHistoryQuery) (*dto.ChatHistoryResp, error)
	GetContacts(ctx context.Context, userID string) ([]*dto.ContactDTO, error)
	GetUnreadCounts(ctx context.Context, userID string, contactIDs []string) (map[string]uint64, error)
}

type chatServiceImpl struct {
	store          MessageStore
	unread         UnreadCounter
	unreadRepo     repository.UnreadCountRepo
	dispatcher     Dispatcher
	pool           *PersistPool
	persistTimeout time.Duration
}

func NewChatService(
	store MessageStore,
	unread UnreadCounter,
	unreadRepo repository.UnreadCountRepo,
	dispatcher Dispatcher,
	pool *PersistPool,
	persistTimeout time.Duration,
) ChatService {
	if persistTimeout <= 0 {
		persistTimeout = 2 * time.Second
	}
	return &chatServiceImpl{
		store:          store,
		unread:         unread,
		unreadRepo:     unreadRepo,
		dispatcher:     dispatcher,
		pool:           pool,
		persistTimeout: persistTimeout,
	}
}

// SendDirectMessage 落库、推送、未读数加一
// 落库失败仍然推送，落库与计数转入工作池重试
func (s *chatServiceImpl) SendDirectMessage(ctx context.Context, fromUserID, toUserID, text string) (*dto.DirectMessagePush, error) {
	if fromUserID == "" || toUserID == "" || text == "" {
		return nil, ErrTargetRequired
	}
	if fromUserID == toUserID {
		return nil, ErrSelfMessage
	}
	if err := s.dispatcher.Ready(); err != nil {
		return nil, err
	}

	msg, err := s.store.SealDirectMessage(fromUserID, toUserID, text)
	if err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	saveErr := s.store.Save(writeCtx, msg)
	cancel()

	push := &dto.DirectMessagePush{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Message:    text,
		Timestamp:  msg.Timestamp,
		MessageID:  msg.ID.Hex(),
	}

	emitErr := s.dispatcher.EmitDirectMessage(ctx, push)

	if saveErr != nil {
		log.ErrorContext(ctx, "save direct message failed, retrying async",
			"message_id", push.MessageID, "err", saveErr)
		s.pool.Submit(ctx, "direct-message:"+push.MessageID, func(ctx context.Context) error {
			if err := s.store.Save(ctx, msg); err != nil && !mongoDB.IsDuplicateKeyError(err) {
				return err
			}
			return s.unread.Increment(ctx, toUserID, fromUserID)
		})
	} else if err = s.unread.Increment(ctx, toUserID, fromUserID); err != nil {
		log.ErrorContext(ctx, "increment unread count failed",
			"user_id", toUserID, "contact_id", fromUserID, "err", err)
	}

	if emitErr != nil {
		return nil, emitErr
	}
	return push, nil
}

// GetChatHistory 标记对方发来的消息已读，清零未读数，返回时间正序的一页
func (s *chatServiceImpl) GetChatHistory(ctx context.Context, userID string, q *dto.ChatHistoryQuery) (*dto.ChatHistoryResp, error) {
	if userID == "" || q == nil || q.UserID == "" {
		return nil, ErrParamInvalid
	}
	page, pageSize, offset := util.NormalizePage(q.Page, q.PageSize)

	if _, err := s.store.MarkRead(ctx, q.UserID, userID); err != nil {
		return nil, err
	}
	if err := s.unreadRepo.Reset(ctx, userID, q.UserID); err != nil {
		log.WarnContext(ctx, "reset unread count failed",
			"user_id", userID, "contact_id", q.UserID, "err", err)
	}

	items, total, err := s.store.FindConversation(ctx, mongo.ConversationQuery{
		UserA:  userID,
		UserB:  q.UserID,
		Since:  q.Since,
		Until:  q.Until,
		Limit:  int64(pageSize),
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	messages := make([]*dto.ChatMessageDTO, 0, len(items))
	for _, m := range items {
		d := &dto.ChatMessageDTO{
			ID:         m.ID.Hex(),
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Message:    displayText(m),
			Direction:  dto.DirectionReceived,
			IsRead:     m.IsRead != nil && *m.IsRead,
			Timestamp:  m.Timestamp,
		}
		if m.SenderID == userID {
			d.Direction = dto.DirectionSent
		}
		messages = append(messages, d)
	}

	return &dto.ChatHistoryResp{
		Messages: messages,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetContacts 私信联系人及未读数
func (s *chatServiceImpl) GetContacts(ctx context.Context, userID string) ([]*dto.ContactDTO, error) {
	ids, err := s.store.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.unread.GetMany(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ContactDTO, 0, len(ids))
	for _, id := range ids {
		res = append(res, &dto.ContactDTO{ContactID: id, UnreadCount: counts[id]})
	}
	return res, nil
}

func (s *chatServiceImpl) GetUnreadCounts(ctx context.Context, userID string, contactIDs []string) (map[string]uint64, error) {
	if len(contactIDs) == 0 {
		return nil, ErrParamInvalid
	}
	return s.unread.GetMany(ctx, userID, contactIDs)
}

// displayText 解密失败的消息展示为固定占位文本
func displayText(m *OpenedMessage) string {
	if m.Err != nil {
		return consts.UndecryptableText
	}
	return m.Text
}
