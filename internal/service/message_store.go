package service

import (
	"Herald/internal/pkg/codec"
	"Herald/internal/pkg/mongo"
	"context"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OpenedMessage 读取后的消息，解密失败时 Err 非空、Text 为空
type OpenedMessage struct {
	*mongo.Message
	Text string
	Err  error
}

type MessageStore interface {
	SealDirectMessage(senderID, receiverID, plaintext string) (*mongo.Message, error)
	SealBroadcastMessage(senderID, groupID, groupName, plaintext string, scheduledAt *time.Time) (*mongo.Message, error)
	Save(ctx context.Context, msg *mongo.Message) error

	CreateDirectMessage(ctx context.Context, senderID, receiverID, plaintext string) (*mongo.Message, error)
	CreateBroadcastMessage(ctx context.Context, senderID, groupID, groupName, plaintext string, scheduledAt *time.Time) (*mongo.Message, error)
	FindConversation(ctx context.Context, q mongo.ConversationQuery) ([]*OpenedMessage, int64, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)

	ListBroadcasts(ctx context.Context, q mongo.BroadcastQuery) ([]*OpenedMessage, error)
	FindDueBroadcasts(ctx context.Context, now time.Time, limit int64) ([]*OpenedMessage, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) error
	ListContacts(ctx context.Context, userID string) ([]string, error)

	Open(msg *mongo.Message) *OpenedMessage
}

type messageStoreImpl struct {
	repo  mongo.MessageRepo
	codec *codec.Codec
	now   func() time.Time
}

func NewMessageStore(repo mongo.MessageRepo, c *codec.Codec) MessageStore {
	return &messageStoreImpl{repo: repo, codec: c, now: time.Now}
}

// SealDirectMessage 加密并构造私信，预先分配 ID 与时间戳，不落库
func (s *messageStoreImpl) SealDirectMessage(senderID, receiverID, plaintext string) (*mongo.Message, error) {
	if senderID == "" || receiverID == "" || plaintext == "" {
		return nil, ErrParamInvalid
	}
	ciphertext, iv, err := s.codec.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	unread := false
	return &mongo.Message{
		ID:          primitive.NewObjectID(),
		MessageType: mongo.MessageTypeUser,
		SenderID:    senderID,
		SenderModel: mongo.SenderModelUser,
		ReceiverID:  receiverID,
		Ciphertext:  ciphertext,
		IV:          iv,
		IsRead:      &unread,
		IsSent:      true,
		Timestamp:   s.now(),
	}, nil
}

// SealBroadcastMessage 加密并构造群组广播，scheduledAt 在未来时 isSent=false
func (s *messageStoreImpl) SealBroadcastMessage(senderID, groupID, groupName, plaintext string, scheduledAt *time.Time) (*mongo.Message, error) {
	if senderID == "" || groupID == "" || groupName == "" || plaintext == "" {
		return nil, ErrParamInvalid
	}
	ciphertext, iv, err := s.codec.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &mongo.Message{
		ID:            primitive.NewObjectID(),
		MessageType:   mongo.MessageTypeAdmin,
		SenderID:      senderID,
		SenderModel:   mongo.SenderModelAdmin,
		GroupID:       groupID,
		GroupName:     groupName,
		Ciphertext:    ciphertext,
		IV:            iv,
		ScheduledTime: scheduledAt,
		IsSent:        scheduledAt == nil || !scheduledAt.After(now),
		Timestamp:     now,
	}, nil
}

func (s *messageStoreImpl) Save(ctx context.Context, msg *mongo.Message) error {
	return s.repo.SaveMessage(ctx, msg)
}

// CreateDirectMessage 加密后写入私信
func (s *messageStoreImpl) CreateDirectMessage(ctx context.Context, senderID, receiverID, plaintext string) (*mongo.Message, error) {
	msg, err := s.SealDirectMessage(senderID, receiverID, plaintext)
	if err != nil {
		return nil, err
	}
	if err = s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateBroadcastMessage 加密后写入群组广播
func (s *messageStoreImpl) CreateBroadcastMessage(ctx context.Context, senderID, groupID, groupName, plaintext string, scheduledAt *time.Time) (*mongo.Message, error) {
	msg, err := s.SealBroadcastMessage(senderID, groupID, groupName, plaintext, scheduledAt)
	if err != nil {
		return nil, err
	}
	if err = s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// FindConversation 会话历史，时间正序，逐条解密
func (s *messageStoreImpl) FindConversation(ctx context.Context, q mongo.ConversationQuery) ([]*OpenedMessage, int64, error) {
	list, total, err := s.repo.FindConversation(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return s.openAll(ctx, list), total, nil
}

func (s *messageStoreImpl) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	return s.repo.MarkConversationRead(ctx, senderID, receiverID)
}

// ListBroadcasts 群组广播，时间倒序
func (s *messageStoreImpl) ListBroadcasts(ctx context.Context, q mongo.BroadcastQuery) ([]*OpenedMessage, error) {
	list, err := s.repo.FindBroadcasts(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.openAll(ctx, list), nil
}

func (s *messageStoreImpl) FindDueBroadcasts(ctx context.Context, now time.Time, limit int64) ([]*OpenedMessage, error) {
	list, err := s.repo.FindDueBroadcasts(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	return s.openAll(ctx, list), nil
}

func (s *messageStoreImpl) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.MarkSent(ctx, id)
}

func (s *messageStoreImpl) ListContacts(ctx context.Context, userID string) ([]string, error) {
	return s.repo.FindContactIDs(ctx, userID)
}

// Open 解密单条消息
func (s *messageStoreImpl) Open(msg *mongo.Message) *OpenedMessage {
	text, err := s.codec.Decrypt(msg.Ciphertext, msg.IV)
	if err != nil {
		return &OpenedMessage{Message: msg, Err: err}
	}
	return &OpenedMessage{Message: msg, Text: text}
}

func (s *messageStoreImpl) openAll(ctx context.Context, list []*mongo.Message) []*OpenedMessage {
	res := make([]*OpenedMessage, 0, len(list))
	for _, m := range list {
		opened := s.Open(m)
		if opened.Err != nil {
			log.WarnContext(ctx, "message decrypt failed", "message_id", m.ID.Hex(), "err", opened.Err)
		}
		res = append(res, opened)
	}
	return res
}
