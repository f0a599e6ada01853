package mongo

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationQuery 两个用户之间的私信查询条件
type ConversationQuery struct {
	UserA  string
	UserB  string
	Since  *time.Time
	Until  *time.Time
	Limit  int64
	Offset int64
}

// BroadcastQuery 群组广播查询条件，零值字段不参与过滤
type BroadcastQuery struct {
	SenderID string
	GroupIDs []string
	OnlySent bool
	Limit    int64
	Offset   int64
}

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	FindConversation(ctx context.Context, q ConversationQuery) ([]*Message, int64, error)
	MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error)
	FindBroadcasts(ctx context.Context, q BroadcastQuery) ([]*Message, error)
	FindDueBroadcasts(ctx context.Context, now time.Time, limit int64) ([]*Message, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) error
	FindContactIDs(ctx context.Context, userID string) ([]string, error)
	EnsureIndexes(ctx context.Context) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection(MessageCollection),
	}
}

// SaveMessage 将消息存入 MongoDB
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// FindConversation 查询两个用户之间的私信，按时间正序
func (s *messageRepoImpl) FindConversation(ctx context.Context, q ConversationQuery) ([]*Message, int64, error) {
	filter := bson.M{
		"messageType": MessageTypeUser,
		"$or": bson.A{
			bson.M{"senderId": q.UserA, "receiverId": q.UserB},
			bson.M{"senderId": q.UserB, "receiverId": q.UserA},
		},
	}
	if rng := timeRange(q.Since, q.Until); rng != nil {
		filter["timestamp"] = rng
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	// _id 作为同一时间戳下的次序
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(q.Offset)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	list, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// MarkConversationRead 将 sender 发给 receiver 的未读私信标记为已读
func (s *messageRepoImpl) MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	filter := bson.M{
		"messageType": MessageTypeUser,
		"senderId":    senderID,
		"receiverId":  receiverID,
		"isRead":      false,
	}
	update := bson.M{"$set": bson.M{"isRead": true}}
	result, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// FindBroadcasts 群组广播列表，按时间倒序
func (s *messageRepoImpl) FindBroadcasts(ctx context.Context, q BroadcastQuery) ([]*Message, error) {
	filter := bson.M{"messageType": MessageTypeAdmin}
	if q.SenderID != "" {
		filter["senderId"] = q.SenderID
	}
	if q.GroupIDs != nil {
		filter["groupId"] = bson.M{"$in": q.GroupIDs}
	}
	if q.OnlySent {
		filter["isSent"] = true
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(q.Offset)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return s.find(ctx, filter, opts)
}

// FindDueBroadcasts 到期未发送的定时广播，最早的优先
func (s *messageRepoImpl) FindDueBroadcasts(ctx context.Context, now time.Time, limit int64) ([]*Message, error) {
	filter := bson.M{
		"messageType":   MessageTypeAdmin,
		"isSent":        false,
		"scheduledTime": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledTime", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, filter, opts)
}

// MarkSent 标记广播已发送，已发送的记录返回 mongo.ErrNoDocuments
func (s *messageRepoImpl) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "isSent": false}
	update := bson.M{"$set": bson.M{"isSent": true}}
	result, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindContactIDs 与该用户有过私信往来的全部用户
func (s *messageRepoImpl) FindContactIDs(ctx context.Context, userID string) ([]string, error) {
	received, err := s.col.Distinct(ctx, "senderId", bson.M{"messageType": MessageTypeUser, "receiverId": userID})
	if err != nil {
		return nil, err
	}
	sent, err := s.col.Distinct(ctx, "receiverId", bson.M{"messageType": MessageTypeUser, "senderId": userID})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(received)+len(sent))
	ids := make([]string, 0, len(received)+len(sent))
	for _, v := range append(received, sent...) {
		id, ok := v.(string)
		if !ok || id == "" || id == userID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// EnsureIndexes 创建查询所需索引
func (s *messageRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "isSent", Value: 1}, {Key: "scheduledTime", Value: 1}}},
	})
	return err
}

func (s *messageRepoImpl) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Message, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*Message
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func timeRange(since, until *time.Time) bson.M {
	if since == nil && until == nil {
		return nil
	}
	rng := bson.M{}
	if since != nil {
		rng["$gte"] = *since
	}
	if until != nil {
		rng["$lte"] = *until
	}
	return rng
}
