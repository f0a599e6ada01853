package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotificationList(ctx context.Context, targetID string, limit, offset int64) ([]*Notification, int64, error)
	EnsureIndexes(ctx context.Context) error
}

type notificationRepoImpl struct {
	col *mongo.Collection
}

// NewNotificationRepo 用户通知
func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	return &notificationRepoImpl{col: db.Collection(NotificationCollection)}
}

// NewMemberNotificationRepo 成员通知
func NewMemberNotificationRepo(db *mongo.Database) NotificationRepo {
	return &notificationRepoImpl{col: db.Collection(MemberNotificationCollection)}
}

// CreateNotification 插入新通知
func (s *notificationRepoImpl) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, n)
	return err
}

// GetNotificationList 分页获取通知列表 (按时间倒序)
func (s *notificationRepoImpl) GetNotificationList(ctx context.Context, targetID string, limit, offset int64) ([]*Notification, int64, error) {
	filter := bson.M{"userId": targetID}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*Notification
	if err = cursor.All(ctx, &list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *notificationRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}
