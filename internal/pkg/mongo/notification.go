package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification 用户 / 成员通知，正文为明文
// 两类通知结构一致，分别存放于 notifications 与 member_notifications
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TargetID  string             `bson:"userId" json:"targetId"`
	Message   string             `bson:"message" json:"message"`
	Data      map[string]any     `bson:"data,omitempty" json:"data"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
