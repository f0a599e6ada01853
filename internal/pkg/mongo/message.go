package mongo

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTypeUser  = "user"  // 用户私信
	MessageTypeAdmin = "admin" // 管理员群组广播

	SenderModelUser  = "User"
	SenderModelAdmin = "Admin"
)

var ErrInvalidMessage = errors.New("invalid message record")

// Message 消息模型，正文只以密文形式存储
type Message struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageType   string             `bson:"messageType" json:"messageType"`
	SenderID      string             `bson:"senderId" json:"senderId"`
	SenderModel   string             `bson:"senderModel" json:"senderModel"`
	ReceiverID    string             `bson:"receiverId,omitempty" json:"receiverId,omitempty"` // 仅私信
	GroupID       string             `bson:"groupId,omitempty" json:"groupId,omitempty"`       // 仅广播
	GroupName     string             `bson:"groupName,omitempty" json:"groupName,omitempty"`   // 仅广播
	Ciphertext    string             `bson:"message" json:"-"`                                 // 十六进制密文
	IV            string             `bson:"iv" json:"-"`                                      // 十六进制 IV
	IsRead        *bool              `bson:"isRead,omitempty" json:"isRead,omitempty"`         // 仅私信
	ScheduledTime *time.Time         `bson:"scheduledTime,omitempty" json:"scheduledTime,omitempty"`
	IsSent        bool               `bson:"isSent" json:"isSent"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}

// IsDirect 是否为用户私信
func (m *Message) IsDirect() bool {
	return m.MessageType == MessageTypeUser
}

// Validate 校验落库前的字段约束
// 密文与 IV 必须同时存在；私信只带 receiverId，广播只带 groupId 与 groupName
func (m *Message) Validate() error {
	if m.SenderID == "" || m.Ciphertext == "" || m.IV == "" {
		return ErrInvalidMessage
	}
	switch m.MessageType {
	case MessageTypeUser:
		if m.ReceiverID == "" || m.GroupID != "" || m.GroupName != "" || m.IsRead == nil {
			return ErrInvalidMessage
		}
	case MessageTypeAdmin:
		if m.ReceiverID != "" || m.GroupID == "" || m.GroupName == "" || m.IsRead != nil {
			return ErrInvalidMessage
		}
	default:
		return ErrInvalidMessage
	}
	return nil
}
