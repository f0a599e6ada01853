package dto

import "time"

// SendUserMessageReq HTTP 发送私信请求体
type SendUserMessageReq struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// SocketSendMessage 客户端 send-user-message 事件
type SocketSendMessage struct {
	ToUserID string `json:"toUserId" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

// SocketError 上行事件处理失败时回给发送方
type SocketError struct {
	Error string `json:"error"`
}

// DirectMessagePush 推送给接收方的 direct-message-<toUserId> 事件
type DirectMessagePush struct {
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	MessageID  string    `json:"messageId"`
}

// ChatHistoryQuery 会话历史查询
type ChatHistoryQuery struct {
	UserID   string     `form:"userId" binding:"required"`
	Page     int        `form:"page"`
	PageSize int        `form:"pageSize"`
	Since    *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until    *time.Time `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
}

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// ChatMessageDTO 会话中的一条私信
type ChatMessageDTO struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Message    string    `json:"message"`
	Direction  string    `json:"direction"` // sent / received
	IsRead     bool      `json:"isRead"`
	Timestamp  time.Time `json:"timestamp"`
}

type ChatHistoryResp struct {
	Messages []*ChatMessageDTO `json:"messages"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// ContactDTO 联系人及未读数
type ContactDTO struct {
	ContactID   string `json:"contactId"`
	UnreadCount uint64 `json:"unreadCount"`
}

type UnreadQuery struct {
	ContactIDs string `form:"contactIds" binding:"required"` // 逗号分隔
}
