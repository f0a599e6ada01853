package consts

const (
	NotificationRoomPrefix = "notification-"
	DirectMessagePrefix    = "direct-message-"
)

// 客户端上行事件
const (
	EventSendUserMessage      = "send-user-message"
	EventSendUserMessageError = "send-user-message-error"
)

// 鉴权中间件写入 gin.Context 的键
const (
	CtxUserID    = "user_id"
	CtxPrincipal = "principal"
)

const (
	// UndecryptableText 解密失败时替换消息正文的占位文本
	UndecryptableText = "[unable to decrypt message]"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaxPage 更大的页码按此处理，offset 不会溢出
const MaxPage = 100000

// NotificationRoom 目标身份对应的房间名，同时也是推送事件名
func NotificationRoom(id string) string {
	return NotificationRoomPrefix + id
}

// DirectMessageEvent 单聊推送事件名
func DirectMessageEvent(toUserID string) string {
	return DirectMessagePrefix + toUserID
}
