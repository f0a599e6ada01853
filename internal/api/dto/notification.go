package dto

import "time"

// NotifyUserReq 管理员向用户推送通知
type NotifyUserReq struct {
	UserID  string         `json:"userId" binding:"required"`
	Message string         `json:"message" binding:"required"`
	Data    map[string]any `json:"data"`
}

// NotifyMemberReq 管理员向成员推送通知
type NotifyMemberReq struct {
	MemberID string         `json:"memberId" binding:"required"`
	Message  string         `json:"message" binding:"required"`
	Data     map[string]any `json:"data"`
}

// NotifyRequest Kafka 投递请求
type NotifyRequest struct {
	TargetID string         `json:"targetId" validate:"required"`
	Message  string         `json:"message" validate:"required"`
	Data     map[string]any `json:"data"`
	Role     string         `json:"role" validate:"required,oneof=user member group"`
}

// NotificationPush 推送给 notification-<targetId> 房间的载荷
type NotificationPush struct {
	TargetID string         `json:"targetId"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data"`
}

type NotificationDTO struct {
	ID        string         `json:"id"`
	TargetID  string         `json:"targetId"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
}

type NotificationListResp struct {
	Items    []*NotificationDTO `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}
