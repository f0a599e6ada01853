package dto

import "time"

// NotifyGroupReq 群组广播，scheduledAt 为未来时间时延迟发送
type NotifyGroupReq struct {
	Message     string     `json:"message" binding:"required"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

type NotifyGroupResp struct {
	GroupID         string `json:"groupId"`
	MessageID       string `json:"messageId"`
	Scheduled       bool   `json:"scheduled"`
	MembersNotified int    `json:"membersNotified"`
}

type NotifyAllGroupsResp struct {
	Groups          int      `json:"groups"`
	Scheduled       bool     `json:"scheduled"`
	MembersNotified int      `json:"membersNotified"`
	FailedGroups    []string `json:"failedGroups,omitempty"`
}

// BroadcastDTO 一条群组广播
type BroadcastDTO struct {
	ID            string     `json:"id"`
	GroupID       string     `json:"groupId"`
	GroupName     string     `json:"groupName"`
	SenderID      string     `json:"senderId"`
	Message       string     `json:"message"`
	IsSent        bool       `json:"isSent"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// GroupBroadcastsDTO 按群组聚合的广播，最新的在前
type GroupBroadcastsDTO struct {
	GroupID   string          `json:"groupId"`
	GroupName string          `json:"groupName"`
	Total     int             `json:"total"`
	Messages  []*BroadcastDTO `json:"messages"`
}

type MyGroupMessagesQuery struct {
	GroupID string `form:"groupId"`
}
