package model

import "time"

// UnreadCount 私信未读计数，(user_id, contact_id) 唯一
type UnreadCount struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_contact" json:"userId"`    // 接收者
	ContactID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_contact" json:"contactId"` // 发送者
	Count     uint64    `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UnreadCount) TableName() string { return "unread_counts" }
