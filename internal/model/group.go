package model

import "time"

// Group 群组，由群组服务维护，此处只读
type Group struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	GroupName string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"groupName"`
	MaxUsers  int       `gorm:"not null" json:"maxUsers"`
	OwnerID   string    `gorm:"type:varchar(64);index;not null" json:"ownerId"` // 创建群组的管理员
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Group) TableName() string { return "groups" }

// GroupMember 群组成员
type GroupMember struct {
	GroupID  string    `gorm:"primaryKey;type:varchar(64)" json:"groupId"`
	UserID   string    `gorm:"primaryKey;type:varchar(64);index" json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (GroupMember) TableName() string { return "group_members" }
