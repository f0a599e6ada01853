package repository

import (
	"Herald/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnreadCountRepo interface {
	Increment(ctx context.Context, userID, contactID string) error
	GetMany(ctx context.Context, userID string, contactIDs []string) (map[string]uint64, error)
	Reset(ctx context.Context, userID, contactID string) error
}

type unreadCountRepoImpl struct {
	db *gorm.DB
}

func NewUnreadCountRepo(db *gorm.DB) UnreadCountRepo {
	return &unreadCountRepoImpl{db: db}
}

// Increment 计数加一，不存在时插入 count=1
// 单条 upsert 语句完成，并发下不丢计数
func (s *unreadCountRepoImpl) Increment(ctx context.Context, userID, contactID string) error {
	now := time.Now()
	row := &model.UnreadCount{
		UserID:    userID,
		ContactID: contactID,
		Count:     1,
		UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "contact_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "count"}, Value: gorm.Expr("`count` + 1")},
			{Column: clause.Column{Name: "updated_at"}, Value: now},
		},
	}).Create(row).Error
}

// GetMany 批量查询未读数，没有记录的联系人返回 0
func (s *unreadCountRepoImpl) GetMany(ctx context.Context, userID string, contactIDs []string) (map[string]uint64, error) {
	result := make(map[string]uint64, len(contactIDs))
	if len(contactIDs) == 0 {
		return result, nil
	}
	for _, id := range contactIDs {
		result[id] = 0
	}

	var rows []*model.UnreadCount
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND contact_id IN ?", userID, contactIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.ContactID] = r.Count
	}
	return result, nil
}

// Reset 读取会话后清零
func (s *unreadCountRepoImpl) Reset(ctx context.Context, userID, contactID string) error {
	return s.db.WithContext(ctx).Model(&model.UnreadCount{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Updates(map[string]interface{}{
			"count":      0,
			"updated_at": time.Now(),
		}).Error
}
