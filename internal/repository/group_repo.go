package repository

import (
	"Herald/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type GroupRepo interface {
	GetGroupByID(ctx context.Context, groupID string) (*model.Group, error)
	ListGroupsByOwner(ctx context.Context, ownerID string) ([]*model.Group, error)
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
	ListGroupIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type groupRepoImpl struct {
	db *gorm.DB
}

func NewGroupRepo(db *gorm.DB) GroupRepo {
	return &groupRepoImpl{db: db}
}

// GetGroupByID 群组不存在时返回 nil, nil
func (s *groupRepoImpl) GetGroupByID(ctx context.Context, groupID string) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// ListGroupsByOwner 管理员创建的全部群组
func (s *groupRepoImpl) ListGroupsByOwner(ctx context.Context, ownerID string) ([]*model.Group, error) {
	var groups []*model.Group
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&groups).Error
	return groups, err
}

// ListMemberIDs 群组成员 ID
func (s *groupRepoImpl) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListGroupIDsForUser 用户所属的群组 ID
func (s *groupRepoImpl) ListGroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	return ids, err
}
