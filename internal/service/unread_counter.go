package service

import (
	"Herald/internal/repository"
	"context"
)

// UnreadCounter 私信未读计数
// 清零由会话历史读取流程负责，与已读标记之间不保证原子性
type UnreadCounter interface {
	Increment(ctx context.Context, userID, contactID string) error
	GetMany(ctx context.Context, userID string, contactIDs []string) (map[string]uint64, error)
}

type unreadCounterImpl struct {
	repo repository.UnreadCountRepo
}

func NewUnreadCounter(repo repository.UnreadCountRepo) UnreadCounter {
	return &unreadCounterImpl{repo: repo}
}

func (s *unreadCounterImpl) Increment(ctx context.Context, userID, contactID string) error {
	if userID == "" || contactID == "" {
		return ErrParamInvalid
	}
	return s.repo.Increment(ctx, userID, contactID)
}

func (s *unreadCounterImpl) GetMany(ctx context.Context, userID string, contactIDs []string) (map[string]uint64, error) {
	if userID == "" {
		return nil, ErrParamInvalid
	}
	return s.repo.GetMany(ctx, userID, contactIDs)
}
