package service

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/mongo"
	"Herald/internal/pkg/security"
	"Herald/internal/pkg/util"
	"context"
)

type NotificationService interface {
	NotifyUser(ctx context.Context, req *dto.NotifyUserReq) error
	NotifyMember(ctx context.Context, req *dto.NotifyMemberReq) error
	HandleRequest(ctx context.Context, req *dto.NotifyRequest) error
	GetNotifications(ctx context.Context, caller *security.Identity, userID string, page *dto.PageQuery) (*dto.NotificationListResp, error)
	GetMemberNotifications(ctx context.Context, caller *security.Identity, memberID string, page *dto.PageQuery) (*dto.NotificationListResp, error)
}

type notificationServiceImpl struct {
	dispatcher          Dispatcher
	notifications       mongo.NotificationRepo
	memberNotifications mongo.NotificationRepo
}

func NewNotificationService(dispatcher Dispatcher, notifications, memberNotifications mongo.NotificationRepo) NotificationService {
	return &notificationServiceImpl{
		dispatcher:          dispatcher,
		notifications:       notifications,
		memberNotifications: memberNotifications,
	}
}

// NotifyUser 推送用户通知
func (s *notificationServiceImpl) NotifyUser(ctx context.Context, req *dto.NotifyUserReq) error {
	return s.dispatcher.Dispatch(ctx, UserRecipient{ID: req.UserID}, req.Message, req.Data)
}

// NotifyMember 推送成员通知
func (s *notificationServiceImpl) NotifyMember(ctx context.Context, req *dto.NotifyMemberReq) error {
	return s.dispatcher.Dispatch(ctx, MemberRecipient{ID: req.MemberID}, req.Message, req.Data)
}

// HandleRequest 处理消息队列中的投递请求
func (s *notificationServiceImpl) HandleRequest(ctx context.Context, req *dto.NotifyRequest) error {
	if err := util.ValidateDTO(req); err != nil {
		return err
	}
	to, err := RecipientFor(req.Role, req.TargetID)
	if err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, to, req.Message, req.Data)
}

// GetNotifications 用户通知列表，仅本人或管理员可查看
func (s *notificationServiceImpl) GetNotifications(ctx context.Context, caller *security.Identity, userID string, page *dto.PageQuery) (*dto.NotificationListResp, error) {
	return s.list(ctx, s.notifications, caller, userID, page)
}

// GetMemberNotifications 成员通知列表
func (s *notificationServiceImpl) GetMemberNotifications(ctx context.Context, caller *security.Identity, memberID string, page *dto.PageQuery) (*dto.NotificationListResp, error) {
	return s.list(ctx, s.memberNotifications, caller, memberID, page)
}

func (s *notificationServiceImpl) list(ctx context.Context, repo mongo.NotificationRepo, caller *security.Identity, targetID string, q *dto.PageQuery) (*dto.NotificationListResp, error) {
	if targetID == "" {
		return nil, ErrParamInvalid
	}
	if caller == nil || (caller.SubjectID != targetID && !caller.IsAdmin()) {
		return nil, UnauthorizedError
	}
	if q == nil {
		q = &dto.PageQuery{}
	}
	page, pageSize, offset := util.NormalizePage(q.Page, q.PageSize)

	list, total, err := repo.GetNotificationList(ctx, targetID, int64(pageSize), offset)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.NotificationDTO, 0, len(list))
	for _, n := range list {
		d := &dto.NotificationDTO{}
		if err = util.CopyModel(d, n); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return &dto.NotificationListResp{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
