package service

import (
	"Herald/internal/api/dto"
	"Herald/internal/model"
	"Herald/internal/pkg/mongo"
	"Herald/internal/pkg/util"
	"Herald/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"slices"
	"time"

	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// GroupNotifyService 管理员群组广播
type GroupNotifyService interface {
	NotifyGroup(ctx context.Context, adminID, groupID string, req *dto.NotifyGroupReq) (*dto.NotifyGroupResp, error)
	NotifyAllGroups(ctx context.Context, adminID string, req *dto.NotifyGroupReq) (*dto.NotifyAllGroupsResp, error)
	GetGroupNotifications(ctx context.Context, adminID string) ([]*dto.GroupBroadcastsDTO, error)
	GetMyGroupMessages(ctx context.Context, userID, groupID string) ([]*dto.GroupBroadcastsDTO, error)
	DeliverDue(ctx context.Context, msg *OpenedMessage) error
}

type groupNotifyServiceImpl struct {
	groups     repository.GroupRepo
	store      MessageStore
	dispatcher Dispatcher
	pool       *PersistPool
	now        func() time.Time
}

func NewGroupNotifyService(groups repository.GroupRepo, store MessageStore, dispatcher Dispatcher, pool *PersistPool) GroupNotifyService {
	return &groupNotifyServiceImpl{
		groups:     groups,
		store:      store,
		dispatcher: dispatcher,
		pool:       pool,
		now:        time.Now,
	}
}

// NotifyGroup 向管理员自己的群组广播
// 立即发送：逐个成员按 user 推送，再按 group 推送到群组房间，最后写入一条广播记录
// 定时发送：只写入 isSent=false 的广播记录，由定时任务到期投递
func (s *groupNotifyServiceImpl) NotifyGroup(ctx context.Context, adminID, groupID string, req *dto.NotifyGroupReq) (*dto.NotifyGroupResp, error) {
	if groupID == "" || req == nil || req.Message == "" {
		return nil, ErrParamInvalid
	}
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	if group.OwnerID != adminID {
		return nil, UnauthorizedError
	}
	return s.notify(ctx, adminID, group, req)
}

// NotifyAllGroups 向管理员名下全部群组广播
// 部分群组失败时返回成功部分的统计与失败的群组 ID，全部失败才返回错误
func (s *groupNotifyServiceImpl) NotifyAllGroups(ctx context.Context, adminID string, req *dto.NotifyGroupReq) (*dto.NotifyAllGroupsResp, error) {
	if req == nil || req.Message == "" {
		return nil, ErrParamInvalid
	}
	groups, err := s.groups.ListGroupsByOwner(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	resp := &dto.NotifyAllGroupsResp{Groups: len(groups), Scheduled: s.isScheduled(req.ScheduledAt)}
	var firstErr error
	for _, g := range groups {
		r, err := s.notify(ctx, adminID, g, req)
		if err != nil {
			if errors.Is(err, ErrDispatcherNotReady) {
				return nil, err
			}
			// 前面的群组已经推送并落库，单个群组失败不影响其余群组
			log.ErrorContext(ctx, "group broadcast failed, continuing", "group_id", g.ID, "err", err)
			resp.FailedGroups = append(resp.FailedGroups, g.ID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		resp.MembersNotified += r.MembersNotified
	}
	if len(resp.FailedGroups) == len(groups) {
		return nil, firstErr
	}
	return resp, nil
}

func (s *groupNotifyServiceImpl) notify(ctx context.Context, adminID string, group *model.Group, req *dto.NotifyGroupReq) (*dto.NotifyGroupResp, error) {
	if s.isScheduled(req.ScheduledAt) {
		msg, err := s.store.CreateBroadcastMessage(ctx, adminID, group.ID, group.GroupName, req.Message, req.ScheduledAt)
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "group broadcast scheduled",
			"group_id", group.ID, "message_id", msg.ID.Hex(), "scheduled_at", req.ScheduledAt)
		return &dto.NotifyGroupResp{GroupID: group.ID, MessageID: msg.ID.Hex(), Scheduled: true}, nil
	}

	msg, err := s.store.SealBroadcastMessage(adminID, group.ID, group.GroupName, req.Message, nil)
	if err != nil {
		return nil, err
	}

	n, err := s.deliver(ctx, group.ID, group.GroupName, msg.ID.Hex(), req.Message)
	if err != nil {
		return nil, err
	}

	if err = s.store.Save(ctx, msg); err != nil {
		log.ErrorContext(ctx, "save group broadcast failed, retrying async",
			"group_id", group.ID, "message_id", msg.ID.Hex(), "err", err)
		s.pool.Submit(ctx, "broadcast:"+msg.ID.Hex(), func(ctx context.Context) error {
			if err := s.store.Save(ctx, msg); err != nil && !mongoDB.IsDuplicateKeyError(err) {
				return err
			}
			return nil
		})
	}

	return &dto.NotifyGroupResp{GroupID: group.ID, MessageID: msg.ID.Hex(), MembersNotified: n}, nil
}

// deliver 推送给每个成员与群组房间，返回推送的成员数
func (s *groupNotifyServiceImpl) deliver(ctx context.Context, groupID, groupName, messageID, text string) (int, error) {
	if err := s.dispatcher.Ready(); err != nil {
		return 0, err
	}
	members, err := s.groups.ListMemberIDs(ctx, groupID)
	if err != nil {
		return 0, err
	}

	data := map[string]any{
		"groupId":   groupID,
		"groupName": groupName,
		"messageId": messageID,
	}
	for _, uid := range members {
		if err = s.dispatcher.Dispatch(ctx, UserRecipient{ID: uid}, text, data); err != nil {
			return 0, err
		}
	}
	if err = s.dispatcher.Dispatch(ctx, GroupRecipient{ID: groupID}, text, data); err != nil {
		return 0, err
	}
	return len(members), nil
}

// DeliverDue 定时广播到期投递，成功后标记已发送
// 无法解密或群组已删除的广播同样标记已发送，避免每轮重复处理
func (s *groupNotifyServiceImpl) DeliverDue(ctx context.Context, msg *OpenedMessage) error {
	if msg.IsSent {
		return nil
	}
	if msg.Err != nil {
		log.ErrorContext(ctx, "scheduled broadcast undecryptable, skipped",
			"message_id", msg.ID.Hex(), "err", msg.Err)
		return s.markSent(ctx, msg)
	}

	group, err := s.groups.GetGroupByID(ctx, msg.GroupID)
	if err != nil {
		return err
	}
	if group == nil {
		log.WarnContext(ctx, "scheduled broadcast group gone, skipped",
			"message_id", msg.ID.Hex(), "group_id", msg.GroupID)
		return s.markSent(ctx, msg)
	}

	if _, err = s.deliver(ctx, group.ID, msg.GroupName, msg.ID.Hex(), msg.Text); err != nil {
		return err
	}
	return s.markSent(ctx, msg)
}

func (s *groupNotifyServiceImpl) markSent(ctx context.Context, msg *OpenedMessage) error {
	err := s.store.MarkSent(ctx, msg.ID)
	if errors.Is(err, mongoDB.ErrNoDocuments) {
		return nil
	}
	return err
}

// GetGroupNotifications 管理员发出的广播，按群组聚合
func (s *groupNotifyServiceImpl) GetGroupNotifications(ctx context.Context, adminID string) ([]*dto.GroupBroadcastsDTO, error) {
	list, err := s.store.ListBroadcasts(ctx, mongo.BroadcastQuery{SenderID: adminID})
	if err != nil {
		return nil, err
	}
	return groupBroadcasts(list)
}

// GetMyGroupMessages 用户所在群组的已发送广播，groupId 非空时只查该群组
func (s *groupNotifyServiceImpl) GetMyGroupMessages(ctx context.Context, userID, groupID string) ([]*dto.GroupBroadcastsDTO, error) {
	ids, err := s.groups.ListGroupIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if groupID != "" {
		if !slices.Contains(ids, groupID) {
			return nil, ErrNotGroupMember
		}
		ids = []string{groupID}
	}
	if len(ids) == 0 {
		return []*dto.GroupBroadcastsDTO{}, nil
	}

	list, err := s.store.ListBroadcasts(ctx, mongo.BroadcastQuery{GroupIDs: ids, OnlySent: true})
	if err != nil {
		return nil, err
	}
	return groupBroadcasts(list)
}

func (s *groupNotifyServiceImpl) isScheduled(at *time.Time) bool {
	return at != nil && at.After(s.now())
}

// groupBroadcasts 输入已按时间倒序，输出保持群组首次出现的顺序
func groupBroadcasts(list []*OpenedMessage) ([]*dto.GroupBroadcastsDTO, error) {
	res := make([]*dto.GroupBroadcastsDTO, 0)
	index := make(map[string]*dto.GroupBroadcastsDTO)
	for _, m := range list {
		d := &dto.BroadcastDTO{}
		if err := util.CopyModel(d, m.Message); err != nil {
			return nil, err
		}
		d.Message = displayText(m)

		g, ok := index[m.GroupID]
		if !ok {
			g = &dto.GroupBroadcastsDTO{GroupID: m.GroupID, GroupName: m.GroupName}
			index[m.GroupID] = g
			res = append(res, g)
		}
		g.Messages = append(g.Messages, d)
		g.Total++
	}
	return res, nil
}
