package handler

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/response"
	"Herald/internal/service"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupNotifyService service.GroupNotifyService
}

func NewGroupHandler(groupNotifyService service.GroupNotifyService) *GroupHandler {
	return &GroupHandler{groupNotifyService: groupNotifyService}
}

// NotifyGroup 向单个群组广播，可指定 scheduledAt 定时发送
func (s *GroupHandler) NotifyGroup(c *gin.Context) {
	var req dto.NotifyGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.groupNotifyService.NotifyGroup(c.Request.Context(), c.GetString(consts.CtxUserID), c.Param("group_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// NotifyAllGroups 向管理员名下全部群组广播
func (s *GroupHandler) NotifyAllGroups(c *gin.Context) {
	var req dto.NotifyGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.groupNotifyService.NotifyAllGroups(c.Request.Context(), c.GetString(consts.CtxUserID), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *GroupHandler) GetGroupNotifications(c *gin.Context) {
	res, err := s.groupNotifyService.GetGroupNotifications(c.Request.Context(), c.GetString(consts.CtxUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *GroupHandler) GetMyGroupMessages(c *gin.Context) {
	var q dto.MyGroupMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.groupNotifyService.GetMyGroupMessages(c.Request.Context(), c.GetString(consts.CtxUserID), q.GroupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
