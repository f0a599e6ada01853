package handler

import (
	"Herald/internal/api/dto"
	"Herald/internal/api/middleware"
	"Herald/internal/pkg/response"
	"Herald/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotifyUser 管理员推送用户通知
func (s *NotificationHandler) NotifyUser(c *gin.Context) {
	var req dto.NotifyUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrTargetRequired)
		return
	}
	if err := s.notificationService.NotifyUser(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// NotifyMember 管理员推送成员通知
func (s *NotificationHandler) NotifyMember(c *gin.Context) {
	var req dto.NotifyMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrTargetRequired)
		return
	}
	if err := s.notificationService.NotifyMember(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *NotificationHandler) GetUserNotifications(c *gin.Context) {
	var page dto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.notificationService.GetNotifications(c.Request.Context(), middleware.Principal(c), c.Param("user_id"), &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *NotificationHandler) GetMemberNotifications(c *gin.Context) {
	var page dto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.notificationService.GetMemberNotifications(c.Request.Context(), middleware.Principal(c), c.Param("member_id"), &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
