package handler

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/response"
	"Herald/internal/pkg/util"
	"Herald/internal/service"

	"github.com/gin-gonic/gin"
)

type IMHandler struct {
	chatService service.ChatService
}

func NewIMHandler(chatService service.ChatService) *IMHandler {
	return &IMHandler{chatService: chatService}
}

// SendMessage 发送私信，与 send-user-message 事件走同一流程
func (s *IMHandler) SendMessage(c *gin.Context) {
	var req dto.SendUserMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrTargetRequired)
		return
	}

	// 从 Context 中获取中间件解析出的当前用户 ID
	senderID := c.GetString(consts.CtxUserID)

	res, err := s.chatService.SendDirectMessage(c.Request.Context(), senderID, req.ReceiverID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetChatHistory 获取与某个用户的会话历史
func (s *IMHandler) GetChatHistory(c *gin.Context) {
	var q dto.ChatHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.GetChatHistory(c.Request.Context(), c.GetString(consts.CtxUserID), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetContacts 获取联系人列表
func (s *IMHandler) GetContacts(c *gin.Context) {
	res, err := s.chatService.GetContacts(c.Request.Context(), c.GetString(consts.CtxUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *IMHandler) GetUnreadCounts(c *gin.Context) {
	var q dto.UnreadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.GetUnreadCounts(c.Request.Context(), c.GetString(consts.CtxUserID), util.SplitIDs(q.ContactIDs))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
