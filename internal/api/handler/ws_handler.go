package handler

import (
	"Herald/internal/api/dto"
	"Herald/internal/api/middleware"
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/response"
	"Herald/internal/pkg/security"
	"Herald/internal/pkg/util"
	"Herald/internal/pkg/ws"
	"Herald/internal/service"
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var errMemberMismatch = errors.New("memberId 与 Token 身份不一致")

// WsHandler websocket 接入网关
type WsHandler struct {
	hubs        service.HubProvider
	verifier    security.Verifier
	chatService service.ChatService
	opts        ws.Options
	upgrader    websocket.Upgrader
}

// NewWsHandler allowedOrigins 与 CORS 共用，为空时放行所有来源
func NewWsHandler(hubs service.HubProvider, verifier security.Verifier, chat service.ChatService, opts ws.Options, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		hubs:        hubs,
		verifier:    verifier,
		chatService: chat,
		opts:        opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin 没有 Origin 头的非浏览器客户端直接放行
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
	}
}

// Connect 握手鉴权后加入 notification-<finalId> 房间
// Token 优先取 Authorization 头，其次取 ?token=，鉴权失败在升级前直接拒绝
func (s *WsHandler) Connect(c *gin.Context) {
	ctx := c.Request.Context()

	token := middleware.BearerToken(c)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		log.WarnContext(ctx, "ws handshake rejected: token missing", "client_ip", c.ClientIP())
		response.Reject(c, http.StatusUnauthorized, security.ErrTokenMissing.Error())
		return
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		log.WarnContext(ctx, "ws handshake rejected: verify failed", "client_ip", c.ClientIP(), "err", err)
		response.Reject(c, http.StatusUnauthorized, security.ErrTokenInvalid.Error())
		return
	}

	id, err := resolveIdentity(identity, c.Query("memberId"), c.Query("groupId"))
	if err != nil {
		log.WarnContext(ctx, "ws handshake rejected: member mismatch",
			"kind", identity.Kind, "subject", identity.SubjectID, "member_id", c.Query("memberId"))
		response.Reject(c, http.StatusUnauthorized, err.Error())
		return
	}
	finalID := id.FinalID()
	if finalID == "" {
		log.WarnContext(ctx, "ws handshake rejected: no identity", "kind", identity.Kind, "subject", identity.SubjectID)
		response.Reject(c, http.StatusUnauthorized, "无法确定连接身份")
		return
	}

	hub, err := s.hubs()
	if err != nil {
		response.Reject(c, http.StatusServiceUnavailable, service.ErrDispatcherNotReady.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(ctx, "ws upgrade failed", "err", err)
		return
	}

	client := ws.NewClient(hub, conn, id, s.opts)
	client.On(consts.EventSendUserMessage, s.onSendUserMessage)

	room := consts.NotificationRoom(finalID)
	hub.Join(room, client)
	log.InfoContext(ctx, "ws connected", "client", client.ID(), "room", room)

	// 连接生命周期脱离 HTTP 请求，但保留 trace_id
	client.Serve(context.WithoutCancel(ctx))
	log.InfoContext(ctx, "ws disconnected", "client", client.ID(), "room", room)
}

// resolveIdentity userId 只来自用户 Token，memberId 只来自成员 Token
// 成员 Token 携带的 ?memberId= 必须与 Token 的 subject 一致，其余身份的 memberId 参数忽略
func resolveIdentity(identity *security.Identity, memberID, groupID string) (ws.Identity, error) {
	id := ws.Identity{GroupID: groupID}
	switch identity.Kind {
	case security.KindUser:
		id.UserID = identity.SubjectID
	case security.KindMember:
		if memberID != "" && memberID != identity.SubjectID {
			return ws.Identity{}, errMemberMismatch
		}
		id.MemberID = identity.SubjectID
	}
	return id, nil
}

// onSendUserMessage 处理 send-user-message，发送方取连接自身的 userId
func (s *WsHandler) onSendUserMessage(ctx context.Context, client *ws.Client, data json.RawMessage) {
	fromUserID := client.Identity().UserID
	if fromUserID == "" {
		s.replyError(ctx, client, service.UnauthorizedError)
		return
	}

	var req dto.SocketSendMessage
	if err := json.Unmarshal(data, &req); err != nil {
		s.replyError(ctx, client, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		s.replyError(ctx, client, service.ErrTargetRequired)
		return
	}

	if _, err := s.chatService.SendDirectMessage(ctx, fromUserID, req.ToUserID, req.Message); err != nil {
		s.replyError(ctx, client, err)
	}
}

func (s *WsHandler) replyError(ctx context.Context, client *ws.Client, err error) {
	msg := err.Error()
	if _, ok := service.CodeOf(err); !ok {
		log.ErrorContext(ctx, "ws send message failed", "client", client.ID(), "err", err)
		msg = service.UnExpectedError.Error()
	}
	if err := client.Emit(consts.EventSendUserMessageError, &dto.SocketError{Error: msg}); err != nil && !errors.Is(err, ws.ErrClientClosed) {
		log.WarnContext(ctx, "ws reply failed", "client", client.ID(), "err", err)
	}
}
