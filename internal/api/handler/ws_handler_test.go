package handler

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/codec"
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/security"
	"Herald/internal/pkg/ws"
	"Herald/internal/service"
	"Herald/internal/testkit"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "gateway-test-secret"
	testAESKey    = "0123456789abcdef0123456789abcdef"
)

type gateway struct {
	url        string
	hub        *ws.Hub
	dispatcher service.Dispatcher
	messages   *testkit.MessageRepo
	unread     *testkit.UnreadRepo
	members    *testkit.NotificationRepo
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	return newGatewayWithOrigins(t, nil)
}

func newGatewayWithOrigins(t *testing.T, allowedOrigins []string) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, err := codec.New([]byte(testAESKey))
	require.NoError(t, err)

	g := &gateway{
		hub:      ws.NewHub(),
		messages: &testkit.MessageRepo{},
		unread:   testkit.NewUnreadRepo(),
		members:  &testkit.NotificationRepo{},
	}
	hubs := func() (*ws.Hub, error) { return g.hub, nil }

	pool := service.NewPersistPool(service.PersistPoolConfig{Workers: 1, Backoff: time.Millisecond})
	g.dispatcher = service.NewDispatcher(hubs, &testkit.NotificationRepo{}, g.members, pool)
	chat := service.NewChatService(
		service.NewMessageStore(g.messages, c),
		service.NewUnreadCounter(g.unread),
		g.unread,
		g.dispatcher,
		pool,
		time.Second,
	)
	h := NewWsHandler(hubs, security.NewTokenVerifier(testJWTSecret, nil), chat, ws.Options{}, allowedOrigins)

	r := gin.New()
	r.GET("/api/im", h.Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		g.hub.Close()
		pool.Close()
	})

	g.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/im"
	return g
}

func token(t *testing.T, subject, kind string, ttl time.Duration) string {
	t.Helper()
	tok, err := security.GenerateToken(testJWTSecret, subject, kind, nil, ttl)
	require.NoError(t, err)
	return tok
}

func (g *gateway) dial(t *testing.T, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := g.url
	if query != "" {
		url += "?" + query
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func bearer(tok string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + tok}}
}

func (g *gateway) waitJoined(t *testing.T, room string) {
	t.Helper()
	require.Eventually(t, func() bool { return g.hub.RoomSize(room) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *ws.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := ws.Decode(frame)
	require.NoError(t, err)
	return env
}

func TestGateway_RejectsWithoutToken(t *testing.T) {
	g := newGateway(t)

	_, resp, err := g.dial(t, "memberId=m1&groupId=g1", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, g.hub.RoomSize(consts.NotificationRoom("m1")))
	assert.Zero(t, g.hub.RoomSize(consts.NotificationRoom("g1")))
}

func TestGateway_RejectsInvalidToken(t *testing.T) {
	g := newGateway(t)

	expired := token(t, "u1", security.KindUser, -time.Hour)
	_, resp, err := g.dial(t, "token="+expired, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = g.dial(t, "", bearer("not-a-jwt"))
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged, err := security.GenerateToken("another-secret", "u1", security.KindUser, nil, time.Hour)
	require.NoError(t, err)
	_, resp, err = g.dial(t, "token="+forged, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Zero(t, g.hub.RoomSize(consts.NotificationRoom("u1")))
}

func TestGateway_RejectsWithoutIdentity(t *testing.T) {
	g := newGateway(t)

	_, resp, err := g.dial(t, "", bearer(token(t, "root", security.KindAdmin, time.Hour)))
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_HeaderTakesPrecedence(t *testing.T) {
	g := newGateway(t)

	header := bearer(token(t, "u1", security.KindUser, time.Hour))
	_, _, err := g.dial(t, "token=garbage&memberId=m1", header)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("u1"))
	assert.Zero(t, g.hub.RoomSize(consts.NotificationRoom("m1")))
}

func TestGateway_MemberIDMustMatchToken(t *testing.T) {
	g := newGateway(t)
	m1 := token(t, "m1", security.KindMember, time.Hour)

	_, resp, err := g.dial(t, "memberId=m2&token="+m1, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 管理员 Token 不能借 memberId 订阅成员房间
	_, resp, err = g.dial(t, "memberId=m2", bearer(token(t, "root", security.KindAdmin, time.Hour)))
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, g.hub.RoomSize(consts.NotificationRoom("m2")))

	conn, _, err := g.dial(t, "memberId=m1&token="+m1, nil)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("m1"))

	require.NoError(t, g.dispatcher.Dispatch(context.Background(), service.MemberRecipient{ID: "m2"}, "secret for m2", nil))
	require.NoError(t, g.dispatcher.Dispatch(context.Background(), service.MemberRecipient{ID: "m1"}, "for m1", nil))
	assert.Equal(t, "notification-m1", readEnvelope(t, conn).Event)
}

func TestGateway_OriginAllowList(t *testing.T) {
	g := newGatewayWithOrigins(t, []string{"https://app.herald.test"})
	tok := token(t, "u1", security.KindUser, time.Hour)

	header := bearer(tok)
	header.Set("Origin", "https://evil.test")
	_, resp, err := g.dial(t, "", header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, g.hub.RoomSize(consts.NotificationRoom("u1")))

	header.Set("Origin", "https://app.herald.test")
	_, _, err = g.dial(t, "", header)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("u1"))

	// 非浏览器客户端不带 Origin
	_, _, err = g.dial(t, "", bearer(tok))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return g.hub.RoomSize(consts.NotificationRoom("u1")) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestGateway_MemberReceivesNotification(t *testing.T) {
	g := newGateway(t)

	conn, _, err := g.dial(t, "token="+token(t, "m1", security.KindMember, time.Hour), nil)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("m1"))

	err = g.dispatcher.Dispatch(context.Background(), service.MemberRecipient{ID: "m1"}, "welcome", map[string]any{"k": "v"})
	require.NoError(t, err)

	env := readEnvelope(t, conn)
	assert.Equal(t, "notification-m1", env.Event)
	var push dto.NotificationPush
	require.NoError(t, json.Unmarshal(env.Data, &push))
	assert.Equal(t, "m1", push.TargetID)
	assert.Equal(t, "welcome", push.Message)
	assert.Equal(t, "v", push.Data["k"])

	require.Eventually(t, func() bool { return len(g.members.All()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestGateway_GroupListener(t *testing.T) {
	g := newGateway(t)

	conn, _, err := g.dial(t, "groupId=g1", bearer(token(t, "root", security.KindAdmin, time.Hour)))
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("g1"))

	require.NoError(t, g.dispatcher.Dispatch(context.Background(), service.GroupRecipient{ID: "g1"}, "hello", map[string]any{}))
	assert.Equal(t, "notification-g1", readEnvelope(t, conn).Event)
}

func TestGateway_DirectMessage(t *testing.T) {
	g := newGateway(t)

	y, _, err := g.dial(t, "", bearer(token(t, "Y", security.KindUser, time.Hour)))
	require.NoError(t, err)
	x, _, err := g.dial(t, "token="+token(t, "X", security.KindUser, time.Hour), nil)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("Y"))
	g.waitJoined(t, consts.NotificationRoom("X"))

	frame := `{"event":"send-user-message","data":{"toUserId":"Y","message":"hi"}}`
	require.NoError(t, x.WriteMessage(websocket.TextMessage, []byte(frame)))

	env := readEnvelope(t, y)
	assert.Equal(t, "direct-message-Y", env.Event)
	var push dto.DirectMessagePush
	require.NoError(t, json.Unmarshal(env.Data, &push))
	assert.Equal(t, "X", push.FromUserID)
	assert.Equal(t, "Y", push.ToUserID)
	assert.Equal(t, "hi", push.Message)
	assert.NotEmpty(t, push.MessageID)
	assert.False(t, push.Timestamp.IsZero())

	require.Eventually(t, func() bool { return g.unread.Get("Y", "X") == 1 }, 2*time.Second, 5*time.Millisecond)
	stored := g.messages.All()
	require.Len(t, stored, 1)
	assert.Equal(t, push.MessageID, stored[0].ID.Hex())
}

func TestGateway_SendErrorsGoBackToSender(t *testing.T) {
	g := newGateway(t)

	x, _, err := g.dial(t, "token="+token(t, "X", security.KindUser, time.Hour), nil)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("X"))

	require.NoError(t, x.WriteMessage(websocket.TextMessage, []byte(`{"event":"send-user-message","data":{"toUserId":"X","message":"me"}}`)))
	env := readEnvelope(t, x)
	assert.Equal(t, consts.EventSendUserMessageError, env.Event)
	var reply dto.SocketError
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, service.ErrSelfMessage.Error(), reply.Error)

	require.NoError(t, x.WriteMessage(websocket.TextMessage, []byte(`{"event":"send-user-message","data":{"toUserId":"Y"}}`)))
	env = readEnvelope(t, x)
	assert.Equal(t, consts.EventSendUserMessageError, env.Event)
	assert.Empty(t, g.messages.All())
}

func TestGateway_MemberCannotSendDirectMessage(t *testing.T) {
	g := newGateway(t)

	m, _, err := g.dial(t, "token="+token(t, "m1", security.KindMember, time.Hour), nil)
	require.NoError(t, err)
	g.waitJoined(t, consts.NotificationRoom("m1"))

	require.NoError(t, m.WriteMessage(websocket.TextMessage, []byte(`{"event":"send-user-message","data":{"toUserId":"Y","message":"hi"}}`)))
	assert.Equal(t, consts.EventSendUserMessageError, readEnvelope(t, m).Event)
}
