package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, h *Hub, setup func(c *Client)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn, Identity{UserID: "u1"}, Options{})
		h.Join("notification-u1", c)
		setup(c)
		c.Serve(context.Background())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestClient_HandlesInboundEvent(t *testing.T) {
	h := NewHub()
	conn := startServer(t, h, func(c *Client) {
		c.On("ping-me", func(ctx context.Context, c *Client, data json.RawMessage) {
			var in map[string]string
			_ = json.Unmarshal(data, &in)
			_ = c.Emit("pong-you", map[string]string{"echo": in["text"]})
		})
	})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"ping-me","data":{"text":"hello"}}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "pong-you", env.Event)
	assert.JSONEq(t, `{"echo":"hello"}`, string(env.Data))
}

func TestClient_RoomEmitReachesSocket(t *testing.T) {
	h := NewHub()
	joined := make(chan struct{})
	conn := startServer(t, h, func(c *Client) { close(joined) })
	<-joined

	n, err := h.Emit("notification-u1", "notification-u1", map[string]any{"targetId": "u1", "message": "m"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "notification-u1", env.Event)
}

func TestClient_DisconnectLeavesRoom(t *testing.T) {
	h := NewHub()
	joined := make(chan struct{})
	conn := startServer(t, h, func(c *Client) { close(joined) })
	<-joined
	assert.Equal(t, 1, h.RoomSize("notification-u1"))

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	assert.Eventually(t, func() bool {
		return h.RoomSize("notification-u1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ServerCloseSendsCloseFrame(t *testing.T) {
	h := NewHub()
	joined := make(chan struct{})
	conn := startServer(t, h, func(c *Client) { close(joined) })
	<-joined

	h.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
