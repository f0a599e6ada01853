package ws

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 << 10
	defaultSendBuffer     = 64
)

// Identity 握手阶段解析出的连接身份
type Identity struct {
	UserID   string
	MemberID string
	GroupID  string
}

// FinalID 按 userId > memberId > groupId 取第一个非空值
func (i Identity) FinalID() string {
	switch {
	case i.UserID != "":
		return i.UserID
	case i.MemberID != "":
		return i.MemberID
	default:
		return i.GroupID
	}
}

// Handler 上行事件处理函数，在连接的读协程中同步执行
type Handler func(ctx context.Context, c *Client, data json.RawMessage)

type Options struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	return o
}

// Client 一条 websocket 连接
// send 通道从不关闭，退出由 done 广播
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	identity Identity
	opts     Options

	// 由 hub.mu 保护
	rooms map[string]struct{}

	handlers map[string]Handler

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, identity Identity, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		identity: identity,
		opts:     opts,
		rooms:    make(map[string]struct{}),
		handlers: make(map[string]Handler),
		send:     make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() Identity { return c.identity }

func (c *Client) Done() <-chan struct{} { return c.done }

// On 注册上行事件处理函数，需在 Serve 之前调用
func (c *Client) On(event string, h Handler) {
	c.handlers[event] = h
}

// Emit 仅向当前连接推送事件
func (c *Client) Emit(event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	if !c.enqueue(frame) {
		return ErrClientClosed
	}
	return nil
}

// Close 幂等，写协程收到信号后发送关闭帧并断开连接
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Serve 启动读写循环，阻塞至连接断开
func (c *Client) Serve(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	c.readPump(ctx)
	wg.Wait()
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.LeaveAll(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.WarnContext(ctx, "ws read error", "client", c.id, "err", err)
			}
			return
		}

		env, err := Decode(frame)
		if err != nil {
			log.WarnContext(ctx, "ws malformed frame", "client", c.id, "err", err)
			continue
		}
		h, ok := c.handlers[env.Event]
		if !ok {
			log.DebugContext(ctx, "ws unhandled event", "client", c.id, "event", env.Event)
			continue
		}
		h(ctx, c, env.Data)
	}
}

func (c *Client) writePump() {
	pingPeriod := c.opts.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
