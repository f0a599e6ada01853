package ws

import (
	log "log/slog"
	"sync"
)

// Hub 进程内房间注册表
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Join 将连接加入房间
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave 将连接移出房间，空房间随之删除
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// LeaveAll 连接断开时移出其所在的全部房间
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
}

func (h *Hub) leaveLocked(room string, c *Client) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Emit 向房间内所有连接推送事件，返回成功入队的连接数
// 发送缓冲已满的连接视为慢消费者，直接断开
func (h *Hub) Emit(room string, event string, payload any) (int, error) {
	frame, err := Encode(event, payload)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		log.Warn("ws client too slow, dropping", "client", c.ID(), "room", room)
		c.Close()
	}
	return delivered, nil
}

// RoomSize 房间当前连接数
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close 关闭全部连接，进程退出时调用
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Client
	for _, members := range h.rooms {
		for c := range members {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
}
