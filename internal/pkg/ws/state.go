package ws

import (
	"errors"
	"sync/atomic"
)

var (
	ErrNotInitialized     = errors.New("ws hub not initialized")
	ErrAlreadyInitialized = errors.New("ws hub already initialized")
	ErrClientClosed       = errors.New("ws client closed")
)

var current atomic.Pointer[Hub]

// Init 进程启动时注册唯一的 Hub，只允许调用一次
func Init(h *Hub) error {
	if h == nil {
		return errors.New("ws hub is nil")
	}
	if !current.CompareAndSwap(nil, h) {
		return ErrAlreadyInitialized
	}
	return nil
}

// Default 获取进程内的 Hub，未初始化时返回 ErrNotInitialized
func Default() (*Hub, error) {
	h := current.Load()
	if h == nil {
		return nil, ErrNotInitialized
	}
	return h, nil
}
