package service

import (
	"Herald/internal/pkg/codec"
	"Herald/internal/pkg/ws"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.New([]byte(testSecret))
	require.NoError(t, err)
	return c
}

func newTestPool() *PersistPool {
	return NewPersistPool(PersistPoolConfig{
		Workers:    1,
		QueueSize:  64,
		MaxRetries: 3,
		Backoff:    time.Millisecond,
		Timeout:    time.Second,
	})
}

func readyHub(h *ws.Hub) HubProvider {
	return func() (*ws.Hub, error) { return h, nil }
}

func missingHub() (*ws.Hub, error) {
	return nil, ws.ErrNotInitialized
}

