package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistPool_RetriesUntilSuccess(t *testing.T) {
	p := newTestPool()
	var calls atomic.Int32

	ok := p.Submit(context.Background(), "flaky", func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	assert.True(t, ok)
	p.Close()
	assert.EqualValues(t, 3, calls.Load())
}

func TestPersistPool_GivesUp(t *testing.T) {
	p := newTestPool()
	var calls atomic.Int32

	p.Submit(context.Background(), "broken", func(context.Context) error {
		calls.Add(1)
		return errors.New("permanent")
	})
	p.Close()
	assert.EqualValues(t, 3, calls.Load())
}

func TestPersistPool_IgnoresCallerCancel(t *testing.T) {
	p := newTestPool()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	p.Submit(ctx, "detached", func(ctx context.Context) error {
		ran.Store(ctx.Err() == nil)
		return nil
	})
	p.Close()
	assert.True(t, ran.Load())
}

func TestPersistPool_SubmitAfterClose(t *testing.T) {
	p := newTestPool()
	p.Close()
	p.Close()
	assert.False(t, p.Submit(context.Background(), "late", func(context.Context) error { return nil }))
}
