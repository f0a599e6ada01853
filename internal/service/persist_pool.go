package service

import (
	"context"
	log "log/slog"
	"sync"
	"time"
)

type persistTask struct {
	ctx  context.Context
	name string
	run  func(ctx context.Context) error
}

type PersistPoolConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	Backoff    time.Duration // 首次重试间隔，之后翻倍
	Timeout    time.Duration // 单次执行超时
}

// PersistPool 异步持久化工作池
// 推送成功后的落库、计数在这里执行，失败只记录日志，不回传给调用方
type PersistPool struct {
	cfg    PersistPoolConfig
	tasks  chan persistTask
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewPersistPool(cfg PersistPoolConfig) *PersistPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	p := &PersistPool{
		cfg:   cfg,
		tasks: make(chan persistTask, cfg.QueueSize),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

// Submit 非阻塞提交，队列已满或已关闭时丢弃并返回 false
// 任务继承 ctx 中的值 (trace_id)，但不受其取消影响
func (p *PersistPool) Submit(ctx context.Context, name string, run func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		log.WarnContext(ctx, "persist pool closed, task dropped", "task", name)
		return false
	}

	select {
	case p.tasks <- persistTask{ctx: context.WithoutCancel(ctx), name: name, run: run}:
		return true
	default:
		log.ErrorContext(ctx, "persist queue full, task dropped", "task", name)
		return false
	}
}

// Close 停止接收新任务，等待队列中的任务执行完毕
func (p *PersistPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	log.Info("PersistPool shut down gracefully")
}

func (p *PersistPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.execute(task)
	}
}

func (p *PersistPool) execute(task persistTask) {
	backoff := p.cfg.Backoff
	var err error
	for i := 0; i < p.cfg.MaxRetries; i++ {
		ctx, cancel := context.WithTimeout(task.ctx, p.cfg.Timeout)
		err = task.run(ctx)
		cancel()
		if err == nil {
			return
		}

		log.WarnContext(task.ctx, "persist task failed",
			"task", task.name, "attempt", i+1, "err", err)
		if i < p.cfg.MaxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	log.ErrorContext(task.ctx, "persist task gave up", "task", task.name, "err", err)
}
