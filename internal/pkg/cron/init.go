package cron

import (
	"context"
	"fmt"
	log "log/slog"
)

// InitCron 注册并启动定时广播投递
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	mgr.Start()
	return nil
}

// StopOnDone 阻塞到 ctx 结束，再等待正在执行的投递轮次退出
func StopOnDone(ctx context.Context, mgr *Manager) error {
	<-ctx.Done()
	log.Info("Cron Jobs stopping...")
	mgr.Stop()
	return nil
}
