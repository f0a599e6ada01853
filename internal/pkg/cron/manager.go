package cron

import (
	"Herald/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const defaultBroadcastSpec = "@every 30s"

type Manager struct {
	engine        *cron.Cron
	broadcastSpec string
	broadcastJob  *job.ScheduledBroadcastJob
}

func NewCronManager(broadcastSpec string, broadcastJob *job.ScheduledBroadcastJob) *Manager {
	if broadcastSpec == "" {
		broadcastSpec = defaultBroadcastSpec
	}
	return &Manager{
		// 上一轮未结束时跳过本轮
		engine:        cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		broadcastSpec: broadcastSpec,
		broadcastJob:  broadcastJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.broadcastSpec, s.broadcastJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动", "broadcast_spec", s.broadcastSpec)
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
