package job

import (
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/logger"
	"Herald/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// Locker 多实例部署时保证同一时刻只有一个实例投递
type Locker interface {
	TryLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	UnLock(ctx context.Context, key string, value string)
}

// ScheduledBroadcastJob 投递到期的定时群组广播
// 查询条件是“已到期且未发送”，错过的轮次会在下一轮补发
type ScheduledBroadcastJob struct {
	store       service.MessageStore
	groupNotify service.GroupNotifyService
	locker      Locker
	batchSize   int64
	lockTTL     time.Duration
	now         func() time.Time
}

func NewScheduledBroadcastJob(
	store service.MessageStore,
	groupNotify service.GroupNotifyService,
	locker Locker,
	batchSize int64,
	lockTTL time.Duration,
) *ScheduledBroadcastJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	if lockTTL <= 0 {
		lockTTL = 25 * time.Second
	}
	return &ScheduledBroadcastJob{
		store:       store,
		groupNotify: groupNotify,
		locker:      locker,
		batchSize:   batchSize,
		lockTTL:     lockTTL,
		now:         time.Now,
	}
}

func (s *ScheduledBroadcastJob) Run() {
	ctx := logger.WithTraceID(context.Background(), logger.NewTraceID("job-broadcast"))

	ctx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		log.ErrorContext(ctx, "ScheduledBroadcastJob failed", "err", err)
	}
}

// RunOnce 执行一轮投递，返回成功投递的条数
func (s *ScheduledBroadcastJob) RunOnce(ctx context.Context) (int, error) {
	owner := uuid.NewString()
	ok, err := s.locker.TryLock(ctx, consts.ScheduledBroadcastLock, owner, s.lockTTL)
	if err != nil {
		return 0, err
	}
	if !ok {
		log.DebugContext(ctx, "ScheduledBroadcastJob skipped, lock held elsewhere")
		return 0, nil
	}
	defer s.locker.UnLock(context.WithoutCancel(ctx), consts.ScheduledBroadcastLock, owner)

	due, err := s.store.FindDueBroadcasts(ctx, s.now(), s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, msg := range due {
		if err = s.groupNotify.DeliverDue(ctx, msg); err != nil {
			log.ErrorContext(ctx, "deliver scheduled broadcast failed",
				"message_id", msg.ID.Hex(), "group_id", msg.GroupID, "err", err)
			continue
		}
		delivered++
	}

	log.InfoContext(ctx, "ScheduledBroadcastJob finished", "due", len(due), "delivered", delivered)
	return delivered, nil
}
