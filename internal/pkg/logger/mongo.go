package logger

import (
	"context"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

// 连接握手与心跳，不记录
var mongoQuietCommands = map[string]struct{}{
	"hello":       {},
	"isMaster":    {},
	"ping":        {},
	"endSessions": {},
}

// NewMongoMonitor 记录命令名与耗时
// 私信只存密文，命令体同样不落日志
func NewMongoMonitor(slowThreshold time.Duration) *event.CommandMonitor {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowThreshold
	}
	quiet := func(name string) bool {
		_, ok := mongoQuietCommands[name]
		return ok
	}

	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			if quiet(evt.CommandName) {
				return
			}
			fields := []any{
				log.String("command", evt.CommandName),
				log.String("database", evt.DatabaseName),
				log.Duration("latency", evt.Duration),
				log.Int64("request_id", evt.RequestID),
			}
			if evt.Duration > slowThreshold {
				log.WarnContext(ctx, "MongoDB Slow", fields...)
				return
			}
			log.DebugContext(ctx, "MongoDB Success", fields...)
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			log.ErrorContext(ctx, "MongoDB Error",
				log.String("command", evt.CommandName),
				log.String("database", evt.DatabaseName),
				log.Duration("latency", evt.Duration),
				log.Int64("request_id", evt.RequestID),
				log.Any("err", evt.Failure),
			)
		},
	}
}
