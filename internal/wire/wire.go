package wire

import (
	"Herald/internal/api"
	"Herald/internal/api/config"
	"Herald/internal/api/handler"
	"Herald/internal/job"
	"Herald/internal/pkg/codec"
	"Herald/internal/pkg/cron"
	"Herald/internal/pkg/kafka"
	"Herald/internal/pkg/mongo"
	"Herald/internal/pkg/redis"
	"Herald/internal/pkg/security"
	"Herald/internal/pkg/ws"
	"Herald/internal/repository"
	"Herald/internal/service"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager // 未配置 brokers 时为 nil
	PersistPool  *service.PersistPool
}

func BuildApplication(db *gorm.DB, mdb *mongoDB.Database, c *codec.Codec, cfg *config.Config) (*ApplicationContainer, error) {
	messageRepo := mongo.NewMessageRepo(mdb)
	notificationRepo := mongo.NewNotificationRepo(mdb)
	memberNotificationRepo := mongo.NewMemberNotificationRepo(mdb)
	unreadCountRepo := repository.NewUnreadCountRepo(db)
	groupRepo := repository.NewGroupRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, ensure := range []func(context.Context) error{
		messageRepo.EnsureIndexes,
		notificationRepo.EnsureIndexes,
		memberNotificationRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
	}

	dc := cfg.Dispatcher
	pool := service.NewPersistPool(service.PersistPoolConfig{
		Workers:    dc.Workers,
		QueueSize:  dc.QueueSize,
		MaxRetries: dc.MaxRetries,
		Backoff:    time.Duration(dc.RetryBackoffMs) * time.Millisecond,
		Timeout:    time.Duration(dc.PersistTimeoutMs) * time.Millisecond,
	})

	dispatcher := service.NewDispatcher(ws.Default, notificationRepo, memberNotificationRepo, pool)
	messageStore := service.NewMessageStore(messageRepo, c)
	unreadCounter := service.NewUnreadCounter(unreadCountRepo)

	chatService := service.NewChatService(
		messageStore,
		unreadCounter,
		unreadCountRepo,
		dispatcher,
		pool,
		time.Duration(dc.PersistTimeoutMs)*time.Millisecond,
	)
	notificationService := service.NewNotificationService(dispatcher, notificationRepo, memberNotificationRepo)
	groupNotifyService := service.NewGroupNotifyService(groupRepo, messageStore, dispatcher, pool)

	verifier := security.NewTokenVerifier(cfg.Security.JWTSecret, security.RedisDenylist{})
	wsOpts := ws.Options{
		SendBuffer: dc.SendBuffer,
		WriteWait:  time.Duration(dc.WriteTimeoutMs) * time.Millisecond,
	}

	handlers := &api.HandlersGroup{
		WsHandler:           handler.NewWsHandler(ws.Default, verifier, chatService, wsOpts, cfg.Server.AllowedOrigins),
		IMHandler:           handler.NewIMHandler(chatService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		GroupHandler:        handler.NewGroupHandler(groupNotifyService),
	}

	router := api.SetupRouter(handlers, verifier, cfg.Server.AllowedOrigins)

	sc := cfg.Scheduler
	broadcastJob := job.NewScheduledBroadcastJob(
		messageStore,
		groupNotifyService,
		redis.Locker{},
		sc.BatchSize,
		time.Duration(sc.LockTTLSeconds)*time.Second,
	)
	cronMgr := cron.NewCronManager(sc.Spec, broadcastJob)

	var kafkaMgr *kafka.ConsumerManager
	if len(cfg.Kafka.Brokers) > 0 {
		mgr, err := kafka.NewConsumerManager(cfg, notificationService)
		if err != nil {
			return nil, err
		}
		kafkaMgr = mgr
	} else {
		log.Warn("Kafka brokers not configured, notify consumer disabled")
	}

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
		PersistPool:  pool,
	}, nil
}
