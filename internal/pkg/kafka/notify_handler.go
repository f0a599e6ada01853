package kafka

import (
	"Herald/internal/api/dto"
	"Herald/internal/pkg/logger"
	"Herald/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// NotifyHandler 消费通知投递请求 {targetId, message, data, role}
type NotifyHandler struct {
	notificationService service.NotificationService
}

func NewNotifyHandler(notificationService service.NotificationService) *NotifyHandler {
	return &NotifyHandler{notificationService: notificationService}
}

func (s *NotifyHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("notify consumer setup")
	return nil
}

func (s *NotifyHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("notify consumer cleanup")
	return nil
}

func (s *NotifyHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-notify consume claim", "partition", claim.Partition())
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("topic-notify consume claim end", "partition", claim.Partition())
	return nil
}

// logic 非法消息记录日志后跳过，只有推送服务未就绪时返回错误触发重试
func (s *NotifyHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = logger.WithTraceID(ctx, logger.NewTraceID("kafka-notify"))

	var req dto.NotifyRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		log.WarnContext(ctx, "invalid notify request, skipped",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	err := s.notificationService.HandleRequest(ctx, &req)
	if err == nil {
		return nil
	}
	if errors.Is(err, service.ErrDispatcherNotReady) {
		return err
	}
	log.WarnContext(ctx, "notify request rejected, skipped",
		"partition", msg.Partition, "offset", msg.Offset, "target_id", req.TargetID, "role", req.Role, "err", err)
	return nil
}
