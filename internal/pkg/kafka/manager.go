package kafka

import (
	"Herald/internal/api/config"
	"Herald/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	topic string

	notifyConsumer sarama.ConsumerGroup
	notifyHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, notificationService service.NotificationService) (*ConsumerManager, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	saramaCfg := newSaramaConfig(cfg.Kafka)

	notifyConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaNotifyConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		topic:          cfg.KafkaNotifyConsumer.Topic,
		notifyConsumer: notifyConsumer,
		notifyHandler:  NewNotifyHandler(notificationService),
	}, nil
}

// Start 启动消费者，阻塞至 ctx 取消
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.notifyConsumer.Errors() {
			log.Error("Error from notify consumer group", "err", err)
		}
	}()

	go func() {
		log.Info("Notify consumer started", "topic", m.topic)
		for {
			if err := m.notifyConsumer.Consume(ctx, []string{m.topic}, m.notifyHandler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.notifyConsumer.Close(); err != nil {
		log.Error("Failed to close notify consumer", "err", err)
	}
	return nil
}
