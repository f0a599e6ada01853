package kafka

import (
	"Herald/internal/api/config"
	"time"

	"github.com/IBM/sarama"
)

// newSaramaConfig 通知请求消费者的 sarama 配置
// 关闭自动提交，offset 只在请求处理完成后由 processBatch 提交
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = kafkaCfg.ClientID
	if c.ClientID == "" {
		c.ClientID = "herald"
	}

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	// 新加入的消费组不回放历史通知
	c.Consumer.Offsets.Initial = sarama.OffsetNewest
	c.Consumer.Offsets.AutoCommit.Enable = false
	c.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	cc := kafkaCfg.Consumer
	setSeconds(&c.Consumer.Group.Session.Timeout, cc.SessionTimeout)
	setSeconds(&c.Consumer.Group.Heartbeat.Interval, cc.HeartbeatInterval)
	setSeconds(&c.Consumer.Group.Rebalance.Timeout, cc.RebalanceTimeout)
	setSeconds(&c.Consumer.MaxProcessingTime, cc.MaxProcessingTime)

	return c
}

// setSeconds 未配置时保留 sarama 默认值
func setSeconds(dst *time.Duration, seconds int) {
	if seconds > 0 {
		*dst = time.Duration(seconds) * time.Second
	}
}
