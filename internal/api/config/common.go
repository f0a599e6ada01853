package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
// 环境变量优先于配置文件，键名中的 "." 替换为 "_"，例如 SECURITY_ENCRYPTION_SECRET
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("security.encryption_secret", "SECURITY_ENCRYPTION_SECRET", "ENCRYPTION_SECRET")
	_ = v.BindEnv("security.jwt_secret", "SECURITY_JWT_SECRET", "JWT_SECRET")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("mongo.database", "herald")
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue_size", 1024)
	v.SetDefault("dispatcher.max_retries", 3)
	v.SetDefault("dispatcher.retry_backoff_ms", 500)
	v.SetDefault("dispatcher.persist_timeout_ms", 2000)
	v.SetDefault("dispatcher.write_timeout_ms", 10000)
	v.SetDefault("dispatcher.send_buffer", 64)
	v.SetDefault("kafka.client_id", "herald")
	v.SetDefault("kafka.consumer.session_timeout", 30)
	v.SetDefault("kafka.consumer.heartbeat_interval", 3)
	v.SetDefault("kafka.consumer.rebalance_timeout", 60)
	v.SetDefault("kafka.consumer.max_processing_time", 5)
	v.SetDefault("scheduler.spec", "@every 30s")
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("scheduler.lock_ttl_seconds", 60)
	v.SetDefault("logstash.index", "logstash-herald")
}
