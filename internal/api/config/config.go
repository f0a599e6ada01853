package config

// Config 配置主体
type Config struct {
	Server              ServerConfig        `mapstructure:"server"`
	DB                  DBConfig            `mapstructure:"database"`
	Redis               RedisConfig         `mapstructure:"redis"`
	Mongo               MongoConfig         `mapstructure:"mongo"`
	Kafka               KafkaConfig         `mapstructure:"kafka"`
	KafkaNotifyConsumer KafkaNotifyConsumer `mapstructure:"kafka_notify_consumer"`
	Security            SecurityConfig      `mapstructure:"security"`
	Dispatcher          DispatcherConfig    `mapstructure:"dispatcher"`
	Scheduler           SchedulerConfig     `mapstructure:"scheduler"`
	Logstash            LogstashConfig      `mapstructure:"logstash"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxIdle         int    `mapstructure:"max_idle"`
	MaxOpen         int    `mapstructure:"max_open"`
	MaxLifetime     int    `mapstructure:"max_lifetime"`
	SlowThresholdMs int    `mapstructure:"slow_threshold_ms"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 消息与通知存储
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	ClientID string         `mapstructure:"client_id"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// KafkaNotifyConsumer 通知投递请求的消费配置
type KafkaNotifyConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// SecurityConfig 密钥配置
// EncryptionSecret 必须恰好 32 字节，启动时校验
type SecurityConfig struct {
	EncryptionSecret string `mapstructure:"encryption_secret"`
	JWTSecret        string `mapstructure:"jwt_secret"`
}

// DispatcherConfig 实时投递与异步持久化
type DispatcherConfig struct {
	Workers          int `mapstructure:"workers"`
	QueueSize        int `mapstructure:"queue_size"`
	MaxRetries       int `mapstructure:"max_retries"`
	RetryBackoffMs   int `mapstructure:"retry_backoff_ms"`
	PersistTimeoutMs int `mapstructure:"persist_timeout_ms"`
	WriteTimeoutMs   int `mapstructure:"write_timeout_ms"`
	SendBuffer       int `mapstructure:"send_buffer"`
}

// SchedulerConfig 定时广播
type SchedulerConfig struct {
	Spec           string `mapstructure:"spec"`
	BatchSize      int64  `mapstructure:"batch_size"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}
