package config

import "time"

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RabbitMQConfig struct {
	BrokerLink   string `mapstructure:"broker_link" validate:"required"`
	ExchangeName string `mapstructure:"exchange_name" validate:"required"`
	ExchangeType string `mapstructure:"exchange_type"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout"`
}

// QueueConfig describes one logical task queue partition.
type QueueConfig struct {
	Name         string        `mapstructure:"name" validate:"required"`
	Workers      int           `mapstructure:"workers" validate:"min=1"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type SchedulerConfig struct {
	PromoteInterval time.Duration `mapstructure:"promote_interval"`
	BatchSize       int           `mapstructure:"batch_size" validate:"min=1"`
	RestoreOnStart  bool          `mapstructure:"restore_on_start"`
}

type ProbeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// NotifyConfig carries process-wide provider credentials. Read-only
// after startup; per-channel settings live in the channel's config map.
type NotifyConfig struct {
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	SMTP             *SMTPConfig   `mapstructure:"smtp"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
}

type Config struct {
	Env         string           `mapstructure:"env"`
	ServiceName string           `mapstructure:"service_name"`
	Port        int              `mapstructure:"port"`
	DB          *DBConfig        `mapstructure:"db" validate:"required"`
	Redis       *RedisConfig     `mapstructure:"redis" validate:"required"`
	RabbitMQ    *RabbitMQConfig  `mapstructure:"rabbitmq" validate:"required"`
	ProbeQueue  *QueueConfig     `mapstructure:"probe_queue" validate:"required"`
	NotifyQueue *QueueConfig     `mapstructure:"notify_queue" validate:"required"`
	Scheduler   *SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Probe       *ProbeConfig     `mapstructure:"probe"`
	Notify      *NotifyConfig    `mapstructure:"notify"`
}
