package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Email     EmailConfig     `mapstructure:"email"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port" validate:"min=1,max=65535"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds" validate:"min=1"`
}

// WorkerConfig covers the reminder worker's health endpoint.
type WorkerConfig struct {
	HealthPort int `mapstructure:"health_port" validate:"min=1,max=65535"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" validate:"required"`
	Port         int    `mapstructure:"port" validate:"min=1,max=65535"`
	User         string `mapstructure:"user" validate:"required"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name" validate:"required"`
	SSLMode      string `mapstructure:"sslmode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	// AdminChannel is the pub/sub channel connected admin sessions listen on.
	AdminChannel string `mapstructure:"admin_channel" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type DispatchConfig struct {
	// Concurrency bounds how many subscribers are dispatched at once.
	Concurrency int `mapstructure:"concurrency" validate:"min=1,max=64"`
	// FallbackTimezone is used for quiet hours when a subscriber has none.
	FallbackTimezone string `mapstructure:"fallback_timezone" validate:"required"`
	// StaffLocale is the fixed locale of technical staff templates.
	StaffLocale   string `mapstructure:"staff_locale" validate:"required"`
	DefaultLocale string `mapstructure:"default_locale" validate:"required"`
}

type EmailConfig struct {
	From     string   `mapstructure:"from" validate:"required,email"`
	Primary  string   `mapstructure:"primary" validate:"oneof=smtp resend ses"`
	Fallback []string `mapstructure:"fallback" validate:"dive,oneof=smtp resend ses"`
	SMTP     struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
	} `mapstructure:"smtp"`
	Resend struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"resend"`
	SES struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"ses"`
}

type SMSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	GatewayURL     string        `mapstructure:"gateway_url" validate:"omitempty,url"`
	APIKey         string        `mapstructure:"api_key"`
	Sender         string        `mapstructure:"sender"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst          int           `mapstructure:"burst" validate:"min=1"`
	MaxMessageSize int           `mapstructure:"max_message_size" validate:"min=20"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	// BatchSize caps how many due rows one tick processes.
	BatchSize int `mapstructure:"batch_size" validate:"min=1"`
	// AckReminderCeiling and StartReminderCeiling are used when a policy has no override.
	AckReminderCeiling   int `mapstructure:"ack_reminder_ceiling" validate:"min=1"`
	StartReminderCeiling int `mapstructure:"start_reminder_ceiling" validate:"min=1"`
	// ReminderBackoff pushes the due time forward after each reminder; zero keeps it.
	ReminderBackoff time.Duration `mapstructure:"reminder_backoff" validate:"min=0"`
}

type RecorderConfig struct {
	// AlertAfter is the number of consecutive write failures before an error is raised.
	AlertAfter int `mapstructure:"alert_after" validate:"min=1"`
}

// secrets are read straight from the environment and never from the config file.
type secrets struct {
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	ResendAPIKey     string `envconfig:"RESEND_API_KEY"`
	SMSAPIKey        string `envconfig:"SMS_API_KEY"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeoutSeconds", 30)
	v.SetDefault("worker.health_port", 8081)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "msp")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.admin_channel", "admin:alerts")

	v.SetDefault("log.level", "info")

	v.SetDefault("dispatch.concurrency", 4)
	v.SetDefault("dispatch.fallback_timezone", "UTC")
	v.SetDefault("dispatch.staff_locale", "en")
	v.SetDefault("dispatch.default_locale", "en")

	v.SetDefault("email.from", "alerts@msp.example.com")
	v.SetDefault("email.primary", "smtp")
	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 1025)
	v.SetDefault("email.ses.region", "us-east-1")

	v.SetDefault("sms.timeout", 10*time.Second)
	v.SetDefault("sms.rate_per_second", 5.0)
	v.SetDefault("sms.burst", 10)
	v.SetDefault("sms.max_message_size", 160)

	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.batch_size", 200)
	v.SetDefault("scheduler.ack_reminder_ceiling", 5)
	v.SetDefault("scheduler.start_reminder_ceiling", 3)
	v.SetDefault("scheduler.reminder_backoff", 15*time.Minute)

	v.SetDefault("recorder.alert_after", 5)
}

// LoadConfig reads config.yaml from the usual locations. A missing file is
// fine; defaults and environment variables still apply.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	return load(v)
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.applySecrets(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applySecrets() error {
	var s secrets
	if err := envconfig.Process("", &s); err != nil {
		return fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.SMTPPassword != "" {
		c.Email.SMTP.Password = s.SMTPPassword
	}
	if s.ResendAPIKey != "" {
		c.Email.Resend.APIKey = s.ResendAPIKey
	}
	if s.SMSAPIKey != "" {
		c.SMS.APIKey = s.SMSAPIKey
	}
	return nil
}

// Validate checks the struct tags on every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
