// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	SinkLog   = "log"
	SinkKafka = "kafka"
	SinkMail  = "mail"
)

type Config struct {
	HTTPAddr string `env:"MOMENTS_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"MOMENTS_LOG_LEVEL" envDefault:"info"`

	MySQLDSN    string `env:"MOMENTS_MYSQL_DSN" envDefault:"user:password@tcp(127.0.0.1:3306)/moments?charset=utf8mb4&parseTime=True"`
	AutoMigrate bool   `env:"MOMENTS_AUTO_MIGRATE" envDefault:"true"`

	RedisAddr     string        `env:"MOMENTS_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string        `env:"MOMENTS_REDIS_PASSWORD"`
	RedisDB       int           `env:"MOMENTS_REDIS_DB" envDefault:"0"`
	RedisLocking  bool          `env:"MOMENTS_REDIS_LOCKING" envDefault:"true"`
	LockTTL       time.Duration `env:"MOMENTS_LOCK_TTL" envDefault:"5s"`
	LockWait      time.Duration `env:"MOMENTS_LOCK_WAIT" envDefault:"3s"`

	JWTAccessSecret string `env:"MOMENTS_JWT_ACCESS_SECRET"`

	NotifySink      string        `env:"MOMENTS_NOTIFY_SINK" envDefault:"log"`
	OutboxInterval  time.Duration `env:"MOMENTS_OUTBOX_INTERVAL" envDefault:"1s"`
	OutboxBatchSize int           `env:"MOMENTS_OUTBOX_BATCH_SIZE" envDefault:"200"`
	OutboxMaxRetry  int           `env:"MOMENTS_OUTBOX_MAX_RETRY" envDefault:"5"`

	KafkaBrokers []string `env:"MOMENTS_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"MOMENTS_KAFKA_TOPIC" envDefault:"moment-notifications"`

	SMTPHost     string `env:"MOMENTS_SMTP_HOST"`
	SMTPPort     int    `env:"MOMENTS_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"MOMENTS_SMTP_USERNAME"`
	SMTPPassword string `env:"MOMENTS_SMTP_PASSWORD"`
	SMTPFrom     string `env:"MOMENTS_SMTP_FROM"`

	PublicBaseURL string `env:"MOMENTS_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load 先尝试读取 .env（不存在时忽略），再解析环境变量
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTAccessSecret == "" {
		return errors.New("config: MOMENTS_JWT_ACCESS_SECRET is required")
	}
	switch c.NotifySink {
	case SinkLog:
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("config: MOMENTS_KAFKA_BROKERS is required for the kafka sink")
		}
	case SinkMail:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return errors.New("config: MOMENTS_SMTP_HOST and MOMENTS_SMTP_FROM are required for the mail sink")
		}
	default:
		return fmt.Errorf("config: unknown notify sink %q", c.NotifySink)
	}
	if c.OutboxBatchSize <= 0 {
		return errors.New("config: MOMENTS_OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
