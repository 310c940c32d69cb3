package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MOMENTS_JWT_ACCESS_SECRET", "test-secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.NotifySink != SinkLog {
		t.Fatalf("expected log sink, got %q", cfg.NotifySink)
	}
	if cfg.LockTTL != 5*time.Second {
		t.Fatalf("expected 5s lock ttl, got %s", cfg.LockTTL)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("MOMENTS_JWT_ACCESS_SECRET", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil || !strings.Contains(err.Error(), "MOMENTS_JWT_ACCESS_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadFromDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "MOMENTS_HTTP_ADDR=:9999\nMOMENTS_NOTIFY_SINK=kafka\nMOMENTS_KAFKA_BROKERS=a:9092,b:9092\nMOMENTS_JWT_ACCESS_SECRET=from-dotenv\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MOMENTS_HTTP_ADDR")
		os.Unsetenv("MOMENTS_NOTIFY_SINK")
		os.Unsetenv("MOMENTS_KAFKA_BROKERS")
		os.Unsetenv("MOMENTS_JWT_ACCESS_SECRET")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected :9999, got %q", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.JWTAccessSecret != "from-dotenv" {
		t.Fatalf("expected secret from dotenv, got %q", cfg.JWTAccessSecret)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("MOMENTS_REDIS_DB", "not-an-int")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidateSinks(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"log", Config{NotifySink: SinkLog, OutboxBatchSize: 1, JWTAccessSecret: "k"}, false},
		{"missing secret", Config{NotifySink: SinkLog, OutboxBatchSize: 1}, true},
		{"kafka without brokers", Config{NotifySink: SinkKafka, OutboxBatchSize: 1, JWTAccessSecret: "k"}, true},
		{"kafka", Config{NotifySink: SinkKafka, KafkaBrokers: []string{"k:9092"}, OutboxBatchSize: 1, JWTAccessSecret: "k"}, false},
		{"mail without host", Config{NotifySink: SinkMail, OutboxBatchSize: 1, JWTAccessSecret: "k"}, true},
		{"mail", Config{NotifySink: SinkMail, SMTPHost: "smtp", SMTPFrom: "a@b", OutboxBatchSize: 1, JWTAccessSecret: "k"}, false},
		{"unknown", Config{NotifySink: "pigeon", OutboxBatchSize: 1, JWTAccessSecret: "k"}, true},
		{"zero batch", Config{NotifySink: SinkLog, JWTAccessSecret: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (Config{LogLevel: "DEBUG"}).SlogLevel(); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
	if got := (Config{LogLevel: "nonsense"}).SlogLevel(); got != slog.LevelInfo {
		t.Fatalf("expected info, got %v", got)
	}
}
