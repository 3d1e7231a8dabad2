package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_STORE", "QUEUE_DRIVER", "TOKEN_EXPIRY_DAYS", "DISPLAY_TIMEZONE", "DATABASE_URL", "DB_USER", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.App.Port)
	}
	if cfg.Database.Store != StoreMemory || cfg.Queue.Driver != QueueMemory {
		t.Errorf("expected memory store and queue, got %s/%s", cfg.Database.Store, cfg.Queue.Driver)
	}
	if cfg.Flow.TokenExpiry != 90*24*time.Hour {
		t.Errorf("expected 90 day expiry, got %v", cfg.Flow.TokenExpiry)
	}
	if cfg.App.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected 10s shutdown timeout, got %v", cfg.App.ShutdownTimeout)
	}
	if cfg.Flow.DisplayLocation.String() != "Asia/Tokyo" {
		t.Errorf("expected Asia/Tokyo, got %s", cfg.Flow.DisplayLocation)
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("DATA_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for postgres store without DSN")
	}
}

func TestLoadRejectsUnknownQueue(t *testing.T) {
	t.Setenv("QUEUE_DRIVER", "kafka")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown queue driver")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", Name: "db"}
	if got := c.DSN(); got != "postgres://u:p@h:5432/db?sslmode=disable" {
		t.Errorf("unexpected DSN %s", got)
	}
	c.URL = "postgres://x"
	if got := c.DSN(); got != "postgres://x" {
		t.Errorf("expected DATABASE_URL to win, got %s", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	if got := getEnvAsDuration("SHUTDOWN_TIMEOUT", time.Second); got != 3*time.Second {
		t.Errorf("expected 3s, got %v", got)
	}
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	if got := getEnvAsDuration("SHUTDOWN_TIMEOUT", time.Second); got != time.Second {
		t.Errorf("expected fallback, got %v", got)
	}
}
