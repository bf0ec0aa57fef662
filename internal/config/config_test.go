package config

import (
	"testing"
	"time"

	"github.com/park285/chessboard/internal/board"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "REDIS_URL", "DATABASE_URL", "SESSION_TTL", "HISTORY_LIMIT",
		"DEFAULT_PROMOTION", "BOARD_FLIP", "MESSAGES_DIR", "ALLOWED_ORIGINS", "BOARD_BASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.SessionTTL != 24*time.Hour || cfg.HistoryLimit != 20 {
		t.Fatalf("defaults %+v", cfg)
	}
	if cfg.DefaultPromotion != board.Queen || cfg.BoardFlip || cfg.RedisURL != "" || len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("HISTORY_LIMIT", "500")
	t.Setenv("DEFAULT_PROMOTION", "N")
	t.Setenv("BOARD_FLIP", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("BOARD_BASE_URL", "http://board.test/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("addresses %+v", cfg)
	}
	if cfg.SessionTTL != 90*time.Minute || cfg.HistoryLimit != 100 {
		t.Fatalf("ttl/limit %v %d", cfg.SessionTTL, cfg.HistoryLimit)
	}
	if cfg.DefaultPromotion != board.Knight || !cfg.BoardFlip {
		t.Fatalf("board prefs %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" || cfg.BaseURL != "http://board.test" {
		t.Fatalf("origins/base %+v", cfg)
	}

	t.Setenv("SESSION_TTL", "120")
	if cfg, err = Load(); err != nil || cfg.SessionTTL != 2*time.Minute {
		t.Fatalf("seconds ttl %v %v", cfg, err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_PROMOTION", "k")
	if _, err := Load(); err == nil {
		t.Fatalf("expected promotion error")
	}
	t.Setenv("DEFAULT_PROMOTION", "")
	t.Setenv("SESSION_TTL", "-5")
	if _, err := Load(); err == nil {
		t.Fatalf("expected ttl error")
	}
	t.Setenv("SESSION_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected ttl parse error")
	}
}
