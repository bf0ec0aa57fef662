package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chessboard/internal/board"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	SessionTTL       time.Duration
	HistoryLimit     int
	DefaultPromotion board.PieceType
	BoardFlip        bool

	MessagesDir    string
	AllowedOrigins []string

	// BaseURL is where cmd/boardcheck finds the server.
	BaseURL string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":8080",
		SessionTTL:       24 * time.Hour,
		HistoryLimit:     20,
		DefaultPromotion: board.Queen,
		BaseURL:          "http://localhost:8080",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	if v := strings.TrimSpace(os.Getenv("BOARD_BASE_URL")); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = ttl
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if cfg.HistoryLimit > 100 {
		cfg.HistoryLimit = 100
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_PROMOTION")); v != "" {
		pt, err := board.ParsePieceType(v)
		if err != nil || pt == board.King || pt == board.Pawn {
			return nil, fmt.Errorf("DEFAULT_PROMOTION must be one of q, r, b, n: %q", v)
		}
		cfg.DefaultPromotion = pt
	}
	if v := strings.TrimSpace(os.Getenv("BOARD_FLIP")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.BoardFlip = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	return cfg, nil
}

// parseTTL accepts whole seconds ("3600") or a Go duration ("1h").
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, errors.New("must be positive")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}
