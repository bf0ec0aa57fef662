package boardbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/config"
	"github.com/park285/chessboard/internal/msgcat"
	"github.com/park285/chessboard/internal/render"
	"github.com/park285/chessboard/internal/server"
	"github.com/park285/chessboard/internal/service/session"
)

type Deps struct {
	Service  *session.Service
	Server   *server.Server
	Store    session.Store
	Repo     session.Repository
	Catalog  *msgcat.Catalog
	Renderer render.BoardRenderer

	redis *redis.Client
	db    *sql.DB
}

// New wires the board stack from config. Redis and Postgres are optional;
// without them sessions and the archive live in process memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	// Session store
	if cfg.RedisURL != "" {
		rdb, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.redis = rdb
		d.Store = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_URL not set; board sessions are kept in memory")
		d.Store = session.NewMemoryStore(cfg.SessionTTL)
	}

	// Archive
	if cfg.DatabaseURL != "" {
		db, err := session.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.db = db
		if err := session.EnsureSchema(ctx, db); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		d.Repo = session.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set; finished games are kept in memory")
		d.Repo = session.NewMemoryRepository()
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = cat
	d.Renderer = render.NewSVGBoardRenderer()

	svc, err := session.NewService(d.Store, d.Repo, session.Config{
		HistoryLimit:     cfg.HistoryLimit,
		DefaultPromotion: cfg.DefaultPromotion,
		DefaultFlip:      cfg.BoardFlip,
	}, logger)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.Service = svc

	srv, err := server.New(server.Deps{
		Service:        svc,
		Renderer:       d.Renderer,
		Catalog:        cat,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Redis:          d.redis,
	})
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.Server = srv
	return d, nil
}

// Shutdown stops the HTTP server and releases backing connections.
func (d *Deps) Shutdown(ctx context.Context) error {
	var errs []error
	if d.Server != nil {
		if err := d.Server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *Deps) Close() error {
	var errs []error
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
		d.redis = nil
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
		d.db = nil
	}
	return errors.Join(errs...)
}
