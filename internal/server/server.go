// Package server exposes board sessions over HTTP, an HTML page and a WebSocket feed.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/msgcat"
	"github.com/park285/chessboard/internal/render"
	"github.com/park285/chessboard/internal/service/session"
)

type Deps struct {
	Service        *session.Service
	Renderer       render.BoardRenderer
	Catalog        *msgcat.Catalog
	Logger         *zap.Logger
	AllowedOrigins []string
	// Redis, when set, relays WebSocket frames between instances.
	Redis *redis.Client
}

type Server struct {
	app      *fiber.App
	svc      *session.Service
	renderer render.BoardRenderer
	cat      *msgcat.Catalog
	logger   *zap.Logger
	hub      *Hub
	relay    *Relay
}

func New(d Deps) (*Server, error) {
	if d.Service == nil {
		return nil, fmt.Errorf("board service is required")
	}
	if d.Renderer == nil {
		d.Renderer = render.NewSVGBoardRenderer()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	s := &Server{
		svc:      d.Service,
		renderer: d.Renderer,
		cat:      d.Catalog,
		logger:   d.Logger,
		hub:      NewHub(d.Logger),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "chessboard",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		// Params and form values outlive the request in stores and the hub.
		Immutable:             true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	origins := "*"
	if len(d.AllowedOrigins) > 0 {
		origins = strings.Join(d.AllowedOrigins, ", ")
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	s.app.Use(requestLogger(s.logger))

	s.routes()

	if d.Redis != nil {
		s.relay = NewRelay(d.Redis, s.hub, s.logger)
		ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
		err := s.relay.Start(ctx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("start ws relay: %w", err)
		}
	}
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/play", fiber.StatusSeeOther) })
	s.app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	api := s.app.Group("/api")
	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.deleteSession)
	api.Post("/sessions/:id/click", s.click)
	api.Post("/sessions/:id/reset", s.reset)
	api.Post("/sessions/:id/undo", s.undo)
	api.Post("/sessions/:id/jump", s.jump)
	api.Post("/sessions/:id/flip", s.flip)
	api.Post("/sessions/:id/promotion", s.promotion)
	api.Get("/sessions/:id/pgn", s.pgn)
	api.Get("/sessions/:id/board.png", s.boardImage)
	api.Get("/sessions/:id/games", s.sessionGames)
	api.Get("/games", s.recentGames)
	api.Get("/games/:id", s.game)

	play := s.app.Group("/play")
	play.Get("/", s.newPage)
	play.Get("/:id", s.page)
	play.Post("/:id/click", s.pageClick)
	play.Post("/:id/reset", s.pageReset)
	play.Post("/:id/undo", s.pageUndo)
	play.Post("/:id/jump", s.pageJump)
	play.Post("/:id/flip", s.pageFlip)
	play.Post("/:id/promotion", s.pagePromotion)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	s.app.Get("/ws/sessions/:id", websocket.New(s.watch, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}))
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

// Hub exposes the broadcast hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Listen(addr string) error {
	s.logger.Info("board server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.relay != nil {
		if err := s.relay.Close(); err != nil {
			s.logger.Warn("ws relay close", zap.Error(err))
		}
	}
	s.hub.Close()
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status, _ = classify(err)
		}
		logger.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		)
		return err
	}
}
