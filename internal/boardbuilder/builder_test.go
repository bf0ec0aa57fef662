package boardbuilder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/config"
	"github.com/park285/chessboard/internal/service/session"
)

func TestNewInMemory(t *testing.T) {
	cfg := &config.AppConfig{ListenAddr: ":0", SessionTTL: time.Hour, HistoryLimit: 10, DefaultPromotion: board.Rook}
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if _, ok := d.Store.(*session.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", d.Store)
	}
	st, err := d.Service.Create(context.Background())
	if err != nil || st.Promotion != board.Rook {
		t.Fatalf("create: %+v %v", st, err)
	}
	resp, err := d.Server.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
}

func TestNewWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := &config.AppConfig{ListenAddr: ":0", RedisURL: "redis://" + mr.Addr(), SessionTTL: time.Minute}
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Shutdown(context.Background())
	if _, ok := d.Store.(*session.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", d.Store)
	}
	st, err := d.Service.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ttl := mr.TTL("board:session:" + st.ID); ttl != time.Minute {
		t.Fatalf("ttl %v", ttl)
	}
}

func TestNewRejectsBadRedis(t *testing.T) {
	cfg := &config.AppConfig{RedisURL: "http://nope"}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected redis url error")
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected nil config error")
	}
}
