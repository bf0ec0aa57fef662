package boardclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/chessboard/internal/server"
	"github.com/park285/chessboard/internal/service/session"
	"github.com/park285/chessboard/pkg/boarddto"
)

func startServer(t *testing.T) string {
	t.Helper()
	svc, err := session.NewService(session.NewMemoryStore(time.Hour), nil, session.Config{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	srv, err := server.New(server.Deps{Service: svc})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.App().Listener(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return "http://" + ln.Addr().String()
}

func TestClientRoundTrip(t *testing.T) {
	base := startServer(t)
	c := NewClient(base, WithTimeout(5*time.Second))
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	st, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r, err := c.Click(ctx, st.ID, "e2"); err != nil || r.Result != "selected" {
		t.Fatalf("click e2: %+v %v", r, err)
	}
	if r, err := c.Click(ctx, st.ID, "e4"); err != nil || r.Result != "moved" {
		t.Fatalf("click e4: %+v %v", r, err)
	}
	got, err := c.GetSession(ctx, st.ID)
	if err != nil || len(got.History) != 1 || got.History[0].SAN != "e4" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if got, err = c.Flip(ctx, st.ID); err != nil || !got.Flip {
		t.Fatalf("flip: %v", err)
	}
	if got, err = c.Undo(ctx, st.ID); err != nil || len(got.History) != 0 {
		t.Fatalf("undo: %v", err)
	}
	pgn, err := c.PGN(ctx, st.ID)
	if err != nil || pgn == "" {
		t.Fatalf("pgn: %q %v", pgn, err)
	}
	img, err := c.BoardPNG(ctx, st.ID, 24)
	if err != nil || len(img) < 8 || string(img[1:4]) != "PNG" {
		t.Fatalf("png: %d bytes %v", len(img), err)
	}
	if _, err := c.SetPromotion(ctx, st.ID, "king"); err == nil {
		t.Fatalf("expected rejected promotion")
	}
	if games, err := c.RecentGames(ctx, 5); err != nil || len(games) != 0 {
		t.Fatalf("recent games: %v %v", games, err)
	}

	if err := c.DeleteSession(ctx, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetSession(ctx, st.ID); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientRetriesReads(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetry(3))
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health after retries: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls %d", n)
	}

	atomic.StoreInt32(&calls, 0)
	if _, err := c.CreateSession(context.Background()); err == nil {
		t.Fatalf("writes must not be retried into success")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("write attempts %d", n)
	}
}

func TestWatchURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":  "ws://localhost:8080/ws/sessions/abc",
		"https://board.example/": "wss://board.example/ws/sessions/abc",
		"http://host/prefix":     "ws://host/prefix/ws/sessions/abc",
	}
	for in, want := range cases {
		got, err := WatchURL(in, "abc")
		if err != nil || got != want {
			t.Fatalf("%s: %q %v want %q", in, got, err, want)
		}
	}
	if _, err := WatchURL("ftp://x", "abc"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestWatcherFollowsSession(t *testing.T) {
	base := startServer(t)
	c := NewClient(base)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wsURL, err := WatchURL(base, st.ID)
	if err != nil {
		t.Fatalf("WatchURL: %v", err)
	}

	frames := make(chan boarddto.Message, 8)
	states := make(chan WatchState, 8)
	w := NewWatcher(wsURL, 0)
	w.OnMessage(func(m *boarddto.Message) { frames <- *m })
	w.OnStateChange(func(s WatchState) { states <- s })
	if err := w.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer w.Close(context.Background())

	next := func() boarddto.Message {
		t.Helper()
		select {
		case m := <-frames:
			return m
		case <-ctx.Done():
			t.Fatalf("timed out waiting for frame")
		}
		return boarddto.Message{}
	}
	if m := next(); m.Type != boarddto.MessageTypeState {
		t.Fatalf("initial frame %s", m.Type)
	}
	if err := w.Click(ctx, "g1"); err != nil {
		t.Fatalf("ws click: %v", err)
	}
	if m := next(); m.Type != boarddto.MessageTypeState {
		t.Fatalf("click frame %s", m.Type)
	}

	if err := c.DeleteSession(ctx, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for {
		select {
		case s := <-states:
			if s == WatchDisconnected {
				if w.State() != WatchDisconnected {
					t.Fatalf("state %s", w.State())
				}
				return
			}
		case <-ctx.Done():
			t.Fatalf("watcher did not disconnect after delete")
		}
	}
}
