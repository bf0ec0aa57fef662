package server

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chessboard/pkg/boarddto"
)

func startRelay(t *testing.T, addr string) *Hub {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	hub := NewHub(nil)
	relay := NewRelay(rdb, hub, nil)
	if err := relay.Start(context.Background()); err != nil {
		t.Fatalf("relay start: %v", err)
	}
	t.Cleanup(func() { _ = relay.Close() })
	return hub
}

func TestRelayCrossesInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	a := startRelay(t, mr.Addr())
	b := startRelay(t, mr.Addr())

	local := a.Subscribe("s1")
	remote := b.Subscribe("s1")

	frame, _ := boarddto.NewMessage(boarddto.MessageTypeState, boarddto.Status{Kind: "check"})
	a.Publish("s1", frame)

	select {
	case got := <-local.C():
		if got.Type != boarddto.MessageTypeState {
			t.Fatalf("local frame %s", got.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("local frame missing")
	}
	select {
	case got := <-remote.C():
		if got.Type != boarddto.MessageTypeState || string(got.Payload) != string(frame.Payload) {
			t.Fatalf("remote frame %s %s", got.Type, got.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("remote frame missing")
	}
	// The origin never hears its own echo.
	select {
	case got, ok := <-local.C():
		t.Fatalf("unexpected echo %v %v", got, ok)
	case <-time.After(100 * time.Millisecond):
	}

	a.Drop("s1")
	select {
	case _, ok := <-remote.C():
		if ok {
			t.Fatalf("remote watcher should be closed after drop")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("drop did not reach remote instance")
	}
}
