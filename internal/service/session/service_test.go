package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chessboard/internal/board"
)

func newRedisService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb, err := DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	svc, err := NewService(NewRedisStore(rdb, time.Hour), NewMemoryRepository(), Config{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, mr
}

func newMemoryService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore(time.Hour), nil, Config{}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func clickMoves(t *testing.T, svc *Service, id string, moves ...string) *State {
	t.Helper()
	var st *State
	for _, mv := range moves {
		var (
			res board.ClickResult
			err error
		)
		if _, res, err = svc.Click(context.Background(), id, mv[:2]); err != nil || res != board.Selected {
			t.Fatalf("click %s: %s %v", mv[:2], res, err)
		}
		if st, res, err = svc.Click(context.Background(), id, mv[2:4]); err != nil || res != board.Moved {
			t.Fatalf("click %s: %s %v", mv[2:4], res, err)
		}
	}
	return st
}

func TestSelectionSurvivesReload(t *testing.T) {
	svc, _ := newRedisService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.Snapshot.Status.String() != "White to move" {
		t.Fatalf("status %q", st.Snapshot.Status)
	}

	st, res, err := svc.Click(ctx, st.ID, "e2")
	if err != nil || res != board.Selected {
		t.Fatalf("click: %s %v", res, err)
	}
	if !st.Snapshot.IsLegalTarget("e4") {
		t.Fatalf("targets %v", st.Snapshot.LegalTargets)
	}

	got, err := svc.Get(ctx, st.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Snapshot.Selected != "e2" || len(got.Snapshot.LegalTargets) != len(st.Snapshot.LegalTargets) {
		t.Fatalf("selection lost: %q %v", got.Snapshot.Selected, got.Snapshot.LegalTargets)
	}

	st, res, err = svc.Click(ctx, st.ID, "e4")
	if err != nil || res != board.Moved {
		t.Fatalf("move: %s %v", res, err)
	}
	if st.Snapshot.LastMove == nil || st.Snapshot.LastMove.To != "e4" {
		t.Fatalf("last move %+v", st.Snapshot.LastMove)
	}
	if st.Snapshot.Status.String() != "Black to move" {
		t.Fatalf("status %q", st.Snapshot.Status)
	}
}

func TestUndoJumpReset(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := st.ID
	clickMoves(t, svc, id, "e2e4", "e7e5", "g1f3")

	st, err = svc.Undo(ctx, id)
	if err != nil || len(st.Snapshot.History) != 2 {
		t.Fatalf("undo: %v %d", err, len(st.Snapshot.History))
	}
	st, err = svc.JumpTo(ctx, id, 0)
	if err != nil || len(st.Snapshot.History) != 1 || st.Snapshot.Status.String() != "Black to move" {
		t.Fatalf("jump: %v %+v", err, st.Snapshot.Status)
	}
	st, err = svc.Reset(ctx, id)
	if err != nil || len(st.Snapshot.History) != 0 || st.Snapshot.LastMove != nil {
		t.Fatalf("reset: %v", err)
	}
}

func TestFinishedGameArchivedOnce(t *testing.T) {
	svc, _ := newRedisService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := st.ID
	st = clickMoves(t, svc, id, "f2f3", "e7e5", "g2g4", "d8h4")
	if st.Snapshot.Status.String() != "Checkmate!" {
		t.Fatalf("status %q", st.Snapshot.Status)
	}
	if st.GameID == 0 {
		t.Fatalf("expected archived game id")
	}

	// Undo then replay the mate: same move list, archived only once.
	if _, err := svc.Undo(ctx, id); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	st = clickMoves(t, svc, id, "d8h4")
	if st.GameID != 0 {
		t.Fatalf("duplicate archive: %d", st.GameID)
	}

	games, err := svc.RecentGames(ctx, 0)
	if err != nil || len(games) != 1 {
		t.Fatalf("recent games: %v %d", err, len(games))
	}
	g := games[0]
	if g.Result != "0-1" || g.ResultMethod != "checkmate" || g.Plies() != 4 || g.MovesSAN[3] != "Qh4#" {
		t.Fatalf("archived %+v", g)
	}

	byID, err := svc.Game(ctx, g.ID)
	if err != nil || byID.SessionUUID != id {
		t.Fatalf("Game: %v %+v", err, byID)
	}
	if _, err := svc.Game(ctx, 999); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	bySession, err := svc.SessionGames(ctx, id, 5)
	if err != nil || len(bySession) != 1 {
		t.Fatalf("session games: %v %d", err, len(bySession))
	}
}

func TestFlipAndPromotion(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.Flip || st.Promotion != board.Queen {
		t.Fatalf("defaults %v %s", st.Flip, st.Promotion)
	}
	st, err = svc.Flip(ctx, st.ID)
	if err != nil || !st.Flip {
		t.Fatalf("flip: %v", err)
	}
	st, err = svc.SetPromotion(ctx, st.ID, "n")
	if err != nil || st.Promotion != board.Knight {
		t.Fatalf("promotion: %v %s", err, st.Promotion)
	}
	if _, err := svc.SetPromotion(ctx, st.ID, "king"); !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}

	got, err := svc.Get(ctx, st.ID)
	if err != nil || !got.Flip || got.Promotion != board.Knight {
		t.Fatalf("settings not persisted: %v %+v", err, got)
	}
}

func TestPGNAndOpening(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	st = clickMoves(t, svc, st.ID, "e2e4", "c7c5")
	if st.ECOCode == "" || st.FEN == "" {
		t.Fatalf("expected opening and fen: %+v", st)
	}
	pgn, err := svc.PGN(ctx, st.ID)
	if err != nil {
		t.Fatalf("PGN: %v", err)
	}
	if pgn == "" {
		t.Fatalf("empty pgn")
	}
}

func TestErrors(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, _, err := svc.Click(ctx, "missing", "e2"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := svc.Click(ctx, st.ID, "z9"); !errors.Is(err, board.ErrInvalidSquare) {
		t.Fatalf("expected ErrInvalidSquare, got %v", err)
	}
	if err := svc.Delete(ctx, st.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, st.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}

func TestRedisSessionExpires(t *testing.T) {
	svc, mr := newRedisService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := svc.Get(ctx, st.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	if err := store.Create(ctx, &Payload{ID: "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, &Payload{ID: "a"}); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("opts %+v", opts)
	}
	opts, err = ParseRedisURL("redis://cache")
	if err != nil || opts.Addr != "cache:6379" {
		t.Fatalf("default port: %v %+v", err, opts)
	}
	if _, err := ParseRedisURL("http://cache"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
