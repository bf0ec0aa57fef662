package board_test

import (
	"testing"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/rules"
)

func newView(t *testing.T) *board.View {
	t.Helper()
	return board.NewView(rules.Factory)
}

func play(t *testing.T, v *board.View, uci ...string) {
	t.Helper()
	for _, mv := range uci {
		e, err := board.ParseUCI(mv)
		if err != nil {
			t.Fatalf("parse %s: %v", mv, err)
		}
		if r := v.Click(e.From); r != board.Selected {
			t.Fatalf("click %s: got %s want selected", e.From, r)
		}
		if r := v.Click(e.To); r != board.Moved {
			t.Fatalf("click %s: got %s want moved", e.To, r)
		}
	}
}

func hasSquare(list []board.Square, sq board.Square) bool {
	for _, s := range list {
		if s == sq {
			return true
		}
	}
	return false
}

func TestInitialState(t *testing.T) {
	v := newView(t)
	snap := v.Snapshot()
	if snap.Selected != board.NoSquare || len(snap.LegalTargets) != 0 {
		t.Fatalf("expected empty selection, got %q %v", snap.Selected, snap.LegalTargets)
	}
	if snap.LastMove != nil {
		t.Fatalf("expected no last move")
	}
	if len(snap.History) != 0 {
		t.Fatalf("expected empty history")
	}
	if got := snap.Status.String(); got != "White to move" {
		t.Fatalf("status: %q", got)
	}
	if p := snap.Board.At("e1"); p.Type != board.King || p.Color != board.White {
		t.Fatalf("e1: %+v", p)
	}
}

func TestSelectAndMovePawn(t *testing.T) {
	v := newView(t)
	if r := v.Click("e2"); r != board.Selected {
		t.Fatalf("click e2: %s", r)
	}
	targets := v.LegalTargets()
	if !hasSquare(targets, "e3") || !hasSquare(targets, "e4") {
		t.Fatalf("targets %v", targets)
	}
	if r := v.Click("e4"); r != board.Moved {
		t.Fatalf("click e4: %s", r)
	}
	lm := v.LastMove()
	if lm == nil || lm.From != "e2" || lm.To != "e4" {
		t.Fatalf("last move %+v", lm)
	}
	h := v.History()
	if len(h) != 1 || h[0].SAN != "e4" || h[0].UCI != "e2e4" || h[0].Color != board.White || h[0].Piece != board.Pawn {
		t.Fatalf("history %+v", h)
	}
	if v.Selected() != board.NoSquare || len(v.LegalTargets()) != 0 {
		t.Fatalf("selection not cleared")
	}
	if got := v.Status().String(); got != "Black to move" {
		t.Fatalf("status %q", got)
	}
}

func TestClickIgnoredWhenIdle(t *testing.T) {
	v := newView(t)
	for _, sq := range []board.Square{"e4", "e7", "a8", "zz"} {
		if r := v.Click(sq); r != board.Ignored {
			t.Fatalf("click %s: %s", sq, r)
		}
		if v.Selected() != board.NoSquare {
			t.Fatalf("selection changed on %s", sq)
		}
	}
}

func TestReclickDeselects(t *testing.T) {
	v := newView(t)
	v.Click("g1")
	if r := v.Click("g1"); r != board.Deselected {
		t.Fatalf("reclick: %s", r)
	}
	if v.Selected() != board.NoSquare || v.LegalTargets() != nil {
		t.Fatalf("expected cleared selection")
	}
}

func TestReselectOwnPiece(t *testing.T) {
	v := newView(t)
	v.Click("e2")
	if r := v.Click("g1"); r != board.Reselected {
		t.Fatalf("reselect: %s", r)
	}
	if v.Selected() != "g1" {
		t.Fatalf("selected %q", v.Selected())
	}
	targets := v.LegalTargets()
	if !hasSquare(targets, "f3") || !hasSquare(targets, "h3") || len(targets) != 2 {
		t.Fatalf("knight targets %v", targets)
	}
}

func TestNonTargetClickKeepsSelection(t *testing.T) {
	v := newView(t)
	v.Click("e2")
	if r := v.Click("e5"); r != board.Ignored {
		t.Fatalf("click e5: %s", r)
	}
	if r := v.Click("d7"); r != board.Ignored {
		t.Fatalf("click opponent piece: %s", r)
	}
	if v.Selected() != "e2" {
		t.Fatalf("selection lost: %q", v.Selected())
	}
	if len(v.History()) != 0 {
		t.Fatalf("no move expected")
	}
}

func TestPieceWithoutMovesHasEmptyTargets(t *testing.T) {
	v := newView(t)
	if r := v.Click("a1"); r != board.Selected {
		t.Fatalf("click a1: %s", r)
	}
	if len(v.LegalTargets()) != 0 {
		t.Fatalf("rook should have no moves")
	}
}

func TestFoolsMate(t *testing.T) {
	v := newView(t)
	play(t, v, "f2f3", "e7e5", "g2g4", "d8h4")
	st := v.Status()
	if st.String() != "Checkmate!" || !st.Finished() || st.Result() != "0-1" {
		t.Fatalf("status %q finished=%v result=%s", st, st.Finished(), st.Result())
	}
	for _, sq := range []board.Square{"e1", "a2", "b1"} {
		if r := v.Click(sq); r != board.Selected {
			continue
		}
		if len(v.LegalTargets()) != 0 {
			t.Fatalf("mated side has moves from %s", sq)
		}
		v.Click(sq)
	}
}

func TestCheckStatus(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4", "f7f6", "d1h5")
	if got := v.Status().String(); got != "Check!" {
		t.Fatalf("status %q", got)
	}
}

func TestStalemateStatus(t *testing.T) {
	v := newView(t)
	play(t, v,
		"e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5", "h2h4", "a6h6",
		"a5c7", "f7f6", "c7d7", "e8f7", "d7b7", "d8d3", "b7b8", "d3h7",
		"b8c8", "f7g6", "c8e6",
	)
	st := v.Status()
	if st.String() != "Stalemate." || st.Result() != "1/2-1/2" {
		t.Fatalf("status %q", st)
	}
}

func TestThreefoldStatus(t *testing.T) {
	v := newView(t)
	play(t, v, "g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8")
	if got := v.Status().String(); got != "Threefold Rep." {
		t.Fatalf("status %q", got)
	}
}

func TestUndoSingleMove(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4")
	v.Undo()
	if len(v.History()) != 0 || v.LastMove() != nil {
		t.Fatalf("undo did not return to start")
	}
	if v.Status().String() != "White to move" {
		t.Fatalf("status %q", v.Status())
	}
	if p := v.Snapshot().Board.At("e2"); p.Type != board.Pawn {
		t.Fatalf("pawn not restored")
	}
}

func TestUndoRemovesOnePly(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4", "e7e5", "g1f3")
	v.Undo()
	h := v.History()
	if len(h) != 2 || h[1].UCI != "e7e5" {
		t.Fatalf("history %+v", h)
	}
	lm := v.LastMove()
	if lm == nil || lm.From != "e7" || lm.To != "e5" {
		t.Fatalf("last move %+v", lm)
	}
}

func TestUndoEmptyClearsSelection(t *testing.T) {
	v := newView(t)
	v.Click("e2")
	v.Undo()
	if v.Selected() != board.NoSquare || len(v.LegalTargets()) != 0 {
		t.Fatalf("selection %q targets %v", v.Selected(), v.LegalTargets())
	}
	if len(v.History()) != 0 || v.LastMove() != nil || v.Status().String() != "White to move" {
		t.Fatalf("undo on empty history changed the position")
	}
}

func TestJumpTo(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4", "e7e5", "g1f3", "b8c6")
	v.JumpTo(1)
	h := v.History()
	if len(h) != 2 || v.Status().String() != "White to move" {
		t.Fatalf("jump: %d %q", len(h), v.Status())
	}
	if lm := v.LastMove(); lm == nil || lm.To != "e5" {
		t.Fatalf("last move %+v", lm)
	}

	before := v.Snapshot()
	v.JumpTo(1)
	after := v.Snapshot()
	if before.Board != after.Board || len(before.History) != len(after.History) {
		t.Fatalf("jump to current ply changed state")
	}
}

func TestJumpToClamps(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4", "e7e5")
	v.JumpTo(10)
	if len(v.History()) != 2 {
		t.Fatalf("clamp high: %d", len(v.History()))
	}
	v.JumpTo(-5)
	if len(v.History()) != 0 || v.LastMove() != nil {
		t.Fatalf("clamp low: %d", len(v.History()))
	}
}

func TestJumpClearsSelection(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4", "e7e5")
	v.Click("d2")
	v.JumpTo(0)
	if v.Selected() != board.NoSquare || len(v.LegalTargets()) != 0 {
		t.Fatalf("selection survived jump")
	}
}

func TestReset(t *testing.T) {
	v := newView(t)
	play(t, v, "e2e4", "e7e5")
	v.Click("g1")
	v.Reset()
	snap := v.Snapshot()
	if snap.Selected != board.NoSquare || snap.LastMove != nil || len(snap.History) != 0 {
		t.Fatalf("reset left state: %+v", snap)
	}
	if snap.Status.String() != "White to move" {
		t.Fatalf("status %q", snap.Status)
	}
}

func TestPromotionUsesPreference(t *testing.T) {
	line := []string{"a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "g8f6"}
	for _, tc := range []struct {
		promo board.PieceType
		want  string
	}{
		{board.Queen, "bxa8=Q"},
		{board.Knight, "bxa8=N"},
	} {
		v := board.NewView(rules.Factory, board.WithPromotion(tc.promo))
		play(t, v, line...)
		play(t, v, "b7a8")
		h := v.History()
		last := h[len(h)-1]
		if last.Promotion != tc.promo || last.SAN != tc.want {
			t.Fatalf("promotion %s: got %+v", tc.promo, last)
		}
	}
}

func TestSetPromotionRejectsKing(t *testing.T) {
	v := newView(t)
	v.SetPromotion(board.King)
	if v.Promotion() != board.Queen {
		t.Fatalf("promotion changed to %s", v.Promotion())
	}
	v.SetPromotion(board.Rook)
	if v.Promotion() != board.Rook {
		t.Fatalf("promotion %s", v.Promotion())
	}
}

func TestLoadStopsAtIllegalEntry(t *testing.T) {
	v := newView(t)
	var entries []board.HistoryEntry
	for _, mv := range []string{"e2e4", "e7e5", "e4e5", "g1f3"} {
		e, err := board.ParseUCI(mv)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		entries = append(entries, e)
	}
	v.Load(entries)
	if len(v.History()) != 2 {
		t.Fatalf("expected replay to stop at e4e5, got %d", len(v.History()))
	}
	if lm := v.LastMove(); lm == nil || lm.To != "e5" {
		t.Fatalf("last move %+v", lm)
	}
}

func TestLastMoveMatchesHistory(t *testing.T) {
	v := newView(t)
	moves := []string{"d2d4", "d7d5", "c2c4", "d5c4", "e2e3"}
	for i := range moves {
		play(t, v, moves[i])
		h := v.History()
		lm := v.LastMove()
		if lm == nil || lm.From != h[len(h)-1].From || lm.To != h[len(h)-1].To {
			t.Fatalf("ply %d: last move %+v vs %+v", i, lm, h[len(h)-1])
		}
	}
}
