package board

import (
	"go.uber.org/zap"
)

// ClickResult names the transition a click produced.
type ClickResult uint8

const (
	Ignored ClickResult = iota
	Deselected
	Selected
	Moved
	Reselected
)

func (r ClickResult) String() string {
	switch r {
	case Deselected:
		return "deselected"
	case Selected:
		return "selected"
	case Moved:
		return "moved"
	case Reselected:
		return "reselected"
	default:
		return "ignored"
	}
}

// Snapshot is a consistent read of the view after the latest event.
type Snapshot struct {
	Board        Grid
	Turn         Color
	Selected     Square
	LegalTargets []Square
	LastMove     *LastMove
	History      []HistoryEntry
	Status       Status
}

// IsLegalTarget reports whether sq is highlighted as a destination.
func (s Snapshot) IsLegalTarget(sq Square) bool {
	for _, t := range s.LegalTargets {
		if t == sq {
			return true
		}
	}
	return false
}

// View is the click driven selection, move and history state machine.
// It owns its oracle exclusively and is not safe for concurrent use.
type View struct {
	factory   Factory
	oracle    Oracle
	selected  Square
	targets   []Square
	lastMove  *LastMove
	promotion PieceType
	logger    *zap.Logger
}

type Option func(*View)

func WithLogger(logger *zap.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithPromotion sets the piece used when a click completes a promotion.
func WithPromotion(p PieceType) Option {
	return func(v *View) { v.SetPromotion(p) }
}

// NewView mounts a view on a fresh oracle at the starting position.
func NewView(factory Factory, opts ...Option) *View {
	v := &View{
		factory:   factory,
		oracle:    factory(),
		promotion: Queen,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetPromotion ignores piece types a pawn cannot promote to.
func (v *View) SetPromotion(p PieceType) {
	switch p {
	case Queen, Rook, Bishop, Knight:
		v.promotion = p
	}
}

func (v *View) Promotion() PieceType { return v.promotion }

// Click feeds one square click through the state machine.
func (v *View) Click(sq Square) ClickResult {
	if !sq.Valid() {
		return Ignored
	}
	if v.selected != NoSquare && v.selected == sq {
		v.clearSelection()
		return Deselected
	}

	piece, ok := v.oracle.Get(sq)
	ownPiece := ok && !piece.Empty() && piece.Color == v.oracle.Turn()

	if v.selected == NoSquare && ownPiece {
		v.selectSquare(sq)
		return Selected
	}

	if v.selected != NoSquare && v.isTarget(sq) {
		from := v.selected
		entry, applied := v.oracle.Move(from, sq, v.promotion)
		if !applied {
			v.logger.Warn("oracle rejected highlighted move",
				zap.String("from", from.String()),
				zap.String("to", sq.String()),
			)
			return Ignored
		}
		v.lastMove = &LastMove{From: entry.From, To: entry.To}
		v.clearSelection()
		return Moved
	}

	if ownPiece {
		v.selectSquare(sq)
		return Reselected
	}
	return Ignored
}

// Reset discards the oracle and starts over from the initial position.
func (v *View) Reset() {
	v.oracle = v.factory()
	v.lastMove = nil
	v.clearSelection()
}

// JumpTo rebuilds the position after ply k (zero-based) by replaying the
// first k+1 history entries into a fresh oracle. k < 0 means no moves.
func (v *View) JumpTo(k int) {
	history := v.oracle.History()
	if k >= len(history) {
		k = len(history) - 1
	}
	if k < 0 {
		k = -1
	}
	v.Load(history[:k+1])
}

// Undo jumps to the ply before the last one. Like every jump it clears
// the selection, even when no move has been played.
func (v *View) Undo() {
	v.JumpTo(len(v.oracle.History()) - 2)
}

// Load replaces the oracle with one rebuilt from entries. LastMove becomes
// the final replayed entry.
func (v *View) Load(entries []HistoryEntry) {
	oracle, applied := Replay(v.factory, entries)
	if applied < len(entries) {
		v.logger.Warn("history replay stopped early",
			zap.Int("applied", applied),
			zap.Int("requested", len(entries)),
			zap.String("rejected_uci", entries[applied].UCI),
		)
	}
	v.oracle = oracle
	v.lastMove = nil
	if applied > 0 {
		last := entries[applied-1]
		v.lastMove = &LastMove{From: last.From, To: last.To}
	}
	v.clearSelection()
}

func (v *View) Selected() Square { return v.selected }

func (v *View) LegalTargets() []Square { return append([]Square(nil), v.targets...) }

func (v *View) LastMove() *LastMove {
	if v.lastMove == nil {
		return nil
	}
	lm := *v.lastMove
	return &lm
}

func (v *View) History() []HistoryEntry { return v.oracle.History() }

// Status is recomputed from the oracle on every call.
func (v *View) Status() Status { return DeriveStatus(v.oracle) }

func (v *View) Snapshot() Snapshot {
	return Snapshot{
		Board:        v.oracle.Board(),
		Turn:         v.oracle.Turn(),
		Selected:     v.selected,
		LegalTargets: v.LegalTargets(),
		LastMove:     v.LastMove(),
		History:      v.oracle.History(),
		Status:       DeriveStatus(v.oracle),
	}
}

func (v *View) selectSquare(sq Square) {
	v.selected = sq
	v.targets = v.oracle.Moves(sq)
}

func (v *View) clearSelection() {
	v.selected = NoSquare
	v.targets = nil
}

func (v *View) isTarget(sq Square) bool {
	for _, t := range v.targets {
		if t == sq {
			return true
		}
	}
	return false
}
