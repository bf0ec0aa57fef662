package board

// Oracle is the rules authority the view delegates to. Implementations own the
// position exclusively; the view only reads it and calls Move.
type Oracle interface {
	Board() Grid
	Turn() Color
	Get(sq Square) (Piece, bool)
	// Moves returns the distinct legal destinations from an origin square.
	Moves(from Square) []Square
	// Move applies from→to. promo is used only when the move is a promotion.
	// It reports false and leaves the position untouched when the move is illegal.
	Move(from, to Square, promo PieceType) (HistoryEntry, bool)
	History() []HistoryEntry

	IsCheckmate() bool
	IsDraw() bool
	IsStalemate() bool
	IsInsufficientMaterial() bool
	IsThreefoldRepetition() bool
	InCheck() bool
}

// Factory constructs an oracle at the standard starting position.
type Factory func() Oracle

// Replay builds a fresh oracle and applies entries in order. It returns the
// oracle and the number of entries applied; replay stops at the first entry
// the oracle rejects.
func Replay(factory Factory, entries []HistoryEntry) (Oracle, int) {
	o := factory()
	for i, e := range entries {
		if _, ok := o.Move(e.From, e.To, e.Promotion); !ok {
			return o, i
		}
	}
	return o, len(entries)
}
