package board

type StatusKind uint8

const (
	StatusToMove StatusKind = iota
	StatusCheck
	StatusThreefoldRepetition
	StatusInsufficientMaterial
	StatusStalemate
	StatusDraw
	StatusCheckmate
)

func (k StatusKind) Key() string {
	switch k {
	case StatusCheckmate:
		return "checkmate"
	case StatusDraw:
		return "draw"
	case StatusStalemate:
		return "stalemate"
	case StatusInsufficientMaterial:
		return "insufficient_material"
	case StatusThreefoldRepetition:
		return "threefold_repetition"
	case StatusCheck:
		return "check"
	default:
		return "to_move"
	}
}

// Status describes the current position. It is always derived from the
// oracle and never stored apart from the position it describes.
type Status struct {
	Kind StatusKind
	// Side is the side to move.
	Side Color
}

// DeriveStatus evaluates the oracle predicates in priority order.
func DeriveStatus(o Oracle) Status {
	side := o.Turn()
	switch {
	case o.IsCheckmate():
		return Status{Kind: StatusCheckmate, Side: side}
	case o.IsDraw():
		return Status{Kind: StatusDraw, Side: side}
	case o.IsStalemate():
		return Status{Kind: StatusStalemate, Side: side}
	case o.IsInsufficientMaterial():
		return Status{Kind: StatusInsufficientMaterial, Side: side}
	case o.IsThreefoldRepetition():
		return Status{Kind: StatusThreefoldRepetition, Side: side}
	case o.InCheck():
		return Status{Kind: StatusCheck, Side: side}
	default:
		return Status{Kind: StatusToMove, Side: side}
	}
}

func (s Status) String() string {
	switch s.Kind {
	case StatusCheckmate:
		return "Checkmate!"
	case StatusDraw:
		return "Draw."
	case StatusStalemate:
		return "Stalemate."
	case StatusInsufficientMaterial:
		return "Insufficient Material."
	case StatusThreefoldRepetition:
		return "Threefold Rep."
	case StatusCheck:
		return "Check!"
	default:
		return s.Side.String() + " to move"
	}
}

// Finished reports whether the position ends the game.
// Threefold repetition is claimable, not automatic, so play may continue.
func (s Status) Finished() bool {
	switch s.Kind {
	case StatusCheckmate, StatusDraw, StatusStalemate, StatusInsufficientMaterial:
		return true
	default:
		return false
	}
}

// Result returns the PGN result token for a finished status, "*" otherwise.
func (s Status) Result() string {
	switch s.Kind {
	case StatusCheckmate:
		if s.Side == White {
			return "0-1"
		}
		return "1-0"
	case StatusDraw, StatusStalemate, StatusInsufficientMaterial:
		return "1/2-1/2"
	default:
		return "*"
	}
}
