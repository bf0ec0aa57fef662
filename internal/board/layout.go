package board

// Layout is the display order of ranks and files. Flipping never changes
// square identifiers, only the order they are iterated in.
type Layout struct {
	Flip  bool
	Files [8]int
	Ranks [8]int
}

func NewLayout(flip bool) Layout {
	l := Layout{Flip: flip}
	for i := 0; i < 8; i++ {
		if flip {
			l.Files[i] = 7 - i
			l.Ranks[i] = i
		} else {
			l.Files[i] = i
			l.Ranks[i] = 7 - i
		}
	}
	return l
}

// Rows returns squares top row first, left to right.
func (l Layout) Rows() [8][8]Square {
	var rows [8][8]Square
	for r, rank := range l.Ranks {
		for f, file := range l.Files {
			rows[r][f] = SquareAt(file, rank)
		}
	}
	return rows
}

// Position returns the display row and column of a square.
func (l Layout) Position(sq Square) (row, col int) {
	if l.Flip {
		return sq.Rank(), 7 - sq.File()
	}
	return 7 - sq.Rank(), sq.File()
}
