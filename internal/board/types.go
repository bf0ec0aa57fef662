package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSquare = errors.New("invalid board square")
	ErrInvalidMove   = errors.New("invalid uci move")
	ErrInvalidPiece  = errors.New("invalid piece type")
)

const files = "abcdefgh"

// Square is a coordinate like "e2": file letter followed by rank digit.
type Square string

// NoSquare marks an empty selection.
const NoSquare Square = ""

// ParseSquare normalises and validates a square name. The result never
// shares memory with s.
func ParseSquare(s string) (Square, error) {
	sq := Square(strings.Clone(strings.ToLower(strings.TrimSpace(s))))
	if !sq.Valid() {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return sq, nil
}

// SquareAt builds a square from zero-based file and rank indexes.
func SquareAt(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square([]byte{files[file], byte('1' + rank)})
}

func (s Square) Valid() bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// File returns the zero-based file index (a=0).
func (s Square) File() int {
	if !s.Valid() {
		return -1
	}
	return int(s[0] - 'a')
}

// Rank returns the zero-based rank index (rank 1 = 0).
func (s Square) Rank() int {
	if !s.Valid() {
		return -1
	}
	return int(s[1] - '1')
}

// Light reports whether the square is a light square.
func (s Square) Light() bool {
	return (s.File()+s.Rank())%2 == 1
}

func (s Square) String() string { return string(s) }

type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "None"
	}
}

func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// Letter returns the lowercase SAN/UCI letter of the piece type.
func (p PieceType) Letter() string {
	switch p {
	case King:
		return "k"
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	case Pawn:
		return "p"
	default:
		return ""
	}
}

func (p PieceType) String() string {
	switch p {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return ""
	}
}

// ParsePieceType accepts a letter ("q") or a name ("queen").
func ParsePieceType(s string) (PieceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "k", "king":
		return King, nil
	case "q", "queen":
		return Queen, nil
	case "r", "rook":
		return Rook, nil
	case "b", "bishop":
		return Bishop, nil
	case "n", "knight":
		return Knight, nil
	case "p", "pawn":
		return Pawn, nil
	}
	return NoPieceType, fmt.Errorf("%w: %q", ErrInvalidPiece, s)
}

// Piece is a colored piece; the zero value is an empty square.
type Piece struct {
	Color Color
	Type  PieceType
}

func (p Piece) Empty() bool { return p.Type == NoPieceType }

// Symbol returns the FEN letter: uppercase for white, lowercase for black.
func (p Piece) Symbol() string {
	l := p.Type.Letter()
	if p.Color == White {
		return strings.ToUpper(l)
	}
	return l
}

var glyphs = map[string]string{
	"p": "♟", "n": "♞", "b": "♝", "r": "♜", "q": "♛", "k": "♚",
	"P": "♙", "N": "♘", "B": "♗", "R": "♖", "Q": "♕", "K": "♔",
}

// Glyph returns the unicode chess symbol, or "" for an empty square.
func (p Piece) Glyph() string {
	if p.Empty() {
		return ""
	}
	return glyphs[p.Symbol()]
}

// Grid holds the board indexed [rank][file], zero-based, rank 1 first.
type Grid [8][8]Piece

func (g Grid) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return g[sq.Rank()][sq.File()]
}

// LastMove is the most recently applied move, kept for highlighting only.
type LastMove struct {
	From Square
	To   Square
}

func (m *LastMove) Touches(sq Square) bool {
	return m != nil && (m.From == sq || m.To == sq)
}

// HistoryEntry is one verbose move record as reported by the oracle.
type HistoryEntry struct {
	Ply       int
	Color     Color
	Piece     PieceType
	From      Square
	To        Square
	Promotion PieceType
	SAN       string
	UCI       string
}

// ParseUCI turns "e7e8q" into a replayable entry. Only From, To, Promotion and UCI are set.
func ParseUCI(s string) (HistoryEntry, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if len(raw) != 4 && len(raw) != 5 {
		return HistoryEntry{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(raw[0:2])
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(raw[2:4])
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	entry := HistoryEntry{From: from, To: to, UCI: raw}
	if len(raw) == 5 {
		promo, err := ParsePieceType(raw[4:])
		if err != nil || promo == King || promo == Pawn {
			return HistoryEntry{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
		}
		entry.Promotion = promo
	}
	return entry, nil
}

// MoveUCI formats a move in UCI long algebraic form.
func MoveUCI(from, to Square, promo PieceType) string {
	return string(from) + string(to) + promo.Letter()
}
