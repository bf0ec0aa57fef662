// Package rules adapts github.com/corentings/chess/v2 to the board.Oracle
// interface used by the interactive view.
package rules

import (
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/chessboard/internal/board"
)

// Game is a board.Oracle backed by a full rules engine.
type Game struct {
	game    *nchess.Game
	history []board.HistoryEntry
}

var _ board.Oracle = (*Game)(nil)

func New() *Game {
	return &Game{game: nchess.NewGame()}
}

// Factory returns fresh games at the starting position.
func Factory() board.Oracle { return New() }

// FromUCI replays stored UCI moves. It fails on the first move the position rejects.
func FromUCI(moves []string) (*Game, error) {
	g := New()
	for _, raw := range moves {
		entry, err := board.ParseUCI(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := g.Move(entry.From, entry.To, entry.Promotion); !ok {
			return nil, fmt.Errorf("apply move %s: %w", raw, board.ErrInvalidMove)
		}
	}
	return g, nil
}

func (g *Game) Board() board.Grid {
	var grid board.Grid
	b := g.game.Position().Board()
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			grid[rank][file] = fromPiece(b.Piece(nchess.NewSquare(nchess.File(file), nchess.Rank(rank))))
		}
	}
	return grid
}

func (g *Game) Turn() board.Color {
	return fromColor(g.game.Position().Turn())
}

func (g *Game) Get(sq board.Square) (board.Piece, bool) {
	if !sq.Valid() {
		return board.Piece{}, false
	}
	p := fromPiece(g.game.Position().Board().Piece(toSquare(sq)))
	return p, !p.Empty()
}

func (g *Game) Moves(from board.Square) []board.Square {
	if !from.Valid() {
		return nil
	}
	origin := toSquare(from)
	valid := g.game.ValidMoves()
	seen := make(map[board.Square]struct{}, 8)
	var out []board.Square
	for i := range valid {
		mv := valid[i]
		if mv.S1() != origin {
			continue
		}
		to := fromSquare(mv.S2())
		if _, dup := seen[to]; dup {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	return out
}

// Move applies from→to. When the move promotes, promo picks the piece and an
// unusable choice falls back to a queen.
func (g *Game) Move(from, to board.Square, promo board.PieceType) (board.HistoryEntry, bool) {
	if !from.Valid() || !to.Valid() {
		return board.HistoryEntry{}, false
	}
	uci, ok := g.resolve(toSquare(from), toSquare(to), toPieceType(promo))
	if !ok {
		return board.HistoryEntry{}, false
	}
	before := g.game.Position()
	mv, err := nchess.UCINotation{}.Decode(before, uci)
	if err != nil {
		return board.HistoryEntry{}, false
	}
	san := nchess.AlgebraicNotation{}.Encode(before, mv)
	mover := before.Board().Piece(mv.S1())
	if err := g.game.Move(mv, nil); err != nil {
		return board.HistoryEntry{}, false
	}
	entry := board.HistoryEntry{
		Ply:       len(g.history) + 1,
		Color:     fromColor(mover.Color()),
		Piece:     fromPieceType(mover.Type()),
		From:      from,
		To:        to,
		Promotion: fromPieceType(mv.Promo()),
		SAN:       san,
		UCI:       uci,
	}
	g.history = append(g.history, entry)
	return entry, true
}

// resolve finds the legal move matching the squares and returns its UCI text.
func (g *Game) resolve(from, to nchess.Square, promo nchess.PieceType) (string, bool) {
	valid := g.game.ValidMoves()
	found := false
	promotes := false
	var picked nchess.PieceType = nchess.NoPieceType
	for i := range valid {
		mv := valid[i]
		if mv.S1() != from || mv.S2() != to {
			continue
		}
		found = true
		if p := mv.Promo(); p != nchess.NoPieceType {
			promotes = true
			if p == promo {
				picked = p
			}
		}
	}
	if !found {
		return "", false
	}
	base := strings.ToLower(from.String() + to.String())
	if !promotes {
		return base, true
	}
	if picked == nchess.NoPieceType {
		picked = nchess.Queen
	}
	return base + fromPieceType(picked).Letter(), true
}

func (g *Game) History() []board.HistoryEntry {
	return append([]board.HistoryEntry(nil), g.history...)
}

func (g *Game) IsCheckmate() bool {
	return g.game.Method() == nchess.Checkmate
}

// IsDraw covers the move-count rules only; stalemate, insufficient material
// and repetition are reported by their own predicates.
func (g *Game) IsDraw() bool {
	if g.game.Method() == nchess.SeventyFiveMoveRule {
		return true
	}
	return g.eligible(nchess.FiftyMoveRule)
}

func (g *Game) IsStalemate() bool {
	return g.game.Method() == nchess.Stalemate
}

func (g *Game) IsInsufficientMaterial() bool {
	return g.game.Method() == nchess.InsufficientMaterial
}

func (g *Game) IsThreefoldRepetition() bool {
	if g.game.Method() == nchess.FivefoldRepetition {
		return true
	}
	return g.eligible(nchess.ThreefoldRepetition)
}

func (g *Game) InCheck() bool {
	moves := g.game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

func (g *Game) eligible(method nchess.Method) bool {
	for _, m := range g.game.EligibleDraws() {
		if m == method {
			return true
		}
	}
	return false
}

func (g *Game) FEN() string { return g.game.FEN() }

// PGN renders the move text with the result tag of the current status.
func (g *Game) PGN() string {
	return g.game.String()
}

// UCIMoves returns the played moves in UCI form, oldest first.
func (g *Game) UCIMoves() []string {
	out := make([]string, len(g.history))
	for i, e := range g.history {
		out[i] = e.UCI
	}
	return out
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening returns the ECO code and title of the deepest matching opening line.
func (g *Game) Opening() (string, string) {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil || len(g.history) == 0 {
		return "", ""
	}
	if eco := ecoBook.Find(g.game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

func toSquare(sq board.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File()), nchess.Rank(sq.Rank()))
}

func fromSquare(sq nchess.Square) board.Square {
	return board.SquareAt(int(sq.File()), int(sq.Rank()))
}

func fromColor(c nchess.Color) board.Color {
	switch c {
	case nchess.White:
		return board.White
	case nchess.Black:
		return board.Black
	default:
		return board.NoColor
	}
}

func fromPiece(p nchess.Piece) board.Piece {
	if p == nchess.NoPiece {
		return board.Piece{}
	}
	return board.Piece{Color: fromColor(p.Color()), Type: fromPieceType(p.Type())}
}

func fromPieceType(pt nchess.PieceType) board.PieceType {
	switch pt {
	case nchess.King:
		return board.King
	case nchess.Queen:
		return board.Queen
	case nchess.Rook:
		return board.Rook
	case nchess.Bishop:
		return board.Bishop
	case nchess.Knight:
		return board.Knight
	case nchess.Pawn:
		return board.Pawn
	default:
		return board.NoPieceType
	}
}

func toPieceType(pt board.PieceType) nchess.PieceType {
	switch pt {
	case board.Queen:
		return nchess.Queen
	case board.Rook:
		return nchess.Rook
	case board.Bishop:
		return nchess.Bishop
	case board.Knight:
		return nchess.Knight
	default:
		return nchess.NoPieceType
	}
}
