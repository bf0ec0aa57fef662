package boardpresenter

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/msgcat"
	"github.com/park285/chessboard/internal/service/session"
)

//go:embed page.html
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

type PageLabels struct {
	NewGame        string
	NewGameAria    string
	Undo           string
	UndoAria       string
	Flip           string
	HistoryHeading string
	HistoryEmpty   string
	Promotion      string
	PGN            string
}

type SquareView struct {
	Square string
	Glyph  string
	Aria   string
	Class  string
}

type HistoryView struct {
	Index   int
	Label   string
	Aria    string
	Current bool
}

type PromotionOption struct {
	Value    string
	Label    string
	Selected bool
}

// PageView is the model behind the server-rendered board page.
type PageView struct {
	Title        string
	SessionID    string
	Status       string
	StatusKind   string
	Rows         [][]SquareView
	History      []HistoryView
	Labels       PageLabels
	UndoDisabled bool
	Promotions   []PromotionOption
	Opening      string
}

func NewPageView(st *session.State, cat *msgcat.Catalog) *PageView {
	snap := st.Snapshot
	view := &PageView{
		Title:        cat.Text("page.title", nil, "Chess board"),
		SessionID:    st.ID,
		Status:       StatusText(snap.Status, cat),
		StatusKind:   snap.Status.Kind.Key(),
		UndoDisabled: len(snap.History) == 0,
		Labels: PageLabels{
			NewGame:        cat.Text("page.new_game", nil, "New Game"),
			NewGameAria:    cat.Text("page.new_game_aria", nil, "Reset game"),
			Undo:           cat.Text("page.undo", nil, "Undo"),
			UndoAria:       cat.Text("page.undo_aria", nil, "Undo move"),
			Flip:           cat.Text("page.flip", nil, "Flip board"),
			HistoryHeading: cat.Text("page.history_heading", nil, "Move History"),
			HistoryEmpty:   cat.Text("page.history_empty", nil, "No moves yet."),
			Promotion:      cat.Text("page.promotion", nil, "Promote to"),
			PGN:            cat.Text("page.pgn", nil, "Download PGN"),
		},
	}
	if st.ECOCode != "" {
		view.Opening = cat.Text("page.opening", map[string]any{"Code": st.ECOCode, "Title": st.ECOTitle}, st.ECOCode+" "+st.ECOTitle)
	}

	for _, line := range board.NewLayout(st.Flip).Rows() {
		row := make([]SquareView, 0, len(line))
		for _, sq := range line {
			row = append(row, SquareView{
				Square: sq.String(),
				Glyph:  snap.Board.At(sq).Glyph(),
				Aria:   squareAria(sq, snap.Board.At(sq), cat),
				Class:  squareClass(snap, sq),
			})
		}
		view.Rows = append(view.Rows, row)
	}

	for i, e := range snap.History {
		view.History = append(view.History, HistoryView{
			Index:   i,
			Label:   HistoryLabel(i, e.SAN, cat),
			Aria:    cat.Text("page.jump_aria", map[string]any{"SAN": e.SAN}, "Jump to move "+e.SAN),
			Current: i == len(snap.History)-1,
		})
	}

	for _, pt := range []board.PieceType{board.Queen, board.Rook, board.Bishop, board.Knight} {
		view.Promotions = append(view.Promotions, PromotionOption{
			Value:    pt.Letter(),
			Label:    strings.ToUpper(pt.String()[:1]) + pt.String()[1:],
			Selected: pt == st.Promotion,
		})
	}
	return view
}

func RenderPage(w io.Writer, st *session.State, cat *msgcat.Catalog) error {
	if st == nil {
		return fmt.Errorf("nil board state")
	}
	return pageTemplate.Execute(w, NewPageView(st, cat))
}

func squareAria(sq board.Square, p board.Piece, cat *msgcat.Catalog) string {
	label := cat.Text("page.square_aria", map[string]any{"Square": sq.String()}, "Square "+sq.String())
	if p.Empty() {
		return label
	}
	return label + ", " + strings.ToLower(p.Color.String()) + " " + p.Type.String()
}

func squareClass(snap board.Snapshot, sq board.Square) string {
	classes := []string{"dark"}
	if sq.Light() {
		classes[0] = "light"
	}
	if snap.LastMove.Touches(sq) {
		classes = append(classes, "last")
	}
	if snap.Selected == sq {
		classes = append(classes, "selected")
	}
	if snap.IsLegalTarget(sq) {
		classes = append(classes, "target")
	}
	return strings.Join(classes, " ")
}
