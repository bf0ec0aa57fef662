package boardpresenter

import (
	"strconv"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/domain"
	"github.com/park285/chessboard/internal/msgcat"
	"github.com/park285/chessboard/internal/service/session"
	"github.com/park285/chessboard/pkg/boarddto"
)

// ToDTOState converts a session state to its JSON shape. cat may be nil.
func ToDTOState(st *session.State, cat *msgcat.Catalog) *boarddto.SessionState {
	if st == nil {
		return nil
	}
	snap := st.Snapshot
	out := &boarddto.SessionState{
		ID:           st.ID,
		Turn:         snap.Turn.String(),
		Flip:         st.Flip,
		Promotion:    st.Promotion.Letter(),
		Selected:     snap.Selected.String(),
		LegalTargets: squareStrings(snap.LegalTargets),
		Status:       ToDTOStatus(snap.Status, cat),
		Rows:         toDTORows(snap, st.Flip),
		History:      ToDTOHistory(snap.History, cat),
		FEN:          st.FEN,
		GameID:       st.GameID,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
	}
	if snap.LastMove != nil {
		out.LastMove = &boarddto.LastMove{From: snap.LastMove.From.String(), To: snap.LastMove.To.String()}
	}
	if st.ECOCode != "" {
		out.Opening = &boarddto.Opening{Code: st.ECOCode, Title: st.ECOTitle}
	}
	return out
}

func ToDTOStatus(s board.Status, cat *msgcat.Catalog) boarddto.Status {
	return boarddto.Status{
		Kind:     s.Kind.Key(),
		Text:     StatusText(s, cat),
		Side:     s.Side.String(),
		Finished: s.Finished(),
		Result:   s.Result(),
	}
}

// StatusText renders the status through the catalog, falling back to the built-in text.
func StatusText(s board.Status, cat *msgcat.Catalog) string {
	return cat.Text("status."+s.Kind.Key(), map[string]any{"Side": s.Side.String()}, s.String())
}

// HistoryLabel numbers white moves ("1. e4") and leaves black moves bare ("e5").
func HistoryLabel(idx int, san string, cat *msgcat.Catalog) string {
	number := 0
	if idx%2 == 0 {
		number = idx/2 + 1
	}
	fallback := san
	if number > 0 {
		fallback = strconv.Itoa(number) + ". " + san
	}
	return cat.Text("page.history_label", map[string]any{"MoveNumber": number, "SAN": san}, fallback)
}

func ToDTOHistory(entries []board.HistoryEntry, cat *msgcat.Catalog) []boarddto.HistoryEntry {
	out := make([]boarddto.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = boarddto.HistoryEntry{
			Ply:       e.Ply,
			Label:     HistoryLabel(i, e.SAN, cat),
			Color:     e.Color.String(),
			Piece:     e.Piece.String(),
			From:      e.From.String(),
			To:        e.To.String(),
			Promotion: e.Promotion.Letter(),
			SAN:       e.SAN,
			UCI:       e.UCI,
		}
	}
	return out
}

func toDTORows(snap board.Snapshot, flip bool) [][]boarddto.Square {
	rows := board.NewLayout(flip).Rows()
	out := make([][]boarddto.Square, len(rows))
	for r, line := range rows {
		out[r] = make([]boarddto.Square, len(line))
		for c, sq := range line {
			p := snap.Board.At(sq)
			out[r][c] = boarddto.Square{
				Square:      sq.String(),
				Piece:       p.Symbol(),
				Glyph:       p.Glyph(),
				Light:       sq.Light(),
				Selected:    snap.Selected == sq,
				LegalTarget: snap.IsLegalTarget(sq),
				LastMove:    snap.LastMove.Touches(sq),
			}
		}
	}
	return out
}

func ToDTOGame(g *domain.FinishedGame) *boarddto.FinishedGame {
	if g == nil {
		return nil
	}
	return &boarddto.FinishedGame{
		ID:           g.ID,
		SessionUUID:  g.SessionUUID,
		Result:       g.Result,
		ResultMethod: g.ResultMethod,
		MovesUCI:     append([]string(nil), g.MovesUCI...),
		MovesSAN:     append([]string(nil), g.MovesSAN...),
		PGN:          g.PGN,
		ECOCode:      g.ECOCode,
		ECOTitle:     g.ECOTitle,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
		DurationMS:   g.Duration.Milliseconds(),
	}
}

func ToDTOGames(games []*domain.FinishedGame) []*boarddto.FinishedGame {
	out := make([]*boarddto.FinishedGame, 0, len(games))
	for _, g := range games {
		if dto := ToDTOGame(g); dto != nil {
			out = append(out, dto)
		}
	}
	return out
}

func squareStrings(list []board.Square) []string {
	out := make([]string, len(list))
	for i, sq := range list {
		out[i] = sq.String()
	}
	return out
}
