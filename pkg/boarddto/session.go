package boarddto

import "time"

// Square is one cell in display order.
type Square struct {
	Square      string `json:"square"`
	Piece       string `json:"piece,omitempty"`
	Glyph       string `json:"glyph,omitempty"`
	Light       bool   `json:"light"`
	Selected    bool   `json:"selected,omitempty"`
	LegalTarget bool   `json:"legal_target,omitempty"`
	LastMove    bool   `json:"last_move,omitempty"`
}

type LastMove struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Status struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Side     string `json:"side"`
	Finished bool   `json:"finished"`
	Result   string `json:"result"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type SessionState struct {
	ID           string         `json:"id"`
	Turn         string         `json:"turn"`
	Flip         bool           `json:"flip"`
	Promotion    string         `json:"promotion"`
	Selected     string         `json:"selected,omitempty"`
	LegalTargets []string       `json:"legal_targets"`
	LastMove     *LastMove      `json:"last_move,omitempty"`
	Status       Status         `json:"status"`
	Rows         [][]Square     `json:"rows"`
	History      []HistoryEntry `json:"history"`
	FEN          string         `json:"fen,omitempty"`
	Opening      *Opening       `json:"opening,omitempty"`
	GameID       int64          `json:"game_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ClickResponse adds the transition produced by a square click.
type ClickResponse struct {
	Result string        `json:"result"`
	State  *SessionState `json:"state"`
}
