package boarddto

import "time"

type HistoryEntry struct {
	Ply       int    `json:"ply"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	Piece     string `json:"piece"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
	UCI       string `json:"uci"`
}

type FinishedGame struct {
	ID           int64     `json:"id"`
	SessionUUID  string    `json:"session_uuid"`
	Result       string    `json:"result"`
	ResultMethod string    `json:"result_method"`
	MovesUCI     []string  `json:"moves_uci"`
	MovesSAN     []string  `json:"moves_san"`
	PGN          string    `json:"pgn"`
	ECOCode      string    `json:"eco_code,omitempty"`
	ECOTitle     string    `json:"eco_title,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationMS   int64     `json:"duration_ms"`
}
