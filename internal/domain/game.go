package domain

import "time"

// FinishedGame is an archived game that reached a terminal position.
type FinishedGame struct {
	ID           int64
	SessionUUID  string
	MovesHash    string
	Result       string
	ResultMethod string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	ECOCode      string
	ECOTitle     string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}

// Plies returns the number of half moves played.
func (g *FinishedGame) Plies() int {
	if g == nil {
		return 0
	}
	return len(g.MovesUCI)
}
