package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/chessboard/internal/domain"
)

// memrepo is an in-memory archive used when no DB is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID    map[int64]*domain.FinishedGame
	gamesByIndex map[string]*domain.FinishedGame // sessionUUID|movesHash -> game
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:    make(map[int64]*domain.FinishedGame),
		gamesByIndex: make(map[string]*domain.FinishedGame),
	}
}

func (m *memrepo) InsertGame(_ context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.SessionUUID) + "|" + strings.TrimSpace(game.MovesHash)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesByIndex[key]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	stored := *game
	stored.ID = m.nextID
	m.gamesByID[stored.ID] = &stored
	m.gamesByIndex[key] = &stored
	return stored.ID, nil
}

func (m *memrepo) GetGame(_ context.Context, id int64) (*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByID[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memrepo) GetRecentGames(_ context.Context, limit int) ([]*domain.FinishedGame, error) {
	return m.filter(limit, func(*domain.FinishedGame) bool { return true }), nil
}

func (m *memrepo) GetGamesBySession(_ context.Context, sessionUUID string, limit int) ([]*domain.FinishedGame, error) {
	sessionUUID = strings.TrimSpace(sessionUUID)
	return m.filter(limit, func(g *domain.FinishedGame) bool { return g.SessionUUID == sessionUUID }), nil
}

func (m *memrepo) filter(limit int, keep func(*domain.FinishedGame) bool) []*domain.FinishedGame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*domain.FinishedGame, 0, len(m.gamesByID))
	for _, g := range m.gamesByID {
		if keep(g) {
			cp := *g
			items = append(items, &cp)
		}
	}
	// EndedAt desc, then ID desc
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
