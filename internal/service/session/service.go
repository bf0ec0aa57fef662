package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/domain"
	"github.com/park285/chessboard/internal/rules"
)

var ErrInvalidPromotion = errors.New("invalid promotion piece")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Config struct {
	HistoryLimit     int
	DefaultPromotion board.PieceType
	DefaultFlip      bool
}

// State is what every session operation returns: the view snapshot plus the
// per-session display settings and derived position facts.
type State struct {
	ID        string
	Snapshot  board.Snapshot
	Flip      bool
	Promotion board.PieceType
	FEN       string
	ECOCode   string
	ECOTitle  string
	CreatedAt time.Time
	UpdatedAt time.Time
	// GameID is set when this event archived the game.
	GameID int64
}

type Service struct {
	store  Store
	repo   Repository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, repo Repository, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("board session store is required")
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.DefaultPromotion {
	case board.Queen, board.Rook, board.Bishop, board.Knight:
	default:
		cfg.DefaultPromotion = board.Queen
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = maxHistoryLimit
	}
	return &Service{store: store, repo: repo, cfg: cfg, logger: logger, now: time.Now}, nil
}

func (s *Service) Create(ctx context.Context) (*State, error) {
	now := s.now()
	p := &Payload{
		ID:        uuid.NewString(),
		Moves:     []string{},
		Flip:      s.cfg.DefaultFlip,
		Promotion: s.cfg.DefaultPromotion.Letter(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("board session created", zap.String("session_uuid", p.ID))
	return s.stateFrom(p, s.restore(p)), nil
}

func (s *Service) Get(ctx context.Context, id string) (*State, error) {
	p, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.stateFrom(p, s.restore(p)), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Click forwards one square click to the session's view.
func (s *Service) Click(ctx context.Context, id, square string) (*State, board.ClickResult, error) {
	sq, err := board.ParseSquare(square)
	if err != nil {
		return nil, board.Ignored, err
	}
	var result board.ClickResult
	st, err := s.mutate(ctx, id, func(v *board.View, _ *Payload) error {
		result = v.Click(sq)
		return nil
	})
	if err != nil {
		return nil, board.Ignored, err
	}
	if result == board.Moved {
		h := st.Snapshot.History
		last := h[len(h)-1]
		s.logger.Debug("board move",
			zap.String("session_uuid", id),
			zap.Int("ply", last.Ply),
			zap.String("uci", last.UCI),
			zap.String("san", last.SAN),
			zap.String("status", st.Snapshot.Status.Kind.Key()),
		)
	}
	return st, result, nil
}

func (s *Service) Reset(ctx context.Context, id string) (*State, error) {
	return s.mutate(ctx, id, func(v *board.View, _ *Payload) error {
		v.Reset()
		return nil
	})
}

func (s *Service) Undo(ctx context.Context, id string) (*State, error) {
	return s.mutate(ctx, id, func(v *board.View, _ *Payload) error {
		v.Undo()
		return nil
	})
}

func (s *Service) JumpTo(ctx context.Context, id string, ply int) (*State, error) {
	return s.mutate(ctx, id, func(v *board.View, _ *Payload) error {
		v.JumpTo(ply)
		return nil
	})
}

// Flip toggles the board orientation. Square identifiers are unaffected.
func (s *Service) Flip(ctx context.Context, id string) (*State, error) {
	return s.mutate(ctx, id, func(_ *board.View, p *Payload) error {
		p.Flip = !p.Flip
		return nil
	})
}

func (s *Service) SetPromotion(ctx context.Context, id, piece string) (*State, error) {
	pt, err := board.ParsePieceType(piece)
	if err != nil || pt == board.King || pt == board.Pawn {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPromotion, piece)
	}
	return s.mutate(ctx, id, func(v *board.View, _ *Payload) error {
		v.SetPromotion(pt)
		return nil
	})
}

// PGN exports the session's moves with the current result token.
func (s *Service) PGN(ctx context.Context, id string) (string, error) {
	p, err := s.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	v := s.restore(p)
	g, err := rules.FromUCI(uciMoves(v.History()))
	if err != nil {
		return "", fmt.Errorf("rebuild game: %w", err)
	}
	return g.PGN(), nil
}

func (s *Service) RecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error) {
	return s.repo.GetRecentGames(ctx, s.clampLimit(limit))
}

func (s *Service) SessionGames(ctx context.Context, id string, limit int) ([]*domain.FinishedGame, error) {
	return s.repo.GetGamesBySession(ctx, id, s.clampLimit(limit))
}

func (s *Service) Game(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	return s.repo.GetGame(ctx, id)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.HistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func (s *Service) mutate(ctx context.Context, id string, event func(*board.View, *Payload) error) (*State, error) {
	var (
		view   *board.View
		before []string
	)
	p, err := s.store.Update(ctx, id, func(cur *Payload) error {
		before = append(before[:0], cur.Moves...)
		v := s.restore(cur)
		if err := event(v, cur); err != nil {
			return err
		}
		cur.Moves = uciMoves(v.History())
		cur.Selected = v.Selected().String()
		cur.Promotion = v.Promotion().Letter()
		cur.UpdatedAt = s.now()
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	st := s.stateFrom(p, view)
	if st.Snapshot.Status.Finished() && !sameMoves(before, p.Moves) {
		st.GameID = s.archive(ctx, p, st)
	}
	return st, nil
}

// restore rebuilds a view from a payload and re-selects the stored square.
func (s *Service) restore(p *Payload) *board.View {
	promo := s.cfg.DefaultPromotion
	if pt, err := board.ParsePieceType(p.Promotion); err == nil {
		promo = pt
	}
	logger := s.logger.With(zap.String("session_uuid", p.ID))
	v := board.NewView(rules.Factory, board.WithLogger(logger), board.WithPromotion(promo))

	entries := make([]board.HistoryEntry, 0, len(p.Moves))
	for _, raw := range p.Moves {
		e, err := board.ParseUCI(raw)
		if err != nil {
			logger.Warn("stored move unreadable", zap.String("uci", raw), zap.Error(err))
			break
		}
		entries = append(entries, e)
	}
	v.Load(entries)
	if sq, err := board.ParseSquare(p.Selected); err == nil {
		v.Click(sq)
	}
	return v
}

func (s *Service) stateFrom(p *Payload, v *board.View) *State {
	st := &State{
		ID:        p.ID,
		Snapshot:  v.Snapshot(),
		Flip:      p.Flip,
		Promotion: v.Promotion(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if g, err := rules.FromUCI(uciMoves(st.Snapshot.History)); err == nil {
		st.FEN = g.FEN()
		st.ECOCode, st.ECOTitle = g.Opening()
	}
	return st
}

func (s *Service) archive(ctx context.Context, p *Payload, st *State) int64 {
	g, err := rules.FromUCI(p.Moves)
	if err != nil {
		s.logger.Warn("archive rebuild failed", zap.String("session_uuid", p.ID), zap.Error(err))
		return 0
	}
	san := make([]string, len(st.Snapshot.History))
	for i, e := range st.Snapshot.History {
		san[i] = e.SAN
	}
	game := &domain.FinishedGame{
		SessionUUID:  p.ID,
		MovesHash:    movesHash(p.Moves),
		Result:       st.Snapshot.Status.Result(),
		ResultMethod: st.Snapshot.Status.Kind.Key(),
		MovesUCI:     append([]string(nil), p.Moves...),
		MovesSAN:     san,
		PGN:          g.PGN(),
		ECOCode:      st.ECOCode,
		ECOTitle:     st.ECOTitle,
		StartedAt:    p.CreatedAt,
		EndedAt:      p.UpdatedAt,
		Duration:     p.UpdatedAt.Sub(p.CreatedAt),
	}
	id, err := s.repo.InsertGame(ctx, game)
	if errors.Is(err, ErrDuplicateGame) {
		s.logger.Debug("board game already archived", zap.String("session_uuid", p.ID))
		return 0
	}
	if err != nil {
		s.logger.Warn("archive board game failed", zap.String("session_uuid", p.ID), zap.Error(err))
		return 0
	}
	s.logger.Info("board game archived",
		zap.String("session_uuid", p.ID),
		zap.Int64("game_id", id),
		zap.String("result", game.Result),
		zap.String("method", game.ResultMethod),
		zap.Int("plies", game.Plies()),
		zap.String("eco_code", game.ECOCode),
	)
	return id
}

func uciMoves(history []board.HistoryEntry) []string {
	out := make([]string, len(history))
	for i, e := range history {
		out[i] = e.UCI
	}
	return out
}

func movesHash(moves []string) string {
	sum := sha256.Sum256([]byte(strings.Join(moves, " ")))
	return hex.EncodeToString(sum[:])
}

func sameMoves(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
