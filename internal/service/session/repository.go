package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chessboard/internal/domain"
)

var (
	ErrDuplicateGame = errors.New("board game already archived")
	ErrGameNotFound  = errors.New("board game not found")
)

// Repository archives finished games.
type Repository interface {
	InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error)
	GetGame(ctx context.Context, id int64) (*domain.FinishedGame, error)
	GetRecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error)
	GetGamesBySession(ctx context.Context, sessionUUID string, limit int) ([]*domain.FinishedGame, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// OpenPostgres opens and pings the archive database.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS board_games (
	id            BIGSERIAL PRIMARY KEY,
	session_uuid  TEXT        NOT NULL,
	moves_hash    TEXT        NOT NULL,
	result        TEXT        NOT NULL,
	result_method TEXT        NOT NULL,
	moves_uci     JSONB       NOT NULL,
	moves_san     JSONB       NOT NULL,
	pgn           TEXT        NOT NULL,
	eco_code      TEXT        NOT NULL DEFAULT '',
	eco_title     TEXT        NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT      NOT NULL DEFAULT 0,
	UNIQUE (session_uuid, moves_hash)
);
CREATE INDEX IF NOT EXISTS board_games_ended_at_idx ON board_games (ended_at DESC);`

// EnsureSchema creates the archive table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure board_games schema: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil board game payload")
	}
	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(game.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO board_games (
			session_uuid,
			moves_hash,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			eco_code,
			eco_title,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (session_uuid, moves_hash) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionUUID,
		game.MovesHash,
		game.Result,
		game.ResultMethod,
		movesUCI,
		movesSAN,
		game.PGN,
		game.ECOCode,
		game.ECOTitle,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert board game: %w", err)
	}
	return id.Int64, nil
}

const selectColumns = `
		SELECT
			id,
			session_uuid,
			moves_hash,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			eco_code,
			eco_title,
			started_at,
			ended_at,
			duration_ms
		FROM board_games`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.FinishedGame, error) {
	var (
		game         domain.FinishedGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	if err := row.Scan(
		&game.ID,
		&game.SessionUUID,
		&game.MovesHash,
		&game.Result,
		&game.ResultMethod,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.ECOCode,
		&game.ECOTitle,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	); err != nil {
		return nil, err
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func (r *repository) GetGame(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	game, err := scanGame(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select board game: %w", err)
	}
	return game, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY ended_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select board games: %w", err)
	}
	return collect(rows, limit)
}

func (r *repository) GetGamesBySession(ctx context.Context, sessionUUID string, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE session_uuid = $1 ORDER BY ended_at DESC, id DESC LIMIT $2`, sessionUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("select board games by session: %w", err)
	}
	return collect(rows, limit)
}

func collect(rows *sql.Rows, limit int) ([]*domain.FinishedGame, error) {
	defer rows.Close()
	games := make([]*domain.FinishedGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board games: %w", err)
	}
	return games, nil
}
