package chess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-chess/internal/domain"
)

var ErrDuplicateGame = errors.New("chess game already exists")

// Repository archives finished games. Lookups return (nil, nil) when nothing matches.
type Repository interface {
	InsertGame(ctx context.Context, game *domain.ChessGame) (int64, error)
	GetRecentGames(ctx context.Context, limit int) ([]*domain.ChessGame, error)
	GetGame(ctx context.Context, id int64) (*domain.ChessGame, error)
	GetGameBySession(ctx context.Context, sessionUUID string) (*domain.ChessGame, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const chessGamesSchema = `
	CREATE TABLE IF NOT EXISTS chess_games (
		id                BIGSERIAL PRIMARY KEY,
		session_uuid      TEXT NOT NULL UNIQUE,
		mode              TEXT NOT NULL,
		difficulty        TEXT NOT NULL DEFAULT '',
		player_color      TEXT NOT NULL,
		start_fen         TEXT NOT NULL DEFAULT '',
		result            TEXT NOT NULL,
		result_method     TEXT NOT NULL,
		result_text       TEXT NOT NULL,
		moves_uci         JSONB NOT NULL,
		moves_san         JSONB NOT NULL,
		pgn               TEXT NOT NULL,
		eco_code          TEXT NOT NULL DEFAULT '',
		eco_title         TEXT NOT NULL DEFAULT '',
		started_at        TIMESTAMPTZ NOT NULL,
		ended_at          TIMESTAMPTZ NOT NULL,
		duration_ms       BIGINT,
		engine_moves      INTEGER NOT NULL DEFAULT 0,
		engine_latency_ms BIGINT
	)`

// EnsureSchema creates the archive table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, chessGamesSchema); err != nil {
		return fmt.Errorf("create chess_games: %w", err)
	}
	return nil
}

const selectGameColumns = `
		SELECT
			id,
			session_uuid,
			mode,
			difficulty,
			player_color,
			start_fen,
			result,
			result_method,
			result_text,
			moves_uci,
			moves_san,
			pgn,
			eco_code,
			eco_title,
			started_at,
			ended_at,
			duration_ms,
			engine_moves,
			engine_latency_ms
		FROM chess_games`

func (r *repository) InsertGame(ctx context.Context, game *domain.ChessGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}

	movesUCI, err := json.Marshal(nonNil(game.MovesUCI))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(game.MovesSAN))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO chess_games (
			session_uuid,
			mode,
			difficulty,
			player_color,
			start_fen,
			result,
			result_method,
			result_text,
			moves_uci,
			moves_san,
			pgn,
			eco_code,
			eco_title,
			started_at,
			ended_at,
			duration_ms,
			engine_moves,
			engine_latency_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionUUID,
		game.Mode,
		game.Difficulty,
		game.PlayerColor,
		game.StartFEN,
		game.Result,
		game.ResultMethod,
		game.ResultText,
		movesUCI,
		movesSAN,
		game.PGN,
		game.ECOCode,
		game.ECOTitle,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
		game.EngineMoves,
		game.EngineLatency.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert chess game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*domain.ChessGame, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectGameColumns+`
		ORDER BY ended_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select chess games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.ChessGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chess games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64) (*domain.ChessGame, error) {
	row := r.db.QueryRowContext(ctx, selectGameColumns+`
		WHERE id = $1`, id)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chess game: %w", err)
	}
	return game, nil
}

func (r *repository) GetGameBySession(ctx context.Context, sessionUUID string) (*domain.ChessGame, error) {
	row := r.db.QueryRowContext(ctx, selectGameColumns+`
		WHERE session_uuid = $1
		LIMIT 1`, sessionUUID)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chess game by session: %w", err)
	}
	return game, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.ChessGame, error) {
	var (
		game         domain.ChessGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
		latencyMS    sql.NullInt64
	)
	if err := row.Scan(
		&game.ID,
		&game.SessionUUID,
		&game.Mode,
		&game.Difficulty,
		&game.PlayerColor,
		&game.StartFEN,
		&game.Result,
		&game.ResultMethod,
		&game.ResultText,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.ECOCode,
		&game.ECOTitle,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&game.EngineMoves,
		&latencyMS,
	); err != nil {
		return nil, err
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if latencyMS.Valid {
		game.EngineLatency = time.Duration(latencyMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
