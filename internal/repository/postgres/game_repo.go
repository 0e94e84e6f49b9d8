package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/internal/repository"
)

// GameRepo handles game database operations.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

const gameColumns = `id, owner_id, status, enemy_strategy, level, points, created_at, updated_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*model.Game, error) {
	var g model.Game
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Status, &g.EnemyStrategy, &g.Level, &g.Points,
		&g.CreatedAt, &g.UpdatedAt, &g.FinishedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new active game at level 1.
func (r *GameRepo) Create(ctx context.Context, ownerID, enemyStrategy string) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		`INSERT INTO games (owner_id, enemy_strategy)
		 VALUES ($1, $2)
		 RETURNING `+gameColumns,
		ownerID, enemyStrategy,
	))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

// FindByID returns a game by ID.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	return g, nil
}

// ListByOwner returns a user's games, most recent first.
func (r *GameRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Game, error) {
	return r.list(ctx, "list user games",
		`SELECT `+gameColumns+` FROM games WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT 50`, ownerID)
}

// ListActive returns every game still in play, least recently touched first.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, "list active games",
		`SELECT `+gameColumns+` FROM games WHERE status = 'active' ORDER BY updated_at`)
}

func (r *GameRepo) list(ctx context.Context, op, query string, args ...any) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// UpdateProgress records the level and score of an active game.
func (r *GameRepo) UpdateProgress(ctx context.Context, id string, level, points int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET level = $2, points = $3, updated_at = now() WHERE id = $1`,
		id, level, points)
	if err != nil {
		return fmt.Errorf("update game progress: %w", err)
	}
	return expectOneRow(res, "update game progress")
}

// SetStatus moves a game to a new status. Leaving 'active' stamps finished_at.
func (r *GameRepo) SetStatus(ctx context.Context, id string, status model.GameStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games
		 SET status = $2,
		     updated_at = now(),
		     finished_at = CASE WHEN $2 = 'active' THEN NULL ELSE COALESCE(finished_at, now()) END
		 WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("set game status: %w", err)
	}
	return expectOneRow(res, "set game status")
}

// Leaderboard ranks human players by their best finished run.
func (r *GameRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.display_name, MAX(g.points), MAX(g.level), COUNT(*)
		 FROM games g JOIN users u ON u.id = g.owner_id
		 WHERE g.status <> 'active' AND u.provider <> 'bot'
		 GROUP BY u.id, u.display_name
		 ORDER BY MAX(g.points) DESC, MAX(g.level) DESC, u.display_name
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.BestPoints, &e.BestLevel, &e.GamesPlayed); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}
