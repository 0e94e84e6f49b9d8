package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/retro-tactics/api/internal/model"
)

// SaveRepo stores each user's single saved game.
type SaveRepo struct {
	db *sql.DB
}

// NewSaveRepo creates a SaveRepo.
func NewSaveRepo(db *sql.DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// Put overwrites the user's save slot.
func (r *SaveRepo) Put(ctx context.Context, s model.Save) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saves (user_id, game_id, state, level, points)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id)
		 DO UPDATE SET game_id = EXCLUDED.game_id, state = EXCLUDED.state,
		               level = EXCLUDED.level, points = EXCLUDED.points, saved_at = now()`,
		s.UserID, s.GameID, []byte(s.State), s.Level, s.Points)
	if err != nil {
		return fmt.Errorf("put save: %w", err)
	}
	return nil
}

// Get returns the user's save, or nil if the slot is empty.
func (r *SaveRepo) Get(ctx context.Context, userID string) (*model.Save, error) {
	var s model.Save
	var state []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, game_id, state, level, points, saved_at FROM saves WHERE user_id = $1`,
		userID,
	).Scan(&s.UserID, &s.GameID, &state, &s.Level, &s.Points, &s.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get save: %w", err)
	}
	s.State = state
	return &s, nil
}
