package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/freeeve/retro-tactics/api/internal/model"
)

// ErrNotFound is returned by updates that matched no row. Lookups return
// nil, nil instead.
var ErrNotFound = errors.New("not found")

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// GameRepository defines durable game record operations.
type GameRepository interface {
	Create(ctx context.Context, ownerID, enemyStrategy string) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	UpdateProgress(ctx context.Context, id string, level, points int) error
	SetStatus(ctx context.Context, id string, status model.GameStatus) error
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// SaveRepository defines the per-user saved game slot.
type SaveRepository interface {
	Put(ctx context.Context, save model.Save) error
	Get(ctx context.Context, userID string) (*model.Save, error)
}

// GameCache defines live game state operations (Redis).
type GameCache interface {
	SetGameState(ctx context.Context, gameID string, state json.RawMessage) error
	GetGameState(ctx context.Context, gameID string) (json.RawMessage, error)
	DeleteGameState(ctx context.Context, gameID string) error
	// AcquireTurn returns a token identifying this holder of the turn lock.
	AcquireTurn(ctx context.Context, gameID string) (token string, ok bool, err error)
	ReleaseTurn(ctx context.Context, gameID, token string) error
}
