package model

import (
	"encoding/json"
	"time"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GameStatus is the lifecycle state of a game record.
type GameStatus string

const (
	GameActive    GameStatus = "active"
	GameLost      GameStatus = "lost"      // allied side wiped out
	GameRetired   GameStatus = "retired"   // ended by the owner or the arena round cap
	GameAbandoned GameStatus = "abandoned" // live state expired while idle
)

// Finished reports whether the game can no longer be played.
func (s GameStatus) Finished() bool {
	return s != GameActive
}

// Game is the durable record of one run. The live board lives in the
// cache; Level and Points mirror it after every turn.
type Game struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Status        GameStatus `json:"status"`
	EnemyStrategy string     `json:"enemy_strategy"`
	Level         int        `json:"level"`
	Points        int        `json:"points"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Save is a user's single saved-game slot.
type Save struct {
	UserID  string          `json:"user_id"`
	GameID  string          `json:"game_id"`
	State   json.RawMessage `json:"state"`
	Level   int             `json:"level"`
	Points  int             `json:"points"`
	SavedAt time.Time       `json:"saved_at"`
}

// LeaderboardEntry is a user's best finished run.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	BestPoints  int    `json:"best_points"`
	BestLevel   int    `json:"best_level"`
	GamesPlayed int    `json:"games_played"`
}
