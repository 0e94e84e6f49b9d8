package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// turnLockTTL bounds how long a crashed request can hold a game's turn.
const turnLockTTL = 10 * time.Second

const (
	keyPrefix   = "game:"
	stateSuffix = ":state"
)

func stateKey(gameID string) string { return keyPrefix + gameID + stateSuffix }
func turnKey(gameID string) string  { return keyPrefix + gameID + ":turn" }

// GameIDFromStateKey extracts the game ID from a state key, reporting whether
// key was one.
func GameIDFromStateKey(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, stateSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), stateSuffix)
	if id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}

// SetGameState stores the live game state JSON and restarts its idle clock.
func (c *Client) SetGameState(ctx context.Context, gameID string, state json.RawMessage) error {
	if err := c.rdb.Set(ctx, stateKey(gameID), []byte(state), c.stateTTL).Err(); err != nil {
		return fmt.Errorf("set game state: %w", err)
	}
	return nil
}

// GetGameState retrieves the live game state JSON, or nil if none is cached.
func (c *Client) GetGameState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return json.RawMessage(data), nil
}

// DeleteGameState removes all Redis data for a game (on game end).
func (c *Client) DeleteGameState(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, stateKey(gameID), turnKey(gameID)).Err()
}

// releaseTurnScript deletes the turn lock only while it still holds the
// caller's token, so a request whose lock expired cannot free a newer one.
var releaseTurnScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireTurn takes the per-game turn lock and returns the token that
// releases it. It reports false when another request already holds it.
func (c *Client) AcquireTurn(ctx context.Context, gameID string) (string, bool, error) {
	token, err := newTurnToken()
	if err != nil {
		return "", false, fmt.Errorf("acquire turn: %w", err)
	}
	ok, err := c.rdb.SetNX(ctx, turnKey(gameID), token, turnLockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire turn: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseTurn drops the per-game turn lock if token still owns it.
func (c *Client) ReleaseTurn(ctx context.Context, gameID, token string) error {
	if err := releaseTurnScript.Run(ctx, c.rdb, []string{turnKey(gameID)}, token).Err(); err != nil {
		return fmt.Errorf("release turn: %w", err)
	}
	return nil
}

func newTurnToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
