//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/retro-tactics/api/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return NewClientFromPool(testRDB, time.Minute)
}

func TestGameStateRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	state := json.RawMessage(`{"theme":"forest","roster":[],"points":12}`)
	if err := c.SetGameState(ctx, "g1", state); err != nil {
		t.Fatalf("set game state: %v", err)
	}

	got, err := c.GetGameState(ctx, "g1")
	if err != nil {
		t.Fatalf("get game state: %v", err)
	}
	var fetched map[string]any
	if err := json.Unmarshal(got, &fetched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fetched["points"].(float64) != 12 {
		t.Fatalf("state round-trip failed: %s", string(got))
	}

	ttl, err := testRDB.TTL(ctx, stateKey("g1")).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("state ttl = %v, want (0, 1m]", ttl)
	}
}

func TestGameStateNotFound(t *testing.T) {
	c := setup(t)
	got, err := c.GetGameState(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("get missing state: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %s", string(got))
	}
}

func TestTurnLock(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	token, ok, err := c.AcquireTurn(ctx, "g1")
	if err != nil || !ok || token == "" {
		t.Fatalf("first acquire: %q, %v, %v", token, ok, err)
	}
	if _, ok, err := c.AcquireTurn(ctx, "g1"); err != nil || ok {
		t.Fatalf("second acquire should fail: %v, %v", ok, err)
	}
	if _, ok, _ := c.AcquireTurn(ctx, "g2"); !ok {
		t.Fatal("locks should be per game")
	}

	if err := c.ReleaseTurn(ctx, "g1", token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := c.AcquireTurn(ctx, "g1"); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestReleaseTurnKeepsOtherHoldersLock(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	stale, ok, _ := c.AcquireTurn(ctx, "g1")
	if !ok {
		t.Fatal("first acquire failed")
	}
	// Simulate the lock lapsing and a second request taking it.
	if err := testRDB.Del(ctx, turnKey("g1")).Err(); err != nil {
		t.Fatalf("expire lock: %v", err)
	}
	current, ok, _ := c.AcquireTurn(ctx, "g1")
	if !ok || current == stale {
		t.Fatalf("second acquire: %q, %v", current, ok)
	}

	if err := c.ReleaseTurn(ctx, "g1", stale); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, ok, _ := c.AcquireTurn(ctx, "g1"); ok {
		t.Fatal("stale token released the current holder's lock")
	}
	if err := c.ReleaseTurn(ctx, "g1", current); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := c.AcquireTurn(ctx, "g1"); !ok {
		t.Error("owner's release did not free the lock")
	}
}

func TestDeleteGameState(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	c.SetGameState(ctx, "g1", json.RawMessage(`{}`))
	c.AcquireTurn(ctx, "g1")
	if err := c.DeleteGameState(ctx, "g1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := c.GetGameState(ctx, "g1"); got != nil {
		t.Errorf("state survived delete: %s", got)
	}
	if _, ok, _ := c.AcquireTurn(ctx, "g1"); !ok {
		t.Error("turn lock survived delete")
	}
}
