package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/freeeve/retro-tactics/api/internal/model"
)

func TestRunGameDryRun(t *testing.T) {
	ctx := context.Background()
	cfg := ArenaConfig{
		AllyStrategy:  "greedy",
		EnemyStrategy: "greedy",
		MaxTurns:      300,
		Seed:          42,
		DryRun:        true,
	}

	result, err := RunGame(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if result.Turns == 0 || result.Turns > cfg.MaxTurns {
		t.Errorf("turns = %d, want 1..%d", result.Turns, cfg.MaxTurns)
	}
	if result.Status != model.GameLost && result.Status != model.GameRetired {
		t.Errorf("status = %s, want lost or retired", result.Status)
	}
	if result.Level != result.Rounds+1 {
		t.Errorf("level %d does not match %d level-ups", result.Level, result.Rounds)
	}
	if result.GameID != "" {
		t.Errorf("dry run should not create a game, got id %q", result.GameID)
	}
	t.Logf("Result: status=%s level=%d points=%d turns=%d kills=%d", result.Status, result.Level, result.Points, result.Turns, result.Kills)
}

func TestRunGameDeterministic(t *testing.T) {
	cfg := ArenaConfig{AllyStrategy: "random", EnemyStrategy: "greedy", MaxTurns: 150, Seed: 7, DryRun: true}
	a, err := RunGame(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("RunGame: %v", err)
	}
	b, err := RunGame(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("RunGame: %v", err)
	}
	if a.Turns != b.Turns || a.Points != b.Points || a.Level != b.Level || a.Status != b.Status {
		t.Errorf("same seed gave different runs: %+v vs %+v", a, b)
	}
}

func TestRunGamePassiveAllyRetiresAtCap(t *testing.T) {
	cfg := ArenaConfig{AllyStrategy: "passive", EnemyStrategy: "passive", MaxTurns: 25, Seed: 3, DryRun: true}
	result, err := RunGame(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("RunGame: %v", err)
	}
	if result.Status != model.GameRetired || result.Turns != 25 || result.Level != 1 {
		t.Errorf("result = %+v, want retired after 25 turns at level 1", result)
	}
}

func TestRunGameCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunGame(ctx, ArenaConfig{Seed: 1, DryRun: true}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

type recordingGames struct {
	created  []string
	progress []int
	status   model.GameStatus
}

func (r *recordingGames) Create(_ context.Context, ownerID, enemyStrategy string) (*model.Game, error) {
	r.created = append(r.created, ownerID+"/"+enemyStrategy)
	return &model.Game{ID: fmt.Sprintf("g%d", len(r.created)), OwnerID: ownerID}, nil
}
func (r *recordingGames) FindByID(context.Context, string) (*model.Game, error)     { return nil, nil }
func (r *recordingGames) ListByOwner(context.Context, string) ([]model.Game, error) { return nil, nil }
func (r *recordingGames) ListActive(context.Context) ([]model.Game, error)          { return nil, nil }
func (r *recordingGames) UpdateProgress(_ context.Context, _ string, level, _ int) error {
	r.progress = append(r.progress, level)
	return nil
}
func (r *recordingGames) SetStatus(_ context.Context, _ string, s model.GameStatus) error {
	r.status = s
	return nil
}
func (r *recordingGames) Leaderboard(context.Context, int) ([]model.LeaderboardEntry, error) {
	return nil, nil
}

type recordingUsers struct{ upserts int }

func (u *recordingUsers) FindByID(context.Context, string) (*model.User, error) { return nil, nil }
func (u *recordingUsers) FindByProviderID(context.Context, string, string) (*model.User, error) {
	return nil, nil
}
func (u *recordingUsers) Upsert(_ context.Context, provider, providerID, displayName, _ string) (*model.User, error) {
	u.upserts++
	return &model.User{ID: "bot-" + providerID, Provider: provider, DisplayName: displayName}, nil
}
func (u *recordingUsers) UpdateDisplayName(context.Context, string, string) error { return nil }

func TestRunGameRecordsResult(t *testing.T) {
	games := &recordingGames{}
	users := &recordingUsers{}
	cfg := ArenaConfig{AllyStrategy: "greedy", EnemyStrategy: "greedy", MaxTurns: 100, Seed: 11}

	result, err := RunGame(context.Background(), cfg, games, users)
	if err != nil {
		t.Fatalf("RunGame: %v", err)
	}
	if users.upserts != 1 || len(games.created) != 1 {
		t.Fatalf("expected one bot user and one game, got %d users, %v", users.upserts, games.created)
	}
	if games.created[0] != "bot-arena-greedy/greedy" {
		t.Errorf("created %q", games.created[0])
	}
	if result.GameID != "g1" {
		t.Errorf("game id = %q", result.GameID)
	}
	if games.status != result.Status {
		t.Errorf("recorded status %s, result %s", games.status, result.Status)
	}
	if len(games.progress) == 0 || games.progress[len(games.progress)-1] != result.Level {
		t.Errorf("progress updates %v do not end at level %d", games.progress, result.Level)
	}
}
