package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/freeeve/retro-tactics/api/internal/config"
	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

type fixture struct {
	svc   *GameService
	games *mockGameRepo
	saves *mockSaveRepo
	cache *mockCache
	bc    *recordingBroadcaster
}

func newFixture(t *testing.T, enemyStrategy string) *fixture {
	t.Helper()
	rules := config.DefaultRules()
	rules.EnemyStrategy = enemyStrategy
	f := &fixture{
		games: newMockGameRepo(),
		saves: newMockSaveRepo(),
		cache: newMockCache(),
		bc:    &recordingBroadcaster{},
	}
	f.svc = NewGameService(f.games, f.saves, f.cache, f.bc, rules)
	f.svc.SetRand(rand.New(rand.NewSource(7)))
	return f
}

func unit(t *testing.T, a tactics.Archetype, cell, health int) tactics.PositionedCharacter {
	t.Helper()
	c, err := tactics.NewCharacter(a, 1)
	if err != nil {
		t.Fatalf("new character: %v", err)
	}
	c.Health = health
	return tactics.PositionedCharacter{Character: c, Position: cell}
}

// seed creates a game for user-1 with the given roster, allies first.
func (f *fixture) seed(t *testing.T, units ...tactics.PositionedCharacter) string {
	t.Helper()
	g, _ := f.games.Create(context.Background(), "user-1", f.svc.rules.EnemyStrategy)
	data, err := tactics.EncodeState(&tactics.GameState{Theme: tactics.ThemePrairie, Roster: units})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.cache.states[g.ID] = data
	return g.ID
}

func TestNewGame(t *testing.T) {
	f := newFixture(t, "greedy")
	view, err := f.svc.NewGame(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if view.Game.Status != model.GameActive || view.Game.Level != 1 || view.Game.EnemyStrategy != "greedy" {
		t.Errorf("unexpected game: %+v", view.Game)
	}
	if len(view.State.Roster) != tactics.StartingTeamSize {
		t.Errorf("roster size = %d", len(view.State.Roster))
	}
	if view.BoardSize != tactics.DefaultBoardSize {
		t.Errorf("board size = %d", view.BoardSize)
	}
	if _, ok := f.cache.states[view.Game.ID]; !ok {
		t.Error("live state not cached")
	}
}

func TestStateOwnership(t *testing.T) {
	f := newFixture(t, "greedy")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))

	if _, err := f.svc.State(ctx, id, "user-2"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign user: got %v", err)
	}
	if _, err := f.svc.State(ctx, "missing", "user-1"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("missing game: got %v", err)
	}
	view, err := f.svc.State(ctx, id, "user-1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(view.State.Roster) != 2 {
		t.Errorf("roster = %+v", view.State.Roster)
	}
}

func TestAttackTriggersLevelUp(t *testing.T) {
	f := newFixture(t, "greedy")
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 1, 10))

	res, err := f.svc.Attack(context.Background(), id, "user-1", 0, 1)
	if err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if res.Player.Attack == nil || !res.Player.Attack.FactionEliminated {
		t.Fatalf("expected the enemy side to fall: %+v", res.Player)
	}
	if res.LevelUp == nil || res.LevelUp.Level != 2 {
		t.Fatalf("expected level up to 2: %+v", res.LevelUp)
	}
	if res.Reply != nil || res.ReplyDelayMs != 0 {
		t.Errorf("no enemy reply expected after a level up: %+v, %d", res.Reply, res.ReplyDelayMs)
	}
	if res.Status != model.GameActive {
		t.Errorf("status = %s", res.Status)
	}

	g := f.games.games[id]
	if g.Level != 2 || g.Points != res.State.Points || g.Points == 0 {
		t.Errorf("progress not recorded: %+v", g)
	}
	want := []string{EventDamage, EventLevelUp, EventStateChanged}
	if !slices.Equal(f.bc.kinds(), want) {
		t.Errorf("events = %v, want %v", f.bc.kinds(), want)
	}
	if f.cache.turns[id] != "" {
		t.Error("turn lock not released")
	}
}

func TestMoveGetsEnemyReply(t *testing.T) {
	f := newFixture(t, "passive")
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))

	res, err := f.svc.Move(context.Background(), id, "user-1", 0, 9)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Reply == nil || res.Reply.Action.Kind != tactics.ActionPass {
		t.Fatalf("expected a passing reply: %+v", res.Reply)
	}
	if res.ReplyDelayMs != 1000 {
		t.Errorf("reply delay = %d", res.ReplyDelayMs)
	}
	if res.State.Roster.At(9) == nil {
		t.Error("unit did not move")
	}

	var stored tactics.GameState
	if err := json.Unmarshal(f.cache.states[id], &stored); err != nil {
		t.Fatalf("cached state: %v", err)
	}
	if stored.Roster.At(9) == nil {
		t.Error("moved state not cached")
	}
}

func TestEnemyReplyEndsGame(t *testing.T) {
	f := newFixture(t, "greedy")
	id := f.seed(t, unit(t, tactics.Magician, 0, 3), unit(t, tactics.Undead, 1, 100))

	res, err := f.svc.Attack(context.Background(), id, "user-1", 0, 1)
	if err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if !res.GameOver || res.Status != model.GameLost {
		t.Fatalf("expected a lost game: %+v", res)
	}
	if res.Reply == nil || res.Reply.Attack == nil || !res.Reply.Attack.DefenderKilled {
		t.Fatalf("expected the undead to kill the magician: %+v", res.Reply)
	}
	if g := f.games.games[id]; g.Status != model.GameLost || g.FinishedAt == nil {
		t.Errorf("game record: %+v", g)
	}
	if _, ok := f.cache.states[id]; ok {
		t.Error("live state should be dropped")
	}
	want := []string{EventDamage, EventDamage, EventStateChanged, EventGameOver}
	if !slices.Equal(f.bc.kinds(), want) {
		t.Errorf("events = %v, want %v", f.bc.kinds(), want)
	}

	if _, err := f.svc.Move(context.Background(), id, "user-1", 0, 8); !errors.Is(err, ErrGameOver) {
		t.Errorf("acting on a lost game: got %v", err)
	}
}

func TestActRejections(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	before := string(f.cache.states[id])

	tests := []struct {
		name   string
		action tactics.Action
		want   error
	}{
		{"empty cell", tactics.Action{Kind: tactics.ActionMove, From: 5, To: 6}, tactics.ErrNoUnit},
		{"enemy unit", tactics.Action{Kind: tactics.ActionMove, From: 63, To: 62}, tactics.ErrNotYourUnit},
		{"too far", tactics.Action{Kind: tactics.ActionMove, From: 0, To: 7 * 8}, tactics.ErrUnreachableTarget},
		{"out of range", tactics.Action{Kind: tactics.ActionAttack, From: 0, To: 63}, tactics.ErrUnreachableTarget},
		{"bad kind", tactics.Action{Kind: "dance", From: 0, To: 1}, tactics.ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Act(ctx, id, "user-1", tt.action); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if string(f.cache.states[id]) != before {
		t.Error("rejected actions must not change the state")
	}
	if len(f.bc.events) != 0 {
		t.Errorf("rejected actions broadcast %v", f.bc.kinds())
	}
}

func TestTurnInProgress(t *testing.T) {
	f := newFixture(t, "passive")
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	f.cache.turns[id] = "other-request"

	if _, err := f.svc.Move(context.Background(), id, "user-1", 0, 9); !errors.Is(err, ErrTurnInProgress) {
		t.Fatalf("got %v", err)
	}
	if f.cache.turns[id] != "other-request" {
		t.Error("a rejected request must not release someone else's lock")
	}
}

func TestExpiredTurnDoesNotReleaseNewerLock(t *testing.T) {
	f := newFixture(t, "passive")
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	// The lock lapses mid-turn and a second request takes it over.
	f.cache.beforeGet = func(gameID string) {
		f.cache.mu.Lock()
		f.cache.turns[gameID] = "later-request"
		f.cache.mu.Unlock()
	}

	if _, err := f.svc.Move(context.Background(), id, "user-1", 0, 9); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := f.cache.turns[id]; got != "later-request" {
		t.Errorf("lock = %q, want the later request's lock untouched", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))

	if _, err := f.svc.Load(ctx, id, "user-1"); !errors.Is(err, ErrNoSave) {
		t.Fatalf("load without save: got %v", err)
	}

	save, err := f.svc.Save(ctx, id, "user-1")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if save.GameID != id || save.Level != 1 {
		t.Errorf("save = %+v", save)
	}

	if _, err := f.svc.Move(ctx, id, "user-1", 0, 9); err != nil {
		t.Fatalf("Move: %v", err)
	}
	view, err := f.svc.Load(ctx, id, "user-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if view.State.Roster.At(0) == nil || view.State.Roster.At(9) != nil {
		t.Errorf("load did not restore the saved position: %+v", view.State.Roster)
	}
}

func TestLoadRejectsCorruptSave(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	before := string(f.cache.states[id])
	f.saves.saves["user-1"] = model.Save{UserID: "user-1", GameID: id, State: json.RawMessage(`{"theme":"moon","points":"x"}`)}

	_, err := f.svc.Load(ctx, id, "user-1")
	var se *tactics.StateError
	if !errors.As(err, &se) || !errors.Is(err, tactics.ErrInvalidPersistedState) {
		t.Fatalf("expected a state error, got %v", err)
	}
	if string(f.cache.states[id]) != before {
		t.Error("corrupt save overwrote the live state")
	}
}

func TestRetire(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))

	g, err := f.svc.Retire(ctx, id, "user-1")
	if err != nil {
		t.Fatalf("Retire: %v", err)
	}
	if g.Status != model.GameRetired {
		t.Errorf("status = %s", g.Status)
	}
	if _, err := f.svc.Retire(ctx, id, "user-1"); !errors.Is(err, ErrGameOver) {
		t.Errorf("second retire: got %v", err)
	}
	view, err := f.svc.State(ctx, id, "user-1")
	if err != nil || view.State != nil {
		t.Errorf("finished game view: %+v, %v", view, err)
	}
}

func TestMissingStateAbandonsGame(t *testing.T) {
	f := newFixture(t, "passive")
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	delete(f.cache.states, id)

	if _, err := f.svc.Move(context.Background(), id, "user-1", 0, 9); !errors.Is(err, ErrGameOver) {
		t.Fatalf("got %v", err)
	}
	if s := f.games.games[id].Status; s != model.GameAbandoned {
		t.Errorf("status = %s", s)
	}
}

func TestDistanceAndIntent(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 1, 100))

	d, err := f.svc.Distance(ctx, id, "user-1", 0, 63)
	if err != nil || d.Distance != 7 || !d.Reachable {
		t.Errorf("diagonal distance: %+v, %v", d, err)
	}
	d, _ = f.svc.Distance(ctx, id, "user-1", 0, 10)
	if d.Reachable {
		t.Errorf("knight move should not be reachable: %+v", d)
	}
	if _, err := f.svc.Distance(ctx, id, "user-1", 0, 64); !errors.Is(err, ErrInvalidCell) {
		t.Errorf("off-board cell: got %v", err)
	}

	in, err := f.svc.Intent(ctx, id, "user-1", 0, 1)
	if err != nil {
		t.Fatalf("Intent: %v", err)
	}
	if in.Cursor != tactics.CursorCrosshair || in.Tooltip == "" {
		t.Errorf("hovering an adjacent enemy: %+v", in)
	}
	in, _ = f.svc.Intent(ctx, id, "user-1", -1, 0)
	if in.Cursor != tactics.CursorPointer {
		t.Errorf("hovering an ally with nothing selected: %+v", in)
	}
}

func TestLeaderboardClamp(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	for range 3 {
		g, _ := f.games.Create(ctx, "user-1", "greedy")
		f.games.SetStatus(ctx, g.ID, model.GameLost)
	}

	entries, err := f.svc.Leaderboard(ctx, 0)
	if err != nil || len(entries) != 1 || entries[0].GamesPlayed != 3 {
		t.Errorf("leaderboard: %+v, %v", entries, err)
	}
	empty := newFixture(t, "passive")
	entries, _ = empty.svc.Leaderboard(ctx, 1000)
	if entries == nil || len(entries) != 0 {
		t.Errorf("empty leaderboard should be a non-nil empty slice: %#v", entries)
	}
}
