package service

import (
	"context"
	"testing"
	"time"

	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

func TestReapIdle(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	stale := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	fresh := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	f.games.games[stale].UpdatedAt = f.games.now.Add(-25 * time.Hour)

	r := NewIdleReaper(nil, f.games, f.svc, 24*time.Hour)
	r.now = func() time.Time { return f.games.now }

	if n := r.reapIdle(ctx); n != 1 {
		t.Fatalf("reaped %d games, want 1", n)
	}
	if s := f.games.games[stale].Status; s != model.GameAbandoned {
		t.Errorf("stale game status = %s", s)
	}
	if s := f.games.games[fresh].Status; s != model.GameActive {
		t.Errorf("fresh game status = %s", s)
	}
	if _, ok := f.cache.states[stale]; ok {
		t.Error("stale state not dropped")
	}
}

func TestHandleExpiry(t *testing.T) {
	f := newFixture(t, "passive")
	ctx := context.Background()
	id := f.seed(t, unit(t, tactics.Swordsman, 0, 100), unit(t, tactics.Undead, 63, 100))
	r := NewIdleReaper(nil, f.games, f.svc, time.Hour)

	r.handleExpiry(ctx, "game:"+id+":turn")
	if s := f.games.games[id].Status; s != model.GameActive {
		t.Fatalf("turn lock expiry abandoned the game")
	}

	r.handleExpiry(ctx, "game:"+id+":state")
	if s := f.games.games[id].Status; s != model.GameAbandoned {
		t.Fatalf("status = %s", s)
	}
	if got := f.bc.kinds(); len(got) != 1 || got[0] != EventGameOver {
		t.Errorf("events = %v", got)
	}

	// A game that already ended stays as it was.
	f.games.games[id].Status = model.GameLost
	r.handleExpiry(ctx, "game:"+id+":state")
	if s := f.games.games[id].Status; s != model.GameLost {
		t.Errorf("finished game changed to %s", s)
	}
}
