package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/internal/repository"
)

type mockGameRepo struct {
	games map[string]*model.Game
	now   time.Time
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{
		games: make(map[string]*model.Game),
		now:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *mockGameRepo) Create(_ context.Context, ownerID, enemyStrategy string) (*model.Game, error) {
	g := &model.Game{
		ID:            fmt.Sprintf("game-%d", len(m.games)+1),
		OwnerID:       ownerID,
		Status:        model.GameActive,
		EnemyStrategy: enemyStrategy,
		Level:         1,
		CreatedAt:     m.now,
		UpdatedAt:     m.now,
	}
	m.games[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m *mockGameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *mockGameRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Game, error) {
	var result []model.Game
	for _, g := range m.sorted() {
		if g.OwnerID == ownerID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockGameRepo) ListActive(_ context.Context) ([]model.Game, error) {
	var result []model.Game
	for _, g := range m.sorted() {
		if g.Status == model.GameActive {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockGameRepo) sorted() []model.Game {
	out := make([]model.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockGameRepo) UpdateProgress(_ context.Context, id string, level, points int) error {
	g, ok := m.games[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Level, g.Points, g.UpdatedAt = level, points, m.now
	return nil
}

func (m *mockGameRepo) SetStatus(_ context.Context, id string, status model.GameStatus) error {
	g, ok := m.games[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Status = status
	if status.Finished() {
		at := m.now
		g.FinishedAt = &at
	}
	return nil
}

func (m *mockGameRepo) Leaderboard(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	best := map[string]*model.LeaderboardEntry{}
	for _, g := range m.games {
		if !g.Status.Finished() {
			continue
		}
		e, ok := best[g.OwnerID]
		if !ok {
			e = &model.LeaderboardEntry{UserID: g.OwnerID, DisplayName: g.OwnerID}
			best[g.OwnerID] = e
		}
		e.BestPoints = max(e.BestPoints, g.Points)
		e.BestLevel = max(e.BestLevel, g.Level)
		e.GamesPlayed++
	}
	var out []model.LeaderboardEntry
	for _, e := range best {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BestPoints > out[j].BestPoints })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockSaveRepo struct {
	saves map[string]model.Save
}

func newMockSaveRepo() *mockSaveRepo {
	return &mockSaveRepo{saves: make(map[string]model.Save)}
}

func (m *mockSaveRepo) Put(_ context.Context, s model.Save) error {
	m.saves[s.UserID] = s
	return nil
}

func (m *mockSaveRepo) Get(_ context.Context, userID string) (*model.Save, error) {
	s, ok := m.saves[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type mockCache struct {
	mu     sync.Mutex
	states map[string]json.RawMessage
	turns  map[string]string
	seq    int

	// beforeGet runs at the start of GetGameState, outside the lock.
	beforeGet func(gameID string)
}

func newMockCache() *mockCache {
	return &mockCache{
		states: make(map[string]json.RawMessage),
		turns:  make(map[string]string),
	}
}

func (c *mockCache) SetGameState(_ context.Context, gameID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[gameID] = state
	return nil
}

func (c *mockCache) GetGameState(_ context.Context, gameID string) (json.RawMessage, error) {
	if c.beforeGet != nil {
		c.beforeGet(gameID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[gameID], nil
}

func (c *mockCache) DeleteGameState(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	delete(c.turns, gameID)
	return nil
}

func (c *mockCache) AcquireTurn(_ context.Context, gameID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turns[gameID] != "" {
		return "", false, nil
	}
	c.seq++
	token := fmt.Sprintf("turn-%d", c.seq)
	c.turns[gameID] = token
	return token, true, nil
}

func (c *mockCache) ReleaseTurn(_ context.Context, gameID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turns[gameID] == token {
		delete(c.turns, gameID)
	}
	return nil
}

type event struct {
	gameID string
	kind   string
	data   any
}

type recordingBroadcaster struct {
	events []event
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.events = append(b.events, event{gameID: gameID, kind: eventType, data: data})
}

func (b *recordingBroadcaster) kinds() []string {
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.kind
	}
	return out
}
