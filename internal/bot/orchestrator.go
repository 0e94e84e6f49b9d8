package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// Orchestrator plays one game against a running server through its public
// API, choosing allied actions with a strategy.
type Orchestrator struct {
	baseURL     string
	strategy    Strategy
	maxTurns    int
	waitTimeout time.Duration
}

// NewOrchestrator creates a new Orchestrator. The game is retired after
// maxTurns allied actions.
func NewOrchestrator(baseURL string, strategy Strategy, maxTurns int) *Orchestrator {
	if maxTurns <= 0 {
		maxTurns = 500
	}
	return &Orchestrator{
		baseURL:     baseURL,
		strategy:    strategy,
		maxTurns:    maxTurns,
		waitTimeout: 30 * time.Second,
	}
}

// Run logs in, starts a game and plays it until it ends.
func (o *Orchestrator) Run(ctx context.Context, name string) (*ArenaResult, error) {
	log.Info().Str("strategy", o.strategy.Name()).Str("bot", name).Msg("Starting bot game")
	start := time.Now()

	c := NewClient(name, o.baseURL)
	if err := c.Login(ctx); err != nil {
		return nil, fmt.Errorf("login %s: %w", name, err)
	}

	g, err := c.CreateGame(ctx)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	gameID := g.Game.ID
	log.Info().Str("gameId", gameID).Msg("Game created")

	if err := c.ConnectWS(ctx); err != nil {
		return nil, fmt.Errorf("ws connect: %w", err)
	}
	defer c.CloseWS()
	if err := c.SubscribeGame(gameID); err != nil {
		return nil, fmt.Errorf("ws subscribe: %w", err)
	}
	if _, err := o.waitForEvent(ctx, c, "subscribed"); err != nil {
		return nil, fmt.Errorf("ws subscribe: %w", err)
	}

	result, err := o.playLoop(ctx, c, g)
	if err != nil {
		return nil, err
	}
	result.GameID = gameID
	result.Elapsed = time.Since(start)
	return result, nil
}

// playLoop submits one allied action per turn and follows the server's
// events until the game is no longer active.
func (o *Orchestrator) playLoop(ctx context.Context, c *Client, g *RemoteGame) (*ArenaResult, error) {
	result := &ArenaResult{Status: g.Game.Status, Level: g.Game.Level}
	state := g.State
	gameID := g.Game.ID

	for result.Status == model.GameActive {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping bot")
			return nil, ctx.Err()
		default:
		}
		if state == nil {
			return nil, fmt.Errorf("game %s has no live state", gameID)
		}

		a := o.strategy.ChooseAction(state.Roster, tactics.Ally, g.BoardSize)
		if a.Kind == tactics.ActionPass || result.Turns >= o.maxTurns {
			if err := c.Retire(ctx, gameID); err != nil {
				return nil, fmt.Errorf("retire: %w", err)
			}
			result.Status = model.GameRetired
			break
		}

		turn, err := c.Act(ctx, gameID, a)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", result.Turns+1, err)
		}
		result.Turns++
		if turn.Player.Attack != nil && turn.Player.Attack.DefenderKilled {
			result.Kills++
		}
		if turn.LevelUp != nil {
			result.Rounds++
			result.Level = turn.LevelUp.Level
		}
		result.Status = turn.Status
		result.Points = turn.State.Points
		state = turn.State

		want := EventTypeStateChanged
		if turn.GameOver {
			want = EventTypeGameOver
		}
		if _, err := o.waitForEvent(ctx, c, want); err != nil {
			return nil, fmt.Errorf("wait for %s: %w", want, err)
		}
		log.Debug().Str("gameId", gameID).Int("turn", result.Turns).Int("points", result.Points).Msg("Turn resolved")
	}

	log.Info().Str("gameId", gameID).Str("status", string(result.Status)).
		Int("level", result.Level).Int("points", result.Points).Msg("Game ended")
	return result, nil
}

// Event types the orchestrator waits for.
const (
	EventTypeStateChanged = "state_changed"
	EventTypeGameOver     = "game_over"
)

// waitForEvent blocks until one of the given event types is received or context cancels.
func (o *Orchestrator) waitForEvent(ctx context.Context, c *Client, eventTypes ...string) (WSEvent, error) {
	typeSet := make(map[string]bool)
	for _, t := range eventTypes {
		typeSet[t] = true
	}

	timeout := time.After(o.waitTimeout)
	for {
		select {
		case <-ctx.Done():
			return WSEvent{}, ctx.Err()
		case <-timeout:
			return WSEvent{}, fmt.Errorf("timeout waiting for events %v", eventTypes)
		case event, ok := <-c.Events():
			if !ok {
				return WSEvent{}, fmt.Errorf("ws connection closed")
			}
			if typeSet[event.Type] {
				return event, nil
			}
			log.Debug().Str("type", event.Type).Msg("Ignoring event")
		}
	}
}
