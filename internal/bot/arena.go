package bot

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/internal/repository"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// ArenaConfig configures a single headless game between two strategies.
type ArenaConfig struct {
	AllyStrategy  string // plays the allied side in place of a human
	EnemyStrategy string
	BoardSize     int   // 0 = tactics.DefaultBoardSize
	TeamSize      int   // 0 = tactics.StartingTeamSize
	MaxTurns      int   // allied turns before the run is retired; 0 = 500
	MoveRetryCap  int   // 0 = DefaultMoveRetryCap
	Seed          int64 // 0 = random
	DryRun        bool  // skip DB writes
}

// ArenaResult describes the outcome of a completed arena game.
type ArenaResult struct {
	GameID  string           `json:"game_id,omitempty"`
	Status  model.GameStatus `json:"status"`
	Level   int              `json:"level"`
	Points  int              `json:"points"`
	Turns   int              `json:"turns"`
	Kills   int              `json:"kills"`
	Rounds  int              `json:"rounds"` // level-ups reached
	Elapsed time.Duration    `json:"elapsed_ns"`
}

// RunGame plays a full game with bot strategies on both sides, recording
// the run in Postgres unless cfg.DryRun is set. Pass nil repos for dry-run
// mode.
func RunGame(
	ctx context.Context,
	cfg ArenaConfig,
	gameRepo repository.GameRepository,
	userRepo repository.UserRepository,
) (*ArenaResult, error) {
	if cfg.BoardSize == 0 {
		cfg.BoardSize = tactics.DefaultBoardSize
	}
	if cfg.TeamSize == 0 {
		cfg.TeamSize = tactics.StartingTeamSize
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 500
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	ally := NewStrategy(cfg.AllyStrategy, rng, cfg.MoveRetryCap)
	enemy := NewStrategy(cfg.EnemyStrategy, rng, cfg.MoveRetryCap)

	gs, err := tactics.NewGame(rng, cfg.BoardSize, cfg.TeamSize)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}

	result := &ArenaResult{Status: model.GameActive, Level: 1}
	if !cfg.DryRun {
		result.GameID, err = createArenaGame(ctx, cfg, ally, enemy, gameRepo, userRepo)
		if err != nil {
			return nil, fmt.Errorf("create arena game: %w", err)
		}
	}

	start := time.Now()
	for !gs.GameOver() && result.Turns < cfg.MaxTurns {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Turns++

		action := ally.ChooseAction(gs.Roster, tactics.Ally, cfg.BoardSize)
		report, err := ResolveTurn(gs, action, enemy, cfg.BoardSize, rng)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", result.Turns, err)
		}
		if a := report.Player.Attack; a != nil && a.DefenderKilled {
			result.Kills++
		}
		if report.LevelUp != nil {
			result.Rounds++
			result.Level = report.LevelUp.Level
			log.Debug().Str("gameId", result.GameID).Int("level", report.LevelUp.Level).Int("points", report.LevelUp.Points).Msg("Arena level up")
			if !cfg.DryRun {
				if err := gameRepo.UpdateProgress(ctx, result.GameID, report.LevelUp.Level, report.LevelUp.Points); err != nil {
					return nil, fmt.Errorf("update progress: %w", err)
				}
			}
		}
	}

	result.Status = model.GameRetired
	if gs.GameOver() {
		result.Status = model.GameLost
	}
	result.Points = gs.Points
	result.Elapsed = time.Since(start)

	if !cfg.DryRun {
		if err := gameRepo.UpdateProgress(ctx, result.GameID, result.Level, result.Points); err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}
		if err := gameRepo.SetStatus(ctx, result.GameID, result.Status); err != nil {
			return nil, fmt.Errorf("set status: %w", err)
		}
	}
	log.Info().Str("gameId", result.GameID).Str("status", string(result.Status)).
		Int("level", result.Level).Int("points", result.Points).Int("turns", result.Turns).
		Msg("Arena game finished")
	return result, nil
}

// createArenaGame registers the ally bot as a user and opens a game for it.
func createArenaGame(
	ctx context.Context,
	cfg ArenaConfig,
	ally, enemy Strategy,
	gameRepo repository.GameRepository,
	userRepo repository.UserRepository,
) (string, error) {
	providerID := fmt.Sprintf("arena-%s", ally.Name())
	displayName := fmt.Sprintf("Bot (%s)", ally.Name())
	user, err := userRepo.Upsert(ctx, "bot", providerID, displayName, "")
	if err != nil {
		return "", fmt.Errorf("upsert bot user: %w", err)
	}
	game, err := gameRepo.Create(ctx, user.ID, enemy.Name())
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	log.Debug().Str("gameId", game.ID).Str("ally", ally.Name()).Str("enemy", enemy.Name()).Int("boardSize", cfg.BoardSize).Msg("Arena game created")
	return game.ID, nil
}
