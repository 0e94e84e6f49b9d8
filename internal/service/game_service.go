package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/bot"
	"github.com/freeeve/retro-tactics/api/internal/config"
	"github.com/freeeve/retro-tactics/api/internal/logger"
	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/internal/repository"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrNotOwner       = errors.New("you do not own this game")
	ErrGameOver       = errors.New("game is over")
	ErrTurnInProgress = errors.New("another action is being resolved for this game")
	ErrNoSave         = errors.New("no saved game")
	ErrInvalidCell    = errors.New("cell is off the board")
)

const (
	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100
)

// GameView is a game record together with its live state. State is nil
// once a finished game's state has been dropped.
type GameView struct {
	Game      *model.Game        `json:"game"`
	State     *tactics.GameState `json:"state,omitempty"`
	BoardSize int                `json:"board_size"`
}

// TurnResult is the response to a player action.
type TurnResult struct {
	*bot.TurnReport
	State        *tactics.GameState `json:"state"`
	Status       model.GameStatus   `json:"status"`
	ReplyDelayMs int64              `json:"reply_delay_ms"`
}

// DistanceResult answers a geometry query.
type DistanceResult struct {
	From      int  `json:"from"`
	To        int  `json:"to"`
	Distance  int  `json:"distance"`
	Reachable bool `json:"reachable"`
}

// GameService owns the game lifecycle: creating runs, resolving turns,
// saving, loading and ending them.
type GameService struct {
	gameRepo    repository.GameRepository
	saveRepo    repository.SaveRepository
	cache       repository.GameCache
	broadcaster Broadcaster
	rules       config.Rules
	rng         tactics.Rand
}

// NewGameService creates a GameService.
func NewGameService(
	gameRepo repository.GameRepository,
	saveRepo repository.SaveRepository,
	cache repository.GameCache,
	broadcaster Broadcaster,
	rules config.Rules,
) *GameService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &GameService{
		gameRepo:    gameRepo,
		saveRepo:    saveRepo,
		cache:       cache,
		broadcaster: broadcaster,
		rules:       rules,
	}
}

// SetRand replaces the random source used for new teams, level-ups and the
// enemy policy. Tests use it for reproducible games.
func (s *GameService) SetRand(rng tactics.Rand) {
	s.rng = rng
}

// Rules returns the rules the service plays by.
func (s *GameService) Rules() config.Rules {
	return s.rules
}

// NewGame starts a fresh run for userID.
func (s *GameService) NewGame(ctx context.Context, userID string) (*GameView, error) {
	gs, err := tactics.NewGame(s.rng, s.rules.BoardSize, s.rules.StartingTeamSize)
	if err != nil {
		return nil, err
	}
	game, err := s.gameRepo.Create(ctx, userID, s.rules.EnemyStrategy)
	if err != nil {
		return nil, err
	}
	if err := s.storeState(ctx, game.ID, gs); err != nil {
		return nil, err
	}

	l := logger.ForRequest(logger.WithGameID(ctx, game.ID))
	l.Info().Str("userId", userID).Str("enemyStrategy", game.EnemyStrategy).
		Int("units", len(gs.Roster)).Msg("Game created")
	return &GameView{Game: game, State: gs, BoardSize: s.rules.BoardSize}, nil
}

// State returns a game owned by userID with its live state.
func (s *GameService) State(ctx context.Context, gameID, userID string) (*GameView, error) {
	game, err := s.ownedGame(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	view := &GameView{Game: game, BoardSize: s.rules.BoardSize}
	if game.Status.Finished() {
		return view, nil
	}
	gs, err := s.loadState(ctx, game)
	if err != nil {
		return nil, err
	}
	view.State = gs
	return view, nil
}

// ListGames returns the games userID has played.
func (s *GameService) ListGames(ctx context.Context, userID string) ([]model.Game, error) {
	games, err := s.gameRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = []model.Game{}
	}
	return games, nil
}

// Distance measures the move distance between two cells of a game's board.
func (s *GameService) Distance(ctx context.Context, gameID, userID string, from, to int) (*DistanceResult, error) {
	if _, err := s.ownedGame(ctx, gameID, userID); err != nil {
		return nil, err
	}
	n := s.rules.BoardSize
	if !tactics.InBounds(from, n) || !tactics.InBounds(to, n) {
		return nil, ErrInvalidCell
	}
	d, ok := tactics.Distance(from, to, n)
	return &DistanceResult{From: from, To: to, Distance: d, Reachable: ok}, nil
}

// Intent tells the client what clicking cell would do while selected
// (negative for none) is the selected unit.
func (s *GameService) Intent(ctx context.Context, gameID, userID string, selected, cell int) (tactics.Intent, error) {
	n := s.rules.BoardSize
	if !tactics.InBounds(cell, n) || selected >= tactics.CellCount(n) {
		return tactics.Intent{}, ErrInvalidCell
	}
	game, err := s.activeGame(ctx, gameID, userID)
	if err != nil {
		return tactics.Intent{}, err
	}
	gs, err := s.loadState(ctx, game)
	if err != nil {
		return tactics.Intent{}, err
	}
	return tactics.HoverIntent(gs.Roster, selected, cell, n), nil
}

// Move moves the allied unit on from to the empty cell to, then resolves
// the enemy reply.
func (s *GameService) Move(ctx context.Context, gameID, userID string, from, to int) (*TurnResult, error) {
	return s.Act(ctx, gameID, userID, tactics.Action{Kind: tactics.ActionMove, From: from, To: to})
}

// Attack makes the allied unit on from attack the enemy on to, then
// resolves the enemy reply or the level-up.
func (s *GameService) Attack(ctx context.Context, gameID, userID string, from, to int) (*TurnResult, error) {
	return s.Act(ctx, gameID, userID, tactics.Action{Kind: tactics.ActionAttack, From: from, To: to})
}

// Act resolves one allied action under the game's turn lock.
func (s *GameService) Act(ctx context.Context, gameID, userID string, action tactics.Action) (*TurnResult, error) {
	game, err := s.activeGame(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	token, ok, err := s.cache.AcquireTurn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTurnInProgress
	}
	defer func() {
		if err := s.cache.ReleaseTurn(context.WithoutCancel(ctx), gameID, token); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to release turn lock")
		}
	}()

	gs, err := s.loadState(ctx, game)
	if err != nil {
		return nil, err
	}
	enemy := bot.NewStrategy(game.EnemyStrategy, s.rng, s.rules.MoveRetryCap)
	report, err := bot.ResolveTurn(gs, action, enemy, s.rules.BoardSize, s.rng)
	if err != nil {
		return nil, err
	}

	level := game.Level
	if report.LevelUp != nil {
		level = report.LevelUp.Level
	}
	status := model.GameActive
	if report.GameOver {
		status = model.GameLost
	}

	if err := s.gameRepo.UpdateProgress(ctx, gameID, level, gs.Points); err != nil {
		return nil, err
	}
	if status == model.GameActive {
		if err := s.storeState(ctx, gameID, gs); err != nil {
			return nil, err
		}
	} else if err := s.finish(ctx, gameID, status); err != nil {
		return nil, err
	}

	s.broadcastTurn(gameID, report, gs, level, status)

	l := logger.ForRequest(logger.WithGameID(ctx, gameID))
	ev := l.Info().Str("action", string(action.Kind)).Int("from", action.From).Int("to", action.To).
		Int("level", level).Int("points", gs.Points)
	if report.Reply != nil {
		ev = ev.Str("reply", string(report.Reply.Action.Kind))
	}
	ev.Bool("gameOver", report.GameOver).Msg("Turn resolved")

	result := &TurnResult{TurnReport: report, State: gs, Status: status}
	if report.Reply != nil {
		result.ReplyDelayMs = s.rules.EnemyReplyDelay.Milliseconds()
	}
	return result, nil
}

// Save copies the live state of a game into userID's save slot,
// replacing whatever was there.
func (s *GameService) Save(ctx context.Context, gameID, userID string) (*model.Save, error) {
	game, err := s.activeGame(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	gs, err := s.loadState(ctx, game)
	if err != nil {
		return nil, err
	}
	data, err := tactics.EncodeState(gs)
	if err != nil {
		return nil, err
	}
	save := model.Save{UserID: userID, GameID: gameID, State: data, Level: game.Level, Points: gs.Points}
	if err := s.saveRepo.Put(ctx, save); err != nil {
		return nil, err
	}
	l := logger.ForRequest(logger.WithGameID(ctx, gameID))
	l.Info().Int("level", save.Level).Int("points", save.Points).Msg("Game saved")
	return &save, nil
}

// Load restores userID's save slot into an active game. The saved state
// is validated before anything is overwritten.
func (s *GameService) Load(ctx context.Context, gameID, userID string) (*GameView, error) {
	game, err := s.activeGame(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	save, err := s.saveRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if save == nil {
		return nil, ErrNoSave
	}
	gs, err := tactics.DecodeState(save.State)
	if err != nil {
		return nil, err
	}

	if err := s.storeState(ctx, gameID, gs); err != nil {
		return nil, err
	}
	if err := s.gameRepo.UpdateProgress(ctx, gameID, save.Level, gs.Points); err != nil {
		return nil, err
	}
	game.Level, game.Points = save.Level, gs.Points

	s.broadcaster.BroadcastGameEvent(gameID, EventStateChanged, stateEvent(gs, save.Level, model.GameActive))
	l := logger.ForRequest(logger.WithGameID(ctx, gameID))
	l.Info().Str("savedFrom", save.GameID).Int("level", save.Level).Msg("Save loaded")
	return &GameView{Game: game, State: gs, BoardSize: s.rules.BoardSize}, nil
}

// Retire ends an active run at the owner's request. The score stands.
func (s *GameService) Retire(ctx context.Context, gameID, userID string) (*model.Game, error) {
	game, err := s.activeGame(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.finish(ctx, gameID, model.GameRetired); err != nil {
		return nil, err
	}
	game.Status = model.GameRetired
	s.broadcaster.BroadcastGameEvent(gameID, EventGameOver, gameOverEvent(game.Level, game.Points, game.Status))
	l := logger.ForRequest(logger.WithGameID(ctx, gameID))
	l.Info().Int("level", game.Level).Int("points", game.Points).Msg("Game retired")
	return game, nil
}

// Abandon ends an active game that has sat idle past its timeout. Games
// that already finished are left alone.
func (s *GameService) Abandon(ctx context.Context, gameID string) error {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil || game.Status.Finished() {
		return nil
	}
	if err := s.finish(ctx, gameID, model.GameAbandoned); err != nil {
		return err
	}
	s.broadcaster.BroadcastGameEvent(gameID, EventGameOver, gameOverEvent(game.Level, game.Points, model.GameAbandoned))
	log.Info().Str("gameId", gameID).Int("level", game.Level).Msg("Idle game abandoned")
	return nil
}

// Leaderboard returns the best finished runs. limit is clamped to a sane range.
func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	limit = min(limit, maxLeaderboardSize)
	entries, err := s.gameRepo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}

func (s *GameService) ownedGame(ctx context.Context, gameID, userID string) (*model.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return game, nil
}

func (s *GameService) activeGame(ctx context.Context, gameID, userID string) (*model.Game, error) {
	game, err := s.ownedGame(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if game.Status.Finished() {
		return nil, ErrGameOver
	}
	return game, nil
}

// loadState reads the live state of an active game. A missing state means
// the game idled out before the reaper noticed; it is abandoned on the spot.
func (s *GameService) loadState(ctx context.Context, game *model.Game) (*tactics.GameState, error) {
	data, err := s.cache.GetGameState(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		if err := s.Abandon(ctx, game.ID); err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to abandon game without state")
		}
		return nil, ErrGameOver
	}
	gs, err := tactics.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("live state of game %s: %w", game.ID, err)
	}
	return gs, nil
}

func (s *GameService) storeState(ctx context.Context, gameID string, gs *tactics.GameState) error {
	data, err := tactics.EncodeState(gs)
	if err != nil {
		return err
	}
	return s.cache.SetGameState(ctx, gameID, data)
}

func (s *GameService) finish(ctx context.Context, gameID string, status model.GameStatus) error {
	if err := s.gameRepo.SetStatus(ctx, gameID, status); err != nil {
		return err
	}
	if err := s.cache.DeleteGameState(ctx, gameID); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to drop live state")
	}
	return nil
}

func (s *GameService) broadcastTurn(gameID string, report *bot.TurnReport, gs *tactics.GameState, level int, status model.GameStatus) {
	for _, out := range []*tactics.Outcome{&report.Player, report.Reply} {
		if out != nil && out.Attack != nil {
			s.broadcaster.BroadcastGameEvent(gameID, EventDamage, damageEvent{Side: out.Side, AttackResult: *out.Attack})
		}
	}
	if report.LevelUp != nil {
		s.broadcaster.BroadcastGameEvent(gameID, EventLevelUp, report.LevelUp)
	}
	s.broadcaster.BroadcastGameEvent(gameID, EventStateChanged, stateEvent(gs, level, status))
	if status.Finished() {
		s.broadcaster.BroadcastGameEvent(gameID, EventGameOver, gameOverEvent(level, gs.Points, status))
	}
}

type damageEvent struct {
	Side tactics.Alignment `json:"side"`
	tactics.AttackResult
}

func stateEvent(gs *tactics.GameState, level int, status model.GameStatus) map[string]any {
	return map[string]any{"state": gs, "level": level, "status": status}
}

func gameOverEvent(level, points int, status model.GameStatus) map[string]any {
	return map[string]any{"status": status, "level": level, "points": points}
}

// CanWatch reports whether userID may follow gameID's live events.
func (s *GameService) CanWatch(ctx context.Context, gameID, userID string) error {
	_, err := s.ownedGame(ctx, gameID, userID)
	return err
}
