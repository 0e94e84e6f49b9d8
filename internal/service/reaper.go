package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/repository"
	redisrepo "github.com/freeeve/retro-tactics/api/internal/repository/redis"
)

const defaultReapInterval = time.Minute

// IdleReaper abandons games nobody has touched for the idle timeout. It
// listens for Redis expiry events on game state keys and runs a polling
// fallback over active games in case keyspace notifications are unavailable.
type IdleReaper struct {
	rdb      *redis.Client
	gameRepo repository.GameRepository
	gameSvc  *GameService
	idle     time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewIdleReaper creates an IdleReaper. rdb may be nil to poll only.
func NewIdleReaper(rdb *redis.Client, gameRepo repository.GameRepository, gameSvc *GameService, idle time.Duration) *IdleReaper {
	return &IdleReaper{
		rdb:      rdb,
		gameRepo: gameRepo,
		gameSvc:  gameSvc,
		idle:     idle,
		interval: defaultReapInterval,
		now:      time.Now,
	}
}

// Start listens for expiry events and polls until ctx is cancelled.
func (r *IdleReaper) Start(ctx context.Context) {
	if r.rdb != nil {
		go r.listenKeyspace(ctx)
	}
	r.poll(ctx)
}

func (r *IdleReaper) listenKeyspace(ctx context.Context) {
	pubsub := r.rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer pubsub.Close()

	log.Info().Msg("Idle reaper listening for expired game state")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleExpiry(ctx, msg.Payload)
		}
	}
}

func (r *IdleReaper) poll(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Dur("idleTimeout", r.idle).Msg("Idle game poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Idle game poller stopped")
			return
		case <-ticker.C:
			r.reapIdle(ctx)
		}
	}
}

// reapIdle abandons active games whose last update is older than the idle timeout.
func (r *IdleReaper) reapIdle(ctx context.Context) int {
	games, err := r.gameRepo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list active games")
		return 0
	}
	cutoff := r.now().Add(-r.idle)
	reaped := 0
	for _, g := range games {
		if !g.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := r.gameSvc.Abandon(ctx, g.ID); err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("Failed to abandon idle game")
			continue
		}
		reaped++
	}
	if reaped > 0 {
		log.Info().Int("count", reaped).Msg("Poller abandoned idle games")
	}
	return reaped
}

// handleExpiry processes an expired key. Only game state keys matter.
func (r *IdleReaper) handleExpiry(ctx context.Context, key string) {
	gameID, ok := redisrepo.GameIDFromStateKey(key)
	if !ok {
		return
	}
	log.Info().Str("gameId", gameID).Msg("Game state expired")
	if err := r.gameSvc.Abandon(ctx, gameID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to abandon expired game")
	}
}
