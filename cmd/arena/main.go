// Command arena plays headless games between enemy policies to compare
// them, optionally recording every run in Postgres.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/bot"
	"github.com/freeeve/retro-tactics/api/internal/config"
	"github.com/freeeve/retro-tactics/api/internal/logger"
	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/internal/repository/postgres"
)

func main() {
	opts := logger.OptionsFromEnv()
	opts.Out = os.Stderr
	logger.InitWith(opts)

	var (
		ally      string
		enemy     string
		matchup   string
		numGames  int
		workers   int
		dbURL     string
		rulesFile string
		maxTurns  int
		seed      int64
		dryRun    bool
		jsonOut   bool
	)

	flag.StringVar(&ally, "ally", "greedy", "Strategy playing the allied side")
	flag.StringVar(&enemy, "enemy", "", "Strategy playing the enemy side (default from rules)")
	flag.StringVar(&matchup, "matchup", "", "Shorthand ally-vs-enemy (e.g. greedy-vs-random)")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.StringVar(&dbURL, "db", "", "Database URL (or use DATABASE_URL env)")
	flag.StringVar(&rulesFile, "rules", os.Getenv("RULES_FILE"), "Rules YAML file")
	flag.IntVar(&maxTurns, "max-turns", 500, "Allied turns before a run is retired")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	rules, err := config.LoadRules(rulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Rules could not be loaded")
	}
	if enemy == "" {
		enemy = rules.EnemyStrategy
	}
	if matchup != "" {
		ally, enemy, err = parseMatchup(matchup)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid matchup")
		}
	}
	for _, name := range []string{ally, enemy} {
		if !knownStrategy(name) {
			log.Fatal().Str("strategy", name).Strs("known", bot.StrategyNames()).Msg("Unknown strategy")
		}
	}

	if dbURL == "" {
		dbURL = config.Load().DatabaseURL
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var gameRepo *postgres.GameRepo
	var userRepo *postgres.UserRepo
	if !dryRun {
		db, err := postgres.Connect(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		gameRepo = postgres.NewGameRepo(db)
		userRepo = postgres.NewUserRepo(db)
	}

	results := make([]*bot.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(workers, 1))
	errCount := 0

	for i := range numGames {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			gameSeed := seed
			if seed != 0 {
				gameSeed = seed + int64(idx)
			}

			cfg := bot.ArenaConfig{
				AllyStrategy:  ally,
				EnemyStrategy: enemy,
				BoardSize:     rules.BoardSize,
				TeamSize:      rules.StartingTeamSize,
				MaxTurns:      maxTurns,
				MoveRetryCap:  rules.MoveRetryCap,
				Seed:          gameSeed,
				DryRun:        dryRun,
			}

			var result *bot.ArenaResult
			var err error
			if dryRun {
				result, err = bot.RunGame(ctx, cfg, nil, nil)
			} else {
				result, err = bot.RunGame(ctx, cfg, gameRepo, userRepo)
			}
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Str("status", string(result.Status)).
				Int("level", result.Level).Int("points", result.Points).Int("turns", result.Turns).
				Msg("Game completed")
		}(i)
	}

	wg.Wait()

	s := summarize(results)
	s.Errors = errCount
	if jsonOut {
		printJSON(s, results)
	} else {
		printSummary(s, ally, enemy, dryRun)
	}
}

// parseMatchup splits "greedy-vs-random" into its ally and enemy strategies.
func parseMatchup(s string) (string, string, error) {
	parts := strings.SplitN(s, "-vs-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("matchup %q is not of the form ally-vs-enemy", s)
	}
	return parts[0], parts[1], nil
}

func knownStrategy(name string) bool {
	for _, n := range bot.StrategyNames() {
		if n == name {
			return true
		}
	}
	return false
}

type summary struct {
	Completed int                      `json:"completed"`
	Errors    int                      `json:"errors"`
	ByStatus  map[model.GameStatus]int `json:"by_status"`
	AvgLevel  float64                  `json:"avg_level"`
	AvgPoints float64                  `json:"avg_points"`
	AvgTurns  float64                  `json:"avg_turns"`
	BestLevel int                      `json:"best_level"`
	BestScore int                      `json:"best_points"`
}

func summarize(results []*bot.ArenaResult) summary {
	s := summary{ByStatus: map[model.GameStatus]int{}}
	var levels, points, turns int
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Completed++
		s.ByStatus[r.Status]++
		levels += r.Level
		points += r.Points
		turns += r.Turns
		s.BestLevel = max(s.BestLevel, r.Level)
		s.BestScore = max(s.BestScore, r.Points)
	}
	if s.Completed > 0 {
		n := float64(s.Completed)
		s.AvgLevel = float64(levels) / n
		s.AvgPoints = float64(points) / n
		s.AvgTurns = float64(turns) / n
	}
	return s
}

func printSummary(s summary, ally, enemy string, dryRun bool) {
	fmt.Printf("\nResults (%d games, %s allies vs %s enemies):\n", s.Completed, ally, enemy)
	if s.Errors > 0 {
		fmt.Printf("  (%d games failed)\n", s.Errors)
	}
	for _, st := range []model.GameStatus{model.GameLost, model.GameRetired} {
		fmt.Printf("  %-8s %d\n", st, s.ByStatus[st])
	}
	fmt.Printf("  avg level %.2f, avg points %.1f, avg turns %.1f\n", s.AvgLevel, s.AvgPoints, s.AvgTurns)
	fmt.Printf("  best level %d, best points %d\n", s.BestLevel, s.BestScore)

	if !dryRun && s.Completed > 0 {
		fmt.Println("\nGames saved to database under the bot user \"arena-" + ally + "\"")
	}
}

func printJSON(s summary, results []*bot.ArenaResult) {
	out := struct {
		Summary summary            `json:"summary"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Summary: s,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
