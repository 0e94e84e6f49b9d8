package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/auth"
	"github.com/freeeve/retro-tactics/api/internal/config"
	"github.com/freeeve/retro-tactics/api/internal/handler"
	"github.com/freeeve/retro-tactics/api/internal/logger"
	"github.com/freeeve/retro-tactics/api/internal/middleware"
	"github.com/freeeve/retro-tactics/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/retro-tactics/api/internal/repository/redis"
	"github.com/freeeve/retro-tactics/api/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Str("rulesFile", cfg.RulesFile).Msg("Rules could not be loaded")
	}
	log.Info().Int("boardSize", rules.BoardSize).Str("enemyStrategy", rules.EnemyStrategy).
		Dur("idleTimeout", rules.IdleTimeout).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL, rules.IdleTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	if err := redisClient.EnableExpiryEvents(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (idle games will be found by polling)")
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	gameRepo := postgres.NewGameRepo(db)
	saveRepo := postgres.NewSaveRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	var provider auth.IdentityProvider
	if cfg.GoogleConfigured() {
		provider = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		log.Warn().Msg("Google sign-in not configured")
	}

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	gameSvc := service.NewGameService(gameRepo, saveRepo, redisClient, wsHub, rules)
	reaper := service.NewIdleReaper(redisClient.Underlying(), gameRepo, gameSvc, rules.IdleTimeout)

	// Handlers
	authHandler := handler.NewAuthHandler(provider, jwtMgr, userRepo, cfg.DevMode)
	userHandler := handler.NewUserHandler(userRepo)
	gameHandler := handler.NewGameHandler(gameSvc)
	wsHandler := handler.NewWSHandler(wsHub, gameSvc, cfg.CORSOrigins)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)
	api.HandleFunc("GET /users/{id}", userHandler.GetUser)
	api.HandleFunc("GET /rules", gameHandler.Rules)
	api.HandleFunc("POST /games", gameHandler.CreateGame)
	api.HandleFunc("GET /games", gameHandler.ListGames)
	api.HandleFunc("GET /games/{id}", gameHandler.GetGame)
	api.HandleFunc("GET /games/{id}/distance", gameHandler.Distance)
	api.HandleFunc("GET /games/{id}/intent", gameHandler.Intent)
	api.HandleFunc("POST /games/{id}/move", gameHandler.Move)
	api.HandleFunc("POST /games/{id}/attack", gameHandler.Attack)
	api.HandleFunc("POST /games/{id}/save", gameHandler.Save)
	api.HandleFunc("POST /games/{id}/load", gameHandler.Load)
	api.HandleFunc("POST /games/{id}/retire", gameHandler.Retire)
	api.HandleFunc("GET /leaderboard", gameHandler.Leaderboard)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (browsers pass the token as ?token=)
	mux.Handle("GET /api/v1/ws", auth.QueryTokenMiddleware(jwtMgr)(http.HandlerFunc(wsHandler.ServeWS)))

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Recover, middleware.Logger, middleware.CORS(cfg.CORSOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start idle reaper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaper.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
