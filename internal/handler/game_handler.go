package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/freeeve/retro-tactics/api/internal/auth"
	"github.com/freeeve/retro-tactics/api/internal/bot"
	"github.com/freeeve/retro-tactics/api/internal/logger"
	"github.com/freeeve/retro-tactics/api/internal/service"
)

// GameHandler handles game endpoints.
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

type cellPair struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	view, err := h.gameSvc.NewGame(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameSvc.ListGames(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, gameID, userID := gameRequest(r)
	view, err := h.gameSvc.State(ctx, gameID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Distance handles GET /api/v1/games/{id}/distance?from=&to=
func (h *GameHandler) Distance(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "from and to must be cell indices")
		return
	}
	ctx, gameID, userID := gameRequest(r)
	d, err := h.gameSvc.Distance(ctx, gameID, userID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Intent handles GET /api/v1/games/{id}/intent?selected=&cell=
// selected may be omitted when no unit is selected.
func (h *GameHandler) Intent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cell, err := strconv.Atoi(q.Get("cell"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cell must be a cell index")
		return
	}
	selected := -1
	if s := q.Get("selected"); s != "" {
		if selected, err = strconv.Atoi(s); err != nil {
			writeError(w, http.StatusBadRequest, "selected must be a cell index")
			return
		}
	}
	ctx, gameID, userID := gameRequest(r)
	in, err := h.gameSvc.Intent(ctx, gameID, userID, selected, cell)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// Move handles POST /api/v1/games/{id}/move
func (h *GameHandler) Move(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.gameSvc.Move)
}

// Attack handles POST /api/v1/games/{id}/attack
func (h *GameHandler) Attack(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.gameSvc.Attack)
}

type actionFunc func(ctx context.Context, gameID, userID string, from, to int) (*service.TurnResult, error)

func (h *GameHandler) act(w http.ResponseWriter, r *http.Request, do actionFunc) {
	var req cellPair
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From == nil || req.To == nil {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	ctx, gameID, userID := gameRequest(r)
	res, err := do(ctx, gameID, userID, *req.From, *req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Save handles POST /api/v1/games/{id}/save
func (h *GameHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx, gameID, userID := gameRequest(r)
	save, err := h.gameSvc.Save(ctx, gameID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, save)
}

// Load handles POST /api/v1/games/{id}/load
func (h *GameHandler) Load(w http.ResponseWriter, r *http.Request) {
	ctx, gameID, userID := gameRequest(r)
	view, err := h.gameSvc.Load(ctx, gameID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Retire handles POST /api/v1/games/{id}/retire
func (h *GameHandler) Retire(w http.ResponseWriter, r *http.Request) {
	ctx, gameID, userID := gameRequest(r)
	game, err := h.gameSvc.Retire(ctx, gameID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// Leaderboard handles GET /api/v1/leaderboard?limit=
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	entries, err := h.gameSvc.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Rules handles GET /api/v1/rules
func (h *GameHandler) Rules(w http.ResponseWriter, r *http.Request) {
	rules := h.gameSvc.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"board_size":         rules.BoardSize,
		"starting_team_size": rules.StartingTeamSize,
		"enemy_strategy":     rules.EnemyStrategy,
		"enemy_strategies":   bot.StrategyNames(),
		"reply_delay_ms":     rules.EnemyReplyDelay.Milliseconds(),
	})
}

// gameRequest pulls the game and user IDs from a request and tags the
// context with the game ID for logging.
func gameRequest(r *http.Request) (context.Context, string, string) {
	gameID := r.PathValue("id")
	return logger.WithGameID(r.Context(), gameID), gameID, auth.UserIDFromContext(r.Context())
}
