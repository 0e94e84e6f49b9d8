package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/service"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps service and engine errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var stateErr *tactics.StateError
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGameOver),
		errors.Is(err, service.ErrTurnInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoSave):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  tactics.ErrInvalidPersistedState.Error(),
			"fields": stateErr.Problems,
		})
	case errors.Is(err, service.ErrInvalidCell),
		errors.Is(err, tactics.ErrNoUnit),
		errors.Is(err, tactics.ErrNotYourUnit),
		errors.Is(err, tactics.ErrCellOccupied),
		errors.Is(err, tactics.ErrUnreachableTarget),
		errors.Is(err, tactics.ErrFriendlyFire),
		errors.Is(err, tactics.ErrUnknownAction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
