package tactics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBinding        = errors.New("no game state bound")
	ErrInvalidPersistedState = errors.New("invalid persisted game state")
	ErrUnreachableTarget     = errors.New("target is not reachable")
	ErrNoLegalMove           = errors.New("no legal move found")
	ErrUnknownArchetype      = errors.New("unknown character archetype")
	ErrInvalidLevel          = errors.New("character level must be at least 1")
	ErrInvalidTeamSize       = errors.New("invalid team parameters")
	ErrNoUnit                = errors.New("no unit at cell")
	ErrCellOccupied          = errors.New("cell is occupied")
	ErrNotYourUnit           = errors.New("unit belongs to the other faction")
	ErrFriendlyFire          = errors.New("cannot attack a unit of the same faction")
	ErrUnknownAction         = errors.New("unknown action kind")
)

// FieldProblem names one offending field of a persisted state.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StateError collects every shape violation found while decoding a
// persisted state. It matches ErrInvalidPersistedState with errors.Is.
type StateError struct {
	Problems []FieldProblem
}

func (e *StateError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = fmt.Sprintf("%s: %s", p.Field, p.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPersistedState, strings.Join(parts, "; "))
}

func (e *StateError) Unwrap() error {
	return ErrInvalidPersistedState
}

// Fields returns the names of the offending fields in report order.
func (e *StateError) Fields() []string {
	out := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		out[i] = p.Field
	}
	return out
}

func (e *StateError) add(field, msg string) {
	e.Problems = append(e.Problems, FieldProblem{Field: field, Message: msg})
}
