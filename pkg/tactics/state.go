package tactics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// StartingTeamSize is the roster size of a new game: two allies, two enemies.
const StartingTeamSize = 4

// GameState is everything needed to resume a game.
type GameState struct {
	Theme  Theme  `json:"theme"`
	Roster Roster `json:"roster"`
	Points int    `json:"points"`
}

// NewGame returns the state of a fresh game: first theme, a level-1 roster
// of teamSize units and no points.
func NewGame(rng Rand, boardSize, teamSize int) (*GameState, error) {
	roster, err := GenerateTeam(rng, 1, teamSize, boardSize)
	if err != nil {
		return nil, fmt.Errorf("generate starting team: %w", err)
	}
	return &GameState{Theme: ThemePrairie, Roster: roster}, nil
}

// Level is the level of the first unit on the roster, which is the
// round the game is in.
func (gs *GameState) Level() int {
	if gs == nil || len(gs.Roster) == 0 {
		return 0
	}
	return gs.Roster[0].Character.Level
}

// GameOver reports whether the allied side has no units left.
func (gs *GameState) GameOver() bool {
	return gs != nil && gs.Roster.Count(Ally) == 0
}

// Clone returns a deep copy of the state.
func (gs *GameState) Clone() *GameState {
	return &GameState{Theme: gs.Theme, Roster: gs.Roster.Clone(), Points: gs.Points}
}

// StatePatch carries the fields to overwrite in a GameState. Nil fields
// are left untouched.
type StatePatch struct {
	Theme  *Theme
	Roster Roster
	Points *int
}

// Apply merges the provided fields of p into gs.
func (gs *GameState) Apply(p StatePatch) {
	if p.Theme != nil {
		gs.Theme = *p.Theme
	}
	if p.Roster != nil {
		gs.Roster = p.Roster
	}
	if p.Points != nil {
		gs.Points = *p.Points
	}
}

// EncodeState serialises a state into its persisted form.
func EncodeState(gs *GameState) ([]byte, error) {
	if gs == nil {
		return nil, ErrInvalidBinding
	}
	roster := gs.Roster
	if roster == nil {
		roster = Roster{}
	}
	return json.Marshal(GameState{Theme: gs.Theme, Roster: roster, Points: gs.Points})
}

// DecodeState parses a persisted state. Every shape violation is reported
// in a single *StateError; nothing is returned unless the whole document
// is valid.
func DecodeState(data []byte) (*GameState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		serr := &StateError{}
		serr.add("state", "saved game must be a JSON object")
		return nil, serr
	}

	serr := &StateError{}
	gs := &GameState{}

	if theme, ok := decodeTheme(fields["theme"]); ok {
		gs.Theme = theme
	} else {
		serr.add("theme", `correct "theme" property data didn't load`)
	}

	raw, present := fields["roster"]
	if !present || isNull(raw) {
		serr.add("roster", `"roster" property didn't load`)
	} else if roster, ok := decodeRoster(raw); ok {
		gs.Roster = roster
	} else {
		serr.add("roster", `invalid data loaded in property "roster"`)
	}

	if points, ok := decodeInt(fields["points"]); ok {
		gs.Points = points
	} else {
		serr.add("points", `correct "points" property data didn't load`)
	}

	if len(serr.Problems) > 0 {
		return nil, serr
	}
	return gs, nil
}

func decodeTheme(raw json.RawMessage) (Theme, bool) {
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	t := Theme(s)
	return t, t.Valid()
}

func decodeRoster(raw json.RawMessage) (Roster, bool) {
	var members []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, false
	}
	roster := make(Roster, 0, len(members))
	for _, m := range members {
		if len(m) != 2 {
			return nil, false
		}
		charRaw, ok := m["character"]
		if !ok || !isObject(charRaw) {
			return nil, false
		}
		pos, ok := decodeInt(m["position"])
		if !ok {
			return nil, false
		}
		var c Character
		if err := json.Unmarshal(charRaw, &c); err != nil {
			return nil, false
		}
		roster = append(roster, PositionedCharacter{Character: c, Position: pos})
	}
	return roster, true
}

func decodeInt(raw json.RawMessage) (int, bool) {
	var f float64
	if raw == nil || isNull(raw) || json.Unmarshal(raw, &f) != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
