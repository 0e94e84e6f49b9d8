package tactics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Archetype is one of the fixed character classes.
type Archetype string

const (
	Swordsman Archetype = "swordsman"
	Bowman    Archetype = "bowman"
	Magician  Archetype = "magician"
	Daemon    Archetype = "daemon"
	Undead    Archetype = "undead"
	Vampire   Archetype = "vampire"
)

// Alignment tells which faction a character fights for.
type Alignment int

const (
	Ally Alignment = iota
	Enemy
)

func (a Alignment) String() string {
	if a == Ally {
		return "ally"
	}
	return "enemy"
}

// MarshalText encodes the alignment by name.
func (a Alignment) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (a *Alignment) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ally":
		*a = Ally
	case "enemy":
		*a = Enemy
	default:
		return fmt.Errorf("unknown alignment %q", b)
	}
	return nil
}

// Opponent returns the other faction.
func (a Alignment) Opponent() Alignment {
	if a == Ally {
		return Enemy
	}
	return Ally
}

// MaxHealth is the health of a freshly created character.
const MaxHealth = 100

type baseStats struct {
	attack         float64
	defence        float64
	moveDistance   int
	attackDistance int
}

var archetypeStats = map[Archetype]baseStats{
	Swordsman: {attack: 40, defence: 10, moveDistance: 4, attackDistance: 1},
	Bowman:    {attack: 25, defence: 25, moveDistance: 2, attackDistance: 2},
	Magician:  {attack: 10, defence: 40, moveDistance: 1, attackDistance: 4},
	Undead:    {attack: 40, defence: 10, moveDistance: 4, attackDistance: 1},
	Vampire:   {attack: 25, defence: 25, moveDistance: 2, attackDistance: 2},
	Daemon:    {attack: 10, defence: 40, moveDistance: 1, attackDistance: 4},
}

// AllArchetypes returns the six archetypes in generator order.
func AllArchetypes() []Archetype {
	return []Archetype{Swordsman, Bowman, Magician, Daemon, Undead, Vampire}
}

// AlliedArchetypes returns the archetypes the player may field at the
// given maximum level. Magicians only join after the first round.
func AlliedArchetypes(maxLevel int) []Archetype {
	if maxLevel == 1 {
		return []Archetype{Swordsman, Bowman}
	}
	return []Archetype{Swordsman, Bowman, Magician}
}

// Valid reports whether a is a known archetype.
func (a Archetype) Valid() bool {
	_, ok := archetypeStats[a]
	return ok
}

// Alignment returns the faction an archetype is eligible for.
func (a Archetype) Alignment() Alignment {
	switch a {
	case Swordsman, Bowman, Magician:
		return Ally
	}
	return Enemy
}

// Character is a single combat unit.
type Character struct {
	Type           Archetype `json:"type"`
	Level          int       `json:"level"`
	Attack         float64   `json:"attack"`
	Defence        float64   `json:"defence"`
	Health         int       `json:"health"`
	MoveDistance   int       `json:"moveDistance"`
	AttackDistance int       `json:"attackDistance"`
}

// NewCharacter creates a character of the given archetype with the
// archetype's base stats and full health.
func NewCharacter(archetype Archetype, level int) (Character, error) {
	stats, ok := archetypeStats[archetype]
	if !ok {
		return Character{}, fmt.Errorf("%w: %q", ErrUnknownArchetype, archetype)
	}
	if level < 1 {
		return Character{}, fmt.Errorf("%w: got %d", ErrInvalidLevel, level)
	}
	return Character{
		Type:           archetype,
		Level:          level,
		Attack:         stats.attack,
		Defence:        stats.defence,
		Health:         MaxHealth,
		MoveDistance:   stats.moveDistance,
		AttackDistance: stats.attackDistance,
	}, nil
}

// Alignment returns the faction of the character's archetype.
func (c Character) Alignment() Alignment {
	return c.Type.Alignment()
}

// Alive reports whether the character still has health left.
func (c Character) Alive() bool {
	return c.Health > 0
}

// HealthLevel buckets a health value for the health bar.
type HealthLevel string

const (
	HealthCritical HealthLevel = "critical"
	HealthNormal   HealthLevel = "normal"
	HealthHigh     HealthLevel = "high"
)

// HealthLevelOf returns the health bar bucket for a health value.
func HealthLevelOf(health int) HealthLevel {
	switch {
	case health < 15:
		return HealthCritical
	case health < 50:
		return HealthNormal
	}
	return HealthHigh
}

// Tooltip renders the one-line stat summary shown when hovering a unit.
func Tooltip(c Character) string {
	return strings.Join([]string{
		fmt.Sprintf("\U0001F396%d", c.Level),
		fmt.Sprintf("⚔%s", formatStat(c.Attack)),
		fmt.Sprintf("\U0001F6E1%s", formatStat(c.Defence)),
		fmt.Sprintf("❤%d", c.Health),
	}, " ")
}

func formatStat(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
