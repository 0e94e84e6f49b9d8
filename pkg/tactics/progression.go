package tactics

import (
	"fmt"
	"math"
)

// Theme is the board decoration of a round. It has no effect on combat.
type Theme string

const (
	ThemePrairie  Theme = "prairie"
	ThemeDesert   Theme = "desert"
	ThemeArctic   Theme = "arctic"
	ThemeMountain Theme = "mountain"
)

// AllThemes returns every theme in round order.
func AllThemes() []Theme {
	return []Theme{ThemePrairie, ThemeDesert, ThemeArctic, ThemeMountain}
}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemePrairie, ThemeDesert, ThemeArctic, ThemeMountain:
		return true
	}
	return false
}

// ThemeForLevel picks the theme of a round. Rounds 2-4 have a fixed theme;
// later rounds draw one at random.
func ThemeForLevel(level int, rng Rand) Theme {
	switch level {
	case 2:
		return ThemeDesert
	case 3:
		return ThemeArctic
	case 4:
		return ThemeMountain
	}
	themes := AllThemes()
	return themes[orGlobal(rng).Intn(len(themes))]
}

// NewAllyCount is how many fresh allies join the survivors when a round
// at the given level starts.
func NewAllyCount(level int) int {
	switch level {
	case 3, 4:
		return 2
	}
	return 1
}

// LevelUpReport summarises a level-up.
type LevelUpReport struct {
	Level      int   `json:"level"`
	Theme      Theme `json:"theme"`
	Survivors  int   `json:"survivors"`
	NewAllies  int   `json:"new_allies"`
	RoundScore int   `json:"round_score"`
	Points     int   `json:"points"`
}

// comebackFactor scales a survivor's attack and defence by how damaged it
// is: a unit at health h gets max(1, comebackFactor - h/100) times its stats.
const comebackFactor = 1.8

// LevelUp starts the next round after the enemy side has been wiped out.
// The surviving allies gain a level, get stronger the more health they
// lost, are healed, and are placed into a freshly generated roster next to
// newly recruited allies and a matching enemy side. Every survivor's
// remaining health is added to the score. gs is updated in place.
func LevelUp(gs *GameState, rng Rand, boardSize int) (LevelUpReport, error) {
	if gs == nil || len(gs.Roster) == 0 {
		return LevelUpReport{}, ErrInvalidBinding
	}
	rng = orGlobal(rng)
	survivors := gs.Roster.Allies()
	if len(survivors) == 0 {
		return LevelUpReport{}, fmt.Errorf("%w: no surviving allies", ErrInvalidBinding)
	}

	nextLevel := gs.Level() + 1
	theme := ThemeForLevel(nextLevel, rng)
	if len(survivors) > boardSize*2 {
		survivors = survivors[:boardSize*2]
	}
	recruits := min(NewAllyCount(nextLevel), boardSize*2-len(survivors))

	next, err := GenerateTeam(rng, nextLevel, (len(survivors)+recruits)*2, boardSize)
	if err != nil {
		return LevelUpReport{}, fmt.Errorf("generate round %d: %w", nextLevel, err)
	}

	for i := len(survivors); i < len(survivors)+recruits; i++ {
		c := &next[i].Character
		level := rng.Intn(nextLevel) + 1
		c.Attack = c.Attack / float64(c.Level) * float64(level)
		c.Defence = c.Defence / float64(c.Level) * float64(level)
		c.Level = level
	}

	roundScore := 0
	for i, pc := range survivors {
		c := pc.Character
		c.Level++
		boost := comebackFactor - float64(c.Health)/100
		c.Attack = math.Round(math.Max(c.Attack, c.Attack*boost))
		c.Defence = math.Round(math.Max(c.Defence, c.Defence*boost))
		roundScore += c.Health
		if c.Health <= 20 {
			c.Health += 80
		} else {
			c.Health = MaxHealth
		}
		next[i].Character = c
	}

	points := gs.Points + roundScore
	gs.Apply(StatePatch{Theme: &theme, Roster: next, Points: &points})

	return LevelUpReport{
		Level:      nextLevel,
		Theme:      theme,
		Survivors:  len(survivors),
		NewAllies:  recruits,
		RoundScore: roundScore,
		Points:     points,
	}, nil
}
