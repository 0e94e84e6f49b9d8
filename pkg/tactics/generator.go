package tactics

import (
	"fmt"
	"math/rand"
)

// Rand is the source of randomness used by the engine. *rand.Rand
// satisfies it; a nil Rand falls back to the math/rand global source.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// GlobalRand is a Rand backed by the math/rand global source.
type GlobalRand struct{}

func (GlobalRand) Intn(n int) int   { return rand.Intn(n) }
func (GlobalRand) Float64() float64 { return rand.Float64() }

func orGlobal(r Rand) Rand {
	if r == nil {
		return GlobalRand{}
	}
	return r
}

// CharacterGenerator produces an endless stream of random characters.
type CharacterGenerator struct {
	types    []Archetype
	maxLevel int
	rng      Rand
}

// NewCharacterGenerator returns a generator drawing uniformly from types
// with a uniform level in [1, maxLevel].
func NewCharacterGenerator(types []Archetype, maxLevel int, rng Rand) (*CharacterGenerator, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: no archetypes to draw from", ErrInvalidTeamSize)
	}
	if maxLevel < 1 {
		return nil, fmt.Errorf("%w: max level %d", ErrInvalidLevel, maxLevel)
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, t)
		}
	}
	return &CharacterGenerator{types: types, maxLevel: maxLevel, rng: orGlobal(rng)}, nil
}

// Next returns the next random character.
func (g *CharacterGenerator) Next() Character {
	t := g.types[g.rng.Intn(len(g.types))]
	level := g.rng.Intn(g.maxLevel) + 1
	c, _ := NewCharacter(t, level) // types and level validated in the constructor
	return c
}

// SubTeamLimit is the per-faction unit count for a requested roster size.
func SubTeamLimit(characterCount, boardSize int) int {
	return min(characterCount/2, boardSize*2)
}

// StartingCells returns the candidate cells of a faction: the two
// leftmost columns for allies, the two rightmost for enemies.
func StartingCells(a Alignment, boardSize int) []int {
	cells := make([]int, 0, boardSize*2)
	for row := 0; row < boardSize; row++ {
		first := row * boardSize
		if a == Ally {
			cells = append(cells, first, first+1)
		} else {
			cells = append(cells, first+boardSize-2, first+boardSize-1)
		}
	}
	return cells
}

// GenerateTeam builds a roster of SubTeamLimit allies followed by as many
// enemies, each on its own starting cell. Characters are sampled from all
// archetypes until both sides are full; samples that don't fit the side
// they belong to are discarded.
func GenerateTeam(rng Rand, maxLevel, characterCount, boardSize int) (Roster, error) {
	if boardSize < 4 {
		return nil, fmt.Errorf("%w: board size %d", ErrInvalidTeamSize, boardSize)
	}
	if characterCount < 0 {
		return nil, fmt.Errorf("%w: character count %d", ErrInvalidTeamSize, characterCount)
	}
	rng = orGlobal(rng)
	gen, err := NewCharacterGenerator(AllArchetypes(), maxLevel, rng)
	if err != nil {
		return nil, err
	}

	limit := SubTeamLimit(characterCount, boardSize)
	alliedTypes := make(map[Archetype]bool)
	for _, t := range AlliedArchetypes(maxLevel) {
		alliedTypes[t] = true
	}

	allyCells := StartingCells(Ally, boardSize)
	enemyCells := StartingCells(Enemy, boardSize)
	allies := make(Roster, 0, limit)
	enemies := make(Roster, 0, limit)

	for len(allies) < limit || len(enemies) < limit {
		c := gen.Next()
		switch {
		case alliedTypes[c.Type]:
			if len(allies) == limit {
				continue
			}
			var cell int
			cell, allyCells = takeCell(rng, allyCells)
			allies = append(allies, PositionedCharacter{Character: c, Position: cell})
		case c.Type != Magician:
			if len(enemies) == limit {
				continue
			}
			var cell int
			cell, enemyCells = takeCell(rng, enemyCells)
			enemies = append(enemies, PositionedCharacter{Character: c, Position: cell})
		}
	}

	return append(allies, enemies...), nil
}

func takeCell(rng Rand, cells []int) (int, []int) {
	i := rng.Intn(len(cells))
	cell := cells[i]
	return cell, append(cells[:i], cells[i+1:]...)
}
