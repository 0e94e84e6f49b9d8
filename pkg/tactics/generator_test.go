package tactics

import (
	"errors"
	"math/rand"
	"testing"
)

func TestGenerateTeamShape(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		maxLevel := int(seed%4) + 1
		count := int(seed%10) + 2
		roster, err := GenerateTeam(rng, maxLevel, count, DefaultBoardSize)
		if err != nil {
			t.Fatalf("seed %d: GenerateTeam: %v", seed, err)
		}

		limit := SubTeamLimit(count, DefaultBoardSize)
		if len(roster) != limit*2 {
			t.Fatalf("seed %d: roster size = %d, want %d", seed, len(roster), limit*2)
		}

		seen := make(map[int]bool)
		allyCells := cellSet(StartingCells(Ally, DefaultBoardSize))
		enemyCells := cellSet(StartingCells(Enemy, DefaultBoardSize))
		for i, pc := range roster {
			if seen[pc.Position] {
				t.Fatalf("seed %d: cell %d used twice", seed, pc.Position)
			}
			seen[pc.Position] = true

			c := pc.Character
			if c.Level < 1 || c.Level > maxLevel {
				t.Errorf("seed %d: level %d outside [1, %d]", seed, c.Level, maxLevel)
			}
			if i < limit {
				if c.Alignment() != Ally {
					t.Errorf("seed %d: index %d is %s, want ally", seed, i, c.Type)
				}
				if maxLevel == 1 && c.Type == Magician {
					t.Errorf("seed %d: magician generated at max level 1", seed)
				}
				if !allyCells[pc.Position] {
					t.Errorf("seed %d: ally on cell %d outside the ally columns", seed, pc.Position)
				}
			} else {
				if c.Alignment() != Enemy {
					t.Errorf("seed %d: index %d is %s, want enemy", seed, i, c.Type)
				}
				if !enemyCells[pc.Position] {
					t.Errorf("seed %d: enemy on cell %d outside the enemy columns", seed, pc.Position)
				}
			}
		}
	}
}

func TestGenerateTeamCapsSideSize(t *testing.T) {
	roster, err := GenerateTeam(rand.New(rand.NewSource(7)), 3, 100, 4)
	if err != nil {
		t.Fatalf("GenerateTeam: %v", err)
	}
	if got := roster.Count(Ally); got != 8 {
		t.Errorf("allies = %d, want 8", got)
	}
	if got := roster.Count(Enemy); got != 8 {
		t.Errorf("enemies = %d, want 8", got)
	}
}

func TestGenerateTeamOddAndZero(t *testing.T) {
	roster, err := GenerateTeam(rand.New(rand.NewSource(3)), 1, 5, DefaultBoardSize)
	if err != nil {
		t.Fatalf("GenerateTeam: %v", err)
	}
	if len(roster) != 4 {
		t.Errorf("roster size for 5 = %d, want 4", len(roster))
	}

	roster, err = GenerateTeam(nil, 1, 0, DefaultBoardSize)
	if err != nil {
		t.Fatalf("GenerateTeam: %v", err)
	}
	if len(roster) != 0 {
		t.Errorf("roster size for 0 = %d, want 0", len(roster))
	}
}

func TestGenerateTeamInvalid(t *testing.T) {
	if _, err := GenerateTeam(nil, 1, 4, 3); !errors.Is(err, ErrInvalidTeamSize) {
		t.Errorf("board 3: got %v, want ErrInvalidTeamSize", err)
	}
	if _, err := GenerateTeam(nil, 1, -2, 8); !errors.Is(err, ErrInvalidTeamSize) {
		t.Errorf("negative count: got %v, want ErrInvalidTeamSize", err)
	}
	if _, err := GenerateTeam(nil, 0, 4, 8); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("level 0: got %v, want ErrInvalidLevel", err)
	}
}

func TestGenerateTeamDeterministic(t *testing.T) {
	a, _ := GenerateTeam(rand.New(rand.NewSource(42)), 3, 6, DefaultBoardSize)
	b, _ := GenerateTeam(rand.New(rand.NewSource(42)), 3, 6, DefaultBoardSize)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("index %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestCharacterGenerator(t *testing.T) {
	if _, err := NewCharacterGenerator(nil, 1, nil); !errors.Is(err, ErrInvalidTeamSize) {
		t.Errorf("no types: got %v", err)
	}
	if _, err := NewCharacterGenerator([]Archetype{"ghost"}, 1, nil); !errors.Is(err, ErrUnknownArchetype) {
		t.Errorf("bad type: got %v", err)
	}

	gen, err := NewCharacterGenerator([]Archetype{Vampire}, 2, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewCharacterGenerator: %v", err)
	}
	for range 20 {
		c := gen.Next()
		if c.Type != Vampire || c.Level < 1 || c.Level > 2 {
			t.Fatalf("unexpected character %+v", c)
		}
	}
}

func TestStartingCells(t *testing.T) {
	got := StartingCells(Ally, 4)
	want := []int{0, 1, 4, 5, 8, 9, 12, 13}
	if !equalInts(got, want) {
		t.Errorf("ally cells = %v, want %v", got, want)
	}
	got = StartingCells(Enemy, 4)
	want = []int{2, 3, 6, 7, 10, 11, 14, 15}
	if !equalInts(got, want) {
		t.Errorf("enemy cells = %v, want %v", got, want)
	}
}

func cellSet(cells []int) map[int]bool {
	m := make(map[int]bool, len(cells))
	for _, c := range cells {
		m[c] = true
	}
	return m
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
