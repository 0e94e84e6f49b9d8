package bot

import (
	"math/rand"
	"testing"

	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

func TestBotSourcePrecedence(t *testing.T) {
	defer ResetBotRng()

	if _, ok := botSource(nil).(tactics.GlobalRand); !ok {
		t.Errorf("unseeded source = %T, want tactics.GlobalRand", botSource(nil))
	}
	SeedBotRng(3)
	if botSource(nil) != tactics.Rand(botRng) {
		t.Error("seeded package source not used")
	}
	override := rand.New(rand.NewSource(9))
	if botSource(override) != tactics.Rand(override) {
		t.Error("override not used")
	}
}
