package bot

import (
	"math/rand"

	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// botRng is the package-level random source used by all bot strategies.
// When nil, strategies fall back to the global math/rand default.
// Use SeedBotRng to set a deterministic source for reproducible matches.
var botRng *rand.Rand

// SeedBotRng sets a deterministic random source for reproducible bot behavior.
func SeedBotRng(seed int64) {
	botRng = rand.New(rand.NewSource(seed))
}

// ResetBotRng reverts to the default (non-deterministic) global random source.
func ResetBotRng() {
	botRng = nil
}

// botSource returns override when set, then the seeded package source,
// then the global math/rand default.
func botSource(override tactics.Rand) tactics.Rand {
	if override != nil {
		return override
	}
	if botRng != nil {
		return botRng
	}
	return tactics.GlobalRand{}
}
