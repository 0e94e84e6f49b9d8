package bot

import (
	"fmt"

	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// TurnReport is everything that happened after one allied action.
type TurnReport struct {
	Player   tactics.Outcome        `json:"player"`
	Reply    *tactics.Outcome       `json:"reply,omitempty"`
	LevelUp  *tactics.LevelUpReport `json:"level_up,omitempty"`
	GameOver bool                   `json:"game_over"`
}

// ResolveTurn applies the player's action and then either starts the next
// round, when the enemy side was wiped out, or lets enemy reply. rng drives
// the level-up draws (nil means the package source). gs is updated in
// place; on error it is left as it was before the call.
func ResolveTurn(gs *tactics.GameState, player tactics.Action, enemy Strategy, boardSize int, rng tactics.Rand) (*TurnReport, error) {
	if gs == nil {
		return nil, tactics.ErrInvalidBinding
	}
	work := gs.Clone()

	out, err := tactics.ApplyAction(work, tactics.Ally, player, boardSize)
	if err != nil {
		return nil, err
	}
	report := &TurnReport{Player: out}

	if work.Roster.Count(tactics.Enemy) == 0 {
		lvl, err := tactics.LevelUp(work, botSource(rng), boardSize)
		if err != nil {
			return nil, fmt.Errorf("level up: %w", err)
		}
		report.LevelUp = &lvl
	} else {
		reply, err := PlayTurn(work, enemy, tactics.Enemy, boardSize)
		if err != nil {
			return nil, fmt.Errorf("enemy reply: %w", err)
		}
		report.Reply = &reply
	}

	report.GameOver = work.GameOver()
	*gs = *work
	return report, nil
}
