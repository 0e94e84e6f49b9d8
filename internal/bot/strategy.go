package bot

import (
	"fmt"

	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// Strategy picks the next action of one faction.
type Strategy interface {
	Name() string
	ChooseAction(r tactics.Roster, side tactics.Alignment, boardSize int) tactics.Action
}

// StrategyForName returns the strategy registered under name. Unknown names
// get the greedy policy.
func StrategyForName(name string) Strategy {
	return NewStrategy(name, nil, 0)
}

// NewStrategy is StrategyForName with an explicit random source and move
// retry cap. A nil rng uses the package source; a cap of 0 the default.
func NewStrategy(name string, rng tactics.Rand, moveRetryCap int) Strategy {
	switch name {
	case "passive":
		return PassiveStrategy{}
	case "random":
		return &RandomStrategy{Rng: rng}
	default:
		return &GreedyStrategy{Rng: rng, MoveRetryCap: moveRetryCap}
	}
}

// StrategyNames lists the names StrategyForName knows.
func StrategyNames() []string {
	return []string{"greedy", "random", "passive"}
}

// PlayTurn lets strategy choose an action for side and applies it.
func PlayTurn(gs *tactics.GameState, s Strategy, side tactics.Alignment, boardSize int) (tactics.Outcome, error) {
	if gs == nil {
		return tactics.Outcome{}, tactics.ErrInvalidBinding
	}
	a := s.ChooseAction(gs.Roster, side, boardSize)
	out, err := tactics.ApplyAction(gs, side, a, boardSize)
	if err != nil {
		return tactics.Outcome{}, fmt.Errorf("%s strategy chose %s %d -> %d: %w", s.Name(), a.Kind, a.From, a.To, err)
	}
	return out, nil
}

// --- PassiveStrategy ---

// PassiveStrategy never acts.
type PassiveStrategy struct{}

func (PassiveStrategy) Name() string { return "passive" }

func (PassiveStrategy) ChooseAction(tactics.Roster, tactics.Alignment, int) tactics.Action {
	return tactics.Pass()
}

// --- RandomStrategy ---

// RandomStrategy attacks whatever is in range about half the time and
// otherwise wanders. Used as a sparring partner in the arena.
type RandomStrategy struct {
	Rng tactics.Rand
}

func (*RandomStrategy) Name() string { return "random" }

func (s *RandomStrategy) ChooseAction(r tactics.Roster, side tactics.Alignment, boardSize int) tactics.Action {
	rng := botSource(s.Rng)

	if rng.Float64() < 0.5 {
		var attacks []tactics.Action
		for _, a := range r.Side(side) {
			for _, d := range r.Side(side.Opponent()) {
				if tactics.CanAttack(r, a.Position, d.Position, boardSize) == nil {
					attacks = append(attacks, tactics.Action{Kind: tactics.ActionAttack, From: a.Position, To: d.Position})
				}
			}
		}
		if len(attacks) > 0 {
			return attacks[rng.Intn(len(attacks))]
		}
	}
	return randomMove(r, side, boardSize, rng, DefaultMoveRetryCap)
}
