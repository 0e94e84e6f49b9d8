package bot

import (
	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// DefaultMoveRetryCap bounds how many random moves are sampled before a
// strategy gives up and passes.
const DefaultMoveRetryCap = 64

// GreedyStrategy is the enemy policy. Every unit picks the weakest opponent
// it can reach; the pairing that deals the most damage attacks. When
// nothing is in range a random unit takes a random step.
type GreedyStrategy struct {
	MoveRetryCap int          // 0 means DefaultMoveRetryCap
	Rng          tactics.Rand // nil means the package source
}

func (*GreedyStrategy) Name() string { return "greedy" }

func (s *GreedyStrategy) ChooseAction(r tactics.Roster, side tactics.Alignment, boardSize int) tactics.Action {
	if a, ok := bestAttack(r, side, boardSize); ok {
		return a
	}
	retries := s.MoveRetryCap
	if retries <= 0 {
		retries = DefaultMoveRetryCap
	}
	return randomMove(r, side, boardSize, botSource(s.Rng), retries)
}

// bestAttack pairs each unit of side with the lowest-health opponent in its
// attack range (first found on ties) and returns the pairing with the
// highest unrounded damage (first found on ties).
func bestAttack(r tactics.Roster, side tactics.Alignment, boardSize int) (tactics.Action, bool) {
	var best tactics.Action
	bestDamage := -1.0
	for _, attacker := range r.Side(side) {
		var target *tactics.PositionedCharacter
		for i := range r {
			d := &r[i]
			if d.Character.Alignment() == side {
				continue
			}
			dist, ok := tactics.Distance(attacker.Position, d.Position, boardSize)
			if !ok || dist > attacker.Character.AttackDistance {
				continue
			}
			if target == nil || d.Character.Health < target.Character.Health {
				target = d
			}
		}
		if target == nil {
			continue
		}
		if dmg := tactics.RawDamage(attacker.Character, target.Character); dmg > bestDamage {
			bestDamage = dmg
			best = tactics.Action{Kind: tactics.ActionAttack, From: attacker.Position, To: target.Position}
		}
	}
	return best, bestDamage >= 0
}

// direction is a unit step on the board. leftward steps must not end in a
// column right of the start and the others must end strictly right of it;
// that rejects steps that wrap around a row edge.
type direction struct {
	rows, cols int
}

var directions = [8]direction{
	{-1, -1}, {-1, 0}, {-1, 1}, {0, 1},
	{1, 1}, {1, 0}, {1, -1}, {0, -1},
}

func (d direction) offset(boardSize int) int {
	return d.rows*boardSize + d.cols
}

func (d direction) rightward() bool {
	return d.cols > 0
}

// randomMove picks one unit of side at random and samples up to retries
// random (direction, length) steps for it. The first legal step is
// returned; a unit that cannot move passes the turn.
func randomMove(r tactics.Roster, side tactics.Alignment, boardSize int, rng tactics.Rand, retries int) tactics.Action {
	units := r.Side(side)
	if len(units) == 0 {
		return tactics.Pass()
	}
	u := units[rng.Intn(len(units))]
	if u.Character.MoveDistance < 1 {
		retries = 0
	}
	for range retries {
		dir := directions[rng.Intn(len(directions))]
		steps := rng.Intn(u.Character.MoveDistance) + 1
		dest := u.Position + dir.offset(boardSize)*steps
		if !tactics.InBounds(dest, boardSize) {
			continue
		}
		startCol, destCol := tactics.Col(u.Position, boardSize), tactics.Col(dest, boardSize)
		if dir.rightward() != (destCol > startCol) {
			continue
		}
		if tactics.CanMove(r, u.Position, dest, boardSize) != nil {
			continue
		}
		return tactics.Action{Kind: tactics.ActionMove, From: u.Position, To: dest}
	}
	log.Debug().Err(tactics.ErrNoLegalMove).Str("side", side.String()).Int("unit", u.Position).Int("retries", retries).Msg("Passing turn")
	return tactics.Pass()
}
