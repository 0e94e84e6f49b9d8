package tactics

import (
	"fmt"
	"math"
)

// minDamageShare is the fraction of raw attack that always gets through,
// however high the defender's defence.
const minDamageShare = 0.1

// Damage returns the health an attack by attacker would take from defender.
func Damage(attacker, defender Character) int {
	return int(math.Round(RawDamage(attacker, defender)))
}

// RawDamage is Damage before rounding.
func RawDamage(attacker, defender Character) float64 {
	return math.Max(attacker.Attack-defender.Defence, attacker.Attack*minDamageShare)
}

// AttackResult describes a resolved attack.
type AttackResult struct {
	Attacker          int       `json:"attacker"`
	Target            int       `json:"target"`
	Damage            int       `json:"damage"`
	DefenderKilled    bool      `json:"defender_killed"`
	FactionEliminated bool      `json:"faction_eliminated"`
	Eliminated        Alignment `json:"eliminated"` // meaningful only when FactionEliminated
}

// Attack resolves an attack by the unit on attackerCell against the unit on
// defenderCell. A defender left with no health is removed from the roster;
// FactionEliminated is set when that removal empties its whole side.
// Reachability is the caller's concern (see CanAttack).
func (r *Roster) Attack(attackerCell, defenderCell int) (AttackResult, error) {
	ai := r.IndexAt(attackerCell)
	if ai < 0 {
		return AttackResult{}, fmt.Errorf("%w: attacker at %d", ErrNoUnit, attackerCell)
	}
	di := r.IndexAt(defenderCell)
	if di < 0 {
		return AttackResult{}, fmt.Errorf("%w: defender at %d", ErrNoUnit, defenderCell)
	}

	defender := &(*r)[di]
	res := AttackResult{
		Attacker: attackerCell,
		Target:   defenderCell,
		Damage:   Damage((*r)[ai].Character, defender.Character),
	}
	defender.Character.Health -= res.Damage
	if defender.Character.Alive() {
		return res, nil
	}

	side := defender.Character.Alignment()
	r.RemoveDefeated()
	res.DefenderKilled = true
	if r.Count(side) == 0 {
		res.FactionEliminated = true
		res.Eliminated = side
	}
	return res, nil
}
