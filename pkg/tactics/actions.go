package tactics

import "fmt"

// ActionKind is what a unit does with its turn.
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionMove   ActionKind = "move"
	ActionPass   ActionKind = "pass"
)

// Action is one turn of one faction: a unit on From moves to or attacks To.
type Action struct {
	Kind ActionKind `json:"kind"`
	From int        `json:"from"`
	To   int        `json:"to"`
}

// Pass is the action of a faction that cannot or will not act.
func Pass() Action {
	return Action{Kind: ActionPass, From: -1, To: -1}
}

// Outcome is the result of an applied action.
type Outcome struct {
	Side   Alignment     `json:"side"`
	Action Action        `json:"action"`
	Attack *AttackResult `json:"attack,omitempty"`
}

// CanMove checks that the unit on from may move to the empty cell to.
func CanMove(r Roster, from, to, boardSize int) error {
	unit := r.At(from)
	if unit == nil {
		return fmt.Errorf("%w: %d", ErrNoUnit, from)
	}
	if !InBounds(to, boardSize) {
		return fmt.Errorf("%w: cell %d is off the board", ErrUnreachableTarget, to)
	}
	if r.Occupied(to) {
		return fmt.Errorf("%w: %d", ErrCellOccupied, to)
	}
	dist, ok := Distance(from, to, boardSize)
	if !ok || dist > unit.Character.MoveDistance {
		return fmt.Errorf("%w: move %d -> %d", ErrUnreachableTarget, from, to)
	}
	return nil
}

// CanAttack checks that the unit on from may attack the unit on to.
func CanAttack(r Roster, from, to, boardSize int) error {
	attacker := r.At(from)
	if attacker == nil {
		return fmt.Errorf("%w: %d", ErrNoUnit, from)
	}
	defender := r.At(to)
	if defender == nil {
		return fmt.Errorf("%w: %d", ErrNoUnit, to)
	}
	if attacker.Character.Alignment() == defender.Character.Alignment() {
		return fmt.Errorf("%w: %d and %d fight on the same side", ErrFriendlyFire, from, to)
	}
	dist, ok := Distance(from, to, boardSize)
	if !ok || dist > attacker.Character.AttackDistance {
		return fmt.Errorf("%w: attack %d -> %d", ErrUnreachableTarget, from, to)
	}
	return nil
}

// ApplyAction validates and applies an action taken by side.
func ApplyAction(gs *GameState, side Alignment, a Action, boardSize int) (Outcome, error) {
	if gs == nil {
		return Outcome{}, ErrInvalidBinding
	}
	out := Outcome{Side: side, Action: a}
	if a.Kind == ActionPass {
		return out, nil
	}

	unit := gs.Roster.At(a.From)
	if unit == nil {
		return Outcome{}, fmt.Errorf("%w: %d", ErrNoUnit, a.From)
	}
	if unit.Character.Alignment() != side {
		return Outcome{}, fmt.Errorf("%w: %d", ErrNotYourUnit, a.From)
	}

	switch a.Kind {
	case ActionMove:
		if err := CanMove(gs.Roster, a.From, a.To, boardSize); err != nil {
			return Outcome{}, err
		}
		unit.Position = a.To
	case ActionAttack:
		if err := CanAttack(gs.Roster, a.From, a.To, boardSize); err != nil {
			return Outcome{}, err
		}
		res, err := gs.Roster.Attack(a.From, a.To)
		if err != nil {
			return Outcome{}, err
		}
		out.Attack = &res
	default:
		return Outcome{}, fmt.Errorf("%w %q", ErrUnknownAction, a.Kind)
	}
	return out, nil
}
