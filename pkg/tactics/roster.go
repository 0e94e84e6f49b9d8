package tactics

// PositionedCharacter binds a character to one board cell.
type PositionedCharacter struct {
	Character Character `json:"character"`
	Position  int       `json:"position"`
}

// Roster is every unit on the board: allies first, then enemies. Code that
// splits the roster relies on that order, so it must be preserved.
type Roster []PositionedCharacter

// EnemyStart returns the index of the first enemy unit, or -1 if the
// enemy side has no units left.
func (r Roster) EnemyStart() int {
	for i, pc := range r {
		if pc.Character.Alignment() == Enemy {
			return i
		}
	}
	return -1
}

// Allies returns the allied prefix of the roster.
func (r Roster) Allies() Roster {
	start := r.EnemyStart()
	if start < 0 {
		return r
	}
	return r[:start]
}

// Enemies returns the enemy suffix of the roster.
func (r Roster) Enemies() Roster {
	start := r.EnemyStart()
	if start < 0 {
		return nil
	}
	return r[start:]
}

// Side returns the units of one faction.
func (r Roster) Side(a Alignment) Roster {
	if a == Ally {
		return r.Allies()
	}
	return r.Enemies()
}

// Count returns the number of units of a faction.
func (r Roster) Count(a Alignment) int {
	n := 0
	for _, pc := range r {
		if pc.Character.Alignment() == a {
			n++
		}
	}
	return n
}

// IndexAt returns the roster index of the unit on a cell, or -1.
func (r Roster) IndexAt(cell int) int {
	for i := range r {
		if r[i].Position == cell {
			return i
		}
	}
	return -1
}

// At returns the unit on a cell, or nil if the cell is empty.
func (r Roster) At(cell int) *PositionedCharacter {
	if i := r.IndexAt(cell); i >= 0 {
		return &r[i]
	}
	return nil
}

// Occupied reports whether any unit stands on the cell.
func (r Roster) Occupied(cell int) bool {
	return r.IndexAt(cell) >= 0
}

// RemoveDefeated drops every unit with no health left, keeping the order
// of the survivors. It returns the cells that were vacated.
func (r *Roster) RemoveDefeated() []int {
	var vacated []int
	kept := (*r)[:0]
	for _, pc := range *r {
		if !pc.Character.Alive() {
			vacated = append(vacated, pc.Position)
			continue
		}
		kept = append(kept, pc)
	}
	clear((*r)[len(kept):])
	*r = kept
	return vacated
}

// Clone returns an independent copy of the roster.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	c := make(Roster, len(r))
	copy(c, r)
	return c
}
