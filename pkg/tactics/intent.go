package tactics

// Cursor is the pointer shape a client should show over a cell.
type Cursor string

const (
	CursorAuto       Cursor = "auto"
	CursorPointer    Cursor = "pointer"
	CursorCrosshair  Cursor = "crosshair"
	CursorNotAllowed Cursor = "not-allowed"
)

// Highlight is the colour a client should give a cell.
type Highlight string

const (
	HighlightNone   Highlight = ""
	HighlightYellow Highlight = "yellow" // selected unit
	HighlightGreen  Highlight = "green"  // legal move destination
)

// Intent tells a client what clicking a cell would do.
type Intent struct {
	Cursor    Cursor    `json:"cursor"`
	Highlight Highlight `json:"highlight,omitempty"`
	Tooltip   string    `json:"tooltip,omitempty"`
}

// ClassifyAction decides what the selected unit could do to a cell holding
// chosen (nil for an empty cell) at the given distance.
func ClassifyAction(selected, chosen *PositionedCharacter, dist int, ok bool) Intent {
	switch {
	case selected == nil:
		return Intent{Cursor: CursorAuto}
	case chosen != nil && ok && dist <= selected.Character.AttackDistance:
		return Intent{Cursor: CursorCrosshair}
	case chosen == nil && ok && dist <= selected.Character.MoveDistance:
		return Intent{Cursor: CursorPointer, Highlight: HighlightGreen}
	}
	return Intent{Cursor: CursorNotAllowed}
}

// HoverIntent classifies the cell under the pointer given the currently
// selected allied unit (selectedCell < 0 when nothing is selected).
func HoverIntent(r Roster, selectedCell, hoverCell, boardSize int) Intent {
	hovered := r.At(hoverCell)
	var tooltip string
	if hovered != nil {
		tooltip = Tooltip(hovered.Character)
	}

	var selected *PositionedCharacter
	if selectedCell >= 0 {
		if s := r.At(selectedCell); s != nil && s.Character.Alignment() == Ally {
			selected = s
		}
	}

	hoveredAlly := hovered != nil && hovered.Character.Alignment() == Ally
	var in Intent
	switch {
	case selected == nil && hoveredAlly:
		in = Intent{Cursor: CursorPointer}
	case selected == nil:
		in = Intent{Cursor: CursorAuto}
	case hoveredAlly && hoverCell == selectedCell:
		in = Intent{Cursor: CursorAuto, Highlight: HighlightYellow}
	case hoveredAlly:
		in = Intent{Cursor: CursorPointer}
	default:
		dist, ok := Distance(selectedCell, hoverCell, boardSize)
		in = ClassifyAction(selected, hovered, dist, ok)
	}
	in.Tooltip = tooltip
	return in
}
