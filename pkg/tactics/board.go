package tactics

// DefaultBoardSize is the side length of the standard square board.
const DefaultBoardSize = 8

// TileType classifies a cell by the border region it sits in.
type TileType string

const (
	TileTopLeft     TileType = "top-left"
	TileTop         TileType = "top"
	TileTopRight    TileType = "top-right"
	TileLeft        TileType = "left"
	TileCenter      TileType = "center"
	TileRight       TileType = "right"
	TileBottomLeft  TileType = "bottom-left"
	TileBottom      TileType = "bottom"
	TileBottomRight TileType = "bottom-right"
)

// CellCount returns the number of cells on a board of the given size.
func CellCount(boardSize int) int {
	return boardSize * boardSize
}

// Row returns the zero-based row of a cell index.
func Row(index, boardSize int) int {
	return index / boardSize
}

// Col returns the zero-based column of a cell index.
func Col(index, boardSize int) int {
	return index % boardSize
}

// InBounds reports whether index addresses a cell of the board.
func InBounds(index, boardSize int) bool {
	return index >= 0 && index < CellCount(boardSize)
}

// Distance returns the number of steps between two cells along a row,
// a column or a 45° diagonal. ok is false when the cells share none of
// these lines: no game action can reach across such a pair.
func Distance(from, to, boardSize int) (dist int, ok bool) {
	dist = abs(from - to)
	leftEdge := from - from%boardSize
	rightEdge := leftEdge + boardSize - 1
	if to >= leftEdge && to <= rightEdge {
		return dist, true
	}

	fromCol := from % boardSize
	toCol := to % boardSize
	if toCol == fromCol {
		return dist / boardSize, true
	}

	// Down-left/up-right steps are boardSize-1 apart, down-right/up-left
	// steps boardSize+1. Which one moves toward a lower column depends on
	// whether the target lies above or below.
	towardLower := boardSize - 1
	towardHigher := boardSize + 1
	if to < from {
		towardLower, towardHigher = boardSize+1, boardSize-1
	}
	switch {
	case dist%towardLower == 0 && toCol < fromCol:
		return dist / towardLower, true
	case dist%towardHigher == 0 && toCol > fromCol:
		return dist / towardHigher, true
	}
	return 0, false
}

// TileTypeAt returns the border region of a cell. Corners take precedence
// over edges.
func TileTypeAt(index, boardSize int) TileType {
	tile := index + 1
	last := boardSize * boardSize
	bottomLeft := last - boardSize + 1

	switch {
	case tile <= boardSize:
		switch tile {
		case 1:
			return TileTopLeft
		case boardSize:
			return TileTopRight
		}
		return TileTop
	case tile >= bottomLeft:
		switch tile {
		case bottomLeft:
			return TileBottomLeft
		case last:
			return TileBottomRight
		}
		return TileBottom
	}

	switch tile % boardSize {
	case 1:
		return TileLeft
	case 0:
		return TileRight
	}
	return TileCenter
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
