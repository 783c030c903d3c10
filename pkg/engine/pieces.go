package engine

import "github.com/yourusername/arxengine/internal/boardid"

// direction is a unit step (or leap offset) on the board
type direction struct {
	dx, dy int
}

// movement describes how an archetype travels: each direction is scanned up
// to maxDist steps, stopping at the first occupied square
type movement struct {
	dirs    []direction
	maxDist int
}

const unbounded = boardid.Dimension

var (
	orthogonalDirs = []direction{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	diagonalDirs   = []direction{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	allDirs        = []direction{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	knightLeaps    = []direction{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}

	// forward-facing tables indexed by Color (Black moves down, White up)
	soldierDirs = [2][]direction{
		boardid.Black: {{1, 1}, {-1, 1}},
		boardid.White: {{1, -1}, {-1, -1}},
	}
	ballistaDirs = [2][]direction{
		boardid.Black: {{0, 1}},
		boardid.White: {{0, -1}},
	}
)

// movementFor returns the movement rule for a piece type of color c
func movementFor(t PieceType, c Color) movement {
	switch t {
	case Soldier:
		return movement{dirs: soldierDirs[c], maxDist: 1}
	case Jester:
		return movement{dirs: diagonalDirs, maxDist: unbounded}
	case Commander:
		return movement{dirs: orthogonalDirs, maxDist: unbounded}
	case Paladin:
		return movement{dirs: orthogonalDirs, maxDist: 2}
	case Guard:
		return movement{dirs: diagonalDirs, maxDist: 2}
	case Dragon:
		return movement{dirs: knightLeaps, maxDist: 1}
	case Ballista:
		return movement{dirs: ballistaDirs[c], maxDist: unbounded}
	case King:
		return movement{dirs: allDirs, maxDist: 1}
	}
	return movement{}
}
