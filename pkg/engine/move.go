package engine

// GenerateMoves returns every candidate for the side to move in row-major
// square order. For a stack the top piece's candidates come first and are
// flagged Unstackable. A finished game has no candidates.
func GenerateMoves(board Board) []PotentialMove {
	if board.GameOver {
		return nil
	}
	moves := make([]PotentialMove, 0, 64)
	side := board.SideToMove()

	for i := range board.Squares {
		piece := board.Squares[i]
		if piece.IsEmpty() || piece.Color != side {
			continue
		}
		from := Position{X: i % 9, Y: i / 9}

		if piece.Bottom == King {
			// a King never stacks: treat it as a locked bottom
			moves = scanMoves(&board, moves, from, side, movementFor(King, side), false, true)
			continue
		}
		if piece.HasTop() {
			moves = scanMoves(&board, moves, from, side, movementFor(piece.Top, side), true, true)
		}
		moves = scanMoves(&board, moves, from, side, movementFor(piece.Bottom, side), false, piece.HasTop())
	}
	return moves
}

// scanMoves walks each direction of mv from from, appending candidates
func scanMoves(board *Board, moves []PotentialMove, from Position, side Color, mv movement, isTop, hasTop bool) []PotentialMove {
	for _, d := range mv.dirs {
		for step := 1; step <= mv.maxDist; step++ {
			to, ok := from.Offset(d.dx*step, d.dy*step)
			if !ok {
				break
			}
			var more bool
			moves, more = explore(board, moves, from, to, side, isTop, hasTop)
			if !more {
				break
			}
		}
	}
	return moves
}

// explore handles one target square and reports whether scanning continues
func explore(board *Board, moves []PotentialMove, from, to Position, side Color, isTop, hasTop bool) ([]PotentialMove, bool) {
	target := board.At(to)
	if target.IsEmpty() {
		return append(moves, PotentialMove{From: from, To: to, Unstackable: isTop}), true
	}
	if target.Color != side {
		return append(moves, PotentialMove{From: from, To: to, Unstackable: isTop}), false
	}
	// a bottom piece locked under a top cannot move onto a friend
	if !isTop && hasTop {
		return moves, false
	}
	if !target.Stackable() {
		return moves, false
	}
	return append(moves, PotentialMove{From: from, To: to, Unstackable: isTop, ForceUnstack: isTop}), false
}

// LegalMoves expands the candidates into concrete moves, dropping
// duplicates and keeping generation order
func LegalMoves(board Board) []Move {
	return expandMoves(GenerateMoves(board))
}

func expandMoves(candidates []PotentialMove) []Move {
	moves := make([]Move, 0, len(candidates)+len(candidates)/4)
	seen := make(map[uint16]struct{}, cap(moves))
	for _, c := range candidates {
		for _, m := range c.Moves() {
			key := m.Encode()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			moves = append(moves, m)
		}
	}
	return moves
}

// ApplyMove returns the position after m. Capturing a King ends the game.
// The turn flips on success only.
func ApplyMove(board Board, m Move) (Board, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return board, moveError(m, ErrOutOfBounds)
	}
	if board.GameOver {
		return board, moveError(m, ErrGameOver)
	}
	piece := board.At(m.From)
	if piece.IsEmpty() {
		return board, moveError(m, ErrNoPiece)
	}

	next := board
	var moving Piece
	if m.Unstack {
		if piece.Bottom == King {
			return board, moveError(m, ErrUnstackKing)
		}
		if !piece.HasTop() {
			return board, moveError(m, ErrNoTopPiece)
		}
		moving = Piece{Color: piece.Color, Bottom: piece.Top}
		next.Set(m.From, Piece{Color: piece.Color, Bottom: piece.Bottom})
	} else {
		moving = piece
		next.Set(m.From, Piece{})
	}

	target := next.At(m.To)
	switch {
	case target.IsEmpty():
		next.Set(m.To, moving)
	case target.Color != moving.Color:
		next.Set(m.To, moving)
		if target.Bottom == King {
			next.GameOver = true
		}
	default:
		if !target.Stackable() {
			return board, moveError(m, ErrFriendlyBlocked)
		}
		if moving.HasTop() {
			return board, moveError(m, ErrStackOnStack)
		}
		if moving.Bottom == King {
			return board, moveError(m, ErrKingStack)
		}
		next.Set(m.To, Piece{Color: target.Color, Bottom: target.Bottom, Top: moving.Bottom})
	}

	next.WhiteToMove = !next.WhiteToMove
	return next, nil
}

// PlayMove applies m after checking it is among the legal moves
func PlayMove(board Board, m Move) (Board, error) {
	for _, legal := range LegalMoves(board) {
		if legal == m {
			return ApplyMove(board, m)
		}
	}
	return board, moveError(m, ErrIllegalMove)
}

// CapturesKing reports whether m lands on the opponent's King
func CapturesKing(board Board, m Move) bool {
	if !m.To.Valid() || !m.From.Valid() {
		return false
	}
	mover, target := board.At(m.From), board.At(m.To)
	return !mover.IsEmpty() && target.Bottom == King && target.Color != mover.Color
}
