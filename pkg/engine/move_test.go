package engine

import (
	"errors"
	"testing"

	"github.com/yourusername/arxengine/internal/boardid"
)

// sq parses a square name such as "E5"
func sq(t *testing.T, name string) Position {
	t.Helper()
	p, err := boardid.ParsePosition(name)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", name, err)
	}
	return p
}

// setup builds a board with White to move from square/piece pairs
func setup(t *testing.T, pieces map[string]Piece) Board {
	t.Helper()
	b := Board{WhiteToMove: true}
	for name, p := range pieces {
		b.Set(sq(t, name), p)
	}
	return b
}

func mv(t *testing.T, from, to string, unstack bool) Move {
	t.Helper()
	return Move{From: sq(t, from), To: sq(t, to), Unstack: unstack}
}

func containsMove(moves []Move, m Move) bool {
	for _, x := range moves {
		if x == m {
			return true
		}
	}
	return false
}

func TestGenerateMovesStartingPosition(t *testing.T) {
	board := StartingPosition()
	candidates := GenerateMoves(board)
	if len(candidates) != 53 {
		t.Fatalf("White has %d candidates, want 53", len(candidates))
	}

	for i, c := range candidates {
		if c.Unstackable || c.ForceUnstack {
			t.Errorf("candidate %d (%s) flagged on a board without stacks", i, c)
		}
		if board.At(c.From).Color != White {
			t.Errorf("candidate %d (%s) moves a Black piece", i, c)
		}
	}

	legal := LegalMoves(board)
	if len(legal) != 53 {
		t.Errorf("LegalMoves returned %d moves, want 53", len(legal))
	}
	// Soldiers advance diagonally toward Black
	for _, m := range []Move{mv(t, "A3", "B4", false), mv(t, "E3", "D4", false), mv(t, "I3", "H4", false)} {
		if !containsMove(legal, m) {
			t.Errorf("expected soldier advance %s", m)
		}
	}
	// Soldiers never move sideways or back
	if containsMove(legal, mv(t, "A3", "B2", false)) {
		t.Error("soldier must not move backward")
	}

	board.WhiteToMove = false
	black := GenerateMoves(board)
	if len(black) != 53 {
		t.Errorf("Black has %d candidates, want 53", len(black))
	}
	if len(black) > 0 && board.At(black[0].From).Color != Black {
		t.Errorf("first Black candidate %s moves a White piece", black[0])
	}
}

func TestGenerateMovesStackFlags(t *testing.T) {
	board := setup(t, map[string]Piece{
		"E5": boardid.Stack(White, Paladin, Soldier),
		"A1": boardid.Single(White, King),
		"I9": boardid.Single(Black, King),
	})

	var tops, bottoms int
	for _, c := range GenerateMoves(board) {
		if c.From != sq(t, "E5") {
			continue
		}
		if c.Unstackable {
			tops++
			if c.ForceUnstack {
				t.Errorf("%s: empty target must not force an unstack", c)
			}
			continue
		}
		bottoms++
	}
	// Soldier: two forward diagonals. Paladin: two steps in four directions.
	if tops != 2 {
		t.Errorf("top candidates = %d, want 2", tops)
	}
	if bottoms != 8 {
		t.Errorf("bottom candidates = %d, want 8", bottoms)
	}

	// each top candidate expands to an unstack and a whole-stack move
	legal := LegalMoves(board)
	if !containsMove(legal, mv(t, "E5", "D6", true)) || !containsMove(legal, mv(t, "E5", "D6", false)) {
		t.Error("expected both unstack and whole-stack moves to D6")
	}
}

func TestGenerateMovesForcedUnstack(t *testing.T) {
	// top Soldier can only join the Guard by leaving the Paladin behind
	board := setup(t, map[string]Piece{
		"E5": boardid.Stack(White, Paladin, Soldier),
		"F6": boardid.Single(White, Guard),
		"A1": boardid.Single(White, King),
		"I9": boardid.Single(Black, King),
	})

	var found bool
	for _, c := range GenerateMoves(board) {
		if c.From == sq(t, "E5") && c.To == sq(t, "F6") {
			found = true
			if !c.Unstackable || !c.ForceUnstack {
				t.Errorf("%s: want unstackable and forced", c)
			}
		}
	}
	if !found {
		t.Fatal("expected a forced unstack onto F6")
	}

	legal := LegalMoves(board)
	if !containsMove(legal, mv(t, "E5", "F6", true)) {
		t.Error("forced unstack move missing")
	}
	if containsMove(legal, mv(t, "E5", "F6", false)) {
		t.Error("whole stack must not move onto a friendly piece")
	}
}

func TestGenerateMovesGameOver(t *testing.T) {
	board := StartingPosition()
	board.GameOver = true
	if moves := GenerateMoves(board); len(moves) != 0 {
		t.Errorf("finished game has %d candidates, want 0", len(moves))
	}
}

func TestApplyMoveKingCapture(t *testing.T) {
	board := setup(t, map[string]Piece{
		"A5": boardid.Single(White, Commander),
		"E5": boardid.Single(Black, King),
		"I1": boardid.Single(White, King),
	})
	m := mv(t, "A5", "E5", false)

	if !CapturesKing(board, m) {
		t.Fatal("CapturesKing = false, want true")
	}
	next, err := ApplyMove(board, m)
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !next.GameOver {
		t.Error("capturing the King must end the game")
	}
	if next.WhiteToMove {
		t.Error("turn did not flip")
	}
	if got := next.At(sq(t, "E5")); got != boardid.Single(White, Commander) {
		t.Errorf("E5 = %+v, want White Commander", got)
	}
	if !next.At(sq(t, "A5")).IsEmpty() {
		t.Error("source square not cleared")
	}
	if moves := GenerateMoves(next); len(moves) != 0 {
		t.Errorf("moves after King capture = %d, want 0", len(moves))
	}
}

func TestApplyMoveOnlyKingCaptureEndsGame(t *testing.T) {
	board := setup(t, map[string]Piece{
		"E5": boardid.Single(White, Soldier),
		"D6": boardid.Single(Black, Soldier),
		"C4": boardid.Single(White, Soldier),
		"D5": boardid.Single(White, Guard),
		"G3": boardid.Stack(White, Paladin, Soldier),
		"A1": boardid.Single(White, King),
		"I9": boardid.Single(Black, King),
	})

	tests := []struct {
		name string
		move Move
	}{
		{"capture", mv(t, "E5", "D6", false)},
		{"quiet", mv(t, "E5", "F6", false)},
		{"stack", mv(t, "C4", "D5", false)},
		{"unstack", mv(t, "G3", "H4", true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !containsMove(LegalMoves(board), tt.move) {
				t.Fatalf("%s is not legal", tt.move)
			}
			next, err := ApplyMove(board, tt.move)
			if err != nil {
				t.Fatalf("ApplyMove(%s): %v", tt.move, err)
			}
			if next.GameOver {
				t.Errorf("%s ended the game", tt.move)
			}
			if next.WhiteToMove {
				t.Error("turn did not flip")
			}
		})
	}
}

func TestApplyMoveStackAndUnstack(t *testing.T) {
	board := setup(t, map[string]Piece{
		"E5": boardid.Single(White, Soldier),
		"D6": boardid.Single(White, Guard),
		"A1": boardid.Single(White, King),
		"I9": boardid.Single(Black, King),
	})

	stacked, err := ApplyMove(board, mv(t, "E5", "D6", false))
	if err != nil {
		t.Fatalf("stacking move: %v", err)
	}
	if got := stacked.At(sq(t, "D6")); got != boardid.Stack(White, Guard, Soldier) {
		t.Fatalf("D6 = %+v, want Soldier on Guard", got)
	}

	// Black passes the turn back by moving its King
	stacked, err = ApplyMove(stacked, mv(t, "I9", "H9", false))
	if err != nil {
		t.Fatalf("Black king move: %v", err)
	}

	unstacked, err := ApplyMove(stacked, mv(t, "D6", "C7", true))
	if err != nil {
		t.Fatalf("unstack: %v", err)
	}
	if got := unstacked.At(sq(t, "D6")); got != boardid.Single(White, Guard) {
		t.Errorf("D6 after unstack = %+v, want Guard", got)
	}
	if got := unstacked.At(sq(t, "C7")); got != boardid.Single(White, Soldier) {
		t.Errorf("C7 after unstack = %+v, want Soldier", got)
	}
}

func TestApplyMoveErrors(t *testing.T) {
	board := setup(t, map[string]Piece{
		"E5": boardid.Single(White, Soldier),
		"D6": boardid.Stack(White, Guard, Jester),
		"C3": boardid.Stack(White, Paladin, Soldier),
		"C4": boardid.Single(White, Dragon),
		"A1": boardid.Single(White, King),
		"A2": boardid.Single(White, Ballista),
		"I9": boardid.Single(Black, King),
	})
	over := board
	over.GameOver = true

	tests := []struct {
		name  string
		board Board
		move  Move
		want  error
	}{
		{"empty source", board, mv(t, "F5", "F6", false), ErrNoPiece},
		{"unstack king", board, mv(t, "A1", "B1", true), ErrUnstackKing},
		{"unstack single", board, mv(t, "E5", "F6", true), ErrNoTopPiece},
		{"onto full stack", board, mv(t, "E5", "D6", false), ErrFriendlyBlocked},
		{"stack onto piece", board, mv(t, "C3", "C4", false), ErrStackOnStack},
		{"king onto friend", board, mv(t, "A1", "A2", false), ErrKingStack},
		{"off board", board, Move{From: sq(t, "E5"), To: Position{X: 9, Y: 0}}, ErrOutOfBounds},
		{"game over", over, mv(t, "E5", "F6", false), ErrGameOver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ApplyMove(tt.board, tt.move)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ApplyMove error = %v, want %v", err, tt.want)
			}
			var me *MoveError
			if !errors.As(err, &me) {
				t.Fatalf("error %T is not a *MoveError", err)
			}
			if me.Move != tt.move {
				t.Errorf("MoveError.Move = %s, want %s", me.Move, tt.move)
			}
			if next != tt.board {
				t.Error("board changed on a failed move")
			}
		})
	}
}

func TestPlayMoveRejectsIllegal(t *testing.T) {
	board := StartingPosition()

	// the King moves one square
	_, err := PlayMove(board, mv(t, "E1", "E3", false))
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("PlayMove error = %v, want ErrIllegalMove", err)
	}

	next, err := PlayMove(board, mv(t, "A3", "B4", false))
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if next.WhiteToMove {
		t.Error("turn did not flip")
	}
}
