package engine

import (
	"golang.org/x/exp/rand"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/internal/gpu"
)

// rolloutResult holds the outcome of every rollout for one candidate
type rolloutResult struct {
	scores     []float64 // One entry per completed rollout, mover's perspective
	plies      uint64    // Moves applied, candidate included
	gpuBatches uint64
	cpuSims    uint64
}

// rolloutCandidate runs n rollouts of m from board. With a batch simulator
// the rollouts run in lockstep chunks on the device; a failed chunk is
// replayed on the CPU.
func (e *Engine) rolloutCandidate(board Board, m Move, n int, cfg SearchConfig, sim *gpu.BatchSimulator, rng *rand.Rand) rolloutResult {
	res := rolloutResult{scores: make([]float64, 0, n)}

	if sim == nil {
		e.rolloutCPU(board, m, n, cfg, rng, &res)
		return res
	}

	chunk := min(cfg.GPUBatchSize, gpu.MaxBatch)
	for done := 0; done < n; done += chunk {
		size := min(chunk, n-done)
		scores, plies, batches, err := e.rolloutGPU(sim, board, m, size, cfg, rng)
		res.gpuBatches += batches
		if err != nil {
			e.log.Warn().Err(err).Str("move", m.String()).Int("rollouts", size).
				Msg("batch simulation failed, running chunk on CPU")
			e.rolloutCPU(board, m, size, cfg, rng, &res)
			continue
		}
		res.scores = append(res.scores, scores...)
		res.plies += plies
	}
	return res
}

// rolloutCPU runs n sequential rollouts and appends to res
func (e *Engine) rolloutCPU(board Board, m Move, n int, cfg SearchConfig, rng *rand.Rand, res *rolloutResult) {
	for i := 0; i < n; i++ {
		score, plies, ok := e.simulate(board, m, cfg, rng)
		res.cpuSims++
		if !ok {
			continue
		}
		res.scores = append(res.scores, score)
		res.plies += uint64(plies)
	}
}

// simulate plays m and then random moves until MaxDepth plies have been
// made, the game ends or the side to move is stuck. The final position is
// scored from the perspective of the side that played m.
func (e *Engine) simulate(board Board, m Move, cfg SearchConfig, rng *rand.Rand) (float64, int, bool) {
	mover := board.SideToMove()
	cur, err := ApplyMove(board, m)
	if err != nil {
		return 0, 0, false
	}
	plies := 1

	for depth := 1; depth < cfg.MaxDepth && !cur.GameOver; depth++ {
		moves := e.rolloutMoves(cur)
		if len(moves) == 0 {
			break
		}
		next, err := ApplyMove(cur, moves[rng.Intn(len(moves))])
		if err != nil {
			// score the position before the bad move
			break
		}
		cur = next
		plies++
	}

	value := EvaluateBoard(&cur, e.values, cfg.TwoKingsDraw)
	if cur.SideToMove() != mover {
		value = -value
	}
	return float64(value), plies, true
}

// rolloutMoves lists the moves available during a rollout, on the device
// when accelerated move generation is enabled
func (e *Engine) rolloutMoves(board Board) []Move {
	if e.moveGen == nil {
		return LegalMoves(board)
	}

	encoded, err := e.moveGen.GenerateMoves(boardid.Encode(board))
	if err != nil {
		e.log.Debug().Err(err).Msg("accelerated move generation failed, using CPU")
		return LegalMoves(board)
	}
	candidates := make([]PotentialMove, 0, len(encoded))
	for _, v := range encoded {
		pm, err := boardid.DecodePotentialMove(v)
		if err != nil {
			continue
		}
		candidates = append(candidates, pm)
	}
	return expandMoves(candidates)
}

// rolloutGPU runs n rollouts of m in lockstep, one dispatch per ply. Move
// choice stays on the CPU; the device applies moves and scores results.
// Items leave the batch after a King capture or when they have no moves.
// Items whose candidate move the device rejects are dropped from the
// returned scores.
func (e *Engine) rolloutGPU(sim *gpu.BatchSimulator, board Board, m Move, n int, cfg SearchConfig, rng *rand.Rand) ([]float64, uint64, uint64, error) {
	mover := board.SideToMove()
	start := boardid.Encode(board)
	capture := CapturesKing(board, m)

	cur := make([]Board, n)
	scores := make([]int32, n)
	active := make([]bool, n)
	completed := make([]bool, n)
	for i := range cur {
		cur[i] = board
		scores[i] = int32(EvaluateBoard(&board, e.values, cfg.TwoKingsDraw))
		active[i] = true
	}

	var plies, batches uint64

	// apply the result of one dispatch to the items it covered
	update := func(idx []int, results []gpu.BatchResult, captures []bool) {
		for j, i := range idx {
			r := results[j]
			if !r.Valid {
				active[i] = false
				continue
			}
			next, err := boardid.Decode(r.Board)
			if err != nil {
				active[i] = false
				continue
			}
			cur[i] = next
			scores[i] = r.Score
			completed[i] = true
			plies++
			if captures[j] {
				cur[i].GameOver = true
				active[i] = false
			}
		}
	}

	// ply 0: the candidate itself, for every item
	idx := make([]int, n)
	boards := make([][boardid.EncodedSize]byte, n)
	moves := make([]uint16, n)
	captures := make([]bool, n)
	for i := range idx {
		idx[i] = i
		boards[i] = start
		moves[i] = m.Encode()
		captures[i] = capture
	}
	results, err := sim.ProcessBatch(boards, moves)
	if err != nil {
		return nil, 0, batches, err
	}
	batches++
	update(idx, results, captures)

	for depth := 1; depth < cfg.MaxDepth; depth++ {
		idx, boards, moves, captures = idx[:0], boards[:0], moves[:0], captures[:0]
		for i := range cur {
			if !active[i] {
				continue
			}
			legal := LegalMoves(cur[i])
			if len(legal) == 0 {
				active[i] = false
				continue
			}
			mv := legal[rng.Intn(len(legal))]
			idx = append(idx, i)
			boards = append(boards, boardid.Encode(cur[i]))
			moves = append(moves, mv.Encode())
			captures = append(captures, CapturesKing(cur[i], mv))
		}
		if len(idx) == 0 {
			break
		}

		results, err := sim.ProcessBatch(boards, moves)
		if err != nil {
			return nil, plies, batches, err
		}
		batches++
		update(idx, results, captures)
	}

	out := make([]float64, 0, n)
	for i := range cur {
		if !completed[i] {
			continue
		}
		v := scores[i]
		if cfg.TwoKingsDraw {
			if kings, occupied := cur[i].CountKings(); kings == 2 && occupied == 2 {
				v = 0
			}
		}
		if cur[i].SideToMove() != mover {
			v = -v
		}
		out = append(out, float64(v))
	}
	return out, plies, batches, nil
}
