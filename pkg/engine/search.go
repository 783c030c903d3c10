package engine

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/internal/gpu"
)

// seedStride separates the RNG streams of concurrent candidate tasks
const seedStride = 1000000

// FindBestMove returns the move with the best average rollout score for the
// side to move. Results are cached by exact board encoding, which does not
// carry GameOver, so a finished board is rejected before the lookup.
func (e *Engine) FindBestMove(board Board) (Move, error) {
	if board.GameOver {
		return Move{}, ErrNoLegalMoves
	}
	key := boardid.Encode(board)
	if entry, ok := e.cache.Lookup(key); ok {
		e.stats.cacheHits.Add(1)
		return entry.BestMove, nil
	}
	e.stats.cacheMisses.Add(1)

	legal := LegalMoves(board)
	if len(legal) == 0 {
		e.stats.lastSearchMoves.Store(0)
		return Move{}, ErrNoLegalMoves
	}

	cfg, sim := e.searchSettings()
	if m, ok := e.shortcut(board, legal, cfg); ok {
		e.stats.lastSearchMoves.Store(0)
		e.cache.Store(key, CacheEntry{BestMove: m})
		return m, nil
	}

	analyses := e.evaluateAll(board, legal, cfg, sim)
	best, err := selectBest(analyses)
	if err != nil {
		return Move{}, err
	}

	e.cache.Store(key, CacheEntry{
		BestMove:     best.Move,
		AverageScore: best.Average,
		Simulations:  best.Simulations,
	})
	return best.Move, nil
}

// Analyze runs rollouts for every legal move and returns the results in
// generation order. It neither reads nor writes the cache and never takes
// the shortcuts used by FindBestMove.
func (e *Engine) Analyze(board Board) ([]MoveAnalysis, error) {
	legal := LegalMoves(board)
	if len(legal) == 0 {
		return nil, ErrNoLegalMoves
	}
	cfg, sim := e.searchSettings()
	return e.evaluateAll(board, legal, cfg, sim), nil
}

// shortcut returns a move that needs no search: the only legal move, or a
// King capture when enabled
func (e *Engine) shortcut(board Board, legal []Move, cfg SearchConfig) (Move, bool) {
	if len(legal) == 1 {
		return legal[0], true
	}
	if !cfg.KingCaptureShortcut {
		return Move{}, false
	}
	for _, m := range legal {
		if CapturesKing(board, m) {
			return m, true
		}
	}
	return Move{}, false
}

// evaluateAll fans the candidates out over the worker pool
func (e *Engine) evaluateAll(board Board, legal []Move, cfg SearchConfig, sim *gpu.BatchSimulator) []MoveAnalysis {
	start := time.Now()
	searchSeed := e.seed + e.searches.Add(1)
	results := make([]rolloutResult, len(legal))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, m := range legal {
		i, m := i, m
		seed := searchSeed + int64(i)*seedStride
		g.Go(func() error {
			rng := rand.New(rand.NewSource(uint64(seed)))
			results[i] = e.rolloutCandidate(board, m, cfg.SimulationsPerMove, cfg, sim, rng)
			return nil
		})
	}
	_ = g.Wait()

	var plies, sims, batches, cpuSims uint64
	analyses := make([]MoveAnalysis, len(legal))
	for i, r := range results {
		plies += r.plies
		sims += uint64(len(r.scores))
		batches += r.gpuBatches
		cpuSims += r.cpuSims

		a := MoveAnalysis{Move: legal[i], Simulations: len(r.scores)}
		if len(r.scores) > 0 {
			a.Average, a.StdDev = stat.MeanStdDev(r.scores, nil)
			if math.IsNaN(a.StdDev) {
				a.StdDev = 0
			}
		}
		analyses[i] = a
	}

	e.stats.totalMoves.Add(plies)
	e.stats.simulations.Add(sims)
	e.stats.gpuBatches.Add(batches)
	e.stats.cpuSims.Add(cpuSims)
	e.stats.lastSearchMoves.Store(plies)

	e.log.Debug().
		Int("candidates", len(legal)).
		Uint64("simulations", sims).
		Uint64("moves", plies).
		Uint64("gpu_batches", batches).
		Dur("elapsed", time.Since(start)).
		Msg("search complete")

	return analyses
}

// selectBest picks the candidate with the strictly greatest average. Ties
// keep the earliest candidate; candidates without rollouts never win.
func selectBest(analyses []MoveAnalysis) (MoveAnalysis, error) {
	if len(analyses) == 0 {
		return MoveAnalysis{}, ErrNoLegalMoves
	}
	avgs := make([]float64, len(analyses))
	simulated := false
	for i, a := range analyses {
		if a.Simulations == 0 {
			avgs[i] = math.Inf(-1)
			continue
		}
		avgs[i] = a.Average
		simulated = true
	}
	if !simulated {
		return MoveAnalysis{}, fmt.Errorf("%w: no rollout completed", ErrNoLegalMoves)
	}
	return analyses[floats.MaxIdx(avgs)], nil
}
