package engine

import "sync/atomic"

// SearchStatistics is a snapshot of the engine's counters. Counters grow
// for the engine's lifetime until ResetStatistics.
type SearchStatistics struct {
	TotalMovesEvaluated uint64 `json:"total_moves_evaluated"` // Moves applied across all rollouts
	SimulationsRun      uint64 `json:"simulations_run"`
	LastSearchMoves     uint64 `json:"last_search_moves"` // Moves applied by the most recent search
	GPUBatchesProcessed uint64 `json:"gpu_batches_processed"`
	CPUSimulations      uint64 `json:"cpu_simulations"` // Rollouts run on the CPU, including fallbacks
	CacheHits           uint64 `json:"cache_hits"`
	CacheMisses         uint64 `json:"cache_misses"`
}

// AvgMovesPerSimulation returns the mean rollout length
func (s SearchStatistics) AvgMovesPerSimulation() float64 {
	if s.SimulationsRun == 0 {
		return 0
	}
	return float64(s.TotalMovesEvaluated) / float64(s.SimulationsRun)
}

// CacheHitRate returns the share of searches answered from the cache as a
// percentage
func (s SearchStatistics) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total) * 100
}

type searchStats struct {
	totalMoves      atomic.Uint64
	simulations     atomic.Uint64
	lastSearchMoves atomic.Uint64
	gpuBatches      atomic.Uint64
	cpuSims         atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
}

func (s *searchStats) snapshot() SearchStatistics {
	return SearchStatistics{
		TotalMovesEvaluated: s.totalMoves.Load(),
		SimulationsRun:      s.simulations.Load(),
		LastSearchMoves:     s.lastSearchMoves.Load(),
		GPUBatchesProcessed: s.gpuBatches.Load(),
		CPUSimulations:      s.cpuSims.Load(),
		CacheHits:           s.cacheHits.Load(),
		CacheMisses:         s.cacheMisses.Load(),
	}
}

func (s *searchStats) reset() {
	s.totalMoves.Store(0)
	s.simulations.Store(0)
	s.lastSearchMoves.Store(0)
	s.gpuBatches.Store(0)
	s.cpuSims.Store(0)
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
}

// Statistics returns the current search statistics
func (e *Engine) Statistics() SearchStatistics {
	return e.stats.snapshot()
}

// ResetStatistics zeroes every counter
func (e *Engine) ResetStatistics() {
	e.stats.reset()
}
