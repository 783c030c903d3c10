package api

import (
	"context"
	"sync/atomic"
	"time"
)

// WorkerPool bounds concurrent request processing. Rules requests (moves,
// play) are cheap and share a large pool; engine searches are CPU bound and
// share a small one.
type WorkerPool struct {
	rulesSem  chan struct{}
	searchSem chan struct{}

	queuedRules  atomic.Int64
	queuedSearch atomic.Int64
	activeRules  atomic.Int64
	activeSearch atomic.Int64
	totalRules   atomic.Int64
	totalSearch  atomic.Int64
	rejected     atomic.Int64
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MaxRulesWorkers  int // Max concurrent rules requests (default: 100)
	MaxSearchWorkers int // Max concurrent searches (default: 4)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxRulesWorkers:  100,
		MaxSearchWorkers: 4,
	}
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	def := DefaultPoolConfig()
	if config.MaxRulesWorkers <= 0 {
		config.MaxRulesWorkers = def.MaxRulesWorkers
	}
	if config.MaxSearchWorkers <= 0 {
		config.MaxSearchWorkers = def.MaxSearchWorkers
	}

	return &WorkerPool{
		rulesSem:  make(chan struct{}, config.MaxRulesWorkers),
		searchSem: make(chan struct{}, config.MaxSearchWorkers),
	}
}

func (p *WorkerPool) acquire(ctx context.Context, sem chan struct{}, queued, active *atomic.Int64) error {
	queued.Add(1)
	defer queued.Add(-1)

	select {
	case sem <- struct{}{}:
		active.Add(1)
		return nil
	case <-ctx.Done():
		p.rejected.Add(1)
		return ctx.Err()
	}
}

func release(sem chan struct{}, active, total *atomic.Int64) {
	active.Add(-1)
	total.Add(1)
	<-sem
}

// AcquireRules waits for a rules slot.
// Returns an error if the context is cancelled while waiting.
func (p *WorkerPool) AcquireRules(ctx context.Context) error {
	return p.acquire(ctx, p.rulesSem, &p.queuedRules, &p.activeRules)
}

// ReleaseRules releases a rules slot.
func (p *WorkerPool) ReleaseRules() {
	release(p.rulesSem, &p.activeRules, &p.totalRules)
}

// AcquireSearch waits for a search slot.
// Returns an error if the context is cancelled while waiting.
func (p *WorkerPool) AcquireSearch(ctx context.Context) error {
	return p.acquire(ctx, p.searchSem, &p.queuedSearch, &p.activeSearch)
}

// AcquireSearchWithTimeout waits at most timeout for a search slot.
func (p *WorkerPool) AcquireSearchWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.AcquireSearch(ctx)
}

// ReleaseSearch releases a search slot.
func (p *WorkerPool) ReleaseSearch() {
	release(p.searchSem, &p.activeSearch, &p.totalSearch)
}

// TryAcquireSearch takes a search slot without blocking.
// Returns true if acquired, false if pool is full.
func (p *WorkerPool) TryAcquireSearch() bool {
	select {
	case p.searchSem <- struct{}{}:
		p.activeSearch.Add(1)
		return true
	default:
		p.rejected.Add(1)
		return false
	}
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	ActiveRules  int64 `json:"active_rules"`
	ActiveSearch int64 `json:"active_search"`
	QueuedRules  int64 `json:"queued_rules"`
	QueuedSearch int64 `json:"queued_search"`
	TotalRules   int64 `json:"total_rules"`
	TotalSearch  int64 `json:"total_search"`
	Rejected     int64 `json:"rejected"`
	MaxRules     int   `json:"max_rules"`
	MaxSearch    int   `json:"max_search"`
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveRules:  p.activeRules.Load(),
		ActiveSearch: p.activeSearch.Load(),
		QueuedRules:  p.queuedRules.Load(),
		QueuedSearch: p.queuedSearch.Load(),
		TotalRules:   p.totalRules.Load(),
		TotalSearch:  p.totalSearch.Load(),
		Rejected:     p.rejected.Load(),
		MaxRules:     cap(p.rulesSem),
		MaxSearch:    cap(p.searchSem),
	}
}
