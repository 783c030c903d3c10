package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"github.com/yourusername/arxengine/internal/gpu"
)

// PieceValues is the material table used by evaluation. The top and bottom
// of a stack are counted separately.
type PieceValues struct {
	Soldier   int `yaml:"soldier" json:"soldier"`
	Jester    int `yaml:"jester" json:"jester"`
	Commander int `yaml:"commander" json:"commander"`
	Paladin   int `yaml:"paladin" json:"paladin"`
	Guard     int `yaml:"guard" json:"guard"`
	Dragon    int `yaml:"dragon" json:"dragon"`
	Ballista  int `yaml:"ballista" json:"ballista"`
	King      int `yaml:"king" json:"king"`
}

// DefaultPieceValues returns the standard material table
func DefaultPieceValues() PieceValues {
	return PieceValues{
		Soldier:   1,
		Jester:    5,
		Commander: 5,
		Paladin:   3,
		Guard:     3,
		Dragon:    4,
		Ballista:  4,
		King:      1000,
	}
}

// Of returns the value of a single piece type
func (v PieceValues) Of(t PieceType) int {
	switch t {
	case Soldier:
		return v.Soldier
	case Jester:
		return v.Jester
	case Commander:
		return v.Commander
	case Paladin:
		return v.Paladin
	case Guard:
		return v.Guard
	case Dragon:
		return v.Dragon
	case Ballista:
		return v.Ballista
	case King:
		return v.King
	}
	return 0
}

func (v PieceValues) table() gpu.PieceValues {
	var t gpu.PieceValues
	for pt := Soldier; pt <= King; pt++ {
		t[pt] = int32(v.Of(pt))
	}
	return t
}

// SearchConfig controls rollout search
type SearchConfig struct {
	MaxDepth            int     `yaml:"max_depth" json:"max_depth"`                       // Plies per rollout, counting the candidate move
	SimulationsPerMove  int     `yaml:"simulations_per_move" json:"simulations_per_move"` // Rollouts per candidate
	ExplorationConstant float64 `yaml:"exploration_constant" json:"exploration_constant"` // Reserved for UCB selection
	GPUBatchSize        int     `yaml:"gpu_batch_size" json:"gpu_batch_size"`             // Rollouts per device dispatch
	UseGPUSimulation    bool    `yaml:"use_gpu_simulation" json:"use_gpu_simulation"`
	KingCaptureShortcut bool    `yaml:"king_capture_shortcut" json:"king_capture_shortcut"` // Play a King capture without searching
	TwoKingsDraw        bool    `yaml:"two_kings_draw" json:"two_kings_draw"`               // Bare Kings evaluate to 0
}

// DefaultSearchConfig returns the standard search settings
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxDepth:            3,
		SimulationsPerMove:  100,
		ExplorationConstant: 1.414,
		GPUBatchSize:        256,
		UseGPUSimulation:    true,
		KingCaptureShortcut: true,
		TwoKingsDraw:        true,
	}
}

// Engine searches Arx positions. It is safe for concurrent use.
type Engine struct {
	values  PieceValues
	workers int
	seed    int64

	// Search settings and the optional batch simulator
	mu       sync.RWMutex
	cfg      SearchConfig
	batchSim *gpu.BatchSimulator

	gpu     *gpu.Context
	moveGen *gpu.MoveGenerator

	cache    *PositionCache
	stats    searchStats
	searches atomic.Int64

	log zerolog.Logger
}

// EngineOptions configures the engine
type EngineOptions struct {
	Search             SearchConfig    // Search settings (zero numeric fields take defaults)
	Values             PieceValues     // Material table (zero = DefaultPieceValues)
	Workers            int             // Parallel candidate evaluations (0 = GOMAXPROCS)
	Seed               int64           // Base RNG seed (0 = random)
	CacheShards        int             // Position cache shards (0 = DefaultCacheShards)
	GPU                *gpu.Context    // Compute device for accelerated paths (nil = CPU only)
	AcceleratedMoveGen bool            // Generate rollout moves on the device; requires GPU
	Logger             *zerolog.Logger // nil = global logger
}

// DefaultEngineOptions returns options for a CPU engine with default search
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Search: DefaultSearchConfig(),
		Values: DefaultPieceValues(),
	}
}

// NewEngine creates a new engine with the given options
func NewEngine(opts EngineOptions) (*Engine, error) {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	e := &Engine{
		values:  opts.Values,
		workers: opts.Workers,
		seed:    opts.Seed,
		cfg:     normalizeSearch(opts.Search),
		gpu:     opts.GPU,
		cache:   NewPositionCache(opts.CacheShards),
		log:     logger.With().Str("component", "engine").Logger(),
	}
	if e.values == (PieceValues{}) {
		e.values = DefaultPieceValues()
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.seed == 0 {
		e.seed = rand.Int63()
	}

	if opts.AcceleratedMoveGen {
		gen, err := gpu.NewMoveGenerator(opts.GPU)
		if err != nil {
			return nil, fmt.Errorf("failed to create move generator: %w", err)
		}
		e.moveGen = gen
		e.log.Info().Msg("accelerated move generation enabled")
	}

	if e.cfg.UseGPUSimulation {
		e.initBatchSimulator()
	}

	return e, nil
}

// initBatchSimulator tries to attach a batch simulator. Failure leaves the
// engine on CPU rollouts. Callers must hold e.mu or own e exclusively.
func (e *Engine) initBatchSimulator() {
	if e.batchSim != nil {
		return
	}
	if e.gpu == nil {
		e.log.Debug().Msg("no compute context, rollouts run on CPU")
		return
	}
	sim, err := gpu.NewBatchSimulator(e.gpu, e.values.table())
	if err != nil {
		e.log.Warn().Err(err).Msg("batch simulation unavailable, falling back to CPU")
		return
	}
	e.batchSim = sim
	e.log.Info().Str("adapter", e.gpu.Info().Name).Msg("batch simulation initialized")
}

func normalizeSearch(cfg SearchConfig) SearchConfig {
	def := DefaultSearchConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.SimulationsPerMove <= 0 {
		cfg.SimulationsPerMove = def.SimulationsPerMove
	}
	if cfg.ExplorationConstant == 0 {
		cfg.ExplorationConstant = def.ExplorationConstant
	}
	if cfg.GPUBatchSize <= 0 {
		cfg.GPUBatchSize = def.GPUBatchSize
	}
	return cfg
}

// SearchConfig returns the current search settings
func (e *Engine) SearchConfig() SearchConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetSearchConfig replaces the search settings. Turning GPU simulation on
// retries batch simulator creation.
func (e *Engine) SetSearchConfig(cfg SearchConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = normalizeSearch(cfg)
	if e.cfg.UseGPUSimulation {
		e.initBatchSimulator()
	}
}

// searchSettings snapshots the settings for one search. The simulator is
// nil unless accelerated simulation is enabled and available.
func (e *Engine) searchSettings() (SearchConfig, *gpu.BatchSimulator) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.cfg.UseGPUSimulation {
		return e.cfg, nil
	}
	return e.cfg, e.batchSim
}

// Values returns the material table
func (e *Engine) Values() PieceValues {
	return e.values
}

// GPUSimulation reports whether rollouts are dispatched to the device
func (e *Engine) GPUSimulation() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.UseGPUSimulation && e.batchSim != nil
}

// Adapter describes the compute device, if the engine has one
func (e *Engine) Adapter() (gpu.AdapterInfo, bool) {
	if e.gpu == nil {
		return gpu.AdapterInfo{}, false
	}
	return e.gpu.Info(), true
}

// Cache returns the engine's position cache
func (e *Engine) Cache() *PositionCache {
	return e.cache
}

// ClearCache drops every cached search result
func (e *Engine) ClearCache() {
	e.cache.Flush()
}

// Evaluate scores board for the side to move using the engine's settings
func (e *Engine) Evaluate(board Board) int {
	return EvaluateBoard(&board, e.values, e.SearchConfig().TwoKingsDraw)
}

// EvaluateBoard returns the material balance from the perspective of the
// side to move. With twoKingsDraw, a board holding only the two Kings is 0.
func EvaluateBoard(board *Board, values PieceValues, twoKingsDraw bool) int {
	if twoKingsDraw {
		if kings, occupied := board.CountKings(); kings == 2 && occupied == 2 {
			return 0
		}
	}

	var white, black int
	for _, p := range board.Squares {
		if p.IsEmpty() {
			continue
		}
		v := values.Of(p.Bottom) + values.Of(p.Top)
		if p.Color == White {
			white += v
		} else {
			black += v
		}
	}

	if board.WhiteToMove {
		return white - black
	}
	return black - white
}
