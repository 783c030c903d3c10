package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/pkg/engine"
)

// maxBodySize caps binary request bodies
const maxBodySize = 1024

// Handlers holds the HTTP handlers and engine reference.
type Handlers struct {
	engine   *engine.Engine
	version  string
	pool     *WorkerPool
	sessions *SessionStore
	log      zerolog.Logger
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(e *engine.Engine, version string, logger zerolog.Logger) *Handlers {
	return NewHandlersWithPool(e, version, nil, logger)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(e *engine.Engine, version string, pool *WorkerPool, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:   e,
		version:  version,
		pool:     pool,
		sessions: NewSessionStore(),
		log:      logger.With().Str("component", "api").Logger(),
	}
}

// Sessions returns the WebSocket session store.
func (h *Handlers) Sessions() *SessionStore {
	return h.sessions
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeBinary writes an octet-stream response.
func writeBinary(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// errorStatus maps engine and codec errors to an HTTP status and code.
func errorStatus(err error) (int, string) {
	var encErr *boardid.EncodingError
	var moveErr *engine.MoveError
	switch {
	case errors.As(err, &encErr), errors.Is(err, boardid.ErrBadLength), errors.Is(err, boardid.ErrInvalidBoardID):
		return http.StatusBadRequest, "INVALID_BOARD"
	case errors.Is(err, boardid.ErrInvalidMoveEncoding), errors.Is(err, boardid.ErrInvalidMoveNotation):
		return http.StatusBadRequest, "INVALID_MOVE"
	case errors.As(err, &moveErr):
		return http.StatusBadRequest, "ILLEGAL_MOVE"
	case errors.Is(err, engine.ErrNoLegalMoves):
		return http.StatusUnprocessableEntity, "NO_LEGAL_MOVES"
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	ev := h.log.Debug()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error(), code)
}

// readBody reads a bounded request body.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", boardid.ErrBadLength, maxBodySize)
	}
	return data, nil
}

// readBoard reads a request body holding exactly one encoded board.
func readBoard(r *http.Request) (engine.Board, error) {
	data, err := readBody(r)
	if err != nil {
		return engine.Board{}, err
	}
	return boardid.DecodeBytes(data)
}

func (h *Handlers) acquireRules(w http.ResponseWriter, r *http.Request) bool {
	if h.pool == nil {
		return true
	}
	if err := h.pool.AcquireRules(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
		return false
	}
	return true
}

func (h *Handlers) releaseRules() {
	if h.pool != nil {
		h.pool.ReleaseRules()
	}
}

func (h *Handlers) acquireSearch(w http.ResponseWriter, r *http.Request) bool {
	if h.pool == nil {
		return true
	}
	if err := h.pool.AcquireSearch(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
		return false
	}
	return true
}

func (h *Handlers) releaseSearch() {
	if h.pool != nil {
		h.pool.ReleaseSearch()
	}
}

// NewGame handles GET /new. The response is the 82-byte initial board.
func (h *Handlers) NewGame(w http.ResponseWriter, r *http.Request) {
	data := boardid.Encode(engine.StartingPosition())
	writeBinary(w, data[:])
}

// Moves handles POST /moves. The body is an 82-byte board; the response is
// the candidate list, 2 little-endian bytes per candidate.
func (h *Handlers) Moves(w http.ResponseWriter, r *http.Request) {
	if !h.acquireRules(w, r) {
		return
	}
	defer h.releaseRules()

	board, err := readBoard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	candidates := engine.GenerateMoves(board)
	writeBinary(w, boardid.AppendPotentialMoves(make([]byte, 0, len(candidates)*moveSize), candidates))
}

// Play handles POST /play. The body is an 82-byte board followed by a
// 2-byte move; trailing bytes are ignored. The response is the new board.
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	if !h.acquireRules(w, r) {
		return
	}
	defer h.releaseRules()

	data, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(data) < boardSize+moveSize {
		h.fail(w, r, fmt.Errorf("%w: play needs at least %d bytes, got %d", boardid.ErrBadLength, boardSize+moveSize, len(data)))
		return
	}
	board, err := boardid.DecodeBytes(data[:boardSize])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := boardid.ReadMove(data[boardSize : boardSize+moveSize])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next, err := engine.PlayMove(board, m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := boardid.Encode(next)
	writeBinary(w, out[:])
}

// EngineMove handles POST /engine-move. The body is an 82-byte board; the
// response is the engine's 2-byte move.
func (h *Handlers) EngineMove(w http.ResponseWriter, r *http.Request) {
	if !h.acquireSearch(w, r) {
		return
	}
	defer h.releaseSearch()

	board, err := readBoard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.engine.FindBestMove(board)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Debug().Str("move", m.String()).Uint64("moves_evaluated", h.engine.Statistics().LastSearchMoves).Msg("engine move")
	writeBinary(w, boardid.AppendMove(make([]byte, 0, moveSize), m))
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Ready:    h.engine != nil,
		Sessions: h.sessions.Len(),
	}
	if h.engine != nil {
		resp.GPU = h.engine.GPUSimulation()
		if info, ok := h.engine.Adapter(); ok {
			resp.Adapter = &info
		}
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Statistics()
	writeJSON(w, http.StatusOK, StatsResponse{
		Search:                stats,
		AvgMovesPerSimulation: stats.AvgMovesPerSimulation(),
		CacheHitRate:          stats.CacheHitRate(),
		CacheEntries:          h.engine.Cache().Len(),
		Config:                h.engine.SearchConfig(),
	})
}

// ClearCache handles DELETE /api/cache
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	n := h.engine.Cache().Len()
	h.engine.ClearCache()
	h.log.Info().Int("entries", n).Msg("position cache cleared")
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// Analyze handles GET /api/analyze?board=<id>
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	if !h.acquireSearch(w, r) {
		return
	}
	defer h.releaseSearch()

	id := r.URL.Query().Get("board")
	board := engine.StartingPosition()
	if id != "" {
		var err error
		if board, err = boardid.BoardFromID(id); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	analyses, err := h.engine.Analyze(board)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResult{Board: boardid.BoardID(board), Analyses: analysesToJSON(analyses)})
}
