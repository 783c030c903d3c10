// Package api provides the HTTP, WebSocket and SSE front end for the Arx
// engine.
package api

import (
	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/internal/gpu"
	"github.com/yourusername/arxengine/pkg/engine"
)

// Binary endpoint sizes
const (
	boardSize = boardid.EncodedSize
	moveSize  = 2
)

// ============================================================================
// JSON Types
// ============================================================================

// ErrorResponse is the response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Ready    bool             `json:"ready"`
	GPU      bool             `json:"gpu_simulation"`
	Adapter  *gpu.AdapterInfo `json:"adapter,omitempty"`
	Pool     *PoolStats       `json:"pool,omitempty"`
	Sessions int              `json:"sessions"`
}

// StatsResponse is the response for GET /api/stats.
type StatsResponse struct {
	Search                engine.SearchStatistics `json:"search"`
	AvgMovesPerSimulation float64                 `json:"avg_moves_per_simulation"`
	CacheHitRate          float64                 `json:"cache_hit_rate"`
	CacheEntries          int                     `json:"cache_entries"`
	Config                engine.SearchConfig     `json:"config"`
}

// MoveJSON is a concrete move in text form.
type MoveJSON struct {
	Move    string `json:"move"` // "A3-B4", or "A3^B4" for an unstack
	From    string `json:"from"`
	To      string `json:"to"`
	Unstack bool   `json:"unstack"`
}

// CandidateJSON is a generated candidate.
type CandidateJSON struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Unstackable  bool   `json:"unstackable"`
	ForceUnstack bool   `json:"force_unstack"`
}

// AnalysisJSON is one searched candidate.
type AnalysisJSON struct {
	MoveJSON
	Average     float64 `json:"average"`
	StdDev      float64 `json:"std_dev"`
	Simulations int     `json:"simulations"`
}

// ============================================================================
// WebSocket Payloads
// ============================================================================

// BoardPayload names a position by its board ID. An empty board means the
// session's current position.
type BoardPayload struct {
	Board string `json:"board,omitempty"`
}

// PlayPayload applies a move to a position.
type PlayPayload struct {
	Board string `json:"board,omitempty"`
	Move  string `json:"move"`
}

// GameState is the result of new, play and engine messages.
type GameState struct {
	Session    string    `json:"session"`
	Board      string    `json:"board"`
	SideToMove string    `json:"side_to_move"`
	GameOver   bool      `json:"game_over"`
	LastMove   *MoveJSON `json:"last_move,omitempty"`
	Text       string    `json:"text,omitempty"`
}

// MovesResult is the result of a moves message.
type MovesResult struct {
	Board      string          `json:"board"`
	Candidates []CandidateJSON `json:"candidates"`
	Moves      []MoveJSON      `json:"moves"`
}

// AnalyzeResult is the result of an analyze message.
type AnalyzeResult struct {
	Board    string         `json:"board"`
	Analyses []AnalysisJSON `json:"analyses"`
}

// ============================================================================
// SSE Events
// ============================================================================

// SelfPlayEvent is streamed after each self-play move.
type SelfPlayEvent struct {
	Ply        int                     `json:"ply"`
	Move       MoveJSON                `json:"move"`
	Board      string                  `json:"board"`
	SideToMove string                  `json:"side_to_move"`
	Stats      engine.SearchStatistics `json:"stats"`
}

// SelfPlayResult is the final SSE event.
type SelfPlayResult struct {
	Board    string `json:"board"`
	Plies    int    `json:"plies"`
	GameOver bool   `json:"game_over"`
	Winner   string `json:"winner,omitempty"`
}

// ============================================================================
// Conversions
// ============================================================================

// moveToJSON converts a move to its text form.
func moveToJSON(m engine.Move) MoveJSON {
	return MoveJSON{
		Move:    m.String(),
		From:    m.From.String(),
		To:      m.To.String(),
		Unstack: m.Unstack,
	}
}

func candidatesToJSON(moves []engine.PotentialMove) []CandidateJSON {
	out := make([]CandidateJSON, len(moves))
	for i, m := range moves {
		out[i] = CandidateJSON{
			From:         m.From.String(),
			To:           m.To.String(),
			Unstackable:  m.Unstackable,
			ForceUnstack: m.ForceUnstack,
		}
	}
	return out
}

func movesToJSON(moves []engine.Move) []MoveJSON {
	out := make([]MoveJSON, len(moves))
	for i, m := range moves {
		out[i] = moveToJSON(m)
	}
	return out
}

func analysesToJSON(analyses []engine.MoveAnalysis) []AnalysisJSON {
	out := make([]AnalysisJSON, len(analyses))
	for i, a := range analyses {
		out[i] = AnalysisJSON{
			MoveJSON:    moveToJSON(a.Move),
			Average:     a.Average,
			StdDev:      a.StdDev,
			Simulations: a.Simulations,
		}
	}
	return out
}

// winner returns the side that captured the King on a finished board.
func winner(b engine.Board) string {
	if !b.GameOver {
		return ""
	}
	// the side to move has lost its King
	return b.SideToMove().Opponent().String()
}
