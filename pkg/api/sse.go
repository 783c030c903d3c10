package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/pkg/engine"
)

// maxStreamMoves caps the moves parameter of the self-play stream
const maxStreamMoves = 500

// SelfPlaySSE streams an engine-versus-engine game as Server-Sent Events.
// GET /api/selfplay/stream?board=<id>&moves=<n>
//
// Events: "move" per ply, then "result", then "done". Errors are sent as
// an "error" event.
func (h *Handlers) SelfPlaySSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	query := r.URL.Query()
	board := engine.StartingPosition()
	if id := query.Get("board"); id != "" {
		var err error
		if board, err = boardid.BoardFromID(id); err != nil {
			writeSSEError(w, "invalid board: "+err.Error())
			return
		}
	}
	moves := parseIntParam(query.Get("moves"), 20)
	if moves <= 0 || moves > maxStreamMoves {
		moves = maxStreamMoves
	}

	if !h.acquireSearch(w, r) {
		return
	}
	defer h.releaseSearch()

	plies := 0
	final, err := h.engine.SelfPlay(board, moves, func(step engine.SelfPlayStep) bool {
		plies = step.Ply
		writeSSEEvent(w, "move", SelfPlayEvent{
			Ply:        step.Ply,
			Move:       moveToJSON(step.Move),
			Board:      boardid.BoardID(step.Board),
			SideToMove: step.Board.SideToMove().String(),
			Stats:      step.Stats,
		})
		flusher.Flush()
		return r.Context().Err() == nil
	})
	if err != nil {
		writeSSEError(w, "self-play failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", SelfPlayResult{
		Board:    boardid.BoardID(final),
		Plies:    plies,
		GameOver: final.GameOver,
		Winner:   winner(final),
	})
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data any) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
