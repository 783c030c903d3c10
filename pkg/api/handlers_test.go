package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/pkg/engine"
)

// getTestEngine returns a CPU engine with a tiny deterministic search
func getTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	logger := zerolog.Nop()
	opts := engine.DefaultEngineOptions()
	opts.Search.MaxDepth = 2
	opts.Search.SimulationsPerMove = 2
	opts.Search.UseGPUSimulation = false
	opts.Workers = 2
	opts.Seed = 7
	opts.Logger = &logger
	eng, err := engine.NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func testHandlers(t *testing.T) *Handlers {
	t.Helper()
	return NewHandlers(getTestEngine(t), "1.0.0", zerolog.Nop())
}

func encodeBoard(b engine.Board) []byte {
	data := boardid.Encode(b)
	return data[:]
}

func parseMove(t *testing.T, s string) engine.Move {
	t.Helper()
	m, err := boardid.ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

// loneKingBoard has White to move with no White pieces
func loneKingBoard() engine.Board {
	b := engine.Board{WhiteToMove: true}
	b.Set(boardid.Pos(4, 0), boardid.Single(engine.Black, engine.King))
	return b
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode error response: %v", err)
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	h := NewHandlers(nil, "test-version", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health status = %d, want %d", w.Code, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Status = %q, want %q", health.Status, "ok")
	}
	if health.Version != "test-version" {
		t.Errorf("Version = %q, want %q", health.Version, "test-version")
	}
	if health.Ready {
		t.Error("Expected ready = false without an engine")
	}
}

func TestHealthHandlerReady(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{})
	h := NewHandlersWithPool(getTestEngine(t), "1.0.0", pool, zerolog.Nop())

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !health.Ready {
		t.Error("Expected ready = true when engine is set")
	}
	if health.GPU {
		t.Error("Expected GPU simulation off for a CPU engine")
	}
	if health.Pool == nil || health.Pool.MaxSearch != 4 {
		t.Errorf("Pool stats = %+v, want MaxSearch 4", health.Pool)
	}
}

func TestNewGameHandler(t *testing.T) {
	h := testHandlers(t)

	w := httptest.NewRecorder()
	h.NewGame(w, httptest.NewRequest(http.MethodGet, "/new", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), encodeBoard(engine.StartingPosition())) {
		t.Error("body is not the encoded starting position")
	}
}

func TestMovesHandler(t *testing.T) {
	h := testHandlers(t)

	tests := []struct {
		name       string
		body       []byte
		wantStatus int
		wantLen    int
		wantCode   string
	}{
		{"starting position", encodeBoard(engine.StartingPosition()), http.StatusOK, 53 * 2, ""},
		{"short body", make([]byte, 81), http.StatusBadRequest, 0, "INVALID_BOARD"},
		{"long body", make([]byte, 83), http.StatusBadRequest, 0, "INVALID_BOARD"},
		{"bad square byte", append(bytes.Repeat([]byte{0xFF}, 81), 1), http.StatusBadRequest, 0, "INVALID_BOARD"},
		{"no pieces", encodeBoard(loneKingBoard()), http.StatusOK, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Moves(w, httptest.NewRequest(http.MethodPost, "/moves", bytes.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if resp := decodeError(t, w); resp.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
				}
				return
			}
			if w.Body.Len() != tt.wantLen {
				t.Errorf("body length = %d, want %d", w.Body.Len(), tt.wantLen)
			}
		})
	}
}

func TestMovesHandlerMatchesGenerator(t *testing.T) {
	h := testHandlers(t)
	board := engine.StartingPosition()

	w := httptest.NewRecorder()
	h.Moves(w, httptest.NewRequest(http.MethodPost, "/moves", bytes.NewReader(encodeBoard(board))))

	got, err := boardid.ReadPotentialMoves(w.Body.Bytes())
	if err != nil {
		t.Fatalf("ReadPotentialMoves: %v", err)
	}
	want := engine.GenerateMoves(board)
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPlayHandler(t *testing.T) {
	h := testHandlers(t)
	start := engine.StartingPosition()

	playBody := func(b engine.Board, m engine.Move, extra ...byte) []byte {
		body := boardid.AppendMove(encodeBoard(b), m)
		return append(body, extra...)
	}

	tests := []struct {
		name       string
		body       []byte
		wantStatus int
		wantCode   string
	}{
		{"legal move", playBody(start, parseMove(t, "A3-B4")), http.StatusOK, ""},
		{"trailing bytes ignored", playBody(start, parseMove(t, "A3-B4"), 0xAA, 0xBB), http.StatusOK, ""},
		{"illegal move", playBody(start, parseMove(t, "E1-E3")), http.StatusBadRequest, "ILLEGAL_MOVE"},
		{"board only", encodeBoard(start), http.StatusBadRequest, "INVALID_BOARD"},
		{"bad move bits", append(encodeBoard(start), 0x7F, 0x3F), http.StatusBadRequest, "INVALID_MOVE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Play(w, httptest.NewRequest(http.MethodPost, "/play", bytes.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if resp := decodeError(t, w); resp.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
				}
				return
			}

			next, err := boardid.DecodeBytes(w.Body.Bytes())
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if next.WhiteToMove {
				t.Error("turn did not pass to Black")
			}
			if !next.At(parseMove(t, "A3-B4").From).IsEmpty() {
				t.Error("A3 still occupied after A3-B4")
			}
		})
	}
}

func TestEngineMoveHandler(t *testing.T) {
	h := testHandlers(t)
	board := engine.StartingPosition()

	w := httptest.NewRecorder()
	h.EngineMove(w, httptest.NewRequest(http.MethodPost, "/engine-move", bytes.NewReader(encodeBoard(board))))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if w.Body.Len() != 2 {
		t.Fatalf("body length = %d, want 2", w.Body.Len())
	}
	m, err := boardid.DecodeMove(binary.LittleEndian.Uint16(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMove: %v", err)
	}
	if _, err := engine.PlayMove(board, m); err != nil {
		t.Errorf("engine move %s is not legal: %v", m, err)
	}
}

func TestEngineMoveNoLegalMoves(t *testing.T) {
	h := testHandlers(t)

	w := httptest.NewRecorder()
	h.EngineMove(w, httptest.NewRequest(http.MethodPost, "/engine-move", bytes.NewReader(encodeBoard(loneKingBoard()))))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if resp := decodeError(t, w); resp.Code != "NO_LEGAL_MOVES" {
		t.Errorf("code = %q, want NO_LEGAL_MOVES", resp.Code)
	}
}

func TestStatsAndClearCache(t *testing.T) {
	h := testHandlers(t)
	board := encodeBoard(engine.StartingPosition())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.EngineMove(w, httptest.NewRequest(http.MethodPost, "/engine-move", bytes.NewReader(board)))
		if w.Code != http.StatusOK {
			t.Fatalf("engine move %d: status %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.Stats(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Decode stats: %v", err)
	}
	if stats.Search.CacheHits != 1 || stats.Search.CacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", stats.Search.CacheHits, stats.Search.CacheMisses)
	}
	if stats.CacheHitRate != 50 {
		t.Errorf("CacheHitRate = %v, want 50", stats.CacheHitRate)
	}
	if stats.CacheEntries != 1 {
		t.Errorf("CacheEntries = %d, want 1", stats.CacheEntries)
	}

	w = httptest.NewRecorder()
	h.ClearCache(w, httptest.NewRequest(http.MethodDelete, "/api/cache", nil))
	var cleared map[string]int
	if err := json.NewDecoder(w.Body).Decode(&cleared); err != nil {
		t.Fatalf("Decode clear: %v", err)
	}
	if cleared["cleared"] != 1 {
		t.Errorf("cleared = %d, want 1", cleared["cleared"])
	}
	if n := h.engine.Cache().Len(); n != 0 {
		t.Errorf("cache holds %d entries after clear", n)
	}
}

func TestAnalyzeHandler(t *testing.T) {
	h := testHandlers(t)
	board := engine.StartingPosition()

	target := "/api/analyze?board=" + url.QueryEscape(boardid.BoardID(board))
	w := httptest.NewRecorder()
	h.Analyze(w, httptest.NewRequest(http.MethodGet, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var result AnalyzeResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(result.Analyses) != 53 {
		t.Errorf("got %d analyses, want 53", len(result.Analyses))
	}
	for _, a := range result.Analyses {
		if a.Simulations != 2 {
			t.Errorf("%s ran %d simulations, want 2", a.Move, a.Simulations)
		}
	}

	w = httptest.NewRecorder()
	h.Analyze(w, httptest.NewRequest(http.MethodGet, "/api/analyze?board=not-base64", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad board status = %d, want 400", w.Code)
	}
}

func TestSelfPlaySSE(t *testing.T) {
	h := testHandlers(t)

	w := httptest.NewRecorder()
	h.SelfPlaySSE(w, httptest.NewRequest(http.MethodGet, "/api/selfplay/stream?moves=2", nil))

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if n := strings.Count(body, "event: move\n"); n != 2 {
		t.Errorf("got %d move events, want 2", n)
	}
	if !strings.Contains(body, "event: result\n") {
		t.Error("missing result event")
	}
	if !strings.HasSuffix(body, "event: done\n\n") {
		t.Error("stream does not end with done")
	}
	if strings.Contains(body, "event: error") {
		t.Errorf("unexpected error event: %s", body)
	}
}

func TestSelfPlaySSEBadBoard(t *testing.T) {
	h := testHandlers(t)

	w := httptest.NewRecorder()
	h.SelfPlaySSE(w, httptest.NewRequest(http.MethodGet, "/api/selfplay/stream?board=AAAA", nil))

	if !strings.Contains(w.Body.String(), "event: error") {
		t.Error("expected an error event")
	}
}

func TestServerRoutes(t *testing.T) {
	srv := NewServer(getTestEngine(t), DefaultConfig(), "1.0.0", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/new")
	if err != nil {
		t.Fatalf("GET /new: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /new = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	resp, err = http.Post(ts.URL+"/new", "application/octet-stream", nil)
	if err != nil {
		t.Fatalf("POST /new: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /new = %d, want 405", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/health = %d", resp.StatusCode)
	}
}

// wsReply mirrors WSResponse with a raw payload
type wsReply struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func wsRoundTrip(t *testing.T, conn *websocket.Conn, msg any) wsReply {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return reply
}

func TestWebSocketSession(t *testing.T) {
	srv := NewServer(getTestEngine(t), DefaultConfig(), "1.0.0", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	reply := wsRoundTrip(t, conn, WSMessage{Type: "ping", ID: "p"})
	if reply.Type != "pong" || reply.ID != "p" {
		t.Errorf("ping reply = %+v", reply)
	}

	reply = wsRoundTrip(t, conn, WSMessage{Type: "new", ID: "1"})
	if reply.Type != "result" {
		t.Fatalf("new reply = %+v", reply)
	}
	var state GameState
	if err := json.Unmarshal(reply.Payload, &state); err != nil {
		t.Fatalf("Unmarshal new: %v", err)
	}
	if state.Session == "" || state.SideToMove != "White" {
		t.Fatalf("new state = %+v", state)
	}
	if srv.Handlers().Sessions().Len() != 1 {
		t.Errorf("sessions = %d, want 1", srv.Handlers().Sessions().Len())
	}

	reply = wsRoundTrip(t, conn, WSMessage{
		Type:    "play",
		ID:      "2",
		Session: state.Session,
		Payload: json.RawMessage(`{"move":"A3-B4"}`),
	})
	if reply.Type != "result" {
		t.Fatalf("play reply = %+v", reply)
	}
	if err := json.Unmarshal(reply.Payload, &state); err != nil {
		t.Fatalf("Unmarshal play: %v", err)
	}
	if state.SideToMove != "Black" || state.LastMove == nil || state.LastMove.Move != "A3-B4" {
		t.Errorf("play state = %+v", state)
	}

	sess, err := srv.Handlers().Sessions().Get(state.Session)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if sess.Board.WhiteToMove {
		t.Error("session board was not updated")
	}

	reply = wsRoundTrip(t, conn, WSMessage{Type: "moves", ID: "3", Session: state.Session})
	var moves MovesResult
	if err := json.Unmarshal(reply.Payload, &moves); err != nil {
		t.Fatalf("Unmarshal moves: %v", err)
	}
	if len(moves.Moves) != 53 {
		t.Errorf("Black has %d moves, want 53", len(moves.Moves))
	}

	reply = wsRoundTrip(t, conn, WSMessage{Type: "engine", ID: "4", Session: state.Session})
	if reply.Type != "result" {
		t.Fatalf("engine reply = %+v", reply)
	}
	if err := json.Unmarshal(reply.Payload, &state); err != nil {
		t.Fatalf("Unmarshal engine: %v", err)
	}
	if state.SideToMove != "White" || state.LastMove == nil {
		t.Errorf("engine state = %+v", state)
	}

	reply = wsRoundTrip(t, conn, WSMessage{
		Type:    "play",
		ID:      "5",
		Session: state.Session,
		Payload: json.RawMessage(`{"move":"E1-E3"}`),
	})
	if reply.Type != "error" || reply.Code != "ILLEGAL_MOVE" {
		t.Errorf("illegal play reply = %+v", reply)
	}

	reply = wsRoundTrip(t, conn, WSMessage{Type: "moves", ID: "6", Session: "missing"})
	if reply.Code != "SESSION_NOT_FOUND" {
		t.Errorf("missing session reply = %+v", reply)
	}

	reply = wsRoundTrip(t, conn, WSMessage{Type: "bogus", ID: "7"})
	if reply.Code != "UNKNOWN_TYPE" {
		t.Errorf("unknown type reply = %+v", reply)
	}
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()
	sess := s.New()
	if sess.ID == "" {
		t.Fatal("empty session ID")
	}
	if sess.Board != engine.StartingPosition() {
		t.Error("new session does not start from the initial position")
	}

	next, err := engine.PlayMove(sess.Board, parseMove(t, "A3-B4"))
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if err := s.Update(sess.ID, next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Board != next {
		t.Error("Get returned a stale board")
	}

	s.Delete(sess.ID)
	if _, err := s.Get(sess.ID); err != ErrSessionNotFound {
		t.Errorf("Get after Delete = %v, want ErrSessionNotFound", err)
	}
	if err := s.Update(sess.ID, next); err != ErrSessionNotFound {
		t.Errorf("Update after Delete = %v, want ErrSessionNotFound", err)
	}
}
