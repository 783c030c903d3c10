package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`              // "new", "moves", "play", "engine", "analyze", "ping"
	ID      string          `json:"id"`                // Request ID for correlating responses
	Session string          `json:"session,omitempty"` // Game session; empty uses the payload board
	Payload json.RawMessage `json:"payload,omitempty"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string `json:"type"`              // "result", "error", "pong"
	ID      string `json:"id,omitempty"`      // Request ID
	Payload any    `json:"payload,omitempty"` // Response data
	Error   string `json:"error,omitempty"`   // Error message if any
	Code    string `json:"code,omitempty"`
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
	sessions []string // Sessions opened on this connection
}

// WebSocket handles GET /api/ws. Each connection may open game sessions
// that live until it disconnects.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket connected")

	client := &WSClient{conn: conn, handlers: h, sendChan: make(chan WSResponse, 256)}
	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		for _, id := range c.sessions {
			c.handlers.sessions.Delete(id)
		}
		close(c.sendChan)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "new":
		c.handleNew(msg)
	case "moves":
		c.handleMoves(msg)
	case "play":
		c.handlePlay(msg)
	case "engine":
		c.handleEngine(msg)
	case "analyze":
		c.handleAnalyze(msg)
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type", Code: "UNKNOWN_TYPE"}
	}
}

func (c *WSClient) sendError(msg WSMessage, err error) {
	_, code := errorStatus(err)
	c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error(), Code: code}
}

func (c *WSClient) sendResult(msg WSMessage, payload any) {
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: payload}
}

// board resolves the position for a message: an explicit board ID wins,
// then the session's position
func (c *WSClient) board(msg WSMessage, id string) (engine.Board, error) {
	if id != "" {
		return boardid.BoardFromID(id)
	}
	if msg.Session == "" {
		return engine.StartingPosition(), nil
	}
	sess, err := c.handlers.sessions.Get(msg.Session)
	if err != nil {
		return engine.Board{}, err
	}
	return sess.Board, nil
}

// commit stores board in the message's session, if any
func (c *WSClient) commit(msg WSMessage, board engine.Board) error {
	if msg.Session == "" {
		return nil
	}
	return c.handlers.sessions.Update(msg.Session, board)
}

func gameState(session string, board engine.Board, last *engine.Move) GameState {
	gs := GameState{
		Session:    session,
		Board:      boardid.BoardID(board),
		SideToMove: board.SideToMove().String(),
		GameOver:   board.GameOver,
		Text:       board.String(),
	}
	if last != nil {
		m := moveToJSON(*last)
		gs.LastMove = &m
	}
	return gs
}

func (c *WSClient) handleNew(msg WSMessage) {
	sess := c.handlers.sessions.New()
	c.sessions = append(c.sessions, sess.ID)
	c.sendResult(msg, gameState(sess.ID, sess.Board, nil))
}

func (c *WSClient) handleMoves(msg WSMessage) {
	var req BoardPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
			return
		}
	}
	board, err := c.board(msg, req.Board)
	if err != nil {
		c.sendError(msg, err)
		return
	}
	c.sendResult(msg, MovesResult{
		Board:      boardid.BoardID(board),
		Candidates: candidatesToJSON(engine.GenerateMoves(board)),
		Moves:      movesToJSON(engine.LegalMoves(board)),
	})
}

func (c *WSClient) handlePlay(msg WSMessage) {
	var req PlayPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
		return
	}
	m, err := boardid.ParseMove(req.Move)
	if err != nil {
		c.sendError(msg, err)
		return
	}
	board, err := c.board(msg, req.Board)
	if err != nil {
		c.sendError(msg, err)
		return
	}
	next, err := engine.PlayMove(board, m)
	if err != nil {
		c.sendError(msg, err)
		return
	}
	if err := c.commit(msg, next); err != nil {
		c.sendError(msg, err)
		return
	}
	c.sendResult(msg, gameState(msg.Session, next, &m))
}

func (c *WSClient) handleEngine(msg WSMessage) {
	var req BoardPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
			return
		}
	}
	board, err := c.board(msg, req.Board)
	if err != nil {
		c.sendError(msg, err)
		return
	}

	h := c.handlers
	if h.pool != nil && !h.pool.TryAcquireSearch() {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "server busy", Code: "SERVER_BUSY"}
		return
	}
	m, err := h.engine.FindBestMove(board)
	if h.pool != nil {
		h.pool.ReleaseSearch()
	}
	if err != nil {
		c.sendError(msg, err)
		return
	}

	next, err := engine.ApplyMove(board, m)
	if err != nil {
		c.sendError(msg, err)
		return
	}
	if err := c.commit(msg, next); err != nil {
		c.sendError(msg, err)
		return
	}
	c.sendResult(msg, gameState(msg.Session, next, &m))
}

func (c *WSClient) handleAnalyze(msg WSMessage) {
	var req BoardPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
			return
		}
	}
	board, err := c.board(msg, req.Board)
	if err != nil {
		c.sendError(msg, err)
		return
	}

	h := c.handlers
	if h.pool != nil && !h.pool.TryAcquireSearch() {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "server busy", Code: "SERVER_BUSY"}
		return
	}
	analyses, err := h.engine.Analyze(board)
	if h.pool != nil {
		h.pool.ReleaseSearch()
	}
	if err != nil {
		c.sendError(msg, err)
		return
	}
	c.sendResult(msg, AnalyzeResult{Board: boardid.BoardID(board), Analyses: analysesToJSON(analyses)})
}
