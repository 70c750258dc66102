package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// session is one websocket connection. Every text message is an
// expression, either raw or as {"id": ..., "expression": ...}; every
// reply is a calculate response.
type session struct {
	server *Server
	conn   *websocket.Conn
	send   chan *calculateResponse
	done   chan struct{} // closed when writePump exits
	key    string
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %v", err)
		return
	}

	sess := &session{
		server: s,
		conn:   conn,
		send:   make(chan *calculateResponse, 64),
		done:   make(chan struct{}),
		key:    clientKey(r),
	}
	websocketSessions.Inc()
	s.log.Debug("websocket session opened for %s", sess.key)

	go sess.writePump()
	sess.readPump()
}

// readPump evaluates incoming messages until the connection closes
func (c *session) readPump() {
	defer func() {
		close(c.send)
		websocketSessions.Dec()
		c.server.log.Debug("websocket session closed for %s", c.key)
	}()

	c.conn.SetReadLimit(consts.MaxWebSocketMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.log.Warn("websocket read error: %v", err)
			}
			return
		}

		req := parseMessage(message)
		var resp *calculateResponse
		if !c.server.limiter.Allow(c.key) {
			rateLimitedTotal.Inc()
			resp = &calculateResponse{
				ID:         req.ID,
				Expression: req.Expression,
				Error:      &errorBody{Class: "request", Kind: "rate_limited", Message: "too many requests"},
			}
		} else {
			resp, _ = c.server.evaluate(req.ID, req.Expression, history.SourceWebSocket)
		}

		select {
		case c.send <- resp:
		case <-c.done:
			return
		}
	}
}

// writePump delivers replies and keeps the connection alive with pings
func (c *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case resp, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(resp); err != nil {
				c.server.log.Warn("websocket write failed: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// parseMessage accepts a JSON request object or a bare expression
func parseMessage(message []byte) calculateRequest {
	var req calculateRequest
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal(message, &req) == nil {
		return req
	}
	return calculateRequest{Expression: string(message)}
}
