package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"bistro/internal/agents"
	"bistro/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 64 * 1024
)

// WebSocket event types
const (
	EventGreeting = "greeting"
	EventReply    = "reply"
	EventError    = "error"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is what the server pushes over the websocket
type Event struct {
	Type    string        `json:"type"`
	Message string        `json:"message,omitempty"`
	Reply   *agents.Reply `json:"reply,omitempty"`
}

// chatConn streams one session over a websocket
type chatConn struct {
	conn    *websocket.Conn
	send    chan Event
	session *session.Session
	logger  *zap.Logger
}

// handleWebSocket upgrades the request and chats until the client goes away
func (s *Server) handleWebSocket(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	cc := &chatConn{
		conn:    conn,
		send:    make(chan Event, 16),
		session: sess,
		logger:  s.logger.With(zap.String("session_id", sess.ID)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		cc.writePump()
	}()

	var greeting string
	_ = sess.Do(func(coord *agents.Coordinator) error {
		greeting = coord.Greeting()
		return nil
	})
	cc.send <- Event{Type: EventGreeting, Message: greeting}

	cc.readPump(ctx, done)
	close(cc.send)
	<-done
}

// readPump handles customer messages until the connection closes
func (c *chatConn) readPump(ctx context.Context, done <-chan struct{}) {
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		select {
		case c.send <- c.handleMessage(ctx, data):
		case <-done:
			return
		}
	}
}

// handleMessage accepts either {"message": "..."} or plain text
func (c *chatConn) handleMessage(ctx context.Context, data []byte) Event {
	text := string(data)
	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "{") {
		var req MessageRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return Event{Type: EventError, Message: "invalid message: " + err.Error()}
		}
		text = req.Message
	}

	var reply *agents.Reply
	err := c.session.Do(func(coord *agents.Coordinator) error {
		var err error
		reply, err = coord.ProcessInput(ctx, text)
		return err
	})
	if err != nil {
		c.logger.Error("failed to process message", zap.Error(err))
		return Event{Type: EventError, Message: err.Error()}
	}
	return Event{Type: EventReply, Reply: reply}
}

// writePump pushes events and keeps the connection alive with pings
func (c *chatConn) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
