package server

import (
	"bytes"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
	"github.com/ayusman/reptrack/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
)

// Message types sent to WebSocket clients.
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
	MessageStopped  = "stopped"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by Cors
	},
}

// StreamMessage is one server-to-client WebSocket message.
type StreamMessage struct {
	Type     string             `json:"type"`
	Snapshot *repcount.Snapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// SessionStreamHandler feeds poses received over a WebSocket into a session
// and pushes every resulting snapshot back. Snapshots produced by other
// feeders of the same session, such as the camera pipeline, are pushed too.
type SessionStreamHandler struct {
	sessions *session.Manager
}

// NewSessionStreamHandler creates a new SessionStreamHandler.
func NewSessionStreamHandler(sessions *session.Manager) *SessionStreamHandler {
	return &SessionStreamHandler{sessions: sessions}
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg StreamMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) control(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// ServeHTTP handles WebSocket upgrade requests for one session.
func (h *SessionStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !s.Active() {
		writeError(w, http.StatusConflict, session.ErrSessionStopped.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade error: %v", err)
		return
	}
	c := &wsConn{conn: conn}

	updates, cancel := s.Subscribe()
	defer cancel()

	readDone := make(chan struct{})
	defer func() {
		conn.Close()
		<-readDone
	}()
	go func() {
		defer close(readDone)
		h.readPoses(c, s)
	}()

	log.WithField("session", s.ID()).Debug("websocket client connected")

	initial := s.Snapshot()
	if err := c.send(StreamMessage{Type: MessageSnapshot, Snapshot: &initial}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = c.send(StreamMessage{Type: MessageStopped})
				_ = c.control(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session stopped"))
				return
			}
			if err := c.send(StreamMessage{Type: MessageSnapshot, Snapshot: &snap}); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.control(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

// readPoses decodes one pose per text message. A "null" message is a frame
// with nobody in view.
func (h *SessionStreamHandler) readPoses(c *wsConn, s *session.Session) {
	conn := c.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("websocket read: %v", err)
			}
			return
		}

		p, err := decodeFrame(data)
		if err != nil {
			if c.send(StreamMessage{Type: MessageError, Error: err.Error()}) != nil {
				return
			}
			continue
		}

		if _, err := s.Feed(p); err != nil {
			_ = c.send(StreamMessage{Type: MessageError, Error: err.Error()})
			if errors.Is(err, session.ErrSessionStopped) {
				return
			}
		}
	}
}

func decodeFrame(data []byte) (*pose.Pose, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	return pose.Decode(data)
}
