package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/efiling-portal/backend/internal/logging"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the session protocol
const (
	// Client -> Server messages
	MsgTypePing   = "ping"
	MsgTypeRemove = "file:remove"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSnapshot  = "snapshot"
	MsgTypeRemoved   = "file:removed"
	MsgTypeClosed    = "closed"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const wsWriteWait = 10 * time.Second

// WSMessage is the envelope for every websocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// RemovePayload asks the server to drop a document from the session
type RemovePayload struct {
	FileID string `json:"fileId"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) send(msg WSMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg.Timestamp = time.Now().UnixMilli()
	_ = w.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.ws.WriteJSON(msg)
}

func (w *wsConn) sendError(id, message, code string) {
	if err := w.send(WSMessage{
		Type:    MsgTypeError,
		ID:      id,
		Payload: mustJSON(WSErrorResponse{Message: message, Code: code}),
	}); err != nil {
		logger.Debugf("[WebSocket] Failed to send error: %v", err)
	}
}

// HandleSessionWebSocket upgrades to a websocket that pushes a snapshot on every
// session change and accepts ping and file removal messages.
func (h *StreamHandlerImpl) HandleSessionWebSocket(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	tag := logging.ShortID(sess.ID)
	logger.Infof("[WebSocket %s] Client connected", tag)
	defer logger.Infof("[WebSocket %s] Client disconnected", tag)

	conn := &wsConn{ws: ws}
	if err := conn.send(WSMessage{Type: MsgTypeConnected, ID: sess.ID}); err != nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(conn, sess)
	}()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		snap, changed := sess.Watch()
		if sess.Closed() {
			_ = conn.send(WSMessage{Type: MsgTypeClosed, ID: sess.ID})
			return nil
		}
		if err := conn.send(WSMessage{Type: MsgTypeSnapshot, ID: sess.ID, Payload: mustJSON(snap)}); err != nil {
			return nil
		}

		select {
		case <-done:
			return nil
		case <-changed:
		case <-heartbeat.C:
			conn.mu.Lock()
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			conn.mu.Unlock()
			if err != nil {
				return nil
			}
		}
	}
}

// readLoop handles client messages until the connection drops
func (h *StreamHandlerImpl) readLoop(conn *wsConn, sess *session.Session) {
	tag := logging.ShortID(sess.ID)
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("[WebSocket %s] Connection error: %v", tag, err)
			}
			return
		}

		switch msg.Type {
		case MsgTypePing:
			_ = conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeRemove:
			var payload RemovePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.FileID == "" {
				conn.sendError(msg.ID, "Invalid remove payload", "INVALID_PAYLOAD")
				continue
			}
			if !h.uploadMgr.Remove(sess, payload.FileID) {
				conn.sendError(msg.ID, "File not found: "+payload.FileID, "NOT_FOUND")
				continue
			}
			_ = conn.send(WSMessage{Type: MsgTypeRemoved, ID: msg.ID, Payload: mustJSON(payload)})
		default:
			conn.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
