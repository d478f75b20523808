// handlers_stream.go - Server-sent snapshot stream
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// DefaultHeartbeat keeps idle streams open through proxies
const DefaultHeartbeat = 15 * time.Second

// StreamHandlerImpl implements the StreamHandler interface
type StreamHandlerImpl struct {
	sessionMgr *session.Manager
	uploadMgr  *upload.Manager
	upgrader   websocket.Upgrader
	heartbeat  time.Duration
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(sessionMgr *session.Manager, uploadMgr *upload.Manager) StreamHandler {
	return &StreamHandlerImpl{
		sessionMgr: sessionMgr,
		uploadMgr:  uploadMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// CORS middleware already restricts browser origins
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		heartbeat: DefaultHeartbeat,
	}
}

// HandleSessionEvents streams a snapshot on every session change via SSE.
// The stream ends with a "closed" event when the session is closed.
func (h *StreamHandlerImpl) HandleSessionEvents(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		snap, changed := sess.Watch()
		if sess.Closed() {
			_ = h.sendSSEEvent(c, "closed", snap.Version, map[string]string{"id": sess.ID})
			return nil
		}
		if err := h.sendSSEEvent(c, "snapshot", snap.Version, snap); err != nil {
			return nil
		}

		if !h.awaitChange(c, changed, heartbeat.C) {
			return nil
		}
	}
}

// awaitChange blocks until the session changes, writing keep-alive comments
// meanwhile. It returns false once the client is gone.
func (h *StreamHandlerImpl) awaitChange(c echo.Context, changed <-chan struct{}, beat <-chan time.Time) bool {
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-changed:
			return true
		case <-beat:
			if _, err := fmt.Fprint(c.Response(), ": keep-alive\n\n"); err != nil {
				return false
			}
			c.Response().Flush()
		}
	}
}

// sendSSEEvent writes one named SSE event with a JSON payload
func (h *StreamHandlerImpl) sendSSEEvent(c echo.Context, event string, id uint64, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "id: %d\nevent: %s\ndata: %s\n\n", id, event, payload); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
