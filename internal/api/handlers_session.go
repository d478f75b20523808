// handlers_session.go - Upload session lifecycle and case metadata handlers
package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr *session.Manager
	catalog    *models.Catalog
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionMgr *session.Manager, catalog *models.Catalog) SessionHandler {
	return &SessionHandlerImpl{
		sessionMgr: sessionMgr,
		catalog:    catalog,
	}
}

// lookupSession resolves the :sessionId path parameter
func lookupSession(mgr *session.Manager, c echo.Context) (*session.Session, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId", "")
	}
	sess, ok := mgr.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return sess, nil
}

// HandleCreateSession opens a new upload session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessionMgr.Create()
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			return NewServiceUnavailableError(err.Error())
		}
		return NewInternalError("failed to create session", err)
	}
	return c.JSON(http.StatusCreated, sess.Snapshot())
}

// HandleGetSession returns the current session snapshot
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

// HandleGetSessionMsgpack returns the session snapshot in MessagePack format
func (h *SessionHandlerImpl) HandleGetSessionMsgpack(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	data, err := encodeMsgpack(sess.Snapshot())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// encodeMsgpack encodes v using its json tags so both formats share field names
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleCloseSession closes a session, aborting its in-flight uploads
func (h *SessionHandlerImpl) HandleCloseSession(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessionMgr.Close(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUpdateMetadata stores the case details entered on the form
func (h *SessionHandlerImpl) HandleUpdateMetadata(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	var meta models.CaseMetadata
	if err := c.Bind(&meta); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := validateMetadata(h.catalog, meta); err != nil {
		return err
	}

	if err := sess.SetMetadata(meta); err != nil {
		if errors.Is(err, session.ErrClosed) {
			return NewNotFoundError("session", sess.ID)
		}
		return NewInternalError("failed to update metadata", err)
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}
