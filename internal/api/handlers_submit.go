// handlers_submit.go - Filing submission handler
package api

import (
	"net/http"

	"github.com/efiling-portal/backend/internal/filing"
	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// SubmitHandlerImpl implements the SubmitHandler interface
type SubmitHandlerImpl struct {
	sessionMgr *session.Manager
	gate       *filing.Gate
	catalog    *models.Catalog
}

// NewSubmitHandler creates a new submit handler
func NewSubmitHandler(sessionMgr *session.Manager, gate *filing.Gate, catalog *models.Catalog) SubmitHandler {
	return &SubmitHandlerImpl{
		sessionMgr: sessionMgr,
		gate:       gate,
		catalog:    catalog,
	}
}

// HandleSubmit files the session's documents. The body may carry the case
// metadata; an empty body files under the metadata already stored on the session.
func (h *SubmitHandlerImpl) HandleSubmit(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	var meta models.CaseMetadata
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&meta); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}
	if meta.IsZero() {
		meta = sess.Metadata()
	}
	if err := validateMetadata(h.catalog, meta); err != nil {
		return err
	}

	conf, err := h.gate.Submit(c.Request().Context(), sess, meta)
	if err != nil {
		return submitError(err, sess.ID)
	}
	return c.JSON(http.StatusOK, conf)
}
