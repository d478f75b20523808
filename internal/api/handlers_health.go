// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	sessionMgr *session.Manager
	uploadMgr  *upload.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessionMgr *session.Manager, uploadMgr *upload.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		sessionMgr: sessionMgr,
		uploadMgr:  uploadMgr,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.sessionMgr != nil {
		resp["sessions"] = h.sessionMgr.Count()
	}
	if h.uploadMgr != nil {
		resp["transport"] = h.uploadMgr.TransportName()
	}
	return c.JSON(http.StatusOK, resp)
}
