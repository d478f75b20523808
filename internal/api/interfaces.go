// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CatalogHandler serves the court stations and document types
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
}

// SessionHandler handles upload session lifecycle and case metadata
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleGetSessionMsgpack(c echo.Context) error
	HandleCloseSession(c echo.Context) error
	HandleUpdateMetadata(c echo.Context) error
}

// UploadHandler handles document intake and removal
type UploadHandler interface {
	HandleUploadFiles(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
}

// SubmitHandler handles the filing submission
type SubmitHandler interface {
	HandleSubmit(c echo.Context) error
}

// StreamHandler pushes session snapshots to the browser
type StreamHandler interface {
	HandleSessionEvents(c echo.Context) error
	HandleSessionWebSocket(c echo.Context) error
}
