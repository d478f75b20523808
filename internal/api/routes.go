// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"

	"github.com/efiling-portal/backend/internal/filing"
	"github.com/efiling-portal/backend/internal/logging"
	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var logger = logging.New("api")

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr *session.Manager
	UploadMgr  *upload.Manager
	Gate       *filing.Gate
	Catalog    *models.Catalog
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Catalog CatalogHandler
	Session SessionHandler
	Upload  UploadHandler
	Submit  SubmitHandler
	Stream  StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.SessionMgr, deps.UploadMgr),
		Catalog: NewCatalogHandler(deps.Catalog),
		Session: NewSessionHandler(deps.SessionMgr, deps.Catalog),
		Upload:  NewUploadHandler(deps.SessionMgr, deps.UploadMgr),
		Submit:  NewSubmitHandler(deps.SessionMgr, deps.Gate, deps.Catalog),
		Stream:  NewStreamHandler(deps.SessionMgr, deps.UploadMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/catalog", handlers.Catalog.HandleGetCatalog)

	// Upload sessions
	apiGroup.POST("/sessions", handlers.Session.HandleCreateSession)

	sessionGroup := apiGroup.Group("/sessions/:sessionId")
	sessionGroup.GET("", handlers.Session.HandleGetSession)
	sessionGroup.GET("/msgpack", handlers.Session.HandleGetSessionMsgpack)
	sessionGroup.DELETE("", handlers.Session.HandleCloseSession)
	sessionGroup.PUT("/metadata", handlers.Session.HandleUpdateMetadata)

	// Documents
	sessionGroup.POST("/files", handlers.Upload.HandleUploadFiles)
	sessionGroup.DELETE("/files/:fileId", handlers.Upload.HandleRemoveFile)

	// Live updates
	sessionGroup.GET("/events", handlers.Stream.HandleSessionEvents)
	sessionGroup.GET("/ws", handlers.Stream.HandleSessionWebSocket)

	sessionGroup.POST("/submit", handlers.Submit.HandleSubmit)
}

// MiddlewareConfig carries the server settings the middleware stack needs
type MiddlewareConfig struct {
	RequestLogging   bool
	BodyLimit        string
	EnableCORS       bool
	AllowOrigins     []string
	EnableGzip       bool
	CompressionLevel int
}

// isStream reports whether the request is a long-lived push connection
func isStream(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/events") ||
		strings.HasSuffix(path, "/ws") ||
		c.Request().Header.Get(echo.HeaderAccept) == "text/event-stream"
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.RequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health" || isStream(c)
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableGzip {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.CompressionLevel,
			Skipper: isStream,
		}))
	}

	if cfg.EnableCORS {
		origins := cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
