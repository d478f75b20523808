package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/efiling-portal/backend/internal/api"
	"github.com/efiling-portal/backend/internal/catalog"
	"github.com/efiling-portal/backend/internal/config"
	"github.com/efiling-portal/backend/internal/filing"
	"github.com/efiling-portal/backend/internal/intake"
	"github.com/efiling-portal/backend/internal/logging"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/storage"
	"github.com/efiling-portal/backend/internal/transfer"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/efiling-portal/backend/internal/web"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var logger = logging.New("server")

func main() {
	if err := run(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	if err := config.LoadDotEnv(exeDir); err != nil {
		logger.Warnf("%v", err)
	}

	// Load XML configuration
	configPath := filepath.Join(exeDir, "FilingPortal.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.SetLevel(cfg.Advanced.LogLevel)
	api.SetExposeErrorDetails(cfg.Advanced.ExposeErrorDetails)

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second signal during shutdown kills the process.
	context.AfterFunc(ctx, stop)

	courts, err := catalog.Load(cfg.Storage.CatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}

	sessionMgr := session.NewManager(cfg.Upload.MaxSessions)
	uploadMgr := upload.NewManager(upload.Options{
		Transport:       transport,
		Validator:       intake.NewValidator(cfg.GetAllowedTypes(), cfg.Intake.MaxFileSizeBytes),
		SettleDelay:     cfg.SettleDelay(),
		TransferTimeout: cfg.TransferTimeout(),
	})
	gate := filing.NewGate(cfg.SubmitLatency())

	e := echo.New()
	e.HideBanner = true
	e.Logger = logging.New("echo")

	api.SetupMiddleware(e, api.MiddlewareConfig{
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		BodyLimit:        cfg.Server.BodyLimit,
		EnableCORS:       cfg.Server.EnableCORS,
		AllowOrigins:     cfg.GetAllowOrigins(),
		EnableGzip:       cfg.Server.EnableCompression,
		CompressionLevel: cfg.Server.CompressionLevel,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		SessionMgr: sessionMgr,
		UploadMgr:  uploadMgr,
		Gate:       gate,
		Catalog:    courts,
		Version:    Version,
	}))

	// Register embedded frontend if available
	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warnf("failed to register static routes: %v", err)
		} else {
			logger.Info("Serving embedded frontend from binary")
		}
	}

	s := &http.Server{
		Addr:        cfg.GetServerAddr(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// Streams stay open; WriteTimeout 0 keeps them alive
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, transport.Name(), embeddedMode)

	return serve(ctx, e, s, sessionMgr, uploadMgr, lifecycle{
		cleanupInterval: cfg.CleanupInterval(),
		sessionTimeout:  cfg.SessionTimeout(),
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	})
}

// lifecycle holds the timings serve needs
type lifecycle struct {
	cleanupInterval time.Duration
	sessionTimeout  time.Duration
	shutdownTimeout time.Duration
}

// serve runs the HTTP server and the idle-session cleanup loop until ctx is done,
// then closes every session and drains the server and the upload goroutines.
func serve(ctx context.Context, e *echo.Echo, s *http.Server, sessionMgr *session.Manager, uploadMgr *upload.Manager, lc lifecycle) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runCleanup(gctx, sessionMgr, lc.cleanupInterval, lc.sessionTimeout)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		// Closed sessions end their event streams, so Shutdown is not held open by them.
		sessionMgr.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), lc.shutdownTimeout)
		defer cancel()

		// StartServer does not record s on e, so e.Shutdown would miss it.
		err := s.Shutdown(shutdownCtx)
		uploadMgr.Wait()
		return err
	})

	return g.Wait()
}

// newTransport picks the transfer implementation named in the config
func newTransport(ctx context.Context, cfg *config.AppConfig) (transfer.Transport, error) {
	if cfg.Upload.TransferMode == config.TransferModeSimulated {
		return transfer.NewSimulated(transfer.SimulatedOptions{
			Interval: cfg.ProgressInterval(),
			MinStep:  float64(cfg.Upload.MinProgressStep),
			MaxStep:  float64(cfg.Upload.MaxProgressStep),
		}), nil
	}

	var store storage.Store
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		s3cfg := cfg.Storage.S3
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		store = s3Store
	default:
		localStore, err := storage.NewLocalStore(cfg.GetUploadDir())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		store = localStore
	}
	return transfer.NewStored(store, 0), nil
}

// runCleanup closes idle sessions until ctx is done
func runCleanup(ctx context.Context, sessionMgr *session.Manager, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessionMgr.CleanupOldSessions(maxAge); n > 0 {
				logger.Infof("Cleaned up %d idle session(s)", n)
			}
		}
	}
}

func printBanner(cfg *config.AppConfig, configPath, transport string, embedded bool) {
	mode := "API only"
	if embedded {
		mode = "Embedded frontend"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           e-Filing Portal Backend                         ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("║  Transfer:   %-45s║\n", transport)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
