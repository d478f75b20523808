// Package config provides XML-based configuration management for the filing portal backend.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Transfer modes
const (
	TransferModeSimulated = "simulated"
	TransferModeStore     = "store"
)

// Storage backends
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"FilingPortal"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Upload pipeline timings and limits
	Upload UploadConfig `xml:"Upload"`

	// Intake rules
	Intake IntakeConfig `xml:"Intake"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int    `xml:"Port"`
	BindAddress       string `xml:"BindAddress"`
	EnableCORS        bool   `xml:"EnableCORS"`
	AllowOrigins      string `xml:"AllowOrigins"`
	ReadTimeout       int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout      int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout       int    `xml:"IdleTimeoutSeconds"`
	ShutdownTimeout   int    `xml:"ShutdownTimeoutSeconds"`
	BodyLimit         string `xml:"BodyLimit"`
	EnableCompression bool   `xml:"EnableCompression"`
	CompressionLevel  int    `xml:"CompressionLevel"`
}

// StorageConfig contains document storage settings
type StorageConfig struct {
	Backend          string   `xml:"Backend"`
	DataDirectory    string   `xml:"DataDirectory"`
	UploadsDirectory string   `xml:"UploadsDirectory"`
	CatalogFile      string   `xml:"CatalogFile"`
	S3               S3Config `xml:"S3"`
}

// S3Config contains S3-compatible object storage settings
type S3Config struct {
	Bucket          string `xml:"Bucket"`
	Prefix          string `xml:"Prefix"`
	Region          string `xml:"Region"`
	Endpoint        string `xml:"Endpoint"`
	AccessKeyID     string `xml:"AccessKeyID"`
	SecretAccessKey string `xml:"SecretAccessKey"`
	UsePathStyle    bool   `xml:"UsePathStyle"`
}

// UploadConfig contains upload pipeline and session settings
type UploadConfig struct {
	TransferMode           string `xml:"TransferMode"`
	ProgressIntervalMs     int    `xml:"ProgressIntervalMs"`
	MinProgressStep        int    `xml:"MinProgressStep"`
	MaxProgressStep        int    `xml:"MaxProgressStep"`
	SettleDelayMs          int    `xml:"SettleDelayMs"`
	SubmitLatencyMs        int    `xml:"SubmitLatencyMs"`
	TransferTimeoutSeconds int    `xml:"TransferTimeoutSeconds"`
	MaxSessions            int    `xml:"MaxSessions"`
	SessionTimeoutMinutes  int    `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes"`
}

// IntakeConfig contains the document acceptance rules
type IntakeConfig struct {
	MaxFileSizeBytes int64  `xml:"MaxFileSizeBytes"`
	AllowedTypes     string `xml:"AllowedTypes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	ExposeErrorDetails   bool   `xml:"ExposeErrorDetails"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              8090,
			BindAddress:       "0.0.0.0",
			EnableCORS:        true,
			AllowOrigins:      "*",
			ReadTimeout:       60,
			WriteTimeout:      0,
			IdleTimeout:       120,
			ShutdownTimeout:   10,
			BodyLimit:         "64M",
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Storage: StorageConfig{
			Backend:          StorageBackendLocal,
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			S3: S3Config{
				Prefix: "filings/",
				Region: "us-east-1",
			},
		},
		Upload: UploadConfig{
			TransferMode:           TransferModeSimulated,
			ProgressIntervalMs:     500,
			MinProgressStep:        5,
			MaxProgressStep:        30,
			SettleDelayMs:          1500,
			SubmitLatencyMs:        2000,
			TransferTimeoutSeconds: 300,
			MaxSessions:            100,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Intake: IntakeConfig{
			MaxFileSizeBytes: 10 * 1024 * 1024,
			AllowedTypes: "application/pdf,application/msword," +
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from dir/.env into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from XML file, writing the defaults on first run
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Filing Portal Backend Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot start with
func (c *AppConfig) Validate() error {
	switch c.Upload.TransferMode {
	case TransferModeSimulated, TransferModeStore:
	default:
		return fmt.Errorf("invalid TransferMode %q (want %s or %s)", c.Upload.TransferMode, TransferModeSimulated, TransferModeStore)
	}

	switch c.Storage.Backend {
	case StorageBackendLocal:
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage backend s3 requires Storage/S3/Bucket")
		}
	default:
		return fmt.Errorf("invalid storage Backend %q (want %s or %s)", c.Storage.Backend, StorageBackendLocal, StorageBackendS3)
	}

	if c.Upload.MinProgressStep > c.Upload.MaxProgressStep {
		return fmt.Errorf("MinProgressStep %d exceeds MaxProgressStep %d", c.Upload.MinProgressStep, c.Upload.MaxProgressStep)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves both data and uploads
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	if mode := os.Getenv("TRANSFER_MODE"); mode != "" {
		c.Upload.TransferMode = strings.ToLower(mode)
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}

	s3 := &c.Storage.S3
	setString(&s3.Bucket, "S3_BUCKET")
	setString(&s3.Prefix, "S3_PREFIX")
	setString(&s3.Region, "S3_REGION")
	setString(&s3.Endpoint, "S3_ENDPOINT")
	setString(&s3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&s3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s3.UsePathStyle = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	resolve(&c.Storage.DataDirectory)
	resolve(&c.Storage.UploadsDirectory)
	resolve(&c.Storage.CatalogFile)
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAllowOrigins splits the comma separated origin list
func (c *AppConfig) GetAllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetAllowedTypes splits the comma separated MIME type list
func (c *AppConfig) GetAllowedTypes() []string {
	var types []string
	for _, t := range strings.Split(c.Intake.AllowedTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// ProgressInterval returns the simulated progress tick
func (c *AppConfig) ProgressInterval() time.Duration {
	return time.Duration(c.Upload.ProgressIntervalMs) * time.Millisecond
}

// SettleDelay returns the processing settle delay
func (c *AppConfig) SettleDelay() time.Duration {
	return time.Duration(c.Upload.SettleDelayMs) * time.Millisecond
}

// SubmitLatency returns the simulated filing round trip. Zero disables it.
func (c *AppConfig) SubmitLatency() time.Duration {
	if c.Upload.SubmitLatencyMs <= 0 {
		return -1
	}
	return time.Duration(c.Upload.SubmitLatencyMs) * time.Millisecond
}

// TransferTimeout returns the stuck transfer watchdog limit. Zero disables it.
func (c *AppConfig) TransferTimeout() time.Duration {
	return time.Duration(c.Upload.TransferTimeoutSeconds) * time.Second
}

// SessionTimeout returns how long an untouched session survives
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Upload.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions are swept
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Upload.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.Backend == StorageBackendLocal {
		dirs = append(dirs, c.Storage.UploadsDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
