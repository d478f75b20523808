package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "FilingPortal.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written on first run")

	assert.Equal(t, TransferModeSimulated, cfg.Upload.TransferMode)
	assert.Equal(t, StorageBackendLocal, cfg.Storage.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.ProgressInterval())
	assert.Equal(t, 1500*time.Millisecond, cfg.SettleDelay())
	assert.Equal(t, 2*time.Second, cfg.SubmitLatency())
	assert.Equal(t, 5*time.Minute, cfg.TransferTimeout())
	assert.Equal(t, int64(10*1024*1024), cfg.Intake.MaxFileSizeBytes)
	assert.Len(t, cfg.GetAllowedTypes(), 3)
	assert.Equal(t, filepath.Join(dir, "data", "uploads"), cfg.GetUploadDir())
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "FilingPortal.config")

	cfg := DefaultConfig()
	cfg.Server.Port = 9100
	cfg.Upload.SubmitLatencyMs = 0
	cfg.Server.AllowOrigins = "http://localhost:5173, https://portal.example.org"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9100", loaded.GetServerAddr())
	assert.Equal(t, time.Duration(-1), loaded.SubmitLatency(), "zero latency disables the wait")
	assert.Equal(t, []string{"http://localhost:5173", "https://portal.example.org"}, loaded.GetAllowOrigins())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "FilingPortal.config")

	t.Setenv("PORT", "7001")
	t.Setenv("DATA_DIR", filepath.Join(dir, "elsewhere"))
	t.Setenv("TRANSFER_MODE", "STORE")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "court-filings")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "elsewhere", "uploads"), cfg.GetUploadDir())
	assert.Equal(t, TransferModeStore, cfg.Upload.TransferMode)
	assert.Equal(t, StorageBackendS3, cfg.Storage.Backend)
	assert.Equal(t, "court-filings", cfg.Storage.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.S3.Endpoint)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{
			name:    "unknown transfer mode",
			mutate:  func(c *AppConfig) { c.Upload.TransferMode = "carrier-pigeon" },
			wantErr: "invalid TransferMode",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *AppConfig) { c.Storage.Backend = StorageBackendS3 },
			wantErr: "requires Storage/S3/Bucket",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *AppConfig) { c.Storage.Backend = "tape" },
			wantErr: "invalid storage Backend",
		},
		{
			name:    "inverted progress steps",
			mutate:  func(c *AppConfig) { c.Upload.MinProgressStep = 40 },
			wantErr: "exceeds MaxProgressStep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(dir), "missing .env is fine")

	key := "FILING_PORTAL_TEST_DOTENV"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from-file\n"), 0644))
	t.Setenv(key, "")
	os.Unsetenv(key)

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestLoadConfig_InvalidXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FilingPortal.config")
	require.NoError(t, os.WriteFile(path, []byte("<FilingPortal><Server>"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
