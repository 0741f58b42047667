package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/upload"
)

func setClientEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PRESIGN_API_URL", "https://api.example.com/v1/presign")
	t.Setenv("TAG_API_URL", "https://api.example.com/v1/tag")
	t.Setenv("S3_BUCKET", "images")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_KEY_PREFIX", "uploads/")
	t.Setenv(config.FileEnv, "")
}

func TestLoadClientDefaults(t *testing.T) {
	setClientEnv(t)

	cfg, err := config.LoadClient()
	require.NoError(t, err)
	assert.Equal(t, upload.PollConfig{MaxAttempts: 3, Interval: 3 * time.Second}, cfg.Poll())
	assert.Equal(t, config.TransferModeStream, cfg.TransferMode)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadClientMissingEndpoint(t *testing.T) {
	setClientEnv(t)
	t.Setenv("TAG_API_URL", "")

	_, err := config.LoadClient()
	assert.ErrorIs(t, err, upload.ErrConfiguration)
}

func TestLoadClientRelativeURL(t *testing.T) {
	setClientEnv(t)
	t.Setenv("PRESIGN_API_URL", "/v1/presign")

	_, err := config.LoadClient()
	require.Error(t, err)
	assert.ErrorIs(t, err, upload.ErrConfiguration)
	assert.Equal(t, "Presign API URL is not configured correctly", upload.UserMessage(err))
}

func TestLoadClientRejectsUnknownMode(t *testing.T) {
	setClientEnv(t)
	t.Setenv("TRANSFER_MODE", "carrier-pigeon")

	_, err := config.LoadClient()
	assert.ErrorIs(t, err, upload.ErrConfiguration)
}

func TestLoadClientYAMLOverlay(t *testing.T) {
	setClientEnv(t)
	path := filepath.Join(t.TempDir(), "uploader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_max_attempts: 10\npoll_interval: 5s\nTRANSFER_MODE: blob\n"), 0o600))
	t.Setenv(config.FileEnv, path)
	t.Setenv("TRANSFER_MODE", "stream")

	cfg, err := config.LoadClient()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.PollMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, config.TransferModeStream, cfg.TransferMode, "environment wins over file")
}

func TestLoadServerCapsPresignTTL(t *testing.T) {
	t.Setenv(config.FileEnv, "")
	t.Setenv("S3_BUCKET", "images")
	t.Setenv("S3_PRESIGN_TTL", "24h")
	t.Setenv("LEDGER_BACKEND", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.PresignTTL)
	assert.Equal(t, "ImageTag", cfg.TagKey)
	assert.Equal(t, int32(5), cfg.MaxLabels)
	assert.Contains(t, cfg.AllowedMimeTypes, "image/png")
	assert.Equal(t, ":8290", cfg.Addr())
}

func TestLoadServerLedgerRequiresDSN(t *testing.T) {
	t.Setenv(config.FileEnv, "")
	t.Setenv("S3_BUCKET", "images")
	t.Setenv("LEDGER_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	_, err := config.Load()
	assert.Error(t, err)
}
