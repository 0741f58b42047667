package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Transfer modes for the uploader.
const (
	TransferModeStream = "stream"
	TransferModeBlob   = "blob"
)

// ClientConfig configures the uploader CLI.
type ClientConfig struct {
	PresignAPIURL string `env:"PRESIGN_API_URL,notEmpty"`
	TagAPIURL     string `env:"TAG_API_URL,notEmpty"`
	S3Bucket      string `env:"S3_BUCKET,notEmpty"`
	S3Region      string `env:"S3_REGION,notEmpty"`
	S3KeyPrefix   string `env:"S3_KEY_PREFIX,notEmpty"`

	// Credentials always come from the presign API, which records duplicates.
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS" envDefault:"3"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	TransferMode    string        `env:"TRANSFER_MODE" envDefault:"stream"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	NATSURL       string `env:"NATS_URL"`
	StatusSubject string `env:"STATUS_SUBJECT" envDefault:"uploads.status"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// LoadClient parses the uploader configuration. Missing or malformed endpoints are
// reported as upload.ErrConfiguration before any upload starts.
func LoadClient() (*ClientConfig, error) {
	environment, err := environ()
	if err != nil {
		return nil, upload.NewConfigurationError("cannot read configuration file", err)
	}
	cfg := &ClientConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, upload.NewConfigurationError("missing or invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the configuration and checks endpoint URLs and enum values.
func (c *ClientConfig) Validate() error {
	c.PresignAPIURL = strings.TrimSpace(c.PresignAPIURL)
	c.TagAPIURL = strings.TrimSpace(c.TagAPIURL)
	c.TransferMode = strings.ToLower(strings.TrimSpace(c.TransferMode))

	if err := validateURL("PRESIGN_API_URL", c.PresignAPIURL); err != nil {
		return upload.NewConfigurationError("Presign API URL is not configured correctly", err)
	}
	if err := validateURL("TAG_API_URL", c.TagAPIURL); err != nil {
		return upload.NewConfigurationError("Tag API URL is not configured correctly", err)
	}
	switch c.TransferMode {
	case TransferModeStream, TransferModeBlob:
	default:
		return upload.NewConfigurationError(fmt.Sprintf("unsupported TRANSFER_MODE %q", c.TransferMode), nil)
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = upload.DefaultMaxAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = upload.DefaultPollInterval
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return nil
}

// Poll returns the poller settings.
func (c *ClientConfig) Poll() upload.PollConfig {
	return upload.PollConfig{MaxAttempts: c.PollMaxAttempts, Interval: c.PollInterval}
}
