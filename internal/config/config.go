package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// FileEnv names an optional YAML file whose keys are environment variable names.
// Values from the real environment win over the file.
const FileEnv = "UPLOADER_CONFIG_FILE"

// MaxPresignTTL caps how long an issued write credential stays valid.
const MaxPresignTTL = time.Hour

// Config holds the environment driven configuration for the image upload service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"image-upload"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"IMAGE_UPLOAD_PORT" envDefault:"8290"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// S3 Storage Configuration
	S3Endpoint     string        `env:"S3_ENDPOINT"`
	S3Region       string        `env:"S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string        `env:"S3_BUCKET,notEmpty"`
	S3AccessKeyID  string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string        `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool          `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	S3KeyPrefix    string        `env:"S3_KEY_PREFIX" envDefault:"uploads/"`
	PresignTTL     time.Duration `env:"S3_PRESIGN_TTL" envDefault:"15m"`

	// Upload acceptance
	AllowedMimeTypes []string `env:"ALLOWED_MIME_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/gif,image/webp"`

	// Duplicate ledger: memory, redis or postgres
	LedgerBackend  string        `env:"LEDGER_BACKEND" envDefault:"memory"`
	RedisURL       string        `env:"REDIS_URL"`
	DatabaseURL    string        `env:"DB_POSTGRESQL_WRITE_DSN"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Enrichment
	ClassifierEnabled  bool          `env:"CLASSIFIER_ENABLED" envDefault:"true"`
	MaxLabels          int32         `env:"CLASSIFIER_MAX_LABELS" envDefault:"5"`
	MinConfidence      float32       `env:"CLASSIFIER_MIN_CONFIDENCE" envDefault:"70"`
	TagKey             string        `env:"TAG_KEY" envDefault:"ImageTag"`
	EnrichTimeout      time.Duration `env:"ENRICH_TIMEOUT" envDefault:"30s"`
	EnrichCooldown     time.Duration `env:"ENRICH_COOLDOWN" envDefault:"10s"`
}

// Load parses environment variables (and the optional YAML overlay) into Config.
func Load() (*Config, error) {
	environment, err := environ()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	if cfg.PresignTTL <= 0 || cfg.PresignTTL > MaxPresignTTL {
		cfg.PresignTTL = MaxPresignTTL
	}
	if cfg.MaxLabels <= 0 {
		cfg.MaxLabels = 5
	}
	if strings.TrimSpace(cfg.TagKey) == "" {
		cfg.TagKey = "ImageTag"
	}
	for i, mt := range cfg.AllowedMimeTypes {
		cfg.AllowedMimeTypes[i] = strings.ToLower(strings.TrimSpace(mt))
	}

	switch cfg.Ledger() {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, fmt.Errorf("REDIS_URL is required when LEDGER_BACKEND is redis")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("DB_POSTGRESQL_WRITE_DSN is required when LEDGER_BACKEND is postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported LEDGER_BACKEND %q", cfg.LedgerBackend)
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Ledger returns the normalized ledger backend name.
func (c *Config) Ledger() string {
	backend := strings.ToLower(strings.TrimSpace(c.LedgerBackend))
	if backend == "" {
		return "memory"
	}
	return backend
}

// environ merges the process environment over the YAML overlay named by FileEnv.
func environ() (map[string]string, error) {
	merged := map[string]string{}
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		overlay := map[string]any{}
		if err := yaml.Unmarshal(raw, &overlay); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for k, v := range overlay {
			merged[strings.ToUpper(k)] = yamlScalar(v)
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	return merged, nil
}

func yamlScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func validateURL(name, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
