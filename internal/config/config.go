// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrLumaAPIKeyRequired is returned when LUMA_API_KEY is not set.
	ErrLumaAPIKeyRequired = errors.New("config: LUMA_API_KEY is required")
	// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrGoogleAPIKeyRequired is returned when GOOGLE_API_KEY is not set.
	ErrGoogleAPIKeyRequired = errors.New("config: GOOGLE_API_KEY is required")
	// ErrInvalidImageHost is returned for an unknown IMAGE_HOST.
	ErrInvalidImageHost = errors.New("config: IMAGE_HOST must be one of s3, local, freeimage")
	// ErrInvalidJobStore is returned for an unknown JOB_STORE.
	ErrInvalidJobStore = errors.New("config: JOB_STORE must be one of memory, redis, postgres")
	// ErrS3ConfigIncomplete is returned when IMAGE_HOST=s3 lacks S3_BUCKET or S3_REGION.
	ErrS3ConfigIncomplete = errors.New("config: S3_BUCKET and S3_REGION are required for s3 image hosting")
	// ErrPublicBaseURLRequired is returned when IMAGE_HOST=local lacks PUBLIC_BASE_URL.
	ErrPublicBaseURLRequired = errors.New("config: PUBLIC_BASE_URL is required for local image hosting")
	// ErrFreeImageAPIKeyRequired is returned when IMAGE_HOST=freeimage lacks FREEIMAGE_API_KEY.
	ErrFreeImageAPIKeyRequired = errors.New("config: FREEIMAGE_API_KEY is required for freeimage hosting")
	// ErrRedisURLRequired is returned when JOB_STORE=redis lacks REDIS_URL.
	ErrRedisURLRequired = errors.New("config: REDIS_URL is required for the redis job store")
	// ErrDatabaseURLRequired is returned when JOB_STORE=postgres lacks DATABASE_URL.
	ErrDatabaseURLRequired = errors.New("config: DATABASE_URL is required for the postgres job store")
)

// Image hosting backends.
const (
	ImageHostS3        = "s3"
	ImageHostLocal     = "local"
	ImageHostFreeImage = "freeimage"
)

// Job store backends.
const (
	JobStoreMemory   = "memory"
	JobStoreRedis    = "redis"
	JobStorePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Luma Dream Machine settings
	LumaAPIKey      string `env:"LUMA_API_KEY, required" json:"-"` // Masked in JSON
	LumaBaseURL     string `env:"LUMA_BASE_URL, default=https://api.lumalabs.ai/dream-machine/v1" json:"luma_base_url"`
	LumaCallbackURL string `env:"LUMA_CALLBACK_URL" json:"luma_callback_url,omitempty"`

	// Generation polling
	PollInterval    time.Duration `env:"POLL_INTERVAL, default=5s" json:"poll_interval"`
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS, default=120" json:"poll_max_attempts"`

	// OpenAI image settings
	OpenAIAPIKey     string `env:"OPENAI_API_KEY, required" json:"-"` // Masked in JSON
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL, default=https://api.openai.com/v1" json:"openai_base_url"`
	OpenAIImageModel string `env:"OPENAI_IMAGE_MODEL, default=gpt-image-1" json:"openai_image_model"`

	// Gemini settings
	GoogleAPIKey  string `env:"GOOGLE_API_KEY, required" json:"-"` // Masked in JSON
	GeminiModel   string `env:"GEMINI_MODEL, default=gemini-2.0-flash-exp" json:"gemini_model"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL, default=https://generativelanguage.googleapis.com/" json:"gemini_base_url"`

	// Frame hosting
	ImageHost       string `env:"IMAGE_HOST, default=local" json:"image_host"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL" json:"public_base_url,omitempty"`
	FramesDir       string `env:"FRAMES_DIR, default=/tmp/reelchain/frames" json:"frames_dir"`
	FreeImageAPIKey string `env:"FREEIMAGE_API_KEY" json:"-"` // Masked in JSON

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3PublicBaseURL    string `env:"S3_PUBLIC_BASE_URL" json:"s3_public_base_url,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Job persistence
	JobStore    string `env:"JOB_STORE, default=memory" json:"job_store"`
	RedisURL    string `env:"REDIS_URL" json:"-"`    // May carry credentials
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // May carry credentials

	// Retention
	JobRetentionDays int    `env:"JOB_RETENTION_DAYS, default=7" json:"job_retention_days"`
	CleanupSchedule  string `env:"CLEANUP_SCHEDULE, default=@daily" json:"cleanup_schedule"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Retention returns the job retention period.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.JobRetentionDays) * 24 * time.Hour
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set or the result is inconsistent.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: lookuper}); err != nil {
		// Map envconfig errors to our domain errors for required fields
		switch msg := err.Error(); {
		case strings.Contains(msg, "LUMA_API_KEY"):
			return nil, ErrLumaAPIKeyRequired
		case strings.Contains(msg, "OPENAI_API_KEY"):
			return nil, ErrOpenAIAPIKeyRequired
		case strings.Contains(msg, "GOOGLE_API_KEY"):
			return nil, ErrGoogleAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.ImageHost = strings.ToLower(strings.TrimSpace(cfg.ImageHost))
	cfg.JobStore = strings.ToLower(strings.TrimSpace(cfg.JobStore))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys and cross-field requirements.
func (c *Config) Validate() error {
	if c.LumaAPIKey == "" {
		return ErrLumaAPIKeyRequired
	}
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIAPIKeyRequired
	}
	if c.GoogleAPIKey == "" {
		return ErrGoogleAPIKeyRequired
	}

	switch c.ImageHost {
	case ImageHostS3:
		if !c.S3Enabled() {
			return ErrS3ConfigIncomplete
		}
	case ImageHostLocal:
		if c.PublicBaseURL == "" {
			return ErrPublicBaseURLRequired
		}
	case ImageHostFreeImage:
		if c.FreeImageAPIKey == "" {
			return ErrFreeImageAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidImageHost, c.ImageHost)
	}

	switch c.JobStore {
	case JobStoreMemory:
	case JobStoreRedis:
		if c.RedisURL == "" {
			return ErrRedisURLRequired
		}
	case JobStorePostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidJobStore, c.JobStore)
	}

	if c.JobRetentionDays < 1 {
		return fmt.Errorf("config: JOB_RETENTION_DAYS must be positive, got %d", c.JobRetentionDays)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, LumaAPIKey: %s, OpenAIAPIKey: %s, GoogleAPIKey: %s, GeminiModel: %s, OpenAIImageModel: %s, ImageHost: %s, PublicBaseURL: %s, S3Bucket: %s, S3Region: %s, JobStore: %s, JobRetentionDays: %d, CleanupSchedule: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		mask(c.LumaAPIKey),
		mask(c.OpenAIAPIKey),
		mask(c.GoogleAPIKey),
		c.GeminiModel,
		c.OpenAIImageModel,
		c.ImageHost,
		c.PublicBaseURL,
		c.S3Bucket,
		c.S3Region,
		c.JobStore,
		c.JobRetentionDays,
		c.CleanupSchedule,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
