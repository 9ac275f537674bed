package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Database drivers understood by DatabaseDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Identity providers understood by AuthProvider.
const (
	AuthProviderFirebase = "firebase"
	AuthProviderHS256    = "hs256"
)

// Feedback providers understood by FeedbackProvider.
const (
	FeedbackProviderOpenAI = "openai"
	FeedbackProviderGemini = "gemini"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8000"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Database
	DatabaseURL   string `envconfig:"DATABASE_URL" default:"sqlite://dev.db"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	// OpenAI (transcription + default feedback provider)
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	WhisperModel  string `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	GPTModel      string `envconfig:"GPT_MODEL" default:"gpt-4o-mini"`

	// Feedback
	FeedbackProvider string `envconfig:"FEEDBACK_PROVIDER" default:"openai"`
	TargetLanguage   string `envconfig:"TARGET_LANGUAGE" default:"en"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`
	GeminiModel      string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Identity
	AuthProvider      string `envconfig:"AUTH_PROVIDER" default:"firebase"`
	FirebaseProjectID string `envconfig:"FIREBASE_PROJECT_ID"`
	AuthJWTSecret     string `envconfig:"AUTH_JWT_SECRET"`

	// Uploads
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`

	// Redis (shared rate limit counters)
	RedisURL string `envconfig:"REDIS_URL"`

	// Rate limiting, per client IP
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Cloudflare R2 (practice audio archive)
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflarePublicURL   string `envconfig:"CLOUDFLARE_PUBLIC_URL"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings. Missing API credentials are not an
// error here; the endpoints that need them report Misconfigured instead.
func (c *Config) Validate() error {
	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid SERVER_ENV %q", c.Environment)
	}
	switch c.AuthProvider {
	case AuthProviderFirebase, AuthProviderHS256:
	default:
		return fmt.Errorf("invalid AUTH_PROVIDER %q", c.AuthProvider)
	}
	switch c.FeedbackProvider {
	case FeedbackProviderOpenAI, FeedbackProviderGemini:
	default:
		return fmt.Errorf("invalid FEEDBACK_PROVIDER %q", c.FeedbackProvider)
	}
	if _, _, err := c.DatabaseDriver(); err != nil {
		return err
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DatabaseDriver splits DatabaseURL into a driver name and the DSN that
// driver expects. Postgres URLs are passed through (postgres:// and
// postgresql:// are both accepted); sqlite://path yields the file path.
func (c *Config) DatabaseDriver() (driver, dsn string, err error) {
	u := strings.TrimSpace(c.DatabaseURL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DriverPostgres, u, nil
	case strings.HasPrefix(u, "sqlite://"):
		path := strings.TrimPrefix(u, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite DATABASE_URL has no path")
		}
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", u)
	}
}

// R2Configured reports whether every Cloudflare R2 setting is present.
func (c *Config) R2Configured() bool {
	return c.CloudflareAccessKeyID != "" && c.CloudflareSecretKey != "" &&
		c.CloudflareR2Endpoint != "" && c.CloudflareBucketName != ""
}
