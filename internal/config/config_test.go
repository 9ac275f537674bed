package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddress())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "whisper-1", cfg.WhisperModel)
	assert.Equal(t, "gpt-4o-mini", cfg.GPTModel)
	assert.Equal(t, "en", cfg.TargetLanguage)
	assert.Equal(t, AuthProviderFirebase, cfg.AuthProvider)
	assert.Equal(t, FeedbackProviderOpenAI, cfg.FeedbackProvider)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.DBAutoMigrate)
	assert.False(t, cfg.R2Configured())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("SERVER_HTTP_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgresql://u:p@db:5432/fluent")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AUTH_PROVIDER", "hs256")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, AuthProviderHS256, cfg.AuthProvider)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	driver, dsn, err := cfg.DatabaseDriver()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, driver)
	assert.Equal(t, "postgresql://u:p@db:5432/fluent", dsn)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("FEEDBACK_PROVIDER", "carrier-pigeon")

	_, err := Load()
	assert.ErrorContains(t, err, "FEEDBACK_PROVIDER")
}

func TestDatabaseDriver(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"postgres", "postgres://localhost/db", DriverPostgres, "postgres://localhost/db", false},
		{"sqlite relative", "sqlite://dev.db", DriverSQLite, "dev.db", false},
		{"sqlite absolute", "sqlite:///var/lib/fluent.db", DriverSQLite, "/var/lib/fluent.db", false},
		{"sqlite empty", "sqlite://", "", "", true},
		{"mysql", "mysql://localhost/db", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DatabaseURL: tt.url}
			driver, dsn, err := cfg.DatabaseDriver()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}
