package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/windfall/fluentmind/internal/auth"
	"github.com/windfall/fluentmind/internal/client"
	"github.com/windfall/fluentmind/internal/config"
	"github.com/windfall/fluentmind/internal/handler/http"
	"github.com/windfall/fluentmind/internal/logger"
	"github.com/windfall/fluentmind/internal/middleware"
	"github.com/windfall/fluentmind/internal/repository"
	"github.com/windfall/fluentmind/internal/server"
	"github.com/windfall/fluentmind/internal/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Environment).Str("version", version).Msg("Starting fluentmind")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	driver, dsn, err := cfg.DatabaseDriver()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid DATABASE_URL")
	}

	if cfg.DBAutoMigrate {
		if err := repository.Migrate(driver, dsn); err != nil {
			log.Fatal().Err(err).Str("driver", driver).Msg("Failed to apply migrations")
		}
		log.Info().Str("driver", driver).Msg("Database migrations applied")
	}

	var (
		store          *repository.Store
		postgresClient *client.PostgresClient
	)
	switch driver {
	case config.DriverPostgres:
		postgresClient, err = client.NewPostgresClient(ctx, dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Postgres client")
		}
		store = repository.NewPostgresStore(postgresClient)
		log.Info().Msg("Postgres client initialized")
	default:
		store, err = repository.OpenSQLite(ctx, dsn)
		if err != nil {
			log.Fatal().Err(err).Str("path", dsn).Msg("Failed to open SQLite database")
		}
		log.Info().Str("path", dsn).Msg("SQLite database opened")
	}

	// Identity verifier
	var verifier auth.Verifier
	switch cfg.AuthProvider {
	case config.AuthProviderHS256:
		if cfg.AuthJWTSecret == "" {
			log.Fatal().Msg("AUTH_JWT_SECRET is required when AUTH_PROVIDER=hs256")
		}
		verifier = auth.NewHMACVerifier(cfg.AuthJWTSecret)
		log.Warn().Msg("Using shared-secret token verification; not for production")
	default:
		firebase, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Firebase verifier")
		}
		verifier = firebase
		log.Info().Str("project_id", cfg.FirebaseProjectID).Msg("Firebase token verifier initialized")
	}

	// Initialize clients. Interfaces are only assigned from non-nil clients so
	// a missing key surfaces as Misconfigured rather than a nil dereference.
	speechCfg := service.SpeechConfig{
		FeedbackProvider: cfg.FeedbackProvider,
		TargetLanguage:   cfg.TargetLanguage,
	}

	if cfg.OpenAIAPIKey != "" {
		openaiClient := client.NewOpenAIClient(client.OpenAIConfig{
			APIKey:             cfg.OpenAIAPIKey,
			BaseURL:            cfg.OpenAIBaseURL,
			ChatModel:          cfg.GPTModel,
			TranscriptionModel: cfg.WhisperModel,
		})
		speechCfg.Transcriber = openaiClient
		if cfg.FeedbackProvider == config.FeedbackProviderOpenAI {
			speechCfg.Feedback = openaiClient
		}
		log.Info().Str("whisper_model", cfg.WhisperModel).Str("gpt_model", cfg.GPTModel).Msg("OpenAI client initialized")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, speech endpoints will report misconfiguration")
	}

	if cfg.FeedbackProvider == config.FeedbackProviderGemini {
		if cfg.GeminiAPIKey != "" {
			geminiClient, err := client.NewGeminiClient(ctx, client.GeminiConfig{
				APIKey: cfg.GeminiAPIKey,
				Model:  cfg.GeminiModel,
			})
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialize Gemini client")
			} else {
				speechCfg.Feedback = geminiClient
				log.Info().Str("model", cfg.GeminiModel).Msg("Gemini client initialized")
			}
		} else {
			log.Warn().Msg("GEMINI_API_KEY not set, feedback will report misconfiguration")
		}
	}

	if cfg.R2Configured() {
		cloudflareClient, err := client.NewCloudflareClient(ctx, client.R2Config{
			AccessKeyID:     cfg.CloudflareAccessKeyID,
			SecretAccessKey: cfg.CloudflareSecretKey,
			Endpoint:        cfg.CloudflareR2Endpoint,
			Bucket:          cfg.CloudflareBucketName,
			PublicURL:       cfg.CloudflarePublicURL,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Cloudflare client")
		} else {
			speechCfg.Archive = cloudflareClient
			log.Info().Msg("Cloudflare R2 client initialized")
		}
	} else {
		log.Warn().Msg("Cloudflare configuration missing, practice audio will not be archived")
	}

	// Rate limiting: shared counters in Redis when available
	var (
		limiter     middleware.Limiter
		redisClient *client.RedisClient
	)
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Redis client, falling back to in-process rate limiting")
		} else {
			log.Info().Msg("Redis client initialized")
		}
	}
	if redisClient != nil {
		limiter = middleware.NewWindowLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow)
	} else {
		limiter = middleware.NewLocalLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	// Initialize services
	identityService := service.NewIdentityService(verifier, store.Users, log)
	practiceService := service.NewPracticeService(store.Sessions, log)
	speechService := service.NewSpeechService(speechCfg, practiceService, log)

	// Initialize handlers
	exposeCause := !cfg.IsProduction()
	handlers := server.Handlers{
		Health: http.NewHealthHandler(log, version, cfg.Environment, store),
		Speech: http.NewSpeechHandler(log, speechService, identityService, cfg.MaxUploadBytes, exposeCause),
		User:   http.NewUserHandler(log, practiceService, exposeCause),
	}

	// Initialize HTTP server
	router := server.NewRouter(cfg, log, handlers, identityService, limiter)
	httpServer := server.NewHTTPServer(cfg, log, router)

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Str("db_driver", driver).
		Str("auth_provider", cfg.AuthProvider).
		Str("feedback_provider", cfg.FeedbackProvider).
		Msg("Servers started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Close clients
	if redisClient != nil {
		redisClient.Close()
	}
	if postgresClient != nil {
		postgresClient.Close()
	} else if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Server stopped")
}
