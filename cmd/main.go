package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"studyforge/internal/ai"
	"studyforge/internal/cache"
	"studyforge/internal/config"
	"studyforge/internal/handlers"
	"studyforge/internal/logging"
	"studyforge/internal/metrics"
	"studyforge/internal/middleware"
	"studyforge/internal/settings"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()
	if envErr != nil {
		// Try parent directory for .env
		envErr = godotenv.Load("../.env")
	}

	logging.Init()
	defer logging.Sync()
	log := logging.Named("main")

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()
	if result := cfg.Validate(); result != nil {
		for _, w := range result.Warnings {
			log.Warn("configuration warning", zap.String("detail", w))
		}
		if result.HasErrors() {
			log.Fatal("invalid configuration", zap.Error(result))
		}
	}

	log.Info("starting studyforge",
		zap.String("environment", cfg.Environment),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Strings("cloud_providers", cfg.ConfiguredCloudProviders()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := cache.Open(ctx, cache.Config{
		Backend:     cfg.StoreBackend,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		FilePath:    cfg.SettingsFile,
		DialTimeout: 5 * time.Second,
	}, logging.Named("cache"))
	if err != nil {
		log.Fatal("failed to open settings store", zap.Error(err))
	}
	defer kv.Close()

	providers, ollama := buildProviders(cfg)

	store := settings.New(kv,
		settings.WithLogger(logging.Named("settings")),
		settings.WithLocalModelListener(ollama.SetModel))
	if err := store.Load(ctx); err != nil {
		// Keep serving with defaults; the next save overwrites the blob
		log.Error("failed to load AI settings, using defaults", zap.Error(err))
	}

	prober := ai.NewProber(providers, logging.Named("ai"))
	status := prober.CheckAll(ctx)
	log.Info("initial provider status", zap.Any("status", status))
	go prober.Run(ctx, cfg.StatusRefreshInterval)

	manager := ai.NewManager(providers, store, prober, ai.WithManagerLogger(logging.Named("ai")))

	limiter := middleware.NewPerMinuteRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer limiter.Stop()

	router := setupRoutes(cfg, handlers.NewHandler(manager, store, logging.Named("handlers")), limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Generation calls can take up to the provider timeout per candidate
		WriteTimeout: 2*cfg.ProviderTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		log.Fatal("failed to start server", zap.Error(err))
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// Give in-flight requests up to 15 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("graceful shutdown complete")
}

// buildProviders creates one adapter per provider. Adapters without
// credentials are still registered and report themselves unavailable.
func buildProviders(cfg *config.Config) ([]ai.Provider, *ai.OllamaClient) {
	logger := logging.Named("ai")

	google := ai.NewGeminiClient(cfg.GoogleAPIKey,
		ai.WithBaseURL(cfg.GoogleBaseURL),
		ai.WithModel(cfg.GoogleModel),
		ai.WithTimeout(cfg.ProviderTimeout),
		ai.WithLogger(logger))

	huggingFace := ai.NewHuggingFaceClient(cfg.HuggingFaceAPIKey,
		ai.WithBaseURL(cfg.HuggingFaceBaseURL),
		ai.WithModel(cfg.HuggingFaceModel),
		ai.WithTimeout(cfg.ProviderTimeout),
		ai.WithLogger(logger))

	ollama := ai.NewOllamaClient(cfg.OllamaBaseURL,
		ai.WithModel(cfg.OllamaModel),
		ai.WithTimeout(cfg.OllamaGenerateTimeout),
		ai.WithProbeTimeout(cfg.OllamaProbeTimeout),
		ai.WithLogger(logger))

	openAI := ai.NewOpenAIClient(cfg.OpenAIAPIKey,
		ai.WithBaseURL(cfg.OpenAIBaseURL),
		ai.WithModel(cfg.OpenAIModel),
		ai.WithTimeout(cfg.ProviderTimeout),
		ai.WithLogger(logger))

	return []ai.Provider{google, huggingFace, ollama, openAI}, ollama
}

func setupRoutes(cfg *config.Config, h *handlers.Handler, limiter *middleware.IPRateLimiter) *gin.Engine {
	if config.IsProductionEnvironment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logging.Named("http")))
	router.Use(middleware.Logger(logging.Named("http"), "/health", "/metrics"))
	router.Use(cors.New(corsConfig))
	router.Use(middleware.SecurityHeaders())
	router.Use(metrics.PrometheusMiddleware())

	router.GET("/health", h.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	h.RegisterRoutes(api)

	return router
}
