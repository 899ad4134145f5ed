package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intervu/interview/internal/config"
	"intervu/interview/internal/handlers"
	"intervu/interview/internal/jobs"
	"intervu/interview/internal/llm"
	_ "intervu/interview/internal/llm/gemini"
	"intervu/interview/internal/metrics"
	"intervu/interview/internal/models"
	"intervu/interview/internal/prompts"
	"intervu/interview/internal/reasoning"
	"intervu/interview/internal/repositories"
	"intervu/interview/internal/routers"
	"intervu/interview/internal/services"
	"intervu/interview/internal/session"
	"intervu/interview/internal/speech"
	"intervu/interview/internal/tts"
	"intervu/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func registerRoutes(router *chi.Mux, sessionHandler *handlers.SessionHandler, tokenHandler *handlers.TokenHandler, liveHandler *handlers.LiveHandler, ttsHandler *handlers.TTSHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.SessionRoutes(router, sessionHandler, tokenHandler, liveHandler)
	routers.TTSRoutes(router, ttsHandler)
	router.Handle("/metrics", metrics.Handler())
}

// Helper function for environment variables
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// initDatabase initializes the PostgreSQL database connection
func initDatabase() (*gorm.DB, error) {
	host := getEnv("POSTGRES_HOST", "localhost")
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "postgres")
	dbname := getEnv("POSTGRES_DB", "postgres")
	port := getEnv("POSTGRES_PORT", "5432")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, dbname, port, sslmode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Interview{}, &models.InterviewQuestion{}, &models.Candidate{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func main() {
	utils.InitLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.Duration("pause_window", cfg.PauseWindow))

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// AI provider based on configuration
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	db, err := initDatabase()
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	interviews := repositories.NewInterviewRepository(db)
	candidates := repositories.NewCandidateRepository(db)

	gateway := reasoning.NewGateway(aiProvider, promptManager, cfg.ReasoningTimeout, logger)

	// speech synthesis rides on the same provider when it supports it
	var synthesizer tts.Synthesizer
	if speechProvider, ok := aiProvider.(tts.SpeechProvider); ok {
		synthesizer = tts.NewGateway(speechProvider)
	} else {
		logger.Fatal("AI provider does not support speech synthesis",
			zap.String("provider", aiProvider.GetProviderName()))
	}

	tokens := &speech.HTTPTokenSource{
		Endpoint: cfg.SpeechTokenURL,
		APIKey:   cfg.SpeechToken,
	}
	channels := speech.ChannelFactory(func() speech.Channel {
		return speech.NewRealtimeChannel(cfg.SpeechWSURL, tokens)
	})

	publisher := services.NewRedisCompletionPublisher(cfg.RedisAddr, logger)
	defer publisher.Close()

	registry := session.NewRegistry(logger)

	sessionHandler := handlers.NewSessionHandler(cfg, registry, interviews, candidates, gateway, publisher, channels, logger)
	tokenHandler := handlers.NewTokenHandler(tokens, logger)
	liveHandler := handlers.NewLiveHandler(registry, logger)
	ttsHandler := handlers.NewTTSHandler(synthesizer, logger)
	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, cfg, db)

	// janitor reaps leaked sessions
	janitorConfig := &jobs.JanitorConfig{
		Schedule: getEnv("SESSION_JANITOR_SCHEDULE", "@every 1m"),
		Enabled:  getEnv("SESSION_JANITOR_ENABLED", "true") == "true",
	}
	janitorJob := jobs.NewSessionJanitorJob(registry, janitorConfig, logger)
	if err := janitorJob.Start(); err != nil {
		logger.Error("Failed to start session janitor job", zap.Error(err))
	}

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	router.Use(metrics.Middleware("interview"))

	registerRoutes(router, sessionHandler, tokenHandler, liveHandler, ttsHandler, healthHandler)

	serverAddr := ":" + cfg.Port

	// http server with timeouts; the live websocket needs an unbounded write
	// window, so no WriteTimeout here
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 0,
		IdleTimeout: 60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	janitorJob.Stop()

	// terminate any sessions still live so their records are finalized
	registry.Each(func(interviewID string, live *session.Live) {
		live.Controller.Terminate(session.ReasonEnvironmentFailure)
	})

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("Interview service exited")
}
