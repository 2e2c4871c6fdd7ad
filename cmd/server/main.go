package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/api"
	"github.com/rescuemind/rescuemind/internal/auth"
	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/database"
	"github.com/rescuemind/rescuemind/internal/drafts"
	"github.com/rescuemind/rescuemind/internal/events"
	"github.com/rescuemind/rescuemind/internal/hospital"
	"github.com/rescuemind/rescuemind/internal/jobs"
	"github.com/rescuemind/rescuemind/internal/logging"
	"github.com/rescuemind/rescuemind/internal/metrics"
	"github.com/rescuemind/rescuemind/internal/notification"
	"github.com/rescuemind/rescuemind/internal/repository"
	"github.com/rescuemind/rescuemind/internal/session"
	"github.com/rescuemind/rescuemind/internal/storage"
	"github.com/rescuemind/rescuemind/internal/triage"
	"github.com/rescuemind/rescuemind/internal/vitals"
	"github.com/rescuemind/rescuemind/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "rescuemind")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database connection", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	users := repository.NewGormUsers(db)
	logs := repository.NewGormTreatmentLogs(db)
	triageRepo := repository.NewGormTriage(db)

	// Draft store
	redisClient, err := drafts.NewClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	draftStore := drafts.NewStore(redisClient, cfg.Redis.DraftTTL, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize WebSocket hub
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	hub := websocket.NewHub(tokens, cfg.CORSOrigins, logger)
	go hub.Run(ctx)

	// Alert fan-out
	dispatcher := notification.NewDispatcher(notification.TargetsFromConfig(cfg.Notify), logger)

	opts := session.Options{
		TickInterval:    cfg.Monitor.TickInterval,
		HistoryCapacity: cfg.Monitor.HistoryCapacity,
		AllSignals:      cfg.Monitor.AlertAllSignals,
		Hub:             hub,
		Metrics:         m,
		Logger:          logger,
	}
	if dispatcher.Enabled() {
		opts.Notifier = dispatcher
	}
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		opts.Publisher = publisher
	}

	opts.Thresholds, err = vitals.LoadThresholds(cfg.Monitor.ThresholdsFile)
	if err != nil {
		logger.Fatal("Failed to load thresholds", zap.Error(err))
	}

	// Start monitoring
	sessions := session.NewManager(opts)
	defer sessions.StopAll()
	if cfg.Monitor.DefaultCasualty != "" {
		if _, err := sessions.Start(cfg.Monitor.DefaultCasualty); err != nil {
			logger.Fatal("Failed to start default session", zap.Error(err))
		}
	}

	// Image storage
	var (
		store     storage.Store
		uploadDir string
		keyPrefix string
	)
	if cfg.S3.Enabled() {
		s3Store, err := storage.NewS3(ctx, cfg.S3)
		if err != nil {
			logger.Fatal("Failed to configure S3 storage", zap.Error(err))
		}
		store, keyPrefix = s3Store, cfg.S3.KeyPrefix
		logger.Info("Storing uploads in S3", zap.String("bucket", cfg.S3.Bucket))
	} else {
		local, err := storage.NewLocal(cfg.Uploads.Dir, "/uploads")
		if err != nil {
			logger.Fatal("Failed to prepare upload directory", zap.Error(err))
		}
		store, uploadDir = local, local.Dir()
	}

	var analyzer triage.Analyzer
	gemini, err := triage.NewGemini(ctx, cfg.Gemini, "")
	switch {
	case err == nil:
		analyzer = gemini
		logger.Info("Image triage enabled", zap.String("model", gemini.Model()))
	case errors.Is(err, triage.ErrMissingAPIKey):
		logger.Warn("GEMINI_API_KEY not set, image triage disabled")
	default:
		logger.Fatal("Failed to create Gemini client", zap.Error(err))
	}
	predictor := triage.NewService(analyzer, store, triageRepo, keyPrefix, logger)

	// Initialize job scheduler
	scheduler := jobs.NewScheduler(logs, triageRepo, store, cfg.Retention, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start job scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Setup API router
	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Logger:    logger,
		Tokens:    tokens,
		Users:     users,
		Logs:      logs,
		Sessions:  sessions,
		Drafts:    draftStore,
		Triage:    predictor,
		Hospital:  hospital.NewClient(cfg.Hospital, logger),
		Hub:       hub,
		Metrics:   m,
		UploadDir: uploadDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // triage waits on Gemini
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.Int("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exited")
}
