package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"brightpath/internal/auth"
	"brightpath/internal/config"
	jobModels "brightpath/internal/domain/models/jobs"
	"brightpath/internal/generation/lorem"
	"brightpath/internal/handler"
	"brightpath/internal/jobs/kinds"
	"brightpath/internal/middleware"
	"brightpath/internal/repository/postgres"
	postgresIEP "brightpath/internal/repository/postgres/iep"
	postgresJobs "brightpath/internal/repository/postgres/jobs"
	serviceIEP "brightpath/internal/service/iep"
	serviceJobs "brightpath/internal/service/jobs"
	"brightpath/internal/worker"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logOut := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"workers", cfg.WorkerCount,
	)

	// Auth: JWKS in prod, static dev user otherwise
	var verifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		verifier = v
	} else {
		if cfg.Environment == "prod" {
			log.Fatal("JWKS_URL is required in prod")
		}
		logger.Warn("no JWKS_URL configured, using static dev auth", "user_id", cfg.DevUserID)
		verifier = &auth.StaticVerifier{UserID: cfg.DevUserID}
	}
	defer verifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	versionRepo := postgresIEP.NewVersionRepository(repoConfig)
	queueRepo := postgresJobs.NewQueueRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Load the job kind registry
	kindRegistry, err := kinds.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load job kind registry: %v", err)
	}
	logger.Info("job kinds registered", "kinds", kindRegistry.Kinds())

	// Create services. The generation kind's registry entry carries the
	// allocation retry ceiling; ALLOCATION_MAX_ATTEMPTS overrides it.
	allocAttempts := cfg.AllocationTries
	if allocAttempts == 0 {
		if settings, err := kindRegistry.Get(jobModels.KindGenerateVersion); err == nil {
			allocAttempts = settings.MaxAllocationAttempts
		}
	}
	versionService := serviceIEP.NewVersionService(versionRepo, txManager, allocAttempts, logger)
	jobService := serviceJobs.NewJobService(queueRepo, kindRegistry, logger)

	// Generation provider. The lorem provider stands in for the real
	// pipeline in dev; swap here when wiring a production generator.
	generator := lorem.New(cfg.GenerationDelay)

	// Start the worker pool
	handlers := worker.NewHandlerTable(versionService, generator, queueRepo, kindRegistry, logger)
	workerPool := worker.NewPool("worker", cfg.WorkerCount, queueRepo, handlers, cfg.PollInterval, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	// Create handlers
	jobHandler := handler.NewJobHandler(jobService, logger)
	versionHandler := handler.NewVersionHandler(versionService, logger)

	logger.Info("services initialized", "generator", generator.Name())

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", versionHandler.HealthCheck)

	// Job routes
	mux.HandleFunc("POST /api/jobs", jobHandler.SubmitJob)
	mux.HandleFunc("GET /api/jobs", jobHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/stats", jobHandler.GetQueueStats) // must come before {id}
	mux.HandleFunc("GET /api/jobs/{id}", jobHandler.GetJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", jobHandler.CancelJob)

	// Version routes
	mux.HandleFunc("POST /api/students/{studentID}/years/{year}/versions", versionHandler.CreateVersion)
	mux.HandleFunc("GET /api/students/{studentID}/years/{year}/versions", versionHandler.GetVersionHistory)
	mux.HandleFunc("GET /api/students/{studentID}/years/{year}/versions/latest", versionHandler.GetLatestVersion)
	mux.HandleFunc("GET /api/versions/{id}", versionHandler.GetVersion)
	mux.HandleFunc("POST /api/versions/{id}/finalize", versionHandler.FinalizeVersion)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS -> Recovery -> Auth -> Routes
	httpHandler = middleware.Auth(verifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: stop accepting requests, then stop the workers
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
