package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ganjine/parsatext/internal/analyzer"
	"github.com/ganjine/parsatext/internal/api"
	"github.com/ganjine/parsatext/internal/database"
	"github.com/ganjine/parsatext/internal/normalize"
	"github.com/ganjine/parsatext/internal/qa"
	"github.com/ganjine/parsatext/internal/queue"
	"github.com/ganjine/parsatext/internal/wiki"
	"github.com/ganjine/parsatext/pkg/logging"
	"github.com/ganjine/parsatext/pkg/metrics"
	"github.com/ganjine/parsatext/pkg/tracing"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	logger.Info("parsatext service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("parsatext")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "parsatext.db")
	redisAddrDefault := getEnv("REDIS_ADDR", "localhost:6379")
	qaDataDefault := getEnv("QA_DATA_PATH", "")
	uploadDirDefault := getEnv("UPLOAD_DIR", "uploads")
	wikiURLDefault := getEnv("WIKI_URL", "https://fa.wikipedia.org")
	richNormalizerDefault := getEnvBool("USE_RICH_NORMALIZER", true)
	qaThresholdDefault := getEnvFloat("QA_THRESHOLD", qa.DefaultThreshold)

	var (
		port           = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath         = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		redisAddr      = flag.String("redis", redisAddrDefault, "Redis address for the task queue (env: REDIS_ADDR)")
		qaDataPath     = flag.String("qa-data", qaDataDefault, "Path to the QA dataset, empty for the built-in set (env: QA_DATA_PATH)")
		uploadDir      = flag.String("upload-dir", uploadDirDefault, "Directory for uploaded batch files (env: UPLOAD_DIR)")
		wikiURL        = flag.String("wiki-url", wikiURLDefault, "Wikipedia base URL for QA fallback (env: WIKI_URL)")
		richNormalizer = flag.Bool("rich-normalizer", richNormalizerDefault, "Enable full Persian normalization (env: USE_RICH_NORMALIZER)")
		qaThreshold    = flag.Float64("qa-threshold", qaThresholdDefault, "Minimum QA match score (env: QA_THRESHOLD)")
	)
	flag.Parse()

	// Initialize database
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Queue client for batch jobs
	queueClient := queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
	defer queueClient.Close()

	// Text analysis pipeline
	normalizer, tokenizer := normalize.Select(*richNormalizer)
	textAnalyzer := analyzer.New(normalizer)

	// QA engine with Wikipedia fallback
	qaCfg := qa.Config{
		DatasetPath: *qaDataPath,
		Threshold:   *qaThreshold,
	}
	wikiClient, err := wiki.New(*wikiURL)
	if err != nil {
		logger.Warn("failed to initialize wikipedia client, QA runs without fallback",
			"error", err,
			"wiki_url", *wikiURL,
		)
	} else {
		qaCfg.Fallback = wikiClient
		logger.Info("wikipedia fallback initialized", "url", *wikiURL)
	}
	qaEngine := qa.New(normalizer, tokenizer, qaCfg)

	businessMetrics := metrics.NewBusinessMetrics("parsatext")

	// Initialize API handler
	apiHandler := api.NewHandler(db, textAnalyzer, qaEngine, queueClient, *uploadDir, businessMetrics)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("parsatext")(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("parsatext service starting",
			"port", *port,
			"database", *dbPath,
			"redis", *redisAddr,
			"upload_dir", *uploadDir,
			"rich_normalizer", *richNormalizer,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
