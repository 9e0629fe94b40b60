package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ganjine/parsatext/internal/analyzer"
	"github.com/ganjine/parsatext/internal/database"
	"github.com/ganjine/parsatext/internal/normalize"
	"github.com/ganjine/parsatext/internal/queue"
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

	logger.Info("parsatext worker initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("parsatext-worker")
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

	dbPathDefault := getEnv("DB_PATH", "parsatext.db")
	redisAddrDefault := getEnv("REDIS_ADDR", "localhost:6379")
	concurrencyDefault := getEnvInt("WORKER_CONCURRENCY", 4)
	richNormalizerDefault := getEnvBool("USE_RICH_NORMALIZER", true)

	var (
		dbPath         = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		redisAddr      = flag.String("redis", redisAddrDefault, "Redis address for the task queue (env: REDIS_ADDR)")
		concurrency    = flag.Int("concurrency", concurrencyDefault, "Number of concurrent tasks (env: WORKER_CONCURRENCY)")
		richNormalizer = flag.Bool("rich-normalizer", richNormalizerDefault, "Enable full Persian normalization (env: USE_RICH_NORMALIZER)")
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

	normalizer, _ := normalize.Select(*richNormalizer)
	textAnalyzer := analyzer.New(normalizer)

	worker := queue.NewWorker(queue.WorkerConfig{
		RedisAddr:   *redisAddr,
		Concurrency: *concurrency,
	}, db, textAnalyzer)

	// Run is blocking, so start it in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- worker.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		worker.Shutdown()
	case err := <-errCh:
		if err != nil {
			logger.Error("worker failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("worker stopped")
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

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
