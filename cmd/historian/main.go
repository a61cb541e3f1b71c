// cmd/historian is an asynchronous service that pops client action records from
// a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/galactic-uno/internal/cache"
	"github.com/jason-s-yu/galactic-uno/internal/config"
	"github.com/jason-s-yu/galactic-uno/internal/database"
	"github.com/jason-s-yu/galactic-uno/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, database.DSNFromEnv())
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	store := database.NewActionStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.NewService(rdb, store, historian.Options{
		Queue:      cfg.HistorianQueueName,
		BatchSize:  config.GetEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(config.GetEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(config.GetEnvInt("SESSION_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}, logger)
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}
