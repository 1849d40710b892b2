// Package main runs a single pruning sweep and exits.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"mention-radar/internal/config"
	"mention-radar/internal/oracle"
	"mention-radar/internal/storage/backend"
	"mention-radar/internal/sweep"
)

func main() {
	config.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	sqlitePath := flag.String("sqlite-path", os.Getenv("SQLITE_PATH"), "SQLite database file (default from config)")
	floor := flag.String("floor", "", "FDV floor in USD (overrides config)")
	delay := flag.Duration("delay", 0, "Pause between lookups (overrides config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[prune] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	floorUSD := cfg.Sweep.FloorUSD
	if *floor != "" {
		floorUSD, err = decimal.NewFromString(*floor)
		if err != nil || floorUSD.IsNegative() {
			logger.Fatalf("Invalid --floor %q", *floor)
		}
	}
	pause := cfg.Sweep.Delay
	if *delay > 0 {
		pause = *delay
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeOpts := backend.Options{PostgresDSN: *postgresDSN, SQLitePath: *sqlitePath}.WithSQLiteFallback(cfg.SQLitePath)

	store, cleanup, err := backend.Open(ctx, storeOpts)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer cleanup()

	sweeper := sweep.NewSweeper(sweep.Options{
		Store:    store,
		Oracle:   oracle.NewClient(cfg.Oracle.BaseURL, oracle.WithTimeout(cfg.Oracle.Timeout), oracle.WithLogger(logger)),
		FloorUSD: &floorUSD,
		Delay:    pause,
		Logger:   logger,
	})

	res, err := sweeper.RunOnce(ctx)
	if err != nil {
		logger.Printf("Sweep aborted after %d tokens: %v", res.Checked, err)
		cleanup()
		os.Exit(1)
	}

	logger.Printf("Done: checked=%d deleted=%d retained=%d unavailable=%d errors=%d",
		res.Checked, res.Deleted, res.Retained, res.Unavailable, res.Errors)
}
