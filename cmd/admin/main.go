// Package main provides the operator CLI: stats and delete.
//
// Usage:
//
//	admin [flags] stats
//	admin [flags] delete <identifier>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"mention-radar/internal/admin"
	"mention-radar/internal/config"
	"mention-radar/internal/storage/backend"
)

func main() {
	config.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	sqlitePath := flag.String("sqlite-path", os.Getenv("SQLITE_PATH"), "SQLite database file (default from config)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] stats | delete <identifier>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "[admin] ", log.LstdFlags)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	storeOpts := backend.Options{PostgresDSN: *postgresDSN, SQLitePath: *sqlitePath}.WithSQLiteFallback(cfg.SQLitePath)

	ctx := context.Background()
	store, cleanup, err := backend.Open(ctx, storeOpts)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}

	code := run(ctx, admin.NewCommands(store, logger), args)
	cleanup()
	os.Exit(code)
}

func run(ctx context.Context, cmds *admin.Commands, args []string) int {
	switch args[0] {
	case "stats":
		n, err := cmds.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats: %v\n", err)
			return 1
		}
		fmt.Printf("Unique tokens tracked: %d\n", n)
		return 0

	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "delete requires exactly one identifier")
			return 2
		}
		status, err := cmds.Delete(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "delete: %v\n", err)
			return 1
		}
		fmt.Printf("%s: %s\n", args[1], status)
		if status != admin.StatusRemoved {
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return 2
	}
}
