// Package main runs the mention watcher: Telegram listener, alert engine,
// pruning sweep scheduler and the health/metrics/status HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"

	"mention-radar/internal/admin"
	"mention-radar/internal/alert"
	"mention-radar/internal/config"
	"mention-radar/internal/notify"
	"mention-radar/internal/observability"
	"mention-radar/internal/oracle"
	"mention-radar/internal/storage"
	"mention-radar/internal/storage/backend"
	"mention-radar/internal/sweep"
	"mention-radar/internal/telegram"
)

// Watcher holds process-wide state exposed on /status.
type Watcher struct {
	store    storage.MentionStore
	backend  string
	channels int
	dryRun   bool
	logger   *log.Logger

	mu            sync.Mutex
	started       time.Time
	lastSweep     time.Time
	lastResult    sweep.Result
	sweepRuns     int
	sweepRunning  bool
	lastSweepFail string
}

func main() {
	config.LoadEnvFile(".env")

	defaultAddr := ":10000"
	if port := os.Getenv("PORT"); port != "" {
		defaultAddr = ":" + port
	}

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	sqlitePath := flag.String("sqlite-path", os.Getenv("SQLITE_PATH"), "SQLite database file (default from config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	httpAddr := flag.String("http-addr", defaultAddr, "HTTP address for /health, /metrics and /status")
	dryRun := flag.Bool("dry-run", false, "Log notifications instead of sending them")

	flag.Parse()

	logger := log.New(os.Stdout, "[watcher] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireBot(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeOpts := backend.Options{UseMemory: *useMemory, PostgresDSN: *postgresDSN, SQLitePath: *sqlitePath}.WithSQLiteFallback(cfg.SQLitePath)

	store, cleanup, err := backend.Open(ctx, storeOpts)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer cleanup()
	logger.Printf("Using %s storage", storeOpts.Name())

	bot, err := telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, true))
	if err != nil {
		logger.Fatalf("Failed to create bot: %v", err)
	}

	var sink notify.Sink = notify.NewTelegramSink(bot, cfg.NotifyChatID, log.New(os.Stdout, "[notify] ", log.LstdFlags))
	if *dryRun {
		sink = notify.NewLogSink(log.New(os.Stdout, "[dry-run] ", log.LstdFlags))
	}

	lookup := oracle.NewClient(cfg.Oracle.BaseURL,
		oracle.WithTimeout(cfg.Oracle.Timeout),
		oracle.WithLogger(log.New(os.Stdout, "[oracle] ", log.LstdFlags)),
	)

	engine := alert.NewEngine(alert.Options{
		Store:               store,
		Oracle:              lookup,
		Sink:                sink,
		Channels:            cfg.Channels,
		PrivilegedChannelID: cfg.PrivilegedChannelID,
		TrustedSenders:      cfg.TrustedSenders,
		Threshold:           cfg.Threshold,
		Logger:              log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})

	sweepLogger := log.New(os.Stdout, "[sweep] ", log.LstdFlags)
	sweeper := sweep.NewSweeper(sweep.Options{
		Store:    store,
		Oracle:   lookup,
		FloorUSD: &cfg.Sweep.FloorUSD,
		Delay:    cfg.Sweep.Delay,
		Logger:   sweepLogger,
	})

	w := &Watcher{
		store:    store,
		backend:  storeOpts.Name(),
		channels: cfg.Channels.Len(),
		dryRun:   *dryRun,
		logger:   logger,
		started:  time.Now(),
	}
	scheduler := sweep.NewScheduler(&trackedSweeper{sweeper: sweeper, watcher: w}, cfg.Sweep.Interval, sweepLogger)

	listener := telegram.NewListener(telegram.Options{
		Bot:           bot,
		Handler:       engine,
		Commands:      admin.NewCommands(store, log.New(os.Stdout, "[admin] ", log.LstdFlags)),
		Channels:      cfg.Channels,
		AdminChatID:   cfg.NotifyChatID,
		MaxConcurrent: int64(cfg.MaxConcurrent),
		Logger:        log.New(os.Stdout, "[telegram] ", log.LstdFlags),
	})

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Printf("Monitoring %d channels, threshold %d, privileged channel %q", cfg.Channels.Len(), cfg.Threshold, cfg.PrivilegedChannelID)
	for _, id := range cfg.Channels.IDs() {
		name, _ := cfg.Channels.Name(id)
		logger.Printf("  channel %s: %s", id, name)
	}
	logger.Printf("Sweep every %s prunes tokens with FDV below $%s", cfg.Sweep.Interval, cfg.Sweep.FloorUSD.StringFixed(2))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := listener.Run(gctx); err != nil {
			return err
		}
		// stream closed: stop the other components too
		return context.Canceled
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return w.serveHTTP(gctx, *httpAddr)
	})

	err = g.Wait()
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Watcher error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// trackedSweeper records each pass on the Watcher for /status.
type trackedSweeper struct {
	sweeper *sweep.Sweeper
	watcher *Watcher
}

func (t *trackedSweeper) RunOnce(ctx context.Context) (sweep.Result, error) {
	w := t.watcher
	w.mu.Lock()
	w.sweepRunning = true
	w.mu.Unlock()

	res, err := t.sweeper.RunOnce(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sweepRunning = false
	w.sweepRuns++
	w.lastSweep = time.Now()
	w.lastResult = res
	w.lastSweepFail = ""
	if err != nil {
		w.lastSweepFail = err.Error()
	}
	return res, err
}

// serveHTTP serves liveness, metrics and status until ctx is cancelled.
func (w *Watcher) serveHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	alive := func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	}
	mux.HandleFunc("/", alive)
	mux.HandleFunc("/health", alive)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", w.handleStatus)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		w.logger.Printf("Starting HTTP server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string       `json:"status"`
	Uptime        string       `json:"uptime"`
	Started       time.Time    `json:"started"`
	Backend       string       `json:"backend"`
	DryRun        bool         `json:"dry_run"`
	Channels      int          `json:"monitored_channels"`
	TrackedTokens int          `json:"tracked_tokens"`
	SweepRuns     int          `json:"sweep_runs"`
	SweepRunning  bool         `json:"sweep_running"`
	LastSweep     time.Time    `json:"last_sweep,omitempty"`
	LastResult    sweep.Result `json:"last_sweep_result"`
	LastSweepErr  string       `json:"last_sweep_error,omitempty"`
}

// handleStatus returns watcher status as JSON.
func (w *Watcher) handleStatus(rw http.ResponseWriter, r *http.Request) {
	tracked, err := w.store.CountTokens(r.Context())
	if err != nil {
		tracked = -1
	}

	w.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(w.started).Round(time.Second).String(),
		Started:       w.started,
		Backend:       w.backend,
		DryRun:        w.dryRun,
		Channels:      w.channels,
		TrackedTokens: tracked,
		SweepRuns:     w.sweepRuns,
		SweepRunning:  w.sweepRunning,
		LastSweep:     w.lastSweep,
		LastResult:    w.lastResult,
		LastSweepErr:  w.lastSweepFail,
	}
	w.mu.Unlock()

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(resp)
}
