package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/koda/internal/api"
	"github.com/erazemk/koda/internal/config"
	"github.com/erazemk/koda/internal/db"
	"github.com/erazemk/koda/internal/scan"
	"github.com/erazemk/koda/internal/service"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("koda", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", cfg.DBPath, "")
	fs.StringVar(&dbPath, "d", cfg.DBPath, "")

	var addr string
	fs.StringVar(&addr, "addr", cfg.Addr, "")
	fs.StringVar(&addr, "a", cfg.Addr, "")

	var baseURL string
	fs.StringVar(&baseURL, "base-url", cfg.BaseURL, "")
	fs.StringVar(&baseURL, "b", cfg.BaseURL, "")

	var logPath string
	fs.StringVar(&logPath, "log", cfg.LogPath, "")
	fs.StringVar(&logPath, "l", cfg.LogPath, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: koda [flags]

Flags:
  -d, -db <path>           SQLite database path (default: koda.sqlite3)
  -a, -addr <host:port>    listen address (default: :8080)
  -b, -base-url <url>      public base URL encoded into dynamic codes
                           (default: http://localhost:8080)
  -l, -log <path>          log file path (default: no file, stdout/stderr only)
  -h, -help                show this help and exit

Flags override the KODA_ADDR, KODA_DB, KODA_BASE_URL and KODA_LOG
environment variables.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Open database and apply migrations (idempotent).
	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	recorder := scan.NewRecorder(database, cfg.QueueSize)
	svc := service.New(database, baseURL)

	handler := api.LoggingMiddleware(api.NewRouter(database, svc, recorder))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr, "base_url", baseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Drain queued scans before the database closes.
	recorder.Close()

	slog.Info("server stopped, closing database")
}
