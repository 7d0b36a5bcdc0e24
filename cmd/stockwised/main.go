package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/config"
	"github.com/felixgeelhaar/stockwise/internal/daemon"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	pidFileName     = "stockwised.pid"
	logFileName     = "stockwised.log"
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("stockwised exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// State lives in ~/.stockwise
	dir, err := config.EnsureStockwiseDir()
	if err != nil {
		return fmt.Errorf("ensure stockwise dir: %w", err)
	}

	// Load configuration
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Setup logging
	closeLog, err := installLogger(filepath.Join(dir, "logs", logFileName), parseLogLevel(cfg.Daemon.LogLevel))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closeLog()

	// PID file lets `stockwise stop` find us
	pid := pidFile(filepath.Join(dir, pidFileName))
	if err := pid.write(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer pid.remove()

	// Session is rehydrated inside NewServer, before the listener opens
	server, err := daemon.NewServer(context.Background(), daemon.ServerConfig{
		Config:  cfg,
		DataDir: dir,
		Version: Version,
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, server)
}

// serve runs the server until ctx is cancelled, then drains it
func serve(ctx context.Context, server *daemon.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("daemon stopped")
	return nil
}

// parseLogLevel accepts debug, info, warn and error in any case. Anything
// else means info.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// installLogger makes the default logger write JSON to path and text to
// stderr. The returned func closes the file.
func installLogger(path string, level slog.Level) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	slog.SetDefault(slog.New(teeHandler{
		slog.NewJSONHandler(f, opts),
		slog.NewTextHandler(os.Stderr, opts),
	}))

	return func() { _ = f.Close() }, nil
}

type pidFile string

func (p pidFile) write() error {
	return os.WriteFile(string(p), []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

func (p pidFile) remove() {
	_ = os.Remove(string(p))
}

// teeHandler sends each record to every handler that accepts its level
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
