package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/config"
	"github.com/felixgeelhaar/stockwise/internal/daemon"
	mcpserver "github.com/felixgeelhaar/stockwise/internal/mcp"
	"github.com/felixgeelhaar/stockwise/internal/predict"
	"github.com/felixgeelhaar/stockwise/internal/session"
)

// cmdMCP serves the MCP tools on stdio, or over HTTP when an address is
// given. Stdout belongs to the stdio protocol, so diagnostics go to stderr
// only when STOCKWISE_MCP_DEBUG is set.
func cmdMCP(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logOut io.Writer = io.Discard
	if os.Getenv("STOCKWISE_MCP_DEBUG") != "" {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dir, err := config.EnsureStockwiseDir()
	if err != nil {
		return fmt.Errorf("get stockwise dir: %w", err)
	}

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The daemon owns the session; MCP reads the same persisted record
	store, err := daemon.OpenStorage(ctx, cfg.Storage, dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	predictions := predict.NewService(daemon.PredictConfig(cfg.Services, logger))
	defer predictions.Close()

	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Inventory: mcpserver.NewDaemonInventory(baseURL(cfg.Daemon), 5*time.Second),
		Sessions:  session.NewStore(store, logger),
		Predict:   predictions,
		Version:   Version,
	})

	if len(args) > 0 && args[0] != "" {
		fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", args[0])
		return mcpSrv.ServeHTTP(ctx, args[0])
	}
	return mcpSrv.ServeStdio(ctx)
}
