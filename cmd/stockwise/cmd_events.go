package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/stockwise/internal/config"
	"github.com/felixgeelhaar/stockwise/internal/events"
)

// cmdEvents tails inventory events from the AMQP exchange.
// An optional binding key narrows the stream, e.g. "stock.*".
func cmdEvents(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Events.Backend != config.EventsAMQP {
		return fmt.Errorf("events backend is %q; set events.backend to %q to tail events", cfg.Events.Backend, config.EventsAMQP)
	}

	bindingKey := "#"
	if len(args) > 0 && args[0] != "" {
		bindingKey = args[0]
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	conn, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Listening on %s (%s). Press Ctrl+C to stop.\n", cfg.Events.Exchange, bindingKey)
	err = events.Subscribe(ctx, conn, bindingKey, printEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(e events.Event) {
	fmt.Printf("%s  %-16s %s\n", e.OccurredAt.Local().Format("15:04:05"), e.Type, formatPayload(e.Payload))
}

func formatPayload(payload []byte) string {
	if len(payload) == 0 {
		return "-"
	}
	return string(payload)
}
