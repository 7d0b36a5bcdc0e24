package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer
	h := teeHandler{
		slog.NewJSONHandler(&jsonBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&textBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h).With("component", "catalog")

	logger.Debug("detail")
	logger.WithGroup("stock").Warn("low stock", "product", "Keyboard Mechanical")

	if !strings.Contains(jsonBuf.String(), `"msg":"detail"`) || !strings.Contains(jsonBuf.String(), `"component":"catalog"`) {
		t.Errorf("json output = %q", jsonBuf.String())
	}
	if strings.Contains(textBuf.String(), "detail") {
		t.Error("text handler should skip debug records")
	}
	if !strings.Contains(textBuf.String(), "stock.product") {
		t.Errorf("text output = %q", textBuf.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) = false, want true")
	}
}

func TestPIDFile(t *testing.T) {
	p := pidFile(filepath.Join(t.TempDir(), pidFileName))

	if err := p.write(); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	data, err := os.ReadFile(string(p))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != strconv.Itoa(os.Getpid()) {
		t.Errorf("pid file = %q", got)
	}

	p.remove()
	if _, err := os.Stat(string(p)); !os.IsNotExist(err) {
		t.Error("pid file not removed")
	}
}
