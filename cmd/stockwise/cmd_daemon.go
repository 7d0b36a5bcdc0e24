package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/config"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// logTailLines is how much of the daemon log `stockwise logs` prints
const logTailLines = 50

// cmdStart starts the daemon in the background
func cmdStart() error {
	addr := daemonAddr()

	// Already up?
	if isRunning(addr) {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	dir, err := config.EnsureStockwiseDir()
	if err != nil {
		return fmt.Errorf("setup stockwise directory: %w", err)
	}

	bin, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	// Launch detached; stockwised writes its own log file
	cmd := exec.Command(bin)
	cmd.Dir = dir
	configureDaemonProcess(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Wait for the health endpoint
	fmt.Print("Starting daemon...")
	if waitFor(30, func() bool { return isRunning(addr) }) {
		fmt.Println(" ✓")
		fmt.Printf("Dashboard at %s\n", addr)
		return nil
	}
	fmt.Println(" ✗")
	return errors.New("daemon failed to start (check logs with 'stockwise logs')")
}

// cmdStop stops the daemon
func cmdStop() error {
	addr := daemonAddr()
	if !isRunning(addr) {
		fmt.Println("Daemon is not running")
		return nil
	}

	dir, err := config.StockwiseDir()
	if err != nil {
		return err
	}
	pid, err := readPID(filepath.Join(dir, pidFile))
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	// SIGTERM triggers the daemon's graceful shutdown
	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	if waitFor(50, func() bool { return !isRunning(addr) }) {
		fmt.Println(" ✓")
		return nil
	}
	fmt.Println(" ✗")
	return errors.New("daemon did not stop gracefully")
}

// waitFor polls cond every 100ms, printing a dot per miss
func waitFor(attempts int, cond func() bool) bool {
	for i := 0; i < attempts; i++ {
		time.Sleep(100 * time.Millisecond)
		if cond() {
			return true
		}
		fmt.Print(".")
	}
	return false
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("PID file %s is corrupt", path)
	}
	return pid, nil
}

// daemonStatus is the subset of GET /v1/status the CLI prints
type daemonStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	AuthState     string `json:"auth_state"`
	Storage       string `json:"storage"`
	Events        string `json:"events"`
	DemoFallback  bool   `json:"demo_fallback"`
	Services      []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"services"`
	Inventory struct {
		TotalProducts int `json:"total_products"`
		LowStockCount int `json:"low_stock_count"`
	} `json:"inventory"`
}

// cmdStatus shows daemon status
func cmdStatus() error {
	addr := daemonAddr()
	if !isRunning(addr) {
		fmt.Println("Status: stopped")
		return nil
	}

	resp, err := httpClient.Get(addr + "/v1/status")
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()

	var st daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}
	printStatus(os.Stdout, addr, st)
	return nil
}

func printStatus(w io.Writer, addr string, st daemonStatus) {
	rows := [][2]string{
		{"Status", st.Status},
		{"Version", st.Version},
		{"Uptime", (time.Duration(st.UptimeSeconds) * time.Second).String()},
		{"Session", st.AuthState},
		{"Storage", st.Storage},
		{"Events", st.Events},
		{"Products", fmt.Sprintf("%d (%d low on stock)", st.Inventory.TotalProducts, st.Inventory.LowStockCount)},
		{"Demo data", strconv.FormatBool(st.DemoFallback)},
		{"Address", addr},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-10s %s\n", row[0]+":", row[1])
	}
	fmt.Fprintln(w, "Services:")
	for _, svc := range st.Services {
		fmt.Fprintf(w, "  %-12s %s\n", svc.Name, svc.URL)
	}
}

// cmdLogs prints the last lines of the daemon log
func cmdLogs() error {
	dir, err := config.StockwiseDir()
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(dir, "logs", logFile))
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	lines, err := tailLines(f, logTailLines)
	if err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// tailLines returns the last n lines of r
func tailLines(r io.Reader, n int) ([]string, error) {
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	return ring, scanner.Err()
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(addr string) bool {
	resp, err := httpClient.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary looks on PATH, next to this executable, then in the
// usual build locations
func findDaemonBinary() (string, error) {
	if p, err := exec.LookPath("stockwised"); err == nil {
		return p, nil
	}

	candidates := []string{"/usr/local/bin/stockwised", "./stockwised", "./cmd/stockwised/stockwised"}
	if self, err := os.Executable(); err == nil {
		candidates = append([]string{filepath.Join(filepath.Dir(self), "stockwised")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("stockwised binary not found (build with 'go build ./cmd/stockwised')")
}
