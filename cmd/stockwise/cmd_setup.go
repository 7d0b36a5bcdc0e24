package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/stockwise/internal/config"
	"github.com/felixgeelhaar/stockwise/internal/predict"
)

// cmdInit initializes Stockwise for first-time use
func cmdInit() error {
	fmt.Println("Stockwise - First-Time Setup")
	fmt.Println("============================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Creating ~/.stockwise directory structure... ")
	dir, err := config.EnsureStockwiseDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Configuration already exists ✓")
		fmt.Println("Edit it directly or remove it to run setup again.")
		return nil
	}

	cfg := config.DefaultLocalConfig()
	var secrets config.SecretsConfig

	fmt.Println()
	fmt.Println("Session Storage")
	fmt.Println("---------------")
	fmt.Println("json (default): one file per key under ~/.stockwise/state")
	fmt.Println("sqlite:         ~/.stockwise/stockwise.db")
	fmt.Println("postgres:       a shared PostgreSQL database")
	switch backend := prompt(reader, "Backend [json]: "); backend {
	case "", config.BackendJSON:
	case config.BackendSQLite:
		cfg.Storage.Backend = config.BackendSQLite
	case config.BackendPostgres:
		cfg.Storage.Backend = config.BackendPostgres
		secrets.PostgresURL = prompt(reader, "PostgreSQL URL: ")
	default:
		return fmt.Errorf("unknown backend %q", backend)
	}

	fmt.Println()
	fmt.Println("Events")
	fmt.Println("------")
	if url := prompt(reader, "RabbitMQ URL for inventory events (or press Enter to log them): "); url != "" {
		cfg.Events.Backend = config.EventsAMQP
		secrets.AMQPURL = url
	}

	fmt.Println()
	fmt.Println("Prediction Services")
	fmt.Println("-------------------")
	answer := strings.ToLower(prompt(reader, "Show demo data when a service is down? [y/N]: "))
	cfg.Services.DemoFallback = answer == "y" || answer == "yes"

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Print("\nSaving configuration... ")
	if err := config.SaveLocalConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if secrets.PostgresURL != "" || secrets.AMQPURL != "" {
		if err := config.SaveSecrets(secrets); err != nil {
			return fmt.Errorf("save secrets: %w", err)
		}
	}
	fmt.Println("✓")

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. stockwise start    # Start the daemon")
	fmt.Println("  2. stockwise doctor   # Check the prediction services")
	fmt.Printf("  3. Open %s in a browser\n", baseURL(cfg.Daemon))
	fmt.Println()
	fmt.Println("For AI assistants: configure MCP with the 'stockwise mcp' command")

	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// cmdDoctor checks configuration and service reachability
func cmdDoctor() error {
	fmt.Println("Checking Stockwise setup...")

	allGood := true

	fmt.Print("Directory: ")
	dir, err := config.StockwiseDir()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Println("✗ not created (run 'stockwise init')")
		allGood = false
	} else {
		fmt.Printf("✓ %s\n", dir)
	}

	fmt.Print("Config:    ")
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Println("✓ valid")
	}

	fmt.Println("\nPrediction Services:")
	for _, svc := range services(cfg.Services) {
		fmt.Printf("  %-12s ", svc.Name)
		if err := checkService(svc.URL); err != nil {
			fmt.Printf("✗ %v\n", err)
			allGood = false
		} else {
			fmt.Printf("✓ reachable at %s\n", svc.URL)
		}
	}

	fmt.Print("\nDaemon:    ")
	if isRunning(baseURL(cfg.Daemon)) {
		fmt.Println("✓ running")
	} else {
		fmt.Println("✗ not running (run 'stockwise start')")
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else if cfg.Services.DemoFallback {
		fmt.Println("Some checks failed. Affected panels will show demo data.")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}

	return nil
}

func services(cfg config.ServicesConfig) []predict.Endpoint {
	return []predict.Endpoint{
		{Name: "fraud", URL: cfg.FraudURL},
		{Name: "supplier", URL: cfg.SupplierURL},
		{Name: "forecast", URL: cfg.ForecastURL},
		{Name: "procurement", URL: cfg.ProcurementURL},
	}
}

// checkService reports whether anything answers HTTP at url. The services
// only accept their own routes, so any status code counts as reachable.
func checkService(url string) error {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	resp.Body.Close()
	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Stockwise Configuration")

	fmt.Println("\nDaemon:")
	fmt.Printf("  bind: %s:%d\n", cfg.Daemon.Bind, cfg.Daemon.Port)
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)

	fmt.Println("\nStorage:")
	fmt.Printf("  backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == config.BackendPostgres {
		fmt.Printf("  postgres_url: %s\n", configured(cfg.Storage.PostgresURL))
	}

	fmt.Println("\nServices:")
	for _, svc := range services(cfg.Services) {
		fmt.Printf("  %s: %s\n", svc.Name, svc.URL)
	}
	fmt.Printf("  timeout: %ds\n", cfg.Services.TimeoutSeconds)
	fmt.Printf("  demo_fallback: %t\n", cfg.Services.DemoFallback)

	fmt.Println("\nEvents:")
	fmt.Printf("  backend: %s\n", cfg.Events.Backend)
	if cfg.Events.Backend == config.EventsAMQP {
		fmt.Printf("  amqp_url: %s\n", configured(cfg.Events.AMQPURL))
		fmt.Printf("  exchange: %s\n", cfg.Events.Exchange)
	}

	dir, _ := config.StockwiseDir()
	fmt.Printf("\nConfig path: %s\n", filepath.Join(dir, "config.yaml"))

	return nil
}

func configured(secret string) string {
	if secret == "" {
		return "✗ not set"
	}
	return "✓ set (secrets.yaml)"
}
