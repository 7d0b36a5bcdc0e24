package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/felixgeelhaar/stockwise/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	pidFile = "stockwised.pid"
	logFile = "stockwised.log"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "events":
		err = cmdEvents(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("stockwise %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// daemonAddr is the base URL of the local daemon as configured
func daemonAddr() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		cfg = config.DefaultLocalConfig()
	}
	return baseURL(cfg.Daemon)
}

func baseURL(d config.DaemonConfig) string {
	host := d.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(d.Port))
}

func printUsage() {
	fmt.Println(`Stockwise - Inventory dashboard for small shops

Usage:
  stockwise <command> [arguments]

Setup Commands:
  init            Initialize Stockwise (first-time setup)
  doctor          Check configuration and prediction services
  config          Show current configuration

Daemon Commands:
  start           Start the Stockwise daemon
  stop            Stop the Stockwise daemon
  status          Show daemon status
  logs            View daemon logs
  events [key]    Follow inventory events from the broker (default key: #)

Integration Commands:
  mcp [addr]      Start MCP server on stdio, or on HTTP at addr

Other:
  help            Show this help message
  version         Show version information

Examples:
  stockwise start                 # Start daemon, then open the dashboard
  stockwise doctor                # Check prediction services
  stockwise events "stock.#"      # Follow stock events
  stockwise mcp                   # Start MCP server for an AI assistant`)
}
