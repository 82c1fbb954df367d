package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath   string
	LogLevel     string
	LogFormat    string
	Debug        bool
	SnapshotPath string
	ShowVersion  bool
	ShowHelp     bool
	Validate     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("CYCLEKIT_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: CYCLEKIT_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("CYCLEKIT_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: CYCLEKIT_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CYCLEKIT_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: CYCLEKIT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CYCLEKIT_LOG_FORMAT", ""),
		"Log format: json, text (env: CYCLEKIT_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("CYCLEKIT_DEBUG", false),
		"Enable verbose component tracing (env: CYCLEKIT_DEBUG)")

	flag.StringVar(&cfg.SnapshotPath, "snapshot",
		getEnv("CYCLEKIT_SNAPSHOT", ""),
		"Path to state snapshot file, empty to disable (env: CYCLEKIT_SNAPSHOT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - reactive component runtime demo

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with defaults (HTTP on :8080)
  %s

  # Run with a config file and verbose tracing
  %s --config=/etc/cyclekit/config.yaml --debug

  # Validate configuration only
  %s --config=config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
