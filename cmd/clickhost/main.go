package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	specPath := flag.String("spec", "", "Path to application spec file (overrides config)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("clickhost %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	// Load configuration
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	if *specPath != "" {
		cfg.Spec.Path = *specPath
	}

	// Setup logger
	logger := SetupLogger(cfg)
	logger.Info("starting clickhost",
		"version", Version,
		"spec", cfg.Spec.Path,
	)

	// Create host
	host, err := NewHost(cfg, logger)
	if err != nil {
		if hErr, ok := err.(*HostError); ok {
			logger.Error("failed to create host",
				"error", hErr.Err,
				"operation", hErr.Op,
			)
			return hErr.ExitCode
		}
		logger.Error("failed to create host", "error", err)
		return ExitConfigError
	}

	// Run host
	ctx := context.Background()
	if err := host.Start(ctx); err != nil {
		if hErr, ok := err.(*HostError); ok {
			logger.Error("host error",
				"error", hErr.Err,
				"operation", hErr.Op,
			)
			return hErr.ExitCode
		}
		logger.Error("host error", "error", err)
		return ExitConfigError
	}

	return ExitSuccess
}
