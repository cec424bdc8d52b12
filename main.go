/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/Fababidu43/APP-IA-EXCEL/config"
	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/logging"
	"github.com/Fababidu43/APP-IA-EXCEL/server"
)

// EmbeddedDocs holds the default configuration and its schema
//
//go:embed docs/config-example.json docs/config-schema.json
var EmbeddedDocs embed.FS

func main() {
	// Top-level panic recovery
	defer func() {
		if rec := recover(); rec != nil {
			_, _ = fmt.Fprintf(os.Stderr, "FATAL PANIC: %v\n", rec)
			os.Exit(2)
		}
	}()

	// Parse command line flags
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		version    = flag.Bool("version", false, "Show version information")
		help       = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	// Handle version flag
	if *version {
		fmt.Printf("%s v%s\n", global.ProgramName, global.Version)
		return
	}

	// Handle help flag
	if *help {
		showHelp()
		return
	}

	// Normal MCP server mode - pass embedded FS and optional config path
	opts := []config.Option{config.WithEmbeddedFS(EmbeddedDocs)}
	if *configPath != "" {
		opts = append(opts, config.WithConfigPath(*configPath))
	}
	cfg := config.New(opts...)

	// Load and validate configuration
	if err := cfg.Load(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger with config path
	logger, err := logging.New(cfg.LogFile())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *logging.Logger) {
		// Ensure logs are flushed before exit
		_ = logger.Sync()
		_ = logger.Close()
	}(logger)

	// Set log level from config
	logger.SetLevel(cfg.LogLevel())

	// Announce startup
	logger.Infof("%s v%s starting", global.ProgramName, global.Version)

	// Log first-run message
	if cfg.IsFirstRun() {
		logger.Infof("First run detected - created default configuration at %s", cfg.ConfigPath())
		logger.Info("Please edit the configuration to set the model endpoint and API key environment variable")
	}

	// Log warning if the API key is not available
	if cfg.APIKey() == "" {
		logger.Warn("API key environment variable is empty - run_start will fail until it is set")
	}

	// Create and start server
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}

	// Run the server
	if err := srv.Run(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

func showHelp() {
	fmt.Printf(`%s v%s - MCP Server for Batch Prompt Execution over Excel Workbooks

USAGE:
    %s [OPTIONS]

OPTIONS:
    --config PATH    Path to configuration file
                     (default: $%s or %s/%s)
    --version        Show version information
    --help          Show this help message

DESCRIPTION:
    %s is a Model Context Protocol (MCP) server that runs one LLM
    call per spreadsheet row:

    - Open an .xlsx workbook and preview its sheets
    - Write a prompt template with {Column} placeholders
    - Run the template over every row with bounded concurrency
    - Stop, resume, and retry failed rows without losing results
    - Export the workbook with results, plus CSV logs and reports

CONFIGURATION:
    The server requires a JSON configuration file that defines:

    - llm: endpoint base URL, API key environment variable, models
    - runner: concurrency, pacing, rate limit, and cache settings
    - template: placeholder delimiters (default: { and })

    On first run, a default configuration is created in %s.
    Edit the config file to point at your model endpoint.

FIRST RUN:
    1. Run %s once to create default config
    2. Edit %s/%s and export your API key
    3. Run %s again to start the server

EXAMPLES:
    # Start with default config
    %s

    # Start with custom config
    %s --config /path/to/config.json

    # Show version
    %s --version

ENVIRONMENT:
    %s    Path to configuration file (if --config not used)
`, global.ProgramName, global.Version,
		global.ProgramName,
		global.ConfigEnvVar, global.DefaultBaseDir, global.DefaultConfigFileName,
		global.ProgramName,
		global.DefaultBaseDir,
		global.ProgramName,
		global.DefaultBaseDir, global.DefaultConfigFileName,
		global.ProgramName,
		global.ProgramName,
		global.ProgramName,
		global.ProgramName,
		global.ConfigEnvVar)
}
