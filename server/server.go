/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package server exposes the batch prompt engine over MCP. Tools map 1:1 to
// session service operations; stdout belongs to the MCP transport.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Fababidu43/APP-IA-EXCEL/config"
	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/llm"
	"github.com/Fababidu43/APP-IA-EXCEL/logging"
	"github.com/Fababidu43/APP-IA-EXCEL/session"
)

// Server wraps the MCP server with our services
type Server struct {
	config    *config.Config
	logger    *logging.Logger
	sessions  *session.Service
	mcpServer *server.MCPServer
}

// New creates a new server instance
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	client := llm.NewClient(cfg.LLMBaseURL(), cfg.APIKey(),
		llm.WithTimeout(cfg.LLMTimeout()),
		llm.WithSystemPrompt(cfg.SystemPrompt()),
		llm.WithLogger(logger),
	)
	sessionService := session.NewService(cfg, logger, client)

	mcpServer := server.NewMCPServer(
		global.ProgramName,
		global.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	srv := &Server{
		config:    cfg,
		logger:    logger,
		sessions:  sessionService,
		mcpServer: mcpServer,
	}

	if err := srv.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return srv, nil
}

// readOnlyTool creates a tool with read-only annotations
// ReadOnly: true, Destructive: false, OpenWorld: false
func (s *Server) readOnlyTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))
	return mcp.NewTool(name, opts...)
}

// defaultTool creates a tool with default annotations (non-destructive)
// ReadOnly: false, Destructive: false, OpenWorld: false
func (s *Server) defaultTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))
	return mcp.NewTool(name, opts...)
}

// destructiveTool creates a tool with destructive annotations. Used for the
// export tools because they can overwrite files on disk.
// ReadOnly: false, Destructive: true, OpenWorld: false
func (s *Server) destructiveTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))
	return mcp.NewTool(name, opts...)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Workbook tools
	s.mcpServer.AddTool(
		s.defaultTool(global.ToolWorkbookOpen,
			mcp.WithDescription("Open an Excel workbook and create a session for it. Returns the session ID used by all other tools."),
			mcp.WithString("path",
				mcp.Description("Path to the .xlsx file"),
				mcp.Required(),
			),
		), s.handleWorkbookOpen)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolWorkbookSheets,
			mcp.WithDescription("List the sheets of an open workbook with their columns and row counts."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
		), s.handleWorkbookSheets)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolSheetPreview,
			mcp.WithDescription("Show the first rows of a sheet so the prompt template can be written against real data."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
			mcp.WithString("sheet",
				mcp.Description("Sheet name"),
				mcp.Required(),
			),
			mcp.WithNumber("max_rows",
				mcp.Description("Maximum number of data rows to return (default: 10)"),
			),
		), s.handleSheetPreview)

	// Template tools
	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolTemplateCheck,
			mcp.WithDescription("Validate a prompt template against a sheet's columns without starting a run. Placeholders reference columns by name, e.g. {Name}."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
			mcp.WithString("sheet",
				mcp.Description("Sheet name"),
				mcp.Required(),
			),
			mcp.WithString("template",
				mcp.Description("Prompt template text"),
				mcp.Required(),
			),
			mcp.WithString("delimiters",
				mcp.Description("Placeholder delimiters, open marker then close marker, split down the middle (default: configured, normally \"{}\")"),
			),
		), s.handleTemplateCheck)

	// Run control tools
	s.mcpServer.AddTool(
		s.defaultTool(global.ToolRunStart,
			mcp.WithDescription("Start a batch run: render the template for each row and send the prompts to the model. Rows whose output cell already holds text are skipped, so an interrupted run can be resumed. Returns immediately; poll run_status for progress."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
			mcp.WithString("sheet",
				mcp.Description("Sheet name"),
				mcp.Required(),
			),
			mcp.WithString("template",
				mcp.Description("Prompt template text"),
				mcp.Required(),
			),
			mcp.WithString("output_column",
				mcp.Description("Column to write results into (default: \"AI Response\"). Created if missing."),
			),
			mcp.WithString("delimiters",
				mcp.Description("Placeholder delimiters, open marker then close marker, split down the middle (default: configured, normally \"{}\")"),
			),
			mcp.WithString("model",
				mcp.Description("Model name (default: configured default model)"),
			),
			mcp.WithNumber("temperature",
				mcp.Description("Sampling temperature between 0 and 1 (default: configured default)"),
			),
			mcp.WithNumber("concurrency",
				mcp.Description("Maximum parallel requests (default: configured max_concurrency)"),
			),
			mcp.WithNumber("min_request_interval_ms",
				mcp.Description("Minimum milliseconds between consecutive requests, independent of concurrency (default: configured value)"),
			),
			mcp.WithNumber("row_limit",
				mcp.Description("Process at most this many rows, for trial runs (default: 0 = all rows)"),
			),
		), s.handleRunStart)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolRunStatus,
			mcp.WithDescription("Report the state of the session's run: counts, outcome, and failed rows."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
		), s.handleRunStatus)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolRunStop,
			mcp.WithDescription("Request cooperative cancellation of the active run. Rows already in flight finish; no new rows start. Results written so far are kept."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
		), s.handleRunStop)

	s.mcpServer.AddTool(
		s.defaultTool(global.ToolRunRetry,
			mcp.WithDescription("Re-dispatch only the rows whose last attempt failed, re-rendering each prompt from the current table contents."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
		), s.handleRunRetry)

	// Export tools
	s.mcpServer.AddTool(
		s.destructiveTool(global.ToolExportWorkbook,
			mcp.WithDescription("Write the workbook with results folded in to the files directory. Untouched sheets are preserved byte-for-byte. Safe to call mid-run for a snapshot of progress."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
			mcp.WithString("filename",
				mcp.Description("Output filename within the files directory"),
				mcp.Required(),
			),
			mcp.WithBoolean("convert_markdown",
				mcp.Description("Also convert the exported workbook to markdown alongside it (default: false)"),
			),
		), s.handleExportWorkbook)

	s.mcpServer.AddTool(
		s.destructiveTool(global.ToolExportLog,
			mcp.WithDescription("Write the run log as CSV: one line per processed row with status, duration, prompt, and response."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
			mcp.WithString("filename",
				mcp.Description("Output filename within the files directory (default: timestamped)"),
			),
		), s.handleExportLog)

	s.mcpServer.AddTool(
		s.destructiveTool(global.ToolExportReport,
			mcp.WithDescription("Write a markdown summary of the last run: template, counts, outcome, and per-row table."),
			mcp.WithString("session_id",
				mcp.Description("Session ID from workbook_open"),
				mcp.Required(),
			),
			mcp.WithString("filename",
				mcp.Description("Output filename within the files directory (default: timestamped)"),
			),
		), s.handleExportReport)

	// System tools
	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolModelList,
			mcp.WithDescription("List the models allowed by the configuration."),
		), s.handleModelList)

	s.mcpServer.AddTool(
		s.readOnlyTool(global.ToolHealth,
			mcp.WithDescription("Report server version and configuration summary."),
		), s.handleHealth)

	return nil
}

// Run starts the MCP server with graceful shutdown
func (s *Server) Run() error {
	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		err := server.ServeStdio(s.mcpServer)
		// ServeStdio returns when stdin is closed (EOF) or on error
		errChan <- err
	}()

	s.logger.Infof("MCP server started successfully")

	// Wait for shutdown signal, stdin close, or error
	select {
	case <-sigChan:
		s.logger.Info("Shutdown signal received")
		s.waitForRuns()
		s.logger.Info("Server stopped")
		// Flush logs before exiting
		if err := s.logger.Sync(); err != nil {
			s.logger.Warnf("Failed to flush logs on shutdown: %v", err)
		}
		return nil

	case err := <-errChan:
		if err != nil {
			s.logger.Errorf("Server error: %v", err)
			// Still drain active runs before exiting on error
			s.waitForRuns()
			return fmt.Errorf("server error: %w", err)
		}
		// nil error means stdin was closed (EOF) - normal exit
		s.logger.Info("Connection closed")
		s.waitForRuns()
		s.logger.Info("Server exiting")
		return nil
	}
}

// waitForRuns drains active runs before shutdown so in-flight rows complete
// and their results are not lost.
func (s *Server) waitForRuns() {
	if s.sessions.AnyRunning() {
		s.logger.Info("Waiting for active runs to complete...")
		s.sessions.WaitForRuns()
		s.logger.Info("All runs completed")
	}
}
