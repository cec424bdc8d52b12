/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

//goland:noinspection GoCommentStart,GoUnusedConst
const (
	// Configuration constants
	ConfigEnvVar          = "SHEETPILOT_CONFIG"
	DefaultBaseDir        = "~/.sheetpilot"
	DefaultConfigFileName = "config.json"
	DefaultFilesDir       = "files"

	// MCP Tool Names - Workbook
	ToolWorkbookOpen   = "workbook_open"
	ToolWorkbookSheets = "workbook_sheets"
	ToolSheetPreview   = "sheet_preview"

	// MCP Tool Names - Template
	ToolTemplateCheck = "template_check"

	// MCP Tool Names - Run Control
	ToolRunStart  = "run_start"
	ToolRunStatus = "run_status"
	ToolRunStop   = "run_stop"
	ToolRunRetry  = "run_retry"

	// MCP Tool Names - Export
	ToolExportWorkbook = "export_workbook"
	ToolExportLog      = "export_log"
	ToolExportReport   = "export_report"

	// MCP Tool Names - System
	ToolModelList = "model_list"
	ToolHealth    = "health"

	// Run State Constants
	RunStateIdle      = "idle"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateCancelled = "cancelled"

	// Run Outcome Constants
	RunOutcomeCompletedAll    = "completed-all"
	RunOutcomeCompletedErrors = "completed-with-errors"
	RunOutcomeCancelled       = "cancelled"

	// Row Result Status Constants
	RowStatusSuccess = "success"
	RowStatusError   = "error"

	// Template delimiter styles
	DefaultOpenDelimiter  = "{"
	DefaultCloseDelimiter = "}"

	// DefaultOutputColumn is the result column name used when the caller
	// does not provide one.
	DefaultOutputColumn = "AI Response"

	// Runner defaults
	DefaultMaxConcurrency = 4
	DefaultTemperature    = 0.0

	// Log level constants
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
	LogLevelFatal = "FATAL"
)
