/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
)

// Run control tool handlers

func (s *Server) handleRunStart(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")
	sheet := mcp.ParseString(request, "sheet", "")
	templateSource := mcp.ParseString(request, "template", "")
	outputColumn := mcp.ParseString(request, "output_column", "")
	delimiters := mcp.ParseString(request, "delimiters", "")
	model := mcp.ParseString(request, "model", "")
	// -1 marks the parameter as absent so an explicit 0 is not confused
	// with "use the configured default"
	temperature := mcp.ParseFloat64(request, "temperature", -1)
	concurrency := int(mcp.ParseFloat64(request, "concurrency", 0))
	minIntervalMS := int(mcp.ParseFloat64(request, "min_request_interval_ms", 0))
	rowLimit := int(mcp.ParseFloat64(request, "row_limit", 0))

	s.logToolCall(global.ToolRunStart, map[string]string{
		"session_id": sessionID,
		"sheet":      sheet,
		"model":      model,
	})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	if sheet == "" {
		return mcp.NewToolResultError("sheet parameter is required"), nil
	}
	if templateSource == "" {
		return mcp.NewToolResultError("template parameter is required"), nil
	}
	if rowLimit < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("row_limit must be >= 0, got %d", rowLimit)), nil
	}

	opts := global.RunOptions{
		Model:              model,
		Temperature:        temperature,
		Concurrency:        concurrency,
		MinRequestInterval: time.Duration(minIntervalMS) * time.Millisecond,
		RowLimit:           rowLimit,
	}

	status, err := s.sessions.StartRun(sessionID, sheet, templateSource, outputColumn, delimiters, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(status)
}

func (s *Server) handleRunStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logToolCall(global.ToolRunStatus, map[string]string{"session_id": sessionID})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	status, err := s.sessions.GetStatus(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(status)
}

func (s *Server) handleRunStop(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logToolCall(global.ToolRunStop, map[string]string{"session_id": sessionID})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	if err := s.sessions.Stop(sessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(map[string]string{
		"session_id": sessionID,
		"message":    "stop requested, in-flight rows will finish",
	})
}

func (s *Server) handleRunRetry(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logToolCall(global.ToolRunRetry, map[string]string{"session_id": sessionID})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	status, err := s.sessions.RetryFailed(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(status)
}
