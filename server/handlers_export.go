/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
)

// Export tool handlers

func (s *Server) handleExportWorkbook(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")
	filename := mcp.ParseString(request, "filename", "")
	convertMarkdown := mcp.ParseBoolean(request, "convert_markdown", false)

	s.logToolCall(global.ToolExportWorkbook, map[string]string{
		"session_id": sessionID,
		"filename":   filename,
	})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	if filename == "" {
		return mcp.NewToolResultError("filename parameter is required"), nil
	}

	result, err := s.sessions.ExportWorkbook(sessionID, filename, convertMarkdown)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(result)
}

func (s *Server) handleExportLog(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")
	filename := mcp.ParseString(request, "filename", "")

	s.logToolCall(global.ToolExportLog, map[string]string{
		"session_id": sessionID,
		"filename":   filename,
	})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	result, err := s.sessions.ExportLog(sessionID, filename)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(result)
}

func (s *Server) handleExportReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")
	filename := mcp.ParseString(request, "filename", "")

	s.logToolCall(global.ToolExportReport, map[string]string{
		"session_id": sessionID,
		"filename":   filename,
	})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	result, err := s.sessions.ExportReport(sessionID, filename)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(result)
}
