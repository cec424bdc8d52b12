/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
)

// Helper function to create JSON tool results safely
func createJSONResult(data interface{}) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError("Failed to create JSON result"), nil
	}
	return result, nil
}

// logToolCall logs an MCP tool invocation at INFO level
func (s *Server) logToolCall(toolName string, params map[string]string) {
	if len(params) == 0 {
		s.logger.Infof("Tool %s called", toolName)
		return
	}
	// Build params string
	var parts []string
	for k, v := range params {
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if len(parts) == 0 {
		s.logger.Infof("Tool %s called", toolName)
	} else {
		s.logger.Infof("Tool %s called: %s", toolName, joinStrings(parts, ", "))
	}
}

// joinStrings joins string slice with separator (avoiding strings import)
func joinStrings(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	result := parts[0]
	for i := 1; i < len(parts); i++ {
		result += sep + parts[i]
	}
	return result
}

// Workbook tool handlers

func (s *Server) handleWorkbookOpen(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := mcp.ParseString(request, "path", "")

	s.logToolCall(global.ToolWorkbookOpen, map[string]string{"path": path})

	if path == "" {
		return mcp.NewToolResultError("path parameter is required"), nil
	}

	info, err := s.sessions.Open(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(info)
}

func (s *Server) handleWorkbookSheets(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logToolCall(global.ToolWorkbookSheets, map[string]string{"session_id": sessionID})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	sheets, err := s.sessions.Sheets(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(map[string]interface{}{
		"sheets": sheets,
		"total":  len(sheets),
	})
}

func (s *Server) handleSheetPreview(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")
	sheet := mcp.ParseString(request, "sheet", "")
	maxRows := int(mcp.ParseFloat64(request, "max_rows", 0))

	s.logToolCall(global.ToolSheetPreview, map[string]string{"session_id": sessionID, "sheet": sheet})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	if sheet == "" {
		return mcp.NewToolResultError("sheet parameter is required"), nil
	}

	preview, err := s.sessions.Preview(sessionID, sheet, maxRows)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(preview)
}

// Template tool handlers

func (s *Server) handleTemplateCheck(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")
	sheet := mcp.ParseString(request, "sheet", "")
	templateSource := mcp.ParseString(request, "template", "")
	delimiters := mcp.ParseString(request, "delimiters", "")

	s.logToolCall(global.ToolTemplateCheck, map[string]string{"session_id": sessionID, "sheet": sheet})

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	if sheet == "" {
		return mcp.NewToolResultError("sheet parameter is required"), nil
	}
	if templateSource == "" {
		return mcp.NewToolResultError("template parameter is required"), nil
	}

	report, err := s.sessions.CheckTemplate(sessionID, sheet, templateSource, delimiters)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(report)
}

// System tool handlers

func (s *Server) handleModelList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logToolCall(global.ToolModelList, nil)

	return createJSONResult(map[string]interface{}{
		"models":        s.config.Models(),
		"default_model": s.config.DefaultModel(),
	})
}

func (s *Server) handleHealth(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logToolCall(global.ToolHealth, nil)

	return createJSONResult(map[string]interface{}{
		"name":            global.ProgramName,
		"version":         global.Version,
		"base_url":        s.config.LLMBaseURL(),
		"default_model":   s.config.DefaultModel(),
		"max_concurrency": s.config.MaxConcurrency(),
		"files_dir":       s.config.FilesDir(),
	})
}
