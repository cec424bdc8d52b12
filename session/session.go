/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package session owns the stateful side of the server: open workbooks, the
// run lifecycle, and the single-writer loop that folds results back into the
// table.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/runner"
	"github.com/Fababidu43/APP-IA-EXCEL/templates"
	"github.com/Fababidu43/APP-IA-EXCEL/workbook"
)

// Session is one open workbook plus its run state. All fields behind mu are
// written only by the owning service; the result-consuming goroutine is the
// sole writer of table cells while a run is active.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	wb      *workbook.Workbook
	sheet   string // sheet of the last started run
	outCol  string
	tmpl    templates.Template
	opts    global.RunOptions
	ledger  *runner.Ledger
	results []global.RowResult
	summary global.RunSummary
	state   string
	cancel  context.CancelFunc
	runDone chan struct{}
}

// Info is the client-facing view of a session
type Info struct {
	SessionID   string      `json:"session_id"`
	Workbook    string      `json:"workbook"`
	Fingerprint string      `json:"fingerprint"`
	Sheets      []SheetInfo `json:"sheets"`
	CreatedAt   string      `json:"created_at"`
}

// SheetInfo describes one sheet of an open workbook
type SheetInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
}

// PreviewResult is the response for sheet_preview
type PreviewResult struct {
	Sheet   string     `json:"sheet"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total_rows"`
}

// TemplateReport is the response for template_check
type TemplateReport struct {
	Valid          bool     `json:"valid"`
	Placeholders   []string `json:"placeholders"`
	InvalidColumns []string `json:"invalid_columns,omitempty"`
	Warning        string   `json:"warning,omitempty"`
}

// Status is a point-in-time snapshot of a session's run state
type Status struct {
	SessionID    string            `json:"session_id"`
	State        string            `json:"state"`
	Sheet        string            `json:"sheet,omitempty"`
	OutputColumn string            `json:"output_column,omitempty"`
	FailedRows   []int             `json:"failed_rows,omitempty"`
	Summary      global.RunSummary `json:"summary"`
}

func (s *Session) info() Info {
	var sheets []SheetInfo
	for _, name := range s.wb.SheetNames() {
		if table, err := s.wb.Table(name); err == nil {
			sheets = append(sheets, SheetInfo{
				Name:     name,
				Columns:  table.Columns(),
				RowCount: table.RowCount(),
			})
		}
	}
	return Info{
		SessionID:   s.ID,
		Workbook:    s.wb.Name,
		Fingerprint: s.wb.Fingerprint,
		Sheets:      sheets,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// snapshot assembles a Status under the session lock.
func (s *Session) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		SessionID:    s.ID,
		State:        s.state,
		Sheet:        s.sheet,
		OutputColumn: s.outCol,
		Summary:      s.summary,
	}
	if s.ledger != nil {
		st.FailedRows = s.ledger.Pending()
	}
	return st
}

// Results returns a copy of the row results recorded since the last
// run_start.
func (s *Session) Results() []global.RowResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]global.RowResult, len(s.results))
	copy(out, s.results)
	return out
}
