/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package reporting renders run logs and run reports for export.
package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"text/template"
	"time"

	"github.com/tenebris-tech/x2md/convert"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/logging"
)

// Reporter generates exportable views of a run
type Reporter struct {
	logger *logging.Logger
}

// New creates a new reporter
func New(logger *logging.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// RunReport is everything a markdown run report needs
type RunReport struct {
	Workbook    string
	Sheet       string
	Model       string
	Template    string
	Summary     global.RunSummary
	Results     []global.RowResult
	FailedRows  []int
	GeneratedAt time.Time
}

// LogCSV renders row results as CSV, one line per processed row in
// completion order. Row indices are 1-based to match what a spreadsheet
// user sees.
func LogCSV(results []global.RowResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"row", "status", "duration_ms", "from_cache", "prompt", "response"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, res := range results {
		record := []string{
			strconv.Itoa(res.Row + 1),
			res.Status,
			strconv.FormatInt(res.Duration.Milliseconds(), 10),
			strconv.FormatBool(res.FromCache),
			res.Prompt,
			res.Text,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// runReportTemplate is the markdown layout for RunMarkdown
const runReportTemplate = `# Run Report: {{.Workbook}}

**Generated**: {{.GeneratedAt.Format "2006-01-02 15:04:05"}}
**Sheet**: {{.Sheet}}
**Model**: {{.Model}}

## Prompt Template

` + "```" + `
{{.Template}}
` + "```" + `

## Summary

| Metric | Value |
|--------|-------|
| Outcome | {{.Summary.Outcome}} |
| Rows | {{.Summary.Total}} |
| Succeeded | {{.Summary.Succeeded}} |
| Failed | {{.Summary.Failed}} |
{{if gt .Summary.Unprocessed 0}}| Unprocessed | {{.Summary.Unprocessed}} |
{{end}}| Elapsed | {{.Summary.Elapsed}} |

{{if .FailedRows}}
## Failed Rows

{{range .FailedRows}}- Row {{rowNum .}}
{{end}}{{end}}
{{if .Results}}
## Rows

| Row | Status | Duration | Cached |
|-----|--------|----------|--------|
{{range .Results}}| {{rowNum .Row}} | {{.Status}} | {{.Duration}} | {{if .FromCache}}yes{{else}}no{{end}} |
{{end}}{{end}}
`

// RunMarkdown renders a RunReport as markdown
func (r *Reporter) RunMarkdown(report *RunReport) (string, error) {
	t, err := template.New("run-report").Funcs(template.FuncMap{
		"rowNum": func(row int) int { return row + 1 },
	}).Parse(runReportTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// ConvertToMarkdown converts an exported document to markdown alongside the
// original. Returns the converter's counts.
func (r *Reporter) ConvertToMarkdown(path string) (converted, skipped, failed int, err error) {
	converter := convert.New(
		convert.WithRecursion(false),
		convert.WithSkipExisting(false),
	)

	result, err := converter.Convert(path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("conversion failed: %w", err)
	}
	if r.logger != nil {
		r.logger.Debugf("Converted %s to markdown (%d converted, %d skipped, %d failed)",
			path, result.Converted, result.Skipped, result.Failed)
	}
	return result.Converted, result.Skipped, result.Failed, nil
}

// GenerateFilename builds a timestamped export filename
func GenerateFilename(prefix string, ext string) string {
	timestamp := time.Now().Format("2006-01-02-150405")
	if prefix == "" {
		prefix = "export"
	}
	if ext == "" {
		ext = "md"
	}
	return fmt.Sprintf("%s-%s.%s", prefix, timestamp, ext)
}
