/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package session

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/reporting"
)

// ExportResult is the response for the export tools
type ExportResult struct {
	Path      string `json:"path"`
	SizeBytes int    `json:"size_bytes"`
	Converted *int   `json:"converted,omitempty"`
}

// withFileLock serializes writers of one export path across processes
func (s *Service) withFileLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

// resolveExportPath validates a filename against the configured files
// directory, preventing traversal outside it
func (s *Service) resolveExportPath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	return global.ValidatePathWithinDir(s.config.FilesDir(), filename)
}

// ExportWorkbook writes the session's workbook, with the processed sheet's
// current contents folded in, to the files directory. Sheets the run never
// touched are carried over byte-for-byte from the original file. Export is
// allowed mid-run: the result is a consistent snapshot of progress so far.
func (s *Service) ExportWorkbook(id, filename string, convertMarkdown bool) (*ExportResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	path, err := s.resolveExportPath(filename)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	var data []byte
	if sess.sheet == "" {
		// No run yet, export the workbook as loaded
		data = sess.wb.Snapshot()
	} else {
		table, tErr := sess.wb.Table(sess.sheet)
		if tErr == nil {
			data, err = sess.wb.ReplaceSheet(sess.sheet, table)
		} else {
			err = tErr
		}
	}
	sess.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble workbook: %w", err)
	}

	err = s.withFileLock(path, func() error {
		return global.AtomicWrite(path, data)
	})
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Path: path, SizeBytes: len(data)}

	if convertMarkdown {
		converted, _, _, convErr := s.reporter.ConvertToMarkdown(path)
		if convErr != nil {
			// The export itself succeeded, so report and move on
			s.logger.Warnf("Markdown conversion of %s failed: %v", path, convErr)
		} else {
			result.Converted = &converted
		}
	}

	s.logger.Infof("Session %s: exported workbook to %s (%d bytes)", id, path, len(data))
	return result, nil
}

// ExportLog writes the session's row results as CSV
func (s *Service) ExportLog(id, filename string) (*ExportResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = reporting.GenerateFilename("run-log", "csv")
	}
	path, err := s.resolveExportPath(filename)
	if err != nil {
		return nil, err
	}

	data, err := reporting.LogCSV(sess.Results())
	if err != nil {
		return nil, err
	}

	err = s.withFileLock(path, func() error {
		return global.AtomicWrite(path, data)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Session %s: exported run log to %s", id, path)
	return &ExportResult{Path: path, SizeBytes: len(data)}, nil
}

// ExportReport writes a markdown summary of the last run
func (s *Service) ExportReport(id, filename string) (*ExportResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = reporting.GenerateFilename("run-report", "md")
	}
	path, err := s.resolveExportPath(filename)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	report := &reporting.RunReport{
		Workbook:    sess.wb.Name,
		Sheet:       sess.sheet,
		Model:       sess.opts.Model,
		Template:    sess.tmpl.Source(),
		Summary:     sess.summary,
		Results:     append([]global.RowResult(nil), sess.results...),
		GeneratedAt: time.Now(),
	}
	if sess.ledger != nil {
		report.FailedRows = sess.ledger.Pending()
	}
	sess.mu.Unlock()

	markdown, err := s.reporter.RunMarkdown(report)
	if err != nil {
		return nil, err
	}

	data := []byte(markdown)
	err = s.withFileLock(path, func() error {
		return global.AtomicWrite(path, data)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Session %s: exported run report to %s", id, path)
	return &ExportResult{Path: path, SizeBytes: len(data)}, nil
}
