/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package workbook models a multi-sheet Excel workbook as an immutable byte
// snapshot plus in-memory tables. Only one table - the active sheet - is ever
// mutated, and only by column-append and cell-write. Reassembly starts from
// the original snapshot so untouched sheets survive export unchanged.
package workbook

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Workbook is the loaded container. Identity is the content fingerprint; the
// raw snapshot is retained for lossless reassembly.
type Workbook struct {
	Name        string
	Fingerprint string
	snapshot    []byte
	sheetOrder  []string
	tables      map[string]*Table
}

// Table is one sheet's grid: a fixed ordered set of uniquely-named columns
// over an ordered sequence of rows. Row indexes are stable for the session's
// lifetime.
type Table struct {
	Sheet   string
	columns []string
	rows    [][]string // rows[i][j] = value of columns[j] in row i
	colIdx  map[string]int
}

// SheetNames returns the sheet names in their original order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheetOrder))
	copy(names, w.sheetOrder)
	return names
}

// Table returns the named sheet's table.
func (w *Workbook) Table(sheet string) (*Table, error) {
	t, ok := w.tables[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet not found: %s", sheet)
	}
	return t, nil
}

// Snapshot returns the original file bytes the workbook was loaded from.
func (w *Workbook) Snapshot() []byte { return w.snapshot }

// fingerprint derives the workbook identity from name, size and content.
func fingerprint(name string, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s-%d-%s", name, len(data), hex.EncodeToString(sum[:8]))
}

// Columns returns the ordered column names, including any appended output
// column.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// RowCount returns the number of data rows (the header is not a row).
func (t *Table) RowCount() int { return len(t.rows) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// Cell returns the value at (row, column). Missing cells read as empty with
// ok=false; a present column in a short row reads as empty with ok=true.
func (t *Table) Cell(row int, column string) (string, bool) {
	j, ok := t.colIdx[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return "", false
	}
	if j >= len(t.rows[row]) {
		return "", true
	}
	return t.rows[row][j], true
}

// SetCell writes a value at (row, column). The column must exist.
func (t *Table) SetCell(row int, column, value string) error {
	j, ok := t.colIdx[column]
	if !ok {
		return fmt.Errorf("column not found: %s", column)
	}
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("row %d out of range (0..%d)", row, len(t.rows)-1)
	}
	for len(t.rows[row]) <= j {
		t.rows[row] = append(t.rows[row], "")
	}
	t.rows[row][j] = value
	return nil
}

// EnsureColumn appends a column with the given name if it does not already
// exist. Existing cells of a pre-existing column are left untouched.
func (t *Table) EnsureColumn(name string) {
	if _, ok := t.colIdx[name]; ok {
		return
	}
	t.colIdx[name] = len(t.columns)
	t.columns = append(t.columns, name)
}

// RowView adapts one row for template rendering without exposing mutation.
type RowView struct {
	table *Table
	row   int
}

// Row returns a render view of row i.
func (t *Table) Row(i int) RowView {
	return RowView{table: t, row: i}
}

// Value implements the template row lookup. Empty and missing both render as
// the empty string; the bool distinguishes an unknown column.
func (v RowView) Value(column string) (string, bool) {
	return v.table.Cell(v.row, column)
}
