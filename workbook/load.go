/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package workbook

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Open loads a workbook from a file path.
func Open(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	return Load(filepath.Base(path), data)
}

// Load parses workbook bytes. Each sheet's first row is the header defining
// column names; subsequent rows are data. Duplicate header names are
// rejected because the data model requires uniquely-named columns.
func Load(name string, data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook %s: %w", name, err)
	}
	defer f.Close()

	wb := &Workbook{
		Name:        name,
		Fingerprint: fingerprint(name, data),
		snapshot:    data,
		tables:      make(map[string]*Table),
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		table, err := tableFromRows(sheet, rows)
		if err != nil {
			return nil, err
		}
		wb.sheetOrder = append(wb.sheetOrder, sheet)
		wb.tables[sheet] = table
	}

	if len(wb.sheetOrder) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", name)
	}

	return wb, nil
}

// tableFromRows builds a Table from raw sheet rows. Data rows shorter than
// the header are padded with empty cells on access, not here.
func tableFromRows(sheet string, raw [][]string) (*Table, error) {
	t := &Table{
		Sheet:  sheet,
		colIdx: make(map[string]int),
	}

	if len(raw) == 0 {
		return t, nil
	}

	header := raw[0]
	// Trailing unnamed header cells are common; trim them
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("sheet %s has an unnamed header cell at column %d", sheet, i+1)
		}
		if _, dup := t.colIdx[name]; dup {
			return nil, fmt.Errorf("sheet %s has duplicate column name: %s", sheet, name)
		}
		t.colIdx[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}

	for _, row := range raw[1:] {
		if len(row) > len(t.columns) {
			row = row[:len(t.columns)]
		}
		copied := make([]string, len(row))
		copy(copied, row)
		t.rows = append(t.rows, copied)
	}

	return t, nil
}
