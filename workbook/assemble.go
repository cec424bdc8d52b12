/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package workbook

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReplaceSheet produces exportable workbook bytes where the named sheet's
// content is replaced by the table (header row of column names, then one row
// per data row, in column order) and every other sheet is reproduced
// unchanged in its original relative order.
//
// The original snapshot is reopened rather than mutated in place: the live
// working table and the exported artifact never alias each other, and sheets
// the run never touched pass through excelize untouched.
func (w *Workbook) ReplaceSheet(sheet string, table *Table) ([]byte, error) {
	if _, ok := w.tables[sheet]; !ok {
		return nil, fmt.Errorf("sheet not found: %s", sheet)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.snapshot))
	if err != nil {
		return nil, fmt.Errorf("failed to reopen workbook snapshot: %w", err)
	}
	defer f.Close()

	// The table only ever grows relative to the snapshot (column append and
	// cell writes), so writing header plus all rows covers every original
	// cell of the target sheet.
	cols := table.Columns()
	if err := writeRow(f, sheet, 1, cols); err != nil {
		return nil, err
	}
	for i := 0; i < table.RowCount(); i++ {
		values := make([]string, len(cols))
		for j, c := range cols {
			v, _ := table.Cell(i, c)
			values[j] = v
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRow writes one sheet row starting at column A. excelize wants a slice
// of interface values.
func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, start, &cells); err != nil {
		return fmt.Errorf("failed to write row %d of sheet %s: %w", rowNum, sheet, err)
	}
	return nil
}
