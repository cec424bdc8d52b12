/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package runner

import (
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/templates"
	"github.com/Fababidu43/APP-IA-EXCEL/workbook"
)

// buildSheet builds a single-sheet xlsx from literal rows.
func buildSheet(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestLedgerRecord(t *testing.T) {
	ledger := NewLedger()

	ledger.Record(global.RowResult{Row: 3, Status: global.RowStatusError})
	ledger.Record(global.RowResult{Row: 1, Status: global.RowStatusError})
	ledger.Record(global.RowResult{Row: 2, Status: global.RowStatusSuccess})

	if got := ledger.Pending(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("Pending = %v, want [1 3]", got)
	}

	// A later success clears the row
	ledger.Record(global.RowResult{Row: 3, Status: global.RowStatusSuccess})
	if got := ledger.Pending(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Pending after clear = %v, want [1]", got)
	}
	if ledger.Len() != 1 {
		t.Errorf("Len = %d, want 1", ledger.Len())
	}
}

func TestLedgerDuplicateFailures(t *testing.T) {
	ledger := NewLedger()
	ledger.Record(global.RowResult{Row: 5, Status: global.RowStatusError})
	ledger.Record(global.RowResult{Row: 5, Status: global.RowStatusError})

	if got := ledger.Pending(); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("Pending = %v, want [5]", got)
	}
}

func TestRetryJobs(t *testing.T) {
	wb, err := workbook.Load("retry.xlsx", buildSheet(t, "Sheet1", [][]interface{}{
		{"Name", "City"},
		{"Ann", "Lyon"},
		{"Bo", "Oslo"},
		{"Cy", "Rome"},
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	table, _ := wb.Table("Sheet1")

	engine := templates.NewEngine()
	tmpl, _, err := engine.Validate("Hello {Name} from {City}", table.Columns())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	ledger := NewLedger()
	ledger.Record(global.RowResult{Row: 2, Status: global.RowStatusError})
	ledger.Record(global.RowResult{Row: 0, Status: global.RowStatusError})

	jobs := RetryJobs(ledger, tmpl, table)

	want := []Job{
		{Row: 0, Prompt: "Hello Ann from Lyon"},
		{Row: 2, Prompt: "Hello Cy from Rome"},
	}
	if !reflect.DeepEqual(jobs, want) {
		t.Errorf("RetryJobs = %v, want %v", jobs, want)
	}
	if ledger.Len() != 0 {
		t.Errorf("Ledger not emptied, Len = %d", ledger.Len())
	}
}

func TestRetryJobsSkipsOutOfRangeRows(t *testing.T) {
	wb, err := workbook.Load("retry.xlsx", buildSheet(t, "Sheet1", [][]interface{}{
		{"Name"},
		{"Ann"},
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	table, _ := wb.Table("Sheet1")

	engine := templates.NewEngine()
	tmpl, _, err := engine.Validate("{Name}", table.Columns())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	ledger := NewLedger()
	ledger.Record(global.RowResult{Row: 9, Status: global.RowStatusError})

	if jobs := RetryJobs(ledger, tmpl, table); len(jobs) != 0 {
		t.Errorf("Got %d jobs for out-of-range row, want 0", len(jobs))
	}
}
