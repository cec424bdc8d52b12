/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package runner

import (
	"sort"
	"sync"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/templates"
	"github.com/Fababidu43/APP-IA-EXCEL/workbook"
)

// Ledger tracks which rows last finished in error. A later success for the
// same row clears the entry, so the ledger always reflects the most recent
// outcome per row.
type Ledger struct {
	failed map[int]struct{}
	mu     sync.Mutex
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{failed: make(map[int]struct{})}
}

// Record updates the ledger with one result
func (l *Ledger) Record(res global.RowResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if res.Status == global.RowStatusError {
		l.failed[res.Row] = struct{}{}
	} else {
		delete(l.failed, res.Row)
	}
}

// Pending returns the failed row indices in ascending order
func (l *Ledger) Pending() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]int, 0, len(l.failed))
	for row := range l.failed {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// Len returns the number of failed rows
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failed)
}

// RetryJobs builds a job per failed row by re-rendering the template against
// the table's current contents, then empties the ledger. Rows that fail
// again will be re-recorded by the consumer, so nothing is lost if the
// retry also errors.
func RetryJobs(ledger *Ledger, tmpl templates.Template, table *workbook.Table) []Job {
	ledger.mu.Lock()
	rows := make([]int, 0, len(ledger.failed))
	for row := range ledger.failed {
		rows = append(rows, row)
	}
	ledger.failed = make(map[int]struct{})
	ledger.mu.Unlock()

	sort.Ints(rows)
	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		if row < 0 || row >= table.RowCount() {
			continue
		}
		jobs = append(jobs, Job{Row: row, Prompt: tmpl.Render(table.Row(row))})
	}
	return jobs
}
