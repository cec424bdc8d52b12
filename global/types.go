/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

import "time"

// RowResult is the outcome of processing a single table row. Results arrive
// in completion order, so the row index travels with every result.
type RowResult struct {
	Row       int           `json:"row"`
	Status    string        `json:"status"` // RowStatusSuccess or RowStatusError
	Text      string        `json:"text"`
	Prompt    string        `json:"prompt"`
	Duration  time.Duration `json:"duration"`
	FromCache bool          `json:"from_cache,omitempty"`
}

// RunOptions carries the caller-supplied knobs for one batch run.
// Concurrency and MinRequestInterval are independent: the first bounds
// parallel fan-out, the second paces dispatch regardless of pool size.
// A negative Temperature means "not supplied", so an explicit 0 passes
// through untouched.
type RunOptions struct {
	Model              string        `json:"model"`
	Temperature        float64       `json:"temperature"` // < 0 = use default
	Concurrency        int           `json:"concurrency"`
	MinRequestInterval time.Duration `json:"min_request_interval"`
	RowLimit           int           `json:"row_limit,omitempty"` // 0 = full run
}

// WithDefaults returns a copy of RunOptions with defaults applied for zero
// values.
func (o RunOptions) WithDefaults() RunOptions {
	result := o
	if result.Concurrency <= 0 {
		result.Concurrency = DefaultMaxConcurrency
	}
	if result.Temperature < 0 {
		result.Temperature = DefaultTemperature
	}
	return result
}

// RunSummary reports how a batch run ended. Every run ends in exactly one of
// the three outcomes, with counts of how each row fared.
type RunSummary struct {
	State       string        `json:"state"`   // RunStateCompleted or RunStateCancelled
	Outcome     string        `json:"outcome"` // RunOutcome* constant
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Unprocessed int           `json:"unprocessed"`
	Elapsed     time.Duration `json:"elapsed"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// OutcomeFor derives the run outcome from final counts.
func OutcomeFor(cancelled bool, failed int) string {
	switch {
	case cancelled:
		return RunOutcomeCancelled
	case failed > 0:
		return RunOutcomeCompletedErrors
	default:
		return RunOutcomeCompletedAll
	}
}
