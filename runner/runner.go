/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package runner dispatches rendered prompts to the text-generation backend
// through a bounded worker pool. Results stream back in completion order;
// the row index travels with every result so the consumer can write each one
// to the right row. Workers never touch the table - the stream's single
// consumer owns all writes.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fababidu43/APP-IA-EXCEL/cache"
	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/llm"
	"github.com/Fababidu43/APP-IA-EXCEL/logging"
)

// Job is the unit of dispatch: a row index and its rendered prompt.
type Job struct {
	Row    int
	Prompt string
}

// Runner executes batches of jobs against the text-generation backend.
type Runner struct {
	gen     llm.Generator
	cache   *cache.Cache
	limiter *RateLimiter
	logger  *logging.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithRateLimiter sets a sliding-window rate limiter applied to external
// calls (cache hits are not rate limited)
func WithRateLimiter(limiter *RateLimiter) Option {
	return func(r *Runner) {
		r.limiter = limiter
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner. The cache is an explicit collaborator: the caller
// decides whether it lives for one run or for the whole process.
func New(gen llm.Generator, resultCache *cache.Cache, opts ...Option) *Runner {
	r := &Runner{
		gen:   gen,
		cache: resultCache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Batch is one submitted job set. Its state moves Running -> Completed or
// Cancelled; the terminal state is set when the result stream closes.
type Batch struct {
	results    chan global.RowResult
	total      int
	dispatched int64 // atomic
	state      atomic.Value
	cancelled  atomic.Bool
}

// Results returns the completion-order result stream. It is closed once
// every dispatched job has been recorded.
func (b *Batch) Results() <-chan global.RowResult { return b.results }

// State returns the batch state as a global.RunState* constant.
func (b *Batch) State() string { return b.state.Load().(string) }

// Cancelled reports whether the batch stopped early. Jobs in flight at the
// moment of cancellation still complete and appear on the stream.
func (b *Batch) Cancelled() bool { return b.cancelled.Load() }

// Dispatched returns how many jobs were actually started.
func (b *Batch) Dispatched() int { return int(atomic.LoadInt64(&b.dispatched)) }

// Total returns the number of submitted jobs.
func (b *Batch) Total() int { return b.total }

// Submit dispatches jobs to a pool of opts.Concurrency workers and returns
// immediately. Cancellation is cooperative: the context is checked before
// each job starts, never mid-call, so an in-flight external call is never
// aborted.
func (r *Runner) Submit(ctx context.Context, jobs []Job, opts global.RunOptions) *Batch {
	opts = opts.WithDefaults()

	b := &Batch{
		results: make(chan global.RowResult, len(jobs)),
		total:   len(jobs),
	}
	b.state.Store(global.RunStateRunning)

	// The unbuffered channel keeps at most one undispatched job in hand, so
	// a stop leaves at most concurrency+1 jobs to finish.
	jobCh := make(chan Job)
	pacer := NewPacer(opts.MinRequestInterval)

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				// Cooperative stop: a job handed over but not yet started
				// is dropped, not dispatched
				if ctx.Err() != nil {
					continue
				}
				atomic.AddInt64(&b.dispatched, 1)
				b.results <- r.execute(ctx, job, opts, pacer)
			}
		}()
	}

	go func() {
		wg.Wait()
		if ctx.Err() != nil {
			b.cancelled.Store(true)
			b.state.Store(global.RunStateCancelled)
		} else {
			b.state.Store(global.RunStateCompleted)
		}
		close(b.results)
		if r.logger != nil {
			r.logger.Infof("Batch %s: %d of %d jobs dispatched", b.State(), b.Dispatched(), b.total)
		}
	}()

	return b
}

// execute runs one job. Failures of the external call are downgraded to
// Error-status results; nothing a single row does can abort the batch.
func (r *Runner) execute(ctx context.Context, job Job, opts global.RunOptions, pacer *Pacer) global.RowResult {
	start := time.Now()

	// The detached context keeps a cooperative stop from aborting a call
	// that already started
	callCtx := context.WithoutCancel(ctx)

	text, hit, err := r.cache.GetOrCompute(job.Prompt, func() (string, error) {
		// Pacing and rate limiting apply to real external calls only
		pacer.Wait()
		if r.limiter != nil {
			r.limiter.Wait()
		}
		return r.gen.Generate(callCtx, opts.Model, opts.Temperature, job.Prompt)
	})

	result := global.RowResult{
		Row:       job.Row,
		Prompt:    job.Prompt,
		Duration:  time.Since(start),
		FromCache: hit,
	}
	if err != nil {
		result.Status = global.RowStatusError
		result.Text = "API error: " + err.Error()
		if r.logger != nil {
			r.logger.Warnf("Row %d failed: %v", job.Row, err)
		}
	} else {
		result.Status = global.RowStatusSuccess
		result.Text = text
	}
	return result
}
