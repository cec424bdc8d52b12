/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fababidu43/APP-IA-EXCEL/cache"
	"github.com/Fababidu43/APP-IA-EXCEL/config"
	"github.com/Fababidu43/APP-IA-EXCEL/global"
	"github.com/Fababidu43/APP-IA-EXCEL/llm"
	"github.com/Fababidu43/APP-IA-EXCEL/logging"
	"github.com/Fababidu43/APP-IA-EXCEL/reporting"
	"github.com/Fababidu43/APP-IA-EXCEL/runner"
	"github.com/Fababidu43/APP-IA-EXCEL/templates"
	"github.com/Fababidu43/APP-IA-EXCEL/workbook"
)

// Service provides session management and run orchestration
type Service struct {
	config       *config.Config
	logger       *logging.Logger
	gen          llm.Generator
	engine       *templates.Engine
	limiter      *runner.RateLimiter
	processCache *cache.Cache
	reporter     *reporting.Reporter

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a new session service. The process-scoped cache is
// created here so it survives across runs when the config asks for it.
func NewService(cfg *config.Config, logger *logging.Logger, gen llm.Generator) *Service {
	open, closeDelim := cfg.Delimiters()

	s := &Service{
		config:       cfg,
		logger:       logger,
		gen:          gen,
		engine:       templates.NewEngine(templates.WithDelimiters(open, closeDelim)),
		processCache: cache.New(cache.WithMaxEntries(cfg.CacheMaxEntries())),
		reporter:     reporting.New(logger),
		sessions:     make(map[string]*Session),
	}
	if maxRequests, periodSeconds := cfg.RateLimit(); maxRequests > 0 {
		s.limiter = runner.NewRateLimiter(maxRequests, periodSeconds)
	}
	return s
}

// Open loads a workbook from disk and creates a session for it
func (s *Service) Open(path string) (Info, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return Info{}, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		wb:        wb,
		state:     global.RunStateIdle,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Infof("Opened workbook %s (%s) as session %s", wb.Name, wb.Fingerprint, sess.ID)
	return sess.info(), nil
}

// get looks up a session by ID
func (s *Service) get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return sess, nil
}

// Sheets lists the sheets of a session's workbook in workbook order
func (s *Service) Sheets(id string) ([]SheetInfo, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var sheets []SheetInfo
	for _, name := range sess.wb.SheetNames() {
		table, _ := sess.wb.Table(name)
		sheets = append(sheets, SheetInfo{
			Name:     name,
			Columns:  table.Columns(),
			RowCount: table.RowCount(),
		})
	}
	return sheets, nil
}

// Preview returns the first maxRows data rows of a sheet
func (s *Service) Preview(id, sheet string, maxRows int) (*PreviewResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	table, err := sess.wb.Table(sheet)
	if err != nil {
		return nil, err
	}

	if maxRows <= 0 {
		maxRows = 10
	}
	count := table.RowCount()
	if maxRows > count {
		maxRows = count
	}

	columns := table.Columns()
	rows := make([][]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j], _ = table.Cell(i, col)
		}
		rows = append(rows, row)
	}

	return &PreviewResult{
		Sheet:   sheet,
		Columns: columns,
		Rows:    rows,
		Total:   count,
	}, nil
}

// engineFor returns the template engine for a call. An empty delims uses the
// configured delimiters; otherwise delims is the open marker immediately
// followed by the close marker, split down the middle ("{}", "##", "{{}}").
func (s *Service) engineFor(delims string) (*templates.Engine, error) {
	if delims == "" {
		return s.engine, nil
	}
	r := []rune(delims)
	if len(r) < 2 || len(r)%2 != 0 {
		return nil, fmt.Errorf("delimiters must be an even-length string, open marker then close marker, got %q", delims)
	}
	half := len(r) / 2
	return templates.NewEngine(templates.WithDelimiters(string(r[:half]), string(r[half:]))), nil
}

// CheckTemplate validates a prompt template against a sheet's columns
// without starting a run
func (s *Service) CheckTemplate(id, sheet, source, delims string) (*TemplateReport, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	engine, err := s.engineFor(delims)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	table, err := sess.wb.Table(sheet)
	if err != nil {
		return nil, err
	}

	tmpl, _, err := engine.Validate(source, table.Columns())
	if err != nil {
		var colErr *templates.InvalidColumnsError
		if errors.As(err, &colErr) {
			return &TemplateReport{
				Valid:          false,
				Placeholders:   engine.Parse(source).Placeholders(),
				InvalidColumns: colErr.Columns,
			}, nil
		}
		return nil, err
	}

	report := &TemplateReport{
		Valid:        true,
		Placeholders: tmpl.Placeholders(),
	}
	if len(report.Placeholders) == 0 {
		report.Warning = "template has no placeholders: every row will receive the same prompt"
	}
	return report, nil
}

// StartRun validates the request, builds the job list, and launches the run
// in the background. Rows whose output cell already holds text are skipped
// so an interrupted run can be resumed on the same file.
func (s *Service) StartRun(id, sheet, source, outputColumn, delims string, opts global.RunOptions) (*Status, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	engine, err := s.engineFor(delims)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == global.RunStateRunning {
		return nil, fmt.Errorf("a run is already in progress for session %s", id)
	}

	table, err := sess.wb.Table(sheet)
	if err != nil {
		return nil, err
	}

	tmpl, _, err := engine.Validate(source, table.Columns())
	if err != nil {
		return nil, err
	}
	if len(tmpl.Placeholders()) == 0 {
		s.logger.Warnf("Session %s: template has no placeholders, every row gets the same prompt", id)
	}

	opts = s.applyDefaults(opts)
	if !s.config.ModelAllowed(opts.Model) {
		return nil, fmt.Errorf("model not allowed: %s", opts.Model)
	}
	if opts.Temperature < 0 || opts.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1, got %g", opts.Temperature)
	}

	if outputColumn == "" {
		outputColumn = global.DefaultOutputColumn
	}
	table.EnsureColumn(outputColumn)

	jobs := buildJobs(table, tmpl, outputColumn, opts.RowLimit)

	sess.sheet = sheet
	sess.outCol = outputColumn
	sess.tmpl = tmpl
	sess.opts = opts
	sess.ledger = runner.NewLedger()
	sess.results = nil

	s.launch(sess, table, jobs)

	s.logger.Infof("Session %s: run started on sheet %q, %d of %d rows to process (model %s, concurrency %d)",
		id, sheet, len(jobs), table.RowCount(), opts.Model, opts.Concurrency)

	return &Status{
		SessionID:    sess.ID,
		State:        sess.state,
		Sheet:        sheet,
		OutputColumn: outputColumn,
		Summary:      sess.summary,
	}, nil
}

// applyDefaults fills unset knobs from the config. Temperature uses a
// negative value as "not supplied" so an explicit 0 is honored.
func (s *Service) applyDefaults(opts global.RunOptions) global.RunOptions {
	if opts.Model == "" {
		opts.Model = s.config.DefaultModel()
	}
	if opts.Temperature < 0 {
		opts.Temperature = s.config.DefaultTemperature()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = s.config.MaxConcurrency()
	}
	if opts.MinRequestInterval <= 0 {
		opts.MinRequestInterval = s.config.MinRequestInterval()
	}
	return opts
}

// buildJobs renders a prompt per candidate row. A non-empty output cell
// means the row was already processed, so it is left alone.
func buildJobs(table *workbook.Table, tmpl templates.Template, outputColumn string, rowLimit int) []runner.Job {
	var jobs []runner.Job
	for row := 0; row < table.RowCount(); row++ {
		if rowLimit > 0 && len(jobs) >= rowLimit {
			break
		}
		if existing, _ := table.Cell(row, outputColumn); strings.TrimSpace(existing) != "" {
			continue
		}
		jobs = append(jobs, runner.Job{Row: row, Prompt: tmpl.Render(table.Row(row))})
	}
	return jobs
}

// runCache returns the cache for a new batch according to the configured
// scope
func (s *Service) runCache() *cache.Cache {
	if s.config.CacheScope() == config.CacheScopeRun {
		return cache.New()
	}
	return s.processCache
}

// launch starts the batch and its consumer goroutine. Caller must hold
// sess.mu.
func (s *Service) launch(sess *Session, table *workbook.Table, jobs []runner.Job) {
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.state = global.RunStateRunning
	sess.runDone = make(chan struct{})
	sess.summary = global.RunSummary{
		State:     global.RunStateRunning,
		Total:     len(jobs),
		StartedAt: time.Now(),
	}

	r := runner.New(s.gen, s.runCache(),
		runner.WithRateLimiter(s.limiter),
		runner.WithLogger(s.logger))
	batch := r.Submit(ctx, jobs, sess.opts)

	go s.consume(sess, table, batch, len(jobs))
}

// consume is the single writer for the session's table during a run. It
// folds each result into the output column, records it in the ledger, and
// finalizes the summary when the stream closes.
func (s *Service) consume(sess *Session, table *workbook.Table, batch *runner.Batch, total int) {
	succeeded, failed := 0, 0

	for res := range batch.Results() {
		if res.Status == global.RowStatusSuccess {
			succeeded++
		} else {
			failed++
		}

		sess.mu.Lock()
		if err := table.SetCell(res.Row, sess.outCol, res.Text); err != nil {
			s.logger.Errorf("Session %s: failed to write row %d: %v", sess.ID, res.Row, err)
		}
		sess.results = append(sess.results, res)
		sess.ledger.Record(res)
		// Keep the summary live so run_status reports progress mid-run
		sess.summary.Succeeded = succeeded
		sess.summary.Failed = failed
		sess.summary.Unprocessed = total - succeeded - failed
		sess.mu.Unlock()
	}

	sess.mu.Lock()
	startedAt := sess.summary.StartedAt
	finishedAt := time.Now()
	sess.state = batch.State()
	sess.summary = global.RunSummary{
		State:       batch.State(),
		Outcome:     global.OutcomeFor(batch.Cancelled(), failed),
		Total:       total,
		Succeeded:   succeeded,
		Failed:      failed,
		Unprocessed: total - succeeded - failed,
		Elapsed:     finishedAt.Sub(startedAt),
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
	sess.cancel = nil
	done := sess.runDone
	sess.mu.Unlock()

	s.logger.Infof("Session %s: run %s (%d succeeded, %d failed, %d unprocessed)",
		sess.ID, sess.summary.Outcome, succeeded, failed, total-succeeded-failed)
	close(done)
}

// GetStatus returns a snapshot of the session's run state
func (s *Service) GetStatus(id string) (*Status, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	st := sess.snapshot()
	return &st, nil
}

// Stop requests cooperative cancellation of the active run. It returns
// promptly; in-flight rows finish and the state becomes cancelled once the
// stream drains.
func (s *Service) Stop(id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != global.RunStateRunning || sess.cancel == nil {
		return fmt.Errorf("no run in progress for session %s", id)
	}
	sess.cancel()
	s.logger.Infof("Session %s: stop requested", id)
	return nil
}

// AnyRunning reports whether any session has an active run
func (s *Service) AnyRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		sess.mu.Lock()
		running := sess.state == global.RunStateRunning
		sess.mu.Unlock()
		if running {
			return true
		}
	}
	return false
}

// WaitForRuns blocks until every active run has drained. Used on shutdown
// so in-flight rows are not abandoned mid-call.
func (s *Service) WaitForRuns() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		done := sess.runDone
		sess.mu.Unlock()
		if done != nil {
			<-done
		}
	}
}

// RetryFailed re-dispatches the rows whose last outcome was an error,
// re-rendering each prompt from the table's current contents.
func (s *Service) RetryFailed(id string) (*Status, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == global.RunStateRunning {
		return nil, fmt.Errorf("a run is already in progress for session %s", id)
	}
	if sess.ledger == nil || sess.ledger.Len() == 0 {
		return nil, fmt.Errorf("no failed rows to retry for session %s", id)
	}

	table, err := sess.wb.Table(sess.sheet)
	if err != nil {
		return nil, err
	}

	jobs := runner.RetryJobs(sess.ledger, sess.tmpl, table)
	// A retry is a new run: its log replaces the previous one
	sess.results = nil
	s.launch(sess, table, jobs)

	s.logger.Infof("Session %s: retrying %d failed rows", id, len(jobs))
	return &Status{
		SessionID:    sess.ID,
		State:        sess.state,
		Sheet:        sess.sheet,
		OutputColumn: sess.outCol,
		Summary:      sess.summary,
	}, nil
}
