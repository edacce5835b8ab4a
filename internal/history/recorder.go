package history

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/loxoracle/core/cas"
	"github.com/FocuswithJustin/loxoracle/core/report"
	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

// Recorder is a suite.Reporter that writes every verdict to the history.
// Storage errors do not interrupt the suite; the first one is kept and
// returned by Err.
type Recorder struct {
	ctx     context.Context
	db      *DB
	run     Run
	baseDir string
	summary *report.Collector

	mu  sync.Mutex
	err error
}

// NewRecorder begins a run and returns a recorder for it. run.ID and
// run.StartedAt are filled in when empty. baseDir is the directory fixture
// paths are relative to; fixtures are hashed from there.
func NewRecorder(ctx context.Context, db *DB, run Run, baseDir string) (*Recorder, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := db.BeginRun(ctx, run); err != nil {
		return nil, err
	}
	return &Recorder{
		ctx:     ctx,
		db:      db,
		run:     run,
		baseDir: baseDir,
		summary: report.NewCollector(run.Interpreter, run.Language),
	}, nil
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// Run returns the run as recorded so far.
func (r *Recorder) Run() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

// Err returns the first storage error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) fail(err error) {
	if err == nil {
		return
	}
	logging.WarnContext(r.ctx, "history_write_failed", "run_id", r.run.ID, "error", err.Error())
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *Recorder) Start(string, suite.Tally) {}

func (r *Recorder) Result(o suite.Outcome, t suite.Tally) {
	r.summary.Result(o, t)

	res := Result{
		Path:         o.Path,
		Verdict:      string(o.Verdict),
		SkipReason:   o.SkipReason,
		Expectations: o.Expectations,
		DurationMS:   o.Duration.Milliseconds(),
	}
	for _, f := range o.Failures {
		res.Failures = append(res.Failures, f.String())
	}
	if data, err := os.ReadFile(r.resolve(o.Path)); err == nil {
		res.FixtureHash = cas.Blake3Hash(data)
	}
	r.fail(r.db.AddResult(r.ctx, r.run.ID, res))
}

func (r *Recorder) Finish(t suite.Tally) {
	r.summary.Finish(t)

	r.mu.Lock()
	r.run.Passed = t.Passed
	r.run.Failed = t.Failed
	r.run.Skipped = t.Skipped
	r.run.Expectations = t.Expectations
	now := time.Now()
	r.run.FinishedAt = &now
	r.mu.Unlock()

	fp, err := report.Fingerprint(r.summary.Summary())
	if err != nil {
		r.fail(err)
	}
	r.mu.Lock()
	r.run.Fingerprint = fp
	run := r.run
	r.mu.Unlock()

	r.fail(r.db.FinishRun(r.ctx, run))
}

func (r *Recorder) resolve(path string) string {
	native := filepath.FromSlash(path)
	if filepath.IsAbs(native) || r.baseDir == "" {
		return native
	}
	return filepath.Join(r.baseDir, native)
}
