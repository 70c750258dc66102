package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/display"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

// Store persists suite runs. *history.Database implements it.
type Store interface {
	CreateRun(run *history.SuiteRun) error
	AddResult(result *history.SuiteResult) error
	CompleteRun(runID, status string, passed, failed int) error
}

// RunStats summarizes a run
type RunStats struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	PassRate float64       `json:"pass_rate"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of running a suite
type Report struct {
	Run     *history.SuiteRun      `json:"run"`
	Stats   RunStats               `json:"stats"`
	Results []*history.SuiteResult `json:"results"`
}

// Failures returns the results that did not pass
func (r *Report) Failures() []*history.SuiteResult {
	var failed []*history.SuiteResult
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Runner evaluates suites
type Runner struct {
	store   Store
	opts    calc.Options
	workers int
	log     *logger.Logger

	// OnResult, when set, is called for every case result as it is produced
	OnResult func(suiteID string, result *history.SuiteResult)
}

// NewRunner creates a runner. store may be nil, in which case runs are
// not persisted. workers < 1 uses the default.
func NewRunner(store Store, opts calc.Options, workers int) *Runner {
	if workers < 1 {
		workers = consts.DefaultSuiteWorkers
	}
	return &Runner{
		store:   store,
		opts:    opts,
		workers: workers,
		log:     logger.Global().WithPrefix("suite"),
	}
}

// Run evaluates every case of s with at most workers cases in flight.
// Cancelling ctx stops the run and marks it failed.
func (r *Runner) Run(ctx context.Context, s *Suite) (*Report, error) {
	opts := r.opts
	if s.AllowUnaryPlus {
		opts.AllowUnaryPlus = true
	}
	evaluator := calc.New(opts)

	run := &history.SuiteRun{
		ID:        uuid.NewString(),
		SuiteID:   s.ID,
		Status:    history.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if r.store != nil {
		if err := r.store.CreateRun(run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
	}
	r.log.Info("running suite %s (%d cases, run %s)", s.ID, len(s.Cases), run.ID)

	results := make([]*history.SuiteResult, len(s.Cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range s.Cases {
		c := &s.Cases[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := check(evaluator, c)
			res.RunID = run.ID
			results[i] = res
			if r.OnResult != nil {
				r.OnResult(s.ID, res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.finish(run, history.RunFailed, 0, 0)
		return nil, fmt.Errorf("suite %s interrupted: %w", s.ID, err)
	}

	stats := RunStats{Total: len(results)}
	for _, res := range results {
		if res.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
		if r.store != nil {
			if err := r.store.AddResult(res); err != nil {
				r.log.Error("failed to store result %s/%s: %v", s.ID, res.CaseID, err)
			}
		}
	}
	if stats.Total > 0 {
		stats.PassRate = float64(stats.Passed) / float64(stats.Total)
	}

	r.finish(run, history.RunCompleted, stats.Passed, stats.Failed)
	stats.Duration = time.Since(run.StartedAt)
	r.log.Info("suite %s finished: %d/%d passed", s.ID, stats.Passed, stats.Total)

	return &Report{Run: run, Stats: stats, Results: results}, nil
}

func (r *Runner) finish(run *history.SuiteRun, status string, passed, failed int) {
	now := time.Now().UTC()
	run.Status = status
	run.Passed = passed
	run.Failed = failed
	run.CompletedAt = &now
	if r.store == nil {
		return
	}
	if err := r.store.CompleteRun(run.ID, status, passed, failed); err != nil {
		r.log.Error("failed to complete run %s: %v", run.ID, err)
	}
}

// check evaluates one case and compares the outcome with its expectation
func check(evaluator *calc.Evaluator, c *Case) *history.SuiteResult {
	start := time.Now()
	value, err := evaluator.Calculate(c.Expression)
	res := &history.SuiteResult{
		CaseID:     c.ID,
		Expression: c.Expression,
		DurationUS: time.Since(start).Microseconds(),
	}

	if err != nil {
		_, kind := calc.Classify(err)
		res.Actual = kind
		res.Error = err.Error()
	} else {
		res.Actual = display.Number(value, -1)
	}

	if c.Expect != nil {
		res.Expected = display.Number(*c.Expect, -1)
		res.Passed = err == nil && Within(value, *c.Expect, c.Tol())
		return res
	}

	res.Expected = c.ExpectError
	if err != nil {
		class, kind := calc.Classify(err)
		res.Passed = kind == c.ExpectError || string(class) == c.ExpectError
	}
	return res
}
