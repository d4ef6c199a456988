// Package suite loads end-to-end suite files and runs them against a browser.
//
// A Runner is a single-use registration: files are added, loaded, and run
// exactly once. Build a new Runner for every browser.
package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"
)

var (
	// ErrAlreadyRun is returned by Run on a Runner that already ran.
	ErrAlreadyRun = errors.New("runner already ran")
	// ErrNotLoaded is returned by Run before LoadFiles succeeded.
	ErrNotLoaded = errors.New("suite files not loaded")
)

// Runner collects suite files and runs them.
type Runner struct {
	files   []string
	suites  []*Suite
	timeout time.Duration
	rep     *reporter
	loaded  bool
	ran     bool
	stats   Stats
}

// NewRunner returns an empty runner printing its report to out.
// A nil out discards the report.
func NewRunner(out io.Writer) *Runner {
	return &Runner{rep: newReporter(out)}
}

// AddFile registers a suite file. Files are read by LoadFiles.
func (r *Runner) AddFile(path string) *Runner {
	r.files = append(r.files, path)
	return r
}

// Files returns the registered suite files in registration order.
func (r *Runner) Files() []string {
	return slices.Clone(r.files)
}

// Timeout sets the timeout inherited by every test and hook of suites that
// do not set their own. Zero disables it.
func (r *Runner) Timeout(d time.Duration) *Runner {
	r.timeout = d
	return r
}

// LoadFiles parses every registered file. The first error aborts loading.
func (r *Runner) LoadFiles() error {
	suites := make([]*Suite, 0, len(r.files))
	for _, f := range r.files {
		s, err := ParseFile(f)
		if err != nil {
			return fmt.Errorf("load suite: %w", err)
		}
		suites = append(suites, s)
	}
	r.suites = suites
	r.loaded = true
	return nil
}

// Suites returns the loaded top-level suites.
func (r *Runner) Suites() []*Suite {
	return slices.Clone(r.suites)
}

// Stats returns the statistics of the finished run.
func (r *Runner) Stats() Stats {
	return r.stats
}

// Run executes every loaded suite against rc and returns the number of
// failures; zero means success. The error is non-nil only when the run
// could not take place or ctx was canceled.
func (r *Runner) Run(ctx context.Context, rc RunContext) (int, error) {
	if !r.loaded {
		return 0, ErrNotLoaded
	}
	if r.ran {
		return 0, ErrAlreadyRun
	}
	if rc.Driver == nil {
		return 0, errors.New("run context has no driver")
	}
	r.ran = true

	only := slices.ContainsFunc(r.suites, func(s *Suite) bool {
		return slices.ContainsFunc(s.Tests, func(t Test) bool { return t.Only })
	})

	r.rep.begin()
	for _, s := range r.suites {
		if err := ctx.Err(); err != nil {
			r.stats = r.rep.end()
			return r.stats.Failures, err
		}
		r.runSuite(ctx, s, rc, only)
	}
	r.stats = r.rep.end()
	return r.stats.Failures, ctx.Err()
}

func (r *Runner) runSuite(ctx context.Context, s *Suite, rc RunContext, only bool) {
	tests := s.Tests
	if only {
		tests = slices.DeleteFunc(slices.Clone(tests), func(t Test) bool { return !t.Only })
	}
	if len(tests) == 0 {
		return
	}

	timeout := time.Duration(s.Timeout)
	if timeout == 0 {
		timeout = r.timeout
	}

	r.rep.suite(s.Name)

	page, err := rc.Driver.NewPage(ctx)
	if err != nil {
		r.rep.fail(s.Name, `"before all" hook`, err)
		return
	}
	defer page.Close()

	err = withTimeout(ctx, timeout, func(ctx context.Context) error {
		return runSteps(ctx, s.Before, page, rc)
	})
	if err != nil {
		r.rep.fail(s.Name, `"before all" hook`, err)
	} else {
		for _, t := range tests {
			if ctx.Err() != nil {
				return
			}
			if t.Skip {
				r.rep.pending(t.Name)
				continue
			}
			start := time.Now()
			err := withTimeout(ctx, timeout, func(ctx context.Context) error {
				return runTest(ctx, s, t, page, rc)
			})
			if err != nil {
				r.rep.fail(s.Name, t.Name, err)
			} else {
				r.rep.pass(t.Name, time.Since(start))
			}
		}
	}

	err = withTimeout(ctx, timeout, func(ctx context.Context) error {
		return runSteps(ctx, s.After, page, rc)
	})
	if err != nil {
		r.rep.fail(s.Name, `"after all" hook`, err)
	}
}

// runTest runs the test body between the suite's each-hooks. afterEach
// runs even when the body failed; the body's error wins.
func runTest(ctx context.Context, s *Suite, t Test, page Page, rc RunContext) error {
	if err := runSteps(ctx, s.BeforeEach, page, rc); err != nil {
		return fmt.Errorf(`"before each" hook: %w`, err)
	}
	err := runSteps(ctx, t.Steps, page, rc)
	if aerr := runSteps(ctx, s.AfterEach, page, rc); aerr != nil && err == nil {
		err = fmt.Errorf(`"after each" hook: %w`, aerr)
	}
	return err
}

func runSteps(ctx context.Context, steps []Step, page Page, rc RunContext) error {
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.run(ctx, page, rc); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Kind(), err)
		}
	}
	return nil
}

// withTimeout runs fn and fails once timeout elapses, whether or not fn
// honors its context.
func withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(tctx) }()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return timeoutError(timeout)
		}
		return err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return timeoutError(timeout)
	}
}

func timeoutError(d time.Duration) error {
	return fmt.Errorf("timeout of %dms exceeded", d.Milliseconds())
}
