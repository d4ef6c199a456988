package suite

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Stats summarizes a finished run.
type Stats struct {
	Suites   int
	Passes   int
	Pending  int
	Failures int
	Duration time.Duration
}

type failure struct {
	suite string
	title string
	err   error
}

// reporter prints one indented line per test,
// a summary and the numbered failure details.
type reporter struct {
	w        io.Writer
	stats    Stats
	failures []failure
	start    time.Time
}

func newReporter(w io.Writer) *reporter {
	if w == nil {
		w = io.Discard
	}
	return &reporter{w: w}
}

func (r *reporter) begin() {
	r.start = time.Now()
}

func (r *reporter) suite(name string) {
	r.stats.Suites++
	fmt.Fprintf(r.w, "\n  %s\n", name)
}

func (r *reporter) pass(title string, d time.Duration) {
	r.stats.Passes++
	fmt.Fprintf(r.w, "    ✓ %s (%dms)\n", title, d.Milliseconds())
}

func (r *reporter) pending(title string) {
	r.stats.Pending++
	fmt.Fprintf(r.w, "    - %s\n", title)
}

func (r *reporter) fail(suite, title string, err error) {
	r.stats.Failures++
	r.failures = append(r.failures, failure{suite: suite, title: title, err: err})
	fmt.Fprintf(r.w, "    %d) %s\n", len(r.failures), title)
}

func (r *reporter) end() Stats {
	r.stats.Duration = time.Since(r.start)

	fmt.Fprintf(r.w, "\n\n  %d passing (%s)\n", r.stats.Passes, r.stats.Duration.Round(time.Millisecond))
	if r.stats.Pending > 0 {
		fmt.Fprintf(r.w, "  %d pending\n", r.stats.Pending)
	}
	if r.stats.Failures > 0 {
		fmt.Fprintf(r.w, "  %d failing\n", r.stats.Failures)
	}
	for i, f := range r.failures {
		fmt.Fprintf(r.w, "\n  %d) %s\n       %s:\n", i+1, f.suite, f.title)
		for _, line := range strings.Split(f.err.Error(), "\n") {
			fmt.Fprintf(r.w, "     %s\n", line)
		}
	}
	fmt.Fprintln(r.w)
	return r.stats
}
