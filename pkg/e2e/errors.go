package e2e

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess = 0 // Every suite passed
	ExitFailure = 1 // Startup, discovery or any suite failed
)

// Stage names the part of a run that could not complete.
type Stage string

const (
	StageConfig    Stage = "config"
	StageStartup   Stage = "startup"
	StageDiscovery Stage = "discovery"
)

// RuntimeError aborts a run before the suites could produce a verdict.
type RuntimeError struct {
	Stage Stage
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// NewRuntimeError tags err with the stage it happened in.
func NewRuntimeError(stage Stage, err error) *RuntimeError {
	return &RuntimeError{Stage: stage, Err: err}
}

// IsRuntimeError reports whether err wraps a *RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// TestFailureError reports a run that completed with failing tests.
type TestFailureError struct {
	Browser  string
	Failures int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("%s: %d failing", e.Browser, e.Failures)
}

func NewTestFailureError(browser string, failures int) *TestFailureError {
	return &TestFailureError{Browser: browser, Failures: failures}
}

// IsTestFailureError reports whether err wraps a *TestFailureError.
func IsTestFailureError(err error) bool {
	var tf *TestFailureError
	return errors.As(err, &tf)
}

// FailureMessage renders the result of a failed run for the terminal. Test
// failures and aborted runs read differently so a broken setup is not
// mistaken for a red suite.
func FailureMessage(err error) string {
	var (
		tf *TestFailureError
		re *RuntimeError
	)
	switch {
	case errors.As(err, &tf):
		return fmt.Sprintf("e2e tests failed on %s: %d failing", tf.Browser, tf.Failures)
	case errors.As(err, &re):
		return fmt.Sprintf("e2e run aborted during %s: %v", re.Stage, re.Err)
	default:
		return fmt.Sprintf("e2e run aborted: %v", err)
	}
}

// ExitCode maps the result of Run onto the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitFailure
}
