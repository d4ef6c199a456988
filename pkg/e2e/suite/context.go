package suite

import (
	"context"
	"strings"
)

// Page is one browser tab a suite drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Input(ctx context.Context, selector, text string) error
	Text(ctx context.Context, selector string) (string, error)
	// Eval runs a JavaScript function in the page and returns its
	// JSON-decoded result.
	Eval(ctx context.Context, js string) (any, error)
	Close() error
}

// Driver opens pages in one live browser.
type Driver interface {
	Name() string
	NewPage(ctx context.Context) (Page, error)
}

// RunContext is what every suite of a run needs to reach the system under
// test. It is passed by value and never mutated by the runner.
type RunContext struct {
	Driver  Driver
	Address string // base URL of the static server, e.g. http://localhost:41234
}

// URL resolves path against Address. Absolute URLs are returned unchanged.
func (rc RunContext) URL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(rc.Address, "/") + "/" + strings.TrimPrefix(path, "/")
}
