package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePage records every action and answers from canned values.
type fakePage struct {
	mu     sync.Mutex
	calls  []string
	texts  map[string]string
	evals  map[string]any
	errs   map[string]error // keyed by url, selector or script
	hang   chan struct{}    // when set, Click blocks until it is closed, ignoring ctx
	closed bool
}

func newFakePage() *fakePage {
	return &fakePage{
		texts: map[string]string{},
		evals: map[string]any{},
		errs:  map[string]error{},
	}
}

func (p *fakePage) record(call, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call+" "+key)
	return p.errs[key]
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	return p.record("navigate", url)
}

func (p *fakePage) WaitVisible(_ context.Context, selector string) error {
	return p.record("waitVisible", selector)
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	if p.hang != nil {
		<-p.hang
	}
	return p.record("click", selector)
}

func (p *fakePage) Input(_ context.Context, selector, text string) error {
	return p.record("input", selector+"="+text)
}

func (p *fakePage) Text(_ context.Context, selector string) (string, error) {
	if err := p.record("text", selector); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[selector], nil
}

func (p *fakePage) Eval(_ context.Context, js string) (any, error) {
	if err := p.record("eval", js); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evals[js], nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeDriver struct {
	page  *fakePage
	err   error
	pages int
}

func (d *fakeDriver) Name() string { return "fake (stable)" }

func (d *fakeDriver) NewPage(context.Context) (Page, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.pages++
	return d.page, nil
}

func newRunContext() (RunContext, *fakeDriver) {
	d := &fakeDriver{page: newFakePage()}
	return RunContext{Driver: d, Address: "http://localhost:4000"}, d
}

// writeUnit creates <root>/<unit>/ holding the given files.
func writeUnit(t *testing.T, root, unit string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, unit)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func suiteDoc(name string, body string) string {
	return fmt.Sprintf("suite: %s\n%s", name, body)
}
