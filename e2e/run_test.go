//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/e2erun/pkg/e2e"
	"github.com/thesyncim/e2erun/pkg/e2e/browser"
	"github.com/thesyncim/e2erun/pkg/e2e/server"
	"github.com/thesyncim/e2erun/pkg/e2e/suite"
)

type browserList []*browser.Descriptor

func (b browserList) ListLocal() []*browser.Descriptor { return b }

// stableChrome returns the installed stable Chrome, or a Chromium build
// downloaded by Rod presented as one.
func stableChrome(t *testing.T) *browser.Descriptor {
	t.Helper()
	for _, d := range browser.NewCatalog().ListLocal() {
		if browser.Wanted(d) {
			return d
		}
	}
	path, err := launcher.NewBrowser().Get()
	require.NoError(t, err, "no stable chrome installed and download failed")
	return browser.NewDescriptor(browser.Chrome, browser.Stable, path)
}

func testConfig() e2e.Config {
	cfg := e2e.DefaultConfig()
	cfg.DocsDir = filepath.Join("testdata", "docs")
	cfg.ElementsDir = filepath.Join("testdata", "elements")
	cfg.SuiteTimeout = 30 * time.Second
	return cfg
}

// TestOrchestrator_RunsSuites runs the fixture suites end to end:
// 1. Server serves testdata/docs on a random port
// 2. Chrome launches unsandboxed and headless
// 3. Only my-counter is discovered (my-label has no suite)
// 4. Every test passes and teardown kills the browser
func TestOrchestrator_RunsSuites(t *testing.T) {
	var out bytes.Buffer
	orch, err := e2e.New(testConfig(),
		e2e.WithBrowsers(browserList{stableChrome(t)}),
		e2e.WithOutput(&out),
	)
	require.NoError(t, err)

	err = orch.Run(context.Background())
	t.Log(out.String())
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "my-counter")
	assert.Contains(t, report, "4 passing")
	assert.NotContains(t, report, "my-label")
	assert.Contains(t, report, "Killing all browser instances...")
	assert.Contains(t, report, "Done.")
}

// TestOrchestrator_ReportsFailures checks a failing assertion surfaces as a
// test failure error.
func TestOrchestrator_ReportsFailures(t *testing.T) {
	elements := t.TempDir()
	unit := filepath.Join(elements, "my-counter")
	require.NoError(t, os.MkdirAll(unit, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(unit, "my-counter.e2etest.yaml"), []byte(`
suite: my-counter
tests:
  - name: expects the wrong count
    steps:
      - navigate: /my-counter/demo.html
      - eval: "() => document.querySelector('my-counter').count"
        expect: 5
`), 0o644))

	cfg := testConfig()
	cfg.ElementsDir = elements

	var out bytes.Buffer
	orch, err := e2e.New(cfg,
		e2e.WithBrowsers(browserList{stableChrome(t)}),
		e2e.WithOutput(&out),
	)
	require.NoError(t, err)

	err = orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, e2e.IsTestFailureError(err))
	assert.Contains(t, out.String(), "eval result mismatch")
}

// TestDriver_ScriptTimeout verifies a hung script is cut off by the
// driver's script timeout.
func TestDriver_ScriptTimeout(t *testing.T) {
	scfg := server.DefaultConfig()
	scfg.Root = filepath.Join("testdata", "docs")
	srv, err := server.NewServer(scfg)
	require.NoError(t, err)
	_, err = srv.Start()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("server shutdown error: %v", err)
		}
	}()

	d := browser.Unsandbox(stableChrome(t))
	drv, err := browser.Launch(context.Background(), d, browser.DefaultLaunchConfig())
	require.NoError(t, err)
	defer func() {
		if err := drv.Kill(); err != nil {
			t.Errorf("browser kill error: %v", err)
		}
	}()
	drv.SetScriptTimeout(500 * time.Millisecond)

	ctx := context.Background()
	page, err := drv.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()

	rc := suite.RunContext{Driver: drv, Address: srv.BaseURL()}
	require.NoError(t, page.Navigate(ctx, rc.URL("/index.html")))

	title, err := page.Eval(ctx, "() => document.title")
	require.NoError(t, err)
	assert.Equal(t, "Elements", title)

	start := time.Now()
	_, err = page.Eval(ctx, "() => new Promise(() => {})")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
