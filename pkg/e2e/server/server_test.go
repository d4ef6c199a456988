package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"),
		[]byte("<html><title>Elements Docs</title></html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "my-button"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "my-button", "demo.html"),
		[]byte("<my-button>press</my-button>"), 0o644))
	return root
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Root = testRoot(t)
	return cfg
}

func TestServerStartStop(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)

	addr, err := srv.Start()
	require.NoError(t, err)

	// Verify we got a real address (not :0)
	if addr == "" || addr == ":0" {
		t.Errorf("Start() returned invalid address: %q", addr)
	}
	t.Logf("Server started on %s", addr)

	assert.Equal(t, addr, srv.Addr())

	resp, err := http.Get(srv.BaseURL() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Elements Docs")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/")
	assert.Error(t, err, "expected connection error after shutdown")
	assert.Empty(t, srv.Addr())
}

func TestServerServesNestedFiles(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	_, err = srv.Start()
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get(srv.BaseURL() + "/my-button/demo.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<my-button>press</my-button>", string(body))

	resp, err = http.Get(srv.BaseURL() + "/missing.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerRejectsWrites(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	_, err = srv.Start()
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Post(srv.BaseURL()+"/index.html", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":0", cfg.Addr)
	assert.Equal(t, "docs", cfg.Root)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
}

func TestNewServerMissingRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Join(t.TempDir(), "nope")
	_, err := NewServer(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewServerRootIsFile(t *testing.T) {
	root := testRoot(t)
	cfg := DefaultConfig()
	cfg.Root = filepath.Join(root, "index.html")
	_, err := NewServer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestServerDoubleStart(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	addr1, err := srv.Start()
	require.NoError(t, err)

	// Second start should return same address (no error)
	addr2, err := srv.Start()
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)
}

func TestServerShutdownTwice(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	_, err = srv.Start()
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))

	_, err = srv.Start()
	assert.ErrorIs(t, err, http.ErrServerClosed)
}

func TestServerBindFailure(t *testing.T) {
	first, err := NewServer(testConfig(t))
	require.NoError(t, err)
	addr, err := first.Start()
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	cfg := testConfig(t)
	cfg.Addr = addr
	second, err := NewServer(cfg)
	require.NoError(t, err)
	_, err = second.Start()
	assert.Error(t, err)
}
