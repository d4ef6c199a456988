// Package browser finds locally installed browsers and drives them through Rod.
package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/go-rod/rod/lib/launcher"
)

// Browser identifiers.
const (
	Chrome   = "chrome"
	Chromium = "chromium"
	Edge     = "msedge"
	Firefox  = "firefox"
)

// Release channels.
const (
	Stable   = "stable"
	Beta     = "beta"
	Unstable = "unstable"
	Canary   = "canary"
)

// NoSandboxArg disables the browser sandbox, which containers and CI
// machines usually cannot create.
const NoSandboxArg = "--no-sandbox"

// AllowedBrowsers lists the browser ids suites run against.
var AllowedBrowsers = []string{Chrome}

// LaunchOptions holds the command line arguments a browser is started with.
type LaunchOptions struct {
	args []string
}

// AddArguments appends args, ignoring ones already present.
func (o *LaunchOptions) AddArguments(args ...string) *LaunchOptions {
	for _, a := range args {
		if !o.Has(a) {
			o.args = append(o.args, a)
		}
	}
	return o
}

// Has reports whether arg is set.
func (o *LaunchOptions) Has(arg string) bool {
	return slices.Contains(o.args, arg)
}

// Arguments returns a copy of the launch arguments.
func (o *LaunchOptions) Arguments() []string {
	return slices.Clone(o.args)
}

// Descriptor identifies one installed browser.
type Descriptor struct {
	ID      string
	Release string
	Path    string

	options *LaunchOptions
}

// NewDescriptor returns a descriptor with empty launch options.
func NewDescriptor(id, release, path string) *Descriptor {
	return &Descriptor{ID: id, Release: release, Path: path, options: &LaunchOptions{}}
}

// Options returns the mutable launch options of the browser.
func (d *Descriptor) Options() *LaunchOptions {
	if d.options == nil {
		d.options = &LaunchOptions{}
	}
	return d.options
}

// Chromium reports whether the browser speaks the DevTools protocol.
func (d *Descriptor) Chromium() bool {
	switch d.ID {
	case Chrome, Chromium, Edge:
		return true
	}
	return false
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.ID, d.Release)
}

// Wanted reports whether suites should run against d: a stable release of
// an allowed browser.
func Wanted(d *Descriptor) bool {
	return d.Release == Stable && slices.Contains(AllowedBrowsers, d.ID)
}

// Unsandbox adds NoSandboxArg to the designated target browser (stable
// chrome). Other descriptors are returned unmodified.
func Unsandbox(d *Descriptor) *Descriptor {
	if d.ID == Chrome && d.Release == Stable {
		d.Options().AddArguments(NoSandboxArg)
	}
	return d
}

// Select keeps the wanted descriptors, in order, and unsandboxes them.
func Select(ds []*Descriptor) []*Descriptor {
	var out []*Descriptor
	for _, d := range ds {
		if Wanted(d) {
			out = append(out, Unsandbox(d))
		}
	}
	return out
}

// install describes where one browser channel lives on a platform.
// Paths may reference environment variables (${LOCALAPPDATA}).
type install struct {
	id      string
	release string
	paths   []string
	names   []string // executables looked up on PATH
}

var installs = map[string][]install{
	"linux": {
		{Chrome, Stable, []string{"/opt/google/chrome/chrome"}, []string{"google-chrome-stable", "google-chrome"}},
		{Chrome, Beta, []string{"/opt/google/chrome-beta/chrome"}, []string{"google-chrome-beta"}},
		{Chrome, Unstable, []string{"/opt/google/chrome-unstable/chrome"}, []string{"google-chrome-unstable"}},
		{Chromium, Stable, []string{"/usr/lib/chromium/chromium", "/snap/bin/chromium"}, []string{"chromium", "chromium-browser"}},
		{Edge, Stable, []string{"/opt/microsoft/msedge/msedge"}, []string{"microsoft-edge-stable", "microsoft-edge"}},
		{Edge, Beta, []string{"/opt/microsoft/msedge-beta/msedge"}, []string{"microsoft-edge-beta"}},
		{Edge, Unstable, []string{"/opt/microsoft/msedge-dev/msedge"}, []string{"microsoft-edge-dev"}},
		{Firefox, Stable, []string{"/usr/lib/firefox/firefox"}, []string{"firefox"}},
		{Firefox, Beta, nil, []string{"firefox-beta"}},
		{Firefox, Unstable, nil, []string{"firefox-nightly"}},
	},
	"darwin": {
		{Chrome, Stable, []string{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"}, nil},
		{Chrome, Beta, []string{"/Applications/Google Chrome Beta.app/Contents/MacOS/Google Chrome Beta"}, nil},
		{Chrome, Unstable, []string{"/Applications/Google Chrome Dev.app/Contents/MacOS/Google Chrome Dev"}, nil},
		{Chrome, Canary, []string{"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary"}, nil},
		{Chromium, Stable, []string{"/Applications/Chromium.app/Contents/MacOS/Chromium"}, nil},
		{Edge, Stable, []string{"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"}, nil},
		{Firefox, Stable, []string{"/Applications/Firefox.app/Contents/MacOS/firefox"}, nil},
		{Firefox, Unstable, []string{"/Applications/Firefox Nightly.app/Contents/MacOS/firefox"}, nil},
	},
	"windows": {
		{Chrome, Stable, []string{
			`${ProgramFiles}\Google\Chrome\Application\chrome.exe`,
			`${ProgramFiles(x86)}\Google\Chrome\Application\chrome.exe`,
			`${LOCALAPPDATA}\Google\Chrome\Application\chrome.exe`,
		}, nil},
		{Chrome, Beta, []string{`${ProgramFiles}\Google\Chrome Beta\Application\chrome.exe`}, nil},
		{Chrome, Canary, []string{`${LOCALAPPDATA}\Google\Chrome SxS\Application\chrome.exe`}, nil},
		{Edge, Stable, []string{`${ProgramFiles(x86)}\Microsoft\Edge\Application\msedge.exe`}, nil},
		{Firefox, Stable, []string{`${ProgramFiles}\Mozilla Firefox\firefox.exe`}, nil},
	},
}

// Catalog enumerates browsers installed on the local machine.
type Catalog struct {
	goos     string
	stat     func(string) (os.FileInfo, error)
	lookPath func(string) (string, error)
	getenv   func(string) string
	resolve  func(string) (string, error)
	// rodLookPath finds a Chromium build the way Rod's launcher does.
	rodLookPath func() (string, bool)
}

// NewCatalog returns a catalog for the running platform.
func NewCatalog() *Catalog {
	return &Catalog{
		goos:        runtime.GOOS,
		stat:        os.Stat,
		lookPath:    exec.LookPath,
		getenv:      os.Getenv,
		resolve:     filepath.EvalSymlinks,
		rodLookPath: launcher.LookPath,
	}
}

// ListLocal returns every installed browser, in table order. Each channel
// yields at most one descriptor and a binary is only reported once.
func (c *Catalog) ListLocal() []*Descriptor {
	var (
		out  []*Descriptor
		seen = map[string]bool{}
		have = map[string]bool{}
	)
	add := func(id, release, path string) {
		key := id + "/" + release
		if have[key] {
			return
		}
		resolved := path
		if c.resolve != nil {
			if r, err := c.resolve(path); err == nil {
				resolved = r
			}
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		have[key] = true
		out = append(out, NewDescriptor(id, release, path))
	}

	for _, in := range installs[c.goos] {
		if p, ok := c.find(in); ok {
			add(in.id, in.release, p)
		}
	}
	if c.rodLookPath != nil {
		if p, ok := c.rodLookPath(); ok {
			add(Chromium, Stable, p)
		}
	}
	return out
}

func (c *Catalog) find(in install) (string, bool) {
	for _, p := range in.paths {
		p = os.Expand(p, c.getenv)
		if p == "" {
			continue
		}
		if info, err := c.stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	for _, name := range in.names {
		if p, err := c.lookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}
