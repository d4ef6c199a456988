package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/thesyncim/e2erun/pkg/e2e/suite"
)

// ErrUnsupportedBrowser is returned when a browser cannot be driven over
// the DevTools protocol.
var ErrUnsupportedBrowser = errors.New("browser does not support the DevTools protocol")

// LaunchConfig configures how a browser is started.
type LaunchConfig struct {
	Headless bool          // Run in headless mode (default: true)
	Timeout  time.Duration // Navigation timeout (default: 30s)
	Logger   *slog.Logger
}

// DefaultLaunchConfig returns sensible defaults for E2E testing.
func DefaultLaunchConfig() LaunchConfig {
	return LaunchConfig{
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

// Driver is a live automation session that owns one browser process.
type Driver struct {
	desc     *Descriptor
	launcher *launcher.Launcher
	browser  *rod.Browser
	pid      int
	timeout  time.Duration
	log      *slog.Logger

	mu            sync.Mutex
	scriptTimeout time.Duration
	killed        bool
}

// Launch starts the browser described by d with its launch options and
// connects to it.
func Launch(ctx context.Context, d *Descriptor, cfg LaunchConfig) (*Driver, error) {
	if !d.Chromium() {
		return nil, fmt.Errorf("%s: %w", d, ErrUnsupportedBrowser)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := launcher.New().
		Context(ctx).
		Bin(d.Path).
		Headless(cfg.Headless)
	for _, arg := range d.Options().Arguments() {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", d, err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to %s: %w", d, err)
	}

	logger.Debug("browser launched", "browser", d.String(), "path", d.Path, "pid", l.PID(), "args", d.Options().Arguments())

	return &Driver{
		desc:     d,
		launcher: l,
		browser:  browser,
		pid:      l.PID(),
		timeout:  cfg.Timeout,
		log:      logger,
	}, nil
}

// Name identifies the driven browser.
func (d *Driver) Name() string {
	return d.desc.String()
}

// Descriptor returns the browser this driver was launched from.
func (d *Driver) Descriptor() *Descriptor {
	return d.desc
}

// SetScriptTimeout bounds every script evaluation on pages opened afterwards.
// Zero disables the bound.
func (d *Driver) SetScriptTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scriptTimeout = timeout
}

// ScriptTimeout returns the current script timeout.
func (d *Driver) ScriptTimeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scriptTimeout
}

// NewPage opens a blank tab.
func (d *Driver) NewPage(ctx context.Context) (suite.Page, error) {
	page, err := d.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &Page{
		page:          page,
		timeout:       d.timeout,
		scriptTimeout: d.ScriptTimeout(),
	}, nil
}

// Kill closes the browser and makes sure its process tree is gone.
// Always call this (via defer) to prevent orphaned browser processes.
func (d *Driver) Kill() error {
	d.mu.Lock()
	if d.killed {
		d.mu.Unlock()
		return nil
	}
	d.killed = true
	d.mu.Unlock()

	var errs []error
	err := shutdownTree(d.pid, func() {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", d.Name(), err))
		}
		d.launcher.Kill()
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("kill %s: %w", d.Name(), err))
	}
	d.launcher.Cleanup()

	d.log.Debug("browser killed", "browser", d.Name(), "pid", d.pid)
	return errors.Join(errs...)
}

// Page wraps a Rod page with the driver's timeouts.
type Page struct {
	page          *rod.Page
	timeout       time.Duration
	scriptTimeout time.Duration
}

// Navigate opens url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if p.timeout > 0 {
		page = page.Timeout(p.timeout)
		defer page.CancelTimeout()
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

func (p *Page) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el, nil
}

// WaitVisible waits until selector matches a visible element.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %q not visible: %w", selector, err)
	}
	return nil
}

// Click left-clicks the element matching selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Input types text into the element matching selector.
func (p *Page) Input(ctx context.Context, selector, text string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input %q: %w", selector, err)
	}
	return nil
}

// Text returns the text content of the element matching selector.
func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	el, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text %q: %w", selector, err)
	}
	return text, nil
}

// Eval executes a JavaScript function, bounded by the script timeout.
func (p *Page) Eval(ctx context.Context, js string) (any, error) {
	page := p.page.Context(ctx)
	if p.scriptTimeout > 0 {
		page = page.Timeout(p.scriptTimeout)
		defer page.CancelTimeout()
	}
	result, err := page.Eval(js)
	if err != nil {
		return nil, fmt.Errorf("eval failed: %w", err)
	}
	return result.Value.Val(), nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}
