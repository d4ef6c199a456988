package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thesyncim/e2erun/pkg/e2e/browser"
	"github.com/thesyncim/e2erun/pkg/e2e/server"
	"github.com/thesyncim/e2erun/pkg/e2e/suite"
)

// Server is the static file server suites run against.
type Server interface {
	Start() (string, error)
	BaseURL() string
	Shutdown(ctx context.Context) error
}

// Driver is a live browser session owned by the orchestrator.
type Driver interface {
	suite.Driver
	SetScriptTimeout(time.Duration)
	Kill() error
}

// Browsers enumerates locally installed browsers.
type Browsers interface {
	ListLocal() []*browser.Descriptor
}

// LaunchFunc starts a browser and returns its driver.
type LaunchFunc func(ctx context.Context, d *browser.Descriptor) (Driver, error)

// BuildFunc discovers suites and returns a fresh, loaded runner.
type BuildFunc func() (*suite.Runner, error)

// RunState is the progress of one driver's run.
type RunState int

const (
	StateNotStarted RunState = iota
	StateDiscovering
	StateRunning
	StatePassed
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateDiscovering:
		return "discovering"
	case StateRunning:
		return "running"
	case StatePassed:
		return "finished: success"
	case StateFailed:
		return "finished: failure"
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// Orchestrator starts the server and browsers, runs every suite against
// each browser in turn, and tears everything down.
type Orchestrator struct {
	cfg      Config
	log      *slog.Logger
	out      io.Writer
	server   Server
	browsers Browsers
	launch   LaunchFunc
	build    BuildFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithOutput sets where progress lines and suite reports are printed.
func WithOutput(w io.Writer) Option { return func(o *Orchestrator) { o.out = w } }

// WithServer replaces the static file server.
func WithServer(s Server) Option { return func(o *Orchestrator) { o.server = s } }

// WithBrowsers replaces browser enumeration.
func WithBrowsers(b Browsers) Option { return func(o *Orchestrator) { o.browsers = b } }

// WithLauncher replaces how drivers are obtained.
func WithLauncher(f LaunchFunc) Option { return func(o *Orchestrator) { o.launch = f } }

// WithSuiteBuilder replaces suite discovery.
func WithSuiteBuilder(f BuildFunc) Option { return func(o *Orchestrator) { o.build = f } }

// New validates cfg and returns an orchestrator. Collaborators not given as
// options are built from cfg.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewRuntimeError(StageConfig, err)
	}

	o := &Orchestrator{
		cfg: cfg,
		log: slog.Default(),
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.server == nil {
		scfg := server.DefaultConfig()
		scfg.Root = cfg.DocsDir
		scfg.Logger = o.log
		srv, err := server.NewServer(scfg)
		if err != nil {
			return nil, NewRuntimeError(StageStartup, fmt.Errorf("create server: %w", err))
		}
		o.server = srv
	}
	if o.browsers == nil {
		o.browsers = browser.NewCatalog()
	}
	if o.launch == nil {
		lcfg := browser.DefaultLaunchConfig()
		lcfg.Headless = cfg.Headless
		lcfg.Logger = o.log
		o.launch = func(ctx context.Context, d *browser.Descriptor) (Driver, error) {
			drv, err := browser.Launch(ctx, d, lcfg)
			if err != nil {
				return nil, err
			}
			return drv, nil
		}
	}
	if o.build == nil {
		o.build = func() (*suite.Runner, error) {
			return suite.Build(suite.BuildConfig{
				Root:    cfg.ElementsDir,
				Marker:  SuiteMarker,
				Timeout: cfg.SuiteTimeout,
				Output:  o.out,
			})
		}
	}
	return o, nil
}

// Run performs the whole orchestration. It returns nil when every suite
// passed against every provisioned browser, a *TestFailureError when a run
// had failing tests, and a *RuntimeError for startup or discovery failures.
// Teardown always happens once before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	drivers, err := o.startup(ctx)
	if err != nil {
		o.teardownAndLog(drivers)
		return NewRuntimeError(StageStartup, err)
	}

	runErr := o.runAll(ctx, drivers)
	o.teardownAndLog(drivers)
	return runErr
}

func (o *Orchestrator) teardownAndLog(drivers []Driver) {
	if err := o.teardown(drivers); err != nil {
		o.log.Warn("teardown incomplete", "err", err)
	}
}

// startup starts the server and acquires every driver concurrently. On
// failure the drivers acquired so far are returned for teardown.
func (o *Orchestrator) startup(ctx context.Context) ([]Driver, error) {
	descs := browser.Select(o.browsers.ListLocal())
	o.log.Info("provisioning browsers", "count", len(descs))

	slots := make([]Driver, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr, err := o.server.Start()
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		o.log.Info("serving docs", "dir", o.cfg.DocsDir, "addr", addr, "url", o.server.BaseURL())
		return nil
	})
	for i, d := range descs {
		g.Go(func() error {
			drv, err := o.launch(gctx, d)
			if err != nil {
				return fmt.Errorf("launch %s: %w", d, err)
			}
			drv.SetScriptTimeout(o.cfg.ScriptTimeout)
			slots[i] = drv
			o.log.Debug("driver ready", "browser", drv.Name(), "args", d.Options().Arguments())
			return nil
		})
	}
	err := g.Wait()

	drivers := make([]Driver, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			drivers = append(drivers, d)
		}
	}
	return drivers, err
}

// runAll runs the suites against each driver, one at a time, in order.
// The first error stops the sequence.
func (o *Orchestrator) runAll(ctx context.Context, drivers []Driver) error {
	address := o.server.BaseURL()
	for _, d := range drivers {
		if err := o.runDriver(ctx, d, address); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runDriver(ctx context.Context, d Driver, address string) error {
	log := o.log.With("run", uuid.NewString(), "browser", d.Name())
	state := StateNotStarted
	setState := func(s RunState) {
		log.Debug("run state", "from", state.String(), "to", s.String())
		state = s
	}

	setState(StateDiscovering)
	runner, err := o.build()
	if err != nil {
		setState(StateFailed)
		return NewRuntimeError(StageDiscovery, err)
	}

	setState(StateRunning)
	log.Info("running suites", "suites", len(runner.Suites()))
	failures, err := runner.Run(ctx, suite.RunContext{Driver: d, Address: address})
	if err != nil {
		setState(StateFailed)
		return fmt.Errorf("run suites on %s: %w", d.Name(), err)
	}
	if failures != 0 {
		setState(StateFailed)
		return NewTestFailureError(d.Name(), failures)
	}

	setState(StatePassed)
	stats := runner.Stats()
	log.Info("suites passed", "passes", stats.Passes, "pending", stats.Pending, "duration", stats.Duration)
	return nil
}

// teardown kills every driver concurrently and closes the server.
func (o *Orchestrator) teardown(drivers []Driver) error {
	fmt.Fprintln(o.out, "Killing all browser instances...")

	var g errgroup.Group
	for _, d := range drivers {
		g.Go(func() error {
			if err := d.Kill(); err != nil {
				return fmt.Errorf("kill %s: %w", d.Name(), err)
			}
			return nil
		})
	}
	killErr := g.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.ShutdownTimeout)
	defer cancel()
	var srvErr error
	if err := o.server.Shutdown(ctx); err != nil {
		srvErr = fmt.Errorf("shutdown server: %w", err)
	}

	fmt.Fprintln(o.out, "Done.")
	return errors.Join(killErr, srvErr)
}
