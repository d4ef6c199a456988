// End-to-end test runner.
//
// Serves the docs directory, launches every installed stable Chrome and runs
// the suites found under the elements directory against each one in turn.
//
// Usage:
//
//	go run ./cmd/run-e2e-tests
//	go run ./cmd/run-e2e-tests --headless=false --log.level debug
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/thesyncim/e2erun/internal/logging"
	"github.com/thesyncim/e2erun/pkg/e2e"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, e2e.FailureMessage(err))
		os.Exit(e2e.ExitCode(err))
	}
}

func newApp() *cli.App {
	def := e2e.DefaultConfig()
	return &cli.App{
		Name:    "run-e2e-tests",
		Usage:   "Run element end-to-end suites against local browsers",
		Version: fmt.Sprintf("%s-%s", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "docs-dir",
				Usage: "directory served as static content",
				Value: def.DocsDir,
			},
			&cli.StringFlag{
				Name:  "elements-dir",
				Usage: "directory holding one subdirectory per element",
				Value: def.ElementsDir,
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "launch browsers without a window",
				Value: def.Headless,
			},
			&cli.StringFlag{
				Name:    "log.level",
				Usage:   "trace, debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"E2E_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log.format",
				Usage: "text or json",
				Value: "text",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	log, err := logging.New(os.Stderr, c.String("log.level"), c.String("log.format"))
	if err != nil {
		return e2e.NewRuntimeError(e2e.StageConfig, err)
	}

	cfg := e2e.DefaultConfig()
	cfg.DocsDir = c.String("docs-dir")
	cfg.ElementsDir = c.String("elements-dir")
	cfg.Headless = c.Bool("headless")

	orch, err := e2e.New(cfg, e2e.WithLogger(log), e2e.WithOutput(c.App.Writer))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := orch.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "e2e tests done.")
	return nil
}
