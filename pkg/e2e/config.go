package e2e

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Defaults for a run. They are the whole configuration surface; the CLI
// only overrides them.
const (
	DefaultDocsDir         = "docs"
	DefaultElementsDir     = "elements"
	DefaultSuiteTimeout    = 60 * time.Second
	DefaultScriptTimeout   = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second

	// SuiteMarker is the file name token that marks a unit as having a suite.
	SuiteMarker = ".e2etest."
)

// Config holds orchestrator configuration options.
type Config struct {
	DocsDir         string        // Directory served as static content
	ElementsDir     string        // Directory holding one subdirectory per UI unit
	SuiteTimeout    time.Duration // Timeout inherited by every test
	ScriptTimeout   time.Duration // Script execution timeout per driver
	ShutdownTimeout time.Duration // Bound on closing the server
	Headless        bool          // Launch browsers headless
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		DocsDir:         DefaultDocsDir,
		ElementsDir:     DefaultElementsDir,
		SuiteTimeout:    DefaultSuiteTimeout,
		ScriptTimeout:   DefaultScriptTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Headless:        true,
	}
}

// Validate checks the configuration before anything is started.
func (c Config) Validate() error {
	var errs []error
	for _, d := range []struct{ name, path string }{
		{"docs dir", c.DocsDir},
		{"elements dir", c.ElementsDir},
	} {
		if d.path == "" {
			errs = append(errs, fmt.Errorf("%s is required", d.name))
			continue
		}
		info, err := os.Stat(d.path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		if !info.IsDir() {
			errs = append(errs, fmt.Errorf("%s %s is not a directory", d.name, d.path))
		}
	}
	if c.SuiteTimeout < 0 {
		errs = append(errs, errors.New("suite timeout must be >= 0"))
	}
	if c.ScriptTimeout < 0 {
		errs = append(errs, errors.New("script timeout must be >= 0"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be > 0"))
	}
	return errors.Join(errs...)
}
