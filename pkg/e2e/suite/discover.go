package suite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileExt is the extension of suite files.
const FileExt = ".yaml"

// Discover returns the names of the unit directories under root that hold
// at least one file whose name contains marker, sorted. Entries of root
// that are not directories are ignored. Read errors are returned as is.
func Discover(root, marker string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read units: %w", err)
	}

	var units []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read unit %s: %w", e.Name(), err)
		}
		for _, f := range files {
			if strings.Contains(f.Name(), marker) {
				units = append(units, e.Name())
				break
			}
		}
	}
	sort.Strings(units)
	return units, nil
}

// SuitePath returns the suite file registered for unit:
// <root>/<unit>/<unit><marker without trailing dot><FileExt>.
func SuitePath(root, unit, marker string) string {
	return filepath.Join(root, unit, unit+strings.TrimSuffix(marker, ".")+FileExt)
}

// BuildConfig configures Build.
type BuildConfig struct {
	Root    string        // directory holding one subdirectory per unit
	Marker  string        // file name token marking a unit as having a suite
	Timeout time.Duration // root timeout inherited by every test
	Output  io.Writer     // report destination
}

// Build discovers the units under cfg.Root and returns a fresh, loaded
// Runner with one suite file registered per unit.
func Build(cfg BuildConfig) (*Runner, error) {
	units, err := Discover(cfg.Root, cfg.Marker)
	if err != nil {
		return nil, err
	}

	r := NewRunner(cfg.Output)
	for _, u := range units {
		r.AddFile(SuitePath(cfg.Root, u, cfg.Marker))
	}
	r.Timeout(cfg.Timeout)
	if err := r.LoadFiles(); err != nil {
		return nil, err
	}
	return r, nil
}
