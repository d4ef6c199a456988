package browser

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// treeProc is a process seen in a snapshot. The creation time tells a
// reused pid apart from the process that was recorded.
type treeProc struct {
	proc    *process.Process
	created int64
}

// snapshotTree records pid and all of its descendants, parents first.
// It must run while pid is alive: children are reparented once it dies.
func snapshotTree(pid int) []treeProc {
	if pid <= 0 {
		return nil
	}
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	var tree []treeProc
	var walk func(p *process.Process)
	walk = func(p *process.Process) {
		created, err := p.CreateTime()
		if err != nil {
			return
		}
		tree = append(tree, treeProc{proc: p, created: created})
		children, _ := p.Children()
		for _, c := range children {
			walk(c)
		}
	}
	walk(root)
	return tree
}

// alive reports whether the recorded process still runs. Zombies and
// reused pids count as gone.
func (tp treeProc) alive() bool {
	cur, err := process.NewProcess(tp.proc.Pid)
	if err != nil {
		return false
	}
	created, err := cur.CreateTime()
	if err != nil || created != tp.created {
		return false
	}
	if st, err := cur.Status(); err == nil && slices.Contains(st, process.Zombie) {
		return false
	}
	return true
}

// killAll kills every process of tree that is still alive.
func killAll(tree []treeProc) error {
	var errs []error
	for _, tp := range tree {
		if !tp.alive() {
			continue
		}
		if err := tp.proc.Kill(); err != nil && !isGone(err) {
			errs = append(errs, fmt.Errorf("pid %d: %w", tp.proc.Pid, err))
		}
	}
	return errors.Join(errs...)
}

// shutdownTree snapshots the tree rooted at pid, runs stop, then kills
// whatever stop left running.
func shutdownTree(pid int, stop func()) error {
	tree := snapshotTree(pid)
	stop()
	return killAll(tree)
}

// killTree kills pid and every descendant still alive. Processes that are
// already gone are not an error.
func killTree(pid int) error {
	return shutdownTree(pid, func() {})
}

func isGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) ||
		errors.Is(err, syscall.ESRCH) ||
		errors.Is(err, process.ErrorProcessNotRunning)
}

// KillOrphans is best-effort cleanup of browser processes left behind by
// crashed runs. It kills every process whose name contains one of names
// (case-insensitively) and returns how many could be killed.
func KillOrphans(names ...string) (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	killed := 0
	for _, proc := range procs {
		if proc.Pid == self {
			continue
		}
		name, err := proc.Name()
		if err != nil || !matchesAny(name, names) {
			continue
		}
		if err := proc.Kill(); err == nil {
			killed++
		}
	}
	return killed, nil
}

func matchesAny(name string, names []string) bool {
	name = strings.ToLower(name)
	for _, n := range names {
		if n != "" && strings.Contains(name, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
