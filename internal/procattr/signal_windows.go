//go:build windows

// Package procattr configures app-server subprocesses so they never outlive
// the SDK and can be signalled as a group.
package procattr

import (
	"os"
	"os/exec"
)

// Set is a no-op; Windows has no process groups in the POSIX sense.
func Set(*exec.Cmd) {}

// Interrupt kills p. Windows cannot deliver SIGINT to another process.
func Interrupt(p *os.Process) error {
	return KillGroup(p)
}

// KillGroup kills p.
func KillGroup(p *os.Process) error {
	if p == nil {
		return nil
	}

	return p.Kill()
}
