//go:build unix

package procattr

import (
	"os"
	"syscall"
)

// Interrupt sends SIGINT to the process group of p.
func Interrupt(p *os.Process) error {
	return SignalGroup(p, syscall.SIGINT)
}

// SignalGroup delivers sig to every process in p's group. codex spawns MCP
// servers and sandboxed commands as children, so signalling only the direct
// child would orphan them.
func SignalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}

	return syscall.Kill(-p.Pid, sig)
}

// KillGroup sends SIGKILL to p's process group.
func KillGroup(p *os.Process) error {
	return SignalGroup(p, syscall.SIGKILL)
}
