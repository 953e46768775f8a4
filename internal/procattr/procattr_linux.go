//go:build linux

// Package procattr configures app-server subprocesses so they never outlive
// the SDK and can be signalled as a group.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set puts cmd in its own process group and asks the kernel to send SIGTERM
// if the parent dies.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
