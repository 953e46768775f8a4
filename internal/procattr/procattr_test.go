//go:build unix

package procattr

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_ConfiguresProcessGroup(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	require.Nil(t, cmd.SysProcAttr)

	Set(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestSignalGroup_NilProcess(t *testing.T) {
	t.Parallel()

	assert.NoError(t, SignalGroup(nil, syscall.SIGTERM))
	assert.NoError(t, KillGroup(nil))
	assert.NoError(t, Interrupt(nil))
}

func TestKillGroup_KillsChildren(t *testing.T) {
	t.Parallel()

	// The shell forks a sleep child that shares its process group.
	cmd := exec.Command("sh", "-c", "sleep 60 & wait")
	Set(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, KillGroup(cmd.Process))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process group survived SIGKILL")
	}

	// The group is gone, so signalling it again fails with ESRCH.
	require.Eventually(t, func() bool {
		return SignalGroup(cmd.Process, 0) != nil
	}, 5*time.Second, 20*time.Millisecond)
}
