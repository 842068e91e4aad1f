//go:build unix

package docgen

import (
	"errors"
	"os/exec"
	"syscall"
)

// startInOwnGroup runs the engine as the leader of a new process group so
// the launcher and every process it forks can be killed together.
func startInOwnGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
}

// killGroup kills whatever is left of the engine's process group
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
