//go:build !windows

package spawn

import (
	"os/exec"
	"syscall"
)

// terminate sends SIGHUP to the shell's process group, matching how a
// detaching terminal emulator would signal the foreground job.
func terminate(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	syscall.Kill(-cmd.Process.Pid, syscall.SIGHUP)
}
