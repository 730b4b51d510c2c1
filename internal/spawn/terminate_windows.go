//go:build windows

package spawn

import "os/exec"

// terminate kills the shell process directly; Windows has no process-group
// signal equivalent to SIGHUP for console processes.
func terminate(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	cmd.Process.Kill()
}
