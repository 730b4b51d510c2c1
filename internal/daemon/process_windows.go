//go:build windows

package daemon

import (
	"golang.org/x/sys/windows"
)

// IsProcessRunning checks if a process with the given PID is running by
// attempting to open a query-only handle to it.
func IsProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	return exitCode == 259 // STILL_ACTIVE
}

// SignalShutdown asks the daemon at pid to terminate. Windows has no
// SIGTERM equivalent a foreign process can deliver, so this requests a
// hard termination instead of the Unix graceful path.
func SignalShutdown(pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)
	return windows.TerminateProcess(handle, 0)
}
