package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// DefaultStateDir is the default directory for daemon state.
	DefaultStateDir = ".mobilecli"
	// PIDFileName is the name of the PID file.
	PIDFileName = "daemon.pid"
	// PortFileName holds the TCP port the running daemon bound to.
	PortFileName = "daemon.port"
	// SessionsFileName is the single-array persisted session snapshot.
	SessionsFileName = "sessions.json"
	// ConfigFileName holds device identity and pairing configuration.
	ConfigFileName = "config.json"
	// LogFileName is the daemon's own log file when run in the background.
	LogFileName = "daemon.log"
	// UploadsDirName is the per-project upload destination, nested under
	// the project path rather than the state dir.
	UploadsDirName = "uploads"
)

// GetStateDir returns the path to the state directory.
func GetStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), DefaultStateDir)
	}
	return filepath.Join(home, DefaultStateDir)
}

func GetPIDPath() string        { return filepath.Join(GetStateDir(), PIDFileName) }
func GetPortPath() string       { return filepath.Join(GetStateDir(), PortFileName) }
func GetSessionsPath() string   { return filepath.Join(GetStateDir(), SessionsFileName) }
func GetConfigPath() string     { return filepath.Join(GetStateDir(), ConfigFileName) }
func GetLogPath() string        { return filepath.Join(GetStateDir(), LogFileName) }

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(GetStateDir(), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// WritePID writes the current process PID to the PID file.
func WritePID() error {
	if err := EnsureStateDir(); err != nil {
		return err
	}
	return os.WriteFile(GetPIDPath(), []byte(strconv.Itoa(os.Getpid())), 0600)
}

// ReadPID reads the PID from the PID file.
func ReadPID() (int, error) {
	data, err := os.ReadFile(GetPIDPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

func RemovePID() error { return os.Remove(GetPIDPath()) }

// WritePort persists the TCP port the daemon's HTTP listener bound to,
// so `mobilecli pair` and `mobilecli daemon status` can find it without
// a control socket.
func WritePort(port int) error {
	if err := EnsureStateDir(); err != nil {
		return err
	}
	return os.WriteFile(GetPortPath(), []byte(strconv.Itoa(port)), 0600)
}

// ReadPort reads the previously persisted listener port.
func ReadPort() (int, error) {
	data, err := os.ReadFile(GetPortPath())
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid port file content: %w", err)
	}
	return port, nil
}

func RemovePort() error { return os.Remove(GetPortPath()) }

// IsDaemonRunning reports whether the daemon is currently running,
// cleaning up stale state files if not.
func IsDaemonRunning() (bool, int) {
	pid, err := ReadPID()
	if err != nil {
		return false, 0
	}
	if !IsProcessRunning(pid) {
		RemovePID()
		RemovePort()
		return false, 0
	}
	return true, pid
}

// Cleanup removes all daemon state files left by a stopped daemon.
func Cleanup() {
	RemovePID()
	RemovePort()
}
