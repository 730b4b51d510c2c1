package ws

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/mobilecli/internal/protocol"
	"github.com/artpar/mobilecli/internal/session"
	"github.com/artpar/mobilecli/internal/spawn"
)

// allowedSpawnCommands is the command allow-list SpawnSession validates
// against, grounded on original_source/cli/src/daemon.rs's
// is_allowed_command.
var allowedSpawnCommands = map[string]bool{
	"claude": true, "codex": true, "gemini": true, "opencode": true,
	"bash": true, "zsh": true, "sh": true, "fish": true, "nu": true, "pwsh": true,
	"python": true, "python3": true, "node": true, "ruby": true,
}

func isAllowedSpawnCommand(command string) bool {
	return allowedSpawnCommands[filepath.Base(command)]
}

// isShellSafe rejects characters that would let a spawned argument break
// out of its intended token, grounded on daemon.rs's is_shell_safe.
func isShellSafe(s string) bool {
	return !strings.ContainsAny(s, "\n\r\x00`") && !strings.Contains(s, "$(")
}

// handleSpawnSession implements SpawnSession's direct-spawn contract:
// validate the request, then open an in-process PTY for it and register
// the resulting session exactly as a loopback wrapper's registration
// frame would. Terminal-emulator auto-detection and the standalone PTY
// wrapper process are out of scope; the daemon only ever launches a
// session by hosting its PTY itself.
func (d *Dispatcher) handleSpawnSession(req protocol.SpawnSession) protocol.SpawnResult {
	if err := validateSpawnRequest(req); err != nil {
		msg := err.Error()
		return protocol.SpawnResult{Type: protocol.TypeSpawnResult, Success: false, Error: &msg}
	}

	sessionID := uuid.NewString()
	name := req.Name
	if name == "" {
		name = req.Command
	}

	if err := d.spawnDirect(sessionID, name, req); err != nil {
		msg := err.Error()
		return protocol.SpawnResult{Type: protocol.TypeSpawnResult, Success: false, Error: &msg}
	}
	return protocol.SpawnResult{Type: protocol.TypeSpawnResult, Success: true, SessionID: sessionID}
}

func validateSpawnRequest(req protocol.SpawnSession) error {
	if !isAllowedSpawnCommand(req.Command) {
		return fmt.Errorf("command %q is not in the allowed list", req.Command)
	}
	if !isShellSafe(req.Command) {
		return fmt.Errorf("command contains unsafe characters")
	}
	for _, arg := range req.Args {
		if !isShellSafe(arg) {
			return fmt.Errorf("argument contains unsafe characters")
		}
	}
	if req.Name != "" && !isShellSafe(req.Name) {
		return fmt.Errorf("name contains unsafe characters")
	}
	if req.WorkingDir != "" {
		if !isShellSafe(req.WorkingDir) {
			return fmt.Errorf("working directory contains unsafe characters")
		}
		if !filepath.IsAbs(req.WorkingDir) {
			return fmt.Errorf("working directory must be an absolute path")
		}
		info, err := os.Stat(req.WorkingDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("working directory does not exist or is not a directory")
		}
	}
	return nil
}

// spawnDirect opens an in-process PTY for the requested command and
// registers it into the registry immediately, bridging its output into
// the same pipeline a loopback wrapper's frames would drive.
func (d *Dispatcher) spawnDirect(sessionID, name string, req protocol.SpawnSession) error {
	p, err := spawn.Start(req.Command, req.Args, req.WorkingDir)
	if err != nil {
		return err
	}

	inputCh := make(chan []byte, inputChanBuffer)
	resizeCh := make(chan session.ResizeCmd, resizeChanBuffer)
	sess := &session.PtySession{
		SessionID:   sessionID,
		Name:        name,
		Command:     req.Command,
		ProjectPath: req.WorkingDir,
		StartedAt:   time.Now(),
		InputCh:     inputCh,
		ResizeCh:    resizeCh,
		Scrollback:  session.NewScrollbackRing(session.DefaultScrollbackSize),
		Cli:         session.NewCliTracker(req.Command),
	}

	done := make(chan struct{})
	bridge := spawn.NewBridge(p,
		func(data []byte) { d.processOutputChunk(sess, data) },
		func(err error) {
			d.teardownSession(sessionID, exitCodeFromErr(err))
			close(done)
		},
	)

	if err := d.registerSession(sess); err != nil {
		_ = p.Close()
		return err
	}
	bridge.Start()

	go pumpSessionSinks(bridge, inputCh, resizeCh, done)
	return nil
}

// pumpSessionSinks forwards whatever arrives on inputCh/resizeCh to the
// bridge, for the lifetime of the direct-spawned session. It exits once
// done is closed, which the bridge's exit callback does after the
// session has been torn down.
func pumpSessionSinks(bridge *spawn.Bridge, inputCh <-chan []byte, resizeCh <-chan session.ResizeCmd, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data, ok := <-inputCh:
			if !ok {
				return
			}
			_ = bridge.Write(data)
		case rc, ok := <-resizeCh:
			if !ok {
				return
			}
			_ = bridge.Resize(rc.Rows, rc.Cols)
		}
	}
}

func exitCodeFromErr(err error) int {
	if err == nil {
		return 0
	}
	return -1
}
