// Package spawn opens the pseudo-terminals behind SpawnSession: the
// daemon launches the requested command on a real pseudo-terminal itself
// and bridges it into the session registry exactly as if an external
// wrapper had registered over loopback. There is no terminal-emulator
// detection and no tmux launch path.
package spawn

import (
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// PTY wraps a pseudo-terminal and the shell process attached to it.
type PTY struct {
	ptmx *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	closed bool
}

// Start launches command with args attached to a fresh pseudo-terminal.
func Start(command string, args []string, workingDir string) (*PTY, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80})

	return &PTY{ptmx: ptmx, cmd: cmd}, nil
}

// Read reads data produced by the shell.
func (p *PTY) Read(buf []byte) (int, error) {
	return p.ptmx.Read(buf)
}

// Write sends input to the shell.
func (p *PTY) Write(data []byte) (int, error) {
	return p.ptmx.Write(data)
}

// Resize changes the terminal's reported size. (0,0) is accepted and simply
// forwarded to the OS; callers treat it as a "restore natural size" sentinel.
func (p *PTY) Resize(rows, cols uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return io.ErrClosedPipe
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// PID returns the underlying shell's process ID.
func (p *PTY) PID() int {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// Close terminates the shell and releases the pseudo-terminal.
func (p *PTY) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	terminate(p.cmd)

	err := p.ptmx.Close()
	p.cmd.Wait()
	return err
}

// Bridge pumps bytes between a PTY and the session registry's input/output
// sinks, in the shape a registered loopback wrapper would produce: an
// output sink fed by reads from the PTY, and writes driven by an input
// channel the caller owns.
type Bridge struct {
	pty    *PTY
	onData func([]byte)
	onExit func(error)

	done   chan struct{}
	once   sync.Once
}

// NewBridge creates a bridge. onData is invoked (from the bridge's own
// goroutine) for every chunk read from the PTY; onExit is invoked once,
// when the PTY is closed or a read error occurs.
func NewBridge(p *PTY, onData func([]byte), onExit func(error)) *Bridge {
	return &Bridge{pty: p, onData: onData, onExit: onExit, done: make(chan struct{})}
}

// Start begins the read loop in a new goroutine.
func (b *Bridge) Start() {
	go b.readLoop()
}

func (b *Bridge) readLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-b.done:
			return
		default:
		}

		n, err := b.pty.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			b.onData(data)
		}
		if err != nil {
			b.Close()
			if b.onExit != nil {
				b.onExit(err)
			}
			return
		}
	}
}

// Write forwards input bytes to the PTY.
func (b *Bridge) Write(data []byte) error {
	_, err := b.pty.Write(data)
	return err
}

// Resize forwards a resize request to the PTY.
func (b *Bridge) Resize(rows, cols uint16) error {
	return b.pty.Resize(rows, cols)
}

// Close stops the read loop and closes the underlying PTY. Safe to call
// more than once.
func (b *Bridge) Close() error {
	b.once.Do(func() { close(b.done) })
	return b.pty.Close()
}
