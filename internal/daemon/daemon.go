package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/artpar/mobilecli/internal/fs"
	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/push"
	"github.com/artpar/mobilecli/internal/session"
	"github.com/artpar/mobilecli/internal/ws"
)

// ReadHeaderTimeout bounds how long the HTTP server waits on a client's
// request headers before giving up, the same defensive timeout the
// teacher's Unix-socket handler applied to its request line.
const ReadHeaderTimeout = 30 * time.Second

// Daemon owns the single WebSocket endpoint's listener and the shared
// state it's built on (session registry, filesystem subsystems, device
// identity, push notifier). Grounded structurally on the teacher's own
// Daemon (internal/daemon/daemon.go): PID file, signal handling, and
// graceful Shutdown are kept; the Unix-socket JSON-RPC listener and its
// SessionManager/Request/Response plumbing are replaced wholesale by an
// http.Server mounting ws.Dispatcher, since this spec's daemon serves
// one long-lived multiplexed socket rather than the teacher's
// one-request-per-connection control protocol.
type Daemon struct {
	listener   net.Listener
	httpServer *http.Server
	dispatcher *ws.Dispatcher
	watcher    *fs.FileWatcher
	startTime  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	wg         sync.WaitGroup
	shutdownMu sync.Mutex
	shutdown   bool
}

// NewDaemon constructs a Daemon with all of its subsystems wired:
// session registry, filesystem config/validator/operations/search,
// a debounced file watcher, the device identity file, and the push
// notifier, exactly the set SPEC_FULL.md's daemon process owns.
func NewDaemon() (*Daemon, error) {
	if err := EnsureStateDir(); err != nil {
		return nil, err
	}

	cfg := fs.DefaultConfig()
	validator := fs.NewValidator(cfg)
	fileOps := fs.NewFileOperations(validator, cfg)
	search := fs.NewFileSearch(validator)
	watcher, err := fs.NewFileWatcher(fs.DefaultDebounce)
	if err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	device, err := LoadOrCreateConfig()
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to load device config: %w", err)
	}

	registry := session.NewRegistry()
	notifier := push.New()
	dispatcher := ws.NewDispatcher(registry, fileOps, search, watcher, validator, cfg, device, notifier)

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		dispatcher: dispatcher,
		watcher:    watcher,
		startTime:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start binds the listener, persists the PID and bound port, and serves
// the WebSocket endpoint until Shutdown is called or a fatal accept
// error occurs.
func (d *Daemon) Start() error {
	if running, pid := IsDaemonRunning(); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if err := WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		RemovePID()
		return fmt.Errorf("failed to bind listener: %w", err)
	}
	d.listener = listener

	port := listener.Addr().(*net.TCPAddr).Port
	if err := WritePort(port); err != nil {
		listener.Close()
		RemovePID()
		return fmt.Errorf("failed to persist bound port: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", d.dispatcher)
	d.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: ReadHeaderTimeout}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			d.Shutdown()
		case <-d.ctx.Done():
		}
	}()

	logging.Info("daemon started", logging.F("pid", fmt.Sprintf("%d", os.Getpid()), "port", fmt.Sprintf("%d", port)))

	d.wg.Add(1)
	defer d.wg.Done()
	if err := d.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, closes the file watcher,
// and cleans up PID/port state. Safe to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdownMu.Lock()
	if d.shutdown {
		d.shutdownMu.Unlock()
		return
	}
	d.shutdown = true
	d.shutdownMu.Unlock()

	logging.Info("daemon shutting down")

	d.cancel()
	if d.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.httpServer.Shutdown(shutdownCtx)
	}
	if d.watcher != nil {
		_ = d.watcher.Close()
	}
	d.wg.Wait()
	Cleanup()

	logging.Info("daemon stopped")
}

// GetContext returns the daemon's lifetime context, cancelled on
// Shutdown.
func (d *Daemon) GetContext() context.Context {
	return d.ctx
}

// Uptime reports how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}
