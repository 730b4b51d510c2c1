package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/mobilecli/internal/daemon"
	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/protocol"
)

// setSysProcAttr is defined in daemon_unix.go and daemon_windows.go

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "mobilecli",
	Short:   "Background daemon bridging terminal sessions to the mobile app",
	Version: version,
	Long: `mobilecli runs a background daemon that multiplexes terminal sessions
and a sandboxed filesystem API to the companion mobile app over one
WebSocket endpoint.

Example:
  mobilecli daemon start    # Start the daemon in the background
  mobilecli pair            # Print the pairing URL for the mobile app
  mobilecli daemon status   # Check whether the daemon is running
  mobilecli daemon stop     # Stop the daemon`,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the mobilecli daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is running",
	RunE:  runDaemonStatus,
}

var daemonForegroundCmd = &cobra.Command{
	Use:    "foreground",
	Short:  "Run the daemon in the foreground (internal use)",
	Hidden: true,
	RunE:   runDaemonForeground,
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Print the pairing URL the mobile app scans or opens",
	RunE:  runPair,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonForegroundCmd)

	rootCmd.AddCommand(pairCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	if running, pid := daemon.IsDaemonRunning(); running {
		fmt.Printf("Daemon already running (PID %d)\n", pid)
		return nil
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	if err := daemon.EnsureStateDir(); err != nil {
		return err
	}
	logFile, err := os.OpenFile(daemon.GetLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open daemon log: %w", err)
	}
	defer logFile.Close()

	bg := exec.Command(executable, "daemon", "foreground")
	bg.Stdout = logFile
	bg.Stderr = logFile
	bg.Stdin = nil
	setSysProcAttr(bg)

	if err := bg.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	time.Sleep(500 * time.Millisecond)

	running, pid := daemon.IsDaemonRunning()
	if !running {
		return fmt.Errorf("daemon failed to start")
	}

	fmt.Printf("Daemon started (PID %d)\n", pid)
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	running, pid := daemon.IsDaemonRunning()
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := daemon.SignalShutdown(pid); err != nil {
		return fmt.Errorf("failed to signal daemon: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if running, _ := daemon.IsDaemonRunning(); !running {
			fmt.Println("Daemon stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("daemon did not stop within the timeout")
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	running, pid := daemon.IsDaemonRunning()
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	fmt.Printf("Daemon running (PID %d)\n", pid)
	if port, err := daemon.ReadPort(); err == nil {
		fmt.Printf("Listening on 127.0.0.1:%d\n", port)
	}
	return nil
}

func runDaemonForeground(cmd *cobra.Command, args []string) error {
	d, err := daemon.NewDaemon()
	if err != nil {
		return err
	}
	return d.Start()
}

func runPair(cmd *cobra.Command, args []string) error {
	if running, _ := daemon.IsDaemonRunning(); !running {
		return fmt.Errorf("daemon is not running; start it with: mobilecli daemon start")
	}

	port, err := daemon.ReadPort()
	if err != nil {
		return fmt.Errorf("failed to read daemon port: %w", err)
	}

	device, err := daemon.LoadOrCreateConfig()
	if err != nil {
		return fmt.Errorf("failed to load device config: %w", err)
	}

	url := protocol.BuildPairingURL(protocol.ConnectionInfo{
		Host:       localLANAddress(),
		Port:       port,
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
	})

	fmt.Printf("╔══════════════════════════════════════════════════╗\n")
	fmt.Printf("║          mobilecli - Scan to Pair                 ║\n")
	fmt.Printf("╠══════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Device:  %-41s║\n", device.DeviceName)
	fmt.Printf("╚══════════════════════════════════════════════════╝\n\n")
	fmt.Printf("  %s\n\n", url)
	fmt.Println("Open this URL on a paired device, or scan it with the mobile app's QR scanner.")
	return nil
}

// localLANAddress best-effort picks a non-loopback IPv4 address so the
// pairing URL is reachable from another device on the same network,
// falling back to loopback if none is found.
func localLANAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

func init() {
	logging.SetLevel(logging.LevelInfo)
}
