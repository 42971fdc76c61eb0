package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duckcoding/duckcoding/internal/command"
	"github.com/duckcoding/duckcoding/internal/events"
	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/proxymgr"
	"github.com/duckcoding/duckcoding/internal/session"
	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/watch"
)

// commandPort is the loopback HTTP command port the CLI's non-daemon
// subcommands dial when talking to a running supervisor — the standalone
// half of §4.J's "in-process call or loopback HTTP command port" split.
const commandPort = 47113

var daemonMode bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the DuckCoding supervisor",
	Long: `Start the supervisor: wires every component (profiles, pricing, stats,
sessions, proxies, config watcher), auto-starts any tool proxy configured
with auto_start, and serves the loopback command port the rest of the CLI
talks to.

By default runs in the foreground. Use -d to run detached in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, args)
	},
}

func init() {
	daemonCmd.Flags().BoolVarP(&daemonMode, "daemon", "d", false, "Run detached in the background")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if daemonMode && os.Getenv("DUCKCODING_DAEMONIZED") != "1" {
		return spawnDaemon()
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = dataDir
	}

	gcfg, err := command.LoadGlobalConfig(dataDir)
	if err != nil {
		return fmt.Errorf("loading global config: %w", err)
	}
	initLogging(gcfg.LogLevel)

	profiles := profile.New(dataDir, home)

	pricingEngine, err := pricing.New(dataDir)
	if err != nil {
		return fmt.Errorf("loading pricing engine: %w", err)
	}

	statsDB, err := stats.Open(filepath.Join(dataDir, "stats.db"))
	if err != nil {
		return fmt.Errorf("opening stats store: %w", err)
	}
	defer statsDB.Close()

	sessions := session.New(statsDB)
	defer sessions.Stop()

	hub := events.NewHub()
	defer hub.Close()

	proxies, err := proxymgr.New(dataDir, profiles, sessions, pricingEngine, statsDB, hub)
	if err != nil {
		return fmt.Errorf("loading proxy manager: %w", err)
	}

	watcher, err := watch.New(profiles, hub, gcfg.ConfigWatch)
	if err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	watcher.Start()

	surface := command.New(dataDir, profiles, proxies, pricingEngine, sessions, statsDB, watcher, hub)

	for _, report := range surface.AutoStartOnLaunch() {
		if report.Error != nil {
			slog.Warn("auto-start failed", "tool", report.Tool, "error", report.Error)
		} else {
			slog.Info("auto-started proxy", "tool", report.Tool)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/cmd", surface)
	mux.Handle("/events", eventsWebSocketHandler(hub))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, version)
	})

	shutdownCh := make(chan struct{}, 1)
	mux.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		if !isLoopback(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"shutting_down"}`)
		select {
		case shutdownCh <- struct{}{}:
		default:
		}
	})

	addr := fmt.Sprintf("127.0.0.1:%d", commandPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	pidFile := filepath.Join(dataDir, "duckcoding.pid")
	if err := writePIDFile(pidFile); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("command port listening", "addr", addr)
		if !daemonMode {
			fmt.Println("Press Ctrl+C to stop")
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down (signal received)")
	case <-shutdownCh:
		slog.Info("shutting down (stop command received)")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("command server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("command server shutdown", "error", err)
	}

	surface.Shutdown()
	slog.Info("stopped")
	return nil
}

func spawnDaemon() error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable path: %w", err)
	}

	logPath := filepath.Join(dataDir, "duckcoding.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	daemonArgs := []string{"daemon"}
	if dataDir != defaultDataDir() {
		daemonArgs = append(daemonArgs, "--data-dir", dataDir)
	}

	child := exec.Command(exePath, daemonArgs...)
	child.Stdout = logFile
	child.Stderr = logFile
	child.Env = append(os.Environ(), "DUCKCODING_DAEMONIZED=1")

	if err := child.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("starting daemon: %w", err)
	}

	fmt.Printf("Started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("Log file: %s\n", logPath)

	if err := child.Process.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to release child process: %v\n", err)
	}

	logFile.Close()
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(path string) {
	os.Remove(path)
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		host = remoteAddr[:idx]
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return host == "127.0.0.1" || host == "::1" || strings.HasPrefix(host, "127.")
}
