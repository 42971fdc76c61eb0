// Package main is the CLI entry point for the DuckCoding proxy core — a
// desktop supervisor that runs one local, transparent HTTP reverse proxy
// per supported AI CLI tool (Claude Code, Codex, Gemini CLI, AMP Code),
// each one swapping the tool's native credentials for a local key,
// streaming every request straight through to the real vendor endpoint
// while extracting token usage from the wire, and restoring the user's
// own profile the moment the proxy stops.
//
// CLI commands (cobra):
//
//	duckcoding daemon [-d]        - start the supervisor (foreground or background)
//	duckcoding stop                - stop a running supervisor
//	duckcoding status              - show proxy status for every tool
//	duckcoding profile ...         - manage per-tool profiles
//	duckcoding proxy ...           - start/stop/configure per-tool proxies
//	duckcoding pricing ...         - manage pricing templates
//	duckcoding sessions ...        - inspect/annotate/clear sessions
//	duckcoding logs query          - query the token log
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// dataDir is the global flag for the supervisor's state directory:
// profiles.json, proxy.json, pricing.json, global.json, stats.db, and
// the dc_proxy_<tool> internal profiles it manages inside each tool's
// own native config directory.
var dataDir string

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".duckcoding"
	}
	return filepath.Join(home, ".duckcoding")
}

var rootCmd = &cobra.Command{
	Use:   "duckcoding",
	Short: "DuckCoding — transparent proxy core for AI CLI tools",
	Long: `DuckCoding supervises one local HTTP proxy per AI CLI tool (Claude Code,
Codex, Gemini CLI, AMP Code), transparently forwarding every request to
the real vendor endpoint while tracking token usage and cost per session.

Run 'duckcoding daemon' to start the supervisor, or use the profile/proxy/
pricing/sessions/logs subcommands to manage a running one.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Path to the DuckCoding state directory")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(pricingCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(logsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
