// Package watch implements the Config Watcher: periodic scans of each
// tool's native config files, diffed against the profile's last-known
// native_snapshot, filtered through a blacklist and a sensitive-fields
// allowlist, and surfaced as an external-config-change event.
//
// Grounded on the teacher's config.Watcher (fsnotify-driven dispatch by
// filename) for the goroutine/stop-channel shape, and on
// internal/engine.matcher for glob-pattern filtering — gobwas/glob is used
// here exactly as there, compiled once at load rather than per scan.
package watch

import "github.com/duckcoding/duckcoding/internal/tool"

// Config is the on-disk ConfigWatchConfig record.
type Config struct {
	Enabled             bool                  `json:"enabled"`
	Mode                Mode                  `json:"mode"`
	ScanIntervalSeconds int                   `json:"scan_interval_seconds"`
	SensitiveFields     map[tool.ID][]string  `json:"sensitive_fields"`
	Blacklist           map[tool.ID][]string  `json:"blacklist"`
}

// Mode selects which diff entries survive the filter stage.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeFull    Mode = "full"
)

// DefaultConfig returns the watcher's built-in defaults, applied when no
// global.json record exists yet.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		Mode:                ModeDefault,
		ScanIntervalSeconds: 10,
		SensitiveFields: map[tool.ID][]string{
			tool.Claude: {"env.ANTHROPIC_AUTH_TOKEN", "env.ANTHROPIC_BASE_URL"},
			tool.Codex:  {"model_provider", "model_providers.*.base_url", "OPENAI_API_KEY"},
			tool.Gemini: {"GEMINI_API_KEY", "GOOGLE_GEMINI_BASE_URL", "GEMINI_MODEL"},
		},
		Blacklist: map[tool.ID][]string{
			tool.Claude: {"ui.*", "theme"},
		},
	}
}
