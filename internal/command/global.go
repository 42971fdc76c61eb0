package command

import (
	"path/filepath"

	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/watch"
)

// GlobalConfig is global.json: the handful of ambient settings that don't
// belong to any one component — user/system identity, outbound HTTP
// proxying, log verbosity, the Config Watcher's tunables, and UI
// one-time-hint flags.
type GlobalConfig struct {
	UserID      string          `json:"user_id"`
	SystemToken string          `json:"system_token"`
	HTTPProxy   string          `json:"http_proxy,omitempty"`
	LogLevel    string          `json:"log_level"`
	ConfigWatch watch.Config    `json:"config_watch"`
	HideHints   map[string]bool `json:"hide_hints,omitempty"`
}

func defaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		LogLevel:    "info",
		ConfigWatch: watch.DefaultConfig(),
		HideHints:   map[string]bool{},
	}
}

// LoadGlobalConfig reads global.json, seeding it with defaults on first
// run. Exported so cmd/duckcoding's daemon entrypoint can read the Config
// Watcher's tunables before the Watcher itself exists to hand to New.
func LoadGlobalConfig(dataDir string) (GlobalConfig, error) {
	doc := store.NewJSON[GlobalConfig](filepath.Join(dataDir, "global.json"), store.NewCache())
	cfg, err := doc.ReadUncached()
	if err != nil {
		return GlobalConfig{}, New(KindIOError, "reading global.json: %v", err)
	}
	if cfg.LogLevel == "" {
		cfg = defaultGlobalConfig()
		if err := doc.WriteAtomic(cfg); err != nil {
			return GlobalConfig{}, New(KindIOError, "writing global.json: %v", err)
		}
	}
	return cfg, nil
}
