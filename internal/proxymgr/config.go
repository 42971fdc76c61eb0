// Package proxymgr implements the Proxy Manager: one Instance per tool,
// lifecycle (start/stop/status), and the ToolProxyConfig document each
// instance starts from.
//
// Grounded on the teacher's cmd/ctrlai/main.go runStart (transport
// construction, mux wiring, watcher wiring, signal-driven shutdown) for
// the overall lifecycle shape, generalized from "one proxy for the whole
// process" to "a map of independently startable/stoppable instances, one
// per tool."
package proxymgr

import (
	"path/filepath"

	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// Config is the on-disk ToolProxyConfig record for one tool. RealBaseURL
// and RealAPIKey are the actual upstream vendor credentials installed
// into the internal dc_proxy_<tool> profile while the instance runs —
// per §9's open question, AMP persists these even though it writes no
// native file, so they live here rather than in a tool-specific struct.
type Config struct {
	Enabled                      bool   `json:"enabled"`
	Port                         int    `json:"port"`
	LocalAPIKey                  string `json:"local_api_key"`
	AllowPublic                  bool   `json:"allow_public"`
	AutoStart                    bool   `json:"auto_start"`
	SessionEndpointConfigEnabled bool   `json:"session_endpoint_config_enabled"`
	PricingTemplateID            string `json:"pricing_template_id,omitempty"`
	RealBaseURL                  string `json:"real_base_url"`
	RealAPIKey                   string `json:"real_api_key"`
	WireAPI                      string `json:"wire_api,omitempty"`
}

// configDoc is the on-disk shape of proxy.json.
type configDoc map[tool.ID]Config

// legacyDoc captures the deprecated transparent_proxy_* top-level keys
// migrated on load (§9: one-time load-time transform, preserving user
// values, removed keys never reappear on write).
type legacyDoc struct {
	TransparentProxyEnabled     *bool   `json:"transparent_proxy_enabled,omitempty"`
	TransparentProxyPort        *int    `json:"transparent_proxy_port,omitempty"`
	TransparentProxyLocalAPIKey *string `json:"transparent_proxy_local_api_key,omitempty"`
}

func loadConfigDoc(path string) (configDoc, error) {
	doc := store.NewJSON[configDoc](path, store.NewCache())
	cfg, err := doc.ReadUncached()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = configDoc{}
	}
	migrateLegacy(path, cfg)
	if cfg[tool.Claude].Port == 0 {
		applyDefaults(cfg)
		if err := doc.WriteAtomic(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// migrateLegacy folds any transparent_proxy_* sibling file into
// claude-code's config the one time it's found, matching the migration
// note in §9 — legacy state lived at a single top-level scope, not
// per-tool, so it only ever applied to the one tool the old proxy served.
func migrateLegacy(path string, cfg configDoc) {
	legacyPath := filepath.Join(filepath.Dir(path), "global.json")
	legacyDocStore := store.NewJSON[legacyDoc](legacyPath, store.NewCache())
	legacy, err := legacyDocStore.ReadUncached()
	if err != nil {
		return
	}
	if legacy.TransparentProxyEnabled == nil && legacy.TransparentProxyPort == nil && legacy.TransparentProxyLocalAPIKey == nil {
		return
	}
	c := cfg[tool.Claude]
	if legacy.TransparentProxyEnabled != nil {
		c.Enabled = *legacy.TransparentProxyEnabled
	}
	if legacy.TransparentProxyPort != nil {
		c.Port = *legacy.TransparentProxyPort
	}
	if legacy.TransparentProxyLocalAPIKey != nil {
		c.LocalAPIKey = *legacy.TransparentProxyLocalAPIKey
	}
	cfg[tool.Claude] = c
	applyDefaults(cfg)
	if err := store.NewJSON[configDoc](path, store.NewCache()).WriteAtomic(cfg); err != nil {
		return
	}
	global := store.NewJSON[map[string]any](legacyPath, store.NewCache())
	if g, err := global.ReadUncached(); err == nil && g != nil {
		delete(g, "transparent_proxy_enabled")
		delete(g, "transparent_proxy_port")
		delete(g, "transparent_proxy_local_api_key")
		_ = global.WriteAtomic(g)
	}
}

func applyDefaults(cfg configDoc) {
	for _, tid := range tool.All {
		if _, ok := cfg[tid]; ok {
			continue
		}
		d, _ := tool.Get(tid)
		cfg[tid] = Config{
			Enabled:           false,
			Port:              d.DefaultPort,
			AllowPublic:       false,
			AutoStart:         false,
			PricingTemplateID: d.DefaultPricingTemplate,
		}
	}
}
