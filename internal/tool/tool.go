// Package tool defines the closed set of AI-CLI tools DuckCoding supervises
// and the static, compiled-in facts about each one: display name, default
// proxy port, native config file paths, default pricing template, and wire
// protocol flavor.
//
// This is the generalization of the teacher's config.ProviderConfig map
// (a dynamic map[string]ProviderConfig of upstream URLs) into a closed,
// strongly-typed registry — DuckCoding supervises exactly four tools, not
// an open set of LLM providers, so a map would lose the compiler's help.
package tool

import "fmt"

// ID identifies one of the four supported AI-CLI tools.
type ID string

const (
	Claude ID = "claude-code"
	Codex  ID = "codex"
	Gemini ID = "gemini-cli"
	Amp    ID = "amp-code"
)

// All lists every supported tool ID, in a stable order used for iteration
// (status tables, auto-start, etc.).
var All = []ID{Claude, Codex, Gemini, Amp}

// WireProtocol identifies the request/response shape a tool's upstream
// speaks, independent of the tool's own on-disk config format.
type WireProtocol string

const (
	WireClaude WireProtocol = "anthropic-messages"
	WireCodex  WireProtocol = "openai-responses"
	WireGemini WireProtocol = "gemini-generatecontent"
	WireAmp    WireProtocol = "delegated"
)

// Descriptor holds the compiled-in facts about one tool.
type Descriptor struct {
	ID                     ID
	DisplayName            string
	DefaultPort            int
	DefaultPricingTemplate string
	Wire                   WireProtocol
	// NativeConfigPaths are the tool-native files Profile Manager writes on
	// activate and Config Watcher scans for drift. Paths are relative to
	// the user's home directory; Amp has none (proxy-only, see §9 Open
	// Questions in spec.md — Amp never mutates a native file).
	NativeConfigPaths []string
}

var registry = map[ID]Descriptor{
	Claude: {
		ID:                     Claude,
		DisplayName:            "Claude Code",
		DefaultPort:            8787,
		DefaultPricingTemplate: "anthropic-default",
		Wire:                   WireClaude,
		NativeConfigPaths:      []string{".claude/settings.json"},
	},
	Codex: {
		ID:                     Codex,
		DisplayName:            "Codex",
		DefaultPort:            8788,
		DefaultPricingTemplate: "openai-default",
		Wire:                   WireCodex,
		NativeConfigPaths:      []string{".codex/config.toml", ".codex/auth.json"},
	},
	Gemini: {
		ID:                     Gemini,
		DisplayName:            "Gemini CLI",
		DefaultPort:            8789,
		DefaultPricingTemplate: "gemini-default",
		Wire:                   WireGemini,
		NativeConfigPaths:      []string{".gemini-cli/.env"},
	},
	Amp: {
		ID:                     Amp,
		DisplayName:            "AMP Code",
		DefaultPort:            8790,
		DefaultPricingTemplate: "anthropic-default",
		Wire:                   WireAmp,
		NativeConfigPaths:      nil,
	},
}

// Get returns the descriptor for a tool ID, or an error if the ID is not
// one of the four supported tools.
func Get(id ID) (Descriptor, error) {
	d, ok := registry[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("tool: unknown tool id %q", id)
	}
	return d, nil
}

// Valid reports whether id is one of the four supported tools.
func Valid(id ID) bool {
	_, ok := registry[id]
	return ok
}

// InternalProfileName returns the reserved internal-profile name installed
// while tool's proxy is running, e.g. "dc_proxy_claude-code".
func InternalProfileName(id ID) string {
	return "dc_proxy_" + string(id)
}

// ReservedPrefix is the profile name prefix reserved for internal profiles.
// User-created profiles must not start with it (Profile.Invariants, spec.md §3).
const ReservedPrefix = "dc_proxy_"
