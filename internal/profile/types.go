// Package profile implements the Profile Manager: CRUD over per-tool
// credential profiles, activation (writing a profile's credentials into a
// tool's native config files), and the reserved internal-profile API used
// by the Proxy Manager while an instance is running.
//
// Modeled on the teacher's internal/agent.Registry: a mutex-guarded map
// backed by a single on-disk document, with auto-creation on first touch
// and an explicit Save. Generalized to two documents (profiles.json,
// active.json) scoped per tool, and to the Data Store's atomic/cached
// JSON plumbing instead of a bare os.WriteFile.
package profile

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/duckcoding/duckcoding/internal/tool"
)

// namePattern is the Profile.name invariant from the data model.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidName reports whether name satisfies the Profile name invariant:
// matches namePattern and does not start with the reserved prefix.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && !IsReserved(name)
}

// IsReserved reports whether name is a reserved internal-profile name.
func IsReserved(name string) bool {
	return len(name) >= len(tool.ReservedPrefix) && name[:len(tool.ReservedPrefix)] == tool.ReservedPrefix
}

// SourceKind distinguishes a hand-entered profile from one imported from a
// provider catalog.
type SourceKind string

const (
	SourceCustom             SourceKind = "custom"
	SourceImportedFromProvider SourceKind = "imported_from_provider"
)

// Source is the tagged union Profile.source: Custom carries no payload,
// ImportedFromProvider carries provenance.
type Source struct {
	Kind             SourceKind `json:"kind"`
	Provider         string     `json:"provider,omitempty"`
	RemoteTokenName  string     `json:"remote_token_name,omitempty"`
	Group            string     `json:"group,omitempty"`
	ImportedAt       *time.Time `json:"imported_at,omitempty"`
}

// NativeSnapshot is the full JSON image of a tool's native files at the
// moment a profile was activated, keyed by the file's relative path (one
// of tool.Descriptor.NativeConfigPaths). Values are the file's raw bytes
// reinterpreted as canonical JSON (TOML and .env files are converted to an
// equivalent JSON shape before snapshotting so diffing in Config Watcher
// is a single algorithm regardless of native encoding).
type NativeSnapshot map[string]json.RawMessage

// Profile is a named credential bundle scoped to one tool.
type Profile struct {
	Name              string     `json:"name"`
	APIKey            string     `json:"api_key"`
	BaseURL           string     `json:"base_url"`
	WireAPI           string     `json:"wire_api,omitempty"`
	Model             string     `json:"model,omitempty"`
	PricingTemplateID string     `json:"pricing_template_id,omitempty"`
	Source            Source     `json:"source"`
	NativeSnapshot    NativeSnapshot `json:"native_snapshot,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Descriptor is the public, listing-safe view of a Profile (list never
// exposes api_key).
type Descriptor struct {
	Name              string `json:"name"`
	BaseURL           string `json:"base_url"`
	WireAPI           string `json:"wire_api,omitempty"`
	Model             string `json:"model,omitempty"`
	PricingTemplateID string `json:"pricing_template_id,omitempty"`
	Source            Source `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p Profile) toDescriptor() Descriptor {
	return Descriptor{
		Name:              p.Name,
		BaseURL:           p.BaseURL,
		WireAPI:           p.WireAPI,
		Model:             p.Model,
		PricingTemplateID: p.PricingTemplateID,
		Source:            p.Source,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// ActiveProfile records which profile currently occupies a tool's native
// files.
type ActiveProfile struct {
	ProfileName    string         `json:"profile_name"`
	SwitchedAt     time.Time      `json:"switched_at"`
	LastSyncedAt   time.Time      `json:"last_synced_at"`
	NativeSnapshot NativeSnapshot `json:"native_snapshot,omitempty"`
}

// CreatePayload is the input to Create.
type CreatePayload struct {
	APIKey            string
	BaseURL           string
	WireAPI           string
	Model             string
	PricingTemplateID string
}

// UpdatePatch is the input to Update; nil fields leave the current value
// unchanged.
type UpdatePatch struct {
	APIKey            *string
	BaseURL           *string
	WireAPI           *string
	Model             *string
	PricingTemplateID *string
}

// profilesDoc is the on-disk shape of profiles.json.
type profilesDoc map[tool.ID]map[string]Profile

// activeDoc is the on-disk shape of active.json.
type activeDoc map[tool.ID]*ActiveProfile
