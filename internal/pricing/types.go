// Package pricing implements the Pricing Engine: per-model price
// resolution with template inheritance and multipliers, and per-request
// cost computation.
//
// Structurally grounded on the teacher's internal/engine.Engine: an
// ordered, mutex-guarded, compiled-at-load structure with a Reload path —
// here the "ordered evaluation" is template inheritance resolution rather
// than first-match-wins rule matching, but the load/rebuild/RWMutex shape
// is the same.
package pricing

import (
	"regexp"
	"strings"

	"github.com/duckcoding/duckcoding/internal/tool"
)

// ModelPrice is a single model's per-1M-token price list.
type ModelPrice struct {
	Provider         string   `json:"provider"`
	InputPer1M       float64  `json:"input_per_1m"`
	OutputPer1M      float64  `json:"output_per_1m"`
	CacheWritePer1M  float64  `json:"cache_write_per_1m"`
	CacheReadPer1M   float64  `json:"cache_read_per_1m"`
	Currency         string   `json:"currency"`
	Aliases          []string `json:"aliases,omitempty"`
}

// InheritedModel points a model name at another template's entry, scaled
// by Multiplier.
type InheritedModel struct {
	ModelName        string  `json:"model_name"`
	SourceTemplateID string  `json:"source_template_id"`
	Multiplier       float64 `json:"multiplier"`
}

// Template is one PricingTemplate.
type Template struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	IsDefaultPreset bool                   `json:"is_default_preset"`
	InheritedModels []InheritedModel       `json:"inherited_models"`
	CustomModels    map[string]ModelPrice  `json:"custom_models"`
}

// EffectivePrice is the resolved, possibly multiplier-scaled price for a
// requested model.
type EffectivePrice struct {
	ModelName       string  `json:"model_name"`
	TemplateID      string  `json:"template_id"`
	Provider        string  `json:"provider"`
	InputPer1M      float64 `json:"input_per_1m"`
	OutputPer1M     float64 `json:"output_per_1m"`
	CacheWritePer1M float64 `json:"cache_write_per_1m"`
	CacheReadPer1M  float64 `json:"cache_read_per_1m"`
	Currency        string  `json:"currency"`
}

// Counters is the token counts a cost is computed from.
type Counters struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
}

// Cost is the priced breakdown attached to a TokenLog.
type Cost struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheWrite float64 `json:"cache_write"`
	CacheRead  float64 `json:"cache_read"`
	Total      float64 `json:"total"`
}

// Doc is the on-disk shape of pricing.json.
type Doc struct {
	Templates         map[string]Template  `json:"templates"`
	DefaultTemplateID map[tool.ID]string   `json:"default_template_id"`
}

var dateSuffixPattern = regexp.MustCompile(`-\d{8}$`)

// NormalizeModel lowercases model and strips a trailing -YYYYMMDD date
// suffix, if present.
func NormalizeModel(model string) string {
	lower := strings.ToLower(model)
	return dateSuffixPattern.ReplaceAllString(lower, "")
}
