package pricing

import (
	"math"
	"path/filepath"
	"sync"

	"github.com/duckcoding/duckcoding/internal/errs"
	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
)

const maxInheritanceDepth = 16

// Engine resolves model prices against a loaded set of templates. Reload
// swaps the whole template set atomically, mirroring engine.Engine.Reload.
type Engine struct {
	mu  sync.RWMutex
	doc Doc

	store *store.JSONStore[Doc]
}

// New loads the Pricing Engine's templates from dataDir/pricing.json.
func New(dataDir string) (*Engine, error) {
	s := store.NewJSON[Doc](filepath.Join(dataDir, "pricing.json"), store.NewCache())
	doc, err := s.ReadUncached()
	if err != nil {
		return nil, errs.New(errs.KindIOError, "reading pricing.json: %v", err)
	}
	if doc.Templates == nil {
		doc.Templates = defaultTemplates()
	}
	if doc.DefaultTemplateID == nil {
		doc.DefaultTemplateID = defaultTemplateIDs()
	}
	return &Engine{doc: doc, store: s}, nil
}

// Reload re-reads pricing.json from disk, replacing the in-memory set.
func (e *Engine) Reload() error {
	doc, err := e.store.ReadUncached()
	if err != nil {
		return errs.New(errs.KindIOError, "reading pricing.json: %v", err)
	}
	e.mu.Lock()
	e.doc = doc
	e.mu.Unlock()
	return nil
}

// Save persists the current template set and default-template mapping.
func (e *Engine) Save() error {
	e.mu.RLock()
	doc := e.doc
	e.mu.RUnlock()
	if err := e.store.WriteAtomic(doc); err != nil {
		return errs.New(errs.KindIOError, "writing pricing.json: %v", err)
	}
	return nil
}

// ListTemplates returns every loaded template.
func (e *Engine) ListTemplates() []Template {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Template, 0, len(e.doc.Templates))
	for _, t := range e.doc.Templates {
		out = append(out, t)
	}
	return out
}

// SaveTemplate upserts a non-preset template. Fails if it would shadow an
// immutable preset.
func (e *Engine) SaveTemplate(t Template) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.doc.Templates[t.ID]; ok && existing.IsDefaultPreset {
		return errs.New(errs.KindConflict, "template %q is a preset and immutable", t.ID)
	}
	e.doc.Templates[t.ID] = t
	return nil
}

// DeleteTemplate removes a non-preset template.
func (e *Engine) DeleteTemplate(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.doc.Templates[id]
	if !ok {
		return errs.New(errs.KindNotFound, "template %q not found", id)
	}
	if t.IsDefaultPreset {
		return errs.New(errs.KindConflict, "template %q is a preset and immutable", id)
	}
	delete(e.doc.Templates, id)
	return nil
}

// SetDefaultTemplate records templateID as tid's default.
func (e *Engine) SetDefaultTemplate(tid tool.ID, templateID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.doc.Templates[templateID]; !ok {
		return errs.New(errs.KindNotFound, "template %q not found", templateID)
	}
	e.doc.DefaultTemplateID[tid] = templateID
	return nil
}

// DefaultTemplateID returns tid's configured default template, falling
// back to the tool's compiled-in default.
func (e *Engine) DefaultTemplateID(tid tool.ID) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if id, ok := e.doc.DefaultTemplateID[tid]; ok && id != "" {
		return id
	}
	d, _ := tool.Get(tid)
	return d.DefaultPricingTemplate
}

// Resolve implements §4.D: normalize the model name, check custom models
// and aliases, then walk inherited_models with cycle detection.
func (e *Engine) Resolve(templateID, modelName string) (EffectivePrice, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolve(templateID, modelName, map[string]bool{}, 0)
}

func (e *Engine) resolve(templateID, modelName string, seen map[string]bool, depth int) (EffectivePrice, error) {
	if depth > maxInheritanceDepth {
		return EffectivePrice{}, errs.New(errs.KindPricingCycle, "inheritance depth exceeded resolving %s/%s", templateID, modelName)
	}
	key := templateID + "\x00" + modelName
	if seen[key] {
		return EffectivePrice{}, errs.New(errs.KindPricingCycle, "inheritance cycle resolving %s/%s", templateID, modelName)
	}
	seen[key] = true

	tmpl, ok := e.doc.Templates[templateID]
	if !ok {
		return EffectivePrice{}, errs.New(errs.KindPricingMissing, "template %q not found", templateID)
	}

	normalized := NormalizeModel(modelName)

	if mp, ok := tmpl.CustomModels[normalized]; ok {
		return effectiveFrom(templateID, normalized, mp, 1.0), nil
	}
	for name, mp := range tmpl.CustomModels {
		if containsAlias(mp.Aliases, normalized) {
			_ = name
			return effectiveFrom(templateID, normalized, mp, 1.0), nil
		}
	}

	for _, inh := range tmpl.InheritedModels {
		if NormalizeModel(inh.ModelName) != normalized {
			continue
		}
		resolved, err := e.resolve(inh.SourceTemplateID, inh.ModelName, seen, depth+1)
		if err != nil {
			return EffectivePrice{}, err
		}
		return scale(resolved, inh.Multiplier), nil
	}

	return EffectivePrice{}, errs.New(errs.KindPricingMissing, "no price for model %q in template %q", modelName, templateID)
}

func containsAlias(aliases []string, model string) bool {
	for _, a := range aliases {
		if NormalizeModel(a) == model {
			return true
		}
	}
	return false
}

func effectiveFrom(templateID, modelName string, mp ModelPrice, multiplier float64) EffectivePrice {
	return EffectivePrice{
		ModelName:       modelName,
		TemplateID:      templateID,
		Provider:        mp.Provider,
		InputPer1M:      mp.InputPer1M * multiplier,
		OutputPer1M:     mp.OutputPer1M * multiplier,
		CacheWritePer1M: mp.CacheWritePer1M * multiplier,
		CacheReadPer1M:  mp.CacheReadPer1M * multiplier,
		Currency:        mp.Currency,
	}
}

func scale(p EffectivePrice, multiplier float64) EffectivePrice {
	p.InputPer1M *= multiplier
	p.OutputPer1M *= multiplier
	p.CacheWritePer1M *= multiplier
	p.CacheReadPer1M *= multiplier
	return p
}

// ComputeCost computes the priced breakdown for counters under effective,
// each field rounded to 6 decimal places.
func ComputeCost(effective EffectivePrice, counters Counters) Cost {
	input := round6(float64(counters.Input) * effective.InputPer1M / 1_000_000)
	output := round6(float64(counters.Output) * effective.OutputPer1M / 1_000_000)
	cacheWrite := round6(float64(counters.CacheCreation) * effective.CacheWritePer1M / 1_000_000)
	cacheRead := round6(float64(counters.CacheRead) * effective.CacheReadPer1M / 1_000_000)
	return Cost{
		Input:      input,
		Output:     output,
		CacheWrite: cacheWrite,
		CacheRead:  cacheRead,
		Total:      round6(input + output + cacheWrite + cacheRead),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1_000_000) / 1_000_000
}
