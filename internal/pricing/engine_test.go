package pricing

import (
	"testing"

	"github.com/duckcoding/duckcoding/internal/errs"
	"github.com/duckcoding/duckcoding/internal/tool"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNew_SeedsDefaults(t *testing.T) {
	e := newTestEngine(t)
	if len(e.ListTemplates()) == 0 {
		t.Fatal("expected default templates to be seeded")
	}
	if got := e.DefaultTemplateID(tool.Claude); got != "anthropic-default" {
		t.Errorf("got %q, want anthropic-default", got)
	}
}

func TestResolve_CustomModel(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Resolve("anthropic-default", "claude-opus-4")
	if err != nil {
		t.Fatal(err)
	}
	if p.InputPer1M != 15 || p.OutputPer1M != 75 {
		t.Errorf("got %+v", p)
	}
}

func TestResolve_NormalizesDateSuffix(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Resolve("anthropic-default", "claude-opus-4-20250101")
	if err != nil {
		t.Fatal(err)
	}
	if p.InputPer1M != 15 {
		t.Errorf("got %+v", p)
	}
}

func TestResolve_MatchesAlias(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Resolve("anthropic-default", "claude-opus-4-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelName != "claude-opus-4-1" || p.InputPer1M != 15 {
		t.Errorf("got %+v", p)
	}
}

func TestResolve_UnknownTemplate(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Resolve("no-such-template", "claude-opus-4")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindPricingMissing {
		t.Errorf("got %v, want KindPricingMissing", err)
	}
}

func TestResolve_UnknownModel(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Resolve("anthropic-default", "not-a-real-model")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindPricingMissing {
		t.Errorf("got %v, want KindPricingMissing", err)
	}
}

func TestResolve_InheritedModelAppliesMultiplier(t *testing.T) {
	e := newTestEngine(t)
	e.SaveTemplate(Template{
		ID:   "custom",
		Name: "Custom",
		InheritedModels: []InheritedModel{
			{ModelName: "claude-opus-4", SourceTemplateID: "anthropic-default", Multiplier: 2.0},
		},
		CustomModels: map[string]ModelPrice{},
	})

	p, err := e.Resolve("custom", "claude-opus-4")
	if err != nil {
		t.Fatal(err)
	}
	if p.InputPer1M != 30 || p.OutputPer1M != 150 {
		t.Errorf("got %+v, want doubled anthropic-default prices", p)
	}
}

func TestResolve_DetectsInheritanceCycle(t *testing.T) {
	e := newTestEngine(t)
	e.SaveTemplate(Template{
		ID:   "a",
		Name: "A",
		InheritedModels: []InheritedModel{
			{ModelName: "loop", SourceTemplateID: "b", Multiplier: 1},
		},
		CustomModels: map[string]ModelPrice{},
	})
	e.SaveTemplate(Template{
		ID:   "b",
		Name: "B",
		InheritedModels: []InheritedModel{
			{ModelName: "loop", SourceTemplateID: "a", Multiplier: 1},
		},
		CustomModels: map[string]ModelPrice{},
	})

	_, err := e.Resolve("a", "loop")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindPricingCycle {
		t.Errorf("got %v, want KindPricingCycle", err)
	}
}

func TestSaveTemplate_RejectsPresetOverwrite(t *testing.T) {
	e := newTestEngine(t)
	err := e.SaveTemplate(Template{ID: "anthropic-default", Name: "tampered"})
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindConflict {
		t.Errorf("got %v, want KindConflict", err)
	}
}

func TestDeleteTemplate_RejectsPreset(t *testing.T) {
	e := newTestEngine(t)
	err := e.DeleteTemplate("anthropic-default")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindConflict {
		t.Errorf("got %v, want KindConflict", err)
	}
}

func TestDeleteTemplate_UnknownID(t *testing.T) {
	e := newTestEngine(t)
	err := e.DeleteTemplate("no-such-id")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestDeleteTemplate_RemovesCustomTemplate(t *testing.T) {
	e := newTestEngine(t)
	e.SaveTemplate(Template{ID: "mine", Name: "Mine", CustomModels: map[string]ModelPrice{}})
	if err := e.DeleteTemplate("mine"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Resolve("mine", "anything"); err == nil {
		t.Error("expected deleted template to be gone")
	}
}

func TestSetDefaultTemplate_UnknownTemplate(t *testing.T) {
	e := newTestEngine(t)
	err := e.SetDefaultTemplate(tool.Claude, "no-such-id")
	ee, ok := errs.As(err)
	if !ok || ee.Kind != errs.KindNotFound {
		t.Errorf("got %v, want KindNotFound", err)
	}
}

func TestDefaultTemplateID_FallsBackToToolDefault(t *testing.T) {
	e := newTestEngine(t)
	d, _ := tool.Get(tool.Codex)
	if got := e.DefaultTemplateID(tool.Codex); got != d.DefaultPricingTemplate {
		t.Errorf("got %q, want %q", got, d.DefaultPricingTemplate)
	}
}

func TestDefaultTemplateID_HonorsOverride(t *testing.T) {
	e := newTestEngine(t)
	e.SaveTemplate(Template{ID: "mine", Name: "Mine", CustomModels: map[string]ModelPrice{}})
	if err := e.SetDefaultTemplate(tool.Claude, "mine"); err != nil {
		t.Fatal(err)
	}
	if got := e.DefaultTemplateID(tool.Claude); got != "mine" {
		t.Errorf("got %q, want mine", got)
	}
}

func TestSaveThenReload_RoundTrips(t *testing.T) {
	e := newTestEngine(t)
	e.SaveTemplate(Template{ID: "mine", Name: "Mine", CustomModels: map[string]ModelPrice{
		"widget": {Provider: "test", InputPer1M: 1, OutputPer1M: 2, Currency: "USD"},
	}})
	if err := e.Save(); err != nil {
		t.Fatal(err)
	}
	if err := e.Reload(); err != nil {
		t.Fatal(err)
	}
	p, err := e.Resolve("mine", "widget")
	if err != nil {
		t.Fatal(err)
	}
	if p.InputPer1M != 1 {
		t.Errorf("got %+v", p)
	}
}

func TestComputeCost_RoundsToSixDecimals(t *testing.T) {
	effective := EffectivePrice{InputPer1M: 15, OutputPer1M: 75, CacheWritePer1M: 18.75, CacheReadPer1M: 1.5}
	counters := Counters{Input: 1000, Output: 500, CacheCreation: 200, CacheRead: 100}

	cost := ComputeCost(effective, counters)

	if cost.Input != 0.015 {
		t.Errorf("input: got %v, want 0.015", cost.Input)
	}
	if cost.Output != 0.0375 {
		t.Errorf("output: got %v, want 0.0375", cost.Output)
	}
	if cost.CacheWrite != 0.00375 {
		t.Errorf("cache write: got %v, want 0.00375", cost.CacheWrite)
	}
	if cost.CacheRead != 0.00015 {
		t.Errorf("cache read: got %v, want 0.00015", cost.CacheRead)
	}
	want := cost.Input + cost.Output + cost.CacheWrite + cost.CacheRead
	if cost.Total != round6(want) {
		t.Errorf("total: got %v, want %v", cost.Total, round6(want))
	}
}

func TestComputeCost_ZeroCountersZeroCost(t *testing.T) {
	cost := ComputeCost(EffectivePrice{InputPer1M: 15, OutputPer1M: 75}, Counters{})
	if cost != (Cost{}) {
		t.Errorf("got %+v, want zero cost", cost)
	}
}

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"Claude-Opus-4":          "claude-opus-4",
		"claude-opus-4-20250101": "claude-opus-4",
		"gpt-4o":                 "gpt-4o",
	}
	for in, want := range cases {
		if got := NormalizeModel(in); got != want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", in, got, want)
		}
	}
}
