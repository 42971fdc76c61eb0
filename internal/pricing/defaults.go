package pricing

import "github.com/duckcoding/duckcoding/internal/tool"

// defaultTemplates returns the built-in preset templates installed when no
// pricing.json exists yet, directly analogous to the teacher's
// engine.builtinRules(): a small hardcoded set, flagged immutable, that
// the user's custom templates can inherit from but never overwrite.
func defaultTemplates() map[string]Template {
	return map[string]Template{
		"anthropic-default": {
			ID:              "anthropic-default",
			Name:            "Anthropic Default",
			IsDefaultPreset: true,
			CustomModels: map[string]ModelPrice{
				"claude-opus-4": {
					Provider: "anthropic", InputPer1M: 15, OutputPer1M: 75,
					CacheWritePer1M: 18.75, CacheReadPer1M: 1.5, Currency: "USD",
					Aliases: []string{"claude-opus-4-1"},
				},
				"claude-sonnet-4": {
					Provider: "anthropic", InputPer1M: 3, OutputPer1M: 15,
					CacheWritePer1M: 3.75, CacheReadPer1M: 0.3, Currency: "USD",
					Aliases: []string{"claude-sonnet-4-5"},
				},
				"claude-haiku-3-5": {
					Provider: "anthropic", InputPer1M: 0.8, OutputPer1M: 4,
					CacheWritePer1M: 1, CacheReadPer1M: 0.08, Currency: "USD",
				},
			},
		},
		"openai-default": {
			ID:              "openai-default",
			Name:            "OpenAI Default",
			IsDefaultPreset: true,
			CustomModels: map[string]ModelPrice{
				"gpt-5": {
					Provider: "openai", InputPer1M: 5, OutputPer1M: 15,
					CacheWritePer1M: 0, CacheReadPer1M: 1.25, Currency: "USD",
				},
				"gpt-5-mini": {
					Provider: "openai", InputPer1M: 0.6, OutputPer1M: 2.4,
					CacheWritePer1M: 0, CacheReadPer1M: 0.15, Currency: "USD",
				},
			},
		},
		"gemini-default": {
			ID:              "gemini-default",
			Name:            "Gemini Default",
			IsDefaultPreset: true,
			CustomModels: map[string]ModelPrice{
				"gemini-2-5-pro": {
					Provider: "google", InputPer1M: 1.25, OutputPer1M: 10,
					CacheWritePer1M: 0, CacheReadPer1M: 0.31, Currency: "USD",
				},
				"gemini-2-5-flash": {
					Provider: "google", InputPer1M: 0.3, OutputPer1M: 2.5,
					CacheWritePer1M: 0, CacheReadPer1M: 0.075, Currency: "USD",
				},
			},
		},
	}
}

func defaultTemplateIDs() map[tool.ID]string {
	return map[tool.ID]string{
		tool.Claude: "anthropic-default",
		tool.Codex:  "openai-default",
		tool.Gemini: "gemini-default",
		tool.Amp:    "anthropic-default",
	}
}
