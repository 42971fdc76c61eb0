package profile

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/duckcoding/duckcoding/internal/store"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// writeNative writes p's credentials into tid's native files under home,
// per the exact keys in §6 of the on-disk layout, leaving every other key
// in every file untouched.
func writeNative(home string, tid tool.ID, p Profile) error {
	switch tid {
	case tool.Claude:
		return writeClaudeSettings(home, p)
	case tool.Codex:
		return writeCodexConfig(home, p)
	case tool.Gemini:
		return writeGeminiEnv(home, p)
	case tool.Amp:
		return nil
	default:
		return fmt.Errorf("profile: unknown tool %q", tid)
	}
}

// readNativeSnapshot reads tid's current native files under home and
// returns them as a NativeSnapshot of canonical JSON, one entry per
// relative path in the tool's descriptor.
func readNativeSnapshot(home string, tid tool.ID) (NativeSnapshot, error) {
	d, err := tool.Get(tid)
	if err != nil {
		return nil, err
	}
	snap := make(NativeSnapshot, len(d.NativeConfigPaths))
	for _, rel := range d.NativeConfigPaths {
		path := filepath.Join(home, rel)
		raw, err := nativeFileAsJSON(path)
		if err != nil {
			return nil, err
		}
		snap[rel] = raw
	}
	return snap, nil
}

func nativeFileAsJSON(path string) (json.RawMessage, error) {
	switch filepath.Ext(path) {
	case ".json":
		doc := store.NewJSON[map[string]any](path, store.NewCache())
		v, err := doc.ReadUncached()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	case ".toml":
		var v map[string]any
		if err := store.NewTOMLDocument(path).Decode(&v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	default:
		// .env and anything else: project to a flat string map.
		lines, err := store.NewEnvFile(path).Read()
		if err != nil {
			return nil, err
		}
		kv := make(map[string]string, len(lines))
		for _, l := range lines {
			if !l.IsPassthrough {
				kv[l.Key] = l.Value
			}
		}
		return json.Marshal(kv)
	}
}

// readNativeCredentials reads back the credential fields import_from_native
// needs: api key, base url, and (Gemini only) model.
func readNativeCredentials(home string, tid tool.ID) (apiKey, baseURL, model string, err error) {
	switch tid {
	case tool.Claude:
		path := filepath.Join(home, ".claude", "settings.json")
		doc := store.NewJSON[map[string]any](path, store.NewCache())
		settings, err := doc.ReadUncached()
		if err != nil {
			return "", "", "", err
		}
		env, _ := settings["env"].(map[string]any)
		return stringField(env, "ANTHROPIC_AUTH_TOKEN"), stringField(env, "ANTHROPIC_BASE_URL"), "", nil

	case tool.Codex:
		configPath := filepath.Join(home, ".codex", "config.toml")
		var cfg struct {
			ModelProvider  string `toml:"model_provider"`
			ModelProviders map[string]struct {
				BaseURL string `toml:"base_url"`
			} `toml:"model_providers"`
		}
		if err := store.NewTOMLDocument(configPath).Decode(&cfg); err != nil {
			return "", "", "", err
		}
		authPath := filepath.Join(home, ".codex", "auth.json")
		authDoc := store.NewJSON[map[string]any](authPath, store.NewCache())
		auth, err := authDoc.ReadUncached()
		if err != nil {
			return "", "", "", err
		}
		provider := cfg.ModelProviders[cfg.ModelProvider]
		return stringField(auth, "OPENAI_API_KEY"), provider.BaseURL, "", nil

	case tool.Gemini:
		path := filepath.Join(home, ".gemini-cli", ".env")
		apiKey, _, err := store.NewEnvFile(path).Lookup("GEMINI_API_KEY")
		if err != nil {
			return "", "", "", err
		}
		baseURL, _, err := store.NewEnvFile(path).Lookup("GOOGLE_GEMINI_BASE_URL")
		if err != nil {
			return "", "", "", err
		}
		model, _, err := store.NewEnvFile(path).Lookup("GEMINI_MODEL")
		if err != nil {
			return "", "", "", err
		}
		return apiKey, baseURL, model, nil

	default:
		return "", "", "", nil
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func writeClaudeSettings(home string, p Profile) error {
	path := filepath.Join(home, ".claude", "settings.json")
	doc := store.NewJSON[map[string]any](path, store.NewCache())
	settings, err := doc.ReadUncached()
	if err != nil {
		return err
	}
	if settings == nil {
		settings = map[string]any{}
	}
	env, _ := settings["env"].(map[string]any)
	if env == nil {
		env = map[string]any{}
	}
	env["ANTHROPIC_AUTH_TOKEN"] = p.APIKey
	env["ANTHROPIC_BASE_URL"] = p.BaseURL
	settings["env"] = env
	return doc.WriteAtomic(settings)
}

func writeCodexConfig(home string, p Profile) error {
	configPath := filepath.Join(home, ".codex", "config.toml")
	providerName := "duckcoding"
	tdoc := store.NewTOMLDocument(configPath)
	if err := tdoc.SetKeys(map[string]string{"model_provider": providerName}); err != nil {
		return err
	}
	if err := tdoc.SetTableKey("model_providers."+providerName, "base_url", p.BaseURL); err != nil {
		return err
	}

	authPath := filepath.Join(home, ".codex", "auth.json")
	authDoc := store.NewJSON[map[string]any](authPath, store.NewCache())
	auth, err := authDoc.ReadUncached()
	if err != nil {
		return err
	}
	if auth == nil {
		auth = map[string]any{}
	}
	auth["OPENAI_API_KEY"] = p.APIKey
	return authDoc.WriteAtomic(auth)
}

func writeGeminiEnv(home string, p Profile) error {
	path := filepath.Join(home, ".gemini-cli", ".env")
	kv := map[string]string{
		"GEMINI_API_KEY":        p.APIKey,
		"GOOGLE_GEMINI_BASE_URL": p.BaseURL,
	}
	if p.Model != "" {
		kv["GEMINI_MODEL"] = p.Model
	}
	return store.NewEnvFile(path).SetKeys(kv)
}
