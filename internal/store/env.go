package store

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// EnvFile reads and writes a simple "KEY=value" dotenv file, the format
// Gemini CLI reads its API key and model overrides from
// (~/.gemini-cli/.env). There is no dotenv library anywhere in the
// retrieved example pack, and the format itself is a handful of lines with
// no escaping rules worth a dependency, so this is a small hand-rolled
// parser in the same vein as the teacher's registryFile/killSwitch YAML
// envelopes: read whole file, hold an ordered map, write whole file back.
type EnvFile struct {
	path string
}

// NewEnvFile opens the dotenv document at path. The file need not exist.
func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

// Read parses the file into an ordered key/value list, preserving blank
// lines and comment lines ("#...") as opaque passthrough entries so a
// later Write doesn't silently drop them. Missing file returns an empty,
// non-nil result and no error.
func (e *EnvFile) Read() ([]EnvLine, error) {
	f, err := os.Open(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []EnvLine{}, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", e.path, err)
	}
	defer f.Close()

	var lines []EnvLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			lines = append(lines, EnvLine{Raw: raw, IsPassthrough: true})
			continue
		}
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			lines = append(lines, EnvLine{Raw: raw, IsPassthrough: true})
			continue
		}
		lines = append(lines, EnvLine{Key: strings.TrimSpace(key), Value: unquoteEnvValue(strings.TrimSpace(value))})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", e.path, err)
	}
	return lines, nil
}

// Lookup returns the value of key and whether it was present.
func (e *EnvFile) Lookup(key string) (string, bool, error) {
	lines, err := e.Read()
	if err != nil {
		return "", false, err
	}
	for _, l := range lines {
		if !l.IsPassthrough && l.Key == key {
			return l.Value, true, nil
		}
	}
	return "", false, nil
}

// SetKeys upserts the given keys, leaving every passthrough line (comments,
// blank lines, unrecognized entries) untouched and in place. New keys not
// already present are appended in alphabetical order, matching the
// re-emission rule in spec.md's native-file section.
func (e *EnvFile) SetKeys(kv map[string]string) error {
	lines, err := e.Read()
	if err != nil {
		return err
	}

	remaining := make(map[string]string, len(kv))
	for k, v := range kv {
		remaining[k] = v
	}

	for i, l := range lines {
		if l.IsPassthrough {
			continue
		}
		if v, ok := remaining[l.Key]; ok {
			lines[i].Value = v
			delete(remaining, l.Key)
		}
	}

	newKeys := make([]string, 0, len(remaining))
	for k := range remaining {
		newKeys = append(newKeys, k)
	}
	sort.Strings(newKeys)
	for _, k := range newKeys {
		lines = append(lines, EnvLine{Key: k, Value: remaining[k]})
	}

	var b strings.Builder
	for _, l := range lines {
		if l.IsPassthrough {
			b.WriteString(l.Raw)
		} else {
			fmt.Fprintf(&b, "%s=%s", l.Key, quoteEnvValue(l.Value))
		}
		b.WriteByte('\n')
	}

	return WriteAtomic(e.path, []byte(b.String()))
}

// EnvLine is one physical line of a dotenv file: either a key/value pair or
// an opaque passthrough (comment or blank line).
type EnvLine struct {
	Key           string
	Value         string
	Raw           string
	IsPassthrough bool
}

func unquoteEnvValue(v string) string {
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"') {
		return v[1 : len(v)-1]
	}
	return v
}

func quoteEnvValue(v string) string {
	if strings.ContainsAny(v, " #\"") {
		return fmt.Sprintf("%q", v)
	}
	return v
}
