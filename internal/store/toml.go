package store

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLDocument reads a TOML file for typed validation (via BurntSushi/toml,
// the only TOML library present anywhere in the retrieved example pack —
// rakunlabs-at/go.mod pulls it in transitively) and patches individual
// top-level or [table] keys in place, line by line, so user comments and
// formatting survive a write.
//
// No TOML library in the pack (or, to our knowledge, the wider ecosystem)
// offers a comment-preserving write path the way a YAML/JSON round-trip
// does — BurntSushi/toml and pelletier/go-toml both lose comments on
// Marshal. Codex's config.toml is the one native file the spec requires
// to preserve comments on write (§6), so TOMLDocument reads via
// BurntSushi/toml (decode + validate the shape) but writes via a targeted
// textual patch of only the keys being set, documented here rather than
// left unexplained.
type TOMLDocument struct {
	path string
}

// NewTOMLDocument opens the TOML document at path. The file need not exist
// yet — SetKeys creates it with only the requested keys.
func NewTOMLDocument(path string) *TOMLDocument {
	return &TOMLDocument{path: path}
}

// Decode parses the file into v using BurntSushi/toml. Returns the zero
// value and no error if the file does not exist.
func (d *TOMLDocument) Decode(v any) error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: reading %s: %w", d.path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := toml.Decode(string(data), v); err != nil {
		return fmt.Errorf("store: parsing %s: %w", d.path, err)
	}
	return nil
}

// topLevelKeyPattern matches a simple "key = value" line, allowing leading
// whitespace. SetKeys applies it only to the lines above the first [table]
// header; SetTableKey applies it inside the named table.
var topLevelKeyPattern = func(key string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(key) + `\s*=`)
}

// SetKeys patches the given top-level keys (e.g. "model_provider") to new
// string values, preserving every other line verbatim including comments.
// If a key's line is not found, it's inserted just before the first [table]
// header (or at the end of the file if there is none), so it stays
// top-level. Values are written as quoted TOML strings.
func (d *TOMLDocument) SetKeys(kv map[string]string) error {
	lines, err := d.readLines()
	if err != nil {
		return err
	}

	remaining := make(map[string]string, len(kv))
	for k, v := range kv {
		remaining[k] = v
	}

	firstTable := len(lines)
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "[") {
			firstTable = i
			break
		}
	}

	for i, line := range lines[:firstTable] {
		for key, val := range remaining {
			if topLevelKeyPattern(key).MatchString(line) {
				lines[i] = fmt.Sprintf("%s = %q", key, val)
				delete(remaining, key)
				break
			}
		}
	}

	var added []string
	for _, key := range sortedKeys(remaining) {
		added = append(added, fmt.Sprintf("%s = %q", key, remaining[key]))
	}
	lines = append(lines[:firstTable:firstTable], append(added, lines[firstTable:]...)...)

	return WriteAtomic(d.path, []byte(strings.Join(lines, "\n")+"\n"))
}

// SetTableKey patches a single key inside a named [table] (e.g.
// "model_providers.openai".base_url), preserving comments and every other
// key in every other table. If the table doesn't exist yet, it and the
// key are appended.
func (d *TOMLDocument) SetTableKey(table, key, value string) error {
	lines, err := d.readLines()
	if err != nil {
		return err
	}

	tableHeader := "[" + table + "]"
	keyPattern := topLevelKeyPattern(key)

	inTable := false
	foundTable := false
	foundKey := false
	tableEnd := len(lines)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if inTable {
				tableEnd = i
				break
			}
			inTable = trimmed == tableHeader
			if inTable {
				foundTable = true
			}
			continue
		}
		if inTable && keyPattern.MatchString(line) {
			lines[i] = fmt.Sprintf("%s = %q", key, value)
			foundKey = true
		}
	}

	if !foundTable {
		lines = append(lines, "", tableHeader, fmt.Sprintf("%s = %q", key, value))
	} else if !foundKey {
		insertAt := tableEnd
		head := append([]string{}, lines[:insertAt]...)
		tail := append([]string{}, lines[insertAt:]...)
		head = append(head, fmt.Sprintf("%s = %q", key, value))
		lines = append(head, tail...)
	}

	return WriteAtomic(d.path, []byte(strings.Join(lines, "\n")+"\n"))
}

func (d *TOMLDocument) readLines() ([]string, error) {
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", d.path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
