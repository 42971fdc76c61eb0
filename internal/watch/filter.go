package watch

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/duckcoding/duckcoding/internal/tool"
)

// compiledPatterns holds the glob matchers for one tool, compiled once at
// load time exactly as the teacher's engine.compiledMatcher compiles its
// path globs — a dotted-path glob with '.' as the segment separator, so
// "ui.*" matches "ui.theme" but not "ui.theme.color".
type compiledPatterns struct {
	blacklist       []glob.Glob
	sensitiveFields []glob.Glob
}

func compilePatterns(cfg Config) (map[tool.ID]compiledPatterns, error) {
	out := make(map[tool.ID]compiledPatterns, len(tool.All))
	for _, tid := range tool.All {
		var cp compiledPatterns
		for _, pat := range cfg.Blacklist[tid] {
			g, err := glob.Compile(pat, '.')
			if err != nil {
				return nil, fmt.Errorf("watch: compiling blacklist pattern %q for %s: %w", pat, tid, err)
			}
			cp.blacklist = append(cp.blacklist, g)
		}
		for _, pat := range cfg.SensitiveFields[tid] {
			g, err := glob.Compile(pat, '.')
			if err != nil {
				return nil, fmt.Errorf("watch: compiling sensitive field pattern %q for %s: %w", pat, tid, err)
			}
			cp.sensitiveFields = append(cp.sensitiveFields, g)
		}
		out[tid] = cp
	}
	return out, nil
}

// filterEntries applies the blacklist-then-mode filter from the diff
// algorithm (§4.C steps 3-4): blacklisted paths are dropped outright; in
// ModeDefault only sensitive-field matches survive, in ModeFull everything
// else does.
func filterEntries(entries []DiffEntry, cp compiledPatterns, mode Mode) []DiffEntry {
	var out []DiffEntry
	for _, e := range entries {
		if matchesAny(cp.blacklist, e.Path) {
			continue
		}
		sensitive := matchesAny(cp.sensitiveFields, e.Path)
		if mode == ModeDefault && !sensitive {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// isSensitive reports whether any entry in entries matches a sensitive
// field pattern, used to populate external-config-change's is_sensitive
// flag.
func isSensitive(entries []DiffEntry, cp compiledPatterns) bool {
	for _, e := range entries {
		if matchesAny(cp.sensitiveFields, e.Path) {
			return true
		}
	}
	return false
}
