package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IgnoreRules decides which working-tree paths are never tracked. The
// metadata directory is always ignored.
type IgnoreRules struct {
	patterns []string
}

// NewIgnoreRules validates the glob patterns up front so matching never fails.
func NewIgnoreRules(patterns []string) (IgnoreRules, error) {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return IgnoreRules{}, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
	}
	return IgnoreRules{patterns: append([]string(nil), patterns...)}, nil
}

// Match reports whether any component of the slash or OS separated relative
// path rel is the metadata directory or matches an ignore pattern.
func (r IgnoreRules) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if part == MetaDirName {
			return true
		}
		for _, p := range r.patterns {
			if ok, _ := filepath.Match(p, part); ok {
				return true
			}
		}
	}
	return false
}
