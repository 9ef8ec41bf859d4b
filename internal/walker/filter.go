package walker

import (
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	".bizassist",
	".venv",
	"node_modules",
	"__pycache__",
	".idea",
	".vscode",
	".Trash",
}

func shouldExcludeDir(name string) bool {
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// MatchesInclude reports whether relPath matches one of patterns. An empty
// pattern list includes everything.
func MatchesInclude(relPath string, patterns []string) bool {
	return len(patterns) == 0 || matchesAny(relPath, patterns)
}

// MatchesExclude reports whether relPath matches one of patterns. An empty
// pattern list excludes nothing.
func MatchesExclude(relPath string, patterns []string) bool {
	return len(patterns) > 0 && matchesAny(relPath, patterns)
}

// matchesAny tries each pattern against the whole slash path and then
// against its base name, so "*.pdf" matches at any depth.
func matchesAny(relPath string, patterns []string) bool {
	base := path.Base(relPath)
	for _, p := range patterns {
		if doublestar.MatchUnvalidated(p, relPath) || doublestar.MatchUnvalidated(p, base) {
			return true
		}
	}
	return false
}

// gitignore is a root .gitignore compiled to doublestar globs. Negation
// patterns are not supported.
type gitignore []string

func loadGitignore(file string) gitignore {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil
	}

	var globs gitignore
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		dirOnly := strings.HasSuffix(line, "/")
		p := strings.TrimSuffix(line, "/")
		if !strings.Contains(p, "/") {
			// Unanchored: matches at any depth.
			p = "**/" + p
		}
		p = strings.TrimPrefix(p, "/")
		if !dirOnly {
			globs = append(globs, p)
		}
		globs = append(globs, p+"/**")
	}
	return globs
}

func (g gitignore) matches(relPath string) bool {
	for _, glob := range g {
		if doublestar.MatchUnvalidated(glob, relPath) {
			return true
		}
	}
	return false
}
