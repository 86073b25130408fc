package config

import (
	"path"
	"path/filepath"
	"strings"
)

// Matches reports whether a source file is selected by Include and not by
// Exclude. relPath is relative to the project directory.
func (c *Config) Matches(relPath string) bool {
	return MatchesGlob(relPath, c.Include, c.Exclude)
}

// MatchesGlob checks if a file path matches any of the include patterns
// and does not match any of the exclude patterns.
func MatchesGlob(filePath string, includePatterns []string, excludePatterns []string) bool {
	if len(includePatterns) == 0 {
		return false
	}

	filePath = strings.TrimPrefix(filepath.ToSlash(filePath), "./")

	for _, pattern := range excludePatterns {
		if globMatch(filePath, filepath.ToSlash(pattern)) {
			return false
		}
	}
	for _, pattern := range includePatterns {
		if globMatch(filePath, filepath.ToSlash(pattern)) {
			return true
		}
	}
	return false
}

// globMatch matches a slash-separated relative path against a pattern. "**"
// spans any number of directories, including none; other segments follow
// path.Match.
func globMatch(filePath, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, "./")
	if !strings.Contains(pattern, "**") {
		if matched, _ := path.Match(pattern, filePath); matched {
			return true
		}
		// A bare file pattern like "*.ts" matches at any depth.
		if !strings.Contains(pattern, "/") {
			matched, _ := path.Match(pattern, path.Base(filePath))
			return matched
		}
		return false
	}
	return matchSegments(strings.Split(filePath, "/"), strings.Split(pattern, "/"))
}

func matchSegments(parts, pats []string) bool {
	for len(pats) > 0 {
		if pats[0] == "**" {
			rest := pats[1:]
			for i := 0; i <= len(parts); i++ {
				if matchSegments(parts[i:], rest) {
					return true
				}
			}
			return false
		}
		if len(parts) == 0 {
			return false
		}
		if matched, _ := path.Match(pats[0], parts[0]); !matched {
			return false
		}
		parts, pats = parts[1:], pats[1:]
	}
	return len(parts) == 0
}
