package config

import (
	"fmt"
	"strings"

	"github.com/tsmaterialise/tsmaterialise/materialise"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

var sourceExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

func looksLikeSourcePattern(pattern string) bool {
	if strings.Contains(pattern, "*") {
		return true
	}
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(pattern, ext) {
			return true
		}
	}
	return false
}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}

	if err := c.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			result.Errors = append(result.Errors, line)
		}
	}

	for _, pattern := range c.Include {
		if !looksLikeSourcePattern(pattern) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("include: pattern %q has no wildcard or TypeScript extension; did you mean %q?", pattern, strings.TrimSuffix(pattern, "/")+"/**/*.ts"))
		}
	}
	for _, pattern := range c.Exclude {
		if !looksLikeSourcePattern(pattern) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("exclude: pattern %q has no wildcard or TypeScript extension and only excludes that exact file", pattern))
		}
	}

	if c.Runtime.StrictValidation && !c.Runtime.Emit {
		result.Warnings = append(result.Warnings,
			"runtime.strictValidation has no effect unless runtime.emit is enabled")
	}
	if c.MarkerProperty != materialise.MarkerProperty && !c.Runtime.Emit {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("markerProperty %q differs from the default; make sure your declarations carry it or enable runtime.emit", c.MarkerProperty))
	}

	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}
