package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"

	"github.com/tsmaterialise/tsmaterialise/materialise"
)

// FileNames are the config files Discover looks for, in order.
var FileNames = []string{
	"tsmaterialise.config.json",
	"tsmaterialise.config.yaml",
	"tsmaterialise.config.yml",
}

// Config represents the tsmaterialise configuration.
type Config struct {
	// MarkerProperty is the property whose presence on a callee's type makes
	// the call eligible for rewriting.
	MarkerProperty string `json:"markerProperty,omitempty" yaml:"markerProperty,omitempty"`

	// Include and Exclude select the source files that are scanned, relative
	// to the project directory.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// SourceOut is where the rewrite command writes rewritten TypeScript.
	SourceOut string `json:"sourceOut,omitempty" yaml:"sourceOut,omitempty"`

	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Watch   WatchConfig   `json:"watch" yaml:"watch"`

	// Path is the file the config was loaded from; empty for defaults.
	Path string `json:"-" yaml:"-"`
}

// RuntimeConfig controls the generated JavaScript runtime module.
type RuntimeConfig struct {
	Emit             bool   `json:"emit,omitempty" yaml:"emit,omitempty"`
	Path             string `json:"path,omitempty" yaml:"path,omitempty"` // relative to outDir
	StrictValidation bool   `json:"strictValidation,omitempty" yaml:"strictValidation,omitempty"`
	// Module is the import specifier that emitted files are redirected away
	// from, towards the generated runtime, when Emit is set.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
}

// WatchConfig holds the watch command's timings in milliseconds.
type WatchConfig struct {
	DebounceMs int `json:"debounceMs,omitempty" yaml:"debounceMs,omitempty"`
	PollMs     int `json:"pollMs,omitempty" yaml:"pollMs,omitempty"`
	// Exec is a shell command restarted after every successful build.
	Exec string `json:"exec,omitempty" yaml:"exec,omitempty"`
}

const (
	DefaultRuntimePath   = "_tsmaterialise_runtime.js"
	DefaultRuntimeModule = "tsmaterialise"
	DefaultDebounceMs    = 200
	DefaultPollMs        = 500
)

// DefaultInclude matches every TypeScript source file.
var DefaultInclude = []string{"**/*.ts", "**/*.tsx", "**/*.mts", "**/*.cts"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills fields left unset by a config file.
func (c *Config) applyDefaults() {
	if c.MarkerProperty == "" {
		c.MarkerProperty = materialise.MarkerProperty
	}
	if c.Include == nil {
		c.Include = append([]string(nil), DefaultInclude...)
	}
	if c.Runtime.Path == "" {
		c.Runtime.Path = DefaultRuntimePath
	}
	if c.Runtime.Module == "" {
		c.Runtime.Module = DefaultRuntimeModule
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = DefaultDebounceMs
	}
	if c.Watch.PollMs == 0 {
		c.Watch.PollMs = DefaultPollMs
	}
}

// Load reads and parses a config file. The format follows the extension:
// .yaml and .yml are YAML, anything else is JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config, json.RejectUnknownMembers(true))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	config.applyDefaults()
	config.Path = path

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", path, err)
	}

	return &config, nil
}

// Discover returns the first config file from FileNames present in dir, or ""
// if there is none.
func Discover(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadOrDiscover loads path when it is set. Otherwise it discovers a config
// file in dir and falls back to DefaultConfig when there is none.
func LoadOrDiscover(path, dir string) (*Config, error) {
	if path == "" {
		path = Discover(dir)
	}
	if path == "" {
		c := DefaultConfig()
		return &c, nil
	}
	return Load(path)
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.MarkerProperty) == "" {
		errs = append(errs, errors.New("markerProperty must not be empty"))
	}
	if len(c.Include) == 0 {
		errs = append(errs, errors.New("include must have at least one pattern"))
	}
	if p := c.Runtime.Path; p != "" {
		if filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(p)), "../") {
			errs = append(errs, fmt.Errorf("runtime.path must be relative to the output directory, got %q", p))
		}
		switch filepath.Ext(p) {
		case ".js", ".mjs", ".cjs":
		default:
			errs = append(errs, fmt.Errorf("runtime.path must end in .js, .mjs or .cjs, got %q", p))
		}
	}
	if c.Watch.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("watch.debounceMs must not be negative, got %d", c.Watch.DebounceMs))
	}
	if c.Watch.PollMs < 0 {
		errs = append(errs, fmt.Errorf("watch.pollMs must not be negative, got %d", c.Watch.PollMs))
	}
	return errors.Join(errs...)
}
