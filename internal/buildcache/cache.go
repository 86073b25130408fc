// Package buildcache records how an output directory was last rewritten.
//
// An incremental emit only writes files whose sources changed. That is only
// correct while every other output would be rewritten identically: under the
// same settings, and with the same encoded types at every call, which can
// change when a type in another file is edited. A stamp saved next to the
// outputs lets a later build decide whether it may resume incrementally or
// must emit everything again.
package buildcache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/zeebo/xxh3"
)

// SchemaVersion is bumped when the stamp format or the rewrite output
// changes, so that upgrading forces a full emit.
const SchemaVersion = 1

// FileName is the stamp's name inside the output directory.
const FileName = ".tsmaterialise-cache"

// Cache is the on-disk stamp.
type Cache struct {
	V int `json:"v"`

	// SettingsHash is the digest of the effective rewrite settings.
	SettingsHash string `json:"settingsHash"`

	// Outputs are generated files, such as the runtime module, that must
	// still exist for the stamp to hold.
	Outputs []string `json:"outputs,omitempty"`

	// Injections maps each source file with rewritten calls to a digest of
	// the encoded types it received.
	Injections map[string]string `json:"injections,omitempty"`
}

// CachePath returns where the stamp for a build lives. It sits inside outDir
// so that deleting the output directory also discards it. Without an outDir
// it is a sibling of the tsconfig: "tsconfig.build.json" becomes
// "tsconfig.build.tsmaterialise-cache".
func CachePath(outDir string, tsconfigPath string) string {
	if outDir != "" {
		return filepath.Join(outDir, FileName)
	}
	dir := filepath.Dir(tsconfigPath)
	name := strings.TrimSuffix(filepath.Base(tsconfigPath), ".json")
	return filepath.Join(dir, name+FileName)
}

// Load reads a stamp. Any failure yields nil, which callers treat as a miss.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

// Save writes the stamp atomically (write to temp, rename).
func Save(path string, cache *Cache) error {
	data, err := json.Marshal(cache, json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes the stamp. A missing file is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsValid reports whether outputs stamped by c may be kept: the schema
// version and settings hash match, and every recorded output still exists.
func (c *Cache) IsValid(settingsHash string) bool {
	if c == nil || c.V != SchemaVersion || c.SettingsHash != settingsHash {
		return false
	}
	for _, path := range c.Outputs {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// Hash returns the 128-bit XXH3 hex digest of v's JSON encoding. Map keys
// are sorted so equal values always hash the same.
func Hash(v any) (string, error) {
	data, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return "", fmt.Errorf("hashing %T: %w", v, err)
	}
	h := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(h[:]), nil
}

// New creates a stamp with the current schema version.
func New(settingsHash string, outputs []string) *Cache {
	return &Cache{
		V:            SchemaVersion,
		SettingsHash: settingsHash,
		Outputs:      outputs,
	}
}
