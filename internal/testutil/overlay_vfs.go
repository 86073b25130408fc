// Package testutil builds typescript-go programs from inline sources for
// tests. Sources live in an in-memory overlay and emitted output is captured
// in memory instead of being written to disk.
package testutil

import (
	"io/fs"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/microsoft/typescript-go/shim/bundled"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
	"github.com/microsoft/typescript-go/shim/vfs/osvfs"
)

// OverlayVFS layers in-memory files over a base filesystem. Reads prefer the
// overlay. Writes land in the overlay too, so a test can read back what the
// emitter produced.
type OverlayVFS struct {
	base vfs.FS

	mu    sync.RWMutex
	files map[string]string
	// written records paths created through WriteFile.
	written map[string]bool
}

var _ vfs.FS = (*OverlayVFS)(nil)

// NewOverlayVFS creates an overlay over baseFS.
func NewOverlayVFS(baseFS vfs.FS, files map[string]string) *OverlayVFS {
	return &OverlayVFS{
		base:    baseFS,
		files:   maps.Clone(files),
		written: map[string]bool{},
	}
}

// NewDefaultOverlayVFS layers files over the OS filesystem with the bundled
// TypeScript lib files available.
func NewDefaultOverlayVFS(files map[string]string) *OverlayVFS {
	return NewOverlayVFS(bundled.WrapFS(osvfs.FS()), files)
}

// Written returns the contents of every file written through the overlay,
// keyed by path.
func (o *OverlayVFS) Written() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]string, len(o.written))
	for path := range o.written {
		out[path] = o.files[path]
	}
	return out
}

// WrittenPaths returns written paths in sorted order.
func (o *OverlayVFS) WrittenPaths() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Sorted(maps.Keys(o.written))
}

func (o *OverlayVFS) lookup(path string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	src, ok := o.files[path]
	return src, ok
}

func dirPrefix(path string) string {
	p := tspath.NormalizePath(path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (o *OverlayVFS) UseCaseSensitiveFileNames() bool {
	return o.base.UseCaseSensitiveFileNames()
}

func (o *OverlayVFS) FileExists(path string) bool {
	if _, ok := o.lookup(path); ok {
		return true
	}
	return o.base.FileExists(path)
}

func (o *OverlayVFS) ReadFile(path string) (string, bool) {
	if src, ok := o.lookup(path); ok {
		return src, true
	}
	return o.base.ReadFile(path)
}

func (o *OverlayVFS) DirectoryExists(path string) bool {
	prefix := dirPrefix(path)
	o.mu.RLock()
	for p := range o.files {
		if strings.HasPrefix(p, prefix) {
			o.mu.RUnlock()
			return true
		}
	}
	o.mu.RUnlock()
	return o.base.DirectoryExists(path)
}

func (o *OverlayVFS) GetAccessibleEntries(path string) vfs.Entries {
	result := o.base.GetAccessibleEntries(path)
	prefix := dirPrefix(path)

	seenDirs := map[string]bool{}
	for _, d := range result.Directories {
		seenDirs[d] = true
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for p := range o.files {
		rest, found := strings.CutPrefix(p, prefix)
		if !found {
			continue
		}
		if dir, _, nested := strings.Cut(rest, "/"); nested {
			if !seenDirs[dir] {
				seenDirs[dir] = true
				result.Directories = append(result.Directories, dir)
			}
		} else {
			result.Files = append(result.Files, rest)
		}
	}
	return result
}

type overlayFileInfo struct {
	name string
	size int64
}

var (
	_ fs.FileInfo = (*overlayFileInfo)(nil)
	_ fs.DirEntry = (*overlayFileInfo)(nil)
)

func (fi *overlayFileInfo) IsDir() bool                { return false }
func (fi *overlayFileInfo) ModTime() time.Time         { return time.Time{} }
func (fi *overlayFileInfo) Mode() fs.FileMode          { return 0o644 }
func (fi *overlayFileInfo) Name() string               { return fi.name }
func (fi *overlayFileInfo) Size() int64                { return fi.size }
func (fi *overlayFileInfo) Sys() any                   { return nil }
func (fi *overlayFileInfo) Info() (fs.FileInfo, error) { return fi, nil }
func (fi *overlayFileInfo) Type() fs.FileMode          { return 0 }

func (o *OverlayVFS) Stat(path string) vfs.FileInfo {
	if src, ok := o.lookup(path); ok {
		return &overlayFileInfo{name: path, size: int64(len(src))}
	}
	return o.base.Stat(path)
}

func (o *OverlayVFS) WalkDir(root string, walkFn vfs.WalkDirFunc) error {
	return o.base.WalkDir(root, walkFn)
}

func (o *OverlayVFS) Realpath(path string) string {
	if _, ok := o.lookup(path); ok {
		return path
	}
	return o.base.Realpath(path)
}

// WriteFile stores data in the overlay. The base filesystem is never written.
func (o *OverlayVFS) WriteFile(path string, data string, writeByteOrderMark bool) error {
	if writeByteOrderMark {
		data = "\uFEFF" + data
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[path] = data
	o.written[path] = true
	return nil
}

func (o *OverlayVFS) Remove(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.files[path]; ok {
		delete(o.files, path)
		delete(o.written, path)
		return nil
	}
	return o.base.Remove(path)
}

func (o *OverlayVFS) Chtimes(path string, aTime time.Time, mTime time.Time) error {
	if _, ok := o.lookup(path); ok {
		return nil
	}
	return o.base.Chtimes(path, aTime, mTime)
}
