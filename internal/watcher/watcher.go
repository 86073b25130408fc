// Package watcher polls project directories for TypeScript source changes
// and individual files such as configs.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Event represents a file change event.
type Event struct {
	Path string
	Op   string // "create", "write", "remove"
}

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultDebounce     = 200 * time.Millisecond
)

// DefaultExtensions are the TypeScript source extensions.
var DefaultExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{"node_modules", ".git"}

// Options configures a Watcher. Zero values select the defaults.
type Options struct {
	Extensions   []string
	Debounce     time.Duration
	PollInterval time.Duration
	// SkipDirs lists directory base names to ignore.
	SkipDirs []string
	// SkipPaths lists absolute directories to ignore, typically the build's
	// output directory.
	SkipPaths []string
	// Files lists extra files watched whatever their extension. A file that
	// does not exist yet produces a create event when it appears.
	Files []string
}

// Watcher watches directories for file changes using a polling approach.
type Watcher struct {
	dirs     []string
	opts     Options
	onChange func(events []Event)
}

// New creates a new file watcher. onChange runs on the goroutine that called
// Watch, so calls never overlap.
func New(dirs []string, opts Options, onChange func(events []Event)) *Watcher {
	if opts.Extensions == nil {
		opts.Extensions = DefaultExtensions
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SkipDirs == nil {
		opts.SkipDirs = DefaultSkipDirs
	}
	return &Watcher{dirs: dirs, opts: opts, onChange: onChange}
}

// Watch polls until ctx is done. Changes are collected until no new change
// has been seen for the debounce interval, then delivered in one batch.
func (w *Watcher) Watch(ctx context.Context) error {
	snapshot := w.buildSnapshot()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var pending []Event
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			next := w.buildSnapshot()
			if events := w.diff(snapshot, next); len(events) > 0 {
				pending = append(pending, events...)
				debounce = time.After(w.opts.Debounce)
			}
			snapshot = next
		case <-debounce:
			debounce = nil
			batch := pending
			pending = nil
			if w.onChange != nil {
				w.onChange(batch)
			}
		}
	}
}

type fileInfo struct {
	modTime time.Time
	size    int64
}

func (w *Watcher) skipDir(path, name string) bool {
	if slices.Contains(w.opts.SkipDirs, name) {
		return true
	}
	for _, p := range w.opts.SkipPaths {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) buildSnapshot() map[string]fileInfo {
	snap := make(map[string]fileInfo)
	for _, dir := range w.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != dir && w.skipDir(path, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !slices.Contains(w.opts.Extensions, filepath.Ext(path)) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			snap[path] = fileInfo{modTime: info.ModTime(), size: info.Size()}
			return nil
		})
	}
	for _, path := range w.opts.Files {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			snap[path] = fileInfo{modTime: info.ModTime(), size: info.Size()}
		}
	}
	return snap
}

// diff returns events sorted by path.
func (w *Watcher) diff(old, new map[string]fileInfo) []Event {
	var events []Event

	for path, newInfo := range new {
		if oldInfo, ok := old[path]; ok {
			if !newInfo.modTime.Equal(oldInfo.modTime) || newInfo.size != oldInfo.size {
				events = append(events, Event{Path: path, Op: "write"})
			}
		} else {
			events = append(events, Event{Path: path, Op: "create"})
		}
	}

	for path := range old {
		if _, ok := new[path]; !ok {
			events = append(events, Event{Path: path, Op: "remove"})
		}
	}

	slices.SortFunc(events, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return events
}
