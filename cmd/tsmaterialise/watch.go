package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsmaterialise/tsmaterialise/internal/config"
	"github.com/tsmaterialise/tsmaterialise/internal/runner"
	"github.com/tsmaterialise/tsmaterialise/internal/watcher"
)

type watchOptions struct {
	buildOptions
	exec string
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a source file changes",
		Long: `Run a build, then poll the project for TypeScript changes and rebuild
incrementally. Edits to the tsconfig or the tsmaterialise config also trigger
a rebuild. Failed builds are reported and the watch continues.

With --exec (or watch.exec in the config) the given shell command is started
after the first successful build and restarted after every later one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.exec, "exec", "", "shell command to restart after each successful build")
	return cmd
}

func (a *app) watch(ctx context.Context, opts watchOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	execCmd := opts.exec
	if execCmd == "" {
		execCmd = cfg.Watch.Exec
	}
	var proc *runner.Runner
	if execCmd != "" {
		proc = runner.Shell(execCmd, runner.WithDir(a.cwd), runner.WithOutput(a.stdout, a.stderr))
		defer proc.Stop()
	}

	state := &buildState{}
	rebuild := func() {
		if _, err := a.build(cfg, opts.buildOptions, state); err != nil {
			if !errors.Is(err, errReported) {
				fmt.Fprintf(a.stderr, "error: %v\n", err)
			}
			a.logf("build failed, waiting for changes...")
			return
		}
		if proc == nil {
			return
		}
		a.logf("starting: %s", execCmd)
		if err := proc.Restart(); err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
		}
	}

	a.logf("performing initial build...")
	rebuild()

	var skip []string
	if state.outDir != "" {
		skip = append(skip, state.outDir)
	}
	if cfg.SourceOut != "" {
		skip = append(skip, a.abs(cfg.SourceOut))
	}
	tsconfig := a.abs(opts.project)
	projectDir := filepath.Dir(tsconfig)

	w := watcher.New([]string{projectDir}, watcher.Options{
		Debounce:     time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		PollInterval: time.Duration(cfg.Watch.PollMs) * time.Millisecond,
		SkipPaths:    skip,
		Files:        a.watchedConfigs(tsconfig),
	}, func(events []watcher.Event) {
		events = ignoreOutputs(events, state.outDir)
		if len(events) == 0 {
			return
		}
		a.logf("\ndetected %d change(s), rebuilding...", len(events))
		// Pick up config edits too; a broken config keeps the previous one.
		if next, err := a.loadConfig(); err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
		} else {
			cfg = next
		}
		rebuild()
	})

	a.logf("watching for changes...")
	if err := w.Watch(ctx); err != nil {
		return err
	}
	a.logf("\nshutting down...")
	return nil
}

// watchedConfigs returns the tsconfig and the tool's config file. Without
// --config every discoverable name is watched, so creating a config also
// triggers a rebuild.
func (a *app) watchedConfigs(tsconfig string) []string {
	files := []string{tsconfig}
	if a.configPath != "" {
		return append(files, a.abs(a.configPath))
	}
	for _, name := range config.FileNames {
		files = append(files, filepath.Join(a.cwd, name))
	}
	return files
}

// ignoreOutputs drops events under outDir, which can move after a tsconfig
// edit.
func ignoreOutputs(events []watcher.Event, outDir string) []watcher.Event {
	if outDir == "" {
		return events
	}
	prefix := outDir + string(filepath.Separator)
	kept := events[:0]
	for _, e := range events {
		if !strings.HasPrefix(e.Path, prefix) {
			kept = append(kept, e)
		}
	}
	return kept
}
