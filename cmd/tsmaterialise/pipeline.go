package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"

	"github.com/tsmaterialise/tsmaterialise/internal/buildcache"
	"github.com/tsmaterialise/tsmaterialise/internal/compiler"
	"github.com/tsmaterialise/tsmaterialise/internal/config"
	"github.com/tsmaterialise/tsmaterialise/internal/diagnostic"
	"github.com/tsmaterialise/tsmaterialise/internal/rewrite"
)

// errReported is returned once diagnostics have already been printed, so
// main only sets the exit code.
var errReported = errors.New("build failed")

// TimingReport collects timing data for each pipeline phase.
type TimingReport struct {
	TSConfig    time.Duration
	Program     time.Duration
	Diagnostics time.Duration
	Scan        time.Duration
	Emit        time.Duration
	Runtime     time.Duration
	Total       time.Duration
}

// Print writes the timing breakdown to w.
func (t *TimingReport) Print(w io.Writer) {
	fmt.Fprintf(w, "\n--- timing ---\n")
	fmt.Fprintf(w, "  tsconfig:      %s\n", t.TSConfig.Round(time.Millisecond))
	fmt.Fprintf(w, "  program:       %s\n", t.Program.Round(time.Millisecond))
	fmt.Fprintf(w, "  diagnostics:   %s\n", t.Diagnostics.Round(time.Millisecond))
	fmt.Fprintf(w, "  scan:          %s\n", t.Scan.Round(time.Millisecond))
	fmt.Fprintf(w, "  emit:          %s\n", t.Emit.Round(time.Millisecond))
	fmt.Fprintf(w, "  runtime:       %s\n", t.Runtime.Round(time.Millisecond))
	fmt.Fprintf(w, "  total:         %s\n", t.Total.Round(time.Millisecond))
}

// logf prints a progress line to stderr unless --quiet is set.
func (a *app) logf(format string, args ...any) {
	if a.quiet {
		return
	}
	fmt.Fprintf(a.stderr, format+"\n", args...)
}

func (a *app) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cwd, p)
}

func (a *app) rel(p string) string {
	if r, err := filepath.Rel(a.cwd, p); err == nil {
		return r
	}
	return p
}

// loadConfig loads --config, or discovers a config file in the working
// directory. Validation warnings are printed, errors are fatal.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDiscover(a.abs(a.configPath), a.cwd)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		a.logf("loaded config from %s", a.rel(cfg.Path))
	}

	diags := diagnostic.NewCollector(a.quiet)
	for _, w := range cfg.ValidateDetailed().Warnings {
		diags.Warn(diagnostic.CategoryConfigInvalid, a.rel(cfg.Path), 0, w)
	}
	fmt.Fprint(a.stderr, diags.FormatAll())
	return cfg, nil
}

// project is a parsed tsconfig with its program.
type project struct {
	ConfigPath string

	// Dir is the directory of the tsconfig; include and exclude patterns
	// are relative to it.
	Dir     string
	RootDir string
	OutDir  string

	FS      vfs.FS
	Host    shimcompiler.CompilerHost
	Parsed  *tsoptions.ParsedCommandLine
	Program *shimcompiler.Program
}

// loadProject parses tsconfigPath and creates its program. A fresh file
// system is used on every call so that watch rebuilds see edited files.
func (a *app) loadProject(tsconfigPath string, timing *TimingReport) (*project, error) {
	start := time.Now()
	configPath := tspath.NormalizePath(a.abs(tsconfigPath))
	p := &project{ConfigPath: configPath, Dir: filepath.Dir(configPath)}
	p.FS = compiler.CreateDefaultFS()
	p.Host = compiler.CreateDefaultHost(p.Dir, p.FS)

	a.logf("compiling with tsconfig: %s", a.rel(configPath))
	parsed, diags, err := compiler.ParseTSConfig(p.FS, p.Dir, configPath, p.Host, nil)
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		fmt.Fprint(a.stderr, compiler.FormatDiagnostics(diags))
		return nil, errReported
	}
	p.Parsed = parsed

	opts := parsed.CompilerOptions()
	// Without an explicit rootDir, use the common directory of the inputs so
	// outputs land flat under outDir, the way tsc lays them out.
	if opts.RootDir == "" && opts.OutDir != "" {
		if inferred := compiler.InferRootDir(parsed.FileNames()); inferred != "" {
			a.logf("inferred rootDir: %s", a.rel(inferred))
			opts.RootDir = inferred
		}
	}
	p.RootDir = opts.RootDir
	if opts.OutDir != "" {
		p.OutDir = tspath.ResolvePath(p.Dir, opts.OutDir)
	}
	timing.TSConfig += time.Since(start)

	start = time.Now()
	program, programDiags, err := compiler.CreateProgramFromConfig(true, parsed, p.Host)
	if err != nil {
		return nil, err
	}
	if len(programDiags) > 0 {
		fmt.Fprint(a.stderr, compiler.FormatDiagnostics(programDiags))
		return nil, errReported
	}
	p.Program = program
	timing.Program += time.Since(start)
	return p, nil
}

// runtimeDir is where runtime.path is resolved: outDir, or the project
// directory when outputs sit next to their sources.
func (p *project) runtimeDir() string {
	if p.OutDir != "" {
		return p.OutDir
	}
	return p.Dir
}

// selected reports whether fileName is picked by the config's include and
// exclude patterns.
func (p *project) selected(cfg *config.Config, fileName string) bool {
	rel, err := filepath.Rel(p.Dir, fileName)
	if err != nil {
		return false
	}
	return cfg.Matches(rel)
}

// scan finds every eligible call in the selected source files. Scan errors
// are added to diags; results are returned for the files that scanned
// cleanly.
func (a *app) scan(p *project, cfg *config.Config, diags *diagnostic.Collector) map[string]*rewrite.FileResult {
	checker, release := shimcompiler.Program_GetTypeChecker(p.Program, context.Background())
	defer release()

	r := rewrite.New(checker, rewrite.WithMarkerProperty(cfg.MarkerProperty))
	files := compiler.FilterSourceFiles(compiler.GetSourceFiles(p.Program), func(name string) bool {
		return p.selected(cfg, name)
	})

	results := make(map[string]*rewrite.FileResult, len(files))
	for _, sf := range files {
		fr, err := r.ScanFile(sf)
		if err != nil {
			diags.AddError(err)
			continue
		}
		results[sf.FileName()] = fr
	}
	return results
}

// rewriteSettings are the config fields that affect emitted output.
func rewriteSettings(cfg *config.Config) any {
	return struct {
		MarkerProperty string
		Include        []string
		Exclude        []string
		Runtime        config.RuntimeConfig
	}{cfg.MarkerProperty, cfg.Include, cfg.Exclude, cfg.Runtime}
}

// injectionDigests maps each file with rewritten calls to a digest of what
// it received. The digest changes when an edit elsewhere changes a reified
// type, even though the file itself did not change.
func injectionDigests(results map[string]*rewrite.FileResult) (map[string]string, error) {
	digests := make(map[string]string)
	for name, fr := range results {
		if !fr.HasInjections() {
			continue
		}
		calls := make([]string, 0, 2*len(fr.Injections))
		for _, inj := range fr.Injections {
			calls = append(calls, inj.Callee, inj.Encoded)
		}
		digest, err := buildcache.Hash(calls)
		if err != nil {
			return nil, err
		}
		digests[name] = digest
	}
	return digests, nil
}

// countInjections returns the number of rewritten calls and the files
// containing them.
func countInjections(results map[string]*rewrite.FileResult) (calls, files int) {
	for _, fr := range results {
		if fr.HasInjections() {
			calls += len(fr.Injections)
			files++
		}
	}
	return calls, files
}
