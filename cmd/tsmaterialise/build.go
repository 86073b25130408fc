package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microsoft/typescript-go/shim/ast"
	shimincremental "github.com/microsoft/typescript-go/shim/execute/incremental"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tsmaterialise/tsmaterialise/internal/buildcache"
	"github.com/tsmaterialise/tsmaterialise/internal/codegen"
	"github.com/tsmaterialise/tsmaterialise/internal/compiler"
	"github.com/tsmaterialise/tsmaterialise/internal/config"
	"github.com/tsmaterialise/tsmaterialise/internal/diagnostic"
	"github.com/tsmaterialise/tsmaterialise/internal/rewrite"
)

type buildOptions struct {
	project string
	noCheck bool
	timing  bool
}

func (o *buildOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.project, "project", "p", "tsconfig.json", "path to tsconfig.json")
	cmd.Flags().BoolVar(&o.noCheck, "no-check", false, "report syntax errors only, skip type checking")
	cmd.Flags().BoolVar(&o.timing, "timing", false, "print a timing breakdown")
}

func newBuildCmd(a *app) *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the project and rewrite reifying calls",
		Long: `Compile the TypeScript project and, while emitting, rewrite every call to a
marked function so that it receives its type argument encoded as a string.

Any call that cannot be rewritten fails the build before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			_, err = a.build(cfg, opts, nil)
			return err
		},
	}
	opts.register(cmd)
	return cmd
}

// buildState carries the incremental program from one watch rebuild to the
// next.
type buildState struct {
	program *shimincremental.Program
	// settingsHash and digests describe how program's outputs were
	// rewritten.
	settingsHash string
	digests      map[string]string
	// outDir is the last known output directory, ignored by the watcher.
	outDir string
}

// build runs the whole pipeline once: tsconfig, program, scan, diagnostics,
// emit with rewriting, runtime module. When state is non-nil the program is
// incremental and state is updated for the next call.
func (a *app) build(cfg *config.Config, opts buildOptions, state *buildState) ([]string, error) {
	start := time.Now()
	timing := &TimingReport{}

	p, err := a.loadProject(opts.project, timing)
	if err != nil {
		return nil, err
	}

	settingsHash, err := buildcache.Hash(rewriteSettings(cfg))
	if err != nil {
		return nil, err
	}
	stampPath := buildcache.CachePath(p.OutDir, p.ConfigPath)

	scanStart := time.Now()
	diags := diagnostic.NewCollector(a.quiet)
	results := a.scan(p, cfg, diags)
	digests, err := injectionDigests(results)
	if err != nil {
		return nil, err
	}
	timing.Scan = time.Since(scanStart)

	var incr *shimincremental.Program
	if state != nil {
		state.outDir = p.OutDir
		// Resuming skips files whose own source is unchanged, so it is only
		// safe when every output would be rewritten exactly as before.
		prevSettings, prevDigests := state.settingsHash, state.digests
		if state.program == nil {
			if stamp := buildcache.Load(stampPath); stamp.IsValid(settingsHash) {
				prevSettings, prevDigests = stamp.SettingsHash, stamp.Injections
			}
		}
		resume := prevSettings == settingsHash && maps.Equal(prevDigests, digests)
		if !resume && state.program != nil {
			a.logf("rewrite settings or reified types changed, emitting all files")
		}
		incr = compiler.CreateIncrementalProgram(p.Program, state.program, p.Host, p.Parsed, resume)
	}

	diagStart := time.Now()
	var tsDiags []*ast.Diagnostic
	if incr != nil {
		tsDiags = compiler.GatherIncrementalDiagnostics(incr, opts.noCheck)
	} else {
		tsDiags = compiler.GatherDiagnostics(p.Program, opts.noCheck)
	}
	timing.Diagnostics = time.Since(diagStart)
	if a.reportTSDiagnostics(tsDiags) {
		return nil, errReported
	}
	if diags.HasErrors() {
		a.reportDiagnostics(diags)
		return nil, errReported
	}

	emitStart := time.Now()
	rc := &rewrite.RewriteContext{
		Files:          results,
		OutputToSource: rewrite.BuildOutputToSourceMap(compiler.SourceToOutputMap(p.Program, p.RootDir, p.OutDir)),
	}
	runtimePath := filepath.Join(p.runtimeDir(), cfg.Runtime.Path)
	if cfg.Runtime.Emit {
		rc.Runtime = &rewrite.RuntimeImport{ModuleName: cfg.Runtime.Module, Path: runtimePath}
	}

	var emitted *compiler.EmitResult
	if incr != nil {
		emitted = compiler.EmitIncrementalProgram(incr, rc.MakeWriteFile())
	} else {
		emitted = compiler.EmitProgram(p.Program, rc.MakeWriteFile())
	}
	if a.reportTSDiagnostics(emitted.Diagnostics) {
		return nil, errReported
	}
	if err := rc.Err(); err != nil {
		diags.AddError(err)
		a.reportDiagnostics(diags)
		return nil, errReported
	}
	if err := buildcache.Delete(stampPath); err != nil {
		return nil, err
	}
	written, err := rc.Flush()
	if err != nil {
		return nil, err
	}
	timing.Emit = time.Since(emitStart)

	runtimeStart := time.Now()
	if cfg.Runtime.Emit {
		format := runtimeFormat(runtimePath, fmt.Sprint(p.Parsed.CompilerOptions().Module))
		files := codegen.RuntimeFiles(runtimePath, codegen.RuntimeOptions{
			Format:         format,
			MarkerProperty: cfg.MarkerProperty,
			Strict:         cfg.Runtime.StrictValidation,
		})
		for _, f := range files {
			if err := writeFile(f.Path, f.Content); err != nil {
				return nil, err
			}
			written = append(written, f.Path)
		}
		a.logf("wrote runtime module %s (%s)", a.rel(runtimePath), format)
	}
	timing.Runtime = time.Since(runtimeStart)

	var stamped []string
	if cfg.Runtime.Emit {
		stamped = []string{runtimePath}
	}
	stamp := buildcache.New(settingsHash, stamped)
	stamp.Injections = digests
	if err := buildcache.Save(stampPath, stamp); err != nil {
		a.logf("warning: %v", err)
	}
	if state != nil {
		state.program = incr
		state.settingsHash = settingsHash
		state.digests = digests
	}

	if !a.quiet {
		calls, files := countInjections(results)
		pr := message.NewPrinter(language.English)
		pr.Fprintf(a.stderr, "rewrote %d call(s) in %d file(s)\n", calls, files)
		if len(written) > 0 {
			pr.Fprintf(a.stderr, "emitted %d file(s)\n", len(written))
		} else {
			fmt.Fprintln(a.stderr, "no files emitted")
		}
		fmt.Fprint(a.stderr, diags.FormatAll())
	}

	timing.Total = time.Since(start)
	if opts.timing {
		timing.Print(a.stderr)
	}
	return written, nil
}

// reportTSDiagnostics prints compiler diagnostics in tsc style and reports
// whether any of them is an error.
func (a *app) reportTSDiagnostics(diags []*ast.Diagnostic) bool {
	if len(diags) == 0 {
		return false
	}
	pretty := compiler.IsPrettyOutput()
	report := compiler.CreateDiagnosticReporter(a.stderr, a.cwd, pretty)
	for _, d := range diags {
		report(d)
	}
	if pretty {
		compiler.WriteErrorSummary(a.stderr, diags, a.cwd)
	}
	return compiler.CountErrors(diags) > 0
}

func (a *app) reportDiagnostics(diags *diagnostic.Collector) {
	fmt.Fprint(a.stderr, diags.FormatAll())
	fmt.Fprintln(a.stderr, diags.Summary())
}

// runtimeFormat picks the module system of the runtime file: its extension
// when that decides it, otherwise the project's module setting.
func runtimeFormat(path, moduleKind string) codegen.Format {
	switch {
	case strings.HasSuffix(path, ".mjs"):
		return codegen.FormatESM
	case strings.HasSuffix(path, ".cjs"):
		return codegen.FormatCJS
	}
	format, err := codegen.ParseFormat(rewrite.DetectModuleFormat(moduleKind))
	if err != nil {
		return codegen.FormatESM
	}
	return format
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
