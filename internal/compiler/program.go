package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	shimincremental "github.com/microsoft/typescript-go/shim/execute/incremental"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
	"github.com/microsoft/typescript-go/shim/vfs"
	"github.com/microsoft/typescript-go/shim/vfs/cachedvfs"
	"github.com/microsoft/typescript-go/shim/vfs/osvfs"
)

// CreateDefaultFS returns the OS file system with the bundled lib.d.ts files
// layered on top. Reads are cached, so a rebuild needs a fresh FS to see
// edited files.
func CreateDefaultFS() vfs.FS {
	return bundled.WrapFS(cachedvfs.From(osvfs.FS()))
}

// CreateDefaultHost returns a compiler host rooted at cwd.
func CreateDefaultHost(cwd string, fs vfs.FS) shimcompiler.CompilerHost {
	return shimcompiler.NewCompilerHost(cwd, fs, bundled.LibPath(), nil, nil)
}

// Diagnostic is a tsconfig or program-level problem that stops the pipeline
// before any checking happens.
type Diagnostic struct {
	FilePath string
	Message  string
}

func (d Diagnostic) String() string {
	if d.FilePath != "" {
		return fmt.Sprintf("%s: %s", d.FilePath, d.Message)
	}
	return d.Message
}

// ParseTSConfig parses a tsconfig file, following extends chains.
// Options in overrides win over the file's own, as command line flags do.
func ParseTSConfig(fs vfs.FS, cwd string, tsconfigPath string, host shimcompiler.CompilerHost, overrides *core.CompilerOptions) (*tsoptions.ParsedCommandLine, []Diagnostic, error) {
	resolved := tspath.ResolvePath(cwd, tsconfigPath)
	if !fs.FileExists(resolved) {
		return nil, nil, fmt.Errorf("could not find tsconfig at %v", resolved)
	}
	if overrides == nil {
		overrides = &core.CompilerOptions{}
	}

	parsed, diagnostics := tsoptions.GetParsedCommandLineOfConfigFile(tsconfigPath, overrides, nil, host, nil)
	if len(diagnostics) > 0 {
		return nil, convertDiagnostics(diagnostics), nil
	}
	if parsed != nil && len(parsed.Errors) > 0 {
		return nil, convertDiagnostics(parsed.Errors), nil
	}
	return parsed, nil, nil
}

// CreateProgramFromConfig creates and binds a program. Compiler options may
// be adjusted on parsedConfig beforehand, e.g. to set an inferred rootDir.
func CreateProgramFromConfig(singleThreaded bool, parsedConfig *tsoptions.ParsedCommandLine, host shimcompiler.CompilerHost) (*shimcompiler.Program, []Diagnostic, error) {
	opts := shimcompiler.ProgramOptions{
		Config:                      parsedConfig,
		SingleThreaded:              core.TSTrue,
		Host:                        host,
		UseSourceOfProjectReference: true,
	}
	if !singleThreaded {
		opts.SingleThreaded = core.TSFalse
	}

	program := shimcompiler.NewProgram(opts)
	if program == nil {
		return nil, nil, errors.New("failed to create program")
	}
	if diags := program.GetProgramDiagnostics(); len(diags) > 0 {
		return nil, convertDiagnostics(diags), nil
	}
	program.BindSourceFiles()
	return program, nil, nil
}

// EmitResult is the outcome of an emit.
type EmitResult struct {
	EmittedFiles []string
	Diagnostics  []*ast.Diagnostic
	EmitSkipped  bool
}

// EmitProgram emits every file of program. A non-nil writeFile receives each
// output instead of the host, which is how outputs get rewritten.
func EmitProgram(program *shimcompiler.Program, writeFile shimcompiler.WriteFile) *EmitResult {
	result := program.Emit(context.Background(), shimcompiler.EmitOptions{WriteFile: writeFile})
	return &EmitResult{
		EmittedFiles: result.EmittedFiles,
		Diagnostics:  result.Diagnostics,
		EmitSkipped:  result.EmitSkipped,
	}
}

// GatherDiagnostics collects config, syntactic, program, option, global and
// semantic diagnostics in the order tsc reports them. With noCheck only
// syntax errors are collected and no checker is created.
func GatherDiagnostics(program *shimcompiler.Program, noCheck bool) []*ast.Diagnostic {
	ctx := context.Background()
	if noCheck {
		return shimcompiler.Program_GetSyntacticDiagnostics(program, ctx, nil)
	}
	return shimcompiler.GetDiagnosticsOfAnyProgram(
		ctx,
		program,
		nil, // all files
		false,
		// Binding already happened in CreateProgramFromConfig.
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic { return nil },
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			return shimcompiler.Program_GetSemanticDiagnostics(program, ctx, file)
		},
	)
}

// CreateIncrementalProgram wraps program with incremental state taken from
// oldProgram. When oldProgram is nil and resume is set, state is read from
// the project's .tsbuildinfo instead; without resume every file is emitted.
func CreateIncrementalProgram(
	program *shimcompiler.Program,
	oldProgram *shimincremental.Program,
	host shimcompiler.CompilerHost,
	parsedConfig *tsoptions.ParsedCommandLine,
	resume bool,
) *shimincremental.Program {
	if !resume {
		oldProgram = nil
	} else if oldProgram == nil {
		reader := shimincremental.NewBuildInfoReader(host)
		// Still nil when there is no .tsbuildinfo yet.
		oldProgram = shimincremental.ReadBuildInfoProgram(parsedConfig, reader, host)
	}
	return shimincremental.NewProgram(program, oldProgram, shimincremental.CreateHost(host), false)
}

// EmitIncrementalProgram emits the files that changed since the previous
// state and updates .tsbuildinfo.
func EmitIncrementalProgram(incrProgram *shimincremental.Program, writeFile shimcompiler.WriteFile) *EmitResult {
	result := incrProgram.Emit(context.Background(), shimcompiler.EmitOptions{WriteFile: writeFile})
	return &EmitResult{
		EmittedFiles: result.EmittedFiles,
		Diagnostics:  result.Diagnostics,
		EmitSkipped:  result.EmitSkipped,
	}
}

// GatherIncrementalDiagnostics is GatherDiagnostics for an incremental
// program. Semantic results of unaffected files come from the cached state.
func GatherIncrementalDiagnostics(incrProgram *shimincremental.Program, noCheck bool) []*ast.Diagnostic {
	ctx := context.Background()
	if noCheck {
		return incrProgram.GetSyntacticDiagnostics(ctx, nil)
	}
	return shimcompiler.GetDiagnosticsOfAnyProgram(
		ctx,
		incrProgram,
		nil,
		false,
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			return incrProgram.GetBindDiagnostics(ctx, file)
		},
		func(ctx context.Context, file *ast.SourceFile) []*ast.Diagnostic {
			return incrProgram.GetSemanticDiagnostics(ctx, file)
		},
	)
}

// GetSourceFiles returns the program's source files, without declaration
// files.
func GetSourceFiles(program *shimcompiler.Program) []*ast.SourceFile {
	var files []*ast.SourceFile
	for _, f := range program.GetSourceFiles() {
		if !f.IsDeclarationFile {
			files = append(files, f)
		}
	}
	return files
}

func convertDiagnostics(tsdiags []*ast.Diagnostic) []Diagnostic {
	diags := make([]Diagnostic, len(tsdiags))
	for i, d := range tsdiags {
		if d.File() != nil {
			diags[i].FilePath = d.File().FileName()
		}
		diags[i].Message = d.String()
	}
	return diags
}

// FormatDiagnostics renders diags one per line.
func FormatDiagnostics(diags []Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}
