package testutil

import (
	"context"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
)

// DefaultTSConfig is written when a test does not provide its own tsconfig.json.
const DefaultTSConfig = `{
  "compilerOptions": {
    "target": "es2022",
    "module": "esnext",
    "moduleResolution": "bundler",
    "strict": true,
    "outDir": "dist",
    "rootDir": "src"
  },
  "include": ["src"]
}
`

// ProgramEnv holds a program built from in-memory sources.
type ProgramEnv struct {
	RootDir string
	Program *shimcompiler.Program
	Checker *shimchecker.Checker
	Host    shimcompiler.CompilerHost
	FS      *OverlayVFS
}

// NewProgram builds a single-threaded program from files, keyed by path
// relative to a fresh temporary project directory. Checker release is
// registered with t.Cleanup.
func NewProgram(t testing.TB, files map[string]string) *ProgramEnv {
	t.Helper()

	rootDir := tspath.NormalizePath(t.TempDir())
	virtualFiles := make(map[string]string, len(files)+1)
	for name, src := range files {
		virtualFiles[tspath.ResolvePath(rootDir, name)] = src
	}
	configPath := tspath.ResolvePath(rootDir, "tsconfig.json")
	if _, ok := virtualFiles[configPath]; !ok {
		virtualFiles[configPath] = DefaultTSConfig
	}

	fs := NewDefaultOverlayVFS(virtualFiles)
	host := shimcompiler.NewCompilerHost(rootDir, fs, bundled.LibPath(), nil, nil)

	configParseResult, diags := tsoptions.GetParsedCommandLineOfConfigFile(
		"tsconfig.json", &core.CompilerOptions{}, nil, host, nil,
	)
	if len(diags) > 0 {
		t.Fatalf("tsconfig parse errors: %v", diags[0].String())
	}

	program := shimcompiler.NewProgram(shimcompiler.ProgramOptions{
		Config:                      configParseResult,
		SingleThreaded:              core.TSTrue,
		Host:                        host,
		UseSourceOfProjectReference: true,
	})
	if program == nil {
		t.Fatal("failed to create program")
	}
	program.BindSourceFiles()

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		t.Fatal("failed to get type checker")
	}
	t.Cleanup(release)

	return &ProgramEnv{
		RootDir: rootDir,
		Program: program,
		Checker: checker,
		Host:    host,
		FS:      fs,
	}
}

// SourceFile returns the named file, failing the test if it is missing.
func (env *ProgramEnv) SourceFile(t testing.TB, name string) *ast.SourceFile {
	t.Helper()
	sf := env.Program.GetSourceFile(tspath.ResolvePath(env.RootDir, name))
	if sf == nil {
		t.Fatalf("source file %q not found in program", name)
	}
	return sf
}

// DeclaredType resolves an exported type alias, interface, class or enum by
// name in sf.
func (env *ProgramEnv) DeclaredType(t testing.TB, sf *ast.SourceFile, name string) *shimchecker.Type {
	t.Helper()
	for _, stmt := range sf.Statements.Nodes {
		switch stmt.Kind {
		case ast.KindTypeAliasDeclaration:
			decl := stmt.AsTypeAliasDeclaration()
			if decl.Name().Text() == name {
				return shimchecker.Checker_getTypeFromTypeNode(env.Checker, decl.Type)
			}
		case ast.KindInterfaceDeclaration:
			if typ := env.declaredTypeOf(stmt.AsInterfaceDeclaration().Name(), name); typ != nil {
				return typ
			}
		case ast.KindClassDeclaration:
			if typ := env.declaredTypeOf(stmt.AsClassDeclaration().Name(), name); typ != nil {
				return typ
			}
		case ast.KindEnumDeclaration:
			if typ := env.declaredTypeOf(stmt.AsEnumDeclaration().Name(), name); typ != nil {
				return typ
			}
		}
	}
	t.Fatalf("type %q not found in %s", name, sf.FileName())
	return nil
}

func (env *ProgramEnv) declaredTypeOf(declName *ast.Node, want string) *shimchecker.Type {
	if declName == nil || declName.Text() != want {
		return nil
	}
	sym := env.Checker.GetSymbolAtLocation(declName)
	if sym == nil {
		return nil
	}
	return shimchecker.Checker_getDeclaredTypeOfSymbol(env.Checker, sym)
}
