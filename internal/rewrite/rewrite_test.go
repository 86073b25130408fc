package rewrite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsmaterialise/tsmaterialise/internal/compiler"
	"github.com/tsmaterialise/tsmaterialise/internal/testutil"
)

func TestWriteFileToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "test.js")

	err := writeFileToDisk(path, "console.log('hello');", false)
	if err != nil {
		t.Fatalf("writeFileToDisk failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(content) != "console.log('hello');" {
		t.Errorf("unexpected content: %s", string(content))
	}
}

func TestWriteFileToDisk_BOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bom.js")

	if err := writeFileToDisk(path, "test", true); err != nil {
		t.Fatalf("writeFileToDisk failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if !strings.HasPrefix(string(content), "\xEF\xBB\xBF") {
		t.Error("expected BOM prefix")
	}
}

func TestBuildOutputToSourceMap(t *testing.T) {
	result := BuildOutputToSourceMap(map[string]string{
		"/src/user.ts": "/dist/user.js",
	})
	if src, ok := result["/dist/user.js"]; !ok || src != "/src/user.ts" {
		t.Errorf("expected /dist/user.js to map to /src/user.ts, got: %v", result)
	}
}

func TestDetectModuleFormat(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"commonjs", "cjs"},
		{"CommonJS", "cjs"},
		{"ModuleKindCommonJS", "cjs"},
		{"1", "cjs"},
		{"esnext", "esm"},
		{"ModuleKindNodeNext", "esm"},
		{"", "esm"},
	}
	for _, tt := range tests {
		if got := DetectModuleFormat(tt.input); got != tt.expected {
			t.Errorf("DetectModuleFormat(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

const emitMain = `import { withType } from "./lib";

interface Point {
  x: number;
  y: number;
}

const show = withType((type, label: string) => label + type.str);

export function run(): string {
  return show<Point>("p: ");
}
`

func emitWithRewrite(t *testing.T, files map[string]string) (*RewriteContext, *testutil.ProgramEnv) {
	t.Helper()
	env := testutil.NewProgram(t, files)

	results := map[string]*FileResult{}
	r := New(env.Checker)
	for _, sf := range compiler.GetSourceFiles(env.Program) {
		fr, err := r.ScanFile(sf)
		if err != nil {
			t.Fatalf("ScanFile(%s): %v", sf.FileName(), err)
		}
		results[sf.FileName()] = fr
	}

	rootDir := env.RootDir + "/src"
	outDir := env.RootDir + "/dist"
	ctx := &RewriteContext{
		Files:          results,
		OutputToSource: BuildOutputToSourceMap(compiler.SourceToOutputMap(env.Program, rootDir, outDir)),
		WriteFile: func(fileName, text string, bom bool) error {
			return env.FS.WriteFile(fileName, text, bom)
		},
	}
	compiler.EmitProgram(env.Program, ctx.MakeWriteFile())
	return ctx, env
}

func TestEmitRewritesCalls(t *testing.T) {
	ctx, env := emitWithRewrite(t, map[string]string{
		"src/lib.ts":  libSource,
		"src/main.ts": emitMain,
	})
	if err := ctx.Err(); err != nil {
		t.Fatalf("rewrite errors: %v", err)
	}
	if len(env.FS.Written()) != 0 {
		t.Fatal("nothing should be written before Flush")
	}
	written, err := ctx.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(written) == 0 {
		t.Fatal("no files written")
	}

	out, ok := env.FS.Written()[env.RootDir+"/dist/main.js"]
	if !ok {
		t.Fatalf("dist/main.js not written; got %v", env.FS.WrittenPaths())
	}
	if !strings.HasPrefix(out, rewriteSentinel) {
		t.Error("missing sentinel")
	}
	if !strings.Contains(out, `show("[{`) || !strings.Contains(out, `, "p: ")`) {
		t.Errorf("call not rewritten:\n%s", out)
	}
	if ctx.RewrittenFiles() != 1 {
		t.Errorf("RewrittenFiles() = %d, want 1", ctx.RewrittenFiles())
	}

	lib := env.FS.Written()[env.RootDir+"/dist/lib.js"]
	if strings.Contains(lib, rewriteSentinel) {
		t.Error("lib.js has no calls and should not be rewritten")
	}
}

func TestEmitMismatchWritesNothing(t *testing.T) {
	ctx, env := emitWithRewrite(t, map[string]string{
		"src/lib.ts":  libSource,
		"src/main.ts": emitMain,
	})

	// Simulate an emitted file that lost its call site.
	fr := ctx.Files[env.RootDir+"/src/main.ts"]
	if _, err := rewriteEmitted("export {};\n", env.RootDir+"/dist/main.js", fr); err == nil {
		t.Fatal("expected mismatch error")
	}

	ctx.errs = append(ctx.errs, &EmitMismatchError{OutputFile: "x.js", Callee: "show", Want: 1})
	if _, err := ctx.Flush(); err == nil {
		t.Fatal("Flush() should fail when a rewrite failed")
	}
	if n := len(env.FS.Written()); n != 0 {
		t.Errorf("%d files written despite errors", n)
	}
}
