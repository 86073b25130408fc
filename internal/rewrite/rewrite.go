package rewrite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
)

// RewriteContext holds what the WriteFile callback needs to rewrite emitted
// files. Output is buffered and only written by Flush, so a failure in any
// file leaves the output directory untouched.
type RewriteContext struct {
	// Files maps source file path to scan result.
	Files map[string]*FileResult

	// OutputToSource maps emitted JS path to source file path.
	OutputToSource map[string]string

	// Runtime optionally redirects runtime package imports.
	Runtime *RuntimeImport

	// WriteFile writes one file. Defaults to writing to disk.
	WriteFile func(fileName, text string, bom bool) error

	mu       sync.Mutex
	pending  []pendingFile
	errs     []error
	rewrites int
}

type pendingFile struct {
	name string
	text string
	bom  bool
}

// MakeWriteFile returns a WriteFile callback for program emit. JavaScript
// outputs of scanned files get their calls rewritten; everything is buffered.
func (ctx *RewriteContext) MakeWriteFile() shimcompiler.WriteFile {
	return func(fileName string, text string, bom bool, data *shimcompiler.WriteFileData) error {
		if isJSOutput(fileName) {
			rewritten, changed, err := ctx.rewriteOutput(fileName, text)
			if err != nil {
				ctx.mu.Lock()
				ctx.errs = append(ctx.errs, err)
				ctx.mu.Unlock()
				return nil
			}
			text = rewritten
			if changed {
				ctx.mu.Lock()
				ctx.rewrites++
				ctx.mu.Unlock()
			}
		}

		ctx.mu.Lock()
		ctx.pending = append(ctx.pending, pendingFile{name: fileName, text: text, bom: bom})
		ctx.mu.Unlock()
		return nil
	}
}

func (ctx *RewriteContext) rewriteOutput(fileName, text string) (string, bool, error) {
	out := text
	if fr, ok := ctx.Files[ctx.OutputToSource[fileName]]; ok && fr.HasInjections() {
		var err error
		out, err = rewriteEmitted(out, fileName, fr)
		if err != nil {
			return "", false, err
		}
	}
	out = ctx.Runtime.apply(out, fileName)
	return out, out != text, nil
}

// Err returns the rewrite errors collected during emit.
func (ctx *RewriteContext) Err() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return errors.Join(ctx.errs...)
}

// RewrittenFiles returns how many emitted files were changed.
func (ctx *RewriteContext) RewrittenFiles() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.rewrites
}

// Flush writes every buffered file, or nothing if any rewrite failed.
// It returns the written paths in order.
func (ctx *RewriteContext) Flush() ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	write := ctx.WriteFile
	if write == nil {
		write = writeFileToDisk
	}

	ctx.mu.Lock()
	pending := slices.Clone(ctx.pending)
	ctx.pending = nil
	ctx.mu.Unlock()

	slices.SortFunc(pending, func(a, b pendingFile) int { return strings.Compare(a.name, b.name) })
	written := make([]string, 0, len(pending))
	for _, f := range pending {
		if err := write(f.name, f.text, f.bom); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.name, err)
		}
		written = append(written, f.name)
	}
	return written, nil
}

func isJSOutput(fileName string) bool {
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(fileName, ext) {
			return true
		}
	}
	return false
}

// writeFileToDisk writes a file to disk, creating parent directories as needed.
// This replicates the default behavior of the compiler host's WriteFile.
func writeFileToDisk(fileName string, text string, writeByteOrderMark bool) error {
	dir := filepath.Dir(fileName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	content := text
	if writeByteOrderMark {
		content = "\xEF\xBB\xBF" + content
	}

	return os.WriteFile(fileName, []byte(content), 0644)
}

// BuildOutputToSourceMap creates the reverse mapping from output file paths
// to source file paths.
func BuildOutputToSourceMap(sourceToOutput map[string]string) map[string]string {
	result := make(map[string]string, len(sourceToOutput))
	for src, out := range sourceToOutput {
		result[out] = src
	}
	return result
}

// DetectModuleFormat detects whether the output uses ESM or CJS based on
// tsconfig module setting. Accepts tsconfig spellings ("commonjs"), the
// checker's enum names ("ModuleKindCommonJS") and its numeric value.
// Returns "esm" or "cjs".
func DetectModuleFormat(moduleKind string) string {
	kind := strings.ToLower(moduleKind)
	switch {
	case kind == "cjs", kind == "1", strings.HasSuffix(kind, "commonjs"):
		return "cjs"
	default:
		return "esm"
	}
}
