package compiler

import (
	"path/filepath"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
)

var outputExtensions = []struct{ src, out string }{
	{".d.ts", ""},
	{".d.mts", ""},
	{".d.cts", ""},
	{".tsx", ".js"},
	{".mts", ".mjs"},
	{".cts", ".cjs"},
	{".ts", ".js"},
}

// OutputPath maps a source file to the JavaScript file the emitter writes
// for it. Files outside rootDir keep their base name under outDir; with no
// outDir the output sits next to the source. Declaration files map to "".
func OutputPath(srcPath, rootDir, outDir string) string {
	base := srcPath
	outExt := ""
	matched := false
	for _, e := range outputExtensions {
		if strings.HasSuffix(base, e.src) {
			if e.out == "" {
				return ""
			}
			base = base[:len(base)-len(e.src)]
			outExt = e.out
			matched = true
			break
		}
	}
	if !matched {
		return ""
	}

	if outDir == "" {
		return base + outExt
	}
	if rootDir != "" {
		rel, err := filepath.Rel(rootDir, base)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(filepath.Join(outDir, rel)) + outExt
		}
	}
	return filepath.ToSlash(filepath.Join(outDir, filepath.Base(base))) + outExt
}

// SourceToOutputMap maps every non-declaration source file of program to its
// expected JavaScript output.
func SourceToOutputMap(program *shimcompiler.Program, rootDir, outDir string) map[string]string {
	result := make(map[string]string)
	for _, sf := range GetSourceFiles(program) {
		if out := OutputPath(sf.FileName(), rootDir, outDir); out != "" {
			result[sf.FileName()] = out
		}
	}
	return result
}

// InferRootDir computes the common root directory from a list of source file paths.
// Returns "" if no common prefix can be determined.
func InferRootDir(fileNames []string) string {
	if len(fileNames) == 0 {
		return ""
	}

	common := filepath.Dir(fileNames[0])
	if common == "." {
		return ""
	}

	for _, f := range fileNames[1:] {
		dir := filepath.Dir(f)
		for dir != common && !strings.HasPrefix(dir, common+"/") && common != "." && common != "/" {
			common = filepath.Dir(common)
		}
		if common == "." || common == "/" {
			return ""
		}
	}

	return common
}

// FilterSourceFiles returns the files accepted by keep.
func FilterSourceFiles(files []*ast.SourceFile, keep func(fileName string) bool) []*ast.SourceFile {
	var out []*ast.SourceFile
	for _, sf := range files {
		if keep(sf.FileName()) {
			out = append(out, sf)
		}
	}
	return out
}
