package rewrite

import (
	"path/filepath"
	"regexp"
	"strings"
)

// RuntimeImport redirects imports of the runtime package to an emitted
// runtime module, so the output runs without the package installed.
type RuntimeImport struct {
	// ModuleName is the specifier to replace, e.g. "tsmaterialise".
	ModuleName string
	// Path is the absolute path of the emitted runtime module.
	Path string
}

// relativeImportPath computes the import specifier from an output JS file to
// target.
// fromFile: "/abs/dist/user/user.service.js"
// target: "/abs/dist/_tsmaterialise_runtime.js"
// gives "../_tsmaterialise_runtime.js"
func relativeImportPath(fromFile, target string) string {
	rel, err := filepath.Rel(filepath.Dir(fromFile), target)
	if err != nil {
		return target
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// apply rewrites `from "<module>"`, `import("<module>")` and
// `require("<module>")` specifiers in text.
func (ri *RuntimeImport) apply(text, outputFile string) string {
	if ri == nil || ri.ModuleName == "" || ri.Path == "" {
		return text
	}
	quoted := regexp.QuoteMeta(ri.ModuleName)
	re := regexp.MustCompile(`(\bfrom\s*|\brequire\(\s*|\bimport\(\s*)(["'])` + quoted + `(["'])`)
	rel := relativeImportPath(outputFile, ri.Path)
	return re.ReplaceAllStringFunc(text, func(m string) string {
		sub := re.FindStringSubmatch(m)
		if sub[2] != sub[3] {
			return m
		}
		return sub[1] + sub[2] + rel + sub[3]
	})
}
