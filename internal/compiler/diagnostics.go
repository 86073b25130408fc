package compiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/mattn/go-isatty"
	"github.com/microsoft/typescript-go/shim/ast"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"
)

// DiagnosticCategory is the numeric category of a compiler diagnostic.
type DiagnosticCategory int

const (
	CategoryWarning    DiagnosticCategory = 0
	CategoryError      DiagnosticCategory = 1
	CategorySuggestion DiagnosticCategory = 2
	CategoryMessage    DiagnosticCategory = 3
)

func categoryOf(d *ast.Diagnostic) DiagnosticCategory {
	return DiagnosticCategory(ast.Diagnostic_Category(d))
}

func (c DiagnosticCategory) Name() string {
	switch c {
	case CategoryError:
		return "error"
	case CategoryWarning:
		return "warning"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	}
	return "unknown"
}

const (
	ansiReset  = "\u001b[0m"
	ansiRed    = "\u001b[91m"
	ansiYellow = "\u001b[93m"
	ansiBlue   = "\u001b[94m"
	ansiCyan   = "\u001b[96m"
	ansiGrey   = "\u001b[90m"
	ansiGutter = "\u001b[7m"
)

func (c DiagnosticCategory) color() string {
	switch c {
	case CategoryError:
		return ansiRed
	case CategoryWarning:
		return ansiYellow
	case CategorySuggestion:
		return ansiGrey
	case CategoryMessage:
		return ansiBlue
	}
	return ""
}

// DiagnosticReporter writes one diagnostic.
type DiagnosticReporter func(d *ast.Diagnostic)

// IsPrettyOutput reports whether diagnostics should be colored and carry
// source snippets. NO_COLOR and FORCE_COLOR win over terminal detection.
func IsPrettyOutput() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// CreateDiagnosticReporter returns a reporter printing file names relative to
// cwd. Plain output is tsc's "file(line,col): error TS1234: message"; pretty
// output adds colors and the offending source lines.
func CreateDiagnosticReporter(w io.Writer, cwd string, pretty bool) DiagnosticReporter {
	return func(d *ast.Diagnostic) {
		cat := categoryOf(d)
		file := d.File()
		if !pretty {
			if file != nil {
				line, char := shimscanner.GetECMALineAndCharacterOfPosition(file, d.Pos())
				fmt.Fprintf(w, "%s(%d,%d): ", relativePath(file.FileName(), cwd), line+1, char+1)
			}
			fmt.Fprintf(w, "%s TS%d: %s\n", cat.Name(), d.Code(), d.String())
			return
		}

		if file != nil {
			line, char := shimscanner.GetECMALineAndCharacterOfPosition(file, d.Pos())
			fmt.Fprintf(w, "%s%s%s:%s%d%s:%s%d%s - ",
				ansiCyan, relativePath(file.FileName(), cwd), ansiReset,
				ansiYellow, line+1, ansiReset,
				ansiYellow, char+1, ansiReset)
		}
		fmt.Fprintf(w, "%s%s%s %sTS%d:%s %s\n",
			cat.color(), cat.Name(), ansiReset, ansiGrey, d.Code(), ansiReset, d.String())
		if file != nil && d.Len() > 0 {
			snippet{file: file, start: d.Pos(), end: d.Pos() + d.Len(), color: cat.color()}.write(w)
		}
		fmt.Fprintln(w)
	}
}

// snippet is a span of a source file printed with a line-number gutter and
// underlined with tildes.
type snippet struct {
	file       *ast.SourceFile
	start, end int
	color      string
}

// maxSnippetLines is how many lines a snippet shows before eliding its
// middle.
const maxSnippetLines = 5

func (s snippet) write(w io.Writer) {
	text := s.file.Text()
	first, firstChar := shimscanner.GetECMALineAndCharacterOfPosition(s.file, s.start)
	last, lastChar := shimscanner.GetECMALineAndCharacterOfPosition(s.file, s.end)
	lastOfFile := shimscanner.GetECMALineOfPosition(s.file, len(text))

	elide := last-first >= maxSnippetLines-1
	width := len(strconv.Itoa(last + 1))
	if elide {
		width = max(width, len("..."))
	}
	gutter := func(label string) {
		fmt.Fprintf(w, "%s%*s%s ", ansiGutter, width, label, ansiReset)
	}

	for i := first; i <= last; i++ {
		if elide && i > first+1 && i < last-1 {
			gutter("...")
			fmt.Fprintln(w)
			i = last - 1
		}

		from := shimscanner.GetECMAPositionOfLineAndCharacter(s.file, i, 0)
		to := len(text)
		if i < lastOfFile {
			to = shimscanner.GetECMAPositionOfLineAndCharacter(s.file, i+1, 0)
		}
		content := strings.TrimRightFunc(text[from:to], unicode.IsSpace)
		content = strings.ReplaceAll(content, "\t", " ")

		gutter(strconv.Itoa(i + 1))
		fmt.Fprintln(w, content)

		var lead, length int
		switch i {
		case first:
			lead = firstChar
			length = len(content) - firstChar
			if i == last {
				length = lastChar - firstChar
			}
			length = max(length, 1)
		case last:
			length = lastChar
		default:
			length = len(content)
		}
		gutter("")
		fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", lead), s.color, strings.Repeat("~", length), ansiReset)
	}
}

// WriteErrorSummary writes tsc's closing "Found N errors" line. Only error
// diagnostics are counted.
func WriteErrorSummary(w io.Writer, diags []*ast.Diagnostic, cwd string) {
	var firstErr *ast.Diagnostic
	count := 0
	files := make(map[string]struct{})
	for _, d := range diags {
		if categoryOf(d) != CategoryError {
			continue
		}
		count++
		if firstErr == nil {
			firstErr = d
		}
		if d.File() != nil {
			files[d.File().FileName()] = struct{}{}
		}
	}
	if count == 0 {
		return
	}

	var at string
	if f := firstErr.File(); f != nil {
		line := shimscanner.GetECMALineOfPosition(f, firstErr.Pos())
		at = fmt.Sprintf("%s%s:%d%s", relativePath(f.FileName(), cwd), ansiGrey, line+1, ansiReset)
	}

	fmt.Fprintln(w)
	switch {
	case count == 1 && at != "":
		fmt.Fprintf(w, "Found 1 error in %s\n", at)
	case count == 1:
		fmt.Fprintln(w, "Found 1 error.")
	case len(files) <= 1 && at != "":
		fmt.Fprintf(w, "Found %d errors in the same file, starting at: %s\n", count, at)
	case len(files) <= 1:
		fmt.Fprintf(w, "Found %d errors.\n", count)
	default:
		fmt.Fprintf(w, "Found %d errors in %d files.\n", count, len(files))
	}
	fmt.Fprintln(w)
}

// CountErrors returns the number of error diagnostics.
func CountErrors(diags []*ast.Diagnostic) int {
	count := 0
	for _, d := range diags {
		if categoryOf(d) == CategoryError {
			count++
		}
	}
	return count
}

func relativePath(path string, cwd string) string {
	if cwd == "" {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil {
		return rel
	}
	return path
}
