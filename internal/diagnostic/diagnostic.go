package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsmaterialise/tsmaterialise/internal/extract"
	"github.com/tsmaterialise/tsmaterialise/internal/rewrite"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Category classifies diagnostics for filtering.
type Category string

const (
	CategoryCallArity          Category = "call-arity"
	CategoryTypeUnclassifiable Category = "type-unclassifiable"
	CategoryLiteralValue       Category = "literal-value"
	CategoryEmitMismatch       Category = "emit-mismatch"
	CategoryConfigInvalid      Category = "config-invalid"
	CategoryBuild              Category = "build"
)

// Diagnostic represents a structured diagnostic message.
type Diagnostic struct {
	Severity Severity
	Category Category
	File     string // source file path
	Line     int    // 1-based line number (0 = unknown)
	Column   int    // 1-based column number (0 = unknown)
	Message  string
	Hint     string // optional suggestion for fixing the issue
}

// String renders d as "file:line:col - severity: [category] message", with
// the hint on a second line.
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.File != "" {
		sb.WriteString(d.File)
		switch {
		case d.Line > 0 && d.Column > 0:
			fmt.Fprintf(&sb, ":%d:%d", d.Line, d.Column)
		case d.Line > 0:
			fmt.Fprintf(&sb, ":%d", d.Line)
		}
		sb.WriteString(" - ")
	}
	fmt.Fprintf(&sb, "%s: ", d.Severity)
	if d.Category != "" {
		fmt.Fprintf(&sb, "[%s] ", d.Category)
	}
	sb.WriteString(d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&sb, "\n  hint: %s", d.Hint)
	}
	return sb.String()
}

// FromError converts a build failure into a diagnostic. Rewriter and
// extractor errors keep their call-site location; anything else becomes an
// uncategorised build error.
func FromError(err error) Diagnostic {
	d := Diagnostic{Severity: SeverityError, Category: CategoryBuild, Message: err.Error()}

	var arity *rewrite.CallSiteArityError
	var extraction *rewrite.ExtractionError
	var mismatch *rewrite.EmitMismatchError
	switch {
	case errors.As(err, &arity):
		d.setLocation(arity.Location)
		d.Category = CategoryCallArity
		d.Message = fmt.Sprintf("%s: expected exactly one type argument, found %d", arity.Call, arity.Count)
		d.Hint = "pass the type to reify as the only type argument, e.g. fn<User>(...)"
	case errors.As(err, &extraction):
		d.setLocation(extraction.Location)
		d.Message = fmt.Sprintf("%s: %v", extraction.Call, extraction.Err)
		var literal *extract.LiteralValueMissingError
		if errors.As(err, &literal) {
			d.Category = CategoryLiteralValue
		} else {
			d.Category = CategoryTypeUnclassifiable
		}
	case errors.As(err, &mismatch):
		d.File = mismatch.OutputFile
		d.Category = CategoryEmitMismatch
		d.Hint = "calls are matched by name in emitted output; avoid calling a marked function through an alias or mentioning it as name( in strings or comments"
	}
	return d
}

func (d *Diagnostic) setLocation(loc rewrite.Location) {
	d.File = loc.File
	d.Line = loc.Line
	d.Column = loc.Column
}

// Collector gathers the diagnostics of one build. A nil Collector discards
// everything.
type Collector struct {
	diagnostics []Diagnostic
	counts      [SeverityError + 1]int
	quiet       bool
}

// NewCollector returns a collector. In quiet mode warnings are dropped.
func NewCollector(quiet bool) *Collector {
	return &Collector{quiet: quiet}
}

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	if c == nil || (c.quiet && d.Severity == SeverityWarning) {
		return
	}
	c.diagnostics = append(c.diagnostics, d)
	c.counts[d.Severity]++
}

// AddError records err via FromError. Errors joined with errors.Join are
// recorded one by one.
func (c *Collector) AddError(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			c.AddError(e)
		}
		return
	}
	c.Add(FromError(err))
}

// Warn records a warning.
func (c *Collector) Warn(category Category, file string, line int, message string) {
	c.Add(Diagnostic{Severity: SeverityWarning, Category: category, File: file, Line: line, Message: message})
}

// Error records an error.
func (c *Collector) Error(category Category, file string, line int, message string) {
	c.Add(Diagnostic{Severity: SeverityError, Category: category, File: file, Line: line, Message: message})
}

// Diagnostics returns everything recorded, in order.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	return c.diagnostics
}

func (c *Collector) HasErrors() bool { return c.ErrorCount() > 0 }

func (c *Collector) ErrorCount() int {
	if c == nil {
		return 0
	}
	return c.counts[SeverityError]
}

func (c *Collector) WarningCount() int {
	if c == nil {
		return 0
	}
	return c.counts[SeverityWarning]
}

// FormatAll renders every diagnostic, one per line.
func (c *Collector) FormatAll() string {
	var sb strings.Builder
	for _, d := range c.Diagnostics() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary counts the diagnostics, as in "1 error(s), 2 warning(s)".
func (c *Collector) Summary() string {
	if c == nil {
		return ""
	}
	var parts []string
	if n := c.ErrorCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", n))
	}
	if n := c.WarningCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", n))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
