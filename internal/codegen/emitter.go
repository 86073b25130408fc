// Package codegen generates the JavaScript runtime module that rewritten calls
// import at run time, together with its type declarations.
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// Emitter accumulates JavaScript source, two spaces per nesting level.
type Emitter struct {
	buf   strings.Builder
	depth int
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) put(text string) {
	if text != "" {
		e.buf.WriteString(strings.Repeat("  ", e.depth))
		e.buf.WriteString(text)
	}
	e.buf.WriteByte('\n')
}

// Line writes one formatted line at the current depth.
func (e *Emitter) Line(format string, args ...any) {
	e.put(fmt.Sprintf(format, args...))
}

// Blank writes an empty line.
func (e *Emitter) Blank() {
	e.put("")
}

// Block writes a line ending in " {" and nests what follows.
func (e *Emitter) Block(format string, args ...any) {
	e.put(fmt.Sprintf(format, args...) + " {")
	e.depth++
}

// Close ends the innermost block with "}" followed by suffix, such as ";"
// or ");".
func (e *Emitter) Close(suffix string) {
	e.depth = max(e.depth-1, 0)
	e.put("}" + suffix)
}

// Chain ends the innermost block and opens a sibling on the same line:
// Chain("else") writes "} else {".
func (e *Emitter) Chain(head string) {
	e.Close(" " + head + " {")
	e.depth++
}

// String returns the source written so far.
func (e *Emitter) String() string {
	return e.buf.String()
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf, jsontext.EscapeForJS(true))
	if err := enc.WriteToken(jsontext.String(s)); err != nil {
		// Only invalid UTF-8 can fail; fall back to the replacement form.
		return jsString(strings.ToValidUTF8(s, "\uFFFD"))
	}
	return strings.TrimRight(buf.String(), "\n")
}
