package rewrite

import (
	"bytes"
	"slices"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
)

// QuoteJS quotes s as a double-quoted string literal that is valid both as
// JSON and as JavaScript (U+2028 and U+2029 are escaped).
func QuoteJS(s string) (string, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf, jsontext.EscapeForJS(true))
	if err := enc.WriteToken(jsontext.String(s)); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// insertion is text to splice in at an offset.
type insertion struct {
	pos  int
	text string
}

// argumentText returns what is inserted after the opening parenthesis.
func argumentText(literal string, hasArgs bool) string {
	if hasArgs {
		return literal + ", "
	}
	return literal
}

// splice applies insertions to text. Insertions at the same offset keep
// their relative order.
func splice(text string, ins []insertion) string {
	if len(ins) == 0 {
		return text
	}
	sorted := slices.Clone(ins)
	slices.SortStableFunc(sorted, func(a, b insertion) int { return a.pos - b.pos })

	var b strings.Builder
	b.Grow(len(text) + len(sorted)*64)
	last := 0
	for _, in := range sorted {
		b.WriteString(text[last:in.pos])
		b.WriteString(in.text)
		last = in.pos
	}
	b.WriteString(text[last:])
	return b.String()
}

// ApplySource rewrites TypeScript source text: each injected call gets its
// encoded literal as a new first argument. Type arguments are left alone.
func ApplySource(text string, injections []*Injection) string {
	ins := make([]insertion, 0, len(injections))
	for _, inj := range injections {
		ins = append(ins, insertion{pos: inj.ArgsPos, text: argumentText(inj.Literal, inj.HasArgs)})
	}
	return splice(text, ins)
}

// RewriteSource is ApplySource over a scanned file.
func (fr *FileResult) RewriteSource() string {
	return ApplySource(fr.Text, fr.Injections)
}
