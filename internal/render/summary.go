package render

import (
	"fmt"
	"strings"

	"github.com/tsmaterialise/tsmaterialise/reify"
)

// Summary renders an indented outline of t, one line per node. A node that
// was already printed is not expanded again: it is marked (cycle) when it
// is an ancestor of the current line and (shared) otherwise.
func Summary(t *reify.Type) string {
	s := &summarizer{printed: map[*reify.Type]bool{}, onPath: map[*reify.Type]bool{}}
	s.write("", 0, t)
	return s.b.String()
}

type summarizer struct {
	b       strings.Builder
	printed map[*reify.Type]bool
	onPath  map[*reify.Type]bool
}

func label(t *reify.Type) string {
	switch t.Type {
	case reify.TagBasic, reify.TagBuiltin:
		return fmt.Sprintf("%s %s", t.Type, t.Kind)
	case reify.TagLiteral:
		if s, ok := t.Value.(string); ok && t.Kind != reify.KindBigInt {
			return fmt.Sprintf("literal %s %q", t.Kind, s)
		}
		return fmt.Sprintf("literal %s %v", t.Kind, t.Value)
	case reify.TagObject:
		if t.HasCallSignature {
			return fmt.Sprintf("object %s (callable)", t.Str)
		}
		return fmt.Sprintf("object %s", t.Str)
	default:
		return fmt.Sprintf("%s %s", t.Type, t.Str)
	}
}

func (s *summarizer) write(prefix string, depth int, t *reify.Type) {
	s.b.WriteString(strings.Repeat("  ", depth))
	s.b.WriteString(prefix)
	if t == nil {
		s.b.WriteString("<missing>\n")
		return
	}
	s.b.WriteString(label(t))

	switch {
	case s.onPath[t]:
		s.b.WriteString(" (cycle)\n")
		return
	case s.printed[t]:
		s.b.WriteString(" (shared)\n")
		return
	}
	s.b.WriteByte('\n')
	s.printed[t] = true
	s.onPath[t] = true
	defer delete(s.onPath, t)

	if t.ItemsType != nil {
		s.write("items: ", depth+1, t.ItemsType)
	}
	for _, m := range t.Members {
		s.write(m.Name+": ", depth+1, m.Type)
	}
	for _, sig := range t.IndexSignatures {
		s.write("["+sig.KeyType+"]: ", depth+1, sig.ValueType)
	}
	sep := "| "
	if t.Type == reify.TagIntersection {
		sep = "& "
	}
	for _, c := range t.Types {
		s.write(sep, depth+1, c)
	}
}
