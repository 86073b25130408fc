// Package rewrite injects encoded type graphs into calls of marked functions.
//
// A call `fn<T>(a, b)` is eligible when the static type of `fn` has the marker
// property. Eligible calls must carry exactly one type argument; T is
// extracted and encoded, and the encoded string becomes the new first
// argument: `fn<T>("<encoded>", a, b)`. The rewrite is applied either to the
// TypeScript source text or to the JavaScript produced by the emitter.
package rewrite

import (
	"slices"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"

	"github.com/tsmaterialise/tsmaterialise/internal/codec"
	"github.com/tsmaterialise/tsmaterialise/internal/extract"
	"github.com/tsmaterialise/tsmaterialise/reify"
)

// DefaultMarkerProperty is the property whose presence on a callee's type
// opts the callee into rewriting.
const DefaultMarkerProperty = "__ts-materialise_func"

// Injection is one rewritten call.
type Injection struct {
	Location
	// Callee is the trailing identifier of the callee expression
	// (`fn` for both `fn<T>()` and `lib.fn<T>()`); empty for other forms.
	Callee string
	// Call is the source text of the call, for diagnostics.
	Call string
	// NamePos is the offset of Callee in the source text.
	NamePos int
	// ArgsPos is the offset just after the opening parenthesis.
	ArgsPos int
	HasArgs bool

	Type    *reify.Type
	Encoded string
	// Literal is Encoded quoted as a JavaScript string literal.
	Literal string
}

// callSite is a source position where the emitter will print `name(`:
// a call, or a function-like declaration with a body.
type callSite struct {
	pos       int
	injection *Injection
}

// FileResult holds the injections found in one source file.
type FileResult struct {
	FileName   string
	Text       string
	Injections []*Injection

	// sites lists every call or function-like declaration per name, in
	// source order, for the names that have at least one injection.
	sites map[string][]callSite
}

// HasInjections reports whether the file needs rewriting.
func (fr *FileResult) HasInjections() bool {
	return fr != nil && len(fr.Injections) > 0
}

// Rewriter scans source files for eligible calls.
type Rewriter struct {
	checker *shimchecker.Checker
	types   extract.TypeSystem
	marker  string
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithMarkerProperty overrides DefaultMarkerProperty.
func WithMarkerProperty(name string) Option {
	return func(r *Rewriter) {
		if name != "" {
			r.marker = name
		}
	}
}

// WithTypeSystem replaces the checker-backed TypeSystem used for extraction.
func WithTypeSystem(ts extract.TypeSystem) Option {
	return func(r *Rewriter) {
		r.types = ts
	}
}

// New creates a Rewriter over checker.
func New(checker *shimchecker.Checker, opts ...Option) *Rewriter {
	r := &Rewriter{
		checker: checker,
		types:   extract.NewCheckerTypeSystem(checker),
		marker:  DefaultMarkerProperty,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MarkerProperty returns the marker property name in use.
func (r *Rewriter) MarkerProperty() string {
	return r.marker
}

// ScanFile finds and prepares every eligible call in sf. The first arity or
// extraction error aborts the scan.
func (r *Rewriter) ScanFile(sf *ast.SourceFile) (*FileResult, error) {
	s := &fileScan{
		r:          r,
		sf:         sf,
		text:       sf.Text(),
		candidates: map[string][]callSite{},
	}
	if err := s.visit(sf.AsNode(), false); err != nil {
		return nil, err
	}

	fr := &FileResult{
		FileName:   sf.FileName(),
		Text:       s.text,
		Injections: s.injections,
		sites:      map[string][]callSite{},
	}
	for _, inj := range s.injections {
		if inj.Callee == "" {
			continue
		}
		if _, done := fr.sites[inj.Callee]; done {
			continue
		}
		sites := s.candidates[inj.Callee]
		slices.SortFunc(sites, func(a, b callSite) int { return a.pos - b.pos })
		fr.sites[inj.Callee] = sites
	}
	return fr, nil
}

type fileScan struct {
	r          *Rewriter
	sf         *ast.SourceFile
	text       string
	injections []*Injection
	candidates map[string][]callSite
}

// visit walks node depth-first. inMatch is set below an eligible call: those
// subtrees are not rewritten, but their call sites are still recorded so the
// emitted output can be lined up.
func (s *fileScan) visit(node *ast.Node, inMatch bool) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case ast.KindCallExpression:
		call := node.AsCallExpression()
		name, namePos := calleeName(s.text, call.Expression)
		var inj *Injection
		if !inMatch && s.r.isEligible(call) {
			var err error
			inj, err = s.prepare(node, call, name, namePos)
			if err != nil {
				return err
			}
			s.injections = append(s.injections, inj)
		}
		if name != "" {
			s.candidates[name] = append(s.candidates[name], callSite{pos: namePos, injection: inj})
		}
		if inj != nil {
			inMatch = true
		}

	case ast.KindFunctionDeclaration, ast.KindFunctionExpression, ast.KindMethodDeclaration,
		ast.KindGetAccessor, ast.KindSetAccessor:
		if node.Body() != nil {
			if nameNode := node.Name(); nameNode != nil && nameNode.Kind == ast.KindIdentifier {
				name := nameNode.Text()
				s.candidates[name] = append(s.candidates[name], callSite{pos: skipTrivia(s.text, nameNode.Pos())})
			}
		}
	}

	var err error
	node.ForEachChild(func(child *ast.Node) bool {
		err = s.visit(child, inMatch)
		return err != nil
	})
	return err
}

// isEligible reports whether the callee's type carries the marker property.
func (r *Rewriter) isEligible(call *ast.CallExpression) bool {
	callee := call.Expression
	if callee == nil || callee.Kind == ast.KindImportKeyword || callee.Kind == ast.KindSuperKeyword {
		return false
	}
	t := r.checker.GetTypeAtLocation(callee)
	if t == nil {
		return false
	}
	return shimchecker.Checker_getPropertyOfType(r.checker, t, r.marker) != nil
}

func (s *fileScan) prepare(node *ast.Node, call *ast.CallExpression, name string, namePos int) (*Injection, error) {
	start := skipTrivia(s.text, node.Pos())
	loc := s.location(start)
	callText := compactCallText(s.text[start:node.End()])

	count := 0
	if call.TypeArguments != nil {
		count = len(call.TypeArguments.Nodes)
	}
	if count != 1 {
		return nil, &CallSiteArityError{Location: loc, Call: callText, Count: count}
	}

	root := shimchecker.Checker_getTypeFromTypeNode(s.r.checker, call.TypeArguments.Nodes[0])
	typ, err := extract.Extract(s.r.types, root)
	if err != nil {
		return nil, &ExtractionError{Location: loc, Call: callText, Err: err}
	}
	encoded, err := codec.Encode(typ)
	if err != nil {
		return nil, &ExtractionError{Location: loc, Call: callText, Err: err}
	}
	literal, err := QuoteJS(encoded)
	if err != nil {
		return nil, &ExtractionError{Location: loc, Call: callText, Err: err}
	}

	hasArgs := call.Arguments != nil && len(call.Arguments.Nodes) > 0
	return &Injection{
		Location: loc,
		Callee:   name,
		Call:     callText,
		NamePos:  namePos,
		ArgsPos:  argsPos(s.text, node, call),
		HasArgs:  hasArgs,
		Type:     typ,
		Encoded:  encoded,
		Literal:  literal,
	}, nil
}

func (s *fileScan) location(pos int) Location {
	line, char := shimscanner.GetECMALineAndCharacterOfPosition(s.sf, pos)
	return Location{File: s.sf.FileName(), Line: line + 1, Column: char + 1}
}

// calleeName returns the trailing identifier of a callee expression and its
// offset, or "" when the callee is neither an identifier nor a property access.
func calleeName(text string, callee *ast.Node) (string, int) {
	if callee == nil {
		return "", 0
	}
	var nameNode *ast.Node
	switch callee.Kind {
	case ast.KindIdentifier:
		nameNode = callee
	case ast.KindPropertyAccessExpression:
		nameNode = callee.AsPropertyAccessExpression().Name()
	default:
		return "", 0
	}
	if nameNode == nil || nameNode.Kind != ast.KindIdentifier {
		return "", 0
	}
	return nameNode.Text(), skipTrivia(text, nameNode.Pos())
}

// argsPos returns the offset just after the call's opening parenthesis.
func argsPos(text string, node *ast.Node, call *ast.CallExpression) int {
	if call.Arguments != nil {
		if p := call.Arguments.Pos(); p > 0 && p <= len(text) && text[p-1] == '(' {
			return p
		}
	}
	// Fall back to the parenthesis closest to the end of the callee and type
	// arguments.
	from := call.Expression.End()
	if call.TypeArguments != nil {
		from = call.TypeArguments.End()
	}
	if i := strings.IndexByte(text[from:node.End()], '('); i >= 0 {
		return from + i + 1
	}
	return node.End()
}

// skipTrivia advances pos past whitespace and comments.
func skipTrivia(text string, pos int) int {
	for pos < len(text) {
		switch {
		case text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n' || text[pos] == '\r' || text[pos] == '\f' || text[pos] == '\v':
			pos++
		case strings.HasPrefix(text[pos:], "//"):
			end := strings.IndexByte(text[pos:], '\n')
			if end < 0 {
				return len(text)
			}
			pos += end + 1
		case strings.HasPrefix(text[pos:], "/*"):
			end := strings.Index(text[pos+2:], "*/")
			if end < 0 {
				return len(text)
			}
			pos += end + 4
		default:
			return pos
		}
	}
	return pos
}

// compactCallText shortens a call's source text to a single line for messages.
func compactCallText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
