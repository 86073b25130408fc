package rewrite

import (
	"slices"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimscanner "github.com/microsoft/typescript-go/shim/scanner"
)

// rewriteSentinel is inserted into rewritten files to prevent double-rewriting.
const rewriteSentinel = "/* @tsmaterialise-rewritten */"

// emittedCallSites tokenizes emitted JavaScript and returns, for every call
// of name, the offset just after its opening parenthesis. A call is the
// identifier followed by `(` or `?.(`, directly or after the `)` of the
// CommonJS form `(0, lib_1.name)(` printed for imported bindings. Comments,
// strings, templates and regular expressions are single tokens and never
// match.
func emittedCallSites(text, name string) []int {
	sc := shimscanner.NewScanner()
	sc.SetText(text)

	const (
		none = iota
		afterName
		afterParen
		afterQuestionDot
	)
	var (
		sites     []int
		state     = none
		prev      = ast.KindUnknown
		templates []bool // brace stack; true for a template substitution
	)
	for tok := sc.Scan(); tok != ast.KindEndOfFile; tok = sc.Scan() {
		switch tok {
		case ast.KindSingleLineCommentTrivia, ast.KindMultiLineCommentTrivia,
			ast.KindWhitespaceTrivia, ast.KindNewLineTrivia, ast.KindShebangTrivia,
			ast.KindConflictMarkerTrivia:
			continue
		case ast.KindSlashToken, ast.KindSlashEqualsToken:
			if !endsExpression(prev) {
				tok = sc.ReScanSlashToken()
			}
		case ast.KindTemplateHead:
			templates = append(templates, true)
		case ast.KindOpenBraceToken:
			templates = append(templates, false)
		case ast.KindCloseBraceToken:
			if n := len(templates); n > 0 {
				inTemplate := templates[n-1]
				templates = templates[:n-1]
				if inTemplate {
					tok = sc.ReScanTemplateToken(false)
					if tok == ast.KindTemplateMiddle {
						templates = append(templates, true)
					}
				}
			}
		}

		switch {
		case tok == ast.KindOpenParenToken && state != none:
			sites = append(sites, sc.TokenEnd())
			state = none
		case tok == ast.KindCloseParenToken && state == afterName:
			state = afterParen
		case tok == ast.KindQuestionDotToken && (state == afterName || state == afterParen):
			state = afterQuestionDot
		case sc.TokenText() == name && !isLiteralToken(tok):
			state = afterName
		default:
			state = none
		}
		prev = tok
	}
	return sites
}

// endsExpression reports whether a `/` after kind is a division rather than
// the start of a regular expression.
func endsExpression(kind ast.Kind) bool {
	switch kind {
	case ast.KindIdentifier, ast.KindNumericLiteral, ast.KindBigIntLiteral, ast.KindStringLiteral,
		ast.KindNoSubstitutionTemplateLiteral, ast.KindTemplateTail, ast.KindRegularExpressionLiteral,
		ast.KindCloseParenToken, ast.KindCloseBracketToken, ast.KindCloseBraceToken,
		ast.KindPlusPlusToken, ast.KindMinusMinusToken,
		ast.KindThisKeyword, ast.KindSuperKeyword, ast.KindTrueKeyword, ast.KindFalseKeyword, ast.KindNullKeyword:
		return true
	}
	return false
}

func isLiteralToken(kind ast.Kind) bool {
	switch kind {
	case ast.KindStringLiteral, ast.KindNoSubstitutionTemplateLiteral, ast.KindTemplateHead,
		ast.KindTemplateMiddle, ast.KindTemplateTail, ast.KindRegularExpressionLiteral:
		return true
	}
	return false
}

// rewriteEmitted injects encoded literals into emitted JavaScript.
//
// Type arguments are erased by the emitter, so calls are matched by callee
// name in order: the Nth call of `name` in the output is the Nth call site of
// `name` in the source. A count mismatch is an error rather than a guess.
func rewriteEmitted(text, outputFile string, fr *FileResult) (string, error) {
	if !fr.HasInjections() {
		return text, nil
	}
	if strings.Contains(text, rewriteSentinel) {
		return text, nil
	}

	for _, inj := range fr.Injections {
		if inj.Callee == "" {
			return "", &EmitMismatchError{OutputFile: outputFile}
		}
	}

	names := make([]string, 0, len(fr.sites))
	for name := range fr.sites {
		names = append(names, name)
	}
	slices.Sort(names)

	var ins []insertion
	for _, name := range names {
		planned := fr.sites[name]
		found := emittedCallSites(text, name)
		if len(found) != len(planned) {
			return "", &EmitMismatchError{OutputFile: outputFile, Callee: name, Want: len(planned), Found: len(found)}
		}
		for i, site := range planned {
			if site.injection == nil {
				continue
			}
			ins = append(ins, insertion{pos: found[i], text: argumentText(site.injection.Literal, site.injection.HasArgs)})
		}
	}

	return addSentinel(splice(text, ins)), nil
}

// addSentinel puts the sentinel on the first line, after a shebang if any.
func addSentinel(text string) string {
	if strings.HasPrefix(text, "#!") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			return text[:nl+1] + rewriteSentinel + "\n" + text[nl+1:]
		}
		return text + "\n" + rewriteSentinel
	}
	return rewriteSentinel + "\n" + text
}
