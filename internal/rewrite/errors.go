package rewrite

import (
	"fmt"
)

// Location is a 1-based position in a source file.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// CallSiteArityError is returned for a marked call that does not have
// exactly one explicit type argument.
type CallSiteArityError struct {
	Location
	Call  string
	Count int
}

func (e *CallSiteArityError) Error() string {
	return fmt.Sprintf("%s: %s: expected exactly one type argument, found %d", e.Location, e.Call, e.Count)
}

// ExtractionError wraps an extractor failure with the call site that
// triggered it.
type ExtractionError struct {
	Location
	Call string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Location, e.Call, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// EmitMismatchError means the calls found in emitted JavaScript did not line
// up with the calls found in the source file, so injected arguments could not
// be placed safely.
type EmitMismatchError struct {
	OutputFile string
	Callee     string
	Want       int
	Found      int
}

func (e *EmitMismatchError) Error() string {
	if e.Callee == "" {
		return fmt.Sprintf("%s: call with an unsupported callee form cannot be located in emitted output", e.OutputFile)
	}
	return fmt.Sprintf("%s: expected %d call site(s) of %s in emitted output, found %d", e.OutputFile, e.Want, e.Callee, e.Found)
}
