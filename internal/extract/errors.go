package extract

import (
	"errors"
	"fmt"
)

// UnclassifiableTypeError is returned when no classification rule matches a
// type. It aborts the whole extraction.
type UnclassifiableTypeError struct {
	Str    string
	Flags  Flags
	Reason string
}

func (e *UnclassifiableTypeError) Error() string {
	msg := fmt.Sprintf("cannot materialise type %q", e.Str)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// LiteralValueMissingError is returned when a type carries a literal flag but
// the checker exposes no scalar value for it.
type LiteralValueMissingError struct {
	Str  string
	Kind string
}

func (e *LiteralValueMissingError) Error() string {
	return fmt.Sprintf("%s literal %q has no value", e.Kind, e.Str)
}

// ErrEmptyResult means the traversal finished without filling the root slot.
var ErrEmptyResult = errors.New("extract: traversal produced no result")
