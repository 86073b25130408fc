// Package materialise is the runtime side of tsmaterialise. It turns the
// encoded type literal that the build step injects as the first argument of a
// marked call back into a reify.Type.
//
// A call that was not rewritten at build time arrives without that argument,
// and every entry point then fails with a *RuntimeConfigurationError before
// the wrapped function runs.
package materialise

import (
	"errors"

	"github.com/tsmaterialise/tsmaterialise/internal/codec"
	"github.com/tsmaterialise/tsmaterialise/reify"
)

// MarkerProperty is the property name the build step looks for on the static
// type of a callee. Its value is never read.
const MarkerProperty = "__ts-materialise_func"

// ErrNotConfigured matches every runtime configuration failure via errors.Is.
var ErrNotConfigured = errors.New("tsmaterialise: call site was not rewritten at build time")

// RuntimeConfigurationError is returned when the injected argument is missing,
// is not a string, cannot be decoded, or does not decode to a type. The
// message is the same in every case.
type RuntimeConfigurationError struct{}

func (e *RuntimeConfigurationError) Error() string {
	return "tsmaterialise requires the build-time rewrite (tsmaterialise build) to be configured for this call"
}

func (e *RuntimeConfigurationError) Unwrap() error { return ErrNotConfigured }

// Option configures decoding.
type Option func(*options)

type options struct {
	strict bool
}

// Strict makes decoding check the whole graph with reify.Validate instead of
// only the top-level node.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) decode(encoded any) (*reify.Type, error) {
	s, ok := encoded.(string)
	if !ok {
		return nil, &RuntimeConfigurationError{}
	}
	v, err := codec.Decode(s)
	if err != nil || !reify.IsType(v) {
		return nil, &RuntimeConfigurationError{}
	}
	t, err := codec.Bind(v)
	if err != nil {
		return nil, &RuntimeConfigurationError{}
	}
	if o.strict {
		if err := reify.Validate(t); err != nil {
			return nil, &RuntimeConfigurationError{}
		}
	}
	return t, nil
}

// Wrap returns a function whose first argument is the injected encoded type.
// It is decoded and passed to fn along with the remaining arguments, and fn's
// results are returned unchanged.
func Wrap[R any](fn func(t *reify.Type, args ...any) (R, error), opts ...Option) func(args ...any) (R, error) {
	o := newOptions(opts)
	return func(args ...any) (R, error) {
		var zero R
		if len(args) == 0 {
			return zero, &RuntimeConfigurationError{}
		}
		t, err := o.decode(args[0])
		if err != nil {
			return zero, err
		}
		return fn(t, args[1:]...)
	}
}

// WithType is the typed single-argument form of Wrap.
func WithType[A, R any](fn func(t *reify.Type, a A) (R, error), opts ...Option) func(encoded any, a A) (R, error) {
	o := newOptions(opts)
	return func(encoded any, a A) (R, error) {
		t, err := o.decode(encoded)
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(t, a)
	}
}

// Materialise decodes the literal injected into a materialise<T>() call.
func Materialise(encoded any, opts ...Option) (*reify.Type, error) {
	return newOptions(opts).decode(encoded)
}
