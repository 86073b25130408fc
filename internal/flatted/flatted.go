// Package flatted implements the wire format of the npm "flatted" package: a
// JSON array in which every distinct object, array and string is stored once
// and referenced by its table index. Entry 0 is the root.
//
// Values are modelled as string, float64, bool, nil, *Object and *Array.
// Objects and arrays are pointers so that identity (sharing and cycles)
// survives a Stringify/Parse round trip.
package flatted

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
)

// Object is a JSON object with ordered keys.
type Object struct {
	Keys   []string
	Values []any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	for i, k := range o.Keys {
		if k == key {
			return o.Values[i], true
		}
	}
	return nil, false
}

// Set stores v under key, keeping the original position of an existing key.
func (o *Object) Set(key string, v any) {
	for i, k := range o.Keys {
		if k == key {
			o.Values[i] = v
			return
		}
	}
	o.Keys = append(o.Keys, key)
	o.Values = append(o.Values, v)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.Keys)
}

// Array is a JSON array.
type Array struct {
	Items []any
}

// NewArray returns an array holding items.
func NewArray(items ...any) *Array {
	return &Array{Items: items}
}

var (
	// ErrEmpty is returned by Parse for an empty table.
	ErrEmpty = errors.New("flatted: empty table")
	// ErrMalformed is wrapped by every structural error returned by Parse.
	ErrMalformed = errors.New("flatted: malformed input")
)

// UnsupportedValueError is returned by Stringify for Go values outside the model.
type UnsupportedValueError struct {
	Value any
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("flatted: unsupported value of type %T", e.Value)
}

// Stringify encodes v. Index assignment follows the reference encoder:
// entries are written in table order and each newly seen string, object or
// array is appended to the table as it is first referenced.
func Stringify(v any) (string, error) {
	e := &encoder{
		nodes:   map[any]int{},
		strings: map[string]int{},
	}
	if err := e.check(v); err != nil {
		return "", err
	}
	e.table = append(e.table, v)
	switch n := v.(type) {
	case string:
		e.strings[n] = 0
	case *Object, *Array:
		e.nodes[n] = 0
	}

	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return "", err
	}
	for i := 0; i < len(e.table); i++ {
		if err := e.writeEntry(enc, e.table[i]); err != nil {
			return "", err
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

type encoder struct {
	table   []any
	nodes   map[any]int
	strings map[string]int
}

func (e *encoder) check(v any) error {
	switch v.(type) {
	case nil, string, float64, bool, *Object, *Array:
		return nil
	}
	return &UnsupportedValueError{Value: v}
}

func (e *encoder) ref(v any) int {
	switch n := v.(type) {
	case string:
		if idx, ok := e.strings[n]; ok {
			return idx
		}
		e.strings[n] = len(e.table)
	default:
		if idx, ok := e.nodes[n]; ok {
			return idx
		}
		e.nodes[n] = len(e.table)
	}
	e.table = append(e.table, v)
	return len(e.table) - 1
}

func (e *encoder) writeEntry(enc *jsontext.Encoder, v any) error {
	switch n := v.(type) {
	case *Object:
		if len(n.Keys) != len(n.Values) {
			return fmt.Errorf("flatted: object has %d keys and %d values", len(n.Keys), len(n.Values))
		}
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for i, k := range n.Keys {
			if err := enc.WriteToken(jsontext.String(k)); err != nil {
				return err
			}
			if err := e.writeValue(enc, n.Values[i]); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndObject)
	case *Array:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, item := range n.Items {
			if err := e.writeValue(enc, item); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)
	case string:
		return enc.WriteToken(jsontext.String(n))
	default:
		return writeScalar(enc, v)
	}
}

func (e *encoder) writeValue(enc *jsontext.Encoder, v any) error {
	if err := e.check(v); err != nil {
		return err
	}
	switch v.(type) {
	case string, *Object, *Array:
		return enc.WriteToken(jsontext.String(strconv.Itoa(e.ref(v))))
	}
	return writeScalar(enc, v)
}

func writeScalar(enc *jsontext.Encoder, v any) error {
	switch n := v.(type) {
	case nil:
		return enc.WriteToken(jsontext.Null)
	case bool:
		return enc.WriteToken(jsontext.Bool(n))
	case float64:
		// JSON.stringify turns non-finite numbers into null.
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return enc.WriteToken(jsontext.Null)
		}
		if n == 0 {
			n = 0 // drop the sign of -0
		}
		return enc.WriteToken(jsontext.Float(n))
	}
	return &UnsupportedValueError{Value: v}
}

// ref marks a string found inside a table entry, which is always an index.
type ref int

// Parse decodes s. Every object or array entry of the table becomes exactly
// one node, so nodes referenced from several places are shared in the result.
func Parse(s string) (any, error) {
	table, err := readTable(s)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, ErrEmpty
	}

	resolve := func(v any) (any, error) {
		r, ok := v.(ref)
		if !ok {
			return v, nil
		}
		if int(r) < 0 || int(r) >= len(table) {
			return nil, fmt.Errorf("%w: reference %d outside table of %d entries", ErrMalformed, r, len(table))
		}
		return table[r], nil
	}

	for _, entry := range table {
		switch n := entry.(type) {
		case *Object:
			for i, v := range n.Values {
				if n.Values[i], err = resolve(v); err != nil {
					return nil, err
				}
			}
		case *Array:
			for i, v := range n.Items {
				if n.Items[i], err = resolve(v); err != nil {
					return nil, err
				}
			}
		}
	}
	return table[0], nil
}

func readTable(s string) ([]any, error) {
	dec := jsontext.NewDecoder(bytes.NewReader([]byte(s)))
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if tok.Kind() != '[' {
		return nil, fmt.Errorf("%w: expected array, found %v", ErrMalformed, tok.Kind())
	}

	var table []any
	for dec.PeekKind() != ']' {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		entry, err := readEntry(dec, tok)
		if err != nil {
			return nil, err
		}
		table = append(table, entry)
	}
	if _, err := dec.ReadToken(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after table", ErrMalformed)
	}
	return table, nil
}

func readEntry(dec *jsontext.Decoder, tok jsontext.Token) (any, error) {
	switch tok.Kind() {
	case '{':
		obj := NewObject()
		for dec.PeekKind() != '}' {
			name, err := dec.ReadToken()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			val, err := dec.ReadToken()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			v, err := readInner(val)
			if err != nil {
				return nil, err
			}
			obj.Keys = append(obj.Keys, name.String())
			obj.Values = append(obj.Values, v)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return obj, nil
	case '[':
		arr := NewArray()
		for dec.PeekKind() != ']' {
			val, err := dec.ReadToken()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			v, err := readInner(val)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return arr, nil
	case '"':
		return tok.String(), nil
	}
	return readScalar(tok)
}

func readInner(tok jsontext.Token) (any, error) {
	switch tok.Kind() {
	case '"':
		idx, err := strconv.Atoi(tok.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a table reference", ErrMalformed, tok.String())
		}
		return ref(idx), nil
	case '{', '[':
		return nil, fmt.Errorf("%w: nested container inside table entry", ErrMalformed)
	}
	return readScalar(tok)
}

func readScalar(tok jsontext.Token) (any, error) {
	switch tok.Kind() {
	case 'n':
		return nil, nil
	case 't', 'f':
		return tok.Bool(), nil
	case '0':
		return tok.Float(), nil
	}
	return nil, fmt.Errorf("%w: unexpected token %v", ErrMalformed, tok.Kind())
}

// Indent re-formats an encoded table with one entry per line, for display.
func Indent(s string) (string, error) {
	dec := jsontext.NewDecoder(bytes.NewReader([]byte(s)))
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf, jsontext.WithIndent("  "))
	for {
		tok, err := dec.ReadToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := enc.WriteToken(tok); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
