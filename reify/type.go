// Package reify defines the runtime representation of a TypeScript type.
//
// A Type graph is produced at build time from the checker, carried into the
// program as an encoded string literal, and decoded back at runtime. Graphs may
// contain shared nodes and cycles (a recursive interface points back at
// itself), so code walking a Type must track visited nodes.
package reify

import (
	"fmt"
	"strings"
)

// Tag discriminates the variants of Type.
type Tag string

const (
	TagBasic         Tag = "basic"
	TagLiteral       Tag = "literal"
	TagTypeParameter Tag = "type-parameter"
	TagBuiltin       Tag = "builtin"
	TagArray         Tag = "array"
	TagObject        Tag = "object"
	TagUnion         Tag = "union"
	TagIntersection  Tag = "intersection"
)

// Tags lists every variant in declaration order.
var Tags = []Tag{
	TagBasic, TagLiteral, TagTypeParameter, TagBuiltin,
	TagArray, TagObject, TagUnion, TagIntersection,
}

// Valid reports whether tag is one of the known variants.
func (t Tag) Valid() bool {
	switch t {
	case TagBasic, TagLiteral, TagTypeParameter, TagBuiltin,
		TagArray, TagObject, TagUnion, TagIntersection:
		return true
	}
	return false
}

// Basic kinds.
const (
	KindAny       = "any"
	KindUnknown   = "unknown"
	KindString    = "string"
	KindNumber    = "number"
	KindBoolean   = "boolean"
	KindBigInt    = "bigint"
	KindSymbol    = "symbol"
	KindUndefined = "undefined"
	KindNull      = "null"
	KindNever     = "never"
)

// Literal kinds. String, number, boolean and bigint share their names with
// the basic kinds.
const (
	KindEnum = "enum"
)

// Builtin kinds.
const (
	KindDate = "Date"
)

var basicKinds = map[string]bool{
	KindAny: true, KindUnknown: true, KindString: true, KindNumber: true,
	KindBoolean: true, KindBigInt: true, KindSymbol: true, KindUndefined: true,
	KindNull: true, KindNever: true,
}

var literalKinds = map[string]bool{
	KindString: true, KindNumber: true, KindBoolean: true, KindEnum: true, KindBigInt: true,
}

// Type is a single node of a reified type graph. Type selects which of the
// remaining fields are meaningful:
//
//	basic           Kind
//	literal         Kind, Value
//	type-parameter  (none)
//	builtin         Kind
//	array           ItemsType
//	object          Members, HasCallSignature, IndexSignatures
//	union           Types
//	intersection    Types
//
// Str is the checker's display text for the type and is informational only.
type Type struct {
	Type Tag
	Str  string

	Kind string

	// Value holds a literal's payload: string, float64 or bool. Bigint literals
	// are decimal strings with an optional leading '-'. Enum literals hold the
	// member's string or number value.
	Value any

	ItemsType *Type

	// Members is nil while an object node is still being filled in.
	Members          []Member
	HasCallSignature bool
	IndexSignatures  []IndexSignature

	Types []*Type
}

// Member is a named property of an object type.
type Member struct {
	Name string
	Type *Type
}

// IndexSignature is a `[key: string]: V` or `[key: number]: V` entry.
type IndexSignature struct {
	KeyType   string
	ValueType *Type
}

// Index signature key types.
const (
	KeyString = "string"
	KeyNumber = "number"
)

// NewBasic creates a basic node such as `string`; kind is one of the Kind
// constants for basic types.
func NewBasic(kind, str string) *Type {
	return &Type{Type: TagBasic, Kind: kind, Str: str}
}

// NewLiteral creates a literal node. See Type.Value for how value is held.
func NewLiteral(kind string, value any, str string) *Type {
	return &Type{Type: TagLiteral, Kind: kind, Value: value, Str: str}
}

// NewTypeParameter creates a node for an unresolved type parameter.
func NewTypeParameter(str string) *Type {
	return &Type{Type: TagTypeParameter, Str: str}
}

// NewBuiltin creates a builtin node such as KindDate.
func NewBuiltin(kind, str string) *Type {
	return &Type{Type: TagBuiltin, Kind: kind, Str: str}
}

// NewArray creates an array node. items may be nil and set later when the
// element type refers back to the array.
func NewArray(items *Type, str string) *Type {
	return &Type{Type: TagArray, ItemsType: items, Str: str}
}

// NewObject creates an object node with an empty member list.
func NewObject(str string) *Type {
	return &Type{Type: TagObject, Members: []Member{}, Str: str}
}

// NewUnion creates a union of types, in the order given.
func NewUnion(str string, types ...*Type) *Type {
	return &Type{Type: TagUnion, Types: types, Str: str}
}

// NewIntersection creates an intersection of types, in the order given.
func NewIntersection(str string, types ...*Type) *Type {
	return &Type{Type: TagIntersection, Types: types, Str: str}
}

// Member returns the type of the named member, or nil.
func (t *Type) Member(name string) *Type {
	if t == nil {
		return nil
	}
	for _, m := range t.Members {
		if m.Name == name {
			return m.Type
		}
	}
	return nil
}

// MemberNames returns member names in declaration order.
func (t *Type) MemberNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Members))
	for i, m := range t.Members {
		names[i] = m.Name
	}
	return names
}

// IndexSignature returns the value type for the given key type, or nil.
func (t *Type) IndexSignature(keyType string) *Type {
	if t == nil {
		return nil
	}
	for _, sig := range t.IndexSignatures {
		if sig.KeyType == keyType {
			return sig.ValueType
		}
	}
	return nil
}

// String renders a short, cycle-safe description such as
// `object{id: basic string, next: <cycle Node>}`.
func (t *Type) String() string {
	var b strings.Builder
	writeType(&b, t, map[*Type]bool{})
	return b.String()
}

func writeType(b *strings.Builder, t *Type, onPath map[*Type]bool) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	if onPath[t] {
		fmt.Fprintf(b, "<cycle %s>", t.Str)
		return
	}
	onPath[t] = true
	defer delete(onPath, t)

	switch t.Type {
	case TagBasic, TagBuiltin:
		fmt.Fprintf(b, "%s %s", t.Type, t.Kind)
	case TagLiteral:
		fmt.Fprintf(b, "literal %s %v", t.Kind, t.Value)
	case TagTypeParameter:
		fmt.Fprintf(b, "type-parameter %s", t.Str)
	case TagArray:
		b.WriteString("array<")
		writeType(b, t.ItemsType, onPath)
		b.WriteString(">")
	case TagObject:
		b.WriteString("object{")
		for i, m := range t.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Name)
			b.WriteString(": ")
			writeType(b, m.Type, onPath)
		}
		for i, sig := range t.IndexSignatures {
			if i > 0 || len(t.Members) > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "[%s]: ", sig.KeyType)
			writeType(b, sig.ValueType, onPath)
		}
		if t.HasCallSignature {
			b.WriteString(" callable")
		}
		b.WriteString("}")
	case TagUnion, TagIntersection:
		sep := " | "
		if t.Type == TagIntersection {
			sep = " & "
		}
		b.WriteString("(")
		for i, c := range t.Types {
			if i > 0 {
				b.WriteString(sep)
			}
			writeType(b, c, onPath)
		}
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "<%s>", t.Type)
	}
}
