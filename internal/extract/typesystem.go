package extract

// Handle identifies a type inside a TypeSystem. Two handles are the same type
// exactly when they compare equal, so implementations should use pointers.
type Handle any

// Flags is the subset of checker type flags the extractor classifies on.
type Flags uint32

const (
	FlagAny Flags = 1 << iota
	FlagUnknown
	FlagString
	FlagNumber
	FlagBoolean
	FlagBigInt
	FlagESSymbol
	FlagUniqueESSymbol
	FlagUndefined
	FlagVoid
	FlagNull
	FlagNever
	FlagStringLiteral
	FlagNumberLiteral
	FlagBooleanLiteral
	FlagBigIntLiteral
	FlagEnumLiteral
	FlagUnion
	FlagIntersection
	FlagTypeParameter
	FlagObject
)

// Has reports whether any of the bits in mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask != 0
}

// Property is a named property of an object type.
type Property struct {
	Name string
	Type Handle
}

// IndexInfo is an index signature of an object type.
type IndexInfo struct {
	KeyType   string
	ValueType Handle
}

// BigIntValue is the checker's representation of a bigint literal.
type BigIntValue struct {
	Negative    bool
	Base10Value string
}

// TypeSystem is the view of the type checker the extractor needs.
type TypeSystem interface {
	Flags(h Handle) Flags
	TypeToString(h Handle) string

	// Constituents returns the members of a union or intersection in
	// declaration order.
	Constituents(h Handle) []Handle

	// IsArrayLike reports whether h is an array or tuple type.
	IsArrayLike(h Handle) bool
	// ArrayItem returns the first type argument of an array or tuple.
	ArrayItem(h Handle) (Handle, bool)

	// LiteralValue returns a literal's payload: string, float64, bool or
	// BigIntValue.
	LiteralValue(h Handle) (any, bool)

	// HasSymbol reports whether h has a symbol or an alias symbol.
	HasSymbol(h Handle) bool
	// Properties returns own and inherited properties in declaration order.
	Properties(h Handle) []Property
	// IndexSignatures returns the string index signature, then the number one.
	IndexSignatures(h Handle) []IndexInfo
	HasCallSignature(h Handle) bool
}
