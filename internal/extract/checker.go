package extract

import (
	"reflect"

	shimchecker "github.com/microsoft/typescript-go/shim/checker"
)

var flagMap = []struct {
	ts   shimchecker.TypeFlags
	flag Flags
}{
	{shimchecker.TypeFlagsAny, FlagAny},
	{shimchecker.TypeFlagsUnknown, FlagUnknown},
	{shimchecker.TypeFlagsString, FlagString},
	{shimchecker.TypeFlagsNumber, FlagNumber},
	{shimchecker.TypeFlagsBoolean, FlagBoolean},
	{shimchecker.TypeFlagsBigInt, FlagBigInt},
	{shimchecker.TypeFlagsESSymbol, FlagESSymbol},
	{shimchecker.TypeFlagsUniqueESSymbol, FlagUniqueESSymbol},
	{shimchecker.TypeFlagsUndefined, FlagUndefined},
	{shimchecker.TypeFlagsVoid, FlagVoid},
	{shimchecker.TypeFlagsNull, FlagNull},
	{shimchecker.TypeFlagsNever, FlagNever},
	{shimchecker.TypeFlagsStringLiteral, FlagStringLiteral},
	{shimchecker.TypeFlagsNumberLiteral, FlagNumberLiteral},
	{shimchecker.TypeFlagsBooleanLiteral, FlagBooleanLiteral},
	{shimchecker.TypeFlagsBigIntLiteral, FlagBigIntLiteral},
	{shimchecker.TypeFlagsEnumLiteral, FlagEnumLiteral},
	{shimchecker.TypeFlagsUnion, FlagUnion},
	{shimchecker.TypeFlagsIntersection, FlagIntersection},
	{shimchecker.TypeFlagsTypeParameter, FlagTypeParameter},
	{shimchecker.TypeFlagsObject, FlagObject},
}

// CheckerTypeSystem answers TypeSystem queries with a typescript-go checker.
// Handles are *shimchecker.Type values.
type CheckerTypeSystem struct {
	checker *shimchecker.Checker
}

var _ TypeSystem = (*CheckerTypeSystem)(nil)

// NewCheckerTypeSystem wraps checker.
func NewCheckerTypeSystem(checker *shimchecker.Checker) *CheckerTypeSystem {
	return &CheckerTypeSystem{checker: checker}
}

func asType(h Handle) *shimchecker.Type {
	t, _ := h.(*shimchecker.Type)
	return t
}

func (s *CheckerTypeSystem) Flags(h Handle) Flags {
	t := asType(h)
	if t == nil {
		return 0
	}
	tf := t.Flags()
	var flags Flags
	for _, m := range flagMap {
		if tf&m.ts != 0 {
			flags |= m.flag
		}
	}
	return flags
}

func (s *CheckerTypeSystem) TypeToString(h Handle) string {
	t := asType(h)
	if t == nil {
		return ""
	}
	return s.checker.TypeToString(t)
}

func (s *CheckerTypeSystem) Constituents(h Handle) []Handle {
	t := asType(h)
	if t == nil {
		return nil
	}
	types := t.Types()
	out := make([]Handle, len(types))
	for i, c := range types {
		out[i] = c
	}
	return out
}

func (s *CheckerTypeSystem) IsArrayLike(h Handle) bool {
	t := asType(h)
	if t == nil || t.Flags()&shimchecker.TypeFlagsObject == 0 {
		return false
	}
	return shimchecker.Checker_isArrayType(s.checker, t) || shimchecker.IsTupleType(t)
}

func (s *CheckerTypeSystem) ArrayItem(h Handle) (Handle, bool) {
	t := asType(h)
	if t == nil {
		return nil, false
	}
	args := shimchecker.Checker_getTypeArguments(s.checker, t)
	if len(args) == 0 || args[0] == nil {
		return nil, false
	}
	return args[0], true
}

func (s *CheckerTypeSystem) LiteralValue(h Handle) (any, bool) {
	t := asType(h)
	if t == nil {
		return nil, false
	}
	lit := t.AsLiteralType()
	if lit == nil {
		return nil, false
	}
	return normalizeLiteralValue(lit.Value())
}

// normalizeLiteralValue converts checker literal payloads (jsnum.Number,
// jsnum.PseudoBigInt) into plain Go values without importing the checker's
// internal number packages.
func normalizeLiteralValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string, bool, float64:
		return val, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.String:
		return rv.String(), true
	case reflect.Struct:
		neg := rv.FieldByName("Negative")
		digits := rv.FieldByName("Base10Value")
		if neg.IsValid() && neg.Kind() == reflect.Bool && digits.IsValid() && digits.Kind() == reflect.String {
			return BigIntValue{Negative: neg.Bool(), Base10Value: digits.String()}, true
		}
	}
	return nil, false
}

func (s *CheckerTypeSystem) HasSymbol(h Handle) bool {
	t := asType(h)
	if t == nil {
		return false
	}
	if t.Symbol() != nil {
		return true
	}
	alias := shimchecker.Type_alias(t)
	return alias != nil && alias.Symbol() != nil
}

func (s *CheckerTypeSystem) Properties(h Handle) []Property {
	t := asType(h)
	if t == nil {
		return nil
	}
	props := shimchecker.Checker_getPropertiesOfType(s.checker, t)
	out := make([]Property, 0, len(props))
	for _, prop := range props {
		out = append(out, Property{
			Name: prop.Name,
			Type: shimchecker.Checker_getTypeOfSymbol(s.checker, prop),
		})
	}
	return out
}

func (s *CheckerTypeSystem) IndexSignatures(h Handle) []IndexInfo {
	t := asType(h)
	if t == nil {
		return nil
	}
	var str, num *IndexInfo
	for _, info := range shimchecker.Checker_getIndexInfosOfType(s.checker, t) {
		key := shimchecker.IndexInfo_keyType(info)
		if key == nil {
			continue
		}
		value := shimchecker.IndexInfo_valueType(info)
		switch {
		case key.Flags()&shimchecker.TypeFlagsString != 0 && str == nil:
			str = &IndexInfo{KeyType: "string", ValueType: value}
		case key.Flags()&shimchecker.TypeFlagsNumber != 0 && num == nil:
			num = &IndexInfo{KeyType: "number", ValueType: value}
		}
	}
	var out []IndexInfo
	if str != nil {
		out = append(out, *str)
	}
	if num != nil {
		out = append(out, *num)
	}
	return out
}

func (s *CheckerTypeSystem) HasCallSignature(h Handle) bool {
	t := asType(h)
	if t == nil {
		return false
	}
	return len(shimchecker.Checker_getSignaturesOfType(s.checker, t, shimchecker.SignatureKindCall)) > 0
}
