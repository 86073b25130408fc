package reify

import (
	"fmt"
	"strings"

	"github.com/tsmaterialise/tsmaterialise/internal/flatted"
)

// fieldGetter is satisfied by decoded object nodes that preserve key order.
type fieldGetter interface {
	Get(key string) (any, bool)
}

// IsType is the shallow structural check applied to a freshly decoded graph:
// the top-level node must be an object whose "type" field names a known
// variant and whose "str" field is a string. Children are not inspected.
//
// v may be a *Type, a decoded *flatted.Object or other ordered node, or a
// map[string]any. Nil pointers are not types.
func IsType(v any) bool {
	switch n := v.(type) {
	case *Type:
		return n != nil && n.Type.Valid()
	case *flatted.Object:
		return n != nil && hasTagAndString(n)
	case fieldGetter:
		return hasTagAndString(n)
	case map[string]any:
		if n == nil {
			return false
		}
		return isTagAndString(n["type"], n["str"])
	}
	return false
}

func hasTagAndString(n fieldGetter) bool {
	tag, ok := n.Get("type")
	if !ok {
		return false
	}
	str, ok := n.Get("str")
	if !ok {
		return false
	}
	return isTagAndString(tag, str)
}

func isTagAndString(tag, str any) bool {
	s, ok := tag.(string)
	if !ok || !Tag(s).Valid() {
		return false
	}
	_, ok = str.(string)
	return ok
}

// ValidationError reports the first structural problem found by Validate.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid type: " + e.Reason
	}
	return fmt.Sprintf("invalid type at %s: %s", e.Path, e.Reason)
}

// Validate checks the whole graph reachable from t. Each node is visited once,
// so shared nodes and cycles are fine.
func Validate(t *Type) error {
	v := &validator{seen: map[*Type]bool{}}
	return v.check(t, "$")
}

type validator struct {
	seen map[*Type]bool
}

func (v *validator) check(t *Type, path string) error {
	if t == nil {
		return &ValidationError{Path: path, Reason: "missing node"}
	}
	if v.seen[t] {
		return nil
	}
	v.seen[t] = true

	switch t.Type {
	case TagBasic:
		if !basicKinds[t.Kind] {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("unknown basic kind %q", t.Kind)}
		}
	case TagLiteral:
		if !literalKinds[t.Kind] {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("unknown literal kind %q", t.Kind)}
		}
		if err := checkLiteralValue(t); err != nil {
			return &ValidationError{Path: path, Reason: err.Error()}
		}
	case TagTypeParameter:
	case TagBuiltin:
		if t.Kind != KindDate {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("unknown builtin kind %q", t.Kind)}
		}
	case TagArray:
		return v.check(t.ItemsType, path+".itemsType")
	case TagObject:
		if t.Members == nil {
			return &ValidationError{Path: path, Reason: "object members not populated"}
		}
		names := make(map[string]bool, len(t.Members))
		for _, m := range t.Members {
			if names[m.Name] {
				return &ValidationError{Path: path, Reason: fmt.Sprintf("duplicate member %q", m.Name)}
			}
			names[m.Name] = true
			if err := v.check(m.Type, path+".members."+m.Name); err != nil {
				return err
			}
		}
		for i, sig := range t.IndexSignatures {
			if sig.KeyType != KeyString && sig.KeyType != KeyNumber {
				return &ValidationError{Path: path, Reason: fmt.Sprintf("index signature %d has key type %q", i, sig.KeyType)}
			}
			if err := v.check(sig.ValueType, fmt.Sprintf("%s.indexSignatures[%d]", path, i)); err != nil {
				return err
			}
		}
	case TagUnion, TagIntersection:
		for i, c := range t.Types {
			if err := v.check(c, fmt.Sprintf("%s.types[%d]", path, i)); err != nil {
				return err
			}
		}
	default:
		return &ValidationError{Path: path, Reason: fmt.Sprintf("unknown tag %q", t.Type)}
	}
	return nil
}

func checkLiteralValue(t *Type) error {
	switch t.Kind {
	case KindString:
		if _, ok := t.Value.(string); !ok {
			return fmt.Errorf("string literal has %T value", t.Value)
		}
	case KindNumber:
		if _, ok := t.Value.(float64); !ok {
			return fmt.Errorf("number literal has %T value", t.Value)
		}
	case KindBoolean:
		if _, ok := t.Value.(bool); !ok {
			return fmt.Errorf("boolean literal has %T value", t.Value)
		}
	case KindBigInt:
		s, ok := t.Value.(string)
		if !ok || !isBigIntText(s) {
			return fmt.Errorf("bigint literal has value %v", t.Value)
		}
	case KindEnum:
		switch t.Value.(type) {
		case string, float64:
		default:
			return fmt.Errorf("enum literal has %T value", t.Value)
		}
	}
	return nil
}

func isBigIntText(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
