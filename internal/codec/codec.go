// Package codec converts reified type graphs to and from their encoded string
// form. The encoding is the flatted table format, so shared nodes and cycles
// survive the trip through a string literal.
package codec

import (
	"errors"
	"fmt"

	"github.com/tsmaterialise/tsmaterialise/internal/flatted"
	"github.com/tsmaterialise/tsmaterialise/reify"
)

// Wire field names.
const (
	fieldType             = "type"
	fieldStr              = "str"
	fieldKind             = "kind"
	fieldValue            = "value"
	fieldItemsType        = "itemsType"
	fieldMembers          = "members"
	fieldHasCallSignature = "hasCallSignature"
	fieldIndexSignatures  = "indexSignatures"
	fieldKeyType          = "keyType"
	fieldValueType        = "valueType"
	fieldTypes            = "types"
)

// ErrNotType is returned when a decoded graph does not look like a type.
var ErrNotType = errors.New("codec: decoded value is not a type")

// Encode serializes t. Node identity is preserved: a node reachable along
// several paths is written once.
func Encode(t *reify.Type) (string, error) {
	if t == nil {
		return "", errors.New("codec: cannot encode nil type")
	}
	g := &toGraph{memo: map[*reify.Type]*flatted.Object{}}
	s, err := flatted.Stringify(g.node(t))
	if err != nil {
		return "", fmt.Errorf("codec: %w", err)
	}
	return s, nil
}

// Decode parses an encoded graph without interpreting it.
func Decode(s string) (any, error) {
	v, err := flatted.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	return v, nil
}

// DecodeType parses s, applies the shallow type check and binds the result.
func DecodeType(s string) (*reify.Type, error) {
	v, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if !reify.IsType(v) {
		return nil, ErrNotType
	}
	return Bind(v)
}

type toGraph struct {
	memo map[*reify.Type]*flatted.Object
}

func (g *toGraph) node(t *reify.Type) any {
	if t == nil {
		return nil
	}
	if o, ok := g.memo[t]; ok {
		return o
	}
	o := flatted.NewObject()
	g.memo[t] = o

	o.Set(fieldType, string(t.Type))
	o.Set(fieldStr, t.Str)
	switch t.Type {
	case reify.TagBasic, reify.TagBuiltin:
		o.Set(fieldKind, t.Kind)
	case reify.TagLiteral:
		o.Set(fieldKind, t.Kind)
		o.Set(fieldValue, t.Value)
	case reify.TagArray:
		o.Set(fieldItemsType, g.node(t.ItemsType))
	case reify.TagObject:
		members := flatted.NewObject()
		for _, m := range t.Members {
			members.Set(m.Name, g.node(m.Type))
		}
		o.Set(fieldMembers, members)
		o.Set(fieldHasCallSignature, t.HasCallSignature)
		sigs := flatted.NewArray()
		for _, sig := range t.IndexSignatures {
			s := flatted.NewObject()
			s.Set(fieldKeyType, sig.KeyType)
			s.Set(fieldValueType, g.node(sig.ValueType))
			sigs.Items = append(sigs.Items, s)
		}
		o.Set(fieldIndexSignatures, sigs)
	case reify.TagUnion, reify.TagIntersection:
		types := flatted.NewArray()
		for _, c := range t.Types {
			types.Items = append(types.Items, g.node(c))
		}
		o.Set(fieldTypes, types)
	}
	return o
}

// Bind converts a decoded graph into a Type graph. Shared nodes and cycles in
// the input map onto shared nodes and cycles in the output.
//
// Only the root is required to be an object. Malformed children bind to nil
// or zero fields; reify.Validate reports them.
func Bind(v any) (*reify.Type, error) {
	root, ok := v.(*flatted.Object)
	if !ok {
		return nil, fmt.Errorf("%w: root is %T", ErrNotType, v)
	}
	b := &binder{memo: map[*flatted.Object]*reify.Type{}}
	return b.bind(root), nil
}

type binder struct {
	memo map[*flatted.Object]*reify.Type
}

func (b *binder) child(v any) *reify.Type {
	o, ok := v.(*flatted.Object)
	if !ok {
		return nil
	}
	return b.bind(o)
}

func (b *binder) bind(o *flatted.Object) *reify.Type {
	if t, ok := b.memo[o]; ok {
		return t
	}
	t := &reify.Type{}
	b.memo[o] = t

	t.Type = reify.Tag(stringField(o, fieldType))
	t.Str = stringField(o, fieldStr)
	t.Kind = stringField(o, fieldKind)
	if v, ok := o.Get(fieldValue); ok {
		t.Value = v
	}
	if v, ok := o.Get(fieldItemsType); ok {
		t.ItemsType = b.child(v)
	}
	if v, ok := o.Get(fieldMembers); ok {
		if members, ok := v.(*flatted.Object); ok {
			t.Members = make([]reify.Member, 0, members.Len())
			for i, name := range members.Keys {
				t.Members = append(t.Members, reify.Member{Name: name, Type: b.child(members.Values[i])})
			}
		}
	}
	if v, ok := o.Get(fieldHasCallSignature); ok {
		t.HasCallSignature, _ = v.(bool)
	}
	if v, ok := o.Get(fieldIndexSignatures); ok {
		if sigs, ok := v.(*flatted.Array); ok {
			for _, item := range sigs.Items {
				sig, ok := item.(*flatted.Object)
				if !ok {
					continue
				}
				vt, _ := sig.Get(fieldValueType)
				t.IndexSignatures = append(t.IndexSignatures, reify.IndexSignature{
					KeyType:   stringField(sig, fieldKeyType),
					ValueType: b.child(vt),
				})
			}
		}
	}
	if v, ok := o.Get(fieldTypes); ok {
		if types, ok := v.(*flatted.Array); ok {
			t.Types = make([]*reify.Type, len(types.Items))
			for i, item := range types.Items {
				t.Types[i] = b.child(item)
			}
		}
	}
	return t
}

func stringField(o *flatted.Object, key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}
