// Package extract builds reify.Type graphs from checker types.
//
// The walk is iterative: an explicit stack of frames replaces recursion, and
// a memo keyed by handle identity makes every checker type map to exactly one
// node. A node is memoized before its children are pushed, so a recursive
// type finds its own half-built node and the graph closes into a cycle.
package extract

import (
	"strconv"

	"github.com/tsmaterialise/tsmaterialise/reify"
)

const (
	rootContainerName = "__base__"
	rootMemberName    = "__main__"
)

type slotKind int

const (
	slotMember slotKind = iota
	slotIndexSignature
	slotItems
	slotConstituent
)

// frame is one pending resolution: the handle to turn into a node and the
// place in the parent where that node belongs.
type frame struct {
	handle Handle
	parent *reify.Type
	kind   slotKind
	index  int
}

func (f frame) attach(node *reify.Type) {
	switch f.kind {
	case slotMember:
		f.parent.Members[f.index].Type = node
	case slotIndexSignature:
		f.parent.IndexSignatures[f.index].ValueType = node
	case slotItems:
		f.parent.ItemsType = node
	case slotConstituent:
		f.parent.Types[f.index] = node
	}
}

// extractor walks one type graph. It is not reusable.
type extractor struct {
	ts    TypeSystem
	memo  map[Handle]*reify.Type
	stack []frame
}

// Extract builds the type graph rooted at root.
func Extract(ts TypeSystem, root Handle) (*reify.Type, error) {
	e := &extractor{
		ts:   ts,
		memo: make(map[Handle]*reify.Type),
	}
	return e.run(root)
}

func (e *extractor) run(root Handle) (*reify.Type, error) {
	container := reify.NewObject(rootContainerName)
	container.Members = append(container.Members, reify.Member{Name: rootMemberName})
	e.stack = append(e.stack, frame{handle: root, parent: container, kind: slotMember})

	for len(e.stack) > 0 {
		f := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

		if cached, ok := e.memo[f.handle]; ok {
			f.attach(cached)
			continue
		}

		node, err := e.classify(f.handle)
		if err != nil {
			return nil, err
		}
		e.memo[f.handle] = node
		f.attach(node)
		e.pushChildren(f.handle, node)
	}

	result := container.Members[0].Type
	if result == nil {
		return nil, ErrEmptyResult
	}
	return result, nil
}

// pushChildren allocates the child slots of node in declaration order and
// pushes their frames in reverse so they pop in declaration order.
func (e *extractor) pushChildren(h Handle, node *reify.Type) {
	switch node.Type {
	case reify.TagUnion, reify.TagIntersection:
		constituents := e.ts.Constituents(h)
		node.Types = make([]*reify.Type, len(constituents))
		for i := len(constituents) - 1; i >= 0; i-- {
			e.stack = append(e.stack, frame{handle: constituents[i], parent: node, kind: slotConstituent, index: i})
		}

	case reify.TagArray:
		// classify already checked that the item exists.
		item, _ := e.ts.ArrayItem(h)
		e.stack = append(e.stack, frame{handle: item, parent: node, kind: slotItems})

	case reify.TagObject:
		props := e.ts.Properties(h)
		infos := e.ts.IndexSignatures(h)

		node.Members = make([]reify.Member, len(props))
		for i, p := range props {
			node.Members[i].Name = p.Name
		}
		node.IndexSignatures = make([]reify.IndexSignature, len(infos))
		for i, info := range infos {
			node.IndexSignatures[i].KeyType = info.KeyType
		}

		for i := len(infos) - 1; i >= 0; i-- {
			e.stack = append(e.stack, frame{handle: infos[i].ValueType, parent: node, kind: slotIndexSignature, index: i})
		}
		for i := len(props) - 1; i >= 0; i-- {
			e.stack = append(e.stack, frame{handle: props[i].Type, parent: node, kind: slotMember, index: i})
		}
	}
}

// classify creates the node for h without its children. Rules are tried in
// order and the first match wins.
func (e *extractor) classify(h Handle) (*reify.Type, error) {
	flags := e.ts.Flags(h)
	str := e.ts.TypeToString(h)

	switch {
	case flags.Has(FlagTypeParameter):
		return reify.NewTypeParameter(str), nil
	case flags.Has(FlagUnion):
		return &reify.Type{Type: reify.TagUnion, Str: str}, nil
	case flags.Has(FlagIntersection):
		return &reify.Type{Type: reify.TagIntersection, Str: str}, nil
	}

	if e.ts.IsArrayLike(h) {
		if _, ok := e.ts.ArrayItem(h); !ok {
			return nil, &UnclassifiableTypeError{Str: str, Flags: flags, Reason: "array type has no item type"}
		}
		return &reify.Type{Type: reify.TagArray, Str: str}, nil
	}

	if kind, ok := basicKind(flags); ok {
		return reify.NewBasic(kind, str), nil
	}

	if kind, ok := literalKind(flags); ok {
		value, err := e.literalValue(h, kind, str)
		if err != nil {
			return nil, err
		}
		return reify.NewLiteral(kind, value, str), nil
	}

	if e.ts.HasSymbol(h) {
		node := reify.NewObject(str)
		node.HasCallSignature = e.ts.HasCallSignature(h)
		return node, nil
	}

	return nil, &UnclassifiableTypeError{Str: str, Flags: flags}
}

func basicKind(flags Flags) (string, bool) {
	switch {
	case flags.Has(FlagAny):
		return reify.KindAny, true
	case flags.Has(FlagUnknown):
		return reify.KindUnknown, true
	case flags.Has(FlagString):
		return reify.KindString, true
	case flags.Has(FlagNumber):
		return reify.KindNumber, true
	case flags.Has(FlagBoolean):
		return reify.KindBoolean, true
	case flags.Has(FlagBigInt):
		return reify.KindBigInt, true
	case flags.Has(FlagESSymbol | FlagUniqueESSymbol):
		return reify.KindSymbol, true
	case flags.Has(FlagUndefined | FlagVoid):
		return reify.KindUndefined, true
	case flags.Has(FlagNull):
		return reify.KindNull, true
	case flags.Has(FlagNever):
		return reify.KindNever, true
	}
	return "", false
}

func literalKind(flags Flags) (string, bool) {
	switch {
	case flags.Has(FlagBigIntLiteral):
		return reify.KindBigInt, true
	case flags.Has(FlagEnumLiteral):
		return reify.KindEnum, true
	case flags.Has(FlagNumberLiteral):
		return reify.KindNumber, true
	case flags.Has(FlagStringLiteral):
		return reify.KindString, true
	case flags.Has(FlagBooleanLiteral):
		return reify.KindBoolean, true
	}
	return "", false
}

func (e *extractor) literalValue(h Handle, kind, str string) (any, error) {
	v, ok := e.ts.LiteralValue(h)
	if !ok || v == nil {
		return nil, &LiteralValueMissingError{Str: str, Kind: kind}
	}

	switch kind {
	case reify.KindBigInt:
		switch b := v.(type) {
		case BigIntValue:
			if b.Negative {
				return "-" + b.Base10Value, nil
			}
			return b.Base10Value, nil
		case string:
			return b, nil
		}
	case reify.KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		// Some checkers only expose the intrinsic name.
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b, nil
			}
		}
	default:
		switch n := v.(type) {
		case string, float64:
			return n, nil
		case int:
			return float64(n), nil
		}
	}
	return nil, &LiteralValueMissingError{Str: str, Kind: kind}
}
