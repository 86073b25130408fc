package extract

import (
	"errors"
	"testing"

	"github.com/tsmaterialise/tsmaterialise/reify"
)

// fakeType is a hand-built type for exercising the traversal without a checker.
type fakeType struct {
	str        string
	flags      Flags
	types      []*fakeType
	arrayItem  *fakeType
	arrayLike  bool
	value      any
	symbol     bool
	props      []fakeProp
	indexes    []fakeIndex
	callable   bool
	typeToStrs int
}

type fakeProp struct {
	name string
	typ  *fakeType
}

type fakeIndex struct {
	key string
	typ *fakeType
}

type fakeTypeSystem struct{}

func (fakeTypeSystem) t(h Handle) *fakeType { return h.(*fakeType) }

func (s fakeTypeSystem) Flags(h Handle) Flags { return s.t(h).flags }

func (s fakeTypeSystem) TypeToString(h Handle) string {
	s.t(h).typeToStrs++
	return s.t(h).str
}

func (s fakeTypeSystem) Constituents(h Handle) []Handle {
	var out []Handle
	for _, c := range s.t(h).types {
		out = append(out, c)
	}
	return out
}

func (s fakeTypeSystem) IsArrayLike(h Handle) bool { return s.t(h).arrayLike }

func (s fakeTypeSystem) ArrayItem(h Handle) (Handle, bool) {
	if item := s.t(h).arrayItem; item != nil {
		return item, true
	}
	return nil, false
}

func (s fakeTypeSystem) LiteralValue(h Handle) (any, bool) {
	v := s.t(h).value
	return v, v != nil
}

func (s fakeTypeSystem) HasSymbol(h Handle) bool { return s.t(h).symbol }

func (s fakeTypeSystem) Properties(h Handle) []Property {
	var out []Property
	for _, p := range s.t(h).props {
		out = append(out, Property{Name: p.name, Type: p.typ})
	}
	return out
}

func (s fakeTypeSystem) IndexSignatures(h Handle) []IndexInfo {
	var out []IndexInfo
	for _, ix := range s.t(h).indexes {
		out = append(out, IndexInfo{KeyType: ix.key, ValueType: ix.typ})
	}
	return out
}

func (s fakeTypeSystem) HasCallSignature(h Handle) bool { return s.t(h).callable }

func basic(flags Flags, str string) *fakeType {
	return &fakeType{str: str, flags: flags}
}

func object(str string, props ...fakeProp) *fakeType {
	return &fakeType{str: str, flags: FlagObject, symbol: true, props: props}
}

func mustExtract(t *testing.T, root *fakeType) *reify.Type {
	t.Helper()
	got, err := Extract(fakeTypeSystem{}, root)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return got
}

func TestBasicKinds(t *testing.T) {
	tests := []struct {
		flags Flags
		want  string
	}{
		{FlagAny, reify.KindAny},
		{FlagUnknown, reify.KindUnknown},
		{FlagString, reify.KindString},
		{FlagNumber, reify.KindNumber},
		{FlagBoolean, reify.KindBoolean},
		{FlagBigInt, reify.KindBigInt},
		{FlagESSymbol, reify.KindSymbol},
		{FlagUniqueESSymbol, reify.KindSymbol},
		{FlagUndefined, reify.KindUndefined},
		{FlagVoid, reify.KindUndefined},
		{FlagNull, reify.KindNull},
		{FlagNever, reify.KindNever},
		// priority order
		{FlagAny | FlagString, reify.KindAny},
		{FlagString | FlagNumber, reify.KindString},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := mustExtract(t, basic(tt.flags, tt.want))
			if got.Type != reify.TagBasic || got.Kind != tt.want {
				t.Errorf("got %s %s, want basic %s", got.Type, got.Kind, tt.want)
			}
		})
	}
}

func TestLiteralKinds(t *testing.T) {
	tests := []struct {
		name      string
		typ       *fakeType
		wantKind  string
		wantValue any
	}{
		{"string", &fakeType{str: `"a"`, flags: FlagStringLiteral, value: "a"}, reify.KindString, "a"},
		{"number", &fakeType{str: "1", flags: FlagNumberLiteral, value: 1.0}, reify.KindNumber, 1.0},
		{"true", &fakeType{str: "true", flags: FlagBooleanLiteral, value: true}, reify.KindBoolean, true},
		{"false by name", &fakeType{str: "false", flags: FlagBooleanLiteral, value: "false"}, reify.KindBoolean, false},
		{"bigint", &fakeType{str: "10n", flags: FlagBigIntLiteral, value: BigIntValue{Base10Value: "10"}}, reify.KindBigInt, "10"},
		{"negative bigint", &fakeType{str: "-10n", flags: FlagBigIntLiteral, value: BigIntValue{Negative: true, Base10Value: "10"}}, reify.KindBigInt, "-10"},
		{"enum beats number", &fakeType{str: "E.A", flags: FlagEnumLiteral | FlagNumberLiteral, value: 0.0}, reify.KindEnum, 0.0},
		{"string enum", &fakeType{str: "E.B", flags: FlagEnumLiteral | FlagStringLiteral, value: "b"}, reify.KindEnum, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustExtract(t, tt.typ)
			if got.Type != reify.TagLiteral || got.Kind != tt.wantKind || got.Value != tt.wantValue {
				t.Errorf("got %s %s %v, want literal %s %v", got.Type, got.Kind, got.Value, tt.wantKind, tt.wantValue)
			}
		})
	}
}

func TestLiteralValueMissing(t *testing.T) {
	_, err := Extract(fakeTypeSystem{}, &fakeType{str: `"x"`, flags: FlagStringLiteral})
	var lerr *LiteralValueMissingError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *LiteralValueMissingError", err)
	}
	if lerr.Kind != reify.KindString {
		t.Errorf("Kind = %q", lerr.Kind)
	}
}

func TestUnclassifiable(t *testing.T) {
	_, err := Extract(fakeTypeSystem{}, &fakeType{str: "T[K]", flags: 0})
	var uerr *UnclassifiableTypeError
	if !errors.As(err, &uerr) {
		t.Fatalf("error = %v, want *UnclassifiableTypeError", err)
	}
	if uerr.Str != "T[K]" {
		t.Errorf("Str = %q", uerr.Str)
	}
}

func TestUnclassifiableChildAbortsExtraction(t *testing.T) {
	root := object("Box", fakeProp{"bad", &fakeType{str: "weird"}})
	if _, err := Extract(fakeTypeSystem{}, root); err == nil {
		t.Fatal("expected error from unclassifiable member")
	}
}

func TestEmptyTupleIsUnclassifiable(t *testing.T) {
	_, err := Extract(fakeTypeSystem{}, &fakeType{str: "[]", flags: FlagObject, arrayLike: true, symbol: true})
	var uerr *UnclassifiableTypeError
	if !errors.As(err, &uerr) {
		t.Fatalf("error = %v, want *UnclassifiableTypeError", err)
	}
}

func TestPrecedence(t *testing.T) {
	str := basic(FlagString, "string")
	tests := []struct {
		name string
		typ  *fakeType
		want reify.Tag
	}{
		{"type parameter beats union", &fakeType{str: "T", flags: FlagTypeParameter | FlagUnion}, reify.TagTypeParameter},
		{"union beats intersection", &fakeType{str: "A", flags: FlagUnion | FlagIntersection, types: []*fakeType{str}}, reify.TagUnion},
		{"array beats object", &fakeType{str: "string[]", flags: FlagObject, arrayLike: true, arrayItem: str, symbol: true}, reify.TagArray},
		{"basic beats literal", &fakeType{str: "x", flags: FlagString | FlagStringLiteral, value: "x"}, reify.TagBasic},
		{"literal beats object", &fakeType{str: `"x"`, flags: FlagStringLiteral, value: "x", symbol: true}, reify.TagLiteral},
		{"symbol makes object", &fakeType{str: "{}", symbol: true}, reify.TagObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustExtract(t, tt.typ)
			if got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
		})
	}
}

func TestUnionOrderPreserved(t *testing.T) {
	a := &fakeType{str: `"a"`, flags: FlagStringLiteral, value: "a"}
	b := &fakeType{str: `"b"`, flags: FlagStringLiteral, value: "b"}
	c := &fakeType{str: `"c"`, flags: FlagStringLiteral, value: "c"}
	root := &fakeType{str: `"a" | "b" | "c"`, flags: FlagUnion, types: []*fakeType{a, b, c}}

	got := mustExtract(t, root)
	if len(got.Types) != 3 {
		t.Fatalf("len(Types) = %d", len(got.Types))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got.Types[i].Value != want {
			t.Errorf("Types[%d] = %v, want %s", i, got.Types[i].Value, want)
		}
	}
}

func TestIntersection(t *testing.T) {
	a := object("A", fakeProp{"a", basic(FlagString, "string")})
	b := object("B", fakeProp{"b", basic(FlagNumber, "number")})
	got := mustExtract(t, &fakeType{str: "A & B", flags: FlagIntersection, types: []*fakeType{a, b}})
	if got.Type != reify.TagIntersection || len(got.Types) != 2 {
		t.Fatalf("got %v", got)
	}
	if got.Types[0].Str != "A" || got.Types[1].Str != "B" {
		t.Errorf("order = %s, %s", got.Types[0].Str, got.Types[1].Str)
	}
}

func TestObjectMembersAndIndexes(t *testing.T) {
	str := basic(FlagString, "string")
	num := basic(FlagNumber, "number")
	root := object("Dict",
		fakeProp{"size", num},
		fakeProp{"label", str},
	)
	root.indexes = []fakeIndex{{"string", str}, {"number", num}}
	root.callable = true

	got := mustExtract(t, root)
	if names := got.MemberNames(); len(names) != 2 || names[0] != "size" || names[1] != "label" {
		t.Errorf("members = %v", names)
	}
	if !got.HasCallSignature {
		t.Error("HasCallSignature = false")
	}
	if len(got.IndexSignatures) != 2 || got.IndexSignatures[0].KeyType != "string" || got.IndexSignatures[1].KeyType != "number" {
		t.Fatalf("index signatures = %+v", got.IndexSignatures)
	}
	if got.IndexSignature("string") != got.Member("label") {
		t.Error("string index and label should share the string node")
	}
}

func TestEmptyObject(t *testing.T) {
	got := mustExtract(t, object("{}"))
	if got.Members == nil || len(got.Members) != 0 {
		t.Errorf("Members = %#v, want empty non-nil", got.Members)
	}
}

func TestCycle(t *testing.T) {
	// interface Node { value: number; next: Node | null }
	node := object("Node", fakeProp{"value", basic(FlagNumber, "number")})
	next := &fakeType{str: "Node | null", flags: FlagUnion, types: []*fakeType{node, basic(FlagNull, "null")}}
	node.props = append(node.props, fakeProp{"next", next})

	got := mustExtract(t, node)
	n := got.Member("next")
	if n == nil || n.Type != reify.TagUnion {
		t.Fatalf("next = %v", n)
	}
	if n.Types[0] != got {
		t.Error("next.types[0] should be the root node")
	}
	if err := reify.Validate(got); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSelfReferentialArray(t *testing.T) {
	// type Tree = Tree[]
	tree := &fakeType{str: "Tree", flags: FlagObject, arrayLike: true, symbol: true}
	tree.arrayItem = tree
	got := mustExtract(t, tree)
	if got.ItemsType != got {
		t.Error("items should point back at the array node")
	}
}

func TestEachHandleClassifiedOnce(t *testing.T) {
	shared := basic(FlagString, "string")
	root := object("Pair", fakeProp{"a", shared}, fakeProp{"b", shared})
	got := mustExtract(t, root)
	if got.Member("a") != got.Member("b") {
		t.Error("shared handle produced two nodes")
	}
	if shared.typeToStrs != 1 {
		t.Errorf("shared type printed %d times, want 1", shared.typeToStrs)
	}
}

// nodes returns every node reachable from root.
func nodes(root *reify.Type) map[*reify.Type]bool {
	seen := map[*reify.Type]bool{}
	stack := []*reify.Type{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, n.ItemsType)
		stack = append(stack, n.Types...)
		for _, m := range n.Members {
			stack = append(stack, m.Type)
		}
		for _, sig := range n.IndexSignatures {
			stack = append(stack, sig.ValueType)
		}
	}
	return seen
}

func TestExtractIsIdempotent(t *testing.T) {
	// interface Node { value: number; tags: string[]; next: Node | null }
	node := object("Node",
		fakeProp{"value", basic(FlagNumber, "number")},
		fakeProp{"tags", &fakeType{str: "string[]", flags: FlagObject, arrayLike: true, arrayItem: basic(FlagString, "string"), symbol: true}},
	)
	next := &fakeType{str: "Node | null", flags: FlagUnion, types: []*fakeType{node, basic(FlagNull, "null")}}
	node.props = append(node.props, fakeProp{"next", next})

	first := mustExtract(t, node)
	second := mustExtract(t, node)
	if first.String() != second.String() {
		t.Errorf("second extraction differs:\n%s\n%s", first, second)
	}

	a, b := nodes(first), nodes(second)
	if len(a) != len(b) {
		t.Errorf("node counts differ: %d and %d", len(a), len(b))
	}
	for n := range b {
		if a[n] {
			t.Fatalf("node %v is shared between extractions", n)
		}
	}
}

func TestTupleCollapses(t *testing.T) {
	str := basic(FlagString, "string")
	tuple := &fakeType{str: "[string, number]", flags: FlagObject, arrayLike: true, arrayItem: str, symbol: true}
	got := mustExtract(t, tuple)
	if got.Type != reify.TagArray || got.ItemsType.Kind != reify.KindString {
		t.Errorf("got %v, want array of basic string", got)
	}
}

func TestDeepNestingDoesNotRecurse(t *testing.T) {
	// A long chain of wrapper objects; an explicit stack handles any depth.
	leaf := basic(FlagString, "string")
	cur := leaf
	for i := 0; i < 100000; i++ {
		cur = object("W", fakeProp{"inner", cur})
	}
	got := mustExtract(t, cur)
	depth := 0
	for n := got; n.Type == reify.TagObject; n = n.Member("inner") {
		depth++
	}
	if depth != 100000 {
		t.Errorf("depth = %d", depth)
	}
}
