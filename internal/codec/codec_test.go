package codec

import (
	"errors"
	"testing"

	"github.com/tsmaterialise/tsmaterialise/internal/flatted"
	"github.com/tsmaterialise/tsmaterialise/reify"
)

// linkedList builds `interface Node { value: number; next: Node | null }`.
func linkedList() *reify.Type {
	node := reify.NewObject("Node")
	next := reify.NewUnion("Node | null", node, reify.NewBasic(reify.KindNull, "null"))
	node.Members = append(node.Members,
		reify.Member{Name: "value", Type: reify.NewBasic(reify.KindNumber, "number")},
		reify.Member{Name: "next", Type: next},
	)
	return node
}

func TestEncodeBasicLayout(t *testing.T) {
	got, err := Encode(reify.NewBasic(reify.KindString, "string"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `[{"type":"1","str":"2","kind":"2"},"basic","string"]`
	if got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}

func TestEncodeLiteral(t *testing.T) {
	got, err := Encode(reify.NewLiteral(reify.KindNumber, 42.0, "42"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `[{"type":"1","str":"2","kind":"3","value":42},"literal","42","number"]`
	if got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}

func TestRoundTripPreservesCycle(t *testing.T) {
	s, err := Encode(linkedList())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeType(s)
	if err != nil {
		t.Fatalf("DecodeType() error = %v", err)
	}

	if got.Type != reify.TagObject || got.Str != "Node" {
		t.Fatalf("root = %s %q", got.Type, got.Str)
	}
	if names := got.MemberNames(); len(names) != 2 || names[0] != "value" || names[1] != "next" {
		t.Errorf("member order = %v", names)
	}
	next := got.Member("next")
	if next == nil || next.Type != reify.TagUnion || len(next.Types) != 2 {
		t.Fatalf("next = %v", next)
	}
	if next.Types[0] != got {
		t.Error("next.types[0] should be the root node")
	}
	if next.Types[1].Kind != reify.KindNull {
		t.Errorf("next.types[1] = %v", next.Types[1])
	}
	if err := reify.Validate(got); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestRoundTripPreservesSharing(t *testing.T) {
	str := reify.NewBasic(reify.KindString, "string")
	obj := reify.NewObject("Pair")
	obj.Members = append(obj.Members,
		reify.Member{Name: "a", Type: str},
		reify.Member{Name: "b", Type: str},
	)
	obj.IndexSignatures = []reify.IndexSignature{{KeyType: reify.KeyString, ValueType: str}}

	s, err := Encode(obj)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeType(s)
	if err != nil {
		t.Fatalf("DecodeType() error = %v", err)
	}
	a, b := got.Member("a"), got.Member("b")
	if a == nil || a != b {
		t.Error("members a and b should share one node")
	}
	if got.IndexSignature(reify.KeyString) != a {
		t.Error("index signature should share the member node")
	}
}

func TestEncodeIsStable(t *testing.T) {
	first, err := Encode(linkedList())
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeType(first)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encode(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("re-encoding changed output:\n%s\n%s", first, second)
	}
}

func TestDecodeTypeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"garbage", `not json`, flatted.ErrMalformed},
		{"number root", `[1]`, ErrNotType},
		{"unknown tag", `[{"type":"1","str":"2"},"class","Foo"]`, ErrNotType},
		{"missing str", `[{"type":"1"},"basic"]`, ErrNotType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeType(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeType() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBindMalformedChild(t *testing.T) {
	// members.x is a number; the root still binds and Validate flags the child.
	got, err := DecodeType(`[{"type":"1","str":"2","members":"3","hasCallSignature":false,"indexSignatures":"4"},"object","X",{"x":5},[]]`)
	if err != nil {
		t.Fatalf("DecodeType() error = %v", err)
	}
	if len(got.Members) != 1 || got.Members[0].Type != nil {
		t.Fatalf("members = %+v", got.Members)
	}
	var verr *reify.ValidationError
	if err := reify.Validate(got); !errors.As(err, &verr) {
		t.Errorf("Validate() error = %v, want *ValidationError", err)
	}
}
