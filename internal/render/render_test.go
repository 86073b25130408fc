package render

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tsmaterialise/tsmaterialise/reify"
)

func user() *reify.Type {
	u := reify.NewObject("User")
	u.Members = append(u.Members,
		reify.Member{Name: "id", Type: reify.NewBasic(reify.KindNumber, "number")},
		reify.Member{Name: "tags", Type: reify.NewArray(reify.NewBasic(reify.KindString, "string"), "string[]")},
	)
	return u
}

func TestYAMLPlain(t *testing.T) {
	out, err := YAML(user())
	if err != nil {
		t.Fatal(err)
	}
	want := `type: object
str: User
members:
  id:
    type: basic
    str: number
    kind: number
  tags:
    type: array
    str: string[]
    itemsType:
      type: basic
      str: string
      kind: string
hasCallSignature: false
`
	if string(out) != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
	if strings.Contains(string(out), "&") {
		t.Error("acyclic unshared graph should have no anchors")
	}
}

func TestYAMLShared(t *testing.T) {
	s := reify.NewBasic(reify.KindString, "string")
	u := reify.NewUnion("string | string[]", s, reify.NewArray(s, "string[]"))

	out, err := YAML(u)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	if strings.Count(text, "&n1") != 1 || strings.Count(text, "*n1") != 1 {
		t.Fatalf("expected one anchor and one alias:\n%s", text)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	types := decoded["types"].([]any)
	items := types[1].(map[string]any)["itemsType"].(map[string]any)
	if items["kind"] != "string" {
		t.Errorf("alias did not resolve: %v", items)
	}
}

func TestYAMLCycle(t *testing.T) {
	node := reify.NewObject("Node")
	node.Members = append(node.Members, reify.Member{Name: "next", Type: node})

	out, err := YAML(node)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	if !strings.Contains(text, "&n1") || !strings.Contains(text, "next: *n1") {
		t.Errorf("cycle not expressed with anchor and alias:\n%s", text)
	}
}

func TestYAMLLiterals(t *testing.T) {
	u := reify.NewUnion("lits",
		reify.NewLiteral(reify.KindString, "a", `"a"`),
		reify.NewLiteral(reify.KindNumber, 1.5, "1.5"),
		reify.NewLiteral(reify.KindBoolean, true, "true"),
		reify.NewLiteral(reify.KindBigInt, "-10", "-10n"),
	)
	out, err := YAML(u)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Types []struct {
			Value any `yaml:"value"`
		} `yaml:"types"`
	}
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	want := []any{"a", 1.5, true, "-10"}
	for i, w := range want {
		if decoded.Types[i].Value != w {
			t.Errorf("value %d = %#v, want %#v", i, decoded.Types[i].Value, w)
		}
	}
}

func TestYAMLNil(t *testing.T) {
	if _, err := YAML(nil); err == nil {
		t.Error("expected error for nil type")
	}
}

func TestSummary(t *testing.T) {
	u := user()
	dict := reify.NewObject("Dict")
	dict.IndexSignatures = []reify.IndexSignature{{KeyType: reify.KeyString, ValueType: u}}
	dict.HasCallSignature = true
	u.Members = append(u.Members, reify.Member{Name: "self", Type: u})
	root := reify.NewIntersection("User & Dict", u, dict)

	want := `intersection User & Dict
  & object User
    id: basic number
    tags: array string[]
      items: basic string
    self: object User (cycle)
  & object Dict (callable)
    [string]: object User (shared)
`
	if got := Summary(root); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSummaryLiteral(t *testing.T) {
	got := Summary(reify.NewLiteral(reify.KindString, "a b", `"a b"`))
	if got != "literal string \"a b\"\n" {
		t.Errorf("got %q", got)
	}
}
