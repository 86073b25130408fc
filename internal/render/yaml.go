// Package render prints decoded type graphs for humans.
package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tsmaterialise/tsmaterialise/reify"
)

// YAML renders t as a YAML document. A node reachable along more than one
// path, including through a cycle, is written once with an anchor (&n1) and
// referenced with aliases (*n1) everywhere else.
func YAML(t *reify.Type) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("render: nil type")
	}
	r := &yamlRenderer{
		refs:  countRefs(t),
		nodes: map[*reify.Type]*yaml.Node{},
	}
	root, err := r.node(t)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// countRefs counts incoming references per node. The root starts at one so
// that a cycle back to it makes it shared.
func countRefs(root *reify.Type) map[*reify.Type]int {
	refs := map[*reify.Type]int{root: 1}
	stack := []*reify.Type{root}
	seen := map[*reify.Type]bool{root: true}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range children(t) {
			if c == nil {
				continue
			}
			refs[c]++
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return refs
}

func children(t *reify.Type) []*reify.Type {
	var out []*reify.Type
	if t.ItemsType != nil {
		out = append(out, t.ItemsType)
	}
	for _, m := range t.Members {
		out = append(out, m.Type)
	}
	for _, sig := range t.IndexSignatures {
		out = append(out, sig.ValueType)
	}
	return append(out, t.Types...)
}

type yamlRenderer struct {
	refs    map[*reify.Type]int
	nodes   map[*reify.Type]*yaml.Node
	anchors int
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func str(s string) *yaml.Node { return scalar("!!str", s) }

func (r *yamlRenderer) node(t *reify.Type) (*yaml.Node, error) {
	if t == nil {
		return scalar("!!null", "null"), nil
	}
	if n, ok := r.nodes[t]; ok {
		return &yaml.Node{Kind: yaml.AliasNode, Value: n.Anchor, Alias: n}, nil
	}

	n := &yaml.Node{Kind: yaml.MappingNode}
	if r.refs[t] > 1 {
		r.anchors++
		n.Anchor = fmt.Sprintf("n%d", r.anchors)
	}
	r.nodes[t] = n

	add := func(key string, v *yaml.Node) {
		n.Content = append(n.Content, str(key), v)
	}
	add("type", str(string(t.Type)))
	add("str", str(t.Str))

	switch t.Type {
	case reify.TagBasic, reify.TagBuiltin:
		add("kind", str(t.Kind))
	case reify.TagLiteral:
		add("kind", str(t.Kind))
		v := &yaml.Node{}
		if err := v.Encode(t.Value); err != nil {
			return nil, fmt.Errorf("render: literal %s: %w", t.Str, err)
		}
		if t.Kind == reify.KindBigInt {
			v.Style = yaml.DoubleQuotedStyle
		}
		add("value", v)
	case reify.TagArray:
		items, err := r.node(t.ItemsType)
		if err != nil {
			return nil, err
		}
		add("itemsType", items)
	case reify.TagObject:
		members := &yaml.Node{Kind: yaml.MappingNode}
		for _, m := range t.Members {
			v, err := r.node(m.Type)
			if err != nil {
				return nil, err
			}
			members.Content = append(members.Content, str(m.Name), v)
		}
		add("members", members)
		add("hasCallSignature", scalar("!!bool", fmt.Sprint(t.HasCallSignature)))
		if len(t.IndexSignatures) > 0 {
			sigs := &yaml.Node{Kind: yaml.SequenceNode}
			for _, sig := range t.IndexSignatures {
				v, err := r.node(sig.ValueType)
				if err != nil {
					return nil, err
				}
				sigs.Content = append(sigs.Content, &yaml.Node{
					Kind:    yaml.MappingNode,
					Content: []*yaml.Node{str("keyType"), str(sig.KeyType), str("valueType"), v},
				})
			}
			add("indexSignatures", sigs)
		}
	case reify.TagUnion, reify.TagIntersection:
		types := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range t.Types {
			v, err := r.node(c)
			if err != nil {
				return nil, err
			}
			types.Content = append(types.Content, v)
		}
		add("types", types)
	}
	return n, nil
}
