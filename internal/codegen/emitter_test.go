package codegen

import (
	"testing"
)

func TestEmitterLine(t *testing.T) {
	e := NewEmitter()
	e.Line("const x = 1;")
	if got := e.String(); got != "const x = 1;\n" {
		t.Errorf("got %q", got)
	}
}

func TestEmitterBlank(t *testing.T) {
	e := NewEmitter()
	e.Line("a")
	e.Blank()
	e.Line("b")
	if got := e.String(); got != "a\n\nb\n" {
		t.Errorf("got %q", got)
	}
}

func TestEmitterNestedBlocks(t *testing.T) {
	e := NewEmitter()
	e.Block("function foo()")
	e.Block("if (x)")
	e.Line("return;")
	e.Close("")
	e.Close("")
	expected := "function foo() {\n  if (x) {\n    return;\n  }\n}\n"
	if got := e.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestEmitterChain(t *testing.T) {
	e := NewEmitter()
	e.Block("try")
	e.Line("run();")
	e.Chain("catch")
	e.Line("fail();")
	e.Close("")
	expected := "try {\n  run();\n} catch {\n  fail();\n}\n"
	if got := e.String(); got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestEmitterCloseSuffix(t *testing.T) {
	e := NewEmitter()
	e.Block("const f = () =>")
	e.Line("// n = %d", 3)
	e.Close(";")
	e.Close("")
	if got := e.String(); got != "const f = () => {\n  // n = 3\n};\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestJSString(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{"line\u2028sep", `"line\u2028sep"`},
	}
	for _, tt := range tests {
		if got := jsString(tt.in); got != tt.want {
			t.Errorf("jsString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
