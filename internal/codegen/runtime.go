package codegen

import (
	"fmt"
	"strings"

	"github.com/tsmaterialise/tsmaterialise/materialise"
	"github.com/tsmaterialise/tsmaterialise/reify"
)

// Format is the module system of the generated runtime.
type Format string

const (
	FormatESM Format = "esm"
	FormatCJS Format = "cjs"
)

// ParseFormat accepts "esm" or "cjs" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatESM, FormatCJS:
		return f, nil
	}
	return "", fmt.Errorf("unknown module format %q (want esm or cjs)", s)
}

// RuntimeOptions controls what the runtime module contains.
type RuntimeOptions struct {
	Format Format
	// MarkerProperty is the property the declarations put on withType and
	// materialise. Defaults to materialise.MarkerProperty.
	MarkerProperty string
	// Strict makes the runtime check every reachable node, not only the root.
	Strict bool
}

func (o RuntimeOptions) marker() string {
	if o.MarkerProperty == "" {
		return materialise.MarkerProperty
	}
	return o.MarkerProperty
}

// File is a generated output file.
type File struct {
	Path    string
	Content string
}

// RuntimeFiles returns the runtime module at jsPath and its declaration file
// next to it.
func RuntimeFiles(jsPath string, opts RuntimeOptions) []File {
	dts := strings.TrimSuffix(jsPath, ".js") + ".d.ts"
	for _, ext := range []string{".mjs", ".cjs"} {
		if strings.HasSuffix(jsPath, ext) {
			dts = strings.TrimSuffix(jsPath, ext) + ".d" + strings.Replace(ext, "j", "t", 1)
		}
	}
	return []File{
		{Path: jsPath, Content: RuntimeModule(opts)},
		{Path: dts, Content: RuntimeDeclarations(opts)},
	}
}

var exportedNames = []string{"RuntimeConfigurationError", "parse", "isType", "withType", "materialise"}

// RuntimeModule generates the JavaScript runtime: a flatted-compatible parse,
// the shallow isType check, and the withType/materialise entry points that
// rewritten calls reach. Every configuration failure throws the same
// RuntimeConfigurationError.
func RuntimeModule(opts RuntimeOptions) string {
	e := NewEmitter()
	cjs := opts.Format == FormatCJS
	export := "export "
	if cjs {
		export = ""
		e.Line(`"use strict";`)
		e.Line(`Object.defineProperty(exports, "__esModule", { value: true });`)
	}
	e.Line("// Generated by tsmaterialise. Do not edit.")
	e.Blank()

	tags := make([]string, len(reify.Tags))
	for i, tag := range reify.Tags {
		tags[i] = jsString(string(tag))
	}
	e.Line("const TAGS = new Set([%s]);", strings.Join(tags, ", "))
	e.Line("const NOT_CONFIGURED = %s;", jsString((&materialise.RuntimeConfigurationError{}).Error()))
	e.Blank()

	e.Block("%sclass RuntimeConfigurationError extends Error", export)
	e.Block("constructor()")
	e.Line("super(NOT_CONFIGURED);")
	e.Line(`this.name = "RuntimeConfigurationError";`)
	e.Close("")
	e.Close("")
	e.Blank()

	emitParse(e, export)
	e.Blank()

	e.Block("%sfunction isType(value)", export)
	e.Line(`return value !== null && typeof value === "object" && !Array.isArray(value) &&`)
	e.Line(`  TAGS.has(value.type) && typeof value.str === "string";`)
	e.Close("")
	e.Blank()

	if opts.Strict {
		emitValidate(e)
		e.Blank()
	}

	e.Block("function decode(encoded)")
	e.Block(`if (typeof encoded !== "string")`)
	e.Line("throw new RuntimeConfigurationError();")
	e.Close("")
	e.Line("let type;")
	e.Block("try")
	e.Line("type = parse(encoded);")
	e.Chain("catch")
	e.Line("throw new RuntimeConfigurationError();")
	e.Close("")
	check := "!isType(type)"
	if opts.Strict {
		check = "!isTypeGraph(type)"
	}
	e.Block("if (%s)", check)
	e.Line("throw new RuntimeConfigurationError();")
	e.Close("")
	e.Line("return type;")
	e.Close("")
	e.Blank()

	e.Block("%sfunction withType(fn)", export)
	e.Block("return function wrapped(encoded, ...args)")
	e.Line("return fn(decode(encoded), ...args);")
	e.Close(";")
	e.Close("")
	e.Blank()

	e.Block("%sfunction materialise(encoded)", export)
	e.Line("return decode(encoded);")
	e.Close("")

	if cjs {
		e.Blank()
		for _, name := range exportedNames {
			e.Line("exports.%s = %s;", name, name)
		}
	}
	return e.String()
}

func emitParse(e *Emitter, export string) {
	e.Block("%sfunction parse(text)", export)
	e.Line("const table = JSON.parse(text);")
	e.Block("if (!Array.isArray(table) || table.length === 0)")
	e.Line(`throw new SyntaxError("tsmaterialise: malformed type table");`)
	e.Close("")
	e.Line(`const nodes = table.map((entry) => entry === null || typeof entry !== "object" ? entry : Array.isArray(entry) ? [] : {});`)
	e.Block("const ref = (value) =>")
	e.Block(`if (value !== null && typeof value === "object")`)
	e.Line(`throw new SyntaxError("tsmaterialise: nested value in type table");`)
	e.Close("")
	e.Block(`if (typeof value !== "string")`)
	e.Line("return value;")
	e.Close("")
	e.Line("const index = Number(value);")
	e.Block("if (!Number.isInteger(index) || index < 0 || index >= nodes.length || String(index) !== value)")
	e.Line(`throw new SyntaxError("tsmaterialise: dangling reference " + value);`)
	e.Close("")
	e.Line("return nodes[index];")
	e.Close(";")
	e.Block("table.forEach((entry, i) =>")
	e.Block(`if (entry === null || typeof entry !== "object")`)
	e.Line("return;")
	e.Close("")
	e.Line("const node = nodes[i];")
	e.Block("if (Array.isArray(entry))")
	e.Line("for (const value of entry) node.push(ref(value));")
	e.Chain("else")
	e.Line("for (const key of Object.keys(entry)) node[key] = ref(entry[key]);")
	e.Close("")
	e.Close(");")
	e.Line("return nodes[0];")
	e.Close("")
}

func emitValidate(e *Emitter) {
	e.Block("function isTypeGraph(root)")
	e.Line("const seen = new Set();")
	e.Line("const stack = [root];")
	e.Block("while (stack.length > 0)")
	e.Line("const node = stack.pop();")
	e.Block("if (!isType(node))")
	e.Line("return false;")
	e.Close("")
	e.Block("if (seen.has(node))")
	e.Line("continue;")
	e.Close("")
	e.Line("seen.add(node);")
	e.Line("if (node.itemsType !== undefined) stack.push(node.itemsType);")
	e.Line("if (Array.isArray(node.types)) stack.push(...node.types);")
	e.Block(`if (node.members !== null && typeof node.members === "object")`)
	e.Line("stack.push(...Object.values(node.members));")
	e.Close("")
	e.Block("if (Array.isArray(node.indexSignatures))")
	e.Line("for (const sig of node.indexSignatures) stack.push(sig && sig.valueType);")
	e.Close("")
	e.Close("")
	e.Line("return true;")
	e.Close("")
}

// RuntimeDeclarations generates the .d.ts for the runtime module. The marker
// property on withType and materialise is what makes their calls eligible
// for rewriting.
func RuntimeDeclarations(opts RuntimeOptions) string {
	e := NewEmitter()
	marker := jsString(opts.marker())
	tags := make([]string, len(reify.Tags))
	for i, tag := range reify.Tags {
		tags[i] = jsString(string(tag))
	}

	e.Line("// Generated by tsmaterialise. Do not edit.")
	e.Blank()
	e.Block("export type Type =")
	e.Line("type: %s;", strings.Join(tags, " | "))
	e.Line("str: string;")
	e.Line("[field: string]: unknown;")
	e.Close(";")
	e.Blank()
	e.Line("export type HasMarker = { %s: unknown };", marker)
	e.Blank()
	e.Line("export declare class RuntimeConfigurationError extends Error {}")
	e.Line("export declare function parse(text: string): unknown;")
	e.Line("export declare function isType(value: unknown): value is Type;")
	e.Line("export declare function withType<F extends (type: Type, ...args: any[]) => any>(")
	e.Line("  fn: F,")
	e.Line("): (<T>(...args: F extends (type: Type, ...rest: infer P) => any ? P : never) => ReturnType<F>) & HasMarker;")
	e.Block("export declare const materialise:")
	e.Line("<T>(): Type;")
	e.Line("%s?: undefined;", marker)
	e.Close(";")
	return e.String()
}
