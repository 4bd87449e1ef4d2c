package lite_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/host/lite"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel).WithContext(context.Background())
}

func TestParseFilePrintsUnchanged(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"statements", "const a = foo(1, 2);\n// note\nlet b: number[] = [a];\n"},
		{"imports", "import D, { x as y } from \"m\";\nimport * as ns from './n';\n"},
		{"class", "@derive(Debug)\nexport class Point {\n  x: number = 0;\n  norm(): number { return this.x; }\n}\n"},
		{"interface with doc", "/** @derive(Json) */\ninterface User {\n  name: string;\n  age?: number;\n}\n"},
		{"labeled", "comptime: {\n  emit(1);\n}\n"},
		{"arrow and generics", "const f = (x: number): number => x;\nconst g = id<string>(\"a\");\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := lite.New()
			root, err := p.ParseFile(testContext(t), "a.ts", tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.text, ast.Print(root, tt.text).Code)
		})
	}
}

func TestSpans(t *testing.T) {
	text := "const a = foo(1, 2);\nexport function f(x: number) { return x; }\n"
	root, err := lite.New().ParseFile(testContext(t), "a.ts", text)
	require.NoError(t, err)
	require.Equal(t, 2, root.Len())

	slice := func(n *ast.Node) string {
		s, ok := n.Span()
		require.True(t, ok, "%s has no span", n)
		return text[s.Start:s.End]
	}

	decl := root.Child(0)
	assert.Equal(t, "const a = foo(1, 2);", slice(decl))
	assert.Equal(t, "foo(1, 2)", slice(decl.Init()))
	assert.Equal(t, "(1, 2)", slice(decl.Init().Child(2)))

	fn := root.Child(1)
	assert.Equal(t, ast.KindFunction, fn.Kind())
	assert.True(t, fn.HasModifier("export"))
	assert.Equal(t, "export function f(x: number) { return x; }", slice(fn))
	assert.Equal(t, "{ return x; }", slice(fn.Body()))
}

func TestJSDocDecorators(t *testing.T) {
	text := "/** @derive(Json, Debug) */\nexport interface User { name: string }\n"
	root, err := lite.New().ParseFile(testContext(t), "a.ts", text)
	require.NoError(t, err)

	iface := root.Child(0)
	require.Equal(t, ast.KindInterface, iface.Kind())
	decs := iface.Decorators()
	require.Len(t, decs, 1)
	assert.Equal(t, "derive", decs[0].Name())
	assert.Equal(t, "jsdoc", decs[0].Value())
	require.Len(t, decs[0].Args(), 2)
	assert.Equal(t, "Json", decs[0].Args()[0].Name())

	s, _ := decs[0].Span()
	assert.Equal(t, "/** @derive(Json, Debug) */", text[s.Start:s.End])
	s, _ = iface.Span()
	assert.Equal(t, 0, s.Start)
}

func TestResolve(t *testing.T) {
	p := lite.New()
	require.NoError(t, p.AddModule("macros", "export function format() {}\n"))
	require.NoError(t, p.AddModule("reexport", "export { format as fmt } from \"macros\";\nexport * from \"extra\";\n"))

	text := "import { fmt as f } from \"reexport\";\nimport * as m from \"macros\";\nconst local = 1;\n"
	_, err := p.ParseFile(testContext(t), "a.ts", text)
	require.NoError(t, err)

	tests := []struct {
		name string
		want host.Binding
	}{
		{"f", host.Binding{Kind: host.BindingImport, Module: "reexport", ExportName: "fmt"}},
		{"m", host.Binding{Kind: host.BindingNamespace, Module: "macros"}},
		{"local", host.Binding{Kind: host.BindingLocal}},
		{"missing", host.Binding{Kind: host.BindingUnbound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ResolveIdentifier("a.ts", tt.name))
		})
	}

	next, name, ok := p.ResolveReexport("reexport", "fmt")
	require.True(t, ok)
	assert.Equal(t, "macros", next)
	assert.Equal(t, "format", name)

	_, _, ok = p.ResolveReexport("macros", "format")
	assert.False(t, ok, "a local export ends the chain")

	next, name, ok = p.ResolveReexport("reexport", "other")
	require.True(t, ok, "unknown names follow export *")
	assert.Equal(t, "extra", next)
	assert.Equal(t, "other", name)

	assert.Equal(t, []string{"reexport", "macros"}, p.ImportedModules("a.ts"))
	assert.Empty(t, p.ImportedModules("b.ts"))
}

func TestParseFragments(t *testing.T) {
	p := lite.New()

	expr, err := p.ParseExpression("foo(1, x.y)")
	require.NoError(t, err)
	assert.True(t, expr.IsSynthetic())
	assert.Equal(t, "foo(1, x.y)", ast.Print(expr, "").Code)

	stmts, err := p.ParseStatements("let a = 1; a = a + 1;")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.KindVarDecl, stmts[0].Kind())

	typ, err := p.ParseType("Map<string, number[]>")
	require.NoError(t, err)
	assert.Equal(t, "Map<string, number[]>", ast.Print(typ, "").Code)

	_, err = p.ParseExpression("foo(")
	require.Error(t, err)

	_, err = p.ParseType("=")
	require.Error(t, err)
	assert.True(t, errors.Is(err, lite.ErrSyntax))
}

func TestTypeOf(t *testing.T) {
	p := lite.New()
	text := "const n = 1;\nconst s: string = f();\nfunction f(): string { return \"\"; }\nclass C {}\nconst xs = [1, 2];\n"
	_, err := p.ParseFile(testContext(t), "a.ts", text)
	require.NoError(t, err)

	tests := []struct {
		expr string
		want string
	}{
		{"n", "number"},
		{"s", "string"},
		{"f()", "string"},
		{"xs", "number[]"},
		{"n + 1", "number"},
		{"n + s", "string"},
		{"n > 1", "boolean"},
		{"new C()", "C"},
		{"C", "typeof C"},
		{"x as Foo", "Foo"},
		{"(x) => x", "function"},
		{"missing", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			n, err := p.ParseExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.TypeOf("a.ts", n))
		})
	}
}
