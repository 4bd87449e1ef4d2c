package expand_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/expand"
	"github.com/walteh/tsmacro/pkg/host/lite"
	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/mapper"
	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/preprocess"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel).WithContext(context.Background())
}

func expr(name, module string, fn func(c *macro.Context, call *ast.Node, args []*ast.Node) (*ast.Node, error)) *macro.ExpressionMacro {
	return &macro.ExpressionMacro{Meta: macro.Meta{Name: name, Module: module}, Expand: fn}
}

// registry holds the macros shared by most tests.
func registry(t *testing.T) *macro.Registry {
	t.Helper()
	r := macro.NewRegistry()
	defs := []macro.Definition{
		expr("double", "pkgX", func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			return ast.Binary("*", args[0], ast.Num("2")), nil
		}),
		expr("inc", "", func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			return ast.Binary("+", args[0], ast.Num("1")), nil
		}),
		expr("outer", "", func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			return ast.Call(ast.Ident("inc"), args...), nil
		}),
		expr("fresh", "", func(c *macro.Context, _ *ast.Node, _ []*ast.Node) (*ast.Node, error) {
			return ast.Ident(c.GenerateUniqueName("tmp")), nil
		}),
		expr("fails", "", func(c *macro.Context, _ *ast.Node, _ []*ast.Node) (*ast.Node, error) {
			return nil, errors.New("boom")
		}),
		expr("positive", "", func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			c.ReportError(args[0], "expected a positive number, got %s", c.Print(args[0]))
			return nil, nil
		}),
		expr("explode", "", func(c *macro.Context, _ *ast.Node, _ []*ast.Node) (*ast.Node, error) {
			panic("kaboom")
		}),
		expr("check", "", func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			c.ReportWarning(args[0], "checked %s", c.Print(args[0]))
			return args[0], nil
		}),
		&macro.AttributeMacro{
			Meta: macro.Meta{Name: "toFactory"},
			Expand: func(c *macro.Context, _, target *ast.Node) ([]*ast.Node, error) {
				return []*ast.Node{
					ast.Function("make"+target.Name(), nil, ast.Params(), nil, ast.Block(ast.Return(ast.Str(target.Name())))),
				}, nil
			},
		},
		&macro.AttributeMacro{
			Meta: macro.Meta{Name: "drop"},
			Expand: func(c *macro.Context, _, _ *ast.Node) ([]*ast.Node, error) {
				return nil, nil
			},
		},
		&macro.DeriveMacro{
			Meta: macro.Meta{Name: "Eq"},
			Expand: func(c *macro.Context, target *ast.Node) ([]*ast.Node, error) {
				return []*ast.Node{ast.VarDecl("const", target.Name()+"Eq", nil, ast.Str(target.Name()))}, nil
			},
		},
		&macro.DeriveMacro{
			Meta: macro.Meta{Name: "Broken"},
			Expand: func(c *macro.Context, target *ast.Node) ([]*ast.Node, error) {
				return nil, errors.New("cannot derive")
			},
		},
		&macro.TaggedTemplateMacro{
			Meta: macro.Meta{Name: "sql"},
			Expand: func(c *macro.Context, _ *ast.Node, chunks []string, exprs []*ast.Node) (*ast.Node, error) {
				return ast.Call(ast.Ident("query"), ast.Str(strings.Join(chunks, "?")), ast.Array(exprs...)), nil
			},
		},
		&macro.TypeMacro{
			Meta: macro.Meta{Name: "Nullable"},
			Expand: func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
				return ast.TypeOp("|", args[0], ast.TypeRef("null")), nil
			},
		},
		&macro.LabeledBlockMacro{
			Meta: macro.Meta{Name: "comptime"},
			Expand: func(c *macro.Context, _ *ast.Node) ([]*ast.Node, error) {
				return c.ParseStatements("const built = 1;")
			},
		},
		&macro.LabeledBlockMacro{
			Meta: macro.Meta{Name: "debug", Module: "dbg"},
			Expand: func(c *macro.Context, _ *ast.Node) ([]*ast.Node, error) {
				return nil, nil
			},
		},
	}
	for _, d := range defs {
		require.NoError(t, r.Register(d))
	}
	return r
}

type fixture struct {
	registry *macro.Registry
	host     *lite.Program
	opts     expand.Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := lite.New()
	require.NoError(t, h.AddModule("pkgY", "export { double } from \"pkgX\";\n"))
	require.NoError(t, h.AddModule("pkgZ", "export * from \"pkgY\";\n"))
	return &fixture{registry: registry(t), host: h}
}

func (f *fixture) run(t *testing.T, text string) (*expand.Result, error) {
	t.Helper()
	ctx := testContext(t)
	root, err := f.host.ParseFile(ctx, "in.ts", text)
	require.NoError(t, err)
	return expand.New(f.registry, f.host, f.opts).Transform(ctx, expand.Input{File: "in.ts", Source: text, Root: root})
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		changed bool
	}{
		{
			name:    "aliased import",
			input:   "import { double as twice } from \"pkgX\";\nconst a = twice(21);\n",
			want:    "import { double as twice } from \"pkgX\";\nconst a = 21 * 2;\n",
			changed: true,
		},
		{
			name:    "re-export",
			input:   "import { double } from \"pkgY\";\nconst a = double(3);\n",
			want:    "import { double } from \"pkgY\";\nconst a = 3 * 2;\n",
			changed: true,
		},
		{
			name:    "export star chain",
			input:   "import { double } from \"pkgZ\";\nconst a = double(3);\n",
			want:    "import { double } from \"pkgZ\";\nconst a = 3 * 2;\n",
			changed: true,
		},
		{
			name:    "namespace member",
			input:   "import * as m from \"pkgX\";\nconst a = m.double(4);\n",
			want:    "import * as m from \"pkgX\";\nconst a = 4 * 2;\n",
			changed: true,
		},
		{
			name:  "same name from an unrelated module",
			input: "import { double } from \"other\";\nconst a = double(1);\n",
			want:  "import { double } from \"other\";\nconst a = double(1);\n",
		},
		{
			name:  "unimported module macro",
			input: "const a = double(1);\n",
			want:  "const a = double(1);\n",
		},
		{
			name:  "local declaration shadows",
			input: "function inc(x) { return x; }\nconst a = inc(2);\n",
			want:  "function inc(x) { return x; }\nconst a = inc(2);\n",
		},
		{
			name:    "ambient macro",
			input:   "const a = inc(2); // keep\n",
			want:    "const a = 2 + 1; // keep\n",
			changed: true,
		},
		{
			name:    "expansion produces another call",
			input:   "const a = outer(x);\n",
			want:    "const a = x + 1;\n",
			changed: true,
		},
		{
			name:    "outer call first",
			input:   "const a = inc(inc(1));\n",
			want:    "const a = 1 + 1 + 1;\n",
			changed: true,
		},
		{
			name:    "type macro",
			input:   "type T = Nullable<string>;\n",
			want:    "type T = string | null;\n",
			changed: true,
		},
		{
			name:    "tagged template",
			input:   "const q = sql`select ${id} from t`;\n",
			want:    "const q = query(\"select ? from t\", [id]);\n",
			changed: true,
		},
		{
			name:    "labeled block",
			input:   "comptime: {\n  emit(1);\n}\nconst z = 0;\n",
			want:    "const built = 1;\nconst z = 0;\n",
			changed: true,
		},
		{
			name:  "labeled block outside its module",
			input: "debug: {\n  emit(1);\n}\n",
			want:  "debug: {\n  emit(1);\n}\n",
		},
		{
			name:  "no macros",
			input: "const a = foo(1);\n",
			want:  "const a = foo(1);\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newFixture(t).run(t, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
			assert.Equal(t, tt.changed, res.Changed)
			assert.Empty(t, res.Diagnostics)
			if tt.changed {
				require.NotNil(t, res.Map)
				assert.Equal(t, []string{"in.ts"}, res.Map.Sources)
			} else {
				assert.Nil(t, res.Map)
			}
		})
	}
}

func TestTransformLabeledBlockWithItsModule(t *testing.T) {
	res, err := newFixture(t).run(t, "import \"dbg\";\ndebug: {\n  emit(1);\n}\nconst z = 0;\n")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.NotContains(t, res.Code, "debug")
	assert.Contains(t, res.Code, "const z = 0;")
}

func TestTransformDeclarations(t *testing.T) {
	t.Run("attribute keeps export", func(t *testing.T) {
		res, err := newFixture(t).run(t, "@toFactory\nexport class A {}\n")
		require.NoError(t, err)
		assert.Contains(t, res.Code, "export function makeA() {\n  return \"A\";\n}")
		assert.NotContains(t, res.Code, "class A")
		assert.NotContains(t, res.Code, "@toFactory")
	})

	t.Run("attribute removes", func(t *testing.T) {
		res, err := newFixture(t).run(t, "const a = 1;\n@drop\nclass B {}\nconst c = 2;\n")
		require.NoError(t, err)
		assert.NotContains(t, res.Code, "class B")
		assert.Contains(t, res.Code, "const a = 1;")
		assert.Contains(t, res.Code, "const c = 2;")
	})

	t.Run("derive", func(t *testing.T) {
		res, err := newFixture(t).run(t, "@derive(Eq)\nclass P {}\n")
		require.NoError(t, err)
		assert.Contains(t, res.Code, "class P {}")
		assert.Contains(t, res.Code, "const PEq = \"P\";")
		assert.NotContains(t, res.Code, "@derive")
		assert.Less(t, strings.Index(res.Code, "class P"), strings.Index(res.Code, "const PEq"))
	})

	t.Run("derive from jsdoc", func(t *testing.T) {
		res, err := newFixture(t).run(t, "/** @derive(Eq) */\ninterface U {\n  a: string;\n}\n")
		require.NoError(t, err)
		assert.Contains(t, res.Code, "interface U")
		assert.Contains(t, res.Code, "const UEq = \"U\";")
		assert.NotContains(t, res.Code, "@derive")
	})

	t.Run("failing derive is dropped alone", func(t *testing.T) {
		res, err := newFixture(t).run(t, "@derive(Broken, Eq)\nclass P {}\n")
		require.NoError(t, err)
		assert.Contains(t, res.Code, "const PEq = \"P\";")
		require.Len(t, res.Diagnostics, 1)
		assert.Contains(t, res.Diagnostics[0].Message, "cannot derive")
		assert.Equal(t, macro.DiagnosticCode, res.Diagnostics[0].Code)
	})
}

func TestTransformFailures(t *testing.T) {
	t.Run("error leaves the call", func(t *testing.T) {
		input := "const a = fails(1);\nconst b = inc(1);\n"
		res, err := newFixture(t).run(t, input)
		require.NoError(t, err)
		assert.Equal(t, "const a = fails(1);\nconst b = 1 + 1;\n", res.Code)
		require.Len(t, res.Diagnostics, 1)
		d := res.Diagnostics[0]
		assert.Equal(t, diagnostic.SeverityError, d.Severity)
		assert.Equal(t, `expression macro "fails" failed: boom`, d.Message)
		assert.Equal(t, position.Range{Start: position.Place{Line: 0, Character: 10}, End: position.Place{Line: 0, Character: 18}}, d.Range)
	})

	t.Run("error placeholder", func(t *testing.T) {
		f := newFixture(t)
		f.opts.ErrorPlaceholders = true
		res, err := f.run(t, "const a = fails(1);\n")
		require.NoError(t, err)
		assert.Equal(t, "const a = "+ast.ErrorHelper+"(\"boom\");\n", res.Code)
		assert.True(t, res.Changed)
		assert.Len(t, res.Diagnostics, 1)
	})

	t.Run("reported error", func(t *testing.T) {
		res, err := newFixture(t).run(t, "const a = positive(-1);\n")
		require.NoError(t, err)
		assert.False(t, res.Changed)
		require.Len(t, res.Diagnostics, 1, "the macro's own report is not repeated")
		d := res.Diagnostics[0]
		assert.Equal(t, "expected a positive number, got -1", d.Message)
		assert.Equal(t, position.Range{Start: position.Place{Line: 0, Character: 19}, End: position.Place{Line: 0, Character: 21}}, d.Range)
	})

	t.Run("panic", func(t *testing.T) {
		res, err := newFixture(t).run(t, "explode();\ninc(1);\n")
		require.NoError(t, err)
		assert.Equal(t, "explode();\n1 + 1;\n", res.Code)
		require.Len(t, res.Diagnostics, 1)
		assert.Contains(t, res.Diagnostics[0].Message, "kaboom")
	})
}

func TestTransformCycle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Register(expr("loop", "", func(c *macro.Context, _ *ast.Node, _ []*ast.Node) (*ast.Node, error) {
		return ast.Call(ast.Ident("loop")), nil
	})))

	input := "const a = 1;\nloop();\n"
	res, err := f.run(t, input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, expand.ErrExpansionCycle))
	require.NotNil(t, res)
	assert.Equal(t, input, res.Code)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, expand.CodeCycle, d.Code)
	assert.Equal(t, position.Range{Start: position.Place{Line: 1, Character: 0}, End: position.Place{Line: 1, Character: 6}}, d.Range)
}

func TestTransformLimits(t *testing.T) {
	grow := expr("grow", "", func(c *macro.Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
		return ast.Call(ast.Ident("grow"), ast.Binary("+", args[0], ast.Num("1"))), nil
	})

	t.Run("depth", func(t *testing.T) {
		f := newFixture(t)
		f.opts.MaxDepth = 5
		require.NoError(t, f.registry.Register(grow))

		res, err := f.run(t, "grow(x);\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, expand.ErrExpansionLimit))
		assert.Equal(t, "grow(x);\n", res.Code)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, expand.CodeLimit, res.Diagnostics[0].Code)
		assert.Equal(t, position.Place{Line: 0, Character: 0}, res.Diagnostics[0].Range.Start)
	})

	t.Run("count", func(t *testing.T) {
		f := newFixture(t)
		f.opts.MaxExpansions = 2
		_, err := f.run(t, "inc(1);\ninc(2);\ninc(3);\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, expand.ErrExpansionLimit))

		f.opts.MaxExpansions = 3
		res, err := f.run(t, "inc(1);\ninc(2);\ninc(3);\n")
		require.NoError(t, err)
		assert.Equal(t, "1 + 1;\n2 + 1;\n3 + 1;\n", res.Code)
	})
}

func TestTransformHygiene(t *testing.T) {
	input := "const tmp_0 = 1;\nconst a = fresh();\nconst b = fresh();\n"
	var outputs []string
	for i := 0; i < 2; i++ {
		res, err := newFixture(t).run(t, input)
		require.NoError(t, err)
		outputs = append(outputs, res.Code)
	}
	assert.Equal(t, "const tmp_0 = 1;\nconst a = tmp_1;\nconst b = tmp_2;\n", outputs[0])
	assert.Equal(t, outputs[0], outputs[1], "expansion is deterministic")
}

func TestTransformMapsThroughPreprocessing(t *testing.T) {
	ctx := testContext(t)
	original := "const v = a |> f; const w = check(v);\n"

	pre, err := preprocess.Preprocess(ctx, original, preprocess.Options{FileName: "in.ts"})
	require.NoError(t, err)
	require.True(t, pre.Changed)
	m, err := mapper.ForResult(pre)
	require.NoError(t, err)

	f := newFixture(t)
	root, err := f.host.ParseFile(ctx, "in.ts", pre.Code)
	require.NoError(t, err)
	res, err := expand.New(f.registry, f.host, expand.Options{}).Transform(ctx, expand.Input{
		File:   "in.ts",
		Source: pre.Code,
		Root:   root,
		Mapper: m,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Code, "const w = v;")

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diagnostic.SeverityWarning, d.Severity)
	assert.Equal(t, "checked v", d.Message)
	col := strings.Index(original, "v)")
	assert.Equal(t, position.Range{Start: position.Place{Character: col}, End: position.Place{Character: col + 1}}, d.Range)

	gen := position.NewLineIndex(res.Code).Place(strings.Index(res.Code, "const w"))
	got, ok := res.Mapper.ToOriginal(gen)
	require.True(t, ok)
	assert.Equal(t, position.Place{Character: strings.Index(original, "const w")}, got)
}

func TestRecords(t *testing.T) {
	res, err := newFixture(t).run(t, "const a = outer(x);\n")
	require.NoError(t, err)
	require.Equal(t, "const a = x + 1;\n", res.Code)
	require.Len(t, res.Records, 2)

	site := position.Range{Start: position.Place{Character: 10}, End: position.Place{Character: 18}}
	outer, inner := res.Records[0], res.Records[1]
	assert.Equal(t, "outer", outer.Macro)
	assert.Equal(t, 1, outer.Depth)
	assert.Equal(t, "inc", inner.Macro)
	assert.Equal(t, 2, inner.Depth)
	assert.Equal(t, site, outer.OriginalRange)
	assert.Equal(t, site, inner.OriginalRange, "a nested expansion reports the call the author wrote")

	generated := position.Range{Start: position.Place{Character: 10}, End: position.Place{Character: 15}}
	assert.Equal(t, generated, inner.GeneratedRange)
	assert.Equal(t, generated, outer.GeneratedRange)

	rec, ok := expand.RecordAt(res.Records, position.Place{Character: 12})
	require.True(t, ok)
	assert.Equal(t, inner.ID, rec.ID)

	_, ok = expand.RecordAt(res.Records, position.Place{Character: 2})
	assert.False(t, ok)
}
