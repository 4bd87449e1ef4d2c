package preprocess_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/preprocess"
	"github.com/walteh/tsmacro/pkg/scanner"
	"github.com/walteh/tsmacro/pkg/sourcemap"
	"github.com/walteh/tsmacro/pkg/syntax"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel).WithContext(context.Background())
}

func TestPreprocessScenarios(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		extensions []string
		contains   string
	}{
		{"cons", "const r = 1 :: 2 :: [];", []string{"cons"}, `__binop__(1, "::", __binop__(2, "::", []))`},
		{"pipeline", "x |> f |> g", []string{"pipeline"}, `__binop__(__binop__(x, "|>", f), "|>", g)`},
		{"all built-ins", "@brand type Id<F<_>> = F<string>;\nconst v = id |> f;", nil, `/** @brand */ type Id<F extends __HKT__> = __kind__<F, string>;` + "\n" + `const v = __binop__(id, "|>", f);`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := preprocess.Preprocess(testContext(t), tt.input, preprocess.Options{FileName: "in.ts", Extensions: tt.extensions})
			require.NoError(t, err)
			assert.True(t, res.Changed)
			assert.Contains(t, res.Code, tt.contains)
			require.NotNil(t, res.Map)
			assert.Equal(t, 3, res.Map.Version)
			assert.Equal(t, []string{"in.ts"}, res.Map.Sources)
			assert.Equal(t, []string{tt.input}, res.Map.SourcesContent)
		})
	}
}

func TestPreprocessWithoutTriggers(t *testing.T) {
	inputs := []string{
		"",
		"const s = \"a |> b\"; // x :: y\n",
		"a || b; c ? d : e; type T<X> = X[];",
		"/* @derive(Eq) interface */ class A {}",
		"const t = `${a |> b}`;",
	}
	for _, input := range inputs {
		res, err := preprocess.Preprocess(testContext(t), input, preprocess.Options{})
		require.NoError(t, err)
		assert.False(t, res.Changed, input)
		assert.Equal(t, input, res.Code)
		assert.Nil(t, res.Map)
	}
}

func TestPreprocessOverlap(t *testing.T) {
	wrapAll := syntax.New("wrap-all", func(tokens []scanner.Token, text string) ([]syntax.Replacement, error) {
		return []syntax.Replacement{{Start: 0, End: len(text), NewText: "(" + text + ")"}}, nil
	})
	renameB := syntax.New("rename-b", func(tokens []scanner.Token, text string) ([]syntax.Replacement, error) {
		i := strings.Index(text, "b")
		return []syntax.Replacement{{Start: i, End: i + 1, NewText: "c"}}, nil
	})

	_, err := preprocess.Preprocess(testContext(t), "a + b", preprocess.Options{
		Extensions: []string{},
		Extra:      []syntax.Extension{wrapAll, renameB},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, preprocess.ErrOverlap))

	var overlap *preprocess.OverlapError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, "wrap-all", overlap.First.Extension)
	assert.Equal(t, "rename-b", overlap.Second.Extension)
	assert.Equal(t, 4, overlap.Second.Start)
	assert.Contains(t, err.Error(), "ambiguous rewrite")
}

func TestPreprocessMixedOperatorsAreAmbiguous(t *testing.T) {
	_, err := preprocess.Preprocess(testContext(t), "a |> b :: c", preprocess.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, preprocess.ErrOverlap))

	res, err := preprocess.Preprocess(testContext(t), "a |> (b :: c)", preprocess.Options{})
	require.NoError(t, err)
	assert.Equal(t, `__binop__(a, "|>", (__binop__(b, "::", c)))`, res.Code)

	_, err = preprocess.Preprocess(testContext(t), "1 :: 2 :: [] |> f", preprocess.Options{})
	assert.True(t, errors.Is(err, preprocess.ErrOverlap), "precedence does not nest two operators")

	res, err = preprocess.Preprocess(testContext(t), "(1 :: 2 :: []) |> f", preprocess.Options{})
	require.NoError(t, err)
	assert.Equal(t, `__binop__((__binop__(1, "::", __binop__(2, "::", []))), "|>", f)`, res.Code)
}

func TestPreprocessInsertionsAtDistinctOffsets(t *testing.T) {
	before := syntax.New("before", func(tokens []scanner.Token, text string) ([]syntax.Replacement, error) {
		return []syntax.Replacement{{Start: 0, End: 0, NewText: "/*1*/"}}, nil
	})
	after := syntax.New("after", func(tokens []scanner.Token, text string) ([]syntax.Replacement, error) {
		return []syntax.Replacement{{Start: 0, End: 1, NewText: "y"}}, nil
	})

	res, err := preprocess.Preprocess(testContext(t), "x;", preprocess.Options{Extensions: []string{}, Extra: []syntax.Extension{after, before}})
	require.NoError(t, err)
	assert.Equal(t, "/*1*/y;", res.Code)
}

func TestPreprocessErrors(t *testing.T) {
	t.Run("lexical", func(t *testing.T) {
		_, err := preprocess.Preprocess(testContext(t), "x |> \"open", preprocess.Options{FileName: "bad.ts"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, scanner.ErrUnterminated))
		assert.Contains(t, err.Error(), "bad.ts:1:6")
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := preprocess.Preprocess(testContext(t), "x", preprocess.Options{Extensions: []string{"nope"}})
		assert.True(t, errors.Is(err, syntax.ErrUnknownExtension))
	})

	t.Run("replacement out of range", func(t *testing.T) {
		bad := syntax.New("bad", func(tokens []scanner.Token, text string) ([]syntax.Replacement, error) {
			return []syntax.Replacement{{Start: 2, End: 99}}, nil
		})
		_, err := preprocess.Preprocess(testContext(t), "x", preprocess.Options{Extensions: []string{}, Extra: []syntax.Extension{bad}})
		assert.True(t, errors.Is(err, preprocess.ErrInvalidReplacement))
	})
}

func TestPreprocessSegments(t *testing.T) {
	input := "x |> f\nconst y = 1"
	res, err := preprocess.Preprocess(testContext(t), input, preprocess.Options{})
	require.NoError(t, err)
	require.Equal(t, "__binop__(x, \"|>\", f)\nconst y = 1", res.Code)

	lines, err := sourcemap.Decode(res.Map)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	type pair struct{ gen, orig int }
	var first []pair
	for _, seg := range lines[0] {
		require.Equal(t, 0, seg.Original.Line)
		first = append(first, pair{seg.Generated.Character, seg.Original.Character})
	}
	// insertion, x, the operator gap, f, the closing insertion, the newline
	assert.Equal(t, []pair{{0, 0}, {10, 0}, {11, 1}, {19, 5}, {20, 6}, {21, 6}}, first)

	var second []int
	for _, seg := range lines[1] {
		assert.Equal(t, 1, seg.Original.Line)
		assert.Equal(t, seg.Generated.Character, seg.Original.Character)
		second = append(second, seg.Generated.Character)
	}
	assert.Equal(t, []int{0, 6, 8, 10}, second)
}

func TestPreprocessNameHints(t *testing.T) {
	res, err := preprocess.Preprocess(testContext(t), "type T<F<_>> = F<string>;", preprocess.Options{Extensions: []string{"hkt"}})
	require.NoError(t, err)
	assert.Equal(t, "type T<F extends __HKT__> = __kind__<F, string>;", res.Code)
	assert.Equal(t, []string{"F"}, res.Map.Names)

	lines, err := sourcemap.Decode(res.Map)
	require.NoError(t, err)
	var named []sourcemap.Segment
	for _, seg := range lines[0] {
		if seg.Name >= 0 {
			named = append(named, seg)
		}
	}
	require.Len(t, named, 1)
	assert.Equal(t, strings.Index(res.Code, "<F, ")+1, named[0].Generated.Character)
	assert.Equal(t, strings.LastIndex("type T<F<_>> = F<string>;", "F<"), named[0].Original.Character)
}
