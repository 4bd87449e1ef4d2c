package mapper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/mapper"
	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/preprocess"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

func at(line, char int) position.Place {
	return position.Place{Line: line, Character: char}
}

func TestIdentityRoundTrip(t *testing.T) {
	m := mapper.Identity()
	for line := 0; line < 20; line++ {
		for char := 0; char < 40; char += 3 {
			p := at(line, char)
			tr, ok := m.ToTransformed(p)
			require.True(t, ok)
			back, ok := m.ToOriginal(tr)
			require.True(t, ok)
			assert.Equal(t, p, back)

			orig, ok := m.ToOriginal(p)
			require.True(t, ok)
			back, ok = m.ToTransformed(orig)
			require.True(t, ok)
			assert.Equal(t, p, back)
		}
	}
}

func TestForResult(t *testing.T) {
	ctx := context.Background()

	res, err := preprocess.Preprocess(ctx, "const a = 1;", preprocess.Options{})
	require.NoError(t, err)
	m, err := mapper.ForResult(res)
	require.NoError(t, err)
	assert.Equal(t, mapper.Identity(), m)

	res, err = preprocess.Preprocess(ctx, "x |> f", preprocess.Options{})
	require.NoError(t, err)
	m, err = mapper.ForResult(res)
	require.NoError(t, err)
	assert.IsType(t, &mapper.SourceMap{}, m)

	// __binop__(x, "|>", f)
	tests := []struct {
		name string
		gen  position.Place
		orig position.Place
	}{
		{"operand x", at(0, 10), at(0, 0)},
		{"operand f", at(0, 19), at(0, 5)},
		{"inside the operator text floors to the gap start", at(0, 15), at(0, 1)},
		{"inserted call head maps to the expression start", at(0, 3), at(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.ToOriginal(tt.gen)
			require.True(t, ok)
			assert.Equal(t, tt.orig, got)
		})
	}

	got, ok := m.ToTransformed(at(0, 5))
	require.True(t, ok)
	assert.Equal(t, at(0, 19), got)

	got, ok = m.ToTransformed(at(0, 0))
	require.True(t, ok)
	assert.Equal(t, at(0, 10), got, "an original place prefers the text written for it over an insertion")
}

func TestUnchangedTextMapsExactly(t *testing.T) {
	text := "const total = x |> f;\nlet longName = total\nnext;\n"
	res, err := preprocess.Preprocess(context.Background(), text, preprocess.Options{})
	require.NoError(t, err)
	require.Equal(t, "const total = __binop__(x, \"|>\", f);\nlet longName = total\nnext;\n", res.Code)
	m, err := mapper.ForResult(res)
	require.NoError(t, err)

	tests := []struct {
		name string
		gen  position.Place
		orig position.Place
	}{
		{"inside a token before the rewrite", at(0, 8), at(0, 8)},
		{"inside a token after the rewrite", at(1, 7), at(1, 7)},
		{"inside the last token of a line", at(1, 17), at(1, 17)},
		{"inside the inserted call head", at(0, 17), at(0, 14)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.ToOriginal(tt.gen)
			require.True(t, ok)
			assert.Equal(t, tt.orig, got)
		})
	}

	got, ok := m.ToTransformed(at(1, 7))
	require.True(t, ok)
	assert.Equal(t, at(1, 7), got)
}

func TestEmptyMappingsIsIdentity(t *testing.T) {
	m, err := mapper.FromRaw(&sourcemap.Raw{Version: 3, Mappings: ";;"})
	require.NoError(t, err)
	assert.Equal(t, mapper.Identity(), m)
}

func TestUnmappedBeforeFirstSegment(t *testing.T) {
	b := sourcemap.NewBuilder("", "a.ts", "")
	b.Add(at(1, 4), at(0, 0), "")
	m, err := mapper.FromRaw(b.Build())
	require.NoError(t, err)

	_, ok := m.ToOriginal(at(0, 2))
	assert.False(t, ok)

	_, ok = mapper.MapRange(m, position.Range{Start: at(0, 2), End: at(1, 6)}, mapper.ToOriginal)
	assert.False(t, ok, "a range fails when either endpoint does")

	r, ok := mapper.MapRange(m, position.Range{Start: at(1, 4), End: at(3, 0)}, mapper.ToOriginal)
	require.True(t, ok)
	assert.Equal(t, position.Range{Start: at(0, 0), End: at(0, 0)}, r)
}

func TestMapDiagnostic(t *testing.T) {
	b := sourcemap.NewBuilder("", "a.ts", "")
	b.Add(at(0, 10), at(2, 3), "")
	b.Add(at(0, 20), at(2, 9), "")
	m, err := mapper.FromRaw(b.Build())
	require.NoError(t, err)

	d := diagnostic.Errorf("a.ts", position.Range{Start: at(0, 12), End: at(0, 22)}, "x", "boom")
	got := mapper.MapDiagnostic(m, d)
	assert.Equal(t, position.Range{Start: at(2, 3), End: at(2, 9)}, got.Range)
	assert.Equal(t, "boom", got.Message)

	unmapped := diagnostic.Errorf("a.ts", position.Range{Start: at(0, 1), End: at(0, 2)}, "x", "early")
	assert.Equal(t, unmapped, mapper.MapDiagnostic(m, unmapped))

	list := mapper.MapDiagnostics(m, diagnostic.List{d, unmapped})
	assert.Equal(t, at(2, 3), list[0].Range.Start)
	assert.Equal(t, at(0, 1), list[1].Range.Start)
}

func TestChain(t *testing.T) {
	// stage one: original -> middle shifts everything right by 4 columns
	one := sourcemap.NewBuilder("", "orig.ts", "")
	one.Add(at(0, 4), at(0, 0), "")
	one.Add(at(0, 9), at(0, 5), "")
	first, err := mapper.FromRaw(one.Build())
	require.NoError(t, err)

	// stage two: middle -> final moves line 0 to line 2
	two := sourcemap.NewBuilder("", "middle.ts", "")
	two.Add(at(2, 0), at(0, 0), "")
	two.Add(at(2, 7), at(0, 9), "")
	second, err := mapper.FromRaw(two.Build())
	require.NoError(t, err)

	m := mapper.Chain(first, mapper.Identity(), second)

	p, ok := m.ToOriginal(at(2, 8))
	require.True(t, ok)
	assert.Equal(t, at(0, 5), p)

	p, ok = m.ToTransformed(at(0, 5))
	require.True(t, ok)
	assert.Equal(t, at(2, 7), p)

	_, ok = m.ToOriginal(at(1, 0))
	assert.False(t, ok)

	assert.Equal(t, first, mapper.Chain(mapper.Identity(), first))
	assert.Equal(t, mapper.Identity(), mapper.Chain())
}

func TestCompose(t *testing.T) {
	one := sourcemap.NewBuilder("", "orig.ts", "")
	one.Add(at(0, 4), at(0, 0), "")
	one.Add(at(0, 9), at(0, 5), "")
	first, err := mapper.FromRaw(one.Build())
	require.NoError(t, err)

	two := sourcemap.NewBuilder("final.ts", "middle.ts", "")
	two.Add(at(2, 0), at(0, 0), "")
	two.Add(at(2, 7), at(0, 9), "value")

	raw, err := mapper.Compose(two.Build(), first, "orig.ts", "original text")
	require.NoError(t, err)
	assert.Equal(t, "final.ts", raw.File)
	assert.Equal(t, []string{"orig.ts"}, raw.Sources)
	assert.Equal(t, []string{"original text"}, raw.SourcesContent)
	assert.Equal(t, []string{"value"}, raw.Names)

	segs, err := sourcemap.Decode(raw)
	require.NoError(t, err)
	var all []sourcemap.Segment
	for _, line := range segs {
		all = append(all, line...)
	}
	require.Len(t, all, 1, "a place before the first stage's first segment is dropped")
	assert.Equal(t, at(2, 7), all[0].Generated)
	assert.Equal(t, at(0, 5), all[0].Original)
}
