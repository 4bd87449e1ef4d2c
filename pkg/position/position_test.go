package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/tsmacro/pkg/position"
)

func TestLineIndexPlace(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		want   position.Place
	}{
		{
			name:   "empty text",
			text:   "",
			offset: 0,
			want:   position.Place{Line: 0, Character: 0},
		},
		{
			name:   "single line, middle position",
			text:   "Hello, World!",
			offset: 7,
			want:   position.Place{Line: 0, Character: 7},
		},
		{
			name:   "multiple lines, second line",
			text:   "Hello\nWorld\nTest zzz",
			offset: 8,
			want:   position.Place{Line: 1, Character: 2},
		},
		{
			name:   "offset on newline belongs to its line",
			text:   "ab\ncd",
			offset: 2,
			want:   position.Place{Line: 0, Character: 2},
		},
		{
			name:   "utf16 columns for astral runes",
			text:   "const s = \"😀\"; x",
			offset: len("const s = \"😀\"; "),
			want:   position.Place{Line: 0, Character: 16},
		},
		{
			name:   "offset past the end clamps",
			text:   "ab",
			offset: 10,
			want:   position.Place{Line: 0, Character: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := position.NewLineIndex(tt.text)
			assert.Equal(t, tt.want, idx.Place(tt.offset))
		})
	}
}

func TestLineIndexRoundTrip(t *testing.T) {
	text := "import { a } from \"m\";\n\tconst é = a(1);\n// 😀 done\n"
	idx := position.NewLineIndex(text)
	for off := 0; off <= len(text); off++ {
		p := idx.Place(off)
		back := idx.Offset(p)
		// offsets inside a multi-byte rune snap back to the rune start
		assert.LessOrEqual(t, back, off, "offset %d", off)
		assert.Equal(t, p, idx.Place(back), "offset %d", off)
	}
}

func TestSpanOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b position.Span
		want bool
	}{
		{"disjoint", position.Span{Start: 0, End: 2}, position.Span{Start: 2, End: 4}, false},
		{"shared byte", position.Span{Start: 0, End: 3}, position.Span{Start: 2, End: 4}, true},
		{"insert at same point", position.Span{Start: 3, End: 3}, position.Span{Start: 3, End: 3}, true},
		{"insert inside", position.Span{Start: 3, End: 3}, position.Span{Start: 1, End: 5}, true},
		{"insert at edge", position.Span{Start: 5, End: 5}, position.Span{Start: 1, End: 5}, false},
		{"insert at start edge", position.Span{Start: 1, End: 1}, position.Span{Start: 1, End: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}
