package position

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// LineIndex converts between byte offsets and Places for one text.
type LineIndex struct {
	text  string
	lines []int // byte offset of the first byte of each line
}

func NewLineIndex(text string) *LineIndex {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &LineIndex{text: text, lines: lines}
}

func (li *LineIndex) LineCount() int {
	return len(li.lines)
}

// LineStart returns the byte offset at which line starts, clamped to the text.
func (li *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(li.lines) {
		return len(li.text)
	}
	return li.lines[line]
}

// Place converts a byte offset into a line / UTF-16 character pair.
func (li *LineIndex) Place(offset int) Place {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.text) {
		offset = len(li.text)
	}
	for offset > 0 && offset < len(li.text) && !utf8.RuneStart(li.text[offset]) {
		offset--
	}
	line := sort.Search(len(li.lines), func(i int) bool { return li.lines[i] > offset }) - 1
	return Place{Line: line, Character: utf16Len(li.text[li.lines[line]:offset])}
}

// Offset converts a Place back into a byte offset. Characters past the end of
// the line clamp to the line end.
func (li *LineIndex) Offset(p Place) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(li.lines) {
		return len(li.text)
	}
	start := li.lines[p.Line]
	end := len(li.text)
	if p.Line+1 < len(li.lines) {
		end = li.lines[p.Line+1] - 1
	}
	units := 0
	for i := start; i < end; {
		if units >= p.Character {
			return i
		}
		r, size := utf8.DecodeRuneInString(li.text[i:])
		units += utf16.RuneLen(r)
		if units > p.Character {
			// inside a surrogate pair; snap to the rune start
			return i
		}
		i += size
	}
	return end
}

func (li *LineIndex) Range(s Span) Range {
	return Range{Start: li.Place(s.Start), End: li.Place(s.End)}
}

func (li *LineIndex) Span(r Range) Span {
	return Span{Start: li.Offset(r.Start), End: li.Offset(r.End)}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r == utf8.RuneError {
			n++
			continue
		}
		n += utf16.RuneLen(r)
	}
	return n
}
