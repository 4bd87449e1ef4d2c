package position

import (
	"fmt"
)

// Place is a zero-based line / character pair. Characters are counted in
// UTF-16 code units, the unit used by source maps and editors.
type Place struct {
	Line      int
	Character int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Before reports whether p sorts strictly before o.
func (p Place) Before(o Place) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

type Range struct {
	Start Place
	End   Place
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Contains reports whether p lies inside r (end exclusive, except for empty ranges).
func (r Range) Contains(p Place) bool {
	if p.Before(r.Start) {
		return false
	}
	if r.Start == r.End {
		return p == r.Start
	}
	return p.Before(r.End)
}

// Span is a half-open byte interval [Start, End) of a source text.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// Overlaps reports whether two spans share at least one byte. Two empty spans
// at the same offset also overlap: two insertions at one point are ambiguous.
func (s Span) Overlaps(o Span) bool {
	if s.Len() == 0 && o.Len() == 0 {
		return s.Start == o.Start
	}
	if s.Len() == 0 {
		return s.Start > o.Start && s.Start < o.End
	}
	if o.Len() == 0 {
		return o.Start > s.Start && o.Start < s.End
	}
	return s.Start < o.End && o.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
