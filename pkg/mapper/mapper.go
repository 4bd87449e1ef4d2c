// Package mapper translates positions between an original text and a
// rewritten one.
package mapper

import (
	"github.com/emirpasic/gods/v2/trees/redblacktree"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/preprocess"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

type Direction int

const (
	ToOriginal Direction = iota
	ToTransformed
)

// Mapper converts positions in both directions. A false result means no
// mapping exists at or before the position.
type Mapper interface {
	ToOriginal(p position.Place) (position.Place, bool)
	ToTransformed(p position.Place) (position.Place, bool)
}

type identity struct{}

// Identity maps every position onto itself.
func Identity() Mapper {
	return identity{}
}

func (identity) ToOriginal(p position.Place) (position.Place, bool)    { return p, true }
func (identity) ToTransformed(p position.Place) (position.Place, bool) { return p, true }

// SourceMap resolves positions through decoded source map segments using
// floor lookups: a position maps through the nearest segment at or before it,
// exactly inside text that was copied unchanged.
type SourceMap struct {
	forward *redblacktree.Tree[position.Place, position.Place]
	reverse *redblacktree.Tree[position.Place, position.Place]
}

func comparePlaces(a, b position.Place) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

// FromRaw decodes raw. An empty mapping table yields Identity.
func FromRaw(raw *sourcemap.Raw) (Mapper, error) {
	if raw == nil {
		return Identity(), nil
	}
	lines, err := sourcemap.Decode(raw)
	if err != nil {
		return nil, errors.Errorf("decoding source map: %w", err)
	}

	sm := &SourceMap{
		forward: redblacktree.NewWith[position.Place, position.Place](comparePlaces),
		reverse: redblacktree.NewWith[position.Place, position.Place](comparePlaces),
	}
	for _, segs := range lines {
		for _, seg := range segs {
			if seg.Source != 0 {
				continue
			}
			sm.forward.Put(seg.Generated, seg.Original)
			// several generated places can share an original one; the last
			// is the text that was actually written there
			sm.reverse.Put(seg.Original, seg.Generated)
		}
	}
	if sm.forward.Empty() {
		return Identity(), nil
	}
	return sm, nil
}

// ForResult picks the mapper for a preprocessing result.
func ForResult(res *preprocess.Result) (Mapper, error) {
	if res == nil || !res.Changed || res.Map == nil {
		return Identity(), nil
	}
	return FromRaw(res.Map)
}

func (m *SourceMap) ToOriginal(p position.Place) (position.Place, bool) {
	return floor(m.forward, p)
}

func (m *SourceMap) ToTransformed(p position.Place) (position.Place, bool) {
	return floor(m.reverse, p)
}

// floor maps p through the nearest segment at or before it. When that
// segment starts a run copied verbatim, p keeps its column offset into the
// run; otherwise it lands on the segment's target.
func floor(tree *redblacktree.Tree[position.Place, position.Place], p position.Place) (position.Place, bool) {
	node, ok := tree.Floor(p)
	if !ok {
		return position.Place{}, false
	}
	from, to := node.Key, node.Value
	if p == from || p.Line != from.Line {
		return to, true
	}
	next, ok := tree.Ceiling(position.Place{Line: from.Line, Character: from.Character + 1})
	if ok && verbatim(from, to, next.Key, next.Value) {
		return position.Place{Line: to.Line, Character: to.Character + p.Character - from.Character}, true
	}
	return to, true
}

// verbatim reports whether the text between two consecutive segments is the
// same on both sides: equal column spans on one line, or both running to the
// start of the following line.
func verbatim(from, to, nextFrom, nextTo position.Place) bool {
	if nextFrom.Line == from.Line && nextTo.Line == to.Line {
		return nextFrom.Character-from.Character == nextTo.Character-to.Character
	}
	return nextFrom == position.Place{Line: from.Line + 1} && nextTo == position.Place{Line: to.Line + 1}
}

// Chain composes stages ordered from the author's text outwards: stage i
// maps between the output of stage i-1 and its own output.
func Chain(stages ...Mapper) Mapper {
	var flat []Mapper
	for _, s := range stages {
		switch s := s.(type) {
		case identity:
		case chain:
			flat = append(flat, s...)
		default:
			flat = append(flat, s)
		}
	}
	if len(flat) == 0 {
		return Identity()
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return chain(flat)
}

type chain []Mapper

func (c chain) ToOriginal(p position.Place) (position.Place, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		var ok bool
		if p, ok = c[i].ToOriginal(p); !ok {
			return position.Place{}, false
		}
	}
	return p, true
}

func (c chain) ToTransformed(p position.Place) (position.Place, bool) {
	for _, m := range c {
		var ok bool
		if p, ok = m.ToTransformed(p); !ok {
			return position.Place{}, false
		}
	}
	return p, true
}

func mapPlace(m Mapper, p position.Place, dir Direction) (position.Place, bool) {
	if dir == ToTransformed {
		return m.ToTransformed(p)
	}
	return m.ToOriginal(p)
}

// MapRange maps both endpoints and fails if either does. An end that lands
// before the start collapses onto it.
func MapRange(m Mapper, r position.Range, dir Direction) (position.Range, bool) {
	start, ok := mapPlace(m, r.Start, dir)
	if !ok {
		return position.Range{}, false
	}
	end, ok := mapPlace(m, r.End, dir)
	if !ok {
		return position.Range{}, false
	}
	if end.Before(start) {
		end = start
	}
	return position.Range{Start: start, End: end}, true
}

// MapDiagnostic moves a diagnostic raised against transformed text onto the
// original. When the range cannot be mapped the start alone is tried; if that
// fails too the diagnostic is returned unchanged.
func MapDiagnostic(m Mapper, d diagnostic.Diagnostic) diagnostic.Diagnostic {
	if r, ok := MapRange(m, d.Range, ToOriginal); ok {
		d.Range = r
		return d
	}
	if p, ok := m.ToOriginal(d.Range.Start); ok {
		d.Range = position.Range{Start: p, End: p}
	}
	return d
}

func MapDiagnostics(m Mapper, list diagnostic.List) diagnostic.List {
	out := make(diagnostic.List, 0, len(list))
	for _, d := range list {
		out = append(out, MapDiagnostic(m, d))
	}
	return out
}

// Compose builds a single map from raw's generated text to the original text
// of m, where raw's original text is m's transformed text. Segments whose
// place m cannot translate are dropped.
func Compose(raw *sourcemap.Raw, m Mapper, source, content string) (*sourcemap.Raw, error) {
	lines, err := sourcemap.Decode(raw)
	if err != nil {
		return nil, errors.Errorf("decoding source map: %w", err)
	}
	b := sourcemap.NewBuilder(raw.File, source, content)
	for _, segs := range lines {
		for _, seg := range segs {
			if seg.Source != 0 {
				continue
			}
			orig, ok := m.ToOriginal(seg.Original)
			if !ok {
				continue
			}
			name := ""
			if seg.Name >= 0 && seg.Name < len(raw.Names) {
				name = raw.Names[seg.Name]
			}
			b.Add(seg.Generated, orig, name)
		}
	}
	return b.Build(), nil
}
