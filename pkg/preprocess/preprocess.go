// Package preprocess runs the syntax extensions over a source text and splices
// their replacements into host-legal code with a source map back to the
// original.
package preprocess

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/scanner"
	"github.com/walteh/tsmacro/pkg/sourcemap"
	"github.com/walteh/tsmacro/pkg/syntax"
)

var (
	ErrOverlap            = errors.New("overlapping rewrites")
	ErrInvalidReplacement = errors.New("invalid replacement")
)

type Options struct {
	FileName string
	// Extensions names the built-ins to run; nil runs all of them.
	Extensions []string
	// Extra extensions run after the named built-ins.
	Extra []syntax.Extension
}

type Result struct {
	Code    string
	Changed bool
	// Map is nil when nothing changed.
	Map *sourcemap.Raw
	// Applied lists the replacements in splice order.
	Applied []Applied
}

type Applied struct {
	Extension string
	syntax.Replacement
}

func (a Applied) Span() position.Span {
	return position.Span{Start: a.Start, End: a.End}
}

// OverlapError reports two replacements that claim the same text.
type OverlapError struct {
	File   string
	First  Applied
	Second Applied
	Places [2]position.Place
}

func (e *OverlapError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%s: ambiguous rewrite: %s %s overlaps %s %s at %s",
		file, e.Places[0], e.First.Extension, e.First.Span(), e.Second.Extension, e.Second.Span(), e.Places[1])
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}

func Preprocess(ctx context.Context, text string, opts Options) (*Result, error) {
	exts, err := syntax.Lookup(opts.Extensions)
	if err != nil {
		return nil, err
	}
	exts = append(exts, opts.Extra...)

	tokens, err := scanner.Tokenize(text, scanner.Options{FileName: opts.FileName})
	if err != nil {
		return nil, errors.Errorf("tokenizing: %w", err)
	}

	var applied []Applied
	for _, ext := range exts {
		reps, err := ext.Apply(tokens, text)
		if err != nil {
			return nil, errors.Errorf("running %s extension: %w", ext.Name(), err)
		}
		for _, r := range reps {
			if r.Start < 0 || r.Start > r.End || r.End > len(text) {
				return nil, errors.Errorf("%w: %s produced [%d,%d) for a text of %d bytes", ErrInvalidReplacement, ext.Name(), r.Start, r.End, len(text))
			}
			applied = append(applied, Applied{Extension: ext.Name(), Replacement: r})
		}
	}

	sort.SliceStable(applied, func(i, j int) bool {
		if applied[i].Start != applied[j].Start {
			return applied[i].Start < applied[j].Start
		}
		return applied[i].End < applied[j].End
	})

	lines := position.NewLineIndex(text)
	if err := checkOverlap(applied, lines, opts.FileName); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Trace().Str("file", opts.FileName).Int("replacements", len(applied)).Int("extensions", len(exts)).Msg("preprocessing")

	if len(applied) == 0 {
		return &Result{Code: text}, nil
	}

	code, builder := splice(text, tokens, lines, applied, opts.FileName)
	if code == text {
		return &Result{Code: text, Applied: applied}, nil
	}

	return &Result{Code: code, Changed: true, Map: builder.Build(), Applied: applied}, nil
}

// checkOverlap expects applied sorted by (Start, End). A replacement can only
// overlap the previous one or the earlier one reaching furthest right.
func checkOverlap(applied []Applied, lines *position.LineIndex, file string) error {
	widest := -1
	for i := range applied {
		cur := applied[i]
		for _, j := range []int{i - 1, widest} {
			if j < 0 || j == i {
				continue
			}
			if applied[j].Span().Overlaps(cur.Span()) {
				return errors.WithStack(&OverlapError{
					File:   file,
					First:  applied[j],
					Second: cur,
					Places: [2]position.Place{lines.Place(applied[j].Start), lines.Place(cur.Start)},
				})
			}
		}
		if widest < 0 || cur.End > applied[widest].End {
			widest = i
		}
	}
	return nil
}

// cursor tracks the generated position while output is written.
type cursor struct {
	line, col int
}

func (c *cursor) advance(s string) {
	for _, r := range s {
		if r == '\n' {
			c.line++
			c.col = 0
			continue
		}
		if r >= 0x10000 {
			c.col += 2
		} else {
			c.col++
		}
	}
}

func (c *cursor) place() position.Place {
	return position.Place{Line: c.line, Character: c.col}
}

func splice(text string, tokens []scanner.Token, lines *position.LineIndex, applied []Applied, file string) (string, *sourcemap.Builder) {
	var out strings.Builder
	out.Grow(len(text) + len(text)/4)
	b := sourcemap.NewBuilder(file, file, text)
	gen := &cursor{}
	tok := 0

	copyRegion := func(start, end int) {
		// one segment at the region start, each token start and each line start
		marks := []int{start}
		for tok < len(tokens) && tokens[tok].Start < start {
			tok++
		}
		for k := tok; k < len(tokens) && tokens[k].Start < end; k++ {
			marks = append(marks, tokens[k].Start)
		}
		for line := lines.Place(start).Line + 1; line < lines.LineCount(); line++ {
			ls := lines.LineStart(line)
			if ls >= end {
				break
			}
			marks = append(marks, ls)
		}
		sort.Ints(marks)

		last := start
		for i, m := range marks {
			if i > 0 && m == marks[i-1] {
				continue
			}
			out.WriteString(text[last:m])
			gen.advance(text[last:m])
			last = m
			b.Add(gen.place(), lines.Place(m), "")
		}
		out.WriteString(text[last:end])
		gen.advance(text[last:end])
	}

	pos := 0
	for _, a := range applied {
		if a.Start > pos {
			copyRegion(pos, a.Start)
		}

		b.Add(gen.place(), lines.Place(a.Start), "")
		for _, h := range hintOffsets(text[a.Start:a.End], a.NewText, a.NameHints) {
			hc := *gen
			hc.advance(a.NewText[:h.generated])
			b.Add(hc.place(), lines.Place(a.Start+h.original), h.name)
		}

		out.WriteString(a.NewText)
		gen.advance(a.NewText)
		pos = a.End
	}
	if pos < len(text) {
		copyRegion(pos, len(text))
	}

	return out.String(), b
}

type hint struct {
	name      string
	original  int
	generated int
}

// hintOffsets locates each hinted identifier in the original span and in the
// replacement text. Hints that cannot be found in both are ignored.
func hintOffsets(original, replacement string, hints map[string]string) []hint {
	var out []hint
	for from, to := range hints {
		o := findIdent(original, from)
		g := findIdent(replacement, to)
		if o < 0 || g < 0 {
			continue
		}
		out = append(out, hint{name: from, original: o, generated: g})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].generated < out[j].generated
	})
	return out
}

func findIdent(s, ident string) int {
	if ident == "" {
		return -1
	}
	for from := 0; from < len(s); {
		k := strings.Index(s[from:], ident)
		if k < 0 {
			return -1
		}
		k += from
		end := k + len(ident)
		if (k == 0 || !isIdentByte(s[k-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return k
		}
		from = k + 1
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
