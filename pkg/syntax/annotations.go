package syntax

import (
	"strings"

	"github.com/walteh/tsmacro/pkg/scanner"
)

type annotations struct{}

// NewAnnotations moves decorators placed on interfaces and type aliases, where
// the host grammar rejects them, into JSDoc tags:
//
//	@derive(Eq) interface P {}  =>  /** @derive(Eq) */ interface P {}
//
// Decorators on classes are left alone.
func NewAnnotations() Extension {
	return &annotations{}
}

func (annotations) Name() string {
	return "annotations"
}

func (annotations) Apply(tokens []scanner.Token, text string) ([]Replacement, error) {
	var out []Replacement

	for i := 0; i < len(tokens); i++ {
		if _, ok := decoratorEnd(tokens, i); !ok {
			continue
		}

		// collect the whole run so "@a @b interface X" rewrites both
		type deco struct{ first, last int }
		var run []deco
		j := i
		for {
			last, ok := decoratorEnd(tokens, j)
			if !ok {
				break
			}
			run = append(run, deco{first: j, last: last})
			j = scanner.NextSignificant(tokens, last)
			if j < 0 {
				break
			}
		}

		if j >= 0 && annotatesTypeDeclaration(tokens, j) {
			for _, d := range run {
				src := text[tokens[d.first].Start:tokens[d.last].End]
				out = append(out, Replacement{
					Start:   tokens[d.first].Start,
					End:     tokens[d.last].End,
					NewText: "/** " + strings.ReplaceAll(src, "*/", "*\\/") + " */",
				})
			}
		}
		i = run[len(run)-1].last
	}

	return out, nil
}

// decoratorEnd matches "@name", "@a.b" or "@name(...)" at i and returns the
// index of its last token.
func decoratorEnd(tokens []scanner.Token, i int) (int, bool) {
	if i < 0 || i+1 >= len(tokens) || !tokens[i].IsPunct("@") {
		return 0, false
	}
	name := tokens[i+1]
	if name.Kind != scanner.KindIdent || name.Start != tokens[i].End {
		return 0, false
	}
	last := i + 1
	for last+2 < len(tokens) && tokens[last+1].IsPunct(".") && tokens[last+2].Kind == scanner.KindIdent {
		last += 2
	}
	if next := scanner.NextSignificant(tokens, last); next >= 0 && tokens[next].IsPunct("(") && !tokens[next].NewlineBefore {
		if close := scanner.GetMatchingClose(tokens, next); close >= 0 {
			last = close
		}
	}
	return last, true
}

func annotatesTypeDeclaration(tokens []scanner.Token, j int) bool {
	t := tokens[j]
	if t.Is(scanner.KindIdent, "export") || t.Is(scanner.KindIdent, "declare") {
		next := scanner.NextSignificant(tokens, j)
		return next >= 0 && annotatesTypeDeclaration(tokens, next)
	}
	if t.Is(scanner.KindIdent, "interface") {
		return true
	}
	if t.Is(scanner.KindIdent, "type") {
		next := scanner.NextSignificant(tokens, j)
		return next >= 0 && tokens[next].Kind == scanner.KindIdent
	}
	return false
}
