package syntax

import (
	"github.com/walteh/tsmacro/pkg/scanner"
)

const (
	// HKTMarker is the constraint given to a higher-kinded type parameter.
	HKTMarker = "__HKT__"
	// KindHelper is the generic type that applies a higher-kinded parameter.
	KindHelper = "__kind__"
)

var declarationKeywords = map[string]bool{
	"type": true, "interface": true, "class": true, "function": true,
}

var statementStarters = map[string]bool{
	"type": true, "interface": true, "class": true, "function": true, "const": true,
	"let": true, "var": true, "export": true, "import": true, "declare": true,
}

type hkt struct{}

// NewHKT rewrites higher-kinded type parameters. In
//
//	type Functor<F<_>> = { map: <A, B>(fa: F<A>, f: (a: A) => B) => F<B> }
//
// the parameter becomes "F extends __HKT__" and every "F<A>" inside the
// declaration becomes "__kind__<F, A>".
func NewHKT() Extension {
	return &hkt{}
}

func (hkt) Name() string {
	return "hkt"
}

type hktParam struct {
	name  string
	ident int
	close int
}

func (hkt) Apply(tokens []scanner.Token, text string) ([]Replacement, error) {
	var out []Replacement

	for i, t := range tokens {
		if t.Kind != scanner.KindIdent || !declarationKeywords[t.Text] {
			continue
		}
		if prev := scanner.PrevSignificant(tokens, i); prev >= 0 && (tokens[prev].IsPunct(".") || tokens[prev].IsPunct("?.")) {
			continue
		}
		name := scanner.NextSignificant(tokens, i)
		if name >= 0 && tokens[name].IsPunct("*") {
			name = scanner.NextSignificant(tokens, name)
		}
		if name < 0 || tokens[name].Kind != scanner.KindIdent {
			continue
		}
		open := scanner.NextSignificant(tokens, name)
		if open < 0 || !tokens[open].IsPunct("<") {
			continue
		}
		close := scanner.GetMatchingClose(tokens, open)
		if close < 0 {
			continue
		}

		params := hktParams(tokens, open, close)
		if len(params) == 0 {
			continue
		}

		byName := map[string]bool{}
		skip := map[int]bool{}
		for _, p := range params {
			byName[p.name] = true
			skip[p.ident] = true
			lt := scanner.NextSignificant(tokens, p.ident)
			out = append(out, Replacement{
				Start:   tokens[lt].Start,
				End:     tokens[p.close].End,
				NewText: " extends " + HKTMarker,
			})
		}

		end := scopeEnd(tokens, t.Text, open, close)
		for j := open + 1; j < end; j++ {
			if skip[j] || !isHKTApplication(tokens, j, byName) {
				continue
			}
			lt := scanner.NextSignificant(tokens, j)
			out = append(out, Replacement{
				Start:     tokens[j].Start,
				End:       tokens[lt].End,
				NewText:   KindHelper + "<" + tokens[j].Text + ", ",
				NameHints: map[string]string{tokens[j].Text: tokens[j].Text},
			})
		}
	}

	return coalesce(out), nil
}

// hktParams finds the "F<_>" entries directly inside the type parameter list.
func hktParams(tokens []scanner.Token, open, close int) []hktParam {
	var params []hktParam
	level := 0
	for j := open + 1; j < close; j++ {
		t := tokens[j]
		if t.IsTrivia() || t.Depth != tokens[open].Depth {
			continue
		}
		switch {
		case t.IsPunct("<"):
			level++
			continue
		case t.IsPunct(">"):
			level--
			continue
		}
		if level != 0 || t.Kind != scanner.KindIdent {
			continue
		}
		prev := scanner.PrevSignificant(tokens, j)
		if prev != open && !tokens[prev].IsPunct(",") {
			continue
		}
		if gt, ok := placeholderArgs(tokens, j); ok {
			params = append(params, hktParam{name: t.Text, ident: j, close: gt})
		}
	}
	return params
}

// placeholderArgs matches "<_>" after the identifier at j and returns the
// index of the '>'.
func placeholderArgs(tokens []scanner.Token, j int) (int, bool) {
	lt := scanner.NextSignificant(tokens, j)
	if lt < 0 || !tokens[lt].IsPunct("<") {
		return 0, false
	}
	u := scanner.NextSignificant(tokens, lt)
	if u < 0 || !tokens[u].Is(scanner.KindIdent, "_") {
		return 0, false
	}
	gt := scanner.NextSignificant(tokens, u)
	if gt < 0 || !tokens[gt].IsPunct(">") {
		return 0, false
	}
	return gt, true
}

func isHKTApplication(tokens []scanner.Token, j int, names map[string]bool) bool {
	t := tokens[j]
	if t.Kind != scanner.KindIdent || !names[t.Text] {
		return false
	}
	if prev := scanner.PrevSignificant(tokens, j); prev >= 0 && (tokens[prev].IsPunct(".") || tokens[prev].IsPunct("?.")) {
		return false
	}
	if _, ok := placeholderArgs(tokens, j); ok {
		return false
	}
	lt := scanner.NextSignificant(tokens, j)
	return lt >= 0 && tokens[lt].IsPunct("<") && scanner.GetMatchingClose(tokens, lt) >= 0
}

// scopeEnd returns the index just past the declaration whose type parameter
// list spans open..close.
func scopeEnd(tokens []scanner.Token, keyword string, open, close int) int {
	depth := tokens[open].Depth
	if keyword != "type" {
		for j := close + 1; j < len(tokens); j++ {
			if tokens[j].Depth < depth {
				return j
			}
			if tokens[j].Depth == depth && tokens[j].IsPunct("{") {
				if end := scanner.GetMatchingClose(tokens, j); end >= 0 {
					return end + 1
				}
			}
		}
		return len(tokens)
	}

	for j := close + 1; j < len(tokens); j++ {
		t := tokens[j]
		if t.Depth < depth || (t.Depth == depth && t.IsPunct(";")) {
			return j
		}
		if t.Depth == depth && t.NewlineBefore && t.Kind == scanner.KindIdent && statementStarters[t.Text] {
			return j
		}
	}
	return len(tokens)
}
