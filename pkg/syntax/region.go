package syntax

import (
	"github.com/walteh/tsmacro/pkg/scanner"
)

// punctuation that ends an operand at its own nesting level.
var operandStops = map[string]bool{
	";": true, ",": true, "?": true, ":": true, "...": true,
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "**=": true,
	"&=": true, "|=": true, "^=": true, "&&=": true, "||=": true, "??=": true,
}

// keywords that open a statement or clause an operand cannot cross.
var keywordStops = map[string]bool{
	"return": true, "throw": true, "yield": true, "case": true, "else": true, "do": true,
	"in": true, "of": true, "default": true, "export": true, "const": true, "let": true,
	"var": true, "if": true, "while": true, "for": true, "switch": true, "extends": true,
}

// punctuation that cannot continue the previous line's expression.
var lineStarters = map[string]bool{
	"++": true, "--": true, "!": true, "~": true, "{": true, "@": true, "#": true,
}

// isStop reports whether token j ends an operand of a custom operator with
// precedence prec.
func isStop(tokens []scanner.Token, j int, prec int) bool {
	t := tokens[j]
	switch t.Kind {
	case scanner.KindPunct:
		if p, ok := customPrecedence(tokens, j); ok {
			return p <= prec
		}
		return operandStops[t.Text]
	case scanner.KindIdent:
		if !keywordStops[t.Text] {
			return false
		}
		prev := scanner.PrevSignificant(tokens, j)
		return prev < 0 || !(tokens[prev].IsPunct(".") || tokens[prev].IsPunct("?."))
	}
	return false
}

func endsValue(t scanner.Token) bool {
	switch t.Kind {
	case scanner.KindIdent:
		return !t.IsExprKeyword() && !keywordStops[t.Text]
	case scanner.KindNumber, scanner.KindString, scanner.KindTemplate, scanner.KindRegex:
		return true
	case scanner.KindPunct:
		return t.Text == ")" || t.Text == "]" || t.Text == "}"
	}
	return false
}

func continuesLine(t scanner.Token) bool {
	return t.Kind == scanner.KindPunct && !lineStarters[t.Text]
}

func newlineBetween(tokens []scanner.Token, a, b int) bool {
	for k := a + 1; k <= b; k++ {
		if tokens[k].NewlineBefore {
			return true
		}
	}
	return false
}

// asiBreak reports whether a statement boundary falls between tokens a and b
// (a < b, both at the same level).
func asiBreak(tokens []scanner.Token, a, b int) bool {
	return newlineBetween(tokens, a, b) && endsValue(tokens[a]) && !continuesLine(tokens[b])
}

// operandStart returns the index of the first token of the operand that ends
// right before the operator at i, or -1 when there is none.
func operandStart(tokens []scanner.Token, i int, prec int) int {
	depth := tokens[i].Depth
	start := -1
	for j := i - 1; j >= 0; j-- {
		t := tokens[j]
		if t.IsTrivia() || t.Depth > depth {
			continue
		}
		if t.Depth < depth || isStop(tokens, j, prec) || t.IsPunct("=>") {
			break
		}
		if start >= 0 && asiBreak(tokens, j, start) {
			break
		}
		start = j
	}
	return start
}

// operandEnd returns the index of the last token of the operand that starts
// right after the operator at i, and the index of the token that stopped it
// (len(tokens) at end of input). last is -1 when the operand is empty.
func operandEnd(tokens []scanner.Token, i int, prec int) (last, next int) {
	depth := tokens[i].Depth
	last = -1
	for j := i + 1; j < len(tokens); j++ {
		t := tokens[j]
		if t.IsTrivia() || t.Depth > depth {
			continue
		}
		if t.Depth < depth || isStop(tokens, j, prec) {
			return last, j
		}
		if last >= 0 && asiBreak(tokens, last, j) {
			return last, j
		}
		last = j
	}
	return last, len(tokens)
}
