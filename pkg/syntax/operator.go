package syntax

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/scanner"
)

// BinopHelper is the function every custom binary operator is lowered to:
// a OP b becomes __binop__(a, "OP", b).
const BinopHelper = "__binop__"

type Operator struct {
	Symbol     string
	Extension  string
	Precedence int
	RightAssoc bool
}

// Operators is the table of custom binary operators. They bind looser than
// every host operator. An operand of one operator spans tighter custom
// operators, so an unparenthesized mix of two of them produces rewrites that
// meet at the same offset and is rejected as ambiguous. Precedence decides how far
// an operand reaches, not how two operators nest: mixing `|>` and `::`
// requires parentheses, as in `(1 :: 2 :: []) |> f`.
var Operators = []Operator{
	{Symbol: "|>", Extension: "pipeline", Precedence: 1},
	{Symbol: "::", Extension: "cons", Precedence: 2, RightAssoc: true},
}

// customPrecedence returns the precedence of the custom operator at i.
func customPrecedence(tokens []scanner.Token, i int) (int, bool) {
	for _, op := range Operators {
		if tokens[i].IsPunct(op.Symbol) && scanner.IsBoundaryToken(tokens, i) {
			return op.Precedence, true
		}
	}
	return 0, false
}

type binaryOperator struct {
	op Operator
}

func NewBinaryOperator(op Operator) Extension {
	return &binaryOperator{op: op}
}

func (b *binaryOperator) Name() string {
	return b.op.Extension
}

func (b *binaryOperator) matches(tokens []scanner.Token, i int) bool {
	return tokens[i].IsPunct(b.op.Symbol) && scanner.IsBoundaryToken(tokens, i)
}

type operand struct {
	first, last int
}

func (b *binaryOperator) Apply(tokens []scanner.Token, text string) ([]Replacement, error) {
	var out []Replacement
	done := map[int]bool{}

	for i := range tokens {
		if done[i] || !b.matches(tokens, i) {
			continue
		}

		first := operandStart(tokens, i, b.op.Precedence)
		if first < 0 {
			return nil, b.missing(tokens[i], "left")
		}
		operands := []operand{{first: first, last: scanner.PrevSignificant(tokens, i)}}

		op := i
		for {
			done[op] = true
			last, next := operandEnd(tokens, op, b.op.Precedence)
			if last < 0 {
				return nil, b.missing(tokens[op], "right")
			}
			operands = append(operands, operand{first: scanner.NextSignificant(tokens, op), last: last})
			if next >= len(tokens) || !b.matches(tokens, next) || tokens[next].Depth != tokens[op].Depth {
				break
			}
			op = next
		}

		out = append(out, b.rewrite(tokens, operands)...)
	}

	return coalesce(out), nil
}

func (b *binaryOperator) missing(tok scanner.Token, side string) error {
	return errors.Errorf("%w: %s operand of %q at offset %d", ErrMissingOperand, side, b.op.Symbol, tok.Start)
}

func (b *binaryOperator) rewrite(tokens []scanner.Token, operands []operand) []Replacement {
	n := len(operands)
	sep := fmt.Sprintf(", %q, ", b.op.Symbol)
	call := BinopHelper + "("

	gap := func(k int) (int, int) {
		return tokens[operands[k].last].End, tokens[operands[k+1].first].Start
	}

	reps := make([]Replacement, 0, n+1)
	if b.op.RightAssoc {
		// a :: b :: c  =>  __binop__(a, "::", __binop__(b, "::", c))
		reps = append(reps, Replacement{Start: tokens[operands[0].first].Start, End: tokens[operands[0].first].Start, NewText: call})
		for k := 0; k < n-1; k++ {
			start, end := gap(k)
			text := sep
			if k < n-2 {
				text += call
			}
			reps = append(reps, Replacement{Start: start, End: end, NewText: text})
		}
	} else {
		// a |> b |> c  =>  __binop__(__binop__(a, "|>", b), "|>", c)
		reps = append(reps, Replacement{Start: tokens[operands[0].first].Start, End: tokens[operands[0].first].Start, NewText: strings.Repeat(call, n-1)})
		for k := 0; k < n-1; k++ {
			start, end := gap(k)
			text := sep
			if k > 0 {
				text = ")" + sep
			}
			reps = append(reps, Replacement{Start: start, End: end, NewText: text})
		}
	}

	end := tokens[operands[n-1].last].End
	closing := ")"
	if b.op.RightAssoc {
		closing = strings.Repeat(")", n-1)
	}
	return append(reps, Replacement{Start: end, End: end, NewText: closing})
}
