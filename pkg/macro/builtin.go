package macro

import (
	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/syntax"
)

// Binop lowers the helper calls the operator extensions leave behind:
//
//	__binop__(x, "|>", f)   ->  f(x)
//	__binop__(x, "::", xs)  ->  [x, ...xs]
func Binop() *ExpressionMacro {
	return &ExpressionMacro{
		Meta: Meta{Name: syntax.BinopHelper},
		Expand: func(c *Context, call *ast.Node, args []*ast.Node) (*ast.Node, error) {
			if len(args) != 3 || !args[1].Is(ast.KindString) {
				c.ReportError(call, "%s expects (left, \"operator\", right)", syntax.BinopHelper)
				return nil, nil
			}
			left, right := args[0], args[2]
			switch op := ast.Unquote(args[1].Value()); op {
			case "|>":
				return ast.Call(callable(right), left), nil
			case "::":
				return ast.Array(left, ast.Spread(right)), nil
			default:
				c.ReportError(args[1], "no lowering for operator %s", op)
				return nil, nil
			}
		},
	}
}

// callable parenthesizes a callee that would not bind as one when printed.
func callable(n *ast.Node) *ast.Node {
	switch n.Kind() {
	case ast.KindIdent, ast.KindMember, ast.KindIndex, ast.KindCall, ast.KindParen:
		return n
	}
	return ast.Paren(n)
}

// RegisterBuiltins adds the macros every project gets.
func RegisterBuiltins(r *Registry) error {
	return r.Register(Binop())
}
