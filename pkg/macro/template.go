package macro

import (
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/ast"
)

var ErrTemplate = errors.New("bad macro template")

// NewTemplateExpression builds an expression macro from source text.
//
//	$0 .. $9   the printed arguments, parenthesized when compound
//	$@         all arguments, comma separated
//	$name$     a fresh identifier, the same one for every use in one expansion
//	$$         a literal dollar sign
func NewTemplateExpression(meta Meta, text string) *ExpressionMacro {
	return &ExpressionMacro{
		Meta: meta,
		Expand: func(c *Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			src, err := fillTemplate(c, text, args)
			if err != nil {
				return nil, err
			}
			return c.ParseExpression(src)
		},
	}
}

// NewTemplateType builds a type macro whose placeholders take the type
// arguments.
func NewTemplateType(meta Meta, text string) *TypeMacro {
	return &TypeMacro{
		Meta: meta,
		Expand: func(c *Context, _ *ast.Node, args []*ast.Node) (*ast.Node, error) {
			src, err := fillTemplate(c, text, args)
			if err != nil {
				return nil, err
			}
			return c.ParseType(src)
		},
	}
}

func fillTemplate(c *Context, text string, args []*ast.Node) (string, error) {
	var b strings.Builder
	fresh := map[string]string{}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '$' || i+1 == len(text) {
			b.WriteByte(ch)
			continue
		}
		next := text[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next >= '0' && next <= '9':
			idx := int(next - '0')
			if idx >= len(args) {
				return "", errors.Errorf("%w: $%d used but only %d arguments given", ErrTemplate, idx, len(args))
			}
			b.WriteString(argument(c, args[idx]))
			i++
		case next == '@':
			for j, a := range args {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(c.Print(a))
			}
			i++
		case isNameStart(next):
			end := strings.IndexByte(text[i+1:], '$')
			if end < 0 || !isName(text[i+1:i+1+end]) {
				return "", errors.Errorf("%w: unterminated placeholder at byte %d", ErrTemplate, i)
			}
			name := text[i+1 : i+1+end]
			if _, ok := fresh[name]; !ok {
				fresh[name] = c.GenerateUniqueName(name)
			}
			b.WriteString(fresh[name])
			i += end + 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), nil
}

func argument(c *Context, n *ast.Node) string {
	s := c.Print(n)
	switch n.Kind() {
	case ast.KindBinary, ast.KindConditional, ast.KindArrow, ast.KindAs, ast.KindTypeOp:
		return "(" + s + ")"
	}
	return s
}

func isName(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isNameStart(s[i]) && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return true
}

func isNameStart(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
