package lite

import (
	"strings"

	"github.com/walteh/tsmacro/pkg/ast"
)

const unknown = "unknown"

// TypeOf answers from literals, annotations and top-level declarations of the
// file. Anything it cannot see through is "unknown".
func (p *Program) TypeOf(file string, node *ast.Node) string {
	p.mu.RLock()
	sc := p.files[file]
	p.mu.RUnlock()
	c := &checker{scope: sc, visiting: map[string]bool{}}
	return c.typeOf(node)
}

type checker struct {
	scope    *scope
	visiting map[string]bool
}

func (c *checker) typeOf(n *ast.Node) string {
	switch n.Kind() {
	case ast.KindNumber:
		return "number"
	case ast.KindString, ast.KindTemplate, ast.KindTaggedTemplate:
		return "string"
	case ast.KindRegex:
		return "RegExp"
	case ast.KindArray:
		elems := n.Children()
		if len(elems) == 0 {
			return "unknown[]"
		}
		elem := c.typeOf(elems[0])
		for _, e := range elems[1:] {
			if c.typeOf(e) != elem {
				return "unknown[]"
			}
		}
		if strings.ContainsAny(elem, "|&") {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case ast.KindObject:
		return "object"
	case ast.KindParen:
		return c.typeOf(n.Child(0))
	case ast.KindAs:
		if n.Value() == "as" {
			return render(n.Child(1))
		}
		return c.typeOf(n.Child(0))
	case ast.KindArrow, ast.KindFunction:
		return "function"
	case ast.KindConditional:
		then, otherwise := c.typeOf(n.Child(1)), c.typeOf(n.Child(2))
		if then == otherwise {
			return then
		}
		return then + " | " + otherwise
	case ast.KindUnary:
		switch n.Name() {
		case "!", "delete":
			return "boolean"
		case "typeof":
			return "string"
		case "void":
			return "undefined"
		case "-", "+", "~", "++", "--":
			return "number"
		case "new":
			if callee := n.Child(0).Callee(); callee.Is(ast.KindIdent) {
				return callee.Name()
			}
		}
		return unknown
	case ast.KindPostfix:
		if n.Name() == "!" {
			return strings.TrimSuffix(strings.TrimSuffix(c.typeOf(n.Child(0)), " | null"), " | undefined")
		}
		return "number"
	case ast.KindBinary:
		return c.binary(n)
	case ast.KindCall:
		callee := n.Callee()
		if callee.Is(ast.KindIdent) {
			if decl := c.decl(callee.Name()); decl.Is(ast.KindFunction) && decl.Child(3) != nil {
				return render(decl.Child(3))
			}
		}
		return unknown
	case ast.KindIdent:
		return c.ident(n.Name())
	}
	return unknown
}

func (c *checker) binary(n *ast.Node) string {
	switch n.Name() {
	case "===", "!==", "==", "!=", "<", ">", "<=", ">=", "instanceof", "in":
		return "boolean"
	case "-", "*", "/", "%", "**", "&", "|", "^":
		return "number"
	case "+":
		l, r := c.typeOf(n.Child(0)), c.typeOf(n.Child(1))
		if l == "string" || r == "string" {
			return "string"
		}
		if l == "number" && r == "number" {
			return "number"
		}
		return unknown
	case "=":
		return c.typeOf(n.Child(1))
	}
	return unknown
}

func (c *checker) ident(name string) string {
	switch name {
	case "true", "false":
		return "boolean"
	case "null":
		return "null"
	case "undefined":
		return "undefined"
	}
	decl := c.decl(name)
	switch decl.Kind() {
	case ast.KindVarDecl:
		if t := decl.PropertyType(); t != nil {
			return render(t)
		}
		if c.visiting[name] {
			return unknown
		}
		c.visiting[name] = true
		defer delete(c.visiting, name)
		if init := decl.Init(); init != nil {
			return c.typeOf(init)
		}
	case ast.KindFunction:
		return "function"
	case ast.KindClass:
		return "typeof " + name
	}
	return unknown
}

func (c *checker) decl(name string) *ast.Node {
	if c.scope == nil {
		return nil
	}
	return c.scope.decls[name]
}

func render(t *ast.Node) string {
	return ast.Print(t, "").Code
}
