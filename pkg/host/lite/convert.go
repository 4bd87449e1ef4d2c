package lite

import (
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/scanner"
)

// converter turns grammar structs into ast nodes. With spans on, every node
// records the bytes it was parsed from and is marked pristine.
type converter struct {
	text     string
	all      []scanner.Token
	tokens   []scanner.Token
	spans    bool
	jsdocErr error
}

func newConverter(text string, toks []scanner.Token, spans bool) *converter {
	c := &converter{text: text, all: toks, spans: spans}
	for _, t := range toks {
		if !t.IsTrivia() {
			c.tokens = append(c.tokens, t)
		}
	}
	return c
}

// span trims a node's extent to its own tokens. The end position reported by
// the grammar is the start of whatever follows, trivia included.
func (c *converter) span(pos, end lexer.Position) position.Span {
	start := pos.Offset
	i := sort.Search(len(c.tokens), func(i int) bool { return c.tokens[i].End > end.Offset }) - 1
	stop := start
	if i >= 0 && c.tokens[i].End > start {
		stop = c.tokens[i].End
	}
	return position.Span{Start: start, End: stop}
}

func (c *converter) at(n *ast.Node, pos, end lexer.Position) *ast.Node {
	if !c.spans || n == nil {
		return n
	}
	return n.WithSpan(c.span(pos, end), true)
}

func (c *converter) within(n *ast.Node, s position.Span) *ast.Node {
	if !c.spans || n == nil {
		return n
	}
	return n.WithSpan(s, true)
}

func spanOf(n *ast.Node) position.Span {
	s, _ := n.Span()
	return s
}

// tokenAt returns the index of the significant token starting at offset.
func (c *converter) tokenAt(offset int) int {
	i := sort.Search(len(c.tokens), func(i int) bool { return c.tokens[i].Start >= offset })
	if i < len(c.tokens) && c.tokens[i].Start == offset {
		return i
	}
	return -1
}

func (c *converter) list(role string, items []*ast.Node, s position.Span) *ast.Node {
	return c.within(ast.List(role, items...), s)
}

func (c *converter) emptyList(role string, offset int) *ast.Node {
	return c.within(ast.List(role), position.Span{Start: offset, End: offset})
}

// statements

func (c *converter) file(g *gFile) *ast.Node {
	stmts := make([]*ast.Node, 0, len(g.Stmts))
	for _, s := range g.Stmts {
		stmts = append(stmts, c.stmt(s))
	}
	return c.within(ast.File(stmts...), position.Span{Start: 0, End: len(c.text)})
}

func (c *converter) stmts(gs []*gStmt) []*ast.Node {
	out := make([]*ast.Node, 0, len(gs))
	for _, s := range gs {
		out = append(out, c.stmt(s))
	}
	return out
}

func (c *converter) stmt(g *gStmt) *ast.Node {
	switch {
	case g == nil:
		return nil
	case g.ExportFrom != nil:
		return c.exportFrom(g.ExportFrom)
	case g.Import != nil:
		return c.importDecl(g.Import)
	case g.Decl != nil:
		return c.decl(g.Decl)
	case g.ExportDefault != nil:
		e := g.ExportDefault
		return c.at(ast.ExportDefault(c.expr(e.Expr)), e.Pos, e.EndPos)
	case g.Return != nil:
		return c.at(ast.Return(c.expr(g.Return.Value)), g.Return.Pos, g.Return.EndPos)
	case g.If != nil:
		i := g.If
		return c.at(ast.If(c.expr(i.Cond), c.stmt(i.Then), c.stmt(i.Else)), i.Pos, i.EndPos)
	case g.Block != nil:
		return c.block(g.Block)
	case g.Labeled != nil:
		l := g.Labeled
		return c.at(ast.Labeled(l.Label, c.stmt(l.Body)), l.Pos, l.EndPos)
	case g.Empty != nil:
		return c.at(ast.Empty(), g.Empty.Pos, g.Empty.EndPos)
	case g.Expr != nil:
		return c.at(ast.ExprStmt(c.expr(g.Expr.Expr)), g.Expr.Pos, g.Expr.EndPos)
	}
	return nil
}

func (c *converter) block(g *gBlock) *ast.Node {
	if g == nil {
		return nil
	}
	return c.at(ast.Block(c.stmts(g.Stmts)...), g.Pos, g.EndPos)
}

func (c *converter) importDecl(g *gImport) *ast.Node {
	var specs []*ast.Node
	if g.Default != nil {
		specs = append(specs, ast.ImportSpec("default", *g.Default))
	}
	if g.Namespace != nil {
		specs = append(specs, ast.ImportSpec("*", *g.Namespace))
	}
	for _, s := range g.Named {
		specs = append(specs, c.at(ast.ImportSpec(s.Name, alias(s)), s.Pos, s.EndPos))
	}
	n := ast.New(ast.KindImport, typeOnly(g.TypeOnly), ast.Unquote(g.Module), specs...)
	return c.at(n, g.Pos, g.EndPos)
}

func (c *converter) exportFrom(g *gExportFrom) *ast.Node {
	var specs []*ast.Node
	if g.Star {
		as := "*"
		if g.StarAs != nil {
			as = *g.StarAs
		}
		specs = append(specs, ast.ExportSpec("*", as))
	}
	for _, s := range g.Specs {
		specs = append(specs, c.at(ast.ExportSpec(s.Name, alias(s)), s.Pos, s.EndPos))
	}
	module := ""
	if g.Module != nil {
		module = ast.Unquote(*g.Module)
	}
	n := ast.New(ast.KindExportFrom, typeOnly(g.TypeOnly), module, specs...)
	return c.at(n, g.Pos, g.EndPos)
}

func alias(s *gImportSpec) string {
	if s.Alias != nil {
		return *s.Alias
	}
	return s.Name
}

func typeOnly(b bool) string {
	if b {
		return "type"
	}
	return ""
}

func (c *converter) decorators(gs []*gDecorator, at int) *ast.Node {
	if len(gs) == 0 {
		return c.emptyList("decorators", at)
	}
	items := make([]*ast.Node, 0, len(gs))
	for _, d := range gs {
		items = append(items, c.decorator(d))
	}
	return c.list("decorators", items, position.Span{Start: spanOf(items[0]).Start, End: spanOf(items[len(items)-1]).End})
}

func (c *converter) decorator(g *gDecorator) *ast.Node {
	var args *ast.Node
	if g.Args != nil {
		args = c.args(g.Args)
	}
	n := ast.New(ast.KindDecorator, strings.Join(g.Name, "."), "", args)
	return c.at(n, g.Pos, g.EndPos)
}

func (c *converter) decl(g *gDecl) *ast.Node {
	start := g.Pos.Offset
	decs := c.decorators(g.Decorators, start)
	mods := g.Modifiers

	var n *ast.Node
	switch {
	case g.Class != nil:
		k := g.Class
		name := ""
		if k.Name != nil {
			name = *k.Name
		}
		var impl *ast.Node
		if k.Implements != nil {
			impl = c.typeList("implements", k.Implements)
		}
		body := c.at(ast.List("members", c.members(k.Body.Members)...), k.Body.Pos, k.Body.EndPos)
		n = ast.New(ast.KindClass, name, join(mods), decs, c.typeParams(k.TypeParams), c.typ(k.Extends), impl, body)

	case g.Interface != nil, g.TypeAlias != nil:
		if doc, first := c.jsdoc(start); len(doc) > 0 {
			decs = c.list("decorators", doc, position.Span{Start: first, End: spanOf(doc[len(doc)-1]).End})
			start = first
		}
		if i := g.Interface; i != nil {
			var ext *ast.Node
			if i.Extends != nil {
				ext = c.typeList("extends", i.Extends)
			}
			body := c.at(ast.List("members", c.typeMembers(i.Body.Members)...), i.Body.Pos, i.Body.EndPos)
			n = ast.New(ast.KindInterface, i.Name, join(mods), decs, c.typeParams(i.TypeParams), ext, body)
		} else {
			a := g.TypeAlias
			n = ast.New(ast.KindTypeAlias, a.Name, join(mods), decs, c.typeParams(a.TypeParams), c.typ(a.Type))
		}

	case g.Function != nil:
		f := g.Function
		if f.Async {
			mods = append(mods, "async")
		}
		n = c.function(f, decs, join(mods))

	case g.Var != nil:
		v := g.Var
		n = ast.VarDecl(join(append(mods, v.Keyword)), v.Name, c.typ(v.Type), c.expr(v.Init))
	}

	if !c.spans {
		return n
	}
	s := c.span(g.Pos, g.EndPos)
	s.Start = start
	return n.WithSpan(s, true)
}

func join(words []string) string {
	return strings.Join(words, " ")
}

// jsdoc collects `/** @name(args) */` comments directly before offset. The
// annotation rewrite produces them for interfaces and type aliases.
func (c *converter) jsdoc(offset int) ([]*ast.Node, int) {
	i := sort.Search(len(c.all), func(i int) bool { return c.all[i].Start >= offset }) - 1
	var out []*ast.Node
	first := offset
	for ; i >= 0 && c.all[i].Kind == scanner.KindBlockComment; i-- {
		d, ok := c.docDecorator(c.all[i])
		if !ok {
			break
		}
		out = append([]*ast.Node{d}, out...)
		first = c.all[i].Start
	}
	return out, first
}

func (c *converter) docDecorator(tok scanner.Token) (*ast.Node, bool) {
	if !strings.HasPrefix(tok.Text, "/**") || len(tok.Text) < 5 {
		return nil, false
	}
	inner := tok.Text[3 : len(tok.Text)-2]
	body := strings.TrimSpace(inner)
	if !strings.HasPrefix(body, "@") {
		return nil, false
	}
	offset := tok.Start + 3 + strings.Index(inner, body)
	escaped := strings.Contains(body, `*\/`)
	if escaped {
		body = strings.ReplaceAll(body, `*\/`, "*/")
	}

	g, err := decoratorParser.ParseString("", body)
	if err != nil {
		return nil, false
	}
	toks, err := scanner.Tokenize(body, scanner.Options{})
	if err != nil {
		return nil, false
	}
	sub := newConverter(body, toks, c.spans && !escaped)
	d := sub.decorator(g)
	d = ast.New(ast.KindDecorator, d.Name(), "jsdoc", d.Children()...)
	if sub.spans {
		d = d.Shift(offset)
	}
	return c.within(d, tok.Span()), true
}

func (c *converter) typeList(role string, g *gTypeList) *ast.Node {
	types := make([]*ast.Node, 0, len(g.Types))
	for _, t := range g.Types {
		types = append(types, c.typ(t))
	}
	return c.at(ast.List(role, types...), g.Pos, g.EndPos)
}

func (c *converter) function(f *gFunction, decs *ast.Node, mods string) *ast.Node {
	name := ""
	if f.Name != nil {
		name = *f.Name
	}
	return ast.New(ast.KindFunction, name, mods,
		decs, c.typeParams(f.TypeParams), c.params(f.Params), c.typ(f.Return), c.block(f.Body))
}

func (c *converter) members(gs []*gMember) []*ast.Node {
	out := make([]*ast.Node, 0, len(gs))
	for _, m := range gs {
		decs := c.decorators(m.Decorators, m.Pos.Offset)
		var n *ast.Node
		if m.Method != nil {
			mt := m.Method
			n = ast.New(ast.KindFunction, m.Name, join(m.Modifiers),
				decs, c.typeParams(mt.TypeParams), c.params(mt.Params), c.typ(mt.Return), c.block(mt.Body))
		} else {
			n = ast.New(ast.KindProperty, m.Name, join(m.Modifiers), decs, c.typ(m.Type), c.expr(m.Init))
		}
		if m.Optional {
			n = n.WithOptional(true)
		}
		out = append(out, c.at(n, m.Pos, m.EndPos))
	}
	return out
}

func (c *converter) typeMembers(gs []*gTypeMember) []*ast.Node {
	out := make([]*ast.Node, 0, len(gs))
	for _, m := range gs {
		typ := c.typ(m.Type)
		if s := m.Method; s != nil {
			typ = c.at(ast.FuncType(c.typeParams(s.TypeParams), c.params(s.Params), c.typ(s.Return)), s.Pos, s.EndPos)
		}
		mods := ""
		if m.Readonly {
			mods = "readonly"
		}
		n := ast.New(ast.KindProperty, m.Name, mods, nil, typ, nil)
		if m.Optional {
			n = n.WithOptional(true)
		}
		out = append(out, c.at(n, m.Pos, m.EndPos))
	}
	return out
}

func (c *converter) params(g *gParams) *ast.Node {
	if g == nil {
		return nil
	}
	ps := make([]*ast.Node, 0, len(g.Params))
	for _, p := range g.Params {
		prefix := join(p.Modifiers)
		if prefix != "" {
			prefix += " "
		}
		if p.Rest {
			prefix += "..."
		}
		n := ast.New(ast.KindParam, p.Name, prefix, c.typ(p.Type), c.expr(p.Default))
		if p.Optional {
			n = n.WithOptional(true)
		}
		ps = append(ps, c.at(n, p.Pos, p.EndPos))
	}
	return c.at(ast.Params(ps...), g.Pos, g.EndPos)
}

func (c *converter) typeParams(g *gTypeParams) *ast.Node {
	if g == nil {
		return nil
	}
	ps := make([]*ast.Node, 0, len(g.Params))
	for _, p := range g.Params {
		ps = append(ps, c.at(ast.TypeParam(p.Name, c.typ(p.Constraint), c.typ(p.Default)), p.Pos, p.EndPos))
	}
	return c.at(ast.TypeParams(ps...), g.Pos, g.EndPos)
}

// expressions

func (c *converter) expr(g *gExpr) *ast.Node {
	switch {
	case g == nil:
		return nil
	case g.Arrow != nil:
		return c.arrow(g.Arrow)
	default:
		return c.cond(g.Cond)
	}
}

func (c *converter) arrow(g *gArrow) *ast.Node {
	params := c.params(g.Params)
	if g.Single != nil {
		p := c.at(ast.Param(g.Single.Name, nil, nil), g.Single.Pos, g.Single.EndPos)
		params = c.at(ast.Params(p), g.Single.Pos, g.Single.EndPos)
	}
	body := c.block(g.Block)
	if body == nil {
		body = c.expr(g.Expr)
	}
	n := ast.Arrow(params, c.typ(g.Return), body)
	if g.Async {
		n = ast.New(ast.KindArrow, "", "async", n.Children()...)
	}
	return c.at(n, g.Pos, g.EndPos)
}

func (c *converter) cond(g *gCond) *ast.Node {
	left := c.unary(g.Head)
	for _, r := range g.Rest {
		right := c.unary(r.Right)
		left = c.within(ast.Binary(r.Op, left, right), position.Span{Start: spanOf(left).Start, End: spanOf(right).End})
	}
	if g.Then == nil {
		return left
	}
	return c.at(ast.Conditional(left, c.expr(g.Then), c.expr(g.Else)), g.Pos, g.EndPos)
}

func (c *converter) unary(g *gUnary) *ast.Node {
	n := c.postfix(g.Operand)
	first := c.tokenAt(g.Pos.Offset)
	for i := len(g.Ops) - 1; i >= 0; i-- {
		n = ast.Unary(g.Ops[i], n)
		if c.spans && first >= 0 && first+i < len(c.tokens) {
			n = n.WithSpan(position.Span{Start: c.tokens[first+i].Start, End: spanOf(n.Child(0)).End}, true)
		}
	}
	return n
}

func (c *converter) postfix(g *gPostfix) *ast.Node {
	n := c.primary(g.Primary)
	start := g.Pos.Offset
	for _, s := range g.Suffixes {
		switch {
		case s.GenArgs != nil:
			n = ast.New(ast.KindCall, "", "", n, c.typeArgs(s.TypeArgs), c.args(s.GenArgs))
		case s.Args != nil:
			n = ast.New(ast.KindCall, "", "", n, nil, c.args(s.Args))
		case s.Member != nil:
			n = ast.Member(n, *s.Member)
		case s.Optional != nil:
			n = ast.OptionalMember(n, *s.Optional)
		case s.Index != nil:
			n = ast.Index(n, c.expr(s.Index))
		case s.Template != nil:
			n = ast.TaggedTemplate(n, c.at(ast.Template(*s.Template), s.Pos, s.EndPos))
		case s.As != nil:
			n = ast.As(n, c.typ(s.As))
		case s.Satisfies != nil:
			n = ast.New(ast.KindAs, "", "satisfies", n, c.typ(s.Satisfies))
		case s.Postfix != nil:
			n = ast.Postfix(*s.Postfix, n)
		}
		if c.spans {
			n = n.WithSpan(position.Span{Start: start, End: c.span(s.Pos, s.EndPos).End}, true)
		}
	}
	return n
}

func (c *converter) typeArgs(g *gTypeArgs) *ast.Node {
	if g == nil {
		return nil
	}
	types := make([]*ast.Node, 0, len(g.Types))
	for _, t := range g.Types {
		types = append(types, c.typ(t))
	}
	return c.at(ast.List("typeArgs", types...), g.Pos, g.EndPos)
}

func (c *converter) args(g *gArgs) *ast.Node {
	return c.at(ast.List("args", c.argList(g.Args)...), g.Pos, g.EndPos)
}

func (c *converter) argList(gs []*gArg) []*ast.Node {
	out := make([]*ast.Node, 0, len(gs))
	for _, a := range gs {
		e := c.expr(a.Expr)
		if a.Spread {
			e = c.at(ast.Spread(e), a.Pos, a.EndPos)
		}
		out = append(out, e)
	}
	return out
}

func (c *converter) primary(g *gPrimary) *ast.Node {
	var n *ast.Node
	switch {
	case g.Function != nil:
		n = c.function(g.Function, nil, asyncMod(g.Function.Async))
	case g.Paren != nil:
		n = ast.Paren(c.expr(g.Paren))
	case g.Array != nil:
		n = ast.Array(c.argList(g.Array.Elems)...)
	case g.Object != nil:
		props := make([]*ast.Node, 0, len(g.Object.Props))
		for _, p := range g.Object.Props {
			props = append(props, c.prop(p))
		}
		n = ast.Object(props...)
	case g.Number != nil:
		n = ast.Num(*g.Number)
	case g.String != nil:
		n = ast.RawString(*g.String)
	case g.Template != nil:
		n = ast.Template(*g.Template)
	case g.Regex != nil:
		n = ast.Regex(*g.Regex)
	case g.Ident != nil:
		n = ast.Ident(*g.Ident)
	}
	return c.at(n, g.Pos, g.EndPos)
}

func asyncMod(async bool) string {
	if async {
		return "async"
	}
	return ""
}

func (c *converter) prop(g *gProp) *ast.Node {
	if g.Spread != nil {
		return c.at(ast.Spread(c.expr(g.Spread)), g.Pos, g.EndPos)
	}
	return c.at(ast.Prop(*g.Key, c.expr(g.Value)), g.Pos, g.EndPos)
}

// types

func (c *converter) typ(g *gType) *ast.Node {
	if g == nil {
		return nil
	}
	left := c.typePostfix(g.Head)
	for _, r := range g.Rest {
		right := c.typePostfix(r.Right)
		left = c.within(ast.TypeOp(r.Op, left, right), position.Span{Start: spanOf(left).Start, End: spanOf(right).End})
	}
	return left
}

func (c *converter) typePostfix(g *gTypePostfix) *ast.Node {
	n := c.typePrimary(g.Primary)
	if len(g.Arrays) == 0 {
		return n
	}
	last := c.tokenAt(spanOf(n).Start)
	if last >= 0 {
		// the primary's last token, then one "[" "]" pair per dimension
		last = sort.Search(len(c.tokens), func(i int) bool { return c.tokens[i].End > spanOf(n).End }) - 1
	}
	for range g.Arrays {
		n = ast.ArrayType(n)
		if c.spans && last >= 0 && last+2 < len(c.tokens) {
			last += 2
			n = n.WithSpan(position.Span{Start: spanOf(n.Child(0)).Start, End: c.tokens[last].End}, true)
		}
	}
	return n
}

func (c *converter) typePrimary(g *gTypePrimary) *ast.Node {
	var n *ast.Node
	switch {
	case g.Func != nil:
		f := g.Func
		n = ast.FuncType(c.typeParams(f.TypeParams), c.params(f.Params), c.typ(f.Return))
	case g.Paren != nil:
		n = ast.ParenType(c.typ(g.Paren))
	case g.Literal != nil:
		n = ast.TypeLiteral(c.typeMembers(g.Literal.Members)...)
	case g.Tuple != nil:
		elems := make([]*ast.Node, 0, len(g.Tuple.Elems))
		for _, e := range g.Tuple.Elems {
			elems = append(elems, c.typ(e))
		}
		n = ast.TupleType(elems...)
	case g.Operator != nil:
		n = ast.TypeOperator(g.Operator.Op, c.typePostfix(g.Operator.Type))
	case g.String != nil:
		n = ast.LiteralType(*g.String)
	case g.Number != nil:
		n = ast.LiteralType(*g.Number)
	case g.Ref != nil:
		r := g.Ref
		var args []*ast.Node
		if r.Args != nil {
			for _, t := range r.Args.Types {
				args = append(args, c.typ(t))
			}
		}
		n = ast.TypeRef(strings.Join(r.Name, "."), args...)
	}
	return c.at(n, g.Pos, g.EndPos)
}
