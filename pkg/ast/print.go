package ast

import (
	"sort"
	"strings"

	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

// Segment maps a byte offset of printed code to a byte offset of the text the
// tree was parsed from.
type Segment struct {
	Generated int
	Original  int
}

type Printed struct {
	Code     string
	Segments []Segment
	// Origins holds the printed span of every expansion root, by origin ID.
	Origins map[int]position.Span

	source string
}

// SourceMap encodes the print segments as a version-3 map from Code back to
// the parsed text.
func (p *Printed) SourceMap(file, sourceName string) *sourcemap.Raw {
	gen := position.NewLineIndex(p.Code)
	orig := position.NewLineIndex(p.source)
	b := sourcemap.NewBuilder(file, sourceName, p.source)
	for _, s := range p.Segments {
		b.Add(gen.Place(s.Generated), orig.Place(s.Original), "")
	}
	return b.Build()
}

// Print renders n. Pristine subtrees are copied from source; nodes whose
// children changed keep the source text between their children; synthetic
// nodes are printed from their structure and mapped to the nearest region of
// source they stand in for.
func Print(n *Node, source string) *Printed {
	p := &printer{src: source, origins: map[int]position.Span{}}
	p.node(n, 0)
	return &Printed{
		Code:     p.buf.String(),
		Segments: p.segs,
		Origins:  p.origins,
		source:   source,
	}
}

type printer struct {
	src     string
	buf     strings.Builder
	segs    []Segment
	origins map[int]position.Span
	indent  int
}

func (p *printer) emit(orig int) {
	p.emitAt(p.buf.Len(), orig)
}

func (p *printer) emitAt(gen, orig int) {
	if n := len(p.segs); n > 0 {
		last := p.segs[n-1]
		if last.Generated == gen {
			p.segs[n-1].Original = orig
			return
		}
		if last.Generated > gen {
			return
		}
	}
	p.segs = append(p.segs, Segment{Generated: gen, Original: orig})
}

func (p *printer) write(s string) { p.buf.WriteString(s) }

func (p *printer) newline() {
	p.write("\n")
	p.write(strings.Repeat("  ", p.indent))
}

func (p *printer) inSource(s position.Span) bool {
	return p.src != "" && s.Start >= 0 && s.Start <= s.End && s.End <= len(p.src)
}

func (p *printer) node(n *Node, anchor int) {
	if n == nil {
		return
	}
	start := p.buf.Len()
	if s, ok := n.Anchor(); ok {
		anchor = s.Start
	}

	switch {
	case n.pristine && n.hasSpan && p.inSource(n.span):
		p.verbatim(n)
	case p.canLayout(n):
		p.layout(n)
	default:
		p.emit(anchor)
		p.structural(n, anchor)
	}

	if n.origin != nil {
		if _, seen := p.origins[n.origin.ID]; !seen {
			p.origins[n.origin.ID] = position.Span{Start: start, End: p.buf.Len()}
		}
	}
}

// verbatim copies the node's text, with a segment at every node start and
// every line start inside it.
func (p *printer) verbatim(n *Node) {
	base := p.buf.Len()
	offsets := map[int]bool{n.span.Start: true}
	Walk(n, func(c *Node, _ Path) bool {
		if c.hasSpan && c.span.Start >= n.span.Start && c.span.Start < n.span.End {
			offsets[c.span.Start] = true
		}
		return true
	})
	text := p.src[n.span.Start:n.span.End]
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 < len(text) {
			offsets[n.span.Start+i+1] = true
		}
	}
	sorted := make([]int, 0, len(offsets))
	for o := range offsets {
		sorted = append(sorted, o)
	}
	sort.Ints(sorted)
	for _, o := range sorted {
		p.emitAt(base+o-n.span.Start, o)
	}
	p.write(text)
}

// canLayout reports whether every child sits, in order, inside the node's own
// text, so the text between children can be reused.
func (p *printer) canLayout(n *Node) bool {
	if !n.hasSpan || !p.inSource(n.span) {
		return false
	}
	var prev *position.Span
	for _, c := range n.children {
		if c == nil {
			continue
		}
		if !c.hasSlot || c.slot.Start < n.span.Start || c.slot.End > n.span.End {
			return false
		}
		if prev != nil && c.slot != *prev && c.slot.Start < prev.End {
			return false
		}
		s := c.slot
		prev = &s
	}
	return true
}

func (p *printer) layout(n *Node) {
	cur := n.span.Start
	var prev *position.Span
	for _, c := range n.children {
		if c == nil {
			continue
		}
		s := c.slot
		if prev != nil && s == *prev && s.Start < s.End {
			// extra nodes spliced into one slot
			if c.kind.IsStatement() {
				p.write("\n" + p.lineIndent(s.Start))
			} else {
				p.write(", ")
			}
			p.node(c, s.Start)
			continue
		}
		p.gap(cur, s.Start)
		p.node(c, s.Start)
		cur = s.End
		prev = &s
	}
	p.gap(cur, n.span.End)
}

// gap copies source text between children, mapping each word start.
func (p *printer) gap(from, to int) {
	if from >= to {
		return
	}
	base := p.buf.Len()
	text := p.src[from:to]
	for i := 0; i < len(text); i++ {
		if isSpace(text[i]) {
			continue
		}
		if i == 0 || isSpace(text[i-1]) {
			p.emitAt(base+i, from+i)
		}
	}
	p.write(text)
}

func (p *printer) lineIndent(offset int) string {
	start := strings.LastIndexByte(p.src[:offset], '\n') + 1
	end := start
	for end < offset && (p.src[end] == ' ' || p.src[end] == '\t') {
		end++
	}
	return p.src[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (p *printer) join(nodes []*Node, sep string, anchor int) {
	first := true
	for _, c := range nodes {
		if c == nil {
			continue
		}
		if !first {
			p.write(sep)
		}
		first = false
		p.node(c, anchor)
	}
}

func (p *printer) statements(stmts []*Node, anchor int) {
	first := true
	for _, s := range stmts {
		if s == nil || s.kind == KindEmpty {
			continue
		}
		if !first {
			p.newline()
		}
		first = false
		p.node(s, anchor)
	}
}

func (p *printer) body(stmts []*Node, anchor int) {
	if len(nonEmpty(stmts)) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.indent++
	p.newline()
	p.statements(stmts, anchor)
	p.indent--
	p.newline()
	p.write("}")
}

func nonEmpty(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n != nil && n.kind != KindEmpty {
			out = append(out, n)
		}
	}
	return out
}

func (p *printer) decorators(list *Node, anchor int) {
	for _, d := range list.Children() {
		if d == nil || d.kind == KindEmpty {
			continue
		}
		p.node(d, anchor)
		p.newline()
	}
}

func (p *printer) typeAnnotation(t *Node, anchor int) {
	if t != nil {
		p.write(": ")
		p.node(t, anchor)
	}
}

func (p *printer) modifiers(mods string) {
	if mods != "" {
		p.write(mods + " ")
	}
}

func (p *printer) structural(n *Node, a int) {
	c := n.children
	switch n.kind {
	case KindFile:
		p.statements(c, a)

	case KindImport:
		p.write("import ")
		if n.name == "type" {
			p.write("type ")
		}
		if len(c) > 0 {
			p.importClause(c)
			p.write(" from ")
		}
		p.write(quote(n.value) + ";")

	case KindImportSpec, KindExportSpec:
		p.write(n.name)
		if n.value != "" && n.value != n.name {
			p.write(" as " + n.value)
		}

	case KindExportFrom:
		if len(c) == 1 && c[0] != nil && c[0].name == "*" {
			p.write("export *")
			if c[0].value != "" && c[0].value != "*" {
				p.write(" as " + c[0].value)
			}
		} else {
			p.write("export { ")
			p.join(c, ", ", a)
			p.write(" }")
		}
		if n.value != "" {
			p.write(" from " + quote(n.value))
		}
		p.write(";")

	case KindExportDecl:
		p.write("export ")
		if n.name == "default" {
			p.write("default ")
		}
		p.node(n.Child(0), a)

	case KindVarDecl:
		p.write(n.value + " " + n.name)
		p.typeAnnotation(n.Child(0), a)
		if init := n.Child(1); init != nil {
			p.write(" = ")
			p.node(init, a)
		}
		p.write(";")

	case KindFunction:
		p.function(n, a, false)

	case KindParamList:
		p.write("(")
		p.join(c, ", ", a)
		p.write(")")

	case KindParam:
		p.write(n.value + n.name)
		if n.optional {
			p.write("?")
		}
		p.typeAnnotation(n.Child(0), a)
		if def := n.Child(1); def != nil {
			p.write(" = ")
			p.node(def, a)
		}

	case KindTypeParamList:
		p.write("<")
		p.join(c, ", ", a)
		p.write(">")

	case KindTypeParam:
		p.write(n.name)
		if con := n.Child(0); con != nil {
			p.write(" extends ")
			p.node(con, a)
		}
		if def := n.Child(1); def != nil {
			p.write(" = ")
			p.node(def, a)
		}

	case KindClass:
		p.decorators(n.Child(0), a)
		p.modifiers(n.value)
		p.write("class " + n.name)
		p.node(n.Child(1), a)
		if ext := n.Child(2); ext != nil {
			p.write(" extends ")
			p.node(ext, a)
		}
		if impl := n.Child(3); impl != nil && impl.Len() > 0 {
			p.write(" implements ")
			p.join(impl.children, ", ", a)
		}
		p.write(" ")
		p.members(n.Child(4), a, true)

	case KindInterface:
		p.decorators(n.Child(0), a)
		p.modifiers(n.value)
		p.write("interface " + n.name)
		p.node(n.Child(1), a)
		if ext := n.Child(2); ext != nil && ext.Len() > 0 {
			p.write(" extends ")
			p.join(ext.children, ", ", a)
		}
		p.write(" ")
		p.members(n.Child(3), a, false)

	case KindTypeAlias:
		p.decorators(n.Child(0), a)
		p.modifiers(n.value)
		p.write("type " + n.name)
		p.node(n.Child(1), a)
		p.write(" = ")
		p.node(n.Child(2), a)
		p.write(";")

	case KindProperty:
		p.property(n, a)

	case KindDecorator:
		if n.value == "jsdoc" {
			p.write("/** ")
		}
		p.write("@" + n.name)
		if args := n.Child(0); args != nil && args.Len() > 0 {
			p.write("(")
			p.join(args.children, ", ", a)
			p.write(")")
		}
		if n.value == "jsdoc" {
			p.write(" */")
		}

	case KindList:
		p.join(c, ", ", a)

	case KindBlock:
		p.body(c, a)

	case KindReturn:
		p.write("return")
		if e := n.Child(0); e != nil {
			p.write(" ")
			p.node(e, a)
		}
		p.write(";")

	case KindIf:
		p.write("if (")
		p.node(n.Child(0), a)
		p.write(") ")
		p.node(n.Child(1), a)
		if e := n.Child(2); e != nil {
			p.write(" else ")
			p.node(e, a)
		}

	case KindLabeled:
		p.write(n.name + ": ")
		p.node(n.Child(0), a)

	case KindExprStmt:
		e := n.Child(0)
		if e.Is(KindObject) || e.Is(KindFunction) {
			p.write("(")
			p.node(e, a)
			p.write(")")
		} else {
			p.node(e, a)
		}
		p.write(";")

	case KindEmpty:

	case KindIdent:
		p.write(n.name)

	case KindNumber, KindString, KindTemplate, KindRegex, KindLiteralType:
		p.write(n.value)

	case KindCall:
		p.node(n.Child(0), a)
		if ta := n.Child(1); ta != nil && ta.Len() > 0 {
			p.write("<")
			p.join(ta.children, ", ", a)
			p.write(">")
		}
		p.write("(")
		if args := n.Child(2); args != nil {
			p.join(args.children, ", ", a)
		}
		p.write(")")

	case KindMember:
		p.node(n.Child(0), a)
		p.write(n.value + n.name)

	case KindIndex:
		p.node(n.Child(0), a)
		p.write("[")
		p.node(n.Child(1), a)
		p.write("]")

	case KindTaggedTemplate:
		p.node(n.Child(0), a)
		p.node(n.Child(1), a)

	case KindArray, KindTupleType:
		p.write("[")
		p.join(c, ", ", a)
		p.write("]")

	case KindObject:
		if len(nonEmpty(c)) == 0 {
			p.write("{}")
			return
		}
		p.write("{ ")
		for i, prop := range nonEmpty(c) {
			if i > 0 {
				p.write(", ")
			}
			if prop.kind == KindProperty && !prop.pristine && !p.canLayout(prop) {
				p.objectProp(prop, a)
				continue
			}
			p.node(prop, a)
		}
		p.write(" }")

	case KindSpread:
		p.write("...")
		p.node(n.Child(0), a)

	case KindBinary, KindTypeOp:
		p.node(n.Child(0), a)
		p.write(" " + n.name + " ")
		p.node(n.Child(1), a)

	case KindUnary:
		p.write(n.name)
		if isWord(n.name) {
			p.write(" ")
		}
		p.node(n.Child(0), a)

	case KindPostfix:
		p.node(n.Child(0), a)
		p.write(n.name)

	case KindAs:
		p.node(n.Child(0), a)
		p.write(" " + n.value + " ")
		p.node(n.Child(1), a)

	case KindConditional:
		p.node(n.Child(0), a)
		p.write(" ? ")
		p.node(n.Child(1), a)
		p.write(" : ")
		p.node(n.Child(2), a)

	case KindParen, KindParenType:
		p.write("(")
		p.node(n.Child(0), a)
		p.write(")")

	case KindArrow:
		p.modifiers(n.value)
		p.node(n.Child(0), a)
		p.typeAnnotation(n.Child(1), a)
		p.write(" => ")
		body := n.Child(2)
		if body.Is(KindObject) {
			p.write("(")
			p.node(body, a)
			p.write(")")
		} else {
			p.node(body, a)
		}

	case KindErrorPlaceholder:
		p.write(ErrorHelper + "(" + quote(n.value) + ")")

	case KindTypeRef:
		p.write(n.name)
		if len(c) > 0 {
			p.write("<")
			p.join(c, ", ", a)
			p.write(">")
		}

	case KindArrayType:
		elem := n.Child(0)
		if elem.Is(KindTypeOp) || elem.Is(KindFuncType) {
			p.write("(")
			p.node(elem, a)
			p.write(")")
		} else {
			p.node(elem, a)
		}
		p.write("[]")

	case KindTypeLiteral:
		if len(nonEmpty(c)) == 0 {
			p.write("{}")
			return
		}
		p.write("{ ")
		p.join(c, "; ", a)
		p.write(" }")

	case KindFuncType:
		p.node(n.Child(0), a)
		p.node(n.Child(1), a)
		p.write(" => ")
		p.node(n.Child(2), a)

	case KindTypeOperator:
		p.write(n.name + " ")
		p.node(n.Child(0), a)
	}
}

func (p *printer) importClause(specs []*Node) {
	var named []*Node
	wrote := false
	for _, s := range specs {
		if s == nil {
			continue
		}
		switch s.name {
		case "default":
			p.write(s.value)
			wrote = true
		case "*":
			if wrote {
				p.write(", ")
			}
			p.write("* as " + s.value)
			wrote = true
		default:
			named = append(named, s)
		}
	}
	if len(named) > 0 {
		if wrote {
			p.write(", ")
		}
		p.write("{ ")
		for i, s := range named {
			if i > 0 {
				p.write(", ")
			}
			p.write(s.name)
			if s.value != "" && s.value != s.name {
				p.write(" as " + s.value)
			}
		}
		p.write(" }")
	}
}

func (p *printer) function(n *Node, a int, method bool) {
	if decs := n.Child(0); decs != nil {
		p.decorators(decs, a)
	}
	p.modifiers(n.value)
	if !method {
		p.write("function")
		if n.name != "" {
			p.write(" ")
		}
	}
	p.write(n.name)
	p.node(n.Child(1), a)
	if params := n.Child(2); params != nil {
		p.node(params, a)
	} else {
		p.write("()")
	}
	p.typeAnnotation(n.Child(3), a)
	if body := n.Child(4); body != nil {
		p.write(" ")
		p.node(body, a)
	} else {
		p.write(";")
	}
}

func (p *printer) property(n *Node, a int) {
	if decs := n.Child(0); decs != nil {
		for _, d := range nonEmpty(decs.children) {
			p.node(d, a)
			p.write(" ")
		}
	}
	p.modifiers(n.value)
	p.write(n.name)
	if n.optional {
		p.write("?")
	}
	p.typeAnnotation(n.Child(1), a)
	if init := n.Child(2); init != nil {
		p.write(" = ")
		p.node(init, a)
	}
}

func (p *printer) objectProp(n *Node, a int) {
	if s, ok := n.Anchor(); ok {
		a = s.Start
	}
	p.emit(a)
	p.write(n.name)
	if v := n.Child(2); v != nil {
		p.write(": ")
		p.node(v, a)
	}
}

// members prints a class or interface body, one member per line.
func (p *printer) members(list *Node, a int, class bool) {
	items := nonEmpty(list.Children())
	if len(items) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.indent++
	for _, m := range items {
		p.newline()
		if m.kind == KindFunction && !m.pristine && !p.canLayout(m) {
			start := p.buf.Len()
			if s, ok := m.Anchor(); ok {
				p.emit(s.Start)
			}
			p.function(m, a, true)
			if m.origin != nil {
				if _, seen := p.origins[m.origin.ID]; !seen {
					p.origins[m.origin.ID] = position.Span{Start: start, End: p.buf.Len()}
				}
			}
			continue
		}
		p.node(m, a)
		if m.kind == KindProperty && !m.pristine {
			p.write(";")
		}
	}
	p.indent--
	p.newline()
	p.write("}")
}

func isWord(op string) bool {
	for i := 0; i < len(op); i++ {
		if op[i] < 'a' || op[i] > 'z' {
			return false
		}
	}
	return op != ""
}
