package macro

import (
	"fmt"
	"strings"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/scanner"
)

// Hygiene hands out identifiers that collide with no name in the file and
// with no name handed out before. Counters start at zero for every file, so
// the same input always yields the same names.
type Hygiene struct {
	used     map[string]bool
	counters map[string]int
}

// NewHygiene reserves every name that appears in root.
func NewHygiene(root *ast.Node) *Hygiene {
	h := &Hygiene{used: map[string]bool{}, counters: map[string]int{}}
	h.ReserveAll(root)
	return h
}

func (h *Hygiene) Reserve(name string) {
	if name != "" {
		h.used[name] = true
	}
}

// ReserveAll reserves the names that n and its descendants declare or use.
func (h *Hygiene) ReserveAll(n *ast.Node) {
	ast.Walk(n, func(c *ast.Node, _ ast.Path) bool {
		switch c.Kind() {
		case ast.KindIdent, ast.KindVarDecl, ast.KindFunction, ast.KindClass, ast.KindInterface,
			ast.KindTypeAlias, ast.KindParam, ast.KindTypeParam, ast.KindTypeRef, ast.KindLabeled:
			h.Reserve(c.Name())
		case ast.KindImportSpec:
			h.Reserve(c.Value())
		case ast.KindTemplate:
			h.reserveTemplate(c.Value())
		}
		return true
	})
}

// reserveTemplate reserves every identifier inside the ${} interpolations of
// a raw template literal, nested templates included. A template that does
// not split or scan reserves nothing.
func (h *Hygiene) reserveTemplate(raw string) {
	_, exprs, err := ast.TemplateParts(raw)
	if err != nil {
		return
	}
	for _, src := range exprs {
		toks, _ := scanner.Tokenize(src, scanner.Options{})
		for _, t := range toks {
			switch t.Kind {
			case scanner.KindIdent:
				h.Reserve(t.Text)
			case scanner.KindTemplate:
				h.reserveTemplate(t.Text)
			}
		}
	}
}

func (h *Hygiene) Used(name string) bool {
	return h.used[name]
}

// Unique returns prefix_N for the smallest N not yet used.
func (h *Hygiene) Unique(prefix string) string {
	prefix = sanitize(prefix)
	for {
		n := h.counters[prefix]
		h.counters[prefix] = n + 1
		name := fmt.Sprintf("%s_%d", prefix, n)
		if !h.used[name] {
			h.used[name] = true
			return name
		}
	}
}

func sanitize(prefix string) string {
	var b strings.Builder
	for i, r := range prefix {
		switch {
		case r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_tmp"
	}
	return b.String()
}
