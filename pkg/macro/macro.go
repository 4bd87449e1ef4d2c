// Package macro defines the six kinds of compile-time macros, the registry
// that holds them and the context a macro expands in.
package macro

import (
	"github.com/walteh/tsmacro/pkg/ast"
)

type Kind int

const (
	KindExpression Kind = iota + 1
	KindAttribute
	KindDerive
	KindTaggedTemplate
	KindType
	KindLabeledBlock
)

var kindNames = map[Kind]string{
	KindExpression:     "expression",
	KindAttribute:      "attribute",
	KindDerive:         "derive",
	KindTaggedTemplate: "tagged-template",
	KindType:           "type",
	KindLabeledBlock:   "labeled-block",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Kinds lists every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindExpression, KindAttribute, KindDerive, KindTaggedTemplate, KindType, KindLabeledBlock}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Meta is shared by every definition. A definition without Module is active
// everywhere its name appears; with Module it is only active where the name
// resolves to ExportName of that module.
type Meta struct {
	// Name is the lookup key: the callee, decorator, tag, type or label.
	Name       string
	Module     string
	ExportName string
}

func (m Meta) Key() string { return m.Name }

// Home returns the module and export that activate the macro. ExportName
// defaults to Name.
func (m Meta) Home() (module, exportName string) {
	if m.Module == "" {
		return "", ""
	}
	if m.ExportName == "" {
		return m.Module, m.Name
	}
	return m.Module, m.ExportName
}

// Definition is one of *ExpressionMacro, *AttributeMacro, *DeriveMacro,
// *TaggedTemplateMacro, *TypeMacro or *LabeledBlockMacro.
type Definition interface {
	Kind() Kind
	Key() string
	Home() (module, exportName string)
	valid() bool
}

// ExpressionMacro replaces a call `name(args)`.
type ExpressionMacro struct {
	Meta
	Expand func(c *Context, call *ast.Node, args []*ast.Node) (*ast.Node, error)
}

// AttributeMacro rewrites the declaration carrying `@name(args)`. The target
// no longer carries the triggering decorator; the result replaces it, so an
// empty result removes the declaration.
type AttributeMacro struct {
	Meta
	Expand func(c *Context, decorator, target *ast.Node) ([]*ast.Node, error)
}

// DeriveMacro generates declarations placed after a target annotated with
// `@derive(name)`. The target itself is kept.
type DeriveMacro struct {
	Meta
	Expand func(c *Context, target *ast.Node) ([]*ast.Node, error)
}

// TaggedTemplateMacro replaces tag`...`. chunks has one more element than
// exprs.
type TaggedTemplateMacro struct {
	Meta
	Expand func(c *Context, site *ast.Node, chunks []string, exprs []*ast.Node) (*ast.Node, error)
}

// TypeMacro replaces a type reference `Name<args>`.
type TypeMacro struct {
	Meta
	Expand func(c *Context, ref *ast.Node, args []*ast.Node) (*ast.Node, error)
}

// LabeledBlockMacro replaces a statement labeled with its name.
type LabeledBlockMacro struct {
	Meta
	Expand func(c *Context, labeled *ast.Node) ([]*ast.Node, error)
}

func (*ExpressionMacro) Kind() Kind     { return KindExpression }
func (*AttributeMacro) Kind() Kind      { return KindAttribute }
func (*DeriveMacro) Kind() Kind         { return KindDerive }
func (*TaggedTemplateMacro) Kind() Kind { return KindTaggedTemplate }
func (*TypeMacro) Kind() Kind           { return KindType }
func (*LabeledBlockMacro) Kind() Kind   { return KindLabeledBlock }

func (m *ExpressionMacro) valid() bool     { return m != nil && m.Name != "" && m.Expand != nil }
func (m *AttributeMacro) valid() bool      { return m != nil && m.Name != "" && m.Expand != nil }
func (m *DeriveMacro) valid() bool         { return m != nil && m.Name != "" && m.Expand != nil }
func (m *TaggedTemplateMacro) valid() bool { return m != nil && m.Name != "" && m.Expand != nil }
func (m *TypeMacro) valid() bool           { return m != nil && m.Name != "" && m.Expand != nil }
func (m *LabeledBlockMacro) valid() bool   { return m != nil && m.Name != "" && m.Expand != nil }

var (
	_ Definition = (*ExpressionMacro)(nil)
	_ Definition = (*AttributeMacro)(nil)
	_ Definition = (*DeriveMacro)(nil)
	_ Definition = (*TaggedTemplateMacro)(nil)
	_ Definition = (*TypeMacro)(nil)
	_ Definition = (*LabeledBlockMacro)(nil)
)
