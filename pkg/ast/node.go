// Package ast is the host syntax tree the macro transformer works on.
//
// Nodes are immutable. Every change produces new nodes; untouched subtrees
// are shared between the old and the new tree. A node produced by a parser
// remembers the byte span of the text it was parsed from, so printing can
// reuse that text verbatim until something below it changes.
package ast

import (
	"fmt"

	"github.com/walteh/tsmacro/pkg/position"
)

type Kind int

const (
	KindInvalid Kind = iota

	// statements and declarations
	KindFile
	KindImport
	KindImportSpec
	KindExportFrom
	KindExportSpec
	KindExportDecl
	KindVarDecl
	KindFunction
	KindParamList
	KindParam
	KindTypeParamList
	KindTypeParam
	KindClass
	KindInterface
	KindTypeAlias
	KindProperty
	KindDecorator
	KindList
	KindBlock
	KindReturn
	KindIf
	KindLabeled
	KindExprStmt
	KindEmpty

	// expressions
	KindIdent
	KindNumber
	KindString
	KindTemplate
	KindRegex
	KindCall
	KindMember
	KindIndex
	KindTaggedTemplate
	KindArray
	KindObject
	KindSpread
	KindBinary
	KindUnary
	KindPostfix
	KindAs
	KindConditional
	KindParen
	KindArrow
	KindErrorPlaceholder

	// types
	KindTypeRef
	KindArrayType
	KindTypeOp
	KindTypeLiteral
	KindFuncType
	KindTupleType
	KindLiteralType
	KindParenType
	KindTypeOperator
)

var kindNames = map[Kind]string{
	KindFile: "File", KindImport: "Import", KindImportSpec: "ImportSpec", KindExportFrom: "ExportFrom",
	KindExportSpec: "ExportSpec", KindExportDecl: "ExportDecl", KindVarDecl: "VarDecl", KindFunction: "Function",
	KindParamList: "ParamList", KindParam: "Param", KindTypeParamList: "TypeParamList", KindTypeParam: "TypeParam",
	KindClass: "Class", KindInterface: "Interface", KindTypeAlias: "TypeAlias", KindProperty: "Property",
	KindDecorator: "Decorator", KindList: "List", KindBlock: "Block", KindReturn: "Return", KindIf: "If",
	KindLabeled: "Labeled", KindExprStmt: "ExprStmt", KindEmpty: "Empty", KindIdent: "Ident",
	KindNumber: "Number", KindString: "String", KindTemplate: "Template", KindRegex: "Regex", KindCall: "Call",
	KindMember: "Member", KindIndex: "Index", KindTaggedTemplate: "TaggedTemplate", KindArray: "Array",
	KindObject: "Object", KindSpread: "Spread", KindBinary: "Binary", KindUnary: "Unary", KindPostfix: "Postfix",
	KindAs: "As", KindConditional: "Conditional", KindParen: "Paren", KindArrow: "Arrow",
	KindErrorPlaceholder: "ErrorPlaceholder", KindTypeRef: "TypeRef", KindArrayType: "ArrayType",
	KindTypeOp: "TypeOp", KindTypeLiteral: "TypeLiteral", KindFuncType: "FuncType", KindTupleType: "TupleType",
	KindLiteralType: "LiteralType", KindParenType: "ParenType", KindTypeOperator: "TypeOperator",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsStatement reports whether nodes of this kind live in statement lists.
func (k Kind) IsStatement() bool {
	return k >= KindImport && k <= KindEmpty && k != KindImportSpec && k != KindExportSpec &&
		k != KindParamList && k != KindParam && k != KindTypeParamList && k != KindTypeParam &&
		k != KindProperty && k != KindDecorator && k != KindList
}

// Origin marks the root of a macro expansion. Nested expansions point at the
// expansion that produced their call site.
type Origin struct {
	ID          int
	Depth       int
	Fingerprint uint64
	Macro       string
	Parent      *Origin
}

// Chain reports whether fingerprint occurs in o or any of its parents.
func (o *Origin) Chain(fingerprint uint64) bool {
	for cur := o; cur != nil; cur = cur.Parent {
		if cur.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// Root returns the outermost expansion of the chain.
func (o *Origin) Root() *Origin {
	cur := o
	for cur != nil && cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

type Node struct {
	kind     Kind
	name     string
	value    string
	optional bool
	children []*Node

	// span is the text this node was parsed from; slot is the region of its
	// parent's text it occupies. They only differ for nodes moved by Replace.
	span     position.Span
	hasSpan  bool
	slot     position.Span
	hasSlot  bool
	pristine bool

	origin *Origin
}

func (n *Node) Kind() Kind {
	if n == nil {
		return KindInvalid
	}
	return n.kind
}

// The accessors below accept a nil receiver and return zero values.

func (n *Node) Name() string      { return n.get().name }
func (n *Node) Value() string     { return n.get().value }
func (n *Node) Optional() bool    { return n.get().optional }
func (n *Node) Origin() *Origin   { return n.get().origin }
func (n *Node) Pristine() bool    { return n.get().pristine }
func (n *Node) Is(kind Kind) bool { return n != nil && n.kind == kind }
func (n *Node) IsSynthetic() bool { return !n.get().hasSpan }
func (n *Node) String() string    { return fmt.Sprintf("%s(%s)", n.Kind(), n.Name()) }

var zeroNode Node

func (n *Node) get() *Node {
	if n == nil {
		return &zeroNode
	}
	return n
}

func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.children)
}

func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return append([]*Node(nil), n.children...)
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Span returns the parsed span of the node.
func (n *Node) Span() (position.Span, bool) {
	n = n.get()
	return n.span, n.hasSpan
}

// Anchor returns the span that best locates the node in the parsed text: its
// own span, or the slot it was substituted into.
func (n *Node) Anchor() (position.Span, bool) {
	n = n.get()
	if n.hasSpan {
		return n.span, true
	}
	return n.slot, n.hasSlot
}

func (n *Node) clone() *Node {
	c := *n
	c.children = append([]*Node(nil), n.children...)
	return &c
}

// WithChildren returns a copy with the given children. The copy keeps its
// span for layout but is no longer pristine.
func (n *Node) WithChildren(children ...*Node) *Node {
	c := *n
	c.children = append([]*Node(nil), children...)
	c.pristine = false
	return &c
}

func (n *Node) WithChild(i int, child *Node) *Node {
	c := n.clone()
	for len(c.children) <= i {
		c.children = append(c.children, nil)
	}
	c.children[i] = child
	c.pristine = false
	return c
}

func (n *Node) WithName(name string) *Node {
	c := n.clone()
	c.name = name
	c.pristine = false
	return c
}

func (n *Node) WithValue(value string) *Node {
	c := n.clone()
	c.value = value
	c.pristine = false
	return c
}

func (n *Node) WithOptional(optional bool) *Node {
	c := n.clone()
	c.optional = optional
	c.pristine = false
	return c
}

func (n *Node) WithOrigin(o *Origin) *Node {
	c := n.clone()
	c.origin = o
	return c
}

// WithSpan marks the node as parsed from text[s.Start:s.End]. Parsers use
// it; pristine nodes print that text verbatim.
func (n *Node) WithSpan(s position.Span, pristine bool) *Node {
	c := n.clone()
	c.span, c.hasSpan = s, true
	c.slot, c.hasSlot = s, true
	c.pristine = pristine
	return c
}

// Shift moves every span in the subtree by delta bytes.
func (n *Node) Shift(delta int) *Node {
	if n == nil {
		return nil
	}
	c := n.clone()
	if c.hasSpan {
		c.span = position.Span{Start: c.span.Start + delta, End: c.span.End + delta}
	}
	if c.hasSlot {
		c.slot = position.Span{Start: c.slot.Start + delta, End: c.slot.End + delta}
	}
	for i, ch := range c.children {
		c.children[i] = ch.Shift(delta)
	}
	return c
}

func (n *Node) withSlot(s position.Span) *Node {
	if n == nil {
		return nil
	}
	c := n.clone()
	c.slot, c.hasSlot = s, true
	return c
}
