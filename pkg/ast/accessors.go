package ast

import "strings"

// Callee returns the function a call invokes.
func (n *Node) Callee() *Node {
	if !n.Is(KindCall) {
		return nil
	}
	return n.Child(0)
}

// Args returns the arguments of a call or decorator.
func (n *Node) Args() []*Node {
	var list *Node
	switch n.Kind() {
	case KindCall:
		list = n.Child(2)
	case KindDecorator:
		list = n.Child(0)
	default:
		return nil
	}
	if list == nil {
		return nil
	}
	return list.Children()
}

// TypeArgs returns explicit type arguments of a call or the arguments of a
// type reference.
func (n *Node) TypeArgs() []*Node {
	switch n.Kind() {
	case KindCall:
		if ta := n.Child(1); ta != nil {
			return ta.Children()
		}
	case KindTypeRef:
		return n.Children()
	}
	return nil
}

// Decorators returns the decorators of a declaration or class member,
// skipping removed ones.
func (n *Node) Decorators() []*Node {
	var list *Node
	switch n.Kind() {
	case KindClass, KindInterface, KindTypeAlias, KindFunction, KindProperty:
		list = n.Child(0)
	}
	if list == nil {
		return nil
	}
	return nonEmpty(list.children)
}

// DecoratorIndex is the child index of the decorator list on declarations
// and class members.
const DecoratorIndex = 0

// Members returns the body of a class or interface.
func (n *Node) Members() []*Node {
	switch n.Kind() {
	case KindClass:
		return nonEmpty(n.Child(4).Children())
	case KindInterface:
		return nonEmpty(n.Child(3).Children())
	case KindTypeLiteral:
		return nonEmpty(n.children)
	}
	return nil
}

// Modifiers splits the modifier words of a declaration.
func (n *Node) Modifiers() []string {
	switch n.Kind() {
	case KindClass, KindInterface, KindTypeAlias, KindFunction, KindProperty, KindVarDecl:
		return strings.Fields(n.value)
	}
	return nil
}

func (n *Node) HasModifier(mod string) bool {
	for _, m := range n.Modifiers() {
		if m == mod {
			return true
		}
	}
	return false
}

// Body returns the statements of a block, or the body of a labeled
// statement or function.
func (n *Node) Body() *Node {
	switch n.Kind() {
	case KindLabeled:
		return n.Child(0)
	case KindFunction:
		return n.Child(4)
	case KindArrow:
		return n.Child(2)
	}
	return nil
}

// PropertyType returns the declared type of a property or variable.
func (n *Node) PropertyType() *Node {
	switch n.Kind() {
	case KindProperty:
		return n.Child(1)
	case KindVarDecl, KindParam:
		return n.Child(0)
	}
	return nil
}

// Init returns the initializer of a variable or property.
func (n *Node) Init() *Node {
	switch n.Kind() {
	case KindProperty:
		return n.Child(2)
	case KindVarDecl:
		return n.Child(1)
	}
	return nil
}

// IsDeclaration reports whether n declares a named entity at statement
// level.
func (n *Node) IsDeclaration() bool {
	switch n.Kind() {
	case KindClass, KindInterface, KindTypeAlias, KindFunction, KindVarDecl:
		return true
	}
	return false
}
