// Package host describes what the macro transformer needs from the compiler
// it runs inside: parsing, name resolution and type queries.
package host

import (
	"context"

	"github.com/walteh/tsmacro/pkg/ast"
)

type BindingKind int

const (
	// BindingUnbound means neither an import nor a declaration introduces the
	// name in the file.
	BindingUnbound BindingKind = iota
	BindingImport
	// BindingNamespace is `import * as ns from "m"`; members of ns resolve
	// as exports of the module.
	BindingNamespace
	BindingLocal
)

func (k BindingKind) String() string {
	switch k {
	case BindingImport:
		return "import"
	case BindingNamespace:
		return "namespace"
	case BindingLocal:
		return "local"
	default:
		return "unbound"
	}
}

// Binding describes what a name refers to within one file.
type Binding struct {
	Kind       BindingKind
	Module     string
	ExportName string
}

type Parser interface {
	ParseFile(ctx context.Context, name, text string) (*ast.Node, error)
	ParseExpression(text string) (*ast.Node, error)
	ParseStatements(text string) ([]*ast.Node, error)
	ParseType(text string) (*ast.Node, error)
}

type Resolver interface {
	ResolveIdentifier(file, name string) Binding
	// ResolveReexport follows one hop of `export { name } from "next"`.
	ResolveReexport(module, name string) (next string, nextName string, ok bool)
	ImportedModules(file string) []string
}

type Checker interface {
	// TypeOf renders the type of an expression, or "unknown".
	TypeOf(file string, node *ast.Node) string
}

type Host interface {
	Parser
	Resolver
	Checker
}
