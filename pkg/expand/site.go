package expand

import (
	"strings"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/macro"
)

// DeriveDecorator is the decorator whose arguments name derive macros.
const DeriveDecorator = "derive"

// site is a node some registered macro claims.
type site struct {
	kind macro.Kind
	def  macro.Definition
	// derives lists the derive macros named by a @derive decorator, in
	// argument order.
	derives []macro.Definition
	node    *ast.Node
	path    ast.Path
	// origin is the expansion the node came from, if any.
	origin *ast.Origin
	// decorator indexes the triggering decorator within the node's
	// decorator list.
	decorator int
	// inList is set when the node sits in a statement or member list and
	// may be replaced by several nodes.
	inList bool
}

func (s *site) name() string {
	if s.kind == macro.KindDerive {
		names := make([]string, 0, len(s.derives))
		for _, d := range s.derives {
			names = append(names, d.Key())
		}
		return strings.Join(names, ",")
	}
	return s.def.Key()
}

// next finds the first site in pre-order, so an outer call expands before
// the calls in its arguments.
func (r *run) next(n, parent *ast.Node, path ast.Path, origin *ast.Origin) (*site, bool) {
	if n == nil {
		return nil, false
	}
	if o := n.Origin(); o != nil {
		origin = o
	}
	if !r.seen[n] {
		if s, ok := r.match(n, parent); ok {
			s.path = append(ast.Path(nil), path...)
			s.origin = origin
			return s, true
		}
		r.seen[n] = true
	}
	for i := 0; i < n.Len(); i++ {
		if s, ok := r.next(n.Child(i), n, path.Append(i), origin); ok {
			return s, true
		}
	}
	return nil, false
}

func isList(parent *ast.Node) bool {
	switch parent.Kind() {
	case ast.KindFile, ast.KindBlock:
		return true
	case ast.KindList:
		return parent.Name() == "members"
	}
	return false
}

func (r *run) match(n, parent *ast.Node) (*site, bool) {
	switch n.Kind() {
	case ast.KindCall:
		if def, ok := r.resolve(macro.KindExpression, calleeName(n.Callee())); ok {
			return &site{kind: macro.KindExpression, def: def, node: n}, true
		}
	case ast.KindTaggedTemplate:
		if def, ok := r.resolve(macro.KindTaggedTemplate, calleeName(n.Child(0))); ok {
			return &site{kind: macro.KindTaggedTemplate, def: def, node: n}, true
		}
	case ast.KindTypeRef:
		if def, ok := r.resolve(macro.KindType, n.Name()); ok {
			return &site{kind: macro.KindType, def: def, node: n}, true
		}
	case ast.KindLabeled:
		if def, ok := r.labeled(n.Name()); ok {
			return &site{kind: macro.KindLabeledBlock, def: def, node: n, inList: isList(parent)}, true
		}
	case ast.KindClass, ast.KindInterface, ast.KindTypeAlias, ast.KindFunction, ast.KindProperty:
		if !isList(parent) {
			return nil, false
		}
		return r.decorated(n)
	}
	return nil, false
}

func (r *run) decorated(n *ast.Node) (*site, bool) {
	list := n.Child(ast.DecoratorIndex)
	if !list.Is(ast.KindList) {
		return nil, false
	}
	for i := 0; i < list.Len(); i++ {
		d := list.Child(i)
		if !d.Is(ast.KindDecorator) {
			continue
		}
		if d.Name() == DeriveDecorator {
			var derives []macro.Definition
			for _, arg := range d.Args() {
				if def, ok := r.resolve(macro.KindDerive, calleeName(arg)); ok {
					derives = append(derives, def)
				}
			}
			if len(derives) > 0 {
				return &site{kind: macro.KindDerive, derives: derives, node: n, decorator: i, inList: true}, true
			}
			continue
		}
		if def, ok := r.resolve(macro.KindAttribute, d.Name()); ok {
			return &site{kind: macro.KindAttribute, def: def, node: n, decorator: i, inList: true}, true
		}
	}
	return nil, false
}

// calleeName renders `f` and `ns.f`; anything else has no name.
func calleeName(n *ast.Node) string {
	switch n.Kind() {
	case ast.KindIdent:
		return n.Name()
	case ast.KindMember:
		if obj := n.Child(0); obj.Is(ast.KindIdent) && n.Value() == "." {
			return obj.Name() + "." + n.Name()
		}
	}
	return ""
}

// resolve finds the macro a name refers to at this file's top level. An
// imported name is followed through aliases and re-exports to the module
// that defines it, and only a macro registered for exactly that module and
// export matches. A local declaration shadows every macro. Names that are
// neither imported nor declared match macros registered without a module.
func (r *run) resolve(kind macro.Kind, name string) (macro.Definition, bool) {
	if name == "" {
		return nil, false
	}
	head, member, dotted := strings.Cut(name, ".")
	b := r.t.host.ResolveIdentifier(r.in.File, head)

	var module, export string
	switch b.Kind {
	case host.BindingLocal:
		return nil, false
	case host.BindingImport:
		if dotted {
			return nil, false
		}
		module, export = r.follow(b.Module, b.ExportName)
	case host.BindingNamespace:
		if !dotted || strings.Contains(member, ".") {
			return nil, false
		}
		module, export = r.follow(b.Module, member)
	default:
		if dotted {
			return nil, false
		}
		def, ok := r.t.registry.Get(kind, name)
		if !ok {
			return nil, false
		}
		if m, _ := def.Home(); m != "" {
			return nil, false
		}
		return def, true
	}

	def, ok := r.t.registry.ByModuleExport(module, export)
	if !ok || def.Kind() != kind {
		return nil, false
	}
	return def, true
}

// follow walks re-exports until a module defines the name itself.
func (r *run) follow(module, name string) (string, string) {
	visited := map[string]bool{}
	for {
		key := module + "::" + name
		if visited[key] {
			return module, name
		}
		visited[key] = true
		next, nextName, ok := r.t.host.ResolveReexport(module, name)
		if !ok {
			return module, name
		}
		module, name = next, nextName
	}
}

// labeled matches a labeled statement. A label cannot be imported, so a
// macro with a home module is active in files that import that module.
func (r *run) labeled(label string) (macro.Definition, bool) {
	def, ok := r.t.registry.LabeledBlock(label)
	if !ok {
		return nil, false
	}
	module, _ := def.Home()
	if module == "" {
		return def, true
	}
	for _, m := range r.t.host.ImportedModules(r.in.File) {
		if m == module {
			return def, true
		}
	}
	return nil, false
}
