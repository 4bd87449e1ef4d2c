// Package lite is a self-contained host: a participle grammar over the shared
// scanner, a top-level binding resolver and a small literal type checker. It
// stands in for a full compiler in the CLI and in tests.
package lite

import (
	"context"
	"fmt"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/scanner"
)

var ErrSyntax = errors.New("syntax error")

// SyntaxError locates a parse failure in the text that was parsed.
type SyntaxError struct {
	File   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

type export struct {
	module string
	name   string
}

// scope is what a parsed file contributes to resolution.
type scope struct {
	bindings map[string]host.Binding
	decls    map[string]*ast.Node
	imports  []string
	exports  map[string]export
	stars    []string
}

// Program holds every file and module parsed through it. It is safe for
// concurrent use.
type Program struct {
	mu      sync.RWMutex
	files   map[string]*scope
	modules map[string]*scope
}

var _ host.Host = (*Program)(nil)

func New() *Program {
	return &Program{
		files:   map[string]*scope{},
		modules: map[string]*scope{},
	}
}

// AddModule makes specifier importable. Its exports, including re-exports,
// become visible to ResolveReexport.
func (p *Program) AddModule(specifier, text string) error {
	root, err := parse(specifier, text)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules[specifier] = collect(root)
	return nil
}

func (p *Program) ParseFile(ctx context.Context, name, text string) (*ast.Node, error) {
	root, err := parse(name, text)
	if err != nil {
		return nil, err
	}
	sc := collect(root)

	p.mu.Lock()
	p.files[name] = sc
	p.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("file", name).
		Int("statements", root.Len()).
		Strs("imports", sc.imports).
		Msg("parsed file")
	return root, nil
}

func parse(name, text string) (*ast.Node, error) {
	toks, err := scanner.Tokenize(text, scanner.Options{FileName: name})
	if err != nil {
		return nil, err
	}
	g, err := fileParser.ParseString(name, text)
	if err != nil {
		return nil, syntaxError(name, err)
	}
	return newConverter(text, toks, true).file(g), nil
}

func syntaxError(name string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return errors.WithStack(&SyntaxError{File: name, Offset: perr.Position().Offset, Msg: perr.Message()})
	}
	return errors.Errorf("%w: %s: %s", ErrSyntax, name, err.Error())
}

// ParseExpression and its siblings return synthetic nodes: the text is not
// part of any file, so nothing carries a span.
func (p *Program) ParseExpression(text string) (*ast.Node, error) {
	g, err := exprParser.ParseString("", text)
	if err != nil {
		return nil, syntaxError("<expression>", err)
	}
	return newConverter(text, nil, false).expr(g), nil
}

func (p *Program) ParseStatements(text string) ([]*ast.Node, error) {
	g, err := fileParser.ParseString("", text)
	if err != nil {
		return nil, syntaxError("<statements>", err)
	}
	return newConverter(text, nil, false).stmts(g.Stmts), nil
}

func (p *Program) ParseType(text string) (*ast.Node, error) {
	g, err := typeParser.ParseString("", text)
	if err != nil {
		return nil, syntaxError("<type>", err)
	}
	return newConverter(text, nil, false).typ(g), nil
}

func (p *Program) ResolveIdentifier(file, name string) host.Binding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sc, ok := p.files[file]
	if !ok {
		return host.Binding{}
	}
	return sc.bindings[name]
}

func (p *Program) ResolveReexport(module, name string) (string, string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sc, ok := p.modules[module]
	if !ok {
		return "", "", false
	}
	if e, ok := sc.exports[name]; ok {
		if e.module == "" {
			return "", "", false
		}
		return e.module, e.name, true
	}
	for _, star := range sc.stars {
		if target, ok := p.modules[star]; ok && !target.provides(name) {
			continue
		}
		return star, name, true
	}
	return "", "", false
}

func (s *scope) provides(name string) bool {
	if _, ok := s.exports[name]; ok {
		return true
	}
	return len(s.stars) > 0
}

func (p *Program) ImportedModules(file string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sc, ok := p.files[file]
	if !ok {
		return nil
	}
	return append([]string(nil), sc.imports...)
}

// collect reads top-level bindings and exports. Nested scopes are not
// tracked; a name shadowed inside a function still resolves to its top-level
// binding.
func collect(root *ast.Node) *scope {
	sc := &scope{
		bindings: map[string]host.Binding{},
		decls:    map[string]*ast.Node{},
		exports:  map[string]export{},
	}
	seen := map[string]bool{}

	for _, stmt := range root.Children() {
		switch stmt.Kind() {
		case ast.KindImport:
			module := stmt.Value()
			if !seen[module] {
				seen[module] = true
				sc.imports = append(sc.imports, module)
			}
			for _, spec := range stmt.Children() {
				b := host.Binding{Kind: host.BindingImport, Module: module, ExportName: spec.Name()}
				if spec.Name() == "*" {
					b = host.Binding{Kind: host.BindingNamespace, Module: module}
				}
				sc.bindings[spec.Value()] = b
			}
		case ast.KindExportDecl:
			sc.exports["default"] = export{}
		default:
			if !stmt.IsDeclaration() || stmt.Name() == "" {
				continue
			}
			sc.bindings[stmt.Name()] = host.Binding{Kind: host.BindingLocal}
			sc.decls[stmt.Name()] = stmt
			if stmt.HasModifier("export") {
				exported := stmt.Name()
				if stmt.HasModifier("default") {
					exported = "default"
				}
				sc.exports[exported] = export{name: stmt.Name()}
			}
		}
	}

	// export lists may name imports declared anywhere in the file
	for _, stmt := range root.Children() {
		if !stmt.Is(ast.KindExportFrom) {
			continue
		}
		module := stmt.Value()
		for _, spec := range stmt.Children() {
			local, exported := spec.Name(), spec.Value()
			switch {
			case module != "" && local == "*" && exported == "*":
				sc.stars = append(sc.stars, module)
			case module != "":
				sc.exports[exported] = export{module: module, name: local}
			default:
				if b := sc.bindings[local]; b.Kind == host.BindingImport {
					sc.exports[exported] = export{module: b.Module, name: b.ExportName}
				} else {
					sc.exports[exported] = export{name: local}
				}
			}
		}
	}
	return sc
}
