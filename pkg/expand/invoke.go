package expand

import (
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/macro"
)

var ErrEmptyExpansion = errors.New("macro produced no node")

func (r *run) newContext(s *site, def macro.Definition) *macro.Context {
	return macro.NewContext(r.ctx, macro.ContextOptions{
		File:    r.in.File,
		Source:  r.in.Source,
		Lines:   r.lines,
		Site:    s.node,
		Macro:   def,
		Host:    r.t.host,
		Mapper:  r.in.Mapper,
		Hygiene: r.hygiene,

		SiteRange: r.originalRange(s.node, s.origin),
	})
}

// invoke runs the macro of s and returns the nodes that replace s.node, each
// marked with origin. It reports false when the site is to be left alone.
func (r *run) invoke(s *site, origin *ast.Origin) ([]*ast.Node, bool) {
	if s.kind == macro.KindDerive {
		return r.derive(s, origin)
	}

	c := r.newContext(s, s.def)
	var out []*ast.Node
	err := protect(func() error {
		var err error
		out, err = r.call(c, s)
		return err
	})
	r.diags = append(r.diags, c.Diagnostics()...)

	if err == nil && !c.Failed() && len(out) == 0 && s.kind != macro.KindAttribute && s.kind != macro.KindLabeledBlock {
		err = errors.WithStack(ErrEmptyExpansion)
	}
	if err != nil || c.Failed() {
		r.fail(s, c, err)
		return nil, false
	}

	for i, n := range out {
		out[i] = n.WithOrigin(origin)
	}
	return out, true
}

func (r *run) call(c *macro.Context, s *site) ([]*ast.Node, error) {
	one := func(n *ast.Node, err error) ([]*ast.Node, error) {
		if err != nil || n == nil {
			return nil, err
		}
		return []*ast.Node{n}, nil
	}

	switch def := s.def.(type) {
	case *macro.ExpressionMacro:
		return one(def.Expand(c, s.node, s.node.Args()))

	case *macro.TaggedTemplateMacro:
		chunks, sources, err := ast.TemplateParts(s.node.Child(1).Value())
		if err != nil {
			return nil, err
		}
		exprs := make([]*ast.Node, 0, len(sources))
		for _, src := range sources {
			e, err := c.ParseExpression(src)
			if err != nil {
				return nil, errors.Errorf("template expression %q: %w", src, err)
			}
			exprs = append(exprs, e)
		}
		return one(def.Expand(c, s.node, chunks, exprs))

	case *macro.TypeMacro:
		return one(def.Expand(c, s.node, s.node.Children()))

	case *macro.LabeledBlockMacro:
		return def.Expand(c, s.node)

	case *macro.AttributeMacro:
		decorator := s.node.Child(ast.DecoratorIndex).Child(s.decorator)
		target, err := withoutDecorator(s)
		if err != nil {
			return nil, err
		}
		out, err := def.Expand(c, decorator, target)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			out[0] = keepExport(s.node, out[0])
		}
		return out, nil
	}
	return nil, errors.Errorf("%s macro %q has unexpected type %T", s.kind, s.def.Key(), s.def)
}

// derive keeps the target, minus the @derive decorator, and appends what each
// named macro generates. A failing derive is dropped on its own.
func (r *run) derive(s *site, origin *ast.Origin) ([]*ast.Node, bool) {
	target, err := withoutDecorator(s)
	if err != nil {
		r.fail(s, r.newContext(s, s.derives[0]), err)
		return nil, false
	}

	out := []*ast.Node{target}
	for _, def := range s.derives {
		d, ok := def.(*macro.DeriveMacro)
		if !ok {
			continue
		}
		c := r.newContext(s, def)
		var generated []*ast.Node
		err := protect(func() error {
			var err error
			generated, err = d.Expand(c, target)
			return err
		})
		r.diags = append(r.diags, c.Diagnostics()...)
		if err != nil || c.Failed() {
			r.report(s, c, def, err)
			continue
		}
		for _, n := range generated {
			if n != nil {
				out = append(out, n.WithOrigin(origin))
			}
		}
	}
	if len(out) == 1 {
		r.seen[s.node] = true
		return nil, false
	}
	return out, true
}

// withoutDecorator returns the declaration of s with its triggering
// decorator blanked out.
func withoutDecorator(s *site) (*ast.Node, error) {
	return ast.Replace(s.node, ast.Path{ast.DecoratorIndex, s.decorator}, ast.Empty())
}

// keepExport carries the export modifiers of the declaration an attribute
// replaced over to the declaration that takes its place.
func keepExport(old, repl *ast.Node) *ast.Node {
	if !old.HasModifier("export") || !repl.IsDeclaration() || repl.HasModifier("export") {
		return repl
	}
	mods := "export"
	if old.HasModifier("default") {
		mods = "export default"
	}
	return repl.WithValue(strings.TrimSpace(mods + " " + repl.Value()))
}

// fail reports a failed invocation and leaves the site alone, or swaps in an
// error placeholder for expression sites when configured to.
func (r *run) fail(s *site, c *macro.Context, err error) {
	msg := r.report(s, c, s.def, err)

	expression := s.kind == macro.KindExpression || s.kind == macro.KindTaggedTemplate
	if !r.t.opts.ErrorPlaceholders || !expression {
		r.seen[s.node] = true
		return
	}
	root, rerr := ast.Replace(r.root, s.path, ast.ErrorPlaceholder(msg))
	if rerr != nil {
		r.seen[s.node] = true
		return
	}
	r.root = root
	r.changed = true
}

// report emits a diagnostic for err unless the macro already reported its
// own error, and returns the message to show in a placeholder.
func (r *run) report(s *site, c *macro.Context, def macro.Definition, err error) string {
	expansionFailures.WithLabelValues(s.kind.String()).Inc()
	zerolog.Ctx(r.ctx).Debug().Err(err).Str("file", r.in.File).Str("macro", def.Key()).Msg("macro failed")

	for _, d := range c.Diagnostics() {
		if d.Severity == diagnostic.SeverityError {
			return d.Message
		}
	}
	msg := "macro " + def.Key() + " failed"
	if err != nil {
		msg = err.Error()
	}
	r.diags = append(r.diags, diagnostic.Errorf(r.in.File, c.OriginalRange(s.node), macro.DiagnosticCode,
		"%s macro %q failed: %s", s.kind, def.Key(), msg))
	return msg
}

// protect turns a panicking macro into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("%w: %v", ErrMacroPanic, p)
		}
	}()
	return fn()
}
