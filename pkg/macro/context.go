package macro

import (
	"context"
	"fmt"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/mapper"
	"github.com/walteh/tsmacro/pkg/position"
)

// DiagnosticCode marks diagnostics reported by macros.
const DiagnosticCode = "macro-expansion"

type ContextOptions struct {
	File string
	// Source is the text the tree was parsed from.
	Source string
	Lines  *position.LineIndex
	Site   *ast.Node
	Macro  Definition
	Host   host.Host
	// Mapper translates places in Source to the author's file.
	Mapper  mapper.Mapper
	Hygiene *Hygiene
	// SiteRange locates the call site in the author's file when Site itself
	// came from an earlier expansion and has no position.
	SiteRange position.Range
}

// Context is what one macro invocation sees. It is not shared between
// invocations.
type Context struct {
	ctx    context.Context
	opts   ContextOptions
	diags  diagnostic.List
	failed bool
}

func NewContext(ctx context.Context, opts ContextOptions) *Context {
	if opts.Lines == nil {
		opts.Lines = position.NewLineIndex(opts.Source)
	}
	if opts.Mapper == nil {
		opts.Mapper = mapper.Identity()
	}
	if opts.Hygiene == nil {
		opts.Hygiene = NewHygiene(nil)
	}
	return &Context{ctx: ctx, opts: opts}
}

func (c *Context) Ctx() context.Context { return c.ctx }
func (c *Context) FileName() string     { return c.opts.File }
func (c *Context) Site() *ast.Node      { return c.opts.Site }
func (c *Context) Macro() Definition    { return c.opts.Macro }

// TypeOf asks the host checker for the type of an expression.
func (c *Context) TypeOf(node *ast.Node) string {
	if c.opts.Host == nil {
		return "unknown"
	}
	return c.opts.Host.TypeOf(c.opts.File, node)
}

func (c *Context) Resolve(name string) host.Binding {
	if c.opts.Host == nil {
		return host.Binding{}
	}
	return c.opts.Host.ResolveIdentifier(c.opts.File, name)
}

func (c *Context) ParseExpression(text string) (*ast.Node, error) {
	return c.opts.Host.ParseExpression(text)
}

func (c *Context) ParseStatements(text string) ([]*ast.Node, error) {
	return c.opts.Host.ParseStatements(text)
}

func (c *Context) ParseType(text string) (*ast.Node, error) {
	return c.opts.Host.ParseType(text)
}

// Print renders node as source, copying untouched text from the file.
func (c *Context) Print(node *ast.Node) string {
	return ast.Print(node, c.opts.Source).Code
}

// ReportError attaches an error to node, or to the call site when node has
// no position of its own. The expansion is then discarded.
func (c *Context) ReportError(node *ast.Node, format string, args ...any) {
	c.failed = true
	c.diags = append(c.diags, diagnostic.Errorf(c.opts.File, c.OriginalRange(node), DiagnosticCode, format, args...))
}

func (c *Context) ReportWarning(node *ast.Node, format string, args ...any) {
	c.diags = append(c.diags, diagnostic.Warningf(c.opts.File, c.OriginalRange(node), DiagnosticCode, format, args...))
}

func (c *Context) Failed() bool { return c.failed }

// Diagnostics returns what the macro reported, in author coordinates.
func (c *Context) Diagnostics() diagnostic.List { return c.diags }

func (c *Context) GenerateUniqueName(prefix string) string {
	return c.opts.Hygiene.Unique(prefix)
}

// ToOriginal translates a place in the parsed text to the author's file.
func (c *Context) ToOriginal(p position.Place) (position.Place, bool) {
	return c.opts.Mapper.ToOriginal(p)
}

// OriginalRange locates node in the author's file. Synthetic nodes resolve
// to the call site.
func (c *Context) OriginalRange(node *ast.Node) position.Range {
	s, ok := node.Anchor()
	if !ok {
		s, ok = c.opts.Site.Anchor()
	}
	if !ok {
		return c.opts.SiteRange
	}
	rng := c.opts.Lines.Range(s)
	if mapped, ok := mapper.MapRange(c.opts.Mapper, rng, mapper.ToOriginal); ok {
		return mapped
	}
	return rng
}

func (c *Context) String() string {
	if c.opts.Macro == nil {
		return "macro context for " + c.opts.File
	}
	return fmt.Sprintf("%s macro %q in %s", c.opts.Macro.Kind(), c.opts.Macro.Key(), c.opts.File)
}
