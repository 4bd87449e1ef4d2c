// Package expand runs registered macros over a parsed file until no call
// site is left.
//
//	scan ──► resolve ──► expand ──► substitute ──► record
//	  ▲                                              │
//	  └──────────────────────────────────────────────┘
//
// Expansions are rescanned, so a macro may produce further macro calls. An
// origin chain on every expanded subtree bounds the depth and catches a site
// that reappears inside its own expansion.
package expand

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/mapper"
	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

var (
	ErrExpansionCycle = errors.New("macro expansion cycle")
	ErrExpansionLimit = errors.New("macro expansion limit exceeded")
	ErrMacroPanic     = errors.New("macro panicked")
)

const (
	DefaultMaxDepth      = 32
	DefaultMaxExpansions = 10000

	CodeCycle = "expansion-cycle"
	CodeLimit = "expansion-limit"
)

type Options struct {
	// MaxDepth bounds how deeply expansions may nest.
	MaxDepth int
	// MaxExpansions bounds the number of substitutions in one file.
	MaxExpansions int
	// ErrorPlaceholders replaces a failed expression site with a call to
	// __macro_error__ instead of leaving it as written.
	ErrorPlaceholders bool
}

type Transformer struct {
	registry *macro.Registry
	host     host.Host
	opts     Options
}

func New(registry *macro.Registry, h host.Host, opts Options) *Transformer {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultMaxExpansions
	}
	return &Transformer{registry: registry, host: h, opts: opts}
}

type Input struct {
	File string
	// Source is the text Root was parsed from.
	Source string
	Root   *ast.Node
	// Mapper translates places in Source to the author's file. Nil means
	// Source is the author's file.
	Mapper mapper.Mapper
}

type Result struct {
	Root    *ast.Node
	Code    string
	Changed bool
	// Map covers the print stage only: Code back to Source. It is nil when
	// nothing changed.
	Map *sourcemap.Raw
	// Mapper translates places in Code to the author's file.
	Mapper      mapper.Mapper
	Diagnostics diagnostic.List
	Records     []Record
}

// Transform expands every macro site of in.Root. Macro failures become
// diagnostics; only a cycle or an exceeded limit fails the call, in which case
// the result carries the unchanged input and the fatal diagnostic.
func (t *Transformer) Transform(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	defer func() { transformDuration.Observe(time.Since(start).Seconds()) }()

	if in.Mapper == nil {
		in.Mapper = mapper.Identity()
	}
	r := &run{
		t:       t,
		ctx:     ctx,
		in:      in,
		root:    in.Root,
		lines:   position.NewLineIndex(in.Source),
		hygiene: macro.NewHygiene(in.Root),
		seen:    map[*ast.Node]bool{},
		sites:   map[int]position.Range{},
	}

	if err := r.loop(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("file", in.File).Msg("macro expansion aborted")
		return &Result{
			Root:        in.Root,
			Code:        in.Source,
			Mapper:      in.Mapper,
			Diagnostics: r.diags,
		}, err
	}

	res, err := r.finish()
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("file", in.File).
		Int("expansions", r.expansions).
		Int("diagnostics", len(res.Diagnostics)).
		Dur("took", time.Since(start)).
		Msg("expanded macros")
	return res, nil
}

type run struct {
	t       *Transformer
	ctx     context.Context
	in      Input
	root    *ast.Node
	lines   *position.LineIndex
	hygiene *macro.Hygiene

	// seen holds nodes already known not to expand: no macro matches them,
	// or their macro failed.
	seen       map[*ast.Node]bool
	sites      map[int]position.Range
	pending    []Record
	diags      diagnostic.List
	expansions int
	changed    bool
}

func (r *run) loop() error {
	for {
		s, ok := r.next(r.root, nil, nil, nil)
		if !ok {
			return nil
		}
		if err := r.expand(s); err != nil {
			return err
		}
	}
}

func (r *run) expand(s *site) error {
	log := zerolog.Ctx(r.ctx)
	name := s.name()

	depth := 1
	if s.origin != nil {
		depth = s.origin.Depth + 1
	}
	fp := r.fingerprint(s)

	switch {
	case s.origin.Chain(fp):
		return r.fatal(s, CodeCycle, ErrExpansionCycle, "%s macro %q expands to itself", s.kind, name)
	case depth > r.t.opts.MaxDepth:
		return r.fatal(s, CodeLimit, ErrExpansionLimit, "%s macro %q nested deeper than %d expansions", s.kind, name, r.t.opts.MaxDepth)
	case r.expansions >= r.t.opts.MaxExpansions:
		return r.fatal(s, CodeLimit, ErrExpansionLimit, "more than %d macro expansions in one file", r.t.opts.MaxExpansions)
	}

	id := len(r.pending) + 1
	origin := &ast.Origin{ID: id, Depth: depth, Fingerprint: fp, Macro: name, Parent: s.origin}
	orig := r.originalRange(s.node, s.origin)

	out, ok := r.invoke(s, origin)
	if !ok {
		return nil
	}

	root, err := r.substitute(s, out)
	if err != nil {
		return errors.Errorf("substituting %s macro %q: %w", s.kind, name, err)
	}
	r.root = root
	r.changed = true
	r.expansions++
	r.sites[id] = orig
	r.pending = append(r.pending, Record{ID: id, Kind: s.kind, Macro: name, Depth: depth, OriginalRange: orig})
	expansionsTotal.WithLabelValues(s.kind.String()).Inc()

	log.Trace().
		Str("file", r.in.File).
		Stringer("kind", s.kind).
		Str("macro", name).
		Int("depth", depth).
		Stringer("at", orig.Start).
		Msg("expanded macro")
	return nil
}

func (r *run) fingerprint(s *site) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(s.kind.String())
	_, _ = d.WriteString("\x00" + s.name() + "\x00")
	_, _ = d.WriteString(ast.Print(s.node.WithOrigin(nil), r.in.Source).Code)
	return d.Sum64()
}

func (r *run) substitute(s *site, out []*ast.Node) (*ast.Node, error) {
	for _, n := range out {
		r.hygiene.ReserveAll(n)
	}
	if s.inList {
		return ast.ReplaceInList(r.root, s.path, out)
	}
	if len(out) == 1 {
		return ast.Replace(r.root, s.path, out[0])
	}
	return ast.Replace(r.root, s.path, ast.Block(out...))
}

// fatal records a diagnostic at the outermost call site of the chain that
// led to s.
func (r *run) fatal(s *site, code string, sentinel error, format string, args ...any) error {
	rng := r.originalRange(s.node, s.origin)
	if s.origin != nil {
		if outer, ok := r.sites[s.origin.Root().ID]; ok {
			rng = outer
		}
	}
	d := diagnostic.Errorf(r.in.File, rng, code, format, args...)
	r.diags = append(r.diags, d)
	expansionFailures.WithLabelValues(s.kind.String()).Inc()
	return errors.Errorf("%w: %s", sentinel, d)
}

// originalRange locates n in the author's file, falling back to the site that
// produced it when n has no position.
func (r *run) originalRange(n *ast.Node, origin *ast.Origin) position.Range {
	s, ok := n.Anchor()
	if !ok {
		if origin != nil {
			return r.sites[origin.ID]
		}
		return position.Range{}
	}
	rng := r.lines.Range(s)
	if mapped, ok := mapper.MapRange(r.in.Mapper, rng, mapper.ToOriginal); ok {
		return mapped
	}
	return rng
}

func (r *run) finish() (*Result, error) {
	res := &Result{
		Root:        r.root,
		Code:        r.in.Source,
		Mapper:      r.in.Mapper,
		Diagnostics: r.diags,
	}
	if !r.changed {
		return res, nil
	}

	printed := ast.Print(r.root, r.in.Source)
	raw := printed.SourceMap(r.in.File, r.in.File)
	stage, err := mapper.FromRaw(raw)
	if err != nil {
		return nil, errors.Errorf("reading print-stage source map: %w", err)
	}

	res.Code = printed.Code
	res.Changed = true
	res.Map = raw
	res.Mapper = mapper.Chain(r.in.Mapper, stage)
	res.Records = r.records(printed)
	return res, nil
}

// records fills in where each expansion ended up. An expansion whose root was
// itself replaced by a nested one takes the extent of its descendants.
func (r *run) records(printed *ast.Printed) []Record {
	spans := map[int]position.Span{}
	for id, s := range printed.Origins {
		spans[id] = s
	}
	r.propagate(printed.Origins, spans)

	gen := position.NewLineIndex(printed.Code)
	out := make([]Record, 0, len(r.pending))
	for _, rec := range r.pending {
		s, ok := spans[rec.ID]
		if !ok {
			continue
		}
		rec.GeneratedRange = gen.Range(s)
		out = append(out, rec)
	}
	return out
}

func (r *run) propagate(printed, spans map[int]position.Span) {
	parents := map[int]*ast.Origin{}
	ast.Walk(r.root, func(n *ast.Node, _ ast.Path) bool {
		if o := n.Origin(); o != nil {
			parents[o.ID] = o.Parent
		}
		return true
	})
	for id, s := range printed {
		for p := parents[id]; p != nil; p = p.Parent {
			if cur, ok := spans[p.ID]; ok && cur.Start <= s.Start && s.End <= cur.End {
				break
			}
			cur, ok := spans[p.ID]
			if !ok {
				cur = s
			}
			spans[p.ID] = position.Span{Start: min(cur.Start, s.Start), End: max(cur.End, s.End)}
		}
	}
}
