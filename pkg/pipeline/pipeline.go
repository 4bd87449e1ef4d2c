// Package pipeline compiles source files: preprocess, parse, expand, print.
//
// Each file passes through two stages. Preprocessing rewrites surface syntax
// the host parser does not know; expansion runs macros over the parsed tree.
// Every Output carries a mapper and a source map that lead from the final
// code back to the author's text through both stages.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/tsmacro/pkg/cache"
	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/expand"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/mapper"
	"github.com/walteh/tsmacro/pkg/preprocess"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

var ErrRegistryNotFrozen = errors.New("registry must be frozen before compiling files concurrently")

type Options struct {
	// Extensions names the syntax extensions to run; nil runs all of them.
	Extensions []string
	Expand     expand.Options
}

type Compiler struct {
	Registry *macro.Registry
	Host     host.Host
	// Cache may be nil.
	Cache   cache.Cache
	Options Options
}

type Output struct {
	Path    string
	Code    string
	Changed bool
	// Map leads from Code to the author's file. It is nil when nothing changed.
	Map         *sourcemap.Raw
	Mapper      mapper.Mapper
	Diagnostics diagnostic.List
	Records     []expand.Record
	Cached      bool
}

func (c *Compiler) settings() []string {
	exts := "*"
	if c.Options.Extensions != nil {
		exts = strings.Join(c.Options.Extensions, ",")
	}
	e := c.Options.Expand
	return []string{exts, fmt.Sprintf("%d/%d/%t", e.MaxDepth, e.MaxExpansions, e.ErrorPlaceholders)}
}

// Compile runs one file through both stages. Macro failures are diagnostics
// on the output; an error means the file could not be compiled at all. An
// expansion cycle or limit returns the output with its fatal diagnostic
// together with the error.
func (c *Compiler) Compile(ctx context.Context, path, text string) (*Output, error) {
	start := time.Now()
	log := zerolog.Ctx(ctx).With().Str("file", path).Logger()

	key := cache.Key{Path: path, Fingerprint: cache.Fingerprint(text, c.settings()...), RegistryVersion: c.Registry.Version()}
	if c.Cache != nil {
		e, ok, err := c.Cache.Get(ctx, key)
		if err != nil {
			return nil, errors.Errorf("reading cache: %w", err)
		}
		if ok {
			return fromEntry(path, text, e)
		}
	}

	pre, err := preprocess.Preprocess(ctx, text, preprocess.Options{FileName: path, Extensions: c.Options.Extensions})
	if err != nil {
		return nil, errors.Errorf("preprocessing %s: %w", path, err)
	}
	preMapper, err := mapper.ForResult(pre)
	if err != nil {
		return nil, err
	}

	root, err := c.Host.ParseFile(ctx, path, pre.Code)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}

	res, err := expand.New(c.Registry, c.Host, c.Options.Expand).Transform(ctx, expand.Input{
		File:   path,
		Source: pre.Code,
		Root:   root,
		Mapper: preMapper,
	})
	if err != nil {
		if res == nil {
			return nil, err
		}
		return &Output{Path: path, Code: text, Mapper: mapper.Identity(), Diagnostics: res.Diagnostics}, err
	}

	out := &Output{
		Path:        path,
		Code:        res.Code,
		Changed:     pre.Changed || res.Changed,
		Mapper:      res.Mapper,
		Diagnostics: res.Diagnostics,
		Records:     res.Records,
	}
	if out.Map, err = finalMap(path, text, pre.Map, res.Map, preMapper); err != nil {
		return nil, err
	}

	if c.Cache != nil {
		entry := &cache.Entry{
			Code:          out.Code,
			Changed:       out.Changed,
			PreprocessMap: pre.Map,
			ExpandMap:     res.Map,
			Diagnostics:   out.Diagnostics,
			Records:       out.Records,
		}
		if err := c.Cache.Put(ctx, key, entry); err != nil {
			return nil, errors.Errorf("writing cache: %w", err)
		}
	}

	log.Debug().
		Bool("changed", out.Changed).
		Int("records", len(out.Records)).
		Int("diagnostics", len(out.Diagnostics)).
		Dur("took", time.Since(start)).
		Msg("compiled file")
	return out, nil
}

// finalMap picks or builds the map from the final code to the author's text.
func finalMap(path, text string, pre, printed *sourcemap.Raw, preMapper mapper.Mapper) (*sourcemap.Raw, error) {
	switch {
	case printed == nil:
		return pre, nil
	case pre == nil:
		raw := *printed
		raw.SourcesContent = []string{text}
		return &raw, nil
	}
	return mapper.Compose(printed, preMapper, path, text)
}

func fromEntry(path, text string, e *cache.Entry) (*Output, error) {
	preMapper, err := mapper.FromRaw(e.PreprocessMap)
	if err != nil {
		return nil, err
	}
	printMapper, err := mapper.FromRaw(e.ExpandMap)
	if err != nil {
		return nil, err
	}
	final, err := finalMap(path, text, e.PreprocessMap, e.ExpandMap, preMapper)
	if err != nil {
		return nil, err
	}
	return &Output{
		Path:        path,
		Code:        e.Code,
		Changed:     e.Changed,
		Map:         final,
		Mapper:      mapper.Chain(preMapper, printMapper),
		Diagnostics: e.Diagnostics,
		Records:     e.Records,
		Cached:      true,
	}, nil
}

type File struct {
	Path string
	Text string
}

// CompileAll compiles files with at most limit running at once; limit <= 0
// means no limit. Outputs come back in the order of files. The registry must
// be frozen so no file sees a registration made while another compiles.
func (c *Compiler) CompileAll(ctx context.Context, files []File, limit int) ([]*Output, error) {
	if !c.Registry.Frozen() {
		return nil, errors.WithStack(ErrRegistryNotFrozen)
	}

	outs := make([]*Output, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, f := range files {
		g.Go(func() error {
			out, err := c.Compile(ctx, f.Path, f.Text)
			outs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return outs, err
	}
	return outs, nil
}
