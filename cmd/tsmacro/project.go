package main

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/cache"
	"github.com/walteh/tsmacro/pkg/config"
	"github.com/walteh/tsmacro/pkg/host/lite"
	"github.com/walteh/tsmacro/pkg/loader"
	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/pipeline"
)

// project is a directory with its config, its sources and a compiler whose
// registry holds every macro package those sources import.
type project struct {
	dir      string
	cfg      *config.Config
	files    []pipeline.File
	compiler *pipeline.Compiler
}

func (me *Root) loadConfig(ctx context.Context) (*config.Config, error) {
	if me.config != "" {
		return config.Load(ctx, me.fs, me.resolve(me.config))
	}
	return config.Find(ctx, me.fs, me.dir)
}

func (me *Root) resolve(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(me.dir, p)
}

// rel names p the way the user sees it: relative to --dir when inside it.
func (me *Root) rel(p string) string {
	if me.dir == "." || me.dir == "" {
		return p
	}
	prefix := strings.TrimSuffix(me.dir, "/") + "/"
	return strings.TrimPrefix(p, prefix)
}

// readSources reads args, or every file matching the configured source
// globs when args is empty.
func (me *Root) readSources(cfg *config.Config, args []string) ([]pipeline.File, error) {
	var paths []string
	if len(args) > 0 {
		for _, a := range args {
			paths = append(paths, me.resolve(a))
		}
	} else {
		found, err := loader.Glob(me.fs, me.dir, cfg.Sources)
		if err != nil {
			return nil, err
		}
		paths = found
	}

	files := make([]pipeline.File, 0, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(me.fs, p)
		if err != nil {
			return nil, errors.Errorf("reading source: %w", err)
		}
		files = append(files, pipeline.File{Path: me.rel(p), Text: string(data)})
	}
	return files, nil
}

func (me *Root) openProject(ctx context.Context, args []string) (*project, error) {
	cfg, err := me.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	files, err := me.readSources(cfg, args)
	if err != nil {
		return nil, err
	}

	reg := macro.NewRegistry()
	if err := macro.RegisterBuiltins(reg); err != nil {
		return nil, err
	}

	l := loader.New(me.fs, reg)
	if err := l.IndexManifests(ctx, me.dir, cfg.Manifests); err != nil {
		return nil, err
	}
	texts := make(map[string]string, len(files))
	for _, f := range files {
		texts[f.Path] = f.Text
	}
	added, err := l.Discover(ctx, texts)
	if err != nil {
		return nil, err
	}
	reg.Freeze()

	zerolog.Ctx(ctx).Debug().
		Str("config", cfg.Path).
		Int("files", len(files)).
		Strs("packages", added).
		Int("macros", len(reg.All())).
		Msg("opened project")

	return &project{
		dir:   me.dir,
		cfg:   cfg,
		files: files,
		compiler: &pipeline.Compiler{
			Registry: reg,
			Host:     lite.New(),
			Cache:    me.cache(cfg),
			Options: pipeline.Options{
				Extensions: cfg.Extensions,
				Expand:     cfg.ExpandOptions(),
			},
		},
	}, nil
}

func (me *Root) cache(cfg *config.Config) cache.Cache {
	if cfg.Cache != nil && cfg.Cache.Disabled {
		return nil
	}
	mem := cache.NewMemory()
	dir := cfg.CacheDir()
	if dir == "" {
		return mem
	}
	return cache.Layered{mem, cache.NewDisk(me.fs, me.resolve(dir))}
}
