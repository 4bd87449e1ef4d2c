// Package config reads the project file, tsmacro.hcl or tsmacro.yaml.
//
//	extensions = ["pipeline", "cons"]
//	manifests  = ["${root}/macros/**/*.macros.hcl"]
//	sources    = ["src/**/*.ts"]
//
//	expand {
//	  max_depth          = 16
//	  error_placeholders = true
//	}
//
//	cache {
//	  dir = ".tsmacro-cache"
//	}
package config

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/tsmacro/pkg/expand"
	"github.com/walteh/tsmacro/pkg/syntax"
)

// FileNames are tried in order by Find.
var FileNames = []string{"tsmacro.hcl", "tsmacro.yaml", "tsmacro.yml"}

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// Extensions names the syntax extensions to run. Nil runs all of them.
	Extensions []string     `hcl:"extensions,optional" yaml:"extensions,omitempty"`
	Manifests  []string     `hcl:"manifests,optional" yaml:"manifests,omitempty"`
	Sources    []string     `hcl:"sources,optional" yaml:"sources,omitempty"`
	Expand     *ExpandBlock `hcl:"expand,block" yaml:"expand,omitempty"`
	Cache      *CacheBlock  `hcl:"cache,block" yaml:"cache,omitempty"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

type ExpandBlock struct {
	MaxDepth          int  `hcl:"max_depth,optional" yaml:"max_depth,omitempty"`
	MaxExpansions     int  `hcl:"max_expansions,optional" yaml:"max_expansions,omitempty"`
	ErrorPlaceholders bool `hcl:"error_placeholders,optional" yaml:"error_placeholders,omitempty"`
}

type CacheBlock struct {
	Dir      string `hcl:"dir,optional" yaml:"dir,omitempty"`
	Disabled bool   `hcl:"disabled,optional" yaml:"disabled,omitempty"`
}

// Default is the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Manifests: []string{"**/*.macros.hcl", "**/*.macros.yaml"},
		Sources:   []string{"**/*.ts"},
		Expand:    &ExpandBlock{},
		Cache:     &CacheBlock{},
	}
}

// ExpandOptions converts the expand block, leaving zero values to the
// transformer defaults.
func (c *Config) ExpandOptions() expand.Options {
	if c.Expand == nil {
		return expand.Options{}
	}
	return expand.Options{
		MaxDepth:          c.Expand.MaxDepth,
		MaxExpansions:     c.Expand.MaxExpansions,
		ErrorPlaceholders: c.Expand.ErrorPlaceholders,
	}
}

// CacheDir returns the disk cache directory, or "" when only the in-memory
// cache should be used.
func (c *Config) CacheDir() string {
	if c.Cache == nil || c.Cache.Disabled {
		return ""
	}
	return c.Cache.Dir
}

// Find looks for a config file in dir. A missing file yields Default.
func Find(ctx context.Context, fs afero.Fs, dir string) (*Config, error) {
	for _, name := range FileNames {
		p := path.Join(dir, name)
		ok, err := afero.Exists(fs, p)
		if err != nil {
			return nil, errors.Errorf("checking %s: %w", p, err)
		}
		if ok {
			return Load(ctx, fs, p)
		}
	}
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("no config file, using defaults")
	return Default(), nil
}

// Load reads one config file. YAML is chosen by extension; anything else is
// parsed as HCL, where ${root} names the directory holding the file.
func Load(ctx context.Context, fs afero.Fs, p string) (*Config, error) {
	data, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg *Config
	if strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") {
		cfg, err = decodeYAML(data)
	} else {
		cfg, err = decodeHCL(data, p)
	}
	if err != nil {
		return nil, err
	}
	cfg.Path = p
	cfg.fill()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("path", p).Strs("extensions", cfg.Extensions).Msg("loaded config")
	return cfg, nil
}

func decodeYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

func decodeHCL(data []byte, p string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, p)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"root": cty.StringVal(path.Dir(p)),
		},
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &cfg); diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}

func (c *Config) fill() {
	def := Default()
	if len(c.Manifests) == 0 {
		c.Manifests = def.Manifests
	}
	if len(c.Sources) == 0 {
		c.Sources = def.Sources
	}
	if c.Expand == nil {
		c.Expand = def.Expand
	}
	if c.Cache == nil {
		c.Cache = def.Cache
	}
}

func (c *Config) validate() error {
	if c.Expand.MaxDepth < 0 {
		return errors.Errorf("%w: %s: max_depth must not be negative", ErrInvalid, c.Path)
	}
	if c.Expand.MaxExpansions < 0 {
		return errors.Errorf("%w: %s: max_expansions must not be negative", ErrInvalid, c.Path)
	}
	if c.Extensions != nil {
		if _, err := syntax.Lookup(c.Extensions); err != nil {
			return errors.Errorf("%w: %s: %s", ErrInvalid, c.Path, err.Error())
		}
	}
	return nil
}
