package config_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/config"
	"github.com/walteh/tsmacro/pkg/expand"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel).WithContext(context.Background())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		config   string
		validate func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "hcl",
			path: "/proj/tsmacro.hcl",
			config: `
extensions = ["pipeline", "cons"]
manifests  = ["${root}/macros/*.macros.hcl"]

expand {
  max_depth          = 16
  error_placeholders = true
}

cache {
  dir = ".cache"
}
`,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, []string{"pipeline", "cons"}, cfg.Extensions)
				assert.Equal(t, []string{"/proj/macros/*.macros.hcl"}, cfg.Manifests)
				assert.Equal(t, config.Default().Sources, cfg.Sources)
				assert.Equal(t, expand.Options{MaxDepth: 16, ErrorPlaceholders: true}, cfg.ExpandOptions())
				assert.Equal(t, ".cache", cfg.CacheDir())
				assert.Equal(t, "/proj/tsmacro.hcl", cfg.Path)
			},
		},
		{
			name: "yaml",
			path: "/proj/tsmacro.yaml",
			config: `
sources:
  - src/**/*.ts
expand:
  max_expansions: 50
cache:
  dir: .cache
  disabled: true
`,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Nil(t, cfg.Extensions)
				assert.Equal(t, []string{"src/**/*.ts"}, cfg.Sources)
				assert.Equal(t, expand.Options{MaxExpansions: 50}, cfg.ExpandOptions())
				assert.Empty(t, cfg.CacheDir())
			},
		},
		{
			name:   "empty yaml",
			path:   "/proj/tsmacro.yml",
			config: "",
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default().Manifests, cfg.Manifests)
				assert.Equal(t, expand.Options{}, cfg.ExpandOptions())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.path, []byte(tt.config), 0o644))

			cfg, err := config.Load(testContext(t), fs, tt.path)
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		config  string
		wantErr error
		msg     string
	}{
		{name: "unknown yaml field", path: "/c.yaml", config: "bogus: 1\n", msg: "parsing YAML"},
		{name: "bad hcl", path: "/c.hcl", config: "expand {", msg: "parsing HCL"},
		{name: "unknown hcl attribute", path: "/c.hcl", config: "bogus = 1\n", msg: "decoding HCL"},
		{name: "unknown extension", path: "/c.hcl", config: "extensions = [\"nope\"]\n", wantErr: config.ErrInvalid},
		{name: "negative depth", path: "/c.yaml", config: "expand:\n  max_depth: -1\n", wantErr: config.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.path, []byte(tt.config), 0o644))

			_, err := config.Load(testContext(t), fs, tt.path)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := config.Find(testContext(t), fs, "/proj")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	require.NoError(t, afero.WriteFile(fs, "/proj/tsmacro.yaml", []byte("extensions: [hkt]\n"), 0o644))
	cfg, err = config.Find(testContext(t), fs, "/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"hkt"}, cfg.Extensions)
	assert.Equal(t, "/proj/tsmacro.yaml", cfg.Path)

	_, err = config.Load(testContext(t), fs, "/proj/missing.hcl")
	assert.Error(t, err)
}
