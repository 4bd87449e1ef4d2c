package cache_test

import (
	"context"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tsmacro/pkg/cache"
	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/expand"
	"github.com/walteh/tsmacro/pkg/macro"
	"github.com/walteh/tsmacro/pkg/metrics"
	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel).WithContext(context.Background())
}

func entry() *cache.Entry {
	rng := position.Range{Start: position.Place{Line: 1, Character: 2}, End: position.Place{Line: 1, Character: 8}}
	return &cache.Entry{
		Code:          "const a = 1 + 1;\n",
		Changed:       true,
		ExpandMap:     &sourcemap.Raw{Version: 3, Sources: []string{"a.ts"}, Names: []string{}, Mappings: "AAAA"},
		Diagnostics:   diagnostic.List{diagnostic.Warningf("a.ts", rng, macro.DiagnosticCode, "careful")},
		Records:       []expand.Record{{ID: 1, Kind: macro.KindExpression, Macro: "inc", Depth: 1, OriginalRange: rng}},
		PreprocessMap: nil,
	}
}

func backends() map[string]cache.Cache {
	return map[string]cache.Cache{
		"memory":  cache.NewMemory(),
		"disk":    cache.NewDisk(afero.NewMemMapFs(), "/cache"),
		"layered": cache.Layered{cache.NewMemory(), cache.NewDisk(afero.NewMemMapFs(), "/cache")},
	}
}

func TestCache(t *testing.T) {
	for name, c := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := testContext(t)
			key := cache.Key{Path: "a.ts", Fingerprint: cache.Fingerprint("text"), RegistryVersion: 3}

			_, ok, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Put(ctx, key, entry()))
			got, ok, err := c.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, entry(), got)

			other := key
			other.RegistryVersion = 4
			_, ok, err = c.Get(ctx, other)
			require.NoError(t, err)
			assert.False(t, ok, "a different registry version misses")

			other = key
			other.Fingerprint = cache.Fingerprint("changed text")
			_, ok, err = c.Get(ctx, other)
			require.NoError(t, err)
			assert.False(t, ok, "different content misses")

			require.NoError(t, c.Invalidate(ctx, "a.ts"))
			_, ok, err = c.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "invalidated")
		})
	}
}

func TestFingerprint(t *testing.T) {
	base := cache.Fingerprint("x", "pipeline")
	assert.Equal(t, base, cache.Fingerprint("x", "pipeline"))
	assert.NotEqual(t, base, cache.Fingerprint("y", "pipeline"))
	assert.NotEqual(t, base, cache.Fingerprint("x", "cons"))
	assert.NotEqual(t, cache.Fingerprint("x", "ab", "c"), cache.Fingerprint("x", "a", "bc"))
}

func TestDiskLayout(t *testing.T) {
	ctx := testContext(t)
	fs := afero.NewMemMapFs()
	d := cache.NewDisk(fs, "/cache")

	require.NoError(t, d.Put(ctx, cache.Key{Path: "a.ts", Fingerprint: 1, RegistryVersion: 1}, entry()))
	require.NoError(t, d.Put(ctx, cache.Key{Path: "a.ts", Fingerprint: 2, RegistryVersion: 1}, entry()))
	require.NoError(t, d.Put(ctx, cache.Key{Path: "b.ts", Fingerprint: 1, RegistryVersion: 1}, entry()))

	dirs, err := afero.ReadDir(fs, "/cache")
	require.NoError(t, err)
	assert.Len(t, dirs, 2, "one directory per source path")

	require.NoError(t, d.Invalidate(ctx, "a.ts"))
	dirs, err = afero.ReadDir(fs, "/cache")
	require.NoError(t, err)
	assert.Len(t, dirs, 1)

	_, ok, err := d.Get(ctx, cache.Key{Path: "b.ts", Fingerprint: 1, RegistryVersion: 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDiskUnreadableEntryMisses(t *testing.T) {
	ctx := testContext(t)
	fs := afero.NewMemMapFs()
	d := cache.NewDisk(fs, "/cache")
	key := cache.Key{Path: "a.ts", Fingerprint: 7, RegistryVersion: 1}
	require.NoError(t, d.Put(ctx, key, entry()))

	var file string
	require.NoError(t, afero.Walk(fs, "/cache", func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			file = p
		}
		return err
	}))
	require.NotEmpty(t, file)
	require.NoError(t, afero.WriteFile(fs, file, []byte("{not json"), 0o644))

	_, ok, err := d.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLayeredPromotes(t *testing.T) {
	ctx := testContext(t)
	mem := cache.NewMemory()
	disk := cache.NewDisk(afero.NewMemMapFs(), "/cache")
	key := cache.Key{Path: "a.ts", Fingerprint: 1, RegistryVersion: 1}
	require.NoError(t, disk.Put(ctx, key, entry()))

	_, ok, err := cache.Layered{mem, disk}.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"a.ts"}, mem.Paths())
}

func TestLayeredInvalidateClearsEveryLayer(t *testing.T) {
	ctx := testContext(t)
	mem := cache.NewMemory()
	readOnly := cache.NewDisk(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/cache")
	key := cache.Key{Path: "a.ts", Fingerprint: 1}
	require.NoError(t, mem.Put(ctx, key, entry()))

	err := cache.Layered{readOnly, mem}.Invalidate(ctx, "a.ts")
	require.Error(t, err)

	_, ok, err := mem.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "the failing layer does not keep the others stale")
}

func TestMetrics(t *testing.T) {
	ctx := testContext(t)
	m := cache.NewMemory()
	key := cache.Key{Path: "metrics.ts"}

	require.NoError(t, m.Put(ctx, key, entry()))
	_, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := testutil.GatherAndCount(metrics.Registry, "tsmacro_cache_hits_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}
