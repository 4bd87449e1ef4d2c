// Package cache stores compiled files. An entry is only valid for the exact
// text, options and registry it was produced with, so every lookup names all
// three in its Key.
package cache

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/walteh/tsmacro/pkg/diagnostic"
	"github.com/walteh/tsmacro/pkg/expand"
	"github.com/walteh/tsmacro/pkg/sourcemap"
)

type Key struct {
	Path        string
	Fingerprint uint64
	// RegistryVersion is macro.Registry.Version at compile time.
	RegistryVersion uint64
}

// Fingerprint hashes the source text together with the settings that change
// the output for the same text.
func Fingerprint(text string, settings ...string) uint64 {
	d := xxhash.New()
	for _, s := range settings {
		_, _ = d.WriteString(strconv.Itoa(len(s)))
		_, _ = d.WriteString(":" + s + ";")
	}
	_, _ = d.WriteString(text)
	return d.Sum64()
}

// Entry is a compiled file. The maps are kept instead of a mapper so the entry
// can be written to disk.
type Entry struct {
	Code    string `json:"code"`
	Changed bool   `json:"changed"`
	// PreprocessMap maps the preprocessed text to the author's file.
	PreprocessMap *sourcemap.Raw `json:"preprocessMap,omitempty"`
	// ExpandMap maps the final code to the preprocessed text.
	ExpandMap   *sourcemap.Raw  `json:"expandMap,omitempty"`
	Diagnostics diagnostic.List `json:"diagnostics,omitempty"`
	Records     []expand.Record `json:"records,omitempty"`
}

type Cache interface {
	Get(ctx context.Context, key Key) (*Entry, bool, error)
	Put(ctx context.Context, key Key, e *Entry) error
	// Invalidate drops every entry stored for path.
	Invalidate(ctx context.Context, path string) error
}

// Memory keeps entries for the life of the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[Key]*Entry
}

var _ Cache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: map[string]map[Key]*Entry{}}
}

func (m *Memory) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key.Path][key]
	m.mu.RUnlock()
	record(ctx, "memory", key, ok)
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, key Key, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.entries[key.Path]
	if !ok {
		byKey = map[Key]*Entry{}
		m.entries[key.Path] = byKey
	}
	byKey[key] = e
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, path string) error {
	m.mu.Lock()
	n := len(m.entries[path])
	delete(m.entries, path)
	m.mu.Unlock()
	invalidations.WithLabelValues("memory").Inc()
	zerolog.Ctx(ctx).Trace().Str("path", path).Int("entries", n).Msg("invalidated cache")
	return nil
}

// Paths lists the paths with at least one entry.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.entries))
	for p := range m.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func record(ctx context.Context, backend string, key Key, hit bool) {
	ev := zerolog.Ctx(ctx).Trace().Str("backend", backend).Str("path", key.Path).Uint64("registry", key.RegistryVersion)
	if hit {
		hits.WithLabelValues(backend).Inc()
		ev.Msg("cache hit")
		return
	}
	misses.WithLabelValues(backend).Inc()
	ev.Msg("cache miss")
}
