package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// Disk stores one directory per source path under Root:
//
//	<root>/<sha1 uuid of the path>/<fingerprint>-<registry version>.json
type Disk struct {
	fs   afero.Fs
	root string
}

var _ Cache = (*Disk)(nil)

func NewDisk(fs afero.Fs, root string) *Disk {
	return &Disk{fs: fs, root: root}
}

func (d *Disk) dir(p string) string {
	return path.Join(d.root, uuid.NewSHA1(uuid.NameSpaceURL, []byte(p)).String())
}

func (d *Disk) file(key Key) string {
	return path.Join(d.dir(key.Path), fmt.Sprintf("%016x-%d.json", key.Fingerprint, key.RegistryVersion))
}

func (d *Disk) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	data, err := afero.ReadFile(d.fs, d.file(key))
	if errors.Is(err, os.ErrNotExist) {
		record(ctx, "disk", key, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Errorf("reading cache entry for %s: %w", key.Path, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// a torn write is a miss, not a failure
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", key.Path).Msg("dropping unreadable cache entry")
		_ = d.fs.Remove(d.file(key))
		record(ctx, "disk", key, false)
		return nil, false, nil
	}
	record(ctx, "disk", key, true)
	return &e, true, nil
}

func (d *Disk) Put(ctx context.Context, key Key, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Errorf("encoding cache entry for %s: %w", key.Path, err)
	}
	if err := d.fs.MkdirAll(d.dir(key.Path), 0o755); err != nil {
		return errors.Errorf("creating cache directory: %w", err)
	}
	if err := afero.WriteFile(d.fs, d.file(key), data, 0o644); err != nil {
		return errors.Errorf("writing cache entry for %s: %w", key.Path, err)
	}
	zerolog.Ctx(ctx).Trace().Str("path", key.Path).Int("bytes", len(data)).Msg("stored cache entry")
	return nil
}

func (d *Disk) Invalidate(ctx context.Context, p string) error {
	if err := d.fs.RemoveAll(d.dir(p)); err != nil {
		return errors.Errorf("invalidating %s: %w", p, err)
	}
	invalidations.WithLabelValues("disk").Inc()
	zerolog.Ctx(ctx).Trace().Str("path", p).Msg("invalidated cache")
	return nil
}

// Layered answers from the first cache that has an entry and writes to all
// of them.
type Layered []Cache

var _ Cache = Layered(nil)

func (l Layered) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	for i, c := range l {
		e, ok, err := c.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			for _, upper := range l[:i] {
				if err := upper.Put(ctx, key, e); err != nil {
					return nil, false, err
				}
			}
			return e, true, nil
		}
	}
	return nil, false, nil
}

func (l Layered) Put(ctx context.Context, key Key, e *Entry) error {
	for _, c := range l {
		if err := c.Put(ctx, key, e); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate clears every layer, even when an earlier one fails.
func (l Layered) Invalidate(ctx context.Context, p string) error {
	var err error
	for _, c := range l {
		err = multierr.Append(err, c.Invalidate(ctx, p))
	}
	return err
}
