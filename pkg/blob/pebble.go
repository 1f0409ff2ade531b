package blob

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Pebble is an LSM-backed local Store, for deployments that prefer one
// embedded store for both segment blobs and catalog/meta state rather
// than a raw filesystem tree.
type Pebble struct {
	db *pebble.DB
}

func NewPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "pebble open failed", "dir", dir)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Close() error { return p.db.Close() }

func (p *Pebble) Put(_ context.Context, path string, data []byte) error {
	if err := p.db.Set([]byte(path), data, pebble.Sync); err != nil {
		return xerr.Wrap(xerr.Io, err, "pebble set failed", "path", path)
	}
	return nil
}

func (p *Pebble) Get(_ context.Context, path string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(path))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, xerr.New(xerr.NotFound, "blob not found", "path", path)
		}
		return nil, xerr.Wrap(xerr.Io, err, "pebble get failed", "path", path)
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, nil
}

func (p *Pebble) Delete(_ context.Context, path string) error {
	if err := p.db.Delete([]byte(path), pebble.Sync); err != nil {
		return xerr.Wrap(xerr.Io, err, "pebble delete failed", "path", path)
	}
	return nil
}

func (p *Pebble) Exists(ctx context.Context, path string) (bool, error) {
	_, err := p.Get(ctx, path)
	if err == nil {
		return true, nil
	}
	if xerr.Is(err, xerr.NotFound) {
		return false, nil
	}
	return false, err
}
