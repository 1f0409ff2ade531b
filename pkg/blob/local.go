package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Local is a filesystem-backed Store. Put satisfies the atomicity contract
// (§6.3) by writing to a uniquely-named temp file under root and renaming
// it over the destination, the same pattern pkg/objectio's local object
// store uses for its segment files.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) fullPath(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *Local) Put(_ context.Context, path string, data []byte) error {
	dest := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return xerr.Wrap(xerr.Io, err, "mkdir failed", "path", path)
	}
	tmp := dest + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerr.Wrap(xerr.Io, err, "write temp file failed", "path", path)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return xerr.Wrap(xerr.Io, err, "rename into place failed", "path", path)
	}
	return nil
}

func (l *Local) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(l.fullPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, xerr.New(xerr.NotFound, "blob not found", "path", path)
		}
		return nil, xerr.Wrap(xerr.Io, err, "read failed", "path", path)
	}
	return data, nil
}

func (l *Local) Delete(_ context.Context, path string) error {
	if err := os.Remove(l.fullPath(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return xerr.New(xerr.NotFound, "blob not found", "path", path)
		}
		return xerr.Wrap(xerr.Io, err, "delete failed", "path", path)
	}
	return nil
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(l.fullPath(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, xerr.Wrap(xerr.Io, err, "stat failed", "path", path)
}
