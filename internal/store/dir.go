package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/duke-git/lancet/v2/fileutil"
)

const bufferSize = 32 * 1024

// fileMode is the mode of every saved file. CreateTemp opens files 0600.
const fileMode = 0o644

// Dir is a Store rooted at a local directory.
type Dir struct {
	root string
}

var _ Store = (*Dir)(nil)

// NewDir returns a Dir rooted at root. The root is created lazily by the
// first Save.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve %s: %w", root, err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute root directory.
func (d *Dir) Root() string {
	return d.root
}

// Location implements Store.
func (d *Dir) Location() string {
	return d.root
}

// Path maps key to a filesystem path under the root.
func (d *Dir) Path(key string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(key))
	if p != d.root && !strings.HasPrefix(p, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("store: key %q escapes root", key)
	}
	return p, nil
}

// Save implements Store. The payload is written to a uniquely named
// temporary file next to the destination and renamed into place, so
// concurrent writers of the same key never interleave bytes.
func (d *Dir) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	dest, err := d.Path(key)
	if err != nil {
		return 0, err
	}

	// MkdirAll succeeds when the directory already exists, including when
	// another writer created it a moment ago.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	buf := make([]byte, bufferSize)
	written, err := io.CopyBuffer(tmp, contextReader{ctx: ctx, r: r}, buf)
	if err != nil {
		return written, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		return written, fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		return written, fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return written, fmt.Errorf("rename into %s: %w", key, err)
	}
	committed = true

	return written, nil
}

// Size implements Store.
func (d *Dir) Size(_ context.Context, key string) (int64, error) {
	p, err := d.Path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, mapNotExist(err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("store: %s is a directory", key)
	}
	return info.Size(), nil
}

// Exists implements Store.
func (d *Dir) Exists(_ context.Context, key string) bool {
	p, err := d.Path(key)
	if err != nil {
		return false
	}
	return fileutil.IsExist(p)
}

// ReadAll implements Store.
func (d *Dir) ReadAll(_ context.Context, key string) ([]byte, error) {
	p, err := d.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, mapNotExist(err)
	}
	return data, nil
}

// Delete implements Store. Directories left empty by the removal are pruned
// up to the root.
func (d *Dir) Delete(_ context.Context, key string) error {
	p, err := d.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return mapNotExist(err)
	}
	for dir := filepath.Dir(p); dir != d.root && strings.HasPrefix(dir, d.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// Close implements Store.
func (d *Dir) Close() error {
	return nil
}

func mapNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
