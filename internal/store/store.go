package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: not found")

// Store persists named byte blobs. Keys are slash-separated relative paths.
type Store interface {
	// Save writes everything read from r to key, replacing any existing
	// value, and returns the number of bytes written. Intermediate
	// directories are created as needed.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)

	// Size returns the stored size of key, or ErrNotFound.
	Size(ctx context.Context, key string) (int64, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) bool

	// ReadAll returns the contents of key, or ErrNotFound.
	ReadAll(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// Location returns the string Open accepts to reach the same store.
	Location() string

	Close() error
}

// Open opens the store described by location. A location containing "://"
// is treated as a gocloud.dev/blob bucket URL (the driver must be linked
// in by the caller); anything else is a local directory.
func Open(ctx context.Context, location string) (Store, error) {
	if location == "" {
		return nil, errors.New("store: empty location")
	}
	if !IsBucketURL(location) {
		return NewDir(location)
	}

	bkt, err := blob.OpenBucket(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("store: open bucket %s: %w", location, err)
	}
	return NewBucket(bkt, location), nil
}

// IsBucketURL reports whether location names a blob bucket rather than a
// local directory.
func IsBucketURL(location string) bool {
	return strings.Contains(location, "://")
}

// Shareable reports whether a store at location can be reached from another
// OS process. In-memory buckets live inside a single process.
func Shareable(location string) bool {
	return !strings.HasPrefix(location, "mem://")
}

// Key joins path elements into a clean slash-separated key.
func Key(elem ...string) string {
	return strings.TrimPrefix(path.Join(elem...), "/")
}
