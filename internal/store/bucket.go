package store

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Bucket is a Store backed by a gocloud.dev/blob bucket.
type Bucket struct {
	bucket   *blob.Bucket
	location string
}

var _ Store = (*Bucket)(nil)

// NewBucket wraps an open bucket. location is reported by Location and
// should be the URL the bucket was opened with. The Bucket takes ownership
// of bkt and closes it on Close.
func NewBucket(bkt *blob.Bucket, location string) *Bucket {
	return &Bucket{bucket: bkt, location: location}
}

// Location implements Store.
func (b *Bucket) Location() string {
	return b.location
}

// Save implements Store. Blob writers only become visible on Close, so a
// failed copy never replaces an existing object.
func (b *Bucket) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := b.bucket.NewWriter(wctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("open writer %s: %w", key, err)
	}

	written, err := io.Copy(w, r)
	if err != nil {
		// Cancelling before Close aborts the upload.
		cancel()
		_ = w.Close()
		return written, fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", key, err)
	}
	return written, nil
}

// Size implements Store.
func (b *Bucket) Size(ctx context.Context, key string) (int64, error) {
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		return 0, mapBlobError(err)
	}
	return attrs.Size, nil
}

// Exists implements Store.
func (b *Bucket) Exists(ctx context.Context, key string) bool {
	ok, err := b.bucket.Exists(ctx, key)
	return err == nil && ok
}

// ReadAll implements Store.
func (b *Bucket) ReadAll(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, mapBlobError(err)
	}
	return data, nil
}

// Delete implements Store.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Delete(ctx, key); err != nil {
		return mapBlobError(err)
	}
	return nil
}

// Close implements Store.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}

func mapBlobError(err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
