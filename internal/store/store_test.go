package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/memblob"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	dir, err := Open(ctx, t.TempDir())
	require.NoError(t, err)
	bkt, err := Open(ctx, "mem://")
	require.NoError(t, err)

	t.Cleanup(func() {
		dir.Close()
		bkt.Close()
	})
	return map[string]Store{"dir": dir, "bucket": bkt}
}

func TestSaveReadSize(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := []byte("payload bytes")

			n, err := s.Save(ctx, "threads/example_com/image1.jpg", bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, int64(len(data)), n)

			require.True(t, s.Exists(ctx, "threads/example_com/image1.jpg"))

			size, err := s.Size(ctx, "threads/example_com/image1.jpg")
			require.NoError(t, err)
			require.Equal(t, int64(len(data)), size)

			got, err := s.ReadAll(ctx, "threads/example_com/image1.jpg")
			require.NoError(t, err)
			require.Equal(t, data, got)
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Save(ctx, "a/b.png", strings.NewReader("first version, longer"))
			require.NoError(t, err)
			_, err = s.Save(ctx, "a/b.png", strings.NewReader("second"))
			require.NoError(t, err)

			got, err := s.ReadAll(ctx, "a/b.png")
			require.NoError(t, err)
			require.Equal(t, "second", string(got))
		})
	}
}

func TestNotFound(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.False(t, s.Exists(ctx, "missing/file.jpg"))

			_, err := s.Size(ctx, "missing/file.jpg")
			require.ErrorIs(t, err, ErrNotFound)

			_, err = s.ReadAll(ctx, "missing/file.jpg")
			require.ErrorIs(t, err, ErrNotFound)

			require.ErrorIs(t, s.Delete(ctx, "missing/file.jpg"), ErrNotFound)
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Save(ctx, "x/y/z.gif", strings.NewReader("gif"))
			require.NoError(t, err)

			require.NoError(t, s.Delete(ctx, "x/y/z.gif"))
			require.False(t, s.Exists(ctx, "x/y/z.gif"))
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestSaveFailureKeepsPreviousValue(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Save(ctx, "keep/me.jpg", strings.NewReader("original"))
			require.NoError(t, err)

			_, err = s.Save(ctx, "keep/me.jpg", failingReader{})
			require.Error(t, err)

			got, err := s.ReadAll(ctx, "keep/me.jpg")
			require.NoError(t, err)
			require.Equal(t, "original", string(got))
		})
	}
}

func TestDirSavedFilesAreWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	ctx := context.Background()
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, err = d.Save(ctx, "threads/example_com/a.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(d.Root(), "threads", "example_com", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestDirConcurrentSameDirectory(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("threads/shared_host/file%d.jpg", i)
			if _, err := d.Save(ctx, key, strings.NewReader(key)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(d.Root(), "threads", "shared_host"))
	require.NoError(t, err)
	require.Len(t, entries, 32, "no temp files should remain")
}

func TestDirConcurrentSameKey(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	payloads := []string{"aaaaaaaaaaaaaaaa", "bbbbbbbb", "cccccccccccccccccccccccc"}
	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := d.Save(ctx, "same/key.jpg", strings.NewReader(p))
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	got, err := d.ReadAll(ctx, "same/key.jpg")
	require.NoError(t, err)
	require.Contains(t, payloads, string(got), "file must hold exactly one writer's payload")
}

func TestDirRejectsEscapingKeys(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	_, err = d.Save(context.Background(), "../outside.jpg", strings.NewReader("x"))
	require.Error(t, err)
}

func TestDirDeletePrunesEmptyDirectories(t *testing.T) {
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.Save(ctx, "async/host_a/one.jpg", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = d.Save(ctx, "async/host_b/two.jpg", strings.NewReader("2"))
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, "async/host_a/one.jpg"))
	require.NoDirExists(t, filepath.Join(d.Root(), "async", "host_a"))
	require.DirExists(t, filepath.Join(d.Root(), "async", "host_b"))
	require.DirExists(t, d.Root())
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, t.TempDir())
	require.NoError(t, err)
	require.IsType(t, &Dir{}, s)

	s, err = Open(ctx, "mem://")
	require.NoError(t, err)
	require.IsType(t, &Bucket{}, s)
	require.Equal(t, "mem://", s.Location())
	require.NoError(t, s.Close())

	_, err = Open(ctx, "")
	require.Error(t, err)

	_, err = Open(ctx, "nosuchdriver://bucket")
	require.Error(t, err)
}

func TestShareable(t *testing.T) {
	require.False(t, Shareable("mem://"))
	require.True(t, Shareable("/tmp/out"))
	require.True(t, Shareable("file:///tmp/out"))
	require.True(t, Shareable("s3://bucket?region=us-east-1"))
}

func TestKey(t *testing.T) {
	require.Equal(t, "threads/example_com/image1.jpg", Key("threads", "example_com", "image1.jpg"))
	require.Equal(t, "example_com/image1.jpg", Key("", "example_com", "image1.jpg"))
}
