package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	_ "gocloud.dev/blob/memblob"

	"github.com/ligustah/grab/internal/store"
)

func openStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sum(data string) string {
	s := sha256.Sum256([]byte(data))
	return hex.EncodeToString(s[:])
}

// writeBatch stores two files and a manifest that also records one failure.
func writeBatch(t *testing.T, st store.Store) *Manifest {
	t.Helper()
	ctx := context.Background()

	files := map[string]string{
		"threads/example_com/a.jpg": "aaaa",
		"threads/example_com/b.png": "bbbbbbbb",
	}
	for key, data := range files {
		if _, err := st.Save(ctx, key, strings.NewReader(data)); err != nil {
			t.Fatalf("save %s: %v", key, err)
		}
	}

	m := &Manifest{
		BatchID:     "batch-1",
		Strategy:    "threads",
		StartedAt:   time.Now().Add(-time.Second).UTC(),
		CompletedAt: time.Now().UTC(),
		Succeeded:   2,
		Failed:      1,
		Entries: []Entry{
			{URL: "https://example.com/a.jpg", Key: "threads/example_com/a.jpg", Bytes: 4, SHA256: sum("aaaa")},
			{URL: "https://example.com/b.png", Key: "threads/example_com/b.png", Bytes: 8, SHA256: sum("bbbbbbbb")},
			{URL: "https://example.com/c.gif", Key: "threads/example_com/c.gif", Kind: "fetch", Error: "404"},
		},
	}
	if err := Write(ctx, st, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m
}

func TestWriteRead(t *testing.T) {
	st := openStore(t)
	want := writeBatch(t, st)

	got, err := Read(context.Background(), st, "threads")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.BatchID != want.BatchID || got.Strategy != want.Strategy {
		t.Errorf("got batch %s/%s, want %s/%s", got.BatchID, got.Strategy, want.BatchID, want.Strategy)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got.Entries))
	}
	if got.Entries[2].OK() {
		t.Error("failed entry reported as OK")
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
}

func TestWriteEmptyStrategy(t *testing.T) {
	if err := Write(context.Background(), openStore(t), &Manifest{}); err == nil {
		t.Error("expected error for empty strategy")
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(context.Background(), openStore(t), "async")
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestValidate(t *testing.T) {
	st := openStore(t)
	writeBatch(t, st)

	result, err := Validate(context.Background(), st, "threads", WithChecksums())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got invalid: %v", result.Errors)
	}
	if result.FileCount != 2 {
		t.Errorf("expected 2 files checked, got %d", result.FileCount)
	}
	if result.TotalBytes != 12 {
		t.Errorf("expected 12 bytes, got %d", result.TotalBytes)
	}
}

func TestValidateMissingFile(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	writeBatch(t, st)

	if err := st.Delete(ctx, "threads/example_com/a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	result, err := Validate(ctx, st, "threads")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid")
	}
	if result.MissingFiles != 1 {
		t.Errorf("expected 1 missing file, got %d", result.MissingFiles)
	}
}

func TestValidateSizeMismatch(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	writeBatch(t, st)

	if _, err := st.Save(ctx, "threads/example_com/b.png", strings.NewReader("short")); err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := Validate(ctx, st, "threads")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid")
	}
	if result.SizeMismatches != 1 {
		t.Errorf("expected 1 size mismatch, got %d", result.SizeMismatches)
	}
}

func TestValidateChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	writeBatch(t, st)

	if _, err := st.Save(ctx, "threads/example_com/a.jpg", strings.NewReader("zzzz")); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Same size, so only the checksum pass notices.
	result, err := Validate(ctx, st, "threads")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid without checksums: %v", result.Errors)
	}

	result, err = Validate(ctx, st, "threads", WithChecksums())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid || result.ChecksumMismatches != 1 {
		t.Errorf("expected 1 checksum mismatch, got %+v", result)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	writeBatch(t, st)

	// A file removed by hand must not stop the rest.
	if err := st.Delete(ctx, "threads/example_com/b.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := Delete(ctx, st, "threads"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, key := range []string{"threads/example_com/a.jpg", Path("threads")} {
		if st.Exists(ctx, key) {
			t.Errorf("%s still exists", key)
		}
	}
}

func TestDeleteMissingManifest(t *testing.T) {
	if err := Delete(context.Background(), openStore(t), "threads"); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestPath(t *testing.T) {
	if got := Path("processes"); got != "processes/manifest.json" {
		t.Errorf("Path = %q", got)
	}
}
