package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"
)

// FileName is the name of the manifest object inside a strategy prefix.
const FileName = "manifest.json"

// Storage is the subset of a key/value blob store the manifest needs.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Size(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) bool
	ReadAll(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Manifest records the outcome of one batch.
type Manifest struct {
	BatchID        string    `json:"batch_id"`
	Strategy       string    `json:"strategy"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Entries        []Entry   `json:"entries"`
}

// Entry describes a single task in the manifest.
type Entry struct {
	URL            string  `json:"url"`
	Key            string  `json:"key"`
	Bytes          int64   `json:"bytes"`
	SHA256         string  `json:"sha256,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Kind           string  `json:"kind,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// OK reports whether the entry's task succeeded.
func (e Entry) OK() bool {
	return e.Error == "" && e.Kind == ""
}

// Path returns the manifest key for strategy.
func Path(strategy string) string {
	return path.Join(strategy, FileName)
}

// Write stores m at Path(m.Strategy), replacing any previous manifest.
func Write(ctx context.Context, st Storage, m *Manifest) error {
	if m.Strategy == "" {
		return fmt.Errorf("manifest: empty strategy")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if _, err := st.Save(ctx, Path(m.Strategy), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("manifest: write %s: %w", Path(m.Strategy), err)
	}
	return nil
}

// Read loads the manifest of strategy.
//
// Returns an error if:
//   - The manifest doesn't exist (error wraps the store's not-found error)
//   - The manifest JSON is malformed (encoding/json error)
func Read(ctx context.Context, st Storage, strategy string) (*Manifest, error) {
	data, err := st.ReadAll(ctx, Path(strategy))
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return &m, nil
}
