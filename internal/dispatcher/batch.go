package dispatcher

import (
	"time"

	"github.com/ligustah/grab/internal/fetcher"
	"github.com/ligustah/grab/pkg/manifest"
)

// Batch is the outcome of one RunBatch call.
type Batch struct {
	ID        string
	Strategy  Strategy
	StartedAt time.Time

	// Elapsed spans the first launch to the last completion.
	Elapsed time.Duration

	// Results holds one entry per task, in completion order.
	Results []fetcher.DownloadResult
}

// Succeeded returns the number of tasks without error.
func (b *Batch) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of tasks that carry an error.
func (b *Batch) Failed() int {
	return len(b.Results) - b.Succeeded()
}

// Bytes returns the total payload size stored by the batch.
func (b *Batch) Bytes() int64 {
	var n int64
	for _, r := range b.Results {
		n += r.Bytes
	}
	return n
}

// TotalSeconds returns Elapsed in seconds.
func (b *Batch) TotalSeconds() float64 {
	return b.Elapsed.Seconds()
}

// Manifest converts the batch to its on-disk record.
func (b *Batch) Manifest() *manifest.Manifest {
	m := &manifest.Manifest{
		BatchID:        b.ID,
		Strategy:       b.Strategy.String(),
		StartedAt:      b.StartedAt.UTC(),
		CompletedAt:    b.StartedAt.Add(b.Elapsed).UTC(),
		ElapsedSeconds: b.TotalSeconds(),
		Succeeded:      b.Succeeded(),
		Failed:         b.Failed(),
		Entries:        make([]manifest.Entry, 0, len(b.Results)),
	}
	for _, r := range b.Results {
		e := manifest.Entry{
			URL:            r.Task.URL,
			Key:            r.Key,
			Bytes:          r.Bytes,
			SHA256:         r.SHA256,
			ElapsedSeconds: r.ElapsedSeconds(),
		}
		if r.Err != nil {
			e.Kind = string(r.Kind())
			e.Error = r.Err.Error()
		}
		m.Entries = append(m.Entries, e)
	}
	return m
}
