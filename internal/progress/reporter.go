package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalTasks is the number of tasks in the batch.
	TotalTasks int

	// Strategy is the execution strategy name (for display).
	Strategy string

	// Concurrency is the in-flight cap, 0 for unbounded (for display).
	Concurrency int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Completed  int
	Failed     int
	InProgress int
	Pending    int
	Bytes      int64
	Elapsed    time.Duration
}

// Reporter tracks task counters and optionally prints a status line.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	bytes      atomic.Int64
	completed  atomic.Int32
	failed     atomic.Int32
	inProgress atomic.Int32
	startTime  time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:      opts,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start prints the header and begins periodic status output.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.mu.Unlock()

	limit := "unbounded"
	if r.opts.Concurrency > 0 {
		limit = fmt.Sprintf("%d", r.opts.Concurrency)
	}
	fmt.Fprintf(r.opts.Output, "[grab] Strategy: %s | Tasks: %d | Concurrency: %s\n",
		r.opts.Strategy, r.opts.TotalTasks, limit)

	go r.updateLoop()
}

// Stop stops periodic output and prints the final status. It waits for the
// update loop so nothing is written after Stop returns.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	close(r.stopCh)
	if started {
		<-r.doneCh
	}
}

// TaskStarted marks a task as in progress.
func (r *Reporter) TaskStarted() {
	r.inProgress.Add(1)
}

// TaskCompleted marks a task as stored with size bytes.
func (r *Reporter) TaskCompleted(size int64) {
	r.bytes.Add(size)
	r.completed.Add(1)
	r.inProgress.Add(-1)
}

// TaskFailed marks a task as failed (removes from in-progress).
func (r *Reporter) TaskFailed() {
	r.failed.Add(1)
	r.inProgress.Add(-1)
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	completed := int(r.completed.Load())
	failed := int(r.failed.Load())
	inProgress := int(r.inProgress.Load())

	pending := r.opts.TotalTasks - completed - failed - inProgress
	if pending < 0 {
		pending = 0
	}

	r.mu.Lock()
	start := r.startTime
	r.mu.Unlock()

	return Snapshot{
		Completed:  completed,
		Failed:     failed,
		InProgress: inProgress,
		Pending:    pending,
		Bytes:      r.bytes.Load(),
		Elapsed:    time.Since(start),
	}
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	s := r.Snapshot()

	var percent float64
	if r.opts.TotalTasks > 0 {
		percent = float64(s.Completed+s.Failed) / float64(r.opts.TotalTasks) * 100
	}

	fmt.Fprintf(r.opts.Output, "\r[grab] Progress: %.1f%% | %d ok | %d failed | %d in-progress | %d pending | %s    ",
		percent,
		s.Completed,
		s.Failed,
		s.InProgress,
		s.Pending,
		FormatBytes(s.Bytes),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	s := r.Snapshot()
	speed := float64(s.Bytes) / max(s.Elapsed.Seconds(), 0.001)

	fmt.Fprintf(r.opts.Output, "\r[grab] Done: %d ok | %d failed | %s in %s | %s/s    \n",
		s.Completed,
		s.Failed,
		FormatBytes(s.Bytes),
		formatDuration(s.Elapsed),
		FormatBytes(int64(speed)),
	)
}

// FormatBytes formats bytes as a human-readable string using binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	div, exp := int64(unit), 0
	for n := b / unit; n >= unit && exp < 3; n /= unit {
		div *= unit
		exp++
	}

	value := float64(b) / float64(div)
	suffix := []string{"KiB", "MiB", "GiB", "TiB"}[exp]
	if value >= 10 {
		return fmt.Sprintf("%.0f %s", value, suffix)
	}
	return fmt.Sprintf("%.1f %s", value, suffix)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// ParseBytes parses a human-readable byte string (e.g., "10MB", "1.5KiB").
// IEC suffixes (KiB, MiB, ...) are binary, SI suffixes (KB, MB, ...) decimal.
func ParseBytes(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	units := []struct {
		suffix string
		mult   float64
	}{
		{"TIB", 1 << 40}, {"GIB", 1 << 30}, {"MIB", 1 << 20}, {"KIB", 1 << 10},
		{"TB", 1e12}, {"GB", 1e9}, {"MB", 1e6}, {"KB", 1e3},
		{"B", 1},
	}

	multiplier := 1.0
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			multiplier = u.mult
			s = strings.TrimSpace(s[:len(s)-len(u.suffix)])
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %q", orig)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid byte string: %q is negative", orig)
	}

	return int64(value * multiplier), nil
}
