package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TiB"},
		{2.5 * 1024 * 1024 * 1024 * 1024, "2.5 TiB"},
		{1023, "1023 B"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KiB", 1024},
		{"1.5KiB", 1536},
		{"256MiB", 256 * 1024 * 1024},
		{"1GiB", 1024 * 1024 * 1024},
		{"1TiB", 1024 * 1024 * 1024 * 1024},
		// SI units
		{"1KB", 1000},
		{"1MB", 1000 * 1000},
		{"1GB", 1000 * 1000 * 1000},
		{" 10 mib ", 10 * 1024 * 1024},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, in := range []string{"invalid", "", "MB", "-5KB", "1.2.3MB"} {
		if _, err := ParseBytes(in); err == nil {
			t.Errorf("ParseBytes(%q): expected error", in)
		}
	}
}

func TestReporterTaskTracking(t *testing.T) {
	reporter := NewReporter(Options{
		TotalTasks:     4,
		Strategy:       "threads",
		UpdateInterval: 100 * time.Millisecond,
	})

	// Counters work without starting the reporter
	reporter.TaskStarted()
	if reporter.inProgress.Load() != 1 {
		t.Errorf("expected 1 in-progress, got %d", reporter.inProgress.Load())
	}

	reporter.TaskCompleted(256)
	snap := reporter.Snapshot()
	if snap.InProgress != 0 {
		t.Errorf("expected 0 in-progress after complete, got %d", snap.InProgress)
	}
	if snap.Completed != 1 {
		t.Errorf("expected 1 completed, got %d", snap.Completed)
	}
	if snap.Bytes != 256 {
		t.Errorf("expected 256 bytes, got %d", snap.Bytes)
	}
	if snap.Pending != 3 {
		t.Errorf("expected 3 pending, got %d", snap.Pending)
	}

	reporter.TaskStarted()
	reporter.TaskFailed()
	snap = reporter.Snapshot()
	if snap.InProgress != 0 {
		t.Errorf("expected 0 in-progress after fail, got %d", snap.InProgress)
	}
	if snap.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", snap.Failed)
	}
	if snap.Pending != 2 {
		t.Errorf("expected 2 pending, got %d", snap.Pending)
	}
}

func TestReporterStartStop(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(Options{
		TotalTasks:     3,
		Strategy:       "async",
		Concurrency:    2,
		Output:         &buf,
		UpdateInterval: 10 * time.Millisecond,
	})

	reporter.Start()

	reporter.TaskStarted()
	reporter.TaskCompleted(256 * 1024)

	reporter.TaskStarted()
	reporter.TaskCompleted(256 * 1024)

	reporter.TaskStarted()
	reporter.TaskFailed()

	time.Sleep(50 * time.Millisecond) // Let updates run

	reporter.Stop()
	reporter.Stop() // idempotent

	out := buf.String()
	if !strings.Contains(out, "Strategy: async | Tasks: 3 | Concurrency: 2") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "Done: 2 ok | 1 failed | 512 KiB") {
		t.Errorf("missing final status in %q", out)
	}
}

func TestReporterStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(Options{TotalTasks: 1, Output: &buf})
	reporter.Stop()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.50s"},
		{90 * time.Second, "1m 30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.input); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
