package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ligustah/grab/internal/fetcher"
	grabhttp "github.com/ligustah/grab/internal/http"
	"github.com/ligustah/grab/internal/progress"
	"github.com/ligustah/grab/internal/store"
	"github.com/ligustah/grab/pkg/manifest"
)

// Options configures a Dispatcher.
type Options struct {
	// Store receives every payload. Required.
	Store store.Store

	// HTTPOptions configures the HTTP client shared by all tasks (and sent
	// to worker processes). Fields are used as given; only the zero value
	// as a whole selects grabhttp.DefaultOptions().
	HTTPOptions grabhttp.Options

	// Concurrency caps the number of in-flight tasks for every strategy.
	// Zero launches every task at once.
	Concurrency int

	// WorkerCommand is the argv of a worker process for the processes
	// strategy. It must read one request from stdin and write one response
	// to stdout, as ServeWorker does.
	// Default: the running executable with the "worker" argument.
	WorkerCommand []string

	// WriteManifest stores <strategy>/manifest.json after every batch.
	WriteManifest bool

	// ProgressOutput enables the progress reporter when non-nil.
	ProgressOutput io.Writer

	// ProgressInterval is how often the progress line is refreshed.
	// Default: 500ms
	ProgressInterval time.Duration

	// Logger receives one line per task and one per batch.
	// Default: log.Default()
	Logger *log.Logger
}

// Dispatcher runs batches of downloads under a chosen strategy.
type Dispatcher struct {
	opts   Options
	client *grabhttp.Client
	logger *log.Logger
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, fetcher.ConfigError("new dispatcher", errors.New("no store"))
	}
	if opts.Concurrency < 0 {
		return nil, fetcher.ConfigError("new dispatcher",
			fmt.Errorf("concurrency must be >= 0, got %d", opts.Concurrency))
	}
	if opts.HTTPOptions == (grabhttp.Options{}) {
		opts.HTTPOptions = grabhttp.DefaultOptions()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Dispatcher{
		opts:   opts,
		client: grabhttp.NewClient(opts.HTTPOptions),
		logger: logger,
	}, nil
}

// Store returns the destination store.
func (d *Dispatcher) Store() store.Store {
	return d.opts.Store
}

// run carries the state one strategy adapter needs. Adapters must deliver
// exactly one result per task on results.
type run struct {
	fetcher  *fetcher.Fetcher
	tasks    []fetcher.DownloadTask
	limit    int
	results  chan<- fetcher.DownloadResult
	progress *progress.Reporter
}

func (r *run) started() {
	if r.progress != nil {
		r.progress.TaskStarted()
	}
}

// RunBatch downloads every URL under strategy and waits until each task has
// succeeded or failed. Every URL is validated first: a malformed URL, an
// unknown strategy or a store the strategy cannot use returns a config
// error and launches nothing. Task failures never abort the batch; they are
// reported in its results.
//
// The returned error is non-nil with a non-nil Batch only when writing the
// manifest failed.
func (d *Dispatcher) RunBatch(ctx context.Context, urls []string, strategy Strategy) (*Batch, error) {
	if !strategy.Valid() {
		return nil, fetcher.ConfigError("run batch", fmt.Errorf("unknown strategy %q", strategy))
	}
	tasks, err := fetcher.NewTasks(urls)
	if err != nil {
		return nil, err
	}
	if strategy == Processes && !store.Shareable(d.opts.Store.Location()) {
		return nil, fetcher.ConfigError("run batch",
			fmt.Errorf("store %s is not reachable from worker processes", d.opts.Store.Location()))
	}

	batch := &Batch{
		ID:       uuid.NewString(),
		Strategy: strategy,
		Results:  make([]fetcher.DownloadResult, 0, len(tasks)),
	}
	logger := d.logger.With("batch", batch.ID[:8], "strategy", strategy)
	ctx = log.WithContext(ctx, logger)

	results := make(chan fetcher.DownloadResult, len(tasks))
	r := &run{
		fetcher: fetcher.New(d.client, d.opts.Store, fetcher.WithPrefix(strategy.String())),
		tasks:   tasks,
		limit:   d.opts.Concurrency,
		results: results,
	}
	if d.opts.ProgressOutput != nil && len(tasks) > 0 {
		r.progress = progress.NewReporter(progress.Options{
			TotalTasks:     len(tasks),
			Strategy:       strategy.String(),
			Concurrency:    d.opts.Concurrency,
			Output:         d.opts.ProgressOutput,
			UpdateInterval: d.opts.ProgressInterval,
		})
		r.progress.Start()
	}

	batch.StartedAt = time.Now()
	switch strategy {
	case Threads:
		go d.runThreads(ctx, r)
	case Processes:
		go d.runProcesses(ctx, r)
	case Async:
		go d.runAsync(ctx, r)
	}

	for range tasks {
		res := <-results
		d.record(logger, r.progress, res)
		batch.Results = append(batch.Results, res)
	}
	batch.Elapsed = time.Since(batch.StartedAt)

	if r.progress != nil {
		r.progress.Stop()
	}

	logger.Info("Batch complete",
		"tasks", len(batch.Results),
		"succeeded", batch.Succeeded(),
		"failed", batch.Failed(),
		"bytes", progress.FormatBytes(batch.Bytes()),
		"elapsed", batch.Elapsed.Round(time.Millisecond),
	)

	if d.opts.WriteManifest {
		if err := manifest.Write(ctx, d.opts.Store, batch.Manifest()); err != nil {
			return batch, fetcher.StorageError("write manifest", err)
		}
		logger.Debug("Manifest written", "key", manifest.Path(strategy.String()))
	}

	return batch, nil
}

// record logs a finished task and updates the progress counters.
func (d *Dispatcher) record(logger *log.Logger, reporter *progress.Reporter, res fetcher.DownloadResult) {
	elapsed := res.Elapsed.Round(time.Millisecond)
	if res.Err != nil {
		logger.Error("Task failed", "url", res.Task.URL, "kind", res.Kind(), "elapsed", elapsed, "error", res.Err)
		if reporter != nil {
			reporter.TaskFailed()
		}
		return
	}

	logger.Info("Task complete", "url", res.Task.URL, "key", res.Key, "bytes", res.Bytes, "elapsed", elapsed)
	if reporter != nil {
		reporter.TaskCompleted(res.Bytes)
	}
}
