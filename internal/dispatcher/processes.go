package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ligustah/grab/internal/fetcher"
	grabhttp "github.com/ligustah/grab/internal/http"
	"github.com/ligustah/grab/internal/store"
)

// WorkerRequest is what a worker process reads from stdin.
type WorkerRequest struct {
	Task        fetcher.DownloadTask `json:"task"`
	Store       string               `json:"store"`
	Prefix      string               `json:"prefix"`
	HTTPOptions grabhttp.Options     `json:"http_options"`
}

// WorkerResponse is what a worker process writes to stdout.
type WorkerResponse struct {
	Key     string            `json:"key"`
	Bytes   int64             `json:"bytes"`
	SHA256  string            `json:"sha256,omitempty"`
	Elapsed time.Duration     `json:"elapsed"`
	Kind    fetcher.ErrorKind `json:"kind,omitempty"`
	Op      string            `json:"op,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// maxStderr bounds how much worker stderr is kept for error messages.
const maxStderr = 4096

// runProcesses starts one worker process per task.
func (d *Dispatcher) runProcesses(ctx context.Context, r *run) {
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for _, task := range r.tasks {
		g.Go(func() error {
			r.started()
			r.results <- d.runWorker(ctx, r.fetcher.Prefix(), task)
			return nil
		})
	}

	g.Wait()
}

// workerCommand returns the argv used to start a worker.
func (d *Dispatcher) workerCommand() ([]string, error) {
	if len(d.opts.WorkerCommand) > 0 {
		return d.opts.WorkerCommand, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return []string{exe, "worker"}, nil
}

// runWorker executes task in a child process. Anything that prevents the
// child from reporting a result becomes a worker error for this task only.
func (d *Dispatcher) runWorker(ctx context.Context, prefix string, task fetcher.DownloadTask) fetcher.DownloadResult {
	start := time.Now()
	res := fetcher.DownloadResult{Task: task, Key: task.Key(prefix)}
	fail := func(op string, err error) fetcher.DownloadResult {
		res.Err = fetcher.WorkerError(op, err)
		res.Elapsed = time.Since(start)
		return res
	}

	argv, err := d.workerCommand()
	if err != nil {
		return fail("start worker", err)
	}

	req, err := json.Marshal(WorkerRequest{
		Task:        task,
		Store:       d.opts.Store.Location(),
		Prefix:      prefix,
		HTTPOptions: d.opts.HTTPOptions,
	})
	if err != nil {
		return fail("encode request", err)
	}

	var stdout bytes.Buffer
	stderr := &tailBuffer{max: maxStderr}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(req)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	log.FromContext(ctx).Debug("Starting worker", "url", task.URL, "command", argv[0])

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return fail("run worker", err)
	}

	var resp WorkerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fail("decode response", err)
	}

	if resp.Key != "" {
		res.Key = resp.Key
	}
	res.Bytes = resp.Bytes
	res.SHA256 = resp.SHA256
	res.Elapsed = resp.Elapsed
	if resp.Error != "" || resp.Kind != fetcher.KindNone {
		kind := resp.Kind
		if kind == fetcher.KindNone {
			kind = fetcher.KindWorker
		}
		res.Err = &fetcher.Error{Kind: kind, Op: resp.Op, Err: errors.New(resp.Error)}
		res.Bytes = 0
	}
	if res.Elapsed <= 0 {
		res.Elapsed = time.Since(start)
	}
	return res
}

// ServeWorker handles a single worker request: it reads a WorkerRequest
// from r, runs the task and writes a WorkerResponse to w. Task failures
// are reported in the response; the returned error covers only a request
// that cannot be decoded or a response that cannot be written.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer) error {
	var req WorkerRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("worker: decode request: %w", err)
	}
	if req.Task.URL == "" || req.Store == "" {
		return errors.New("worker: request needs a task and a store")
	}
	if req.HTTPOptions == (grabhttp.Options{}) {
		req.HTTPOptions = grabhttp.DefaultOptions()
	}

	res := serveTask(ctx, req)

	resp := WorkerResponse{
		Key:     res.Key,
		Bytes:   res.Bytes,
		SHA256:  res.SHA256,
		Elapsed: res.Elapsed,
	}
	if res.Err != nil {
		resp.Kind = res.Kind()
		resp.Error = res.Err.Error()
		var fe *fetcher.Error
		if errors.As(res.Err, &fe) {
			resp.Op = fe.Op
			resp.Error = fe.Err.Error()
		}
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("worker: encode response: %w", err)
	}
	return nil
}

func serveTask(ctx context.Context, req WorkerRequest) fetcher.DownloadResult {
	start := time.Now()
	st, err := store.Open(ctx, req.Store)
	if err != nil {
		return fetcher.DownloadResult{
			Task:    req.Task,
			Key:     req.Task.Key(req.Prefix),
			Err:     fetcher.StorageError("open store", err),
			Elapsed: time.Since(start),
		}
	}
	defer st.Close()

	// The destination is derived again from the URL rather than trusted
	// from the request.
	f := fetcher.New(grabhttp.NewClient(req.HTTPOptions), st, fetcher.WithPrefix(req.Prefix))
	return f.FetchAndStore(ctx, req.Task.URL)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
