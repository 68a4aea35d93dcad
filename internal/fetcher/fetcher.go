package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/charmbracelet/log"

	grabhttp "github.com/ligustah/grab/internal/http"
	"github.com/ligustah/grab/internal/store"
)

// Options configures a Fetcher.
type Options struct {
	// Prefix is prepended to every destination key, e.g. the strategy name.
	Prefix string
}

// Option is a functional option for configuring a Fetcher.
type Option func(*Options)

// WithPrefix places every destination below prefix.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// Fetcher downloads a URL and stores the payload at its derived destination.
// A Fetcher holds no per-task state and is safe for concurrent use.
type Fetcher struct {
	client *grabhttp.Client
	store  store.Store
	opts   Options
}

// New creates a Fetcher that downloads with client and writes into st.
func New(client *grabhttp.Client, st store.Store, opts ...Option) *Fetcher {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return &Fetcher{client: client, store: st, opts: o}
}

// Prefix returns the key prefix of every destination.
func (f *Fetcher) Prefix() string {
	return f.opts.Prefix
}

// Store returns the destination store.
func (f *Fetcher) Store() store.Store {
	return f.store
}

// FetchAndStore derives the task for rawURL and runs it. A malformed URL
// yields a result carrying a KindConfig error.
func (f *Fetcher) FetchAndStore(ctx context.Context, rawURL string) DownloadResult {
	task, err := NewTask(rawURL)
	if err != nil {
		return DownloadResult{Task: DownloadTask{URL: rawURL}, Err: err}
	}
	return f.Run(ctx, task)
}

// Run downloads task.URL and streams the body into the store. Elapsed
// covers the whole fetch and store sequence.
func (f *Fetcher) Run(ctx context.Context, task DownloadTask) DownloadResult {
	start := time.Now()
	res := DownloadResult{Task: task, Key: task.Key(f.opts.Prefix)}

	log.FromContext(ctx).Debug("Fetching", "url", task.URL, "key", res.Key)

	resp, err := f.client.Get(ctx, task.URL)
	if err != nil {
		res.Err = FetchError("get "+task.URL, err)
		res.Elapsed = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	body := &sourceReader{r: resp.Body}
	hash := sha256.New()
	n, err := f.store.Save(ctx, res.Key, io.TeeReader(body, hash))
	res.Bytes = n
	switch {
	case body.err != nil:
		res.Err = FetchError("read body", body.err)
	case err != nil:
		res.Err = StorageError("save "+res.Key, err)
	default:
		res.SHA256 = hex.EncodeToString(hash.Sum(nil))
	}
	if res.Err != nil {
		res.Bytes = 0
	}
	res.Elapsed = time.Since(start)
	return res
}

// Get downloads the whole body of task.URL into memory.
func (f *Fetcher) Get(ctx context.Context, task DownloadTask) ([]byte, error) {
	resp, err := f.client.Get(ctx, task.URL)
	if err != nil {
		return nil, FetchError("get "+task.URL, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, FetchError("read body", err)
	}
	return buf.Bytes(), nil
}

// Put writes a payload previously returned by Get to the task's
// destination and returns the key, bytes written and hex SHA-256.
func (f *Fetcher) Put(ctx context.Context, task DownloadTask, payload []byte) (key string, n int64, sum string, err error) {
	key = task.Key(f.opts.Prefix)
	n, err = f.store.Save(ctx, key, bytes.NewReader(payload))
	if err != nil {
		return key, 0, "", StorageError("save "+key, err)
	}
	digest := sha256.Sum256(payload)
	return key, n, hex.EncodeToString(digest[:]), nil
}

// sourceReader remembers the first non-EOF read error so a failed copy can
// be blamed on the network rather than on the destination.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}
