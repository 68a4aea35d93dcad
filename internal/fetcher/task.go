package fetcher

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/ligustah/grab/internal/store"
)

// DownloadTask is one URL and the destination derived from it.
type DownloadTask struct {
	URL      string `json:"url"`
	Dir      string `json:"dir"`
	Filename string `json:"filename"`
}

// NewTask derives the destination of rawURL. Dir is the URL host (with
// port) with every non-alphanumeric rune replaced by '_'; Filename is the
// last element of the URL path. The mapping is pure: equal URLs give equal
// tasks.
func NewTask(rawURL string) (DownloadTask, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DownloadTask{}, ConfigError("parse url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return DownloadTask{}, ConfigError("parse url", fmt.Errorf("%q: scheme must be http or https", rawURL))
	}
	if u.Host == "" {
		return DownloadTask{}, ConfigError("parse url", fmt.Errorf("%q: missing host", rawURL))
	}

	name := path.Base(u.Path)
	if u.Path == "" || strings.HasSuffix(u.Path, "/") || name == "." || name == ".." || name == "/" {
		return DownloadTask{}, ConfigError("parse url", fmt.Errorf("%q: no file name in path", rawURL))
	}

	return DownloadTask{
		URL:      rawURL,
		Dir:      HostDir(u.Host),
		Filename: name,
	}, nil
}

// NewTasks converts every URL, failing on the first malformed one.
func NewTasks(urls []string) ([]DownloadTask, error) {
	tasks := make([]DownloadTask, 0, len(urls))
	for _, u := range urls {
		t, err := NewTask(u)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// HostDir maps a URL host to a directory name.
func HostDir(host string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, host)
}

// Key returns the store key of the task below prefix.
func (t DownloadTask) Key(prefix string) string {
	return store.Key(prefix, t.Dir, t.Filename)
}

// DownloadResult is the terminal state of one task.
type DownloadResult struct {
	Task    DownloadTask
	Key     string
	Bytes   int64
	SHA256  string
	Elapsed time.Duration
	Err     error
}

// Succeeded reports whether the task completed without error.
func (r DownloadResult) Succeeded() bool {
	return r.Err == nil
}

// Kind returns the error kind, KindNone on success.
func (r DownloadResult) Kind() ErrorKind {
	return KindOf(r.Err)
}

// ElapsedSeconds returns Elapsed in seconds.
func (r DownloadResult) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}
