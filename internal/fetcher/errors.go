package fetcher

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a task failed.
type ErrorKind string

const (
	// KindNone marks a successful task.
	KindNone ErrorKind = ""
	// KindFetch covers transport failures, timeouts and non-2xx responses.
	KindFetch ErrorKind = "fetch"
	// KindStorage covers failures writing the payload to its destination.
	KindStorage ErrorKind = "storage"
	// KindConfig covers malformed input detected before any request is made.
	KindConfig ErrorKind = "config"
	// KindWorker covers an isolated worker process that died without
	// reporting a result.
	KindWorker ErrorKind = "worker"
)

// Error is a classified task error.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// FetchError wraps err as a KindFetch error.
func FetchError(op string, err error) error { return wrapError(KindFetch, op, err) }

// StorageError wraps err as a KindStorage error.
func StorageError(op string, err error) error { return wrapError(KindStorage, op, err) }

// ConfigError wraps err as a KindConfig error.
func ConfigError(op string, err error) error { return wrapError(KindConfig, op, err) }

// WorkerError wraps err as a KindWorker error.
func WorkerError(op string, err error) error { return wrapError(KindWorker, op, err) }

// KindOf returns the kind of the first *Error in err's chain, KindNone for
// nil, and KindFetch for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFetch
}

// IsConfigError reports whether err is a KindConfig error.
func IsConfigError(err error) bool {
	return err != nil && KindOf(err) == KindConfig
}
