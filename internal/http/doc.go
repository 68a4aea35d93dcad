// Package http provides the HTTP client used to fetch payloads.
//
// This package handles:
//   - Connection pooling shared by every task of a batch
//   - Per-request timeouts
//   - Optional retry with exponential backoff and jitter
//   - Classification of non-2xx status codes into sentinel errors
//   - An optional upper bound on payload size
//
// # Usage
//
//	client := http.NewClient(Options{
//	    Timeout:       30 * time.Second,
//	    RetryAttempts: 2,
//	})
//
//	resp, err := client.Get(ctx, url)
//	if errors.Is(err, http.ErrNotFound) {
//	    // ...
//	}
//	defer resp.Body.Close()
package http
