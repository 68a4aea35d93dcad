package dispatcher

import (
	"context"
	"time"

	"github.com/ligustah/grab/internal/fetcher"
)

// fetched is a network request that has finished, successfully or not.
type fetched struct {
	task    fetcher.DownloadTask
	payload []byte
	err     error
	start   time.Time
}

// runAsync drives the batch from a single control loop. Requests are issued
// as background fetches that report on done; the loop handles completions
// in the order they arrive and writes each payload to the store itself, so
// results and the store are only touched from this goroutine.
func (d *Dispatcher) runAsync(ctx context.Context, r *run) {
	done := make(chan fetched, len(r.tasks))
	next, inFlight := 0, 0

	launch := func() {
		for next < len(r.tasks) && (r.limit <= 0 || inFlight < r.limit) {
			task := r.tasks[next]
			next++
			inFlight++

			r.started()
			start := time.Now()
			go func() {
				payload, err := r.fetcher.Get(ctx, task)
				done <- fetched{task: task, payload: payload, err: err, start: start}
			}()
		}
	}

	launch()
	for inFlight > 0 {
		f := <-done
		inFlight--

		res := fetcher.DownloadResult{
			Task: f.task,
			Key:  f.task.Key(r.fetcher.Prefix()),
			Err:  f.err,
		}
		if f.err == nil {
			res.Key, res.Bytes, res.SHA256, res.Err = r.fetcher.Put(ctx, f.task, f.payload)
		}
		res.Elapsed = time.Since(f.start)
		r.results <- res

		launch()
	}
}
