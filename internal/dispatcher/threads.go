package dispatcher

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runThreads starts one goroutine per task. Without a concurrency limit all
// goroutines are started before any is awaited.
func (d *Dispatcher) runThreads(ctx context.Context, r *run) {
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for _, task := range r.tasks {
		g.Go(func() error {
			r.started()
			r.results <- r.fetcher.Run(ctx, task)
			return nil
		})
	}

	g.Wait()
}
