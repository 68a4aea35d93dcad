// Package dispatcher runs a batch of downloads under one of three
// concurrency strategies and waits for every task to finish.
//
// # Strategies
//
//   - [Threads]: one goroutine per task.
//   - [Processes]: one worker OS process per task. The worker reads a
//     [WorkerRequest] as JSON on stdin and answers with a [WorkerResponse]
//     on stdout; [ServeWorker] implements that side. A worker that dies only
//     fails its own task.
//   - [Async]: a single control loop issues requests in the background and
//     stores each payload itself as the requests complete.
//
// Every strategy writes to <strategy>/<host>/<filename> in the configured
// store, so the three can run against the same output and be compared.
//
// # Usage
//
//	d, err := dispatcher.New(dispatcher.Options{
//	    Store:       st,
//	    Concurrency: 8,
//	})
//	batch, err := d.RunBatch(ctx, urls, dispatcher.Threads)
//	fmt.Printf("%d ok, %d failed in %.2fs\n", batch.Succeeded(), batch.Failed(), batch.TotalSeconds())
//
// Results arrive in completion order. Malformed URLs are rejected before
// anything starts.
package dispatcher
