// Package progress reports batch progress on a terminal.
//
// A [Reporter] counts tasks as they start, complete and fail. When started
// it prints a header, a status line at a fixed interval, and a final summary.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalTasks:  len(urls),
//	    Strategy:    "threads",
//	    Concurrency: 8,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.TaskStarted()
//	reporter.TaskCompleted(n)
//
// # Output Format
//
//	[grab] Strategy: threads | Tasks: 5 | Concurrency: 8
//	[grab] Progress: 60.0% | 3 ok | 0 failed | 2 in-progress | 0 pending | 412 KiB
//	[grab] Done: 4 ok | 1 failed | 530 KiB in 1.21s | 438 KiB/s
package progress
