// Package manifest records what a batch wrote and checks it later.
//
// After a batch the dispatcher writes one manifest per strategy:
//
//	{output}/{strategy}/{host}/{filename}
//	{output}/{strategy}/manifest.json
//
// [Validate] re-reads the manifest and checks that every successful entry
// still exists with the recorded size (and, with [WithChecksums], the
// recorded SHA-256). [Delete] removes the files and the manifest.
//
// # Manifest Format
//
//	{
//	  "batch_id": "0b5c1c8e-9d0f-4f59-9a57-3f1b7f1a2c11",
//	  "strategy": "threads",
//	  "started_at": "2024-01-15T10:30:00Z",
//	  "completed_at": "2024-01-15T10:30:01Z",
//	  "elapsed_seconds": 1.21,
//	  "succeeded": 1,
//	  "failed": 1,
//	  "entries": [
//	    {"url": "https://example.com/images/image1.jpg", "key": "threads/example_com/image1.jpg", "bytes": 48213, "sha256": "...", "elapsed_seconds": 0.42},
//	    {"url": "https://example.com/missing.jpg", "key": "threads/example_com/missing.jpg", "bytes": 0, "elapsed_seconds": 0.11, "kind": "fetch", "error": "..."}
//	  ]
//	}
//
// Any store with Save, Size, Exists, ReadAll and Delete satisfies [Storage].
package manifest
