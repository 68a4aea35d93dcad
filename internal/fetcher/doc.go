// Package fetcher downloads one URL and stores it at a path derived from
// the URL.
//
// # Destinations
//
// [NewTask] maps a URL to a host directory and a file name:
//
//	https://example.com/images/image1.jpg  ->  example_com/image1.jpg
//	http://127.0.0.1:8080/a/b/logo.png     ->  127_0_0_1_8080/logo.png
//
// A [Fetcher] places that path below its prefix (the strategy name when
// driven by the dispatcher).
//
// # Errors
//
// Every failure is an [*Error] carrying an [ErrorKind]: fetch (network,
// timeout, HTTP status), storage (writing the payload), config (malformed
// URL) or worker (an isolated worker process died). Results never panic or
// abort a batch; they carry the error instead.
package fetcher
