// Package config defines configuration structures for the grab CLI.
//
// Configuration can be provided via (later sources win):
//   - Defaults
//   - YAML configuration file
//   - Environment variables (GRAB_ prefix)
//   - Command-line flags
//
// # Structure
//
//	type Config struct {
//	    URLs        []string
//	    Output      string        // directory or bucket URL
//	    Strategy    string        // threads, processes, async or all
//	    Concurrency int           // 0 means unbounded
//	    Timeout     time.Duration
//	    MaxSize     int64
//	    UserAgent   string
//	    Progress    bool
//	    Manifest    bool
//	    LogLevel    string
//	    Retry       RetryConfig
//	}
//
// # File Format
//
//	urls:
//	  - https://example.com/images/image1.jpg
//	output: ./images
//	strategy: async
//	concurrency: 8
//	timeout: 30s
//	max_size: 20MiB
//	retry:
//	  attempts: 2
//	  backoff: 1s
package config
