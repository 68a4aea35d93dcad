package dispatcher

import (
	"fmt"
	"strings"

	"github.com/ligustah/grab/internal/fetcher"
)

// Strategy selects how the tasks of a batch execute concurrently.
type Strategy string

const (
	// Threads runs every task on its own goroutine.
	Threads Strategy = "threads"
	// Processes runs every task in its own worker OS process.
	Processes Strategy = "processes"
	// Async runs every task from a single control loop that issues
	// network requests without blocking and stores payloads itself.
	Async Strategy = "async"
)

// Strategies lists every strategy in a stable order.
var Strategies = []Strategy{Threads, Processes, Async}

// ParseStrategy converts a name to a Strategy. Unknown names are config
// errors.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fetcher.ConfigError("parse strategy",
			fmt.Errorf("unknown strategy %q (want threads, processes or async)", name))
	}
	return s, nil
}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case Threads, Processes, Async:
		return true
	}
	return false
}

func (s Strategy) String() string {
	return string(s)
}
