// Package corelog provides the bracketed-prefix loggers used throughout
// the core, matching the teacher's internal/server.Server construction
// (log.New(os.Stderr, "[prefix] ", log.LstdFlags)).
package corelog

import (
	"log"
	"os"
)

// New returns a logger tagged with "[component] " prefix, writing to stderr.
func New(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}
