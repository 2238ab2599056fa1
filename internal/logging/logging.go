// Package logging is a thin, direct wrapper over the standard log
// package, in the same unstructured style the teacher repository uses
// throughout (network/TreeMLP.go's log.Fatal, experiment/tracker's
// log.Fatalf). It never exits or panics; callers gate it behind their
// own "verbose" option and decide for themselves whether a failure is
// fatal.
package logging

import "log"

// Event logs a single diagnostic line using the standard logger's
// default destination and flags.
func Event(format string, args ...interface{}) {
	log.Printf(format, args...)
}
