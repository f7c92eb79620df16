// Package task runs work off the interactive thread. A Dispatcher executes
// submitted work on a bounded worker pool in FIFO order and hands exactly
// one terminal outcome back to a Poster, typically the interactive Loop,
// which runs the continuation where UI state may be touched.
package task
