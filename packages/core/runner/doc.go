// Package runner executes a bundle of specs.
//
// A run has two passes over the same spec list. In the parallel pass a
// fixed pool of workers claims indices from a shared queue and runs every
// spec that is not marked serial. Once all workers have returned, the queue
// is rewound and the calling goroutine runs the serial specs alone.
//
// Each spec index owns one Env for the whole run. Its output is buffered
// and written to the diagnostic stream in declaration order after both
// passes, followed by a summary line. The exit code of a run is the number
// of failed specs.
package runner
