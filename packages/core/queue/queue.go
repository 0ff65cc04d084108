// Package queue provides the shared claim index the runner's workers pull
// spec indices from.
package queue

import "sync"

// WorkQueue hands out the indices [0, size) exactly once per pass.
// The claim index and the pass marker are the only state shared between
// workers and are always accessed under mu.
type WorkQueue struct {
	mu     sync.Mutex
	next   int
	size   int
	serial bool
}

// New returns a queue over size indices, positioned at the parallel pass.
func New(size int) *WorkQueue {
	if size < 0 {
		size = 0
	}
	return &WorkQueue{size: size}
}

// Claim reserves the next index. It returns false once every index of the
// current pass has been handed out.
func (q *WorkQueue) Claim() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.next == q.size {
		return 0, false
	}
	index := q.next
	q.next++
	return index, true
}

// Reset rewinds the queue and switches it to the serial pass. It must only
// be called after every worker of the parallel pass has returned.
func (q *WorkQueue) Reset() {
	q.mu.Lock()
	q.next = 0
	q.serial = true
	q.mu.Unlock()
}

// SerialPass reports whether the queue is in the serial pass.
func (q *WorkQueue) SerialPass() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.serial
}

// Len returns the number of indices handed out per pass.
func (q *WorkQueue) Len() int {
	return q.size
}
