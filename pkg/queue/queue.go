package queue

import (
	"sync"
)

// Queue matches buffered inbound messages with pending receivers.
// It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	msgs    [][]byte
	waiters []*Future
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Put hands msg to the oldest pending receiver, or buffers it when
// nobody is waiting.
func (q *Queue) Put(msg []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) > 0 {
		f := q.waiters[0]
		q.waiters[0] = nil
		q.waiters = q.waiters[1:]
		f.resolve(msg)
		return
	}
	q.msgs = append(q.msgs, msg)
}

// Get returns a future for the next message. If a message is buffered the
// future is already resolved with the oldest one; otherwise the future is
// queued behind earlier receivers.
func (q *Queue) Get() *Future {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) > 0 {
		msg := q.msgs[0]
		q.msgs[0] = nil
		q.msgs = q.msgs[1:]
		return Resolved(msg)
	}

	f := newFuture()
	q.waiters = append(q.waiters, f)
	return f
}

// Flush discards all buffered messages. Pending receivers are not affected.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = nil
}

// FailAll rejects every pending receiver with err, oldest first, and clears
// the wait list. Buffered messages are not affected. Returns the number of
// receivers rejected.
func (q *Queue) FailAll(err error) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.waiters)
	for _, f := range q.waiters {
		f.reject(err)
	}
	q.waiters = nil
	return n
}

// Cancel withdraws a pending receiver so that a later message is delivered
// to the next receiver instead. Returns false if f is no longer waiting.
func (q *Queue) Cancel(f *Future) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiters {
		if w == f {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// MessageLen returns the number of buffered messages.
func (q *Queue) MessageLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// WaiterLen returns the number of pending receivers.
func (q *Queue) WaiterLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
