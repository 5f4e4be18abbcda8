package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Future.Result while the future is not yet
// completed.
var ErrPending = errors.New("result pending")

// Future is the single-shot result of an asynchronous send or receive.
// It is completed exactly once, either with data or with an error.
type Future struct {
	once sync.Once
	done chan struct{}
	data []byte
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that is already completed with data.
func Resolved(data []byte) *Future {
	f := newFuture()
	f.resolve(data)
	return f
}

// Rejected returns a future that is already completed with err.
func Rejected(err error) *Future {
	f := newFuture()
	f.reject(err)
	return f
}

// resolve completes the future with data. Returns false if it was
// already completed.
func (f *Future) resolve(data []byte) bool {
	ok := false
	f.once.Do(func() {
		f.data = data
		close(f.done)
		ok = true
	})
	return ok
}

// reject completes the future with err. Returns false if it was
// already completed.
func (f *Future) reject(err error) bool {
	ok := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		ok = true
	})
	return ok
}

// Done returns a channel that is closed once the future completes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without blocking, or ErrPending if the future
// has not completed yet.
func (f *Future) Result() ([]byte, error) {
	select {
	case <-f.done:
		return f.data, f.err
	default:
		return nil, ErrPending
	}
}

// IsDone reports whether the future has completed.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx is done.
// A context error leaves the future itself untouched.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		// Completion may have raced with cancellation.
		select {
		case <-f.done:
			return f.data, f.err
		default:
		}
		return nil, ctx.Err()
	}
}
