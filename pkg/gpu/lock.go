// Package gpu implements the single-accelerator coordinator (spec
// §4.B): a FIFO-queued exclusive lock, a service registry tracking
// which model-serving processes are (or should be) resident, and
// health-probe-driven crash recovery. Grounded on pkg/ratelimit's
// mutex-guarded single-owner design for the lock itself, and on
// pkg/retry.Do for the exponential-backoff restart loop.
package gpu

import "context"

// fifoLock is a single-holder mutex served strictly in request order,
// built from a buffered channel of size 1 (the "ticket") the way
// pkg/ratelimit.Limiter guards its token bucket with one owner at a
// time -- except here waiters queue on the channel itself rather than
// spinning on a mutex, which is what gives FIFO ordering for free.
type fifoLock struct {
	ticket chan struct{}
}

func newFIFOLock() *fifoLock {
	l := &fifoLock{ticket: make(chan struct{}, 1)}
	l.ticket <- struct{}{}
	return l
}

// acquire blocks until the lock is held or ctx is cancelled.
func (l *fifoLock) acquire(ctx context.Context) error {
	select {
	case <-l.ticket:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release returns the ticket, unblocking the next waiter in channel
// order (Go channels deliver to waiting receivers FIFO).
func (l *fifoLock) release() {
	l.ticket <- struct{}{}
}
