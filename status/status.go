// Package status provides Status, an exactly-once settling handle for asynchronous operations.
//
// A Status starts pending and settles once, either successfully with a value or with a failure.
// Concurrent settle attempts race on a single lock: the first one wins and every later attempt
// is a no-op reporting false. Callbacks registered before or after settling run exactly once, in
// registration order, outside the lock, so a callback may freely call back into the code that
// owns the Status (for example to start the next operation).
package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-motion/internal/pool"
	"github.com/arloliu/go-motion/internal/queue"
)

var (
	// ErrCancelled is the failure kind of a cancelled operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrWaitTimeout is returned by WaitTimeout when the Status is still pending after the wait.
	// The Status itself is left untouched.
	ErrWaitTimeout = errors.New("wait timeout, status still pending")
)

// State is the settlement state of a Status.
type State uint8

const (
	// Pending means the operation is still in flight.
	Pending State = iota
	// Succeeded means the operation finished successfully.
	Succeeded
	// Failed means the operation finished with an error, cancellation included.
	Failed
)

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Callback is invoked once a Status has settled.
type Callback[T any] func(st *Status[T])

// Status is the outcome of one asynchronous operation.
type Status[T any] struct {
	mu        sync.Mutex
	state     State
	cancelled bool
	value     T
	err       error
	started   time.Time
	finished  time.Time
	done      chan struct{}
	callbacks queue.Queue[Callback[T]]
	// delivering is true while a goroutine is draining callbacks.
	delivering bool
}

// New creates a pending Status.
func New[T any]() *Status[T] {
	return &Status[T]{
		started:   time.Now(),
		done:      make(chan struct{}),
		callbacks: queue.NewSliceQueue[Callback[T]](2),
	}
}

// Finish settles the Status successfully with value.
// It returns false when the Status had already settled.
func (s *Status[T]) Finish(value T) bool {
	return s.settle(Succeeded, value, nil, false)
}

// Fail settles the Status with err. A nil err is replaced by a generic failure.
// It returns false when the Status had already settled.
func (s *Status[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("operation failed")
	}
	var zero T

	return s.settle(Failed, zero, err, errors.Is(err, ErrCancelled))
}

// Cancel settles the Status as cancelled. The resulting error matches ErrCancelled and,
// when cause is not nil, cause as well.
// It returns false when the Status had already settled.
func (s *Status[T]) Cancel(cause error) bool {
	err := ErrCancelled
	if cause != nil && !errors.Is(cause, ErrCancelled) {
		err = fmt.Errorf("%w: %w", ErrCancelled, cause)
	} else if cause != nil {
		err = cause
	}
	var zero T

	return s.settle(Failed, zero, err, true)
}

func (s *Status[T]) settle(state State, value T, err error, cancelled bool) bool {
	s.mu.Lock()
	if s.state != Pending {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.value = value
	s.err = err
	s.cancelled = cancelled
	s.finished = time.Now()
	close(s.done)

	s.drainLocked()

	return true
}

// AddCallback registers cb. When the Status has already settled, cb runs before AddCallback
// returns, unless another goroutine is currently delivering callbacks, in which case that
// goroutine runs it after the callbacks registered earlier.
func (s *Status[T]) AddCallback(cb Callback[T]) {
	if cb == nil {
		return
	}

	s.mu.Lock()
	s.callbacks.Enqueue(cb)
	if s.state == Pending {
		s.mu.Unlock()
		return
	}
	s.drainLocked()
}

// drainLocked runs queued callbacks in order. It must be called with s.mu held and
// releases it. Only one goroutine drains at a time.
func (s *Status[T]) drainLocked() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for {
		cb, ok := s.callbacks.Dequeue()
		if !ok {
			s.delivering = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.invoke(cb)
		s.mu.Lock()
	}
}

func (s *Status[T]) invoke(cb Callback[T]) {
	// a panicking callback must not keep later callbacks from running
	defer func() { _ = recover() }()

	cb(s)
}

// Done reports whether the Status has settled.
func (s *Status[T]) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state != Pending
}

// Success reports whether the Status settled successfully.
func (s *Status[T]) Success() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == Succeeded
}

// Cancelled reports whether the Status settled through cancellation.
func (s *Status[T]) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancelled
}

// State returns the current state.
func (s *Status[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Value returns the settled value. ok is false unless the Status succeeded.
func (s *Status[T]) Value() (value T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, s.state == Succeeded
}

// Err returns the failure, or nil while pending or after success.
func (s *Status[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Finished returns a channel closed once the Status settles.
func (s *Status[T]) Finished() <-chan struct{} {
	return s.done
}

// Wait blocks until the Status settles or ctx is done.
//
// It returns the settled value and failure. When ctx ends first, ctx.Err() is returned and
// the Status stays pending.
func (s *Status[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-s.done:
		return s.result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// WaitTimeout is like Wait with a timeout instead of a context. A non-positive timeout
// waits forever. ErrWaitTimeout is returned when the timeout elapses first.
func (s *Status[T]) WaitTimeout(timeout time.Duration) (T, error) {
	if timeout <= 0 {
		<-s.done
		return s.result()
	}

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case <-s.done:
		return s.result()
	case <-timer.C:
		var zero T
		return zero, ErrWaitTimeout
	}
}

func (s *Status[T]) result() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, s.err
}

// Elapsed returns the time since creation, frozen once the Status settles.
func (s *Status[T]) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Pending {
		return time.Since(s.started)
	}

	return s.finished.Sub(s.started)
}

// String implements fmt.Stringer.
func (s *Status[T]) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Pending:
		return fmt.Sprintf("Status(pending, elapsed=%s)", time.Since(s.started).Round(time.Millisecond))
	case Succeeded:
		return fmt.Sprintf("Status(succeeded, value=%v, elapsed=%s)", s.value, s.finished.Sub(s.started).Round(time.Millisecond))
	default:
		return fmt.Sprintf("Status(failed, cancelled=%t, error=%v, elapsed=%s)",
			s.cancelled, s.err, s.finished.Sub(s.started).Round(time.Millisecond))
	}
}
