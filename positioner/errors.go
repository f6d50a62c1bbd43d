package positioner

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-motion/channel"
	"github.com/arloliu/go-motion/status"
)

var (
	// ErrLimit indicates a target outside of the set-point limits. It never starts a move.
	ErrLimit = errors.New("value outside of limits")

	// ErrReadOnly indicates that the set-point channel cannot be written.
	ErrReadOnly = channel.ErrReadOnly

	// ErrDisconnected indicates that a required channel is not connected.
	ErrDisconnected = channel.ErrDisconnected

	// ErrTimeout indicates that no completion signal arrived before the move deadline.
	ErrTimeout = errors.New("move timeout")

	// ErrCancelled is the failure kind of a move settled by Stop or superseded by a new move.
	ErrCancelled = status.ErrCancelled

	// ErrSuperseded indicates that a newer move replaced a pending one. It matches ErrCancelled.
	ErrSuperseded = fmt.Errorf("%w: superseded by a new move", status.ErrCancelled)

	// ErrClosed indicates that the positioner has been closed.
	ErrClosed = errors.New("positioner closed")

	// ErrChannelNil indicates a missing required channel.
	ErrChannelNil = errors.New("required channel is nil")

	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("positioner config is nil")
)

// LimitError reports a target outside of the set-point limits. It matches ErrLimit.
type LimitError struct {
	Value float64
	Low   float64
	High  float64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("value %g outside of limits [%g, %g]", e.Value, e.Low, e.High)
}

// Is matches ErrLimit.
func (e *LimitError) Is(target error) bool {
	return target == ErrLimit
}
