package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected indicates that a channel is not connected.
	ErrDisconnected = errors.New("channel not connected")

	// ErrReadOnly indicates a write to a read-only channel.
	ErrReadOnly = errors.New("channel is read-only")

	// ErrNoValue indicates that a channel has not received any value yet.
	ErrNoValue = errors.New("channel has no value")

	// ErrNilCallback indicates that Subscribe was called with a nil callback.
	ErrNilCallback = errors.New("callback is nil")
)

// Disconnected returns ErrDisconnected annotated with the channel name and an optional cause.
func Disconnected(name string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrDisconnected, name)
	}

	return fmt.Errorf("%w: %s: %w", ErrDisconnected, name, cause)
}

// ReadOnly returns ErrReadOnly annotated with the channel name.
func ReadOnly(name string) error {
	return fmt.Errorf("%w: %s", ErrReadOnly, name)
}
