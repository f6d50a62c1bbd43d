package channel

import (
	"context"
	"time"
)

// Event is a value-change notification.
type Event struct {
	// Name is the name of the channel that produced the event.
	Name      string
	Value     any
	Timestamp time.Time
}

// Callback receives value-change notifications.
type Callback func(ev Event)

// SubscriptionID identifies a subscription created by Subscribe.
type SubscriptionID uint64

// Channel is a named remote value.
type Channel interface {
	// Name returns the remote identifier of the channel.
	Name() string
	// Read returns the current value.
	Read(ctx context.Context) (any, error)
	// Write writes value and returns once the remote side acknowledged it.
	//
	// For channels configured for put completion the acknowledgement only arrives when the
	// processing triggered by the write has finished, which may take a long time. ctx bounds
	// the wait; cancelling it abandons the acknowledgement but not the write itself.
	Write(ctx context.Context, value any) error
	// Subscribe registers cb for value-change notifications. Implementations deliver the
	// current value, when one is known, as the first event.
	Subscribe(cb Callback) (SubscriptionID, error)
	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id SubscriptionID)
	// IsConnected reports whether the channel is currently connected.
	IsConnected() bool
	// Limits returns the control limits of the channel. ok is false when none are configured.
	Limits() (low float64, high float64, ok bool)
	// IsReadOnly reports whether writes are rejected.
	IsReadOnly() bool
}

// ConnectionWaiter is implemented by channels able to block until connected.
type ConnectionWaiter interface {
	WaitConnected(ctx context.Context) error
}

// WaitConnected waits until every channel is connected or ctx is done.
//
// Channels implementing ConnectionWaiter are waited on, others are checked once and
// ErrDisconnected is returned when they are not connected. Nil channels are skipped.
func WaitConnected(ctx context.Context, chans ...Channel) error {
	for _, ch := range chans {
		if ch == nil {
			continue
		}
		if w, ok := ch.(ConnectionWaiter); ok {
			if err := w.WaitConnected(ctx); err != nil {
				return Disconnected(ch.Name(), err)
			}
			continue
		}
		if !ch.IsConnected() {
			return Disconnected(ch.Name(), nil)
		}
	}

	return nil
}
