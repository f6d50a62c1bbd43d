package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-motion/internal/queue"
	"github.com/arloliu/go-motion/logger"
)

// PutHandler customizes how a SimChannel acknowledges writes.
//
// It runs after the written value has been stored and published. The value returned becomes
// the result of Write, so a handler that blocks until some simulated processing ends turns the
// channel into a put-completion channel.
type PutHandler func(ctx context.Context, value any) error

// SimOption configures a SimChannel.
type SimOption func(*SimChannel)

// WithInitialValue sets the value the channel starts with.
func WithInitialValue(v any) SimOption {
	return func(c *SimChannel) {
		c.value = v
		c.hasValue = true
		c.timestamp = time.Now()
	}
}

// WithLimits sets the control limits reported by Limits.
func WithLimits(low, high float64) SimOption {
	return func(c *SimChannel) {
		c.low, c.high, c.hasLimits = low, high, true
	}
}

// WithReadOnly makes the channel reject writes. Put still works, it models the remote side.
func WithReadOnly() SimOption {
	return func(c *SimChannel) { c.readOnly = true }
}

// WithPutHandler installs h to acknowledge writes.
func WithPutHandler(h PutHandler) SimOption {
	return func(c *SimChannel) { c.putHandler = h }
}

// WithStartDisconnected creates the channel in DisconnectedState.
func WithStartDisconnected() SimOption {
	return func(c *SimChannel) { c.startDisconnected = true }
}

// WithSimLogger sets the logger of the channel.
func WithSimLogger(l logger.Logger) SimOption {
	return func(c *SimChannel) { c.logger = l }
}

type delivery struct {
	ev Event
	// to restricts delivery to one subscriber, zero means every subscriber.
	to SubscriptionID
}

// SimChannel is an in-memory Channel.
//
// Remote-side updates are injected with Put. Writes store and publish the written value, then
// call the PutHandler when one is configured. Events are delivered through a single-drainer
// queue: the goroutine that finds the queue idle delivers every pending event, other producers
// only enqueue. This keeps per-channel ordering and lets callbacks write to the channel again
// without deadlocking.
type SimChannel struct {
	name              string
	readOnly          bool
	low, high         float64
	hasLimits         bool
	startDisconnected bool
	putHandler        PutHandler
	logger            logger.Logger

	stateMgr *StateMgr
	subs     *xsync.MapOf[SubscriptionID, Callback]
	nextID   atomic.Uint64
	writes   atomic.Int64

	mu        sync.Mutex // protects the fields below
	value     any
	hasValue  bool
	timestamp time.Time
	writeErr  error
	pending   queue.Queue[delivery]
	draining  bool
}

var (
	_ Channel          = (*SimChannel)(nil)
	_ ConnectionWaiter = (*SimChannel)(nil)
)

// NewSimChannel creates a connected in-memory channel called name.
func NewSimChannel(name string, opts ...SimOption) *SimChannel {
	c := &SimChannel{
		name:    name,
		subs:    xsync.NewMapOf[SubscriptionID, Callback](),
		pending: queue.NewSliceQueue[delivery](4),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	c.stateMgr = NewStateMgr(name, c.logger)
	if !c.startDisconnected {
		c.stateMgr.ToConnected()
	}

	return c
}

func (c *SimChannel) Name() string { return c.name }

func (c *SimChannel) Read(_ context.Context) (any, error) {
	if !c.IsConnected() {
		return nil, Disconnected(c.name, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasValue {
		return nil, ErrNoValue
	}

	return c.value, nil
}

// Write stores and publishes value, then waits for the PutHandler when one is configured.
func (c *SimChannel) Write(ctx context.Context, value any) error {
	if !c.IsConnected() {
		return Disconnected(c.name, nil)
	}
	if c.readOnly {
		return ReadOnly(c.name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writes.Add(1)

	c.mu.Lock()
	writeErr := c.writeErr
	c.mu.Unlock()
	if writeErr != nil {
		return writeErr
	}

	c.logger.Debug("channel write", "channel", c.name, "value", value)
	c.Put(value)

	if c.putHandler != nil {
		return c.putHandler(ctx, value)
	}

	return nil
}

// Put sets the value from the remote side and notifies subscribers.
func (c *SimChannel) Put(value any) {
	c.mu.Lock()
	c.value = value
	c.hasValue = true
	c.timestamp = time.Now()
	ev := Event{Name: c.name, Value: value, Timestamp: c.timestamp}
	c.enqueueLocked(delivery{ev: ev})
}

// Value returns the locally stored value regardless of the connection state.
func (c *SimChannel) Value() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value, c.hasValue
}

func (c *SimChannel) Subscribe(cb Callback) (SubscriptionID, error) {
	if cb == nil {
		return 0, ErrNilCallback
	}

	id := SubscriptionID(c.nextID.Add(1))
	c.subs.Store(id, cb)

	c.mu.Lock()
	if !c.hasValue {
		c.mu.Unlock()
		return id, nil
	}
	ev := Event{Name: c.name, Value: c.value, Timestamp: c.timestamp}
	c.enqueueLocked(delivery{ev: ev, to: id})

	return id, nil
}

func (c *SimChannel) Unsubscribe(id SubscriptionID) {
	c.subs.Delete(id)
}

// SubscriberCount returns the number of active subscriptions.
func (c *SimChannel) SubscriberCount() int {
	return c.subs.Size()
}

func (c *SimChannel) IsConnected() bool {
	return c.stateMgr.IsConnected()
}

// WaitConnected blocks until the channel is connected or ctx is done.
func (c *SimChannel) WaitConnected(ctx context.Context) error {
	return c.stateMgr.WaitState(ctx, ConnectedState)
}

// SetConnected simulates a connection change.
func (c *SimChannel) SetConnected(connected bool) {
	if connected {
		c.stateMgr.ToConnected()
	} else {
		c.stateMgr.ToDisconnected()
	}
}

// StateMgr returns the connection state manager, e.g. to add change handlers.
func (c *SimChannel) StateMgr() *StateMgr {
	return c.stateMgr
}

func (c *SimChannel) Limits() (float64, float64, bool) {
	return c.low, c.high, c.hasLimits
}

func (c *SimChannel) IsReadOnly() bool { return c.readOnly }

// WriteCount returns the number of writes accepted so far, failed injected writes included.
func (c *SimChannel) WriteCount() int64 {
	return c.writes.Load()
}

// FailWrites makes subsequent writes return err. A nil err restores normal writes.
func (c *SimChannel) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeErr = err
}

// enqueueLocked queues d and drains the queue unless another goroutine already does.
// It must be called with c.mu held and releases it.
func (c *SimChannel) enqueueLocked(d delivery) {
	c.pending.Enqueue(d)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true

	for {
		next, ok := c.pending.Dequeue()
		if !ok {
			c.draining = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.deliver(next)
		c.mu.Lock()
	}
}

func (c *SimChannel) deliver(d delivery) {
	if d.to != 0 {
		if cb, ok := c.subs.Load(d.to); ok {
			c.callWithRecover(d.to, cb, d.ev)
		}
		return
	}

	c.subs.Range(func(id SubscriptionID, cb Callback) bool {
		c.callWithRecover(id, cb, d.ev)
		return true
	})
}

func (c *SimChannel) callWithRecover(id SubscriptionID, cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in channel callback", "channel", c.name, "subscription", id, "panic", r)
		}
	}()

	cb(ev)
}
