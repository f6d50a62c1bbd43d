package positioner

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-motion/channel"
	"github.com/arloliu/go-motion/internal/util"
	"github.com/arloliu/go-motion/logger"
	"github.com/arloliu/go-motion/status"
	"github.com/arloliu/go-motion/telemetry"
)

// Channels groups the channels of one axis. Setpoint and Readback are required.
type Channels struct {
	// Setpoint receives the target of every move.
	Setpoint channel.Channel

	// Readback reports the current position.
	Readback channel.Channel

	// Done reports whether the axis is moving. It selects the done flag strategy.
	Done channel.Channel

	// Actuate, when present, is written after the set-point to start the motion.
	Actuate channel.Channel

	// Stop, when present, is written by Stop.
	Stop channel.Channel

	// Alarm reports the alarm severity of the axis.
	Alarm channel.Channel
}

func (c Channels) all() []channel.Channel {
	chans := make([]channel.Channel, 0, 6)
	for _, ch := range []channel.Channel{c.Setpoint, c.Readback, c.Done, c.Actuate, c.Stop, c.Alarm} {
		if ch != nil {
			chans = append(chans, ch)
		}
	}

	return chans
}

// Strategy identifies how a positioner detects the end of a move.
type Strategy uint8

const (
	// StrategyTolerance settles once the readback stays within tolerance of the target.
	StrategyTolerance Strategy = iota
	// StrategyDoneFlag settles on the first done value after the set-point write.
	StrategyDoneFlag
	// StrategyPutCompletion settles on the acknowledgement of the set-point write.
	StrategyPutCompletion
)

// String returns string representation of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyTolerance:
		return "tolerance"
	case StrategyDoneFlag:
		return "done flag"
	case StrategyPutCompletion:
		return "put completion"
	default:
		return "unknown"
	}
}

// EventType identifies the kind of a positioner Event.
type EventType uint8

const (
	// EventReadback is emitted on every readback update.
	EventReadback EventType = iota
	// EventDone is emitted once per move, after the move has settled.
	EventDone
)

// Event is delivered to positioner observers.
type Event struct {
	Type      EventType
	Axis      string
	Value     float64
	Err       error
	Timestamp time.Time
}

// EventHandler receives positioner events.
type EventHandler func(ev Event)

type observer struct {
	typ     EventType
	handler EventHandler
}

// Positioner drives one axis through its set-point and reports the outcome of every move
// through a status.Status. At most one move is pending at a time.
type Positioner struct {
	name      string
	chans     Channels
	cfg       *Config
	strategy  Strategy
	logger    logger.Logger
	collector telemetry.Collector
	metrics   Metrics

	mu      sync.Mutex
	current *move
	moveSeq uint64

	rbMu        sync.RWMutex
	readback    float64
	hasReadback bool
	rbSub       channel.SubscriptionID

	observers  *xsync.MapOf[uint64, observer]
	observerID atomic.Uint64
	closed     atomic.Bool
}

// New creates a positioner named name. A nil cfg uses the defaults of NewConfig.
//
// The readback channel is monitored for the lifetime of the positioner, call Close to release it.
func New(name string, chans Channels, cfg *Config) (*Positioner, error) {
	if chans.Setpoint == nil {
		return nil, fmt.Errorf("%w: setpoint", ErrChannelNil)
	}
	if chans.Readback == nil {
		return nil, fmt.Errorf("%w: readback", ErrChannelNil)
	}
	if cfg == nil {
		var err error
		if cfg, err = NewConfig(); err != nil {
			return nil, err
		}
	}

	p := &Positioner{
		name:      name,
		chans:     chans,
		cfg:       cfg,
		strategy:  selectStrategy(chans, cfg),
		logger:    cfg.logger.With("axis", name),
		collector: cfg.collector,
		observers: xsync.NewMapOf[uint64, observer](),
	}

	id, err := chans.Readback.Subscribe(p.onReadback)
	if err != nil {
		return nil, fmt.Errorf("subscribe readback %s: %w", chans.Readback.Name(), err)
	}
	p.rbSub = id

	p.logger.Debug("positioner created", "strategy", p.strategy.String(), "timeout", cfg.timeout)

	return p, nil
}

func selectStrategy(chans Channels, cfg *Config) Strategy {
	switch {
	case cfg.putCompletion:
		return StrategyPutCompletion
	case chans.Done != nil:
		return StrategyDoneFlag
	default:
		return StrategyTolerance
	}
}

// Name returns the axis name.
func (p *Positioner) Name() string { return p.name }

// Strategy returns the completion strategy selected for the axis.
func (p *Positioner) Strategy() Strategy { return p.strategy }

// Metrics returns the move counters of the positioner.
func (p *Positioner) Metrics() *Metrics { return &p.metrics }

// Limits returns the set-point limits. ok is false when the axis has no limits.
func (p *Positioner) Limits() (low float64, high float64, ok bool) {
	low, high, ok = p.chans.Setpoint.Limits()
	if !ok || low >= high {
		return 0, 0, false
	}

	return low, high, true
}

// CheckValue validates target against the set-point limits and writability without side effects.
//
// It returns a *LimitError matching ErrLimit when target lies outside the limits, or
// an error matching ErrReadOnly when the set-point cannot be written.
func (p *Positioner) CheckValue(target float64) error {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		low, high, _ := p.Limits()
		return &LimitError{Value: target, Low: low, High: high}
	}

	if low, high, ok := p.Limits(); ok && (target < low || target > high) {
		return &LimitError{Value: target, Low: low, High: high}
	}

	if p.chans.Setpoint.IsReadOnly() {
		return channel.ReadOnly(p.chans.Setpoint.Name())
	}

	return nil
}

// Position returns the last readback value. It never blocks.
//
// It returns an error matching ErrDisconnected when no readback value has been observed yet.
func (p *Positioner) Position() (float64, error) {
	p.rbMu.RLock()
	defer p.rbMu.RUnlock()

	if !p.hasReadback {
		return 0, channel.Disconnected(p.chans.Readback.Name(), channel.ErrNoValue)
	}

	return p.readback, nil
}

// Moving reports whether a move is pending.
func (p *Positioner) Moving() bool {
	p.mu.Lock()
	m := p.current
	p.mu.Unlock()

	return m != nil && !m.status.Done()
}

// Move starts a move to target and blocks until it settles or ctx is done.
//
// It returns the final readback value on success. When ctx is done first, the move keeps
// running and ctx.Err() is returned. Use Stop to abort the motion.
func (p *Positioner) Move(ctx context.Context, target float64, opts ...MoveOption) (float64, error) {
	st, err := p.MoveAsync(target, opts...)
	if err != nil {
		return 0, err
	}

	return st.Wait(ctx)
}

// MoveAsync starts a move to target and returns its status immediately.
//
// Pre-flight failures (limits, read-only, disconnected channels) are returned as errors and
// never start a move. Failures after the move started, write failures included, settle the
// returned status instead. A pending move is superseded: its status settles with ErrSuperseded.
func (p *Positioner) MoveAsync(target float64, opts ...MoveOption) (*status.Status[float64], error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	mopts := moveOptions{timeout: p.cfg.timeout}
	for _, opt := range opts {
		opt(&mopts)
	}

	if err := p.CheckValue(target); err != nil {
		return nil, err
	}
	for _, ch := range p.chans.all() {
		if !ch.IsConnected() {
			return nil, channel.Disconnected(ch.Name(), nil)
		}
	}

	p.mu.Lock()
	p.moveSeq++
	m := newMove(p, p.moveSeq, target, mopts)
	prev := p.current
	p.current = m
	p.mu.Unlock()

	if prev != nil && prev.status.Cancel(ErrSuperseded) {
		p.logger.Info("move superseded", "move", prev.id, "target", prev.target, "by", m.id)
	}

	m.start()

	for _, cb := range mopts.callbacks {
		m.status.AddCallback(cb)
	}

	return m.status, nil
}

// Stop settles the pending move as cancelled, then writes the stop value when the axis has a
// stop channel. Stopping an idle axis is a no-op.
//
// The pending move is cancelled before the stop write is issued, so a done notification caused
// by the stop cannot turn it into a success.
func (p *Positioner) Stop(ctx context.Context) error {
	p.mu.Lock()
	m := p.current
	p.mu.Unlock()

	if m == nil {
		return nil
	}
	if m.status.Cancel(nil) {
		p.logger.Info("move stopped", "move", m.id, "target", m.target)
	}

	if p.chans.Stop == nil {
		return nil
	}
	if err := p.chans.Stop.Write(ctx, p.cfg.stopValue); err != nil {
		return fmt.Errorf("write stop %s: %w", p.chans.Stop.Name(), err)
	}

	return nil
}

// WaitForConnection blocks until every channel of the axis is connected or ctx is done.
func (p *Positioner) WaitForConnection(ctx context.Context) error {
	return channel.WaitConnected(ctx, p.chans.all()...)
}

// Subscribe registers handler for events of type typ and returns its id.
func (p *Positioner) Subscribe(typ EventType, handler EventHandler) uint64 {
	if handler == nil {
		return 0
	}
	id := p.observerID.Add(1)
	p.observers.Store(id, observer{typ: typ, handler: handler})

	return id
}

// Unsubscribe removes the handler registered with id.
func (p *Positioner) Unsubscribe(id uint64) {
	p.observers.Delete(id)
}

// Close cancels the pending move and releases the readback subscription.
func (p *Positioner) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	m := p.current
	p.mu.Unlock()
	if m != nil {
		m.status.Cancel(ErrClosed)
	}

	p.chans.Readback.Unsubscribe(p.rbSub)
	p.logger.Debug("positioner closed")

	return nil
}

func (p *Positioner) onReadback(ev channel.Event) {
	v, ok := util.ToFloat64(ev.Value)
	if !ok {
		p.logger.Warn("ignore non-numeric readback", "channel", ev.Name, "value", ev.Value)
		return
	}

	p.rbMu.Lock()
	p.readback = v
	p.hasReadback = true
	p.rbMu.Unlock()

	p.notify(Event{Type: EventReadback, Axis: p.name, Value: v, Timestamp: ev.Timestamp})
}

// lastPosition returns the cached readback, reading the channel when nothing was cached.
func (p *Positioner) lastPosition(ctx context.Context) (float64, error) {
	if v, err := p.Position(); err == nil {
		return v, nil
	}

	raw, err := p.chans.Readback.Read(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := util.ToFloat64(raw)
	if !ok {
		return 0, fmt.Errorf("non-numeric readback %v", raw)
	}

	return v, nil
}

func (p *Positioner) clearCurrent(m *move) {
	p.mu.Lock()
	if p.current == m {
		p.current = nil
	}
	p.mu.Unlock()
}

func (p *Positioner) notify(ev Event) {
	p.observers.Range(func(id uint64, o observer) bool {
		if o.typ == ev.Type {
			p.callWithRecover(id, o.handler, ev)
		}
		return true
	})
}

func (p *Positioner) callWithRecover(id uint64, h EventHandler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in positioner event handler", "observer", id, "panic", r)
		}
	}()

	h(ev)
}

// MoveOption configures a single move.
type MoveOption func(*moveOptions)

type moveOptions struct {
	timeout   time.Duration
	callbacks []status.Callback[float64]
}

// WithMoveTimeout overrides the configured timeout for one move. Non-positive values are ignored.
func WithMoveTimeout(d time.Duration) MoveOption {
	return func(o *moveOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMovedCallback registers cb on the status of the move. It runs exactly once after the
// move settles, after the positioner released the move, so cb may start the next move.
func WithMovedCallback(cb status.Callback[float64]) MoveOption {
	return func(o *moveOptions) {
		if cb != nil {
			o.callbacks = append(o.callbacks, cb)
		}
	}
}
