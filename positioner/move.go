package positioner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-motion/alarm"
	"github.com/arloliu/go-motion/channel"
	"github.com/arloliu/go-motion/logger"
	"github.com/arloliu/go-motion/status"
)

// completion detects the end of a move.
type completion interface {
	// arm subscribes to the channels the strategy watches. It runs before the set-point write.
	arm(m *move) error
	// acknowledged runs once the set-point write, and the actuate write if any, returned.
	acknowledged(m *move)
	// release frees timers owned by the strategy. It runs once the move settled.
	release()
}

type subscription struct {
	ch channel.Channel
	id channel.SubscriptionID
}

// move is one in-flight move. It settles through its status exactly once.
type move struct {
	p       *Positioner
	id      uint64
	target  float64
	timeout time.Duration
	status  *status.Status[float64]
	comp    completion
	logger  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// issued is set right before the set-point write. Notifications received earlier, or
	// stamped before issuedAt, describe the previous state of the axis and are ignored.
	issued   atomic.Bool
	issuedAt time.Time

	mu    sync.Mutex
	torn  bool
	subs  []subscription
	timer *time.Timer
}

func newMove(p *Positioner, id uint64, target float64, opts moveOptions) *move {
	ctx, cancel := context.WithCancel(context.Background())
	m := &move{
		p:       p,
		id:      id,
		target:  target,
		timeout: opts.timeout,
		status:  status.New[float64](),
		logger:  p.logger.With("move", id),
		ctx:     ctx,
		cancel:  cancel,
	}

	switch p.strategy {
	case StrategyPutCompletion:
		m.comp = &putCompletion{hasDone: p.chans.Done != nil}
	case StrategyDoneFlag:
		m.comp = &doneFlagCompletion{}
	default:
		m.comp = &toleranceCompletion{}
	}

	return m
}

func (m *move) start() {
	// teardown is the first callback so the positioner is idle again before user callbacks run
	m.status.AddCallback(m.teardown)

	m.p.metrics.incStarted()
	m.p.collector.MoveStarted(m.p.name)
	m.logger.Info("move started", "target", m.target, "strategy", m.p.strategy.String(), "timeout", m.timeout)

	if err := m.comp.arm(m); err != nil {
		m.status.Fail(err)
		return
	}
	if err := m.watchAlarm(); err != nil {
		m.status.Fail(err)
		return
	}
	m.armTimer()

	if m.status.Done() {
		return
	}

	m.issuedAt = time.Now()
	m.issued.Store(true)
	if m.p.strategy == StrategyPutCompletion {
		go m.issue()
		return
	}
	m.issue()
}

// fresh reports whether ev was notified after the set-point write was issued.
func (m *move) fresh(ev channel.Event) bool {
	if !m.issued.Load() {
		return false
	}

	return ev.Timestamp.IsZero() || !ev.Timestamp.Before(m.issuedAt)
}

// issue writes the set-point, then the actuate value when the axis has an actuate channel.
func (m *move) issue() {
	if err := m.write(m.p.chans.Setpoint, m.target); err != nil {
		m.fail(err)
		return
	}

	if m.p.chans.Actuate != nil {
		if err := m.write(m.p.chans.Actuate, m.p.cfg.actuateValue); err != nil {
			m.fail(err)
			return
		}
	}

	m.comp.acknowledged(m)
}

func (m *move) write(ch channel.Channel, v any) error {
	if err := ch.Write(m.ctx, v); err != nil {
		return fmt.Errorf("write %s: %w", ch.Name(), err)
	}

	return nil
}

func (m *move) subscribe(ch channel.Channel, cb channel.Callback) error {
	id, err := ch.Subscribe(cb)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", ch.Name(), err)
	}

	m.mu.Lock()
	if m.torn {
		m.mu.Unlock()
		ch.Unsubscribe(id)

		return nil
	}
	m.subs = append(m.subs, subscription{ch: ch, id: id})
	m.mu.Unlock()

	return nil
}

func (m *move) armTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.torn {
		return
	}
	m.timer = time.AfterFunc(m.timeout, func() {
		if m.status.Fail(fmt.Errorf("%w: target %g not reached within %s", ErrTimeout, m.target, m.timeout)) {
			m.logger.Warn("move timeout", "target", m.target, "timeout", m.timeout)
		}
	})
}

func (m *move) watchAlarm() error {
	ch := m.p.chans.Alarm
	if ch == nil {
		return nil
	}

	return m.subscribe(ch, func(ev channel.Event) {
		if !m.fresh(ev) {
			return
		}

		cond, err := alarm.FromValue(ev.Value)
		if err != nil {
			m.fail(fmt.Errorf("alarm %s: %w", ev.Name, err))
			return
		}

		switch {
		case cond.Severity == alarm.NoAlarm:
		case cond.Severity >= m.p.cfg.alarmThreshold:
			m.fail(alarm.FromCondition(cond))
		default:
			m.logger.Warn("alarm below threshold", "alarm", cond.String(), "threshold", m.p.cfg.alarmThreshold.String())
		}
	})
}

// finish settles the move successfully with position.
func (m *move) finish(position float64) {
	if m.status.Finish(position) {
		m.logger.Debug("move completed", "position", position)
	}
}

// finishAtReadback settles the move successfully with the last readback value.
func (m *move) finishAtReadback() {
	position, err := m.p.lastPosition(m.ctx)
	if err != nil {
		m.logger.Warn("no readback at completion, report target", "error", err)
		position = m.target
	}
	m.finish(position)
}

func (m *move) fail(err error) {
	if m.status.Fail(err) {
		m.logger.Error("move failed", "target", m.target, "error", err)
	}
}

// teardown releases everything the move holds. It runs exactly once, as the first callback.
func (m *move) teardown(st *status.Status[float64]) {
	m.cancel()

	m.mu.Lock()
	m.torn = true
	if m.timer != nil {
		m.timer.Stop()
	}
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	for _, s := range subs {
		s.ch.Unsubscribe(s.id)
	}
	m.comp.release()

	m.p.clearCurrent(m)

	err := st.Err()
	outcome := outcomeOf(err)
	elapsed := st.Elapsed()
	m.p.metrics.record(outcome)
	m.p.collector.MoveFinished(m.p.name, outcome, elapsed)

	value, _ := st.Value()
	if err == nil {
		m.logger.Info("move finished", "position", value, "elapsed", elapsed)
	} else {
		m.logger.Info("move finished", "outcome", string(outcome), "error", err, "elapsed", elapsed)
	}

	m.p.notify(Event{Type: EventDone, Axis: m.p.name, Value: value, Err: err, Timestamp: time.Now()})
}
