// Package sim provides a simulated motor record driving channel.SimChannels.
//
// The motor moves its readback toward the set-point at a fixed velocity, one step per tick,
// and reports motion on a moving channel that is 1 while moving and 0 when idle. Positioners
// driving a Motor should therefore be configured with positioner.WithDoneValue(0).
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/go-motion/alarm"
	"github.com/arloliu/go-motion/channel"
	"github.com/arloliu/go-motion/internal/util"
	"github.com/arloliu/go-motion/logger"
	"github.com/arloliu/go-motion/positioner"
)

var (
	// ErrInterrupted completes a pending put completion write whose move was replaced.
	ErrInterrupted = errors.New("move interrupted by a new target")

	// ErrNotRunning indicates a command sent to a motor whose Run loop has exited.
	ErrNotRunning = errors.New("motor is not running")

	// ErrInvalidTarget indicates a non-numeric set-point.
	ErrInvalidTarget = errors.New("invalid motor target")
)

// Option configures a Motor.
type Option func(*Motor)

// WithVelocity sets the speed in units per second. Non-positive values are ignored.
func WithVelocity(v float64) Option {
	return func(m *Motor) {
		if v > 0 {
			m.velocity = v
		}
	}
}

// WithStepInterval sets the simulation tick. Non-positive values are ignored.
func WithStepInterval(d time.Duration) Option {
	return func(m *Motor) {
		if d > 0 {
			m.step = d
		}
	}
}

// WithInitialPosition sets the starting position.
func WithInitialPosition(pos float64) Option {
	return func(m *Motor) { m.position = pos }
}

// WithSoftLimits sets the limits reported by the set-point channel.
func WithSoftLimits(low, high float64) Option {
	return func(m *Motor) {
		m.softLow, m.softHigh, m.hasSoftLimits = low, high, true
	}
}

// WithHardLimits sets the positions of the limit switches. Reaching one stops the motor and
// raises a major HW_LIMIT_ALARM.
func WithHardLimits(low, high float64) Option {
	return func(m *Motor) {
		m.hardLow, m.hardHigh, m.hasHardLimits = low, high, true
	}
}

// WithPutCompletion makes set-point writes, or actuate writes when the motor has an actuate
// channel, return only once the motion is over.
func WithPutCompletion() Option {
	return func(m *Motor) { m.putCompletion = true }
}

// WithActuate adds an actuate channel. Set-point writes then only store the target and the
// motion starts on the next actuate write.
func WithActuate() Option {
	return func(m *Motor) { m.withActuate = true }
}

// WithLogger sets the logger. Defaults to logger.GetLogger().
func WithLogger(l logger.Logger) Option {
	return func(m *Motor) {
		if l != nil {
			m.logger = l
		}
	}
}

type commandKind uint8

const (
	cmdMove commandKind = iota
	cmdStop
)

type command struct {
	kind   commandKind
	target float64
	// done receives the end of the motion for put completion writes.
	done chan error
}

// Motor is a simulated motor record.
type Motor struct {
	name          string
	velocity      float64
	step          time.Duration
	putCompletion bool
	withActuate   bool
	logger        logger.Logger

	softLow, softHigh float64
	hasSoftLimits     bool
	hardLow, hardHigh float64
	hasHardLimits     bool

	setpoint *channel.SimChannel
	readback *channel.SimChannel
	moving   *channel.SimChannel
	stop     *channel.SimChannel
	severity *channel.SimChannel
	actuate  *channel.SimChannel

	cmds    chan command
	stopped chan struct{}

	// pubMu serializes state transitions with their publication so that channel updates
	// leave in the order the transitions happened.
	pubMu sync.Mutex

	mu       sync.Mutex
	position float64
	target   float64
	pending  float64
	inMotion bool
	waiter   chan error
}

// NewMotor creates a motor named name. Channel names are name followed by ".VAL", ".RBV",
// ".MOVN", ".STOP", ".SEVR" and ".GO".
func NewMotor(name string, opts ...Option) *Motor {
	m := &Motor{
		name:     name,
		velocity: 1,
		step:     10 * time.Millisecond,
		logger:   logger.GetLogger(),
		cmds:     make(chan command, 16),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("motor", name)
	m.target = m.position
	m.pending = m.position

	spOpts := []channel.SimOption{
		channel.WithInitialValue(m.position),
		channel.WithSimLogger(m.logger),
		channel.WithPutHandler(m.onSetpoint),
	}
	if m.hasSoftLimits {
		spOpts = append(spOpts, channel.WithLimits(m.softLow, m.softHigh))
	}

	m.setpoint = channel.NewSimChannel(name+".VAL", spOpts...)
	m.readback = channel.NewSimChannel(name+".RBV",
		channel.WithInitialValue(m.position), channel.WithReadOnly(), channel.WithSimLogger(m.logger))
	m.moving = channel.NewSimChannel(name+".MOVN",
		channel.WithInitialValue(0), channel.WithReadOnly(), channel.WithSimLogger(m.logger))
	m.stop = channel.NewSimChannel(name+".STOP",
		channel.WithInitialValue(0), channel.WithPutHandler(m.onStop), channel.WithSimLogger(m.logger))
	m.severity = channel.NewSimChannel(name+".SEVR",
		channel.WithInitialValue(alarm.Condition{Severity: alarm.NoAlarm, Alarm: alarm.Name(0)}),
		channel.WithReadOnly(), channel.WithSimLogger(m.logger))
	if m.withActuate {
		m.actuate = channel.NewSimChannel(name+".GO",
			channel.WithInitialValue(0), channel.WithPutHandler(m.onActuate), channel.WithSimLogger(m.logger))
	}

	return m
}

// Name returns the motor name.
func (m *Motor) Name() string { return m.name }

// Channels returns the channels of the motor for positioner.New.
func (m *Motor) Channels() positioner.Channels {
	chans := positioner.Channels{
		Setpoint: m.setpoint,
		Readback: m.readback,
		Done:     m.moving,
		Stop:     m.stop,
		Alarm:    m.severity,
	}
	if m.actuate != nil {
		chans.Actuate = m.actuate
	}

	return chans
}

// Setpoint returns the set-point channel.
func (m *Motor) Setpoint() *channel.SimChannel { return m.setpoint }

// Readback returns the readback channel.
func (m *Motor) Readback() *channel.SimChannel { return m.readback }

// Moving returns the moving channel, 1 while moving and 0 when idle.
func (m *Motor) Moving() *channel.SimChannel { return m.moving }

// Severity returns the alarm-severity channel.
func (m *Motor) Severity() *channel.SimChannel { return m.severity }

// Position returns the simulated position.
func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.position
}

// InMotion reports whether the motor is moving.
func (m *Motor) InMotion() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.inMotion
}

// SetAlarm publishes an alarm condition on the severity channel.
func (m *Motor) SetAlarm(c alarm.Condition) {
	m.logger.Info("alarm raised", "alarm", c.String())
	m.severity.Put(c)
}

// ClearAlarm publishes NO_ALARM on the severity channel.
func (m *Motor) ClearAlarm() {
	m.severity.Put(alarm.Condition{Severity: alarm.NoAlarm, Alarm: alarm.Name(0)})
}

// SetConnected simulates a connection change of every channel.
func (m *Motor) SetConnected(connected bool) {
	for _, ch := range []*channel.SimChannel{m.setpoint, m.readback, m.moving, m.stop, m.severity, m.actuate} {
		if ch != nil {
			ch.SetConnected(connected)
		}
	}
}

// Run drives the motor until ctx is done. It returns ctx.Err() and must be called once.
func (m *Motor) Run(ctx context.Context) error {
	defer close(m.stopped)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.commandLoop(ctx) })
	g.Go(func() error { return m.stepLoop(ctx) })

	err := g.Wait()
	m.abortWaiter(err)

	return err
}

func (m *Motor) commandLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-m.cmds:
			m.apply(cmd)
		}
	}
}

func (m *Motor) stepLoop(ctx context.Context) error {
	t := time.NewTicker(m.step)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		m.tick()
	}
}

func (m *Motor) apply(cmd command) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	prev := m.waiter
	m.waiter = nil
	switch cmd.kind {
	case cmdMove:
		m.target = cmd.target
		m.inMotion = true
		m.waiter = cmd.done
	case cmdStop:
		m.target = m.position
		m.inMotion = false
	}
	position := m.position
	m.mu.Unlock()

	switch cmd.kind {
	case cmdMove:
		m.logger.Debug("motion started", "from", position, "target", cmd.target)
		if prev != nil {
			prev <- ErrInterrupted
		}
		m.moving.Put(1)
	case cmdStop:
		m.logger.Info("motion stopped", "position", position)
		m.moving.Put(0)
		if prev != nil {
			prev <- nil
		}
	}
}

func (m *Motor) tick() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	if !m.inMotion {
		m.mu.Unlock()
		return
	}

	maxStep := m.velocity * m.step.Seconds()
	delta := m.target - m.position
	if math.Abs(delta) <= maxStep {
		m.position = m.target
	} else {
		m.position += math.Copysign(maxStep, delta)
	}

	hitLimit := m.hasHardLimits &&
		((delta < 0 && m.position <= m.hardLow) || (delta > 0 && m.position >= m.hardHigh))
	if hitLimit {
		m.position = math.Max(m.hardLow, math.Min(m.hardHigh, m.position))
		m.target = m.position
	}

	position := m.position
	arrived := position == m.target
	var waiter chan error
	if arrived {
		m.inMotion = false
		waiter = m.waiter
		m.waiter = nil
	}
	m.mu.Unlock()

	m.readback.Put(position)
	if hitLimit {
		m.SetAlarm(alarm.Condition{
			Severity: alarm.Major,
			Alarm:    "HW_LIMIT_ALARM",
			Message:  fmt.Sprintf("limit switch at %g", position),
		})
	}
	if !arrived {
		return
	}

	m.logger.Debug("motion done", "position", position)
	m.moving.Put(0)
	if waiter != nil {
		waiter <- nil
	}
}

func (m *Motor) abortWaiter(err error) {
	m.mu.Lock()
	waiter := m.waiter
	m.waiter = nil
	m.mu.Unlock()

	if waiter != nil {
		waiter <- err
	}
}

func (m *Motor) onSetpoint(ctx context.Context, v any) error {
	target, ok := util.ToFloat64(v)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, v)
	}
	if m.hasSoftLimits && m.softLow < m.softHigh && (target < m.softLow || target > m.softHigh) {
		return fmt.Errorf("%w: %g outside of [%g, %g]", ErrInvalidTarget, target, m.softLow, m.softHigh)
	}

	if m.withActuate {
		m.mu.Lock()
		m.pending = target
		m.mu.Unlock()

		return nil
	}

	return m.send(ctx, cmdMove, target, m.putCompletion)
}

func (m *Motor) onActuate(ctx context.Context, _ any) error {
	m.mu.Lock()
	target := m.pending
	m.mu.Unlock()

	return m.send(ctx, cmdMove, target, m.putCompletion)
}

func (m *Motor) onStop(ctx context.Context, _ any) error {
	return m.send(ctx, cmdStop, 0, false)
}

// send queues a command and, when wait is set, blocks until the motion it starts is over.
func (m *Motor) send(ctx context.Context, kind commandKind, target float64, wait bool) error {
	cmd := command{kind: kind, target: target}
	if wait {
		cmd.done = make(chan error, 1)
	}

	select {
	case <-m.stopped:
		return ErrNotRunning
	default:
	}

	select {
	case m.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrNotRunning
	}

	if !wait {
		return nil
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrNotRunning
	}
}
