package positioner

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-motion/alarm"
	"github.com/arloliu/go-motion/channel"
	"github.com/arloliu/go-motion/logger"
	"github.com/arloliu/go-motion/status"
)

type testAxis struct {
	sp    *channel.SimChannel
	rb    *channel.SimChannel
	done  *channel.SimChannel
	stop  *channel.SimChannel
	alarm *channel.SimChannel
}

func newTestAxis(withDone bool, spOpts ...channel.SimOption) *testAxis {
	spOpts = append([]channel.SimOption{channel.WithInitialValue(0.0), channel.WithLimits(-10, 10)}, spOpts...)
	a := &testAxis{
		sp:    channel.NewSimChannel("m1.VAL", spOpts...),
		rb:    channel.NewSimChannel("m1.RBV", channel.WithInitialValue(0.0), channel.WithReadOnly()),
		stop:  channel.NewSimChannel("m1.STOP", channel.WithInitialValue(0)),
		alarm: channel.NewSimChannel("m1.SEVR", channel.WithInitialValue(0)),
	}
	if withDone {
		a.done = channel.NewSimChannel("m1.MOVN", channel.WithInitialValue(0))
	}

	return a
}

func (a *testAxis) channels() Channels {
	chans := Channels{Setpoint: a.sp, Readback: a.rb, Stop: a.stop, Alarm: a.alarm}
	if a.done != nil {
		chans.Done = a.done
	}

	return chans
}

func newTestPositioner(t *testing.T, a *testAxis, opts ...Option) *Positioner {
	t.Helper()

	opts = append([]Option{WithLogger(logger.NewNopMockLogger()), WithDoneValue(0)}, opts...)
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)

	p, err := New("m1", a.channels(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return p
}

func requireIdle(t *testing.T, p *Positioner) {
	t.Helper()
	require.Eventually(t, func() bool { return !p.Moving() }, time.Second, 5*time.Millisecond)
}

func TestNew_RequiredChannels(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(false)

	_, err := New("m1", Channels{Readback: a.rb}, nil)
	require.ErrorIs(err, ErrChannelNil)
	_, err = New("m1", Channels{Setpoint: a.sp}, nil)
	require.ErrorIs(err, ErrChannelNil)

	p, err := New("m1", Channels{Setpoint: a.sp, Readback: a.rb}, nil)
	require.NoError(err)
	require.Equal("m1", p.Name())
	require.Equal(StrategyTolerance, p.Strategy())
	require.NoError(p.Close())
	require.NoError(p.Close())

	_, err = p.MoveAsync(1.0)
	require.ErrorIs(err, ErrClosed)
}

func TestNew_StrategySelection(t *testing.T) {
	require := require.New(t)

	require.Equal(StrategyDoneFlag, newTestPositioner(t, newTestAxis(true)).Strategy())
	require.Equal(StrategyTolerance, newTestPositioner(t, newTestAxis(false)).Strategy())
	require.Equal(StrategyPutCompletion, newTestPositioner(t, newTestAxis(true), WithPutCompletion()).Strategy())
	require.Equal(StrategyPutCompletion, newTestPositioner(t, newTestAxis(false), WithPutCompletion()).Strategy())
	require.Equal("done flag", StrategyDoneFlag.String())
}

func TestPositioner_CheckValue(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	low, high, ok := p.Limits()
	require.True(ok)
	require.Equal(-10.0, low)
	require.Equal(10.0, high)

	require.NoError(p.CheckValue(10))
	require.NoError(p.CheckValue(-10))

	st, err := p.MoveAsync(11)
	require.Nil(st)
	require.ErrorIs(err, ErrLimit)
	var limitErr *LimitError
	require.ErrorAs(err, &limitErr)
	require.Equal(11.0, limitErr.Value)
	require.Equal(10.0, limitErr.High)
	require.Contains(err.Error(), "outside of limits")

	_, err = p.Move(context.Background(), -10.5)
	require.ErrorIs(err, ErrLimit)

	// no side effects: no write, no move
	require.Zero(a.sp.WriteCount())
	require.False(p.Moving())
	require.Zero(p.Metrics().MovesStarted.Load())
}

func TestPositioner_CheckValue_NoLimits(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true, channel.WithLimits(0, 0))
	p := newTestPositioner(t, a)

	_, _, ok := p.Limits()
	require.False(ok)
	require.NoError(p.CheckValue(1e6))
	require.ErrorIs(p.CheckValue(math.NaN()), ErrLimit)
}

func TestPositioner_ReadOnlyAndDisconnected(t *testing.T) {
	require := require.New(t)

	ro := newTestAxis(true, channel.WithReadOnly())
	p := newTestPositioner(t, ro)
	_, err := p.MoveAsync(1.0)
	require.ErrorIs(err, ErrReadOnly)

	a := newTestAxis(true)
	p = newTestPositioner(t, a)
	a.done.SetConnected(false)
	_, err = p.MoveAsync(1.0)
	require.ErrorIs(err, ErrDisconnected)
	require.Zero(a.sp.WriteCount())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(p.WaitForConnection(ctx), context.DeadlineExceeded)

	a.done.SetConnected(true)
	require.NoError(p.WaitForConnection(context.Background()))
}

func TestPositioner_Position(t *testing.T) {
	require := require.New(t)

	a := newTestAxis(false)
	p := newTestPositioner(t, a)
	pos, err := p.Position()
	require.NoError(err)
	require.Equal(0.0, pos)

	a.rb.Put(2.5)
	pos, err = p.Position()
	require.NoError(err)
	require.Equal(2.5, pos)

	// non-numeric readbacks are ignored
	a.rb.Put("bogus")
	pos, err = p.Position()
	require.NoError(err)
	require.Equal(2.5, pos)

	empty := channel.NewSimChannel("m2.RBV")
	p2, err := New("m2", Channels{Setpoint: a.sp, Readback: empty}, nil)
	require.NoError(err)
	defer p2.Close()
	_, err = p2.Position()
	require.ErrorIs(err, ErrDisconnected)
}

func TestPositioner_DoneFlag(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	var readbacks atomic.Int32
	p.Subscribe(EventReadback, func(Event) { readbacks.Add(1) })

	st, err := p.MoveAsync(1.0)
	require.NoError(err)
	require.True(p.Moving())
	require.False(st.Done())
	require.Equal(1.0, simValue(a.sp))

	start := time.Now()
	go func() {
		a.done.Put(1)
		a.rb.Put(0.5)
		time.Sleep(200 * time.Millisecond)
		a.rb.Put(1.0)
		a.done.Put(0)
	}()

	pos, err := st.WaitTimeout(2 * time.Second)
	require.NoError(err)
	require.Equal(1.0, pos)
	require.True(st.Success())
	require.GreaterOrEqual(time.Since(start), 200*time.Millisecond)

	requireIdle(t, p)
	require.EqualValues(2, readbacks.Load())
	require.Eventually(func() bool { return p.Metrics().MovesSucceeded.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Zero(p.Metrics().MovesInflight.Load())
}

func TestPositioner_DoneFlag_IgnoresPreWriteIdle(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a, WithTimeout(100*time.Millisecond))

	// the idle flag observed at subscription time must not complete the move
	st, err := p.MoveAsync(1.0)
	require.NoError(err)

	_, err = st.WaitTimeout(time.Second)
	require.ErrorIs(err, ErrTimeout)
}

func TestPositioner_DonePredicate(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a, WithDonePredicate("value == 0 || value == 3"))

	st, err := p.MoveAsync(2.0)
	require.NoError(err)

	a.done.Put(2)
	require.False(st.Done())
	a.rb.Put(2.0)
	a.done.Put(3)

	pos, err := st.WaitTimeout(time.Second)
	require.NoError(err)
	require.Equal(2.0, pos)
}

func TestPositioner_Tolerance(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(false)
	p := newTestPositioner(t, a, WithTolerance(0.05))

	st, err := p.MoveAsync(1.0)
	require.NoError(err)

	for _, v := range []float64{0.3, 0.7, 0.98} {
		a.rb.Put(v)
		require.False(st.Done(), "settled at %v", v)
	}
	a.rb.Put(1.01)

	pos, err := st.WaitTimeout(time.Second)
	require.NoError(err)
	require.Equal(1.01, pos)
	requireIdle(t, p)
}

func TestPositioner_ToleranceSettleTime(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(false)
	p := newTestPositioner(t, a, WithTolerance(0.05), WithSettleTime(50*time.Millisecond))

	st, err := p.MoveAsync(1.0)
	require.NoError(err)

	// entering and leaving the tolerance restarts the settle period
	a.rb.Put(0.99)
	a.rb.Put(0.5)
	time.Sleep(100 * time.Millisecond)
	require.False(st.Done())

	start := time.Now()
	a.rb.Put(1.0)
	pos, err := st.WaitTimeout(time.Second)
	require.NoError(err)
	require.Equal(1.0, pos)
	require.GreaterOrEqual(time.Since(start), 50*time.Millisecond)
}

func TestPositioner_ToleranceAtCurrentPosition(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(false)
	p := newTestPositioner(t, a, WithTolerance(0.05), WithSettleTime(20*time.Millisecond))

	pos, err := p.Move(context.Background(), 0.01)
	require.NoError(err)
	require.Equal(0.0, pos)
}

func TestPositioner_ToleranceDefaultSettle(t *testing.T) {
	t.Run("already at target", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(false)
		p := newTestPositioner(t, a, WithTolerance(0.05))
		require.Equal(time.Duration(0), p.cfg.SettleTime())

		pos, err := p.Move(context.Background(), 0.01, WithMoveTimeout(time.Second))
		require.NoError(err)
		require.Equal(0.0, pos)
		requireIdle(t, p)
	})

	t.Run("single arrival then quiet", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(false)
		p := newTestPositioner(t, a, WithTolerance(0.05))

		st, err := p.MoveAsync(1.0, WithMoveTimeout(time.Second))
		require.NoError(err)
		a.rb.Put(0.5)
		a.rb.Put(1.0)

		pos, err := st.WaitTimeout(time.Second)
		require.NoError(err)
		require.Equal(1.0, pos)
		require.Equal(uint64(0), p.Metrics().MovesTimedOut.Load())
	})

	t.Run("leaving tolerance before confirmation", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(false)
		p := newTestPositioner(t, a, WithTolerance(0.05))

		st, err := p.MoveAsync(1.0, WithMoveTimeout(time.Second))
		require.NoError(err)
		a.rb.Put(0.99)
		a.rb.Put(0.5)
		time.Sleep(2 * confirmDelay)
		require.False(st.Done())

		a.rb.Put(1.02)
		pos, err := st.WaitTimeout(time.Second)
		require.NoError(err)
		require.Equal(1.02, pos)
	})
}

func TestPositioner_Timeout(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	start := time.Now()
	_, err := p.Move(context.Background(), 5.0, WithMoveTimeout(200*time.Millisecond))
	elapsed := time.Since(start)

	require.ErrorIs(err, ErrTimeout)
	require.GreaterOrEqual(elapsed, 200*time.Millisecond)
	require.Less(elapsed, time.Second)
	requireIdle(t, p)
	require.Eventually(func() bool { return p.Metrics().MovesTimedOut.Load() == 1 }, time.Second, 5*time.Millisecond)

	// the subscriptions of the move are released
	require.Eventually(func() bool { return a.done.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(func() bool { return a.alarm.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	require.Equal(1, a.rb.SubscriberCount())
}

func TestPositioner_MoveContextDone(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Move(ctx, 1.0)
	require.ErrorIs(err, context.DeadlineExceeded)

	// the move keeps running
	require.True(p.Moving())
	a.done.Put(0)
	requireIdle(t, p)
}

func TestPositioner_Stop(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)

	// the stop write makes the hardware report idle, which must not turn into a success
	a.stop = channel.NewSimChannel("m1.STOP", channel.WithPutHandler(func(context.Context, any) error {
		a.done.Put(0)
		return nil
	}))
	p := newTestPositioner(t, a)

	st, err := p.MoveAsync(3.0)
	require.NoError(err)
	a.done.Put(1)

	require.NoError(p.Stop(context.Background()))
	require.True(st.Done())
	require.True(st.Cancelled())
	require.ErrorIs(st.Err(), ErrCancelled)
	require.Equal(1, simValue(a.stop))
	require.EqualValues(1, a.stop.WriteCount())

	requireIdle(t, p)
	require.Eventually(func() bool { return p.Metrics().MovesCancelled.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPositioner_StopIdle(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	require.NoError(p.Stop(context.Background()))
	require.False(p.Moving())
	require.Zero(a.stop.WriteCount())
	require.Zero(p.Metrics().MovesStarted.Load())
}

func TestPositioner_StopWriteFailure(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	st, err := p.MoveAsync(3.0)
	require.NoError(err)

	a.stop.FailWrites(errors.New("stop rejected"))
	err = p.Stop(context.Background())
	require.ErrorContains(err, "stop rejected")
	require.True(st.Cancelled())
}

func TestPositioner_Alarm(t *testing.T) {
	t.Run("major aborts", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(true)
		p := newTestPositioner(t, a)

		st, err := p.MoveAsync(4.0)
		require.NoError(err)
		a.done.Put(1)

		a.alarm.Put(alarm.Condition{Severity: alarm.Major, Alarm: "HW_LIMIT_ALARM", Message: "high limit switch"})
		a.done.Put(0)

		_, err = st.WaitTimeout(time.Second)
		require.ErrorIs(err, alarm.ErrMajor)
		var alarmErr *alarm.Error
		require.ErrorAs(err, &alarmErr)
		require.Equal("HW_LIMIT_ALARM", alarmErr.Alarm)
		require.False(st.Success())
		require.Eventually(func() bool { return p.Metrics().MovesAlarmed.Load() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("major overrides later tolerance match", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(false)
		p := newTestPositioner(t, a, WithTolerance(0.05))
		require.Equal(StrategyTolerance, p.Strategy())

		st, err := p.MoveAsync(1.0)
		require.NoError(err)
		a.alarm.Put(2)
		a.rb.Put(0.99)
		a.rb.Put(1.0)

		_, err = st.WaitTimeout(time.Second)
		require.ErrorIs(err, alarm.ErrMajor)
		require.False(st.Success())

		time.Sleep(2 * confirmDelay)
		require.False(st.Success())
		require.ErrorIs(st.Err(), alarm.ErrMajor)
	})

	t.Run("minor below threshold", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(true)
		p := newTestPositioner(t, a)

		st, err := p.MoveAsync(4.0)
		require.NoError(err)
		a.alarm.Put(1)
		require.False(st.Done())

		a.done.Put(0)
		_, err = st.WaitTimeout(time.Second)
		require.NoError(err)
	})

	t.Run("minor threshold", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(true)
		p := newTestPositioner(t, a, WithAlarmThreshold(alarm.Minor))

		st, err := p.MoveAsync(4.0)
		require.NoError(err)
		a.alarm.Put(1)

		_, err = st.WaitTimeout(time.Second)
		require.ErrorIs(err, alarm.ErrMinor)
	})

	t.Run("pre-existing alarm is ignored", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(true)
		a.alarm.Put(2)
		p := newTestPositioner(t, a)

		st, err := p.MoveAsync(4.0)
		require.NoError(err)
		a.done.Put(0)

		_, err = st.WaitTimeout(time.Second)
		require.NoError(err)
	})

	t.Run("invalid severity", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(true)
		p := newTestPositioner(t, a)

		st, err := p.MoveAsync(4.0)
		require.NoError(err)
		a.alarm.Put(7)

		_, err = st.WaitTimeout(time.Second)
		require.ErrorIs(err, alarm.ErrInvalidSeverity)
	})
}

func TestPositioner_WriteFailure(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	a.sp.FailWrites(errors.New("put rejected"))
	st, err := p.MoveAsync(1.0)
	require.NoError(err)

	_, err = st.WaitTimeout(time.Second)
	require.ErrorContains(err, "put rejected")
	require.ErrorContains(err, "m1.VAL")
	requireIdle(t, p)
	require.Eventually(func() bool { return p.Metrics().MovesFailed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPositioner_Actuate(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	actuate := channel.NewSimChannel("m1.GO", channel.WithInitialValue(0))
	chans := a.channels()
	chans.Actuate = actuate

	cfg, err := NewConfig(WithLogger(logger.NewNopMockLogger()), WithDoneValue(0), WithActuateValue("Go"))
	require.NoError(err)
	p, err := New("m1", chans, cfg)
	require.NoError(err)
	defer p.Close()

	st, err := p.MoveAsync(1.0)
	require.NoError(err)
	require.Equal("Go", simValue(actuate))

	a.done.Put(0)
	_, err = st.WaitTimeout(time.Second)
	require.NoError(err)
}

func TestPositioner_PutCompletion(t *testing.T) {
	t.Run("without done flag", func(t *testing.T) {
		require := require.New(t)
		release := make(chan struct{})
		a := newTestAxis(false, channel.WithPutHandler(func(ctx context.Context, _ any) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))
		p := newTestPositioner(t, a, WithPutCompletion())

		st, err := p.MoveAsync(1.0)
		require.NoError(err)
		time.Sleep(20 * time.Millisecond)
		require.False(st.Done())

		a.rb.Put(0.9)
		close(release)
		pos, err := st.WaitTimeout(time.Second)
		require.NoError(err)
		require.Equal(0.9, pos)
	})

	t.Run("with done flag", func(t *testing.T) {
		require := require.New(t)
		a := newTestAxis(true)
		p := newTestPositioner(t, a, WithPutCompletion())

		st, err := p.MoveAsync(1.0)
		require.NoError(err)

		// acknowledgement alone is not sufficient
		time.Sleep(20 * time.Millisecond)
		require.False(st.Done())

		a.done.Put(0)
		require.False(st.Done())
		a.done.Put(1)
		require.False(st.Done())
		a.rb.Put(1.0)
		a.done.Put(0)

		pos, err := st.WaitTimeout(time.Second)
		require.NoError(err)
		require.Equal(1.0, pos)
	})

	t.Run("stop aborts pending write", func(t *testing.T) {
		require := require.New(t)
		writeDone := make(chan error, 1)
		a := newTestAxis(false, channel.WithPutHandler(func(ctx context.Context, _ any) error {
			<-ctx.Done()
			writeDone <- ctx.Err()
			return ctx.Err()
		}))
		p := newTestPositioner(t, a, WithPutCompletion())

		st, err := p.MoveAsync(1.0)
		require.NoError(err)
		time.Sleep(10 * time.Millisecond)
		require.NoError(p.Stop(context.Background()))
		require.True(st.Cancelled())

		select {
		case err := <-writeDone:
			require.ErrorIs(err, context.Canceled)
		case <-time.After(time.Second):
			require.Fail("put completion write not aborted")
		}
	})
}

func TestPositioner_Supersede(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	first, err := p.MoveAsync(1.0)
	require.NoError(err)
	second, err := p.MoveAsync(2.0)
	require.NoError(err)

	require.True(first.Done())
	require.ErrorIs(first.Err(), ErrSuperseded)
	require.ErrorIs(first.Err(), ErrCancelled)
	require.True(first.Cancelled())
	require.True(p.Moving())

	a.done.Put(0)
	_, err = second.WaitTimeout(time.Second)
	require.NoError(err)
	requireIdle(t, p)
}

func TestPositioner_MoveFromCallback(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	nextCh := make(chan *status.Status[float64], 1)
	var movingInCallback atomic.Bool
	first, err := p.MoveAsync(1.0, WithMovedCallback(func(st *status.Status[float64]) {
		movingInCallback.Store(p.Moving())
		next, err := p.MoveAsync(2.0)
		if err == nil {
			nextCh <- next
		}
	}))
	require.NoError(err)

	a.done.Put(0)
	_, err = first.WaitTimeout(time.Second)
	require.NoError(err)

	var next *status.Status[float64]
	select {
	case next = <-nextCh:
	case <-time.After(time.Second):
		require.Fail("second move not started from callback")
	}
	require.False(movingInCallback.Load())

	// the idle flag delivered when the second move subscribed is stale
	time.Sleep(20 * time.Millisecond)
	require.False(next.Done())
	require.Equal(2.0, simValue(a.sp))

	a.done.Put(1)
	a.done.Put(0)
	_, err = next.WaitTimeout(time.Second)
	require.NoError(err)
}

func TestPositioner_ExactlyOnce(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	for i := 0; i < 100; i++ {
		var calls atomic.Int32
		st, err := p.MoveAsync(1.0,
			WithMoveTimeout(time.Millisecond),
			WithMovedCallback(func(*status.Status[float64]) { calls.Add(1) }),
		)
		require.NoError(err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.done.Put(0)
		}()
		go func() {
			defer wg.Done()
			_ = p.Stop(context.Background())
		}()
		wg.Wait()

		_, err = st.WaitTimeout(time.Second)
		if err != nil {
			require.True(errors.Is(err, ErrTimeout) || errors.Is(err, ErrCancelled), "unexpected error: %v", err)
		}
		require.Eventually(func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		requireIdle(t, p)
	}

	time.Sleep(10 * time.Millisecond)
	m := p.Metrics()
	require.EqualValues(100, m.MovesStarted.Load())
	require.EqualValues(100, m.MovesSucceeded.Load()+m.MovesTimedOut.Load()+m.MovesCancelled.Load())
	require.Zero(m.MovesInflight.Load())
}

func TestPositioner_DoneEvents(t *testing.T) {
	require := require.New(t)
	a := newTestAxis(true)
	p := newTestPositioner(t, a)

	events := make(chan Event, 4)
	id := p.Subscribe(EventDone, func(ev Event) { events <- ev })
	require.NotZero(id)
	require.Zero(p.Subscribe(EventDone, nil))

	// a panicking observer does not break delivery
	p.Subscribe(EventDone, func(Event) { panic("observer failure") })

	_, err := p.MoveAsync(1.0)
	require.NoError(err)
	a.rb.Put(1.0)
	a.done.Put(0)

	select {
	case ev := <-events:
		require.Equal(EventDone, ev.Type)
		require.Equal("m1", ev.Axis)
		require.Equal(1.0, ev.Value)
		require.NoError(ev.Err)
	case <-time.After(time.Second):
		require.Fail("done event not delivered")
	}

	p.Unsubscribe(id)
	st, err := p.MoveAsync(2.0)
	require.NoError(err)
	require.NoError(p.Stop(context.Background()))
	require.True(st.Cancelled())
	time.Sleep(10 * time.Millisecond)
	require.Empty(events)
}

func simValue(ch *channel.SimChannel) any {
	v, _ := ch.Value()
	return v
}
