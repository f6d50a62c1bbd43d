package positioner

import (
	"errors"
	"sync/atomic"

	"github.com/arloliu/go-motion/alarm"
	"github.com/arloliu/go-motion/telemetry"
)

// Metrics contains atomic move counters of a positioner.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// MovesStarted indicates the number of moves that passed the pre-flight checks.
	MovesStarted atomic.Uint64

	// MovesSucceeded indicates the number of moves that settled successfully.
	MovesSucceeded atomic.Uint64

	// MovesTimedOut indicates the number of moves that hit their deadline.
	MovesTimedOut atomic.Uint64

	// MovesCancelled indicates the number of moves settled by Stop or superseded.
	MovesCancelled atomic.Uint64

	// MovesAlarmed indicates the number of moves aborted by an alarm.
	MovesAlarmed atomic.Uint64

	// MovesFailed indicates the number of moves that failed for any other reason.
	MovesFailed atomic.Uint64

	// MovesInflight indicates the number of pending moves, 0 or 1.
	MovesInflight atomic.Int64
}

func (m *Metrics) incStarted() {
	m.MovesStarted.Add(1)
	m.MovesInflight.Add(1)
}

func (m *Metrics) record(outcome telemetry.Outcome) {
	m.MovesInflight.Add(-1)

	switch outcome {
	case telemetry.OutcomeSuccess:
		m.MovesSucceeded.Add(1)
	case telemetry.OutcomeTimeout:
		m.MovesTimedOut.Add(1)
	case telemetry.OutcomeCancelled:
		m.MovesCancelled.Add(1)
	case telemetry.OutcomeAlarm:
		m.MovesAlarmed.Add(1)
	default:
		m.MovesFailed.Add(1)
	}
}

// outcomeOf classifies the failure of a settled move.
func outcomeOf(err error) telemetry.Outcome {
	var alarmErr *alarm.Error
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return telemetry.OutcomeTimeout
	case errors.Is(err, ErrCancelled):
		return telemetry.OutcomeCancelled
	case errors.As(err, &alarmErr):
		return telemetry.OutcomeAlarm
	default:
		return telemetry.OutcomeError
	}
}
