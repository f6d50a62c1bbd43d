// Package telemetry records move outcomes emitted by positioners.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome classifies how a move ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeAlarm     Outcome = "alarm"
	OutcomeError     Outcome = "error"
)

// Collector captures move telemetry.
//
// Hooks run inline on the goroutine that settles a move, implementations must be cheap.
type Collector interface {
	MoveStarted(axis string)
	MoveFinished(axis string, outcome Outcome, elapsed time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards everything.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) MoveStarted(string)                          {}
func (noopCollector) MoveFinished(string, Outcome, time.Duration) {}

// PrometheusCollector exposes move counters, durations and in-flight moves via Prometheus.
type PrometheusCollector struct {
	moves    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight *prometheus.GaugeVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the move metrics with reg, the default registerer when nil.
// Metrics already registered by an earlier collector on the same registerer are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	moves, err := registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_positioner_moves_total",
		Help: "Number of finished moves per axis and outcome.",
	}, []string{"axis", "outcome"}))
	if err != nil {
		return nil, err
	}

	duration, err := registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "motion_positioner_move_duration_seconds",
		Help:    "Duration of finished moves per axis and outcome.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"axis", "outcome"}))
	if err != nil {
		return nil, err
	}

	inflight, err := registerOrReuse(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "motion_positioner_moves_inflight",
		Help: "Number of moves currently pending per axis.",
	}, []string{"axis"}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{moves: moves, duration: duration, inflight: inflight}, nil
}

// MoveStarted increments the in-flight gauge of axis.
func (p *PrometheusCollector) MoveStarted(axis string) {
	if p == nil {
		return
	}
	p.inflight.WithLabelValues(axis).Inc()
}

// MoveFinished records a finished move.
func (p *PrometheusCollector) MoveFinished(axis string, outcome Outcome, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.inflight.WithLabelValues(axis).Dec()
	p.moves.WithLabelValues(axis, string(outcome)).Inc()
	p.duration.WithLabelValues(axis, string(outcome)).Observe(elapsed.Seconds())
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	var zero C
	return zero, err
}
