package positioner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/expr-lang/expr/vm"

	"github.com/arloliu/go-motion/alarm"
	"github.com/arloliu/go-motion/logger"
	"github.com/arloliu/go-motion/telemetry"
)

// Config holds the tunables of a Positioner.
type Config struct {
	// tolerance is the maximum distance between readback and target for the tolerance strategy.
	// Defaults to 0.001.
	tolerance float64

	// settleTime is how long the readback must stay within tolerance. It should be between
	// 0 and 1 minute. Defaults to 0, which confirms on the next in-tolerance
	// readback or after a short confirmation delay, whichever comes first.
	settleTime time.Duration

	// timeout is the default move deadline. It should be between 1 millisecond and 24 hours.
	// Defaults to 30 seconds.
	timeout time.Duration

	// doneValue is the done channel value meaning "not moving". Defaults to 1.
	doneValue any

	// actuateValue is written to the actuate channel after the set-point. Defaults to 1.
	actuateValue any

	// stopValue is written to the stop channel by Stop. Defaults to 1.
	stopValue any

	// putCompletion selects the put completion strategy. Defaults to false.
	putCompletion bool

	// donePredicate, when set, replaces the equality check against doneValue.
	donePredicate *vm.Program
	doneExpr      string

	// alarmThreshold is the lowest severity that aborts a move. Defaults to alarm.Major.
	alarmThreshold alarm.Severity

	logger    logger.Logger
	collector telemetry.Collector
}

// NewConfig creates a positioner configuration with defaults, then applies opts.
//
// See the WithXXX functions for available options. Returns the first option error.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		tolerance:      0.001,
		settleTime:     0,
		timeout:        30 * time.Second,
		doneValue:      1,
		actuateValue:   1,
		stopValue:      1,
		alarmThreshold: alarm.Major,
		logger:         logger.GetLogger(),
		collector:      telemetry.Noop(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Tolerance returns the configured tolerance.
func (cfg *Config) Tolerance() float64 { return cfg.tolerance }

// SettleTime returns the configured settle delay.
func (cfg *Config) SettleTime() time.Duration { return cfg.settleTime }

// Timeout returns the default move timeout.
func (cfg *Config) Timeout() time.Duration { return cfg.timeout }

// DoneValue returns the value of the done channel meaning "not moving".
func (cfg *Config) DoneValue() any { return cfg.doneValue }

// PutCompletion reports whether the put completion strategy is selected.
func (cfg *Config) PutCompletion() bool { return cfg.putCompletion }

// DoneExpr returns the done predicate expression, empty when none is set.
func (cfg *Config) DoneExpr() string { return cfg.doneExpr }

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := o.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithTolerance sets the readback tolerance. It must be finite and not negative.
func WithTolerance(tolerance float64) Option {
	return newOptFunc("WithTolerance", func(cfg *Config) error {
		if math.IsNaN(tolerance) || math.IsInf(tolerance, 0) || tolerance < 0 {
			return fmt.Errorf("invalid tolerance %g", tolerance)
		}
		cfg.tolerance = tolerance

		return nil
	})
}

// WithSettleTime sets how long the readback has to stay within tolerance, between 0 and 1 minute.
func WithSettleTime(d time.Duration) Option {
	return newOptFunc("WithSettleTime", func(cfg *Config) error {
		if d < 0 || d > time.Minute {
			return errors.New("settle time should be between 0 and 1 minute")
		}
		cfg.settleTime = d

		return nil
	})
}

// WithTimeout sets the default move timeout, between 1 millisecond and 24 hours.
func WithTimeout(d time.Duration) Option {
	return newOptFunc("WithTimeout", func(cfg *Config) error {
		if d < time.Millisecond || d > 24*time.Hour {
			return errors.New("timeout should be between 1 millisecond and 24 hours")
		}
		cfg.timeout = d

		return nil
	})
}

// WithDoneValue sets the done channel value meaning "not moving".
func WithDoneValue(v any) Option {
	return newOptFunc("WithDoneValue", func(cfg *Config) error {
		if v == nil {
			return errors.New("done value is nil")
		}
		cfg.doneValue = v

		return nil
	})
}

// WithActuateValue sets the value written to the actuate channel.
func WithActuateValue(v any) Option {
	return newOptFunc("WithActuateValue", func(cfg *Config) error {
		if v == nil {
			return errors.New("actuate value is nil")
		}
		cfg.actuateValue = v

		return nil
	})
}

// WithStopValue sets the value written to the stop channel.
func WithStopValue(v any) Option {
	return newOptFunc("WithStopValue", func(cfg *Config) error {
		if v == nil {
			return errors.New("stop value is nil")
		}
		cfg.stopValue = v

		return nil
	})
}

// WithPutCompletion selects the put completion strategy.
func WithPutCompletion() Option {
	return newOptFunc("WithPutCompletion", func(cfg *Config) error {
		cfg.putCompletion = true
		return nil
	})
}

// WithDonePredicate replaces the done value equality check with a boolean expression over
// the done channel value, available as "value", e.g. "value == 0 || value == 3".
func WithDonePredicate(expression string) Option {
	return newOptFunc("WithDonePredicate", func(cfg *Config) error {
		program, err := compileDonePredicate(expression)
		if err != nil {
			return err
		}
		cfg.donePredicate = program
		cfg.doneExpr = expression

		return nil
	})
}

// WithAlarmThreshold sets the lowest alarm severity that aborts a move, minor or major.
func WithAlarmThreshold(severity alarm.Severity) Option {
	return newOptFunc("WithAlarmThreshold", func(cfg *Config) error {
		if severity != alarm.Minor && severity != alarm.Major {
			return fmt.Errorf("invalid alarm threshold %s", severity)
		}
		cfg.alarmThreshold = severity

		return nil
	})
}

// WithLogger sets the logger. Defaults to logger.GetLogger().
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithCollector sets the telemetry collector. Defaults to telemetry.Noop().
func WithCollector(c telemetry.Collector) Option {
	return newOptFunc("WithCollector", func(cfg *Config) error {
		if c == nil {
			return errors.New("collector is nil")
		}
		cfg.collector = c

		return nil
	})
}
