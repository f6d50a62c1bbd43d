package positioner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-motion/alarm"
	"github.com/arloliu/go-motion/logger"
	"github.com/arloliu/go-motion/telemetry"
)

func TestNewConfig_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig()
	require.NoError(err)
	require.Equal(0.001, cfg.Tolerance())
	require.Zero(cfg.SettleTime())
	require.Equal(30*time.Second, cfg.Timeout())
	require.Equal(1, cfg.DoneValue())
	require.False(cfg.PutCompletion())
	require.Empty(cfg.DoneExpr())
	require.Equal(alarm.Major, cfg.alarmThreshold)
	require.NotNil(cfg.logger)
	require.NotNil(cfg.collector)
}

func TestNewConfig_Options(t *testing.T) {
	require := require.New(t)

	l := logger.NewNopMockLogger()
	cfg, err := NewConfig(
		WithTolerance(0.05),
		WithSettleTime(100*time.Millisecond),
		WithTimeout(2*time.Second),
		WithDoneValue(0),
		WithActuateValue("Go"),
		WithStopValue(true),
		WithPutCompletion(),
		WithDonePredicate("value == 0 || value == 3"),
		WithAlarmThreshold(alarm.Minor),
		WithLogger(l),
		WithCollector(telemetry.Noop()),
	)
	require.NoError(err)
	require.Equal(0.05, cfg.Tolerance())
	require.Equal(100*time.Millisecond, cfg.SettleTime())
	require.Equal(2*time.Second, cfg.Timeout())
	require.Equal(0, cfg.DoneValue())
	require.Equal("Go", cfg.actuateValue)
	require.Equal(true, cfg.stopValue)
	require.True(cfg.PutCompletion())
	require.Equal("value == 0 || value == 3", cfg.DoneExpr())
	require.Equal(alarm.Minor, cfg.alarmThreshold)
	require.Same(l, cfg.logger)
}

func TestNewConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		opt    Option
		errMsg string
	}{
		{name: "negative tolerance", opt: WithTolerance(-1), errMsg: "WithTolerance"},
		{name: "settle too long", opt: WithSettleTime(2 * time.Minute), errMsg: "WithSettleTime"},
		{name: "timeout too short", opt: WithTimeout(0), errMsg: "WithTimeout"},
		{name: "timeout too long", opt: WithTimeout(25 * time.Hour), errMsg: "WithTimeout"},
		{name: "nil done value", opt: WithDoneValue(nil), errMsg: "WithDoneValue"},
		{name: "empty predicate", opt: WithDonePredicate("  "), errMsg: "WithDonePredicate"},
		{name: "bad predicate", opt: WithDonePredicate("value =="), errMsg: "compile done predicate"},
		{name: "no-alarm threshold", opt: WithAlarmThreshold(alarm.NoAlarm), errMsg: "WithAlarmThreshold"},
		{name: "nil logger", opt: WithLogger(nil), errMsg: "WithLogger"},
		{name: "nil collector", opt: WithCollector(nil), errMsg: "WithCollector"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsDone(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig(WithDoneValue(0))
	require.NoError(err)

	done, err := cfg.isDone(int16(0))
	require.NoError(err)
	require.True(done)
	done, err = cfg.isDone(1)
	require.NoError(err)
	require.False(done)

	cfg, err = NewConfig(WithDonePredicate("value == 0 || value == 3"))
	require.NoError(err)

	for v, want := range map[any]bool{0: true, int32(3): true, 3.0: true, 2: false, uint8(1): false} {
		done, err := cfg.isDone(v)
		require.NoError(err)
		require.Equal(want, done, "value %v", v)
	}

	cfg, err = NewConfig(WithDonePredicate(`value == "Done"`))
	require.NoError(err)
	done, err = cfg.isDone("Done")
	require.NoError(err)
	require.True(done)
	done, err = cfg.isDone("Moving")
	require.NoError(err)
	require.False(done)
}
