package alarm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require := require.New(t)

	kind, err := Classify(0)
	require.NoError(err)
	require.NoError(kind)

	kind, err = Classify(1)
	require.NoError(err)
	require.ErrorIs(kind, ErrMinor)

	kind, err = Classify(2)
	require.NoError(err)
	require.ErrorIs(kind, ErrMajor)

	for _, sev := range []int{-1, 3, 256} {
		kind, err = Classify(sev)
		require.ErrorIs(err, ErrInvalidSeverity, "severity %d", sev)
		require.NoError(kind)
	}
}

func TestNames(t *testing.T) {
	require := require.New(t)

	require.Len(Names, 22)
	require.Equal("NO_ALARM", Name(0))
	require.Equal("HW_LIMIT_ALARM", Name(11))
	require.Equal("WRITE_ACCESS_ALARM", Name(21))
	require.Equal("UNKNOWN_ALARM", Name(22))
	require.Equal("UNKNOWN_ALARM", Name(-1))

	idx, ok := Index("hihi_alarm")
	require.True(ok)
	require.Equal(3, idx)

	_, ok = Index("BOGUS")
	require.False(ok)
}

func TestError(t *testing.T) {
	require := require.New(t)

	err := NewError(Major, "hw_limit_alarm", "hit high limit")
	require.Equal(11, err.Status)
	require.Equal("HW_LIMIT_ALARM", err.Alarm)
	require.Equal("MAJOR alarm HW_LIMIT_ALARM: hit high limit", err.Error())

	wrapped := fmt.Errorf("move failed: %w", err)
	require.ErrorIs(wrapped, ErrMajor)
	require.NotErrorIs(wrapped, ErrMinor)

	var alarmErr *Error
	require.True(errors.As(wrapped, &alarmErr))
	require.Equal(Condition{Severity: Major, Alarm: "HW_LIMIT_ALARM", Message: "hit high limit"}, alarmErr.Condition())

	minor := FromCondition(Condition{Severity: Minor, Alarm: "CUSTOM"})
	require.Equal(-1, minor.Status)
	require.ErrorIs(minor, ErrMinor)
	require.Equal("MINOR alarm CUSTOM", minor.Error())

	none := NewError(NoAlarm, "NO_ALARM", "")
	require.NotErrorIs(none, ErrMinor)
	require.NotErrorIs(none, ErrMajor)
}

func TestFromValue(t *testing.T) {
	require := require.New(t)

	cond, err := FromValue(2)
	require.NoError(err)
	require.Equal(Major, cond.Severity)
	require.Equal("UNKNOWN_ALARM", cond.Alarm)

	cond, err = FromValue(uint16(0))
	require.NoError(err)
	require.Equal(NoAlarm, cond.Severity)
	require.Equal("NO_ALARM", cond.Alarm)

	cond, err = FromValue(1.0)
	require.NoError(err)
	require.Equal(Minor, cond.Severity)

	in := Condition{Severity: Major, Alarm: "LINK_ALARM", Message: "lost link"}
	cond, err = FromValue(&in)
	require.NoError(err)
	require.Equal(in, cond)
	require.Equal("MAJOR/LINK_ALARM: lost link", cond.String())

	for _, bad := range []any{3, -1, 1.5, "major", Condition{Severity: 7}, (*Condition)(nil)} {
		_, err = FromValue(bad)
		require.ErrorIs(err, ErrInvalidSeverity, "%v", bad)
	}
}
