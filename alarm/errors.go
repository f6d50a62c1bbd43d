package alarm

import (
	"errors"
	"fmt"
)

var (
	// ErrMinor is the error kind of a minor alarm.
	ErrMinor = errors.New("minor alarm")

	// ErrMajor is the error kind of a major alarm.
	ErrMajor = errors.New("major alarm")

	// ErrInvalidSeverity indicates a severity code outside {0, 1, 2}.
	// It signals a malformed alarm-severity channel, not a hardware fault.
	ErrInvalidSeverity = errors.New("invalid alarm severity")
)

// Classify maps a severity code to its error kind.
//
// Severity 0 yields a nil kind, 1 yields ErrMinor and 2 yields ErrMajor.
// Any other code returns ErrInvalidSeverity.
func Classify(severity int) (kind error, err error) {
	switch severity {
	case int(NoAlarm):
		return nil, nil
	case int(Minor):
		return ErrMinor, nil
	case int(Major):
		return ErrMajor, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrInvalidSeverity, severity)
}

// Error is raised when an alarm escalates while an operation is in flight.
//
// errors.Is(err, ErrMajor) (or ErrMinor) matches according to Severity.
type Error struct {
	Severity Severity
	// Status is the alarm status code, an index into Names.
	Status int
	// Alarm is the symbolic alarm name.
	Alarm string
	Msg   string
}

// NewError builds an alarm error for severity and the alarm named alarmName.
// The status code is resolved from Names; unknown names keep status -1.
func NewError(severity Severity, alarmName string, msg string) *Error {
	status := -1
	if idx, ok := Index(alarmName); ok {
		status = idx
		alarmName = Names[idx]
	}

	return &Error{Severity: severity, Status: status, Alarm: alarmName, Msg: msg}
}

// FromCondition builds an alarm error from c.
func FromCondition(c Condition) *Error {
	return NewError(c.Severity, c.Alarm, c.Message)
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s alarm %s", e.Severity, e.Alarm)
	}

	return fmt.Sprintf("%s alarm %s: %s", e.Severity, e.Alarm, e.Msg)
}

// Is matches the severity error kind.
func (e *Error) Is(target error) bool {
	kind, err := Classify(int(e.Severity))
	if err != nil || kind == nil {
		return false
	}

	return target == kind
}

// Condition returns the alarm condition carried by e.
func (e *Error) Condition() Condition {
	return Condition{Severity: e.Severity, Alarm: e.Alarm, Message: e.Msg}
}
