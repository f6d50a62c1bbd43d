// Package alarm classifies hardware alarm severities reported by an alarm-severity channel.
//
// EPICS style records report a severity (none, minor, major) together with an alarm status,
// one of the names in Names. A Condition bundles both with a human-readable message, and
// Classify maps a severity code to the error kind a positioner uses to fail a move.
package alarm

import (
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/go-motion/internal/util"
)

// Severity is the tiered classification of a hardware fault.
type Severity uint8

const (
	// NoAlarm means the record is healthy.
	NoAlarm Severity = iota
	// Minor is a warning level fault.
	Minor
	// Major is a fault that invalidates in-flight motion.
	Major
)

// String returns the EPICS severity name.
func (s Severity) String() string {
	switch s {
	case NoAlarm:
		return "NO_ALARM"
	case Minor:
		return "MINOR"
	case Major:
		return "MAJOR"
	default:
		return fmt.Sprintf("SEVERITY(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool { return s <= Major }

// Names lists the EPICS alarm status names, indexed by status code.
var Names = [...]string{
	"NO_ALARM",
	"READ_ALARM",
	"WRITE_ALARM",
	"HIHI_ALARM",
	"HIGH_ALARM",
	"LOLO_ALARM",
	"LOW_ALARM",
	"STATE_ALARM",
	"COS_ALARM",
	"COMM_ALARM",
	"TIMEOUT_ALARM",
	"HW_LIMIT_ALARM",
	"CALC_ALARM",
	"SCAN_ALARM",
	"LINK_ALARM",
	"SOFT_ALARM",
	"BAD_SUB_ALARM",
	"UDF_ALARM",
	"DISABLE_ALARM",
	"SIMM_ALARM",
	"READ_ACCESS_ALARM",
	"WRITE_ACCESS_ALARM",
}

// Name returns the alarm status name for idx, or "UNKNOWN_ALARM" when idx is out of range.
func Name(idx int) string {
	if idx < 0 || idx >= len(Names) {
		return "UNKNOWN_ALARM"
	}

	return Names[idx]
}

// Index returns the status code of the alarm called name. Matching ignores case.
func Index(name string) (int, bool) {
	for i, n := range Names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}

	return 0, false
}

// Condition is one alarm report: severity, symbolic alarm name and message.
type Condition struct {
	Severity Severity
	Alarm    string
	Message  string
}

// String implements fmt.Stringer.
func (c Condition) String() string {
	if c.Message == "" {
		return fmt.Sprintf("%s/%s", c.Severity, c.Alarm)
	}

	return fmt.Sprintf("%s/%s: %s", c.Severity, c.Alarm, c.Message)
}

// FromValue decodes a value delivered by an alarm-severity channel.
//
// Accepted values are a Condition (or *Condition), or any numeric severity code. Numeric codes
// produce a Condition whose alarm name is "NO_ALARM" for severity zero and "UNKNOWN_ALARM"
// otherwise, since a bare severity carries no status.
func FromValue(v any) (Condition, error) {
	switch c := v.(type) {
	case Condition:
		if !c.Severity.Valid() {
			return Condition{}, fmt.Errorf("%w: %d", ErrInvalidSeverity, c.Severity)
		}
		return c, nil
	case *Condition:
		if c == nil {
			return Condition{}, fmt.Errorf("%w: nil condition", ErrInvalidSeverity)
		}
		return FromValue(*c)
	}

	f, ok := util.ToFloat64(v)
	if !ok || f != math.Trunc(f) || f < 0 || f > float64(Major) {
		return Condition{}, fmt.Errorf("%w: %v", ErrInvalidSeverity, v)
	}

	sev := Severity(f)
	cond := Condition{Severity: sev, Alarm: Names[0]}
	if sev != NoAlarm {
		cond.Alarm = "UNKNOWN_ALARM"
	}

	return cond, nil
}
