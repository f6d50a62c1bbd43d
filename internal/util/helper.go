// Package util holds small conversion helpers shared by go-motion packages.
package util

import (
	"math"
	"reflect"
	"strconv"
)

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// ToFloat64 converts a channel value into float64.
//
// Supported types:
//   - Floating-point numbers: float32, float64
//   - Signed integers: int, int8, int16, int32, int64
//   - Unsigned integers: uint, uint8, uint16, uint32, uint64
//   - bool (true is 1)
//   - numeric strings
//
// The boolean result is false for unsupported types, unparsable strings and NaN.
func ToFloat64(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) {
		return 0, false
	}

	return f, true
}

// ValuesEqual reports whether two channel values are equal, comparing numerically when both
// convert to float64 and falling back to reflect.DeepEqual otherwise.
func ValuesEqual(a, b any) bool {
	fa, okA := ToFloat64(a)
	fb, okB := ToFloat64(b)
	if okA && okB {
		return fa == fb
	}

	return reflect.DeepEqual(a, b)
}
