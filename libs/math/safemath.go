package math

import (
	"errors"
	"math"
)

var ErrOverflowInt64 = errors.New("int64 overflow")
var ErrOverflowUint32 = errors.New("uint32 overflow")

// SafeAddInt64 adds two non-overflowing int64 values. On overflow it returns
// ErrOverflowInt64.
func SafeAddInt64(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflowInt64
	} else if b < 0 && a < math.MinInt64-b {
		return 0, ErrOverflowInt64
	}
	return a + b, nil
}

// SafeMulInt64 multiplies two int64 values. On overflow it returns
// ErrOverflowInt64.
func SafeMulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, ErrOverflowInt64
	}
	return c, nil
}

// SafeConvertUint32 takes an int64 and checks if it overflows
// If there is an overflow it returns an error
func SafeConvertUint32(a int64) (uint32, error) {
	if a > math.MaxUint32 || a < 0 {
		return 0, ErrOverflowUint32
	}
	return uint32(a), nil
}
