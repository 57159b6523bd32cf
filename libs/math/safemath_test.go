package math_test

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmmath "github.com/tendermint/lightnode/libs/math"
)

func TestSafeAddInt64(t *testing.T) {
	f := func(a, b int64) bool {
		c, err := tmmath.SafeAddInt64(a, b)
		return err != nil || c == a+b
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}

	_, err := tmmath.SafeAddInt64(math.MaxInt64, 1)
	assert.ErrorIs(t, err, tmmath.ErrOverflowInt64)
	_, err = tmmath.SafeAddInt64(math.MinInt64, -1)
	assert.ErrorIs(t, err, tmmath.ErrOverflowInt64)
}

func TestSafeMulInt64(t *testing.T) {
	c, err := tmmath.SafeMulInt64(1<<30, 1<<30)
	require.NoError(t, err)
	assert.EqualValues(t, int64(1)<<60, c)

	_, err = tmmath.SafeMulInt64(1<<32, 1<<32)
	assert.ErrorIs(t, err, tmmath.ErrOverflowInt64)
}

func TestSafeConvertUint32(t *testing.T) {
	v, err := tmmath.SafeConvertUint32(math.MaxUint32)
	require.NoError(t, err)
	assert.EqualValues(t, uint32(math.MaxUint32), v)

	_, err = tmmath.SafeConvertUint32(-1)
	assert.ErrorIs(t, err, tmmath.ErrOverflowUint32)
	_, err = tmmath.SafeConvertUint32(math.MaxUint32 + 1)
	assert.ErrorIs(t, err, tmmath.ErrOverflowUint32)
}

func TestFractionCeilOf(t *testing.T) {
	testCases := []struct {
		total  int64
		expect int64
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{30, 20},
		{31, 21},
		{100, 67},
	}

	for _, tc := range testCases {
		got, err := tmmath.TwoThirds.CeilOf(tc.total)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, got, "total %d", tc.total)
	}

	_, err := tmmath.Fraction{Numerator: 1, Denominator: 0}.CeilOf(1)
	assert.Error(t, err)
}
