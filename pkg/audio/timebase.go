// ABOUTME: Rational timebase used to express presentation timestamps
// ABOUTME: Supports parsing, scale factors and timestamp rescaling
package audio

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// NoPTS marks a frame without a presentation timestamp
const NoPTS int64 = math.MinInt64

// Timebase is a rational number of seconds per timestamp unit
type Timebase struct {
	Num int
	Den int
}

// NewTimebase creates a timebase of num/den seconds per unit
func NewTimebase(num, den int) Timebase {
	return Timebase{Num: num, Den: den}
}

// TimebaseForRate returns 1/rate, the natural timebase of a sample stream
func TimebaseForRate(rate int) Timebase {
	return Timebase{Num: 1, Den: rate}
}

// ParseTimebase parses "num/den" (or a bare integer meaning num/1)
func ParseTimebase(s string) (Timebase, error) {
	numStr, denStr, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		denStr = "1"
	}

	num, err := strconv.Atoi(strings.TrimSpace(numStr))
	if err != nil {
		return Timebase{}, fmt.Errorf("%w: %q", ErrInvalidTimebase, s)
	}
	den, err := strconv.Atoi(strings.TrimSpace(denStr))
	if err != nil {
		return Timebase{}, fmt.Errorf("%w: %q", ErrInvalidTimebase, s)
	}

	return Timebase{Num: num, Den: den}, nil
}

// Valid reports whether both terms are positive
func (tb Timebase) Valid() bool {
	return tb.Num > 0 && tb.Den > 0
}

// String returns the "num/den" expression
func (tb Timebase) String() string {
	return fmt.Sprintf("%d/%d", tb.Num, tb.Den)
}

// Float64 returns the timebase in seconds per unit
func (tb Timebase) Float64() float64 {
	return float64(tb.Num) / float64(tb.Den)
}

// Scale returns tb divided by to as a float. The result is NaN or infinite
// when the two timebases cannot be compared.
func (tb Timebase) Scale(to Timebase) float64 {
	return (float64(tb.Num) * float64(to.Den)) / (float64(tb.Den) * float64(to.Num))
}

// Rescale converts ts from tb units to `to` units, rounding to nearest
// with halfway cases away from zero. NoPTS and invalid timebases pass
// ts through unchanged.
func (tb Timebase) Rescale(ts int64, to Timebase) int64 {
	if ts == NoPTS || !tb.Valid() || !to.Valid() {
		return ts
	}
	if tb == to {
		return ts
	}

	num := new(big.Int).Mul(big.NewInt(ts), big.NewInt(int64(tb.Num)*int64(to.Den)))
	den := big.NewInt(int64(tb.Den) * int64(to.Num))

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	twice := new(big.Int).Abs(r)
	twice.Lsh(twice, 1)
	if twice.Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}

	return q.Int64()
}
