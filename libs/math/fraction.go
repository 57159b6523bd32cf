package math

import (
	"errors"
	"fmt"
)

// Fraction defined in terms of a numerator divided by a denominator in int64
// format.
type Fraction struct {
	// The portion of the denominator in the faction, e.g. 2 in 2/3.
	Numerator int64 `json:"numerator"`
	// The value by which the numerator is divided, e.g. 3 in 2/3. Must be
	// positive.
	Denominator int64 `json:"denominator"`
}

// TwoThirds is the BFT commit quorum.
var TwoThirds = Fraction{Numerator: 2, Denominator: 3}

func (fr Fraction) String() string {
	return fmt.Sprintf("%d/%d", fr.Numerator, fr.Denominator)
}

// CeilOf returns ceil(n * fr) for non-negative n.
func (fr Fraction) CeilOf(n int64) (int64, error) {
	if fr.Denominator <= 0 || fr.Numerator < 0 {
		return 0, fmt.Errorf("invalid fraction %v", fr)
	}
	if n < 0 {
		return 0, errors.New("negative operand")
	}
	prod, err := SafeMulInt64(n, fr.Numerator)
	if err != nil {
		return 0, err
	}
	q := prod / fr.Denominator
	if prod%fr.Denominator != 0 {
		q++
	}
	return q, nil
}
