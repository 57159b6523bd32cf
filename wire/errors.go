package wire

import "errors"

var (
	// ErrNegativeInteger is returned when a negative value is given to an
	// encoder whose domain is the non-negative integers.
	ErrNegativeInteger = errors.New("integer must be non-negative")
	// ErrIntegerOverflow is returned for values above MaxSafeInteger.
	ErrIntegerOverflow = errors.New("integer exceeds 2^53-1")
)
