package types

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyValidatorSet is returned when a validator set without members
	// is hashed or verified against.
	ErrEmptyValidatorSet = errors.New("validator set is empty")
	// ErrNonUTCTime is returned for timestamps that are not in UTC. Every
	// canonical encoding is defined over UTC only.
	ErrNonUTCTime = errors.New("timestamp must be UTC")
	// ErrNilHeader is returned when a nil header is hashed.
	ErrNilHeader = errors.New("nil header")
)

// ErrInvalidInteger is returned when an integer in RPC input is not a
// canonical decimal in [0, 2^53-1].
type ErrInvalidInteger struct {
	Field string
	Value string
}

func (e ErrInvalidInteger) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid integer %q", e.Value)
	}
	return fmt.Sprintf("invalid integer %q for %s", e.Value, e.Field)
}

// ErrTotalVotingPowerOverflow is returned when the total power of a set is
// above MaxTotalVotingPower.
type ErrTotalVotingPowerOverflow struct {
	Total int64
}

func (e ErrTotalVotingPowerOverflow) Error() string {
	return fmt.Sprintf("total voting power %d exceeds maximum %d", e.Total, MaxTotalVotingPower)
}
