package light

import (
	"errors"
	"fmt"
	"time"

	tmbytes "github.com/tendermint/lightnode/libs/bytes"
)

var (
	// ErrNoKnownSigners means none of the signatures of a commit is from a
	// member of the validator set it was checked against.
	ErrNoKnownSigners = errors.New("no recognized validators have signatures")
	// ErrMissingValidatorSet means the validator set changed but the new set
	// was not supplied.
	ErrMissingValidatorSet = errors.New("validator set changed but the new set is missing")
	// ErrClientFailed is returned by a client that stopped on a fatal error.
	ErrClientFailed = errors.New("light client failed")
	// ErrClientClosed is returned by a client after Stop.
	ErrClientClosed = errors.New("light client is closed")
	// ErrSubscriptionClosed means the provider ended the header subscription
	// while the client was running.
	ErrSubscriptionClosed = errors.New("header subscription closed by provider")
)

// ErrChainIDMismatch means the untrusted header belongs to another chain.
type ErrChainIDMismatch struct {
	Trusted   string
	Untrusted string
}

func (e ErrChainIDMismatch) Error() string {
	return fmt.Sprintf("chain IDs do not match: trusted %q, new %q", e.Trusted, e.Untrusted)
}

// ErrNonIncreasingHeight means the untrusted header is not above the trusted
// one.
type ErrNonIncreasingHeight struct {
	Trusted   int64
	Untrusted int64
}

func (e ErrNonIncreasingHeight) Error() string {
	return fmt.Sprintf("new height %d must be higher than trusted height %d", e.Untrusted, e.Trusted)
}

// ErrOldHeaderExpired means the old (trusted) header has expired according to
// the given maximum age and current time. If so, the light client must be
// reset subjectively.
type ErrOldHeaderExpired struct {
	At  time.Time
	Now time.Time
}

func (e ErrOldHeaderExpired) Error() string {
	return fmt.Sprintf("old header has expired at %v (now: %v)", e.At, e.Now)
}

// ErrHeaderFromFuture means the new header's time is further ahead of the
// local clock than the allowed drift.
type ErrHeaderFromFuture struct {
	HeaderTime    time.Time
	Now           time.Time
	MaxClockDrift time.Duration
}

func (e ErrHeaderFromFuture) Error() string {
	return fmt.Sprintf("new header has a time from the future %v (now: %v; max clock drift: %v)",
		e.HeaderTime, e.Now, e.MaxClockDrift)
}

// ErrInvalidHeader means the header failed the basic validation.
type ErrInvalidHeader struct {
	Reason error
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrInvalidHeader) Unwrap() error {
	return e.Reason
}

// ErrHeaderHashMismatch means the commit is for a block other than the header.
type ErrHeaderHashMismatch struct {
	HeaderHash tmbytes.HexBytes
	CommitHash tmbytes.HexBytes
}

func (e ErrHeaderHashMismatch) Error() string {
	return fmt.Sprintf("commit is for block %v, header hash is %v", e.CommitHash, e.HeaderHash)
}

// ErrDuplicateSignature means a validator signed the commit more than once.
type ErrDuplicateSignature struct {
	Address tmbytes.HexBytes
}

func (e ErrDuplicateSignature) Error() string {
	return fmt.Sprintf("validator %v has multiple signatures", e.Address)
}

// ErrUnknownBlockIDFlag means a commit signature has a flag other than
// absent, commit or nil.
type ErrUnknownBlockIDFlag struct {
	Index int
	Flag  byte
}

func (e ErrUnknownBlockIDFlag) Error() string {
	return fmt.Sprintf("unknown block_id_flag %d in signature #%d", e.Flag, e.Index)
}

// ErrInvalidSignature means a known validator's signature does not verify.
type ErrInvalidSignature struct {
	Index   int
	Address tmbytes.HexBytes
}

func (e ErrInvalidSignature) Error() string {
	return fmt.Sprintf("invalid signature #%d from validator %v", e.Index, e.Address)
}

// ErrNotEnoughVotingPower means less than 2/3 of the voting power of the set
// signed the commit.
//
// This is the only verification error the client recovers from: it bisects
// towards a header the trusted set can still vouch for.
type ErrNotEnoughVotingPower struct {
	Got    int64
	Needed int64
}

func (e ErrNotEnoughVotingPower) Error() string {
	return fmt.Sprintf("not enough committed voting power: got %d, needed %d", e.Got, e.Needed)
}

// ErrValidatorAddressMismatch means a validator's address is not the one
// derived from its public key.
type ErrValidatorAddressMismatch struct {
	Expected tmbytes.HexBytes
	Got      tmbytes.HexBytes
}

func (e ErrValidatorAddressMismatch) Error() string {
	return fmt.Sprintf("validator address %v does not match pubkey (expected %v)", e.Got, e.Expected)
}

// ErrInvalidVotingPower means a validator's power is not in [1, 2^53-1].
type ErrInvalidVotingPower struct {
	Address tmbytes.HexBytes
	Power   int64
}

func (e ErrInvalidVotingPower) Error() string {
	return fmt.Sprintf("validator %v has invalid voting power %d", e.Address, e.Power)
}

// ErrValidatorSetHashMismatch means a validator set does not hash to the value
// in the header.
type ErrValidatorSetHashMismatch struct {
	Expected tmbytes.HexBytes
	Got      tmbytes.HexBytes
}

func (e ErrValidatorSetHashMismatch) Error() string {
	return fmt.Sprintf("validator set hash %v does not match what we expected (%v)", e.Got, e.Expected)
}

// ErrValidatorSetChangedTooMuch means an adjacent header could not be
// verified with the trusted validator set. Bisection cannot help, so either
// the peer sent a fake transition or the trusted state is wrong.
type ErrValidatorSetChangedTooMuch struct {
	From   int64
	To     int64
	Reason error
}

func (e ErrValidatorSetChangedTooMuch) Error() string {
	return fmt.Sprintf("could not verify transition from #%d to #%d: %v", e.From, e.To, e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrValidatorSetChangedTooMuch) Unwrap() error {
	return e.Reason
}

// ErrVerificationFailed means the transition from header #1 to header #2
// failed to verify for a reason other than missing voting power.
type ErrVerificationFailed struct {
	From   int64
	To     int64
	Reason error
}

// Unwrap returns underlying reason.
func (e ErrVerificationFailed) Unwrap() error {
	return e.Reason
}

func (e ErrVerificationFailed) Error() string {
	return fmt.Sprintf(
		"verify from #%d to #%d failed: %v",
		e.From, e.To, e.Reason)
}
