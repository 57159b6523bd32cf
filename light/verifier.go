package light

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tendermint/lightnode/codec"
	"github.com/tendermint/lightnode/types"
	"github.com/tendermint/lightnode/wire"
)

const (
	// DefaultMaxClockDrift is how far ahead of the local clock a header time
	// may be.
	DefaultMaxClockDrift = 4 * time.Hour
	// DefaultMaxAge is how old the trusted header may be. It should stay
	// below the unbonding period of the chain.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// VerifyOptions parametrize Verify.
type VerifyOptions struct {
	// Now is the local time the header times are checked against.
	Now time.Time
	// MaxClockDrift bounds how far the new header time may be after Now.
	MaxClockDrift time.Duration
	// MaxAge bounds how far the trusted header time may be before Now.
	MaxAge time.Duration
	// StrictAddresses makes a validator whose address is not derived from its
	// public key an error. Turning it off is only meant for chains whose
	// address derivation differs from the codec's.
	StrictAddresses bool
}

// DefaultVerifyOptions returns the default options at time now.
func DefaultVerifyOptions(now time.Time) VerifyOptions {
	return VerifyOptions{
		Now:             now,
		MaxClockDrift:   DefaultMaxClockDrift,
		MaxAge:          DefaultMaxAge,
		StrictAddresses: true,
	}
}

// Verify checks that untrusted can be trusted given trusted. It ensures that:
//
//	a) both belong to the same chain and untrusted is higher
//	b) trusted has not expired (ErrOldHeaderExpired)
//	c) untrusted is not from the future (ErrHeaderFromFuture)
//	d) untrusted's validator set is valid and hashes to its header, if it
//	   changed
//	e) more than 2/3 of untrusted's validators signed its header
//	f) more than 2/3 of trusted's validators signed it too, unless trusted's
//	   header announced untrusted's set as the next one
//
// A failure of (f) is ErrNotEnoughVotingPower: the transition may still be
// verifiable through intermediate headers. Every other error is final.
func Verify(cdc codec.Codec, trusted, untrusted *types.LightBlock, opts VerifyOptions) error {
	if trusted == nil || trusted.SignedHeader == nil || trusted.Header == nil {
		return ErrInvalidHeader{fmt.Errorf("missing trusted header")}
	}
	if untrusted == nil || untrusted.SignedHeader == nil || untrusted.Header == nil {
		return ErrInvalidHeader{fmt.Errorf("missing new header")}
	}
	oldHeader, newHeader := trusted.Header, untrusted.Header

	if newHeader.ChainID != oldHeader.ChainID {
		return ErrChainIDMismatch{Trusted: oldHeader.ChainID, Untrusted: newHeader.ChainID}
	}
	if newHeader.Height <= oldHeader.Height {
		return ErrNonIncreasingHeight{Trusted: oldHeader.Height, Untrusted: newHeader.Height}
	}

	if err := VerifyTimeBounds(oldHeader, newHeader, opts); err != nil {
		return err
	}

	if err := untrusted.SignedHeader.ValidateBasic(oldHeader.ChainID); err != nil {
		return ErrInvalidHeader{err}
	}

	vals := trusted.ValidatorSet
	changed := !bytes.Equal(newHeader.ValidatorsHash, oldHeader.ValidatorsHash)
	if changed {
		if untrusted.ValidatorSet.IsNilOrEmpty() {
			return ErrMissingValidatorSet
		}
		if err := VerifyValidatorSet(cdc, untrusted.ValidatorSet, newHeader.ValidatorsHash,
			opts.StrictAddresses); err != nil {
			return err
		}
		vals = untrusted.ValidatorSet
	}

	if err := VerifyCommit(cdc, newHeader.ChainID, vals, newHeader, untrusted.Commit); err != nil {
		return err
	}

	// A set announced by the trusted header is already trusted. Any other set
	// must be vouched for by the trusted validators; this is how bisection
	// skips ahead.
	if changed && !bytes.Equal(oldHeader.NextValidatorsHash, newHeader.ValidatorsHash) {
		if err := VerifyCommitSigs(cdc, newHeader.ChainID, trusted.ValidatorSet, untrusted.Commit); err != nil {
			return err
		}
	}

	return nil
}

// VerifyTimeBounds checks that the trusted header has not expired and the new
// header is not from the future.
func VerifyTimeBounds(trusted, untrusted *types.Header, opts VerifyOptions) error {
	if HeaderExpired(trusted, opts.MaxAge, opts.Now) {
		return ErrOldHeaderExpired{At: trusted.Time.Add(opts.MaxAge), Now: opts.Now}
	}
	if untrusted.Time.After(opts.Now.Add(opts.MaxClockDrift)) {
		return ErrHeaderFromFuture{
			HeaderTime:    untrusted.Time,
			Now:           opts.Now,
			MaxClockDrift: opts.MaxClockDrift,
		}
	}
	return nil
}

// HeaderExpired return true if the given header expired.
func HeaderExpired(h *types.Header, maxAge time.Duration, now time.Time) bool {
	expirationTime := h.Time.Add(maxAge)
	return !expirationTime.After(now)
}

// VerifyValidatorSet checks that every validator of vals has a positive power
// that fits in 53 bits and an address derived from its public key, and that
// vals hashes to expectedHash. An empty expectedHash never matches.
//
// With strict false, the address check is skipped.
func VerifyValidatorSet(cdc codec.Codec, vals *types.ValidatorSet, expectedHash []byte, strict bool) error {
	hash, err := hashValidatorSet(cdc, vals, strict)
	if err != nil {
		return err
	}
	if len(expectedHash) == 0 || !bytes.Equal(hash, expectedHash) {
		return ErrValidatorSetHashMismatch{Expected: expectedHash, Got: hash}
	}
	return nil
}

// hashValidatorSet checks the members of vals and returns the set's hash.
func hashValidatorSet(cdc codec.Codec, vals *types.ValidatorSet, strict bool) ([]byte, error) {
	if vals.IsNilOrEmpty() {
		return nil, types.ErrEmptyValidatorSet
	}

	for _, val := range vals.Validators {
		if val == nil || val.PubKey == nil {
			return nil, fmt.Errorf("validator without a public key")
		}
		if val.VotingPower <= 0 || wire.CheckInteger(val.VotingPower) != nil {
			return nil, ErrInvalidVotingPower{Address: val.Address, Power: val.VotingPower}
		}
		if !strict {
			continue
		}
		addr, err := cdc.Address(val.PubKey)
		if err != nil {
			return nil, fmt.Errorf("validator %v: %w", val.Address, err)
		}
		if !bytes.Equal(addr, val.Address) {
			return nil, ErrValidatorAddressMismatch{Expected: addr, Got: val.Address}
		}
	}

	return cdc.ValidatorSetHash(vals)
}

// VerifyTrustedState sanity checks a light block the client is told to trust.
//
// The validator set must hash to the header. The commit is verified unless lb
// is the first block and comes without one, which is the case for a state
// derived from genesis. Only such a block may omit its ValidatorsHash; the
// returned block then has it set from the validator set. lb is never
// modified.
func VerifyTrustedState(cdc codec.Codec, lb *types.LightBlock, strict bool) (*types.LightBlock, error) {
	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return nil, ErrInvalidHeader{fmt.Errorf("missing header")}
	}
	h := lb.Header
	if h.Height <= 0 {
		return nil, ErrInvalidHeader{fmt.Errorf("non-positive height %d", h.Height)}
	}

	if h.Height > 1 || lb.Commit != nil {
		if err := VerifyValidatorSet(cdc, lb.ValidatorSet, h.ValidatorsHash, strict); err != nil {
			return nil, err
		}
		if err := VerifyCommit(cdc, h.ChainID, lb.ValidatorSet, h, lb.Commit); err != nil {
			return nil, err
		}
		return lb, nil
	}

	hash, err := hashValidatorSet(cdc, lb.ValidatorSet, strict)
	if err != nil {
		return nil, err
	}
	if len(h.ValidatorsHash) > 0 && !bytes.Equal(hash, h.ValidatorsHash) {
		return nil, ErrValidatorSetHashMismatch{Expected: h.ValidatorsHash, Got: hash}
	}
	hdr := *h
	hdr.ValidatorsHash = hash
	return &types.LightBlock{
		SignedHeader: &types.SignedHeader{Header: &hdr},
		ValidatorSet: lb.ValidatorSet,
	}, nil
}
