package light

import (
	"bytes"
	"fmt"

	"github.com/tendermint/lightnode/codec"
	tmmath "github.com/tendermint/lightnode/libs/math"
	"github.com/tendermint/lightnode/types"
)

// VerifyCommit checks that commit is a commit for header and that at least
// one validator of vals signed it, then verifies the signatures with
// VerifyCommitSigs.
//
// It fails if the header does not hash to the committed block, or if a
// validator address appears in more than one non-absent signature.
func VerifyCommit(
	cdc codec.Codec,
	chainID string,
	vals *types.ValidatorSet,
	header *types.Header,
	commit *types.Commit) error {

	if vals.IsNilOrEmpty() {
		return types.ErrEmptyValidatorSet
	}
	if header == nil || commit == nil {
		return ErrInvalidHeader{fmt.Errorf("missing header or commit")}
	}

	hash, err := cdc.HeaderHash(header)
	if err != nil {
		return ErrInvalidHeader{fmt.Errorf("can't hash header: %w", err)}
	}
	if !bytes.Equal(hash, commit.BlockID.Hash) {
		return ErrHeaderHashMismatch{HeaderHash: hash, CommitHash: commit.BlockID.Hash}
	}

	members := indexByAddress(vals)
	seen := make(map[string]struct{}, len(commit.Signatures))
	known := false
	for _, sig := range commit.Signatures {
		if sig.Absent() {
			continue
		}
		addr := string(sig.ValidatorAddress)
		if _, ok := seen[addr]; ok {
			return ErrDuplicateSignature{Address: sig.ValidatorAddress}
		}
		seen[addr] = struct{}{}
		if _, ok := members[addr]; ok {
			known = true
		}
	}
	if !known {
		return ErrNoKnownSigners
	}

	return VerifyCommitSigs(cdc, chainID, vals, commit)
}

// VerifyCommitSigs checks that validators holding at least 2/3 of the voting
// power of vals signed commit for its block.
//
// Signatures from addresses outside vals are skipped, which lets a commit
// be checked against an older set. Absent signatures are skipped. A nil
// vote is verified against the empty BlockID but its power is not counted.
// Any invalid signature is fatal. When the signatures verify but do not add
// up, ErrNotEnoughVotingPower is returned.
func VerifyCommitSigs(
	cdc codec.Codec,
	chainID string,
	vals *types.ValidatorSet,
	commit *types.Commit) error {

	if vals.IsNilOrEmpty() {
		return types.ErrEmptyValidatorSet
	}
	if commit == nil {
		return ErrInvalidHeader{fmt.Errorf("missing commit")}
	}

	total, err := vals.TotalVotingPower()
	if err != nil {
		return err
	}
	needed, err := tmmath.TwoThirds.CeilOf(total)
	if err != nil {
		return err
	}

	members := indexByAddress(vals)
	counted := make(map[string]struct{}, len(commit.Signatures))
	var tallied int64
	for idx, sig := range commit.Signatures {
		switch sig.BlockIDFlag {
		case types.BlockIDFlagAbsent, types.BlockIDFlagCommit, types.BlockIDFlagNil:
		default:
			return ErrUnknownBlockIDFlag{Index: idx, Flag: byte(sig.BlockIDFlag)}
		}
		if sig.Absent() {
			continue
		}

		val, ok := members[string(sig.ValidatorAddress)]
		if !ok {
			continue
		}
		if _, ok := counted[string(sig.ValidatorAddress)]; ok {
			return ErrDuplicateSignature{Address: sig.ValidatorAddress}
		}
		counted[string(sig.ValidatorAddress)] = struct{}{}

		signBytes, err := cdc.VoteSignBytes(commit.CanonicalVote(chainID, sig))
		if err != nil {
			return fmt.Errorf("can't encode vote #%d: %w", idx, err)
		}
		if val.PubKey == nil || !val.PubKey.VerifySignature(signBytes, sig.Signature) {
			return ErrInvalidSignature{Index: idx, Address: sig.ValidatorAddress}
		}

		if sig.ForBlock() {
			tallied += val.VotingPower
		}
	}

	if tallied < needed {
		return ErrNotEnoughVotingPower{Got: tallied, Needed: needed}
	}
	return nil
}

func indexByAddress(vals *types.ValidatorSet) map[string]*types.Validator {
	m := make(map[string]*types.Validator, len(vals.Validators))
	for _, val := range vals.Validators {
		m[string(val.Address)] = val
	}
	return m
}
