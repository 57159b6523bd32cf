// Package codec defines the canonical encodings a light client needs to
// recompute header hashes, validator set hashes and vote sign bytes.
//
// The encoding is a property of the chain being followed: Tendermint
// changed its wire format twice (go-wire to amino in v0.20-era chains,
// amino to protobuf in v0.34). A Codec is chosen once, from configuration,
// and passed to the verifier.
package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/tendermint/lightnode/codec/amino"
	"github.com/tendermint/lightnode/codec/legacy"
	"github.com/tendermint/lightnode/codec/protobuf"
	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/types"
)

// Codec produces the bytes a chain hashes and signs.
//
// Implementations are pure: the same input always produces the same output,
// and no method retains or mutates its arguments. Every method rejects
// non-UTC times with types.ErrNonUTCTime and unknown key types with
// crypto.ErrUnknownKeyType.
type Codec interface {
	// Name is the wire format name, as accepted by ParseVersion.
	Name() string

	EncodeTime(t time.Time) ([]byte, error)
	EncodeBlockID(blockID types.BlockID) ([]byte, error)
	EncodePubKey(pubKey crypto.PubKey) ([]byte, error)
	// EncodeValidator returns the bytes of val hashed into the validator
	// set hash.
	EncodeValidator(val *types.Validator) ([]byte, error)

	// VoteSignBytes returns the bytes a validator signs for vote.
	VoteSignBytes(vote types.CanonicalVote) ([]byte, error)
	HeaderHash(h *types.Header) ([]byte, error)
	// ValidatorSetHash hashes vals in the canonical order of the format.
	// The empty set is rejected with types.ErrEmptyValidatorSet.
	ValidatorSetHash(vals *types.ValidatorSet) ([]byte, error)
	// Address derives the validator address of pubKey.
	Address(pubKey crypto.PubKey) (crypto.Address, error)
}

// Version names a wire format.
type Version string

const (
	// VersionLegacy is the go-wire format of Tendermint v0.20 and earlier.
	VersionLegacy Version = "legacy"
	// VersionAmino is the amino format of Tendermint v0.33.
	VersionAmino Version = "amino"
	// VersionProto is the protobuf format of Tendermint v0.34 and later.
	VersionProto Version = "proto"
)

// Versions lists the supported versions, oldest first.
var Versions = []Version{VersionLegacy, VersionAmino, VersionProto}

// ErrUnknownVersion is returned for a wire format name that is not one of
// Versions.
type ErrUnknownVersion struct {
	Version string
}

func (e ErrUnknownVersion) Error() string {
	return fmt.Sprintf("unknown wire format %q (expected one of %v)", e.Version, Versions)
}

// ParseVersion parses a wire format name. It is case insensitive.
func ParseVersion(s string) (Version, error) {
	v := Version(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Versions {
		if v == known {
			return v, nil
		}
	}
	return "", ErrUnknownVersion{Version: s}
}

// New returns the Codec of version v.
func New(v Version) (Codec, error) {
	switch v {
	case VersionLegacy:
		return legacy.New(), nil
	case VersionAmino:
		return amino.New(), nil
	case VersionProto:
		return protobuf.New(), nil
	default:
		return nil, ErrUnknownVersion{Version: string(v)}
	}
}

// MustNew is New, panicking on an unknown version.
func MustNew(v Version) Codec {
	cdc, err := New(v)
	if err != nil {
		panic(err)
	}
	return cdc
}
