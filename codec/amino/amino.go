// Package amino implements the amino binary format of Tendermint v0.33.
//
// Amino is protobuf compatible for the types a light client hashes: fields
// are tagged with proto3 keys and zero values are omitted. Public keys are
// prefixed with the 4 byte amino type prefix of their registered name.
package amino

import (
	"fmt"
	"time"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/merkle"
	"github.com/tendermint/lightnode/crypto/secp256k1"
	"github.com/tendermint/lightnode/types"
	"github.com/tendermint/lightnode/wire"
)

// Amino prefixes of tendermint/PubKeyEd25519 and tendermint/PubKeySecp256k1.
var (
	prefixPubKeyEd25519   = []byte{0x16, 0x24, 0xde, 0x64}
	prefixPubKeySecp256k1 = []byte{0xeb, 0x5a, 0xe9, 0x87}
)

// Codec is the amino wire format. The zero value is not usable; use New.
type Codec struct {
	tree merkle.Tree
}

// New returns the amino codec.
func New() Codec {
	return Codec{tree: merkle.SHA256Tree()}
}

func (Codec) Name() string { return "amino" }

// EncodeTime returns the bare google.protobuf.Timestamp form of t. The
// seconds are written as the unsigned cast of their int64 value.
func (Codec) EncodeTime(t time.Time) ([]byte, error) {
	if err := types.CheckTime(t); err != nil {
		return nil, err
	}
	var bz []byte
	if secs := t.Unix(); secs != 0 {
		bz = wire.AppendFieldKey(bz, 1, wire.TypeVarint)
		bz = wire.AppendUvarint(bz, uint64(secs))
	}
	if nanos := t.Nanosecond(); nanos != 0 {
		bz = wire.AppendFieldKey(bz, 2, wire.TypeVarint)
		bz = wire.AppendUvarint(bz, uint64(nanos))
	}
	return bz, nil
}

// EncodeBlockID returns the bare BlockID: the hash (omitted when empty) and
// the part set header, which is always present. The empty BlockID is 1200.
func (Codec) EncodeBlockID(blockID types.BlockID) ([]byte, error) {
	var bz []byte
	if len(blockID.Hash) > 0 {
		bz = wire.AppendFieldKey(bz, 1, wire.TypeByteLength)
		bz = wire.AppendByteSlice(bz, blockID.Hash)
	}

	var psh []byte
	if total := blockID.PartSetHeader.Total; total != 0 {
		psh = wire.AppendFieldKey(psh, 1, wire.TypeVarint)
		psh = wire.AppendUvarint(psh, uint64(total))
	}
	if len(blockID.PartSetHeader.Hash) > 0 {
		psh = wire.AppendFieldKey(psh, 2, wire.TypeByteLength)
		psh = wire.AppendByteSlice(psh, blockID.PartSetHeader.Hash)
	}

	bz = wire.AppendFieldKey(bz, 2, wire.TypeByteLength)
	return wire.AppendByteSlice(bz, psh), nil
}

// encodeCanonicalBlockID is the BlockID as it appears in sign bytes: the
// part set header lists its hash before its total.
func encodeCanonicalBlockID(blockID types.BlockID) []byte {
	var bz []byte
	if len(blockID.Hash) > 0 {
		bz = wire.AppendFieldKey(bz, 1, wire.TypeByteLength)
		bz = wire.AppendByteSlice(bz, blockID.Hash)
	}

	var psh []byte
	if len(blockID.PartSetHeader.Hash) > 0 {
		psh = wire.AppendFieldKey(psh, 1, wire.TypeByteLength)
		psh = wire.AppendByteSlice(psh, blockID.PartSetHeader.Hash)
	}
	if total := blockID.PartSetHeader.Total; total != 0 {
		psh = wire.AppendFieldKey(psh, 2, wire.TypeVarint)
		psh = wire.AppendUvarint(psh, uint64(total))
	}
	if len(psh) > 0 {
		bz = wire.AppendFieldKey(bz, 2, wire.TypeByteLength)
		bz = wire.AppendByteSlice(bz, psh)
	}
	return bz
}

// EncodePubKey returns the prefixed, length-prefixed key. A nil key encodes
// to nothing.
func (Codec) EncodePubKey(pubKey crypto.PubKey) ([]byte, error) {
	var prefix []byte
	switch pk := pubKey.(type) {
	case nil:
		return nil, nil
	case ed25519.PubKey:
		if len(pk) != ed25519.PubKeySize {
			return nil, crypto.ErrInvalidKeySize{Type: ed25519.KeyType, Got: len(pk), Expected: ed25519.PubKeySize}
		}
		prefix = prefixPubKeyEd25519
	case secp256k1.PubKey:
		if len(pk) != secp256k1.PubKeySize {
			return nil, crypto.ErrInvalidKeySize{Type: secp256k1.KeyType, Got: len(pk), Expected: secp256k1.PubKeySize}
		}
		prefix = prefixPubKeySecp256k1
	default:
		return nil, crypto.ErrUnknownKeyType{Type: pubKey.Type()}
	}
	bz := append([]byte{}, prefix...)
	return wire.AppendByteSlice(bz, pubKey.Bytes()), nil
}

// EncodeValidator returns the SimpleValidator form of val: its public key
// and voting power.
func (cdc Codec) EncodeValidator(val *types.Validator) ([]byte, error) {
	if err := wire.CheckInteger(val.VotingPower); err != nil {
		return nil, fmt.Errorf("voting power of %v: %w", val.Address, err)
	}
	pk, err := cdc.EncodePubKey(val.PubKey)
	if err != nil {
		return nil, err
	}

	var bz []byte
	if len(pk) > 0 {
		bz = wire.AppendFieldKey(bz, 1, wire.TypeByteLength)
		bz = wire.AppendByteSlice(bz, pk)
	}
	if val.VotingPower != 0 {
		bz = wire.AppendFieldKey(bz, 2, wire.TypeVarint)
		bz = wire.AppendUvarint(bz, uint64(val.VotingPower))
	}
	return bz, nil
}

// VoteSignBytes returns the length-prefixed CanonicalVote. Height and round
// are little-endian fixed64 values.
func (cdc Codec) VoteSignBytes(vote types.CanonicalVote) ([]byte, error) {
	if err := wire.CheckInteger(vote.Height); err != nil {
		return nil, fmt.Errorf("vote height: %w", err)
	}
	if err := wire.CheckInteger(vote.Round); err != nil {
		return nil, fmt.Errorf("vote round: %w", err)
	}
	ts, err := cdc.EncodeTime(vote.Timestamp)
	if err != nil {
		return nil, err
	}

	var bz []byte
	if vote.Type != 0 {
		bz = wire.AppendFieldKey(bz, 1, wire.TypeVarint)
		bz = wire.AppendUvarint(bz, uint64(vote.Type))
	}
	if vote.Height != 0 {
		bz = wire.AppendFieldKey(bz, 2, wire.Type8Byte)
		bz = wire.AppendUint64LE(bz, uint64(vote.Height))
	}
	if vote.Round != 0 {
		bz = wire.AppendFieldKey(bz, 3, wire.Type8Byte)
		bz = wire.AppendUint64LE(bz, uint64(vote.Round))
	}
	if blockID := encodeCanonicalBlockID(vote.BlockID); len(blockID) > 0 {
		bz = wire.AppendFieldKey(bz, 4, wire.TypeByteLength)
		bz = wire.AppendByteSlice(bz, blockID)
	}
	bz = wire.AppendFieldKey(bz, 5, wire.TypeByteLength)
	bz = wire.AppendByteSlice(bz, ts)
	if vote.ChainID != "" {
		bz = wire.AppendFieldKey(bz, 6, wire.TypeByteLength)
		bz = wire.AppendString(bz, vote.ChainID)
	}

	return wire.EncodeByteSlice(bz), nil
}

// HeaderHash returns the root of the tree over the 14 header fields, in
// declaration order. Empty strings and hashes are empty leaves.
func (cdc Codec) HeaderHash(h *types.Header) ([]byte, error) {
	if h == nil {
		return nil, types.ErrNilHeader
	}
	if err := wire.CheckInteger(h.Height); err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}

	var version []byte
	if h.Version.Block != 0 {
		version = wire.AppendFieldKey(version, 1, wire.TypeVarint)
		version = wire.AppendUvarint(version, h.Version.Block)
	}
	if h.Version.App != 0 {
		version = wire.AppendFieldKey(version, 2, wire.TypeVarint)
		version = wire.AppendUvarint(version, h.Version.App)
	}
	ts, err := cdc.EncodeTime(h.Time)
	if err != nil {
		return nil, err
	}
	lastBlockID, err := cdc.EncodeBlockID(h.LastBlockID)
	if err != nil {
		return nil, err
	}

	return cdc.tree.HashFromByteSlices([][]byte{
		version,
		encodeString(h.ChainID),
		wire.AppendUvarint(nil, uint64(h.Height)),
		ts,
		lastBlockID,
		encodeBytes(h.LastCommitHash),
		encodeBytes(h.DataHash),
		encodeBytes(h.ValidatorsHash),
		encodeBytes(h.NextValidatorsHash),
		encodeBytes(h.ConsensusHash),
		encodeBytes(h.AppHash),
		encodeBytes(h.LastResultsHash),
		encodeBytes(h.EvidenceHash),
		encodeBytes(h.ProposerAddress),
	}), nil
}

// ValidatorSetHash hashes the validators by descending voting power, ties
// broken by address.
func (cdc Codec) ValidatorSetHash(vals *types.ValidatorSet) ([]byte, error) {
	if vals.IsNilOrEmpty() {
		return nil, types.ErrEmptyValidatorSet
	}
	sorted := vals.Sorted(types.ByVotingPower)
	items := make([][]byte, len(sorted))
	for i, val := range sorted {
		bz, err := cdc.EncodeValidator(val)
		if err != nil {
			return nil, err
		}
		items[i] = bz
	}
	return cdc.tree.HashFromByteSlices(items), nil
}

// Address is the key's own address: the truncated SHA-256 of an ed25519 key
// and the Hash160 of a secp256k1 key.
func (cdc Codec) Address(pubKey crypto.PubKey) (crypto.Address, error) {
	if pubKey == nil {
		return nil, crypto.ErrUnknownKeyType{Type: "nil"}
	}
	if _, err := cdc.EncodePubKey(pubKey); err != nil {
		return nil, err
	}
	return pubKey.Address(), nil
}

// encodeString and encodeBytes return nil for empty input, like the
// cdcEncode helper of Tendermint v0.33.
func encodeString(s string) []byte {
	if s == "" {
		return nil
	}
	return wire.EncodeString(s)
}

func encodeBytes(bz []byte) []byte {
	if len(bz) == 0 {
		return nil
	}
	return wire.EncodeByteSlice(bz)
}
