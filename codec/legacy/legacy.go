// Package legacy implements the go-wire binary format of Tendermint v0.20
// and earlier chains.
//
// Structs are a sequence of field keys and values closed by 0x04.
// Fixed-width integers are big-endian. Hashes are RIPEMD160 and the header
// hash is a key/value tree over the field names.
package legacy

import (
	"fmt"
	"time"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/merkle"
	"github.com/tendermint/lightnode/crypto/secp256k1"
	"github.com/tendermint/lightnode/crypto/tmhash"
	"github.com/tendermint/lightnode/types"
	"github.com/tendermint/lightnode/wire"
)

// Registered interface prefixes of the public key types.
var (
	prefixPubKeyEd25519   = []byte{0x16, 0x24, 0xde, 0x62}
	prefixPubKeySecp256k1 = []byte{0xeb, 0x5a, 0xe9, 0x82}
)

// Codec is the legacy wire format. The zero value is not usable; use New.
type Codec struct {
	tree merkle.Tree
}

// New returns the legacy codec.
func New() Codec {
	return Codec{tree: merkle.RIPEMD160Tree()}
}

func (Codec) Name() string { return "legacy" }

// EncodeTime writes t as whole seconds (8 bytes) and nanoseconds (4 bytes).
func (Codec) EncodeTime(t time.Time) ([]byte, error) {
	return appendTime(make([]byte, 0, 15), t)
}

func appendTime(dst []byte, t time.Time) ([]byte, error) {
	if err := types.CheckTime(t); err != nil {
		return nil, err
	}
	secs := t.Unix()
	if err := wire.CheckInteger(secs); err != nil {
		return nil, fmt.Errorf("time %v: %w", t, err)
	}
	dst = wire.AppendFieldKey(dst, 1, wire.Type8Byte)
	dst = wire.AppendUint64BE(dst, uint64(secs))
	dst = wire.AppendFieldKey(dst, 2, wire.Type4Byte)
	dst = wire.AppendUint32BE(dst, uint32(t.Nanosecond()))
	return append(dst, wire.StructTerm), nil
}

// EncodeBlockID writes the block hash (omitted when empty) and the part set
// header. The empty BlockID is 1308000404.
func (Codec) EncodeBlockID(blockID types.BlockID) ([]byte, error) {
	return appendBlockID(nil, blockID), nil
}

func appendBlockID(dst []byte, blockID types.BlockID) []byte {
	if len(blockID.Hash) > 0 {
		dst = wire.AppendFieldKey(dst, 1, wire.TypeByteLength)
		dst = wire.AppendByteSlice(dst, blockID.Hash)
	}

	dst = wire.AppendFieldKey(dst, 2, wire.TypeStruct)
	dst = wire.AppendFieldKey(dst, 1, wire.TypeVarint)
	dst = wire.AppendVarint(dst, int64(blockID.PartSetHeader.Total))
	if len(blockID.PartSetHeader.Hash) > 0 {
		dst = wire.AppendFieldKey(dst, 2, wire.TypeByteLength)
		dst = wire.AppendByteSlice(dst, blockID.PartSetHeader.Hash)
	}
	dst = append(dst, wire.StructTerm)

	return append(dst, wire.StructTerm)
}

// EncodePubKey writes the registered prefix, the key length and the key. A
// nil key is the single byte 0x00.
func (Codec) EncodePubKey(pubKey crypto.PubKey) ([]byte, error) {
	return appendPubKey(nil, pubKey)
}

func appendPubKey(dst []byte, pubKey crypto.PubKey) ([]byte, error) {
	var prefix []byte
	switch pk := pubKey.(type) {
	case nil:
		return append(dst, 0x00), nil
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
	dst = append(dst, prefix...)
	return wire.AppendByteSlice(dst, pubKey.Bytes()), nil
}

// EncodeValidator writes the address, the public key and the voting power.
func (Codec) EncodeValidator(val *types.Validator) ([]byte, error) {
	if err := wire.CheckInteger(val.VotingPower); err != nil {
		return nil, fmt.Errorf("voting power of %v: %w", val.Address, err)
	}

	bz := wire.AppendFieldKey(nil, 1, wire.TypeByteLength)
	bz = wire.AppendByteSlice(bz, val.Address)
	bz = wire.AppendFieldKey(bz, 2, wire.TypeInterface)
	bz, err := appendPubKey(bz, val.PubKey)
	if err != nil {
		return nil, err
	}
	bz = wire.AppendFieldKey(bz, 3, wire.Type8Byte)
	bz = wire.AppendUint64BE(bz, uint64(val.VotingPower))
	return append(bz, wire.StructTerm), nil
}

// VoteSignBytes returns the length-prefixed canonical vote. The chain ID is
// omitted when empty.
func (Codec) VoteSignBytes(vote types.CanonicalVote) ([]byte, error) {
	if err := wire.CheckInteger(vote.Height); err != nil {
		return nil, fmt.Errorf("vote height: %w", err)
	}
	if err := wire.CheckInteger(vote.Round); err != nil {
		return nil, fmt.Errorf("vote round: %w", err)
	}

	bz := wire.AppendFieldKey(nil, 1, wire.Type8Byte)
	bz = wire.AppendUint64BE(bz, uint64(vote.Height))
	bz = wire.AppendFieldKey(bz, 2, wire.Type8Byte)
	bz = wire.AppendUint64BE(bz, uint64(vote.Round))
	bz = wire.AppendFieldKey(bz, 3, wire.TypeVarint)
	bz = wire.AppendVarint(bz, int64(vote.Type))
	bz = wire.AppendFieldKey(bz, 4, wire.TypeStruct)
	bz, err := appendTime(bz, vote.Timestamp)
	if err != nil {
		return nil, err
	}
	bz = wire.AppendFieldKey(bz, 5, wire.TypeStruct)
	bz = appendBlockID(bz, vote.BlockID)
	if vote.ChainID != "" {
		bz = wire.AppendFieldKey(bz, 6, wire.TypeByteLength)
		bz = wire.AppendString(bz, vote.ChainID)
	}
	bz = append(bz, wire.StructTerm)

	return wire.EncodeByteSlice(bz), nil
}

// HeaderHash returns the root of the key/value tree over the named header
// fields, sorted by name.
func (cdc Codec) HeaderHash(h *types.Header) ([]byte, error) {
	if h == nil {
		return nil, types.ErrNilHeader
	}

	height, err := wire.EncodeSizedVarint(h.Height)
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	numTxs, err := wire.EncodeSizedVarint(h.NumTxs)
	if err != nil {
		return nil, fmt.Errorf("num txs: %w", err)
	}
	totalTxs, err := wire.EncodeSizedVarint(h.TotalTxs)
	if err != nil {
		return nil, fmt.Errorf("total txs: %w", err)
	}
	ts, err := cdc.EncodeTime(h.Time)
	if err != nil {
		return nil, err
	}

	pairs := []merkle.KVPair{
		{Key: "ChainID", Value: wire.EncodeString(h.ChainID)},
		{Key: "Height", Value: height},
		{Key: "Time", Value: ts},
		{Key: "NumTxs", Value: numTxs},
		{Key: "TotalTxs", Value: totalTxs},
		{Key: "LastBlockID", Value: appendBlockID(nil, h.LastBlockID)},
		{Key: "LastCommit", Value: wire.EncodeByteSlice(h.LastCommitHash)},
		{Key: "Data", Value: wire.EncodeByteSlice(h.DataHash)},
		{Key: "Validators", Value: wire.EncodeByteSlice(h.ValidatorsHash)},
		{Key: "NextValidators", Value: wire.EncodeByteSlice(h.NextValidatorsHash)},
		{Key: "App", Value: wire.EncodeByteSlice(h.AppHash)},
		{Key: "Consensus", Value: wire.EncodeByteSlice(h.ConsensusHash)},
		{Key: "Results", Value: wire.EncodeByteSlice(h.LastResultsHash)},
		{Key: "Evidence", Value: wire.EncodeByteSlice(h.EvidenceHash)},
	}
	return cdc.tree.HashFromKVPairs(pairs, merkle.KeyOrderByName), nil
}

// ValidatorSetHash hashes the validators ordered by address.
func (cdc Codec) ValidatorSetHash(vals *types.ValidatorSet) ([]byte, error) {
	if vals.IsNilOrEmpty() {
		return nil, types.ErrEmptyValidatorSet
	}
	sorted := vals.Sorted(types.ByAddress)
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

// Address is the RIPEMD160 of the encoded public key.
func (cdc Codec) Address(pubKey crypto.PubKey) (crypto.Address, error) {
	if pubKey == nil {
		return nil, crypto.ErrUnknownKeyType{Type: "nil"}
	}
	bz, err := cdc.EncodePubKey(pubKey)
	if err != nil {
		return nil, err
	}
	return crypto.Address(tmhash.SumRipemd160(bz)), nil
}
