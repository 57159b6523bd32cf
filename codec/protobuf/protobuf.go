// Package protobuf implements the protobuf encoding of Tendermint v0.34 and
// later.
//
// Header fields are hashed through the gogoproto well known wrapper types,
// as the chain does, and sign bytes are the delimited CanonicalVote
// message.
package protobuf

import (
	"fmt"
	"time"

	"github.com/gogo/protobuf/proto"
	gogotypes "github.com/gogo/protobuf/types"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/merkle"
	"github.com/tendermint/lightnode/crypto/secp256k1"
	"github.com/tendermint/lightnode/types"
	"github.com/tendermint/lightnode/wire"
)

// Codec is the protobuf wire format. The zero value is not usable; use New.
type Codec struct {
	tree merkle.Tree
}

// New returns the protobuf codec.
func New() Codec {
	return Codec{tree: merkle.SHA256Tree()}
}

func (Codec) Name() string { return "proto" }

// EncodeTime returns the google.protobuf.Timestamp message of t.
func (Codec) EncodeTime(t time.Time) ([]byte, error) {
	if err := types.CheckTime(t); err != nil {
		return nil, err
	}
	bz, err := gogotypes.StdTimeMarshal(t)
	if err != nil {
		return nil, fmt.Errorf("time %v: %w", t, err)
	}
	return bz, nil
}

// EncodeBlockID returns the BlockID message. The part set header is not
// nullable, so the empty BlockID is 1200.
func (Codec) EncodeBlockID(blockID types.BlockID) ([]byte, error) {
	psh := proto.NewBuffer(nil)
	if total := blockID.PartSetHeader.Total; total != 0 {
		if err := encodeUint(psh, 1, uint64(total)); err != nil {
			return nil, err
		}
	}
	if err := encodeBytes(psh, 2, blockID.PartSetHeader.Hash); err != nil {
		return nil, err
	}

	buf := proto.NewBuffer(nil)
	if err := encodeBytes(buf, 1, blockID.Hash); err != nil {
		return nil, err
	}
	if err := encodeMessage(buf, 2, psh.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeCanonicalBlockID returns the CanonicalBlockID message, or nil for
// the empty BlockID which is left out of sign bytes.
func encodeCanonicalBlockID(blockID types.BlockID) ([]byte, error) {
	if blockID.IsZero() {
		return nil, nil
	}

	psh := proto.NewBuffer(nil)
	if total := blockID.PartSetHeader.Total; total != 0 {
		if err := encodeUint(psh, 1, uint64(total)); err != nil {
			return nil, err
		}
	}
	if err := encodeBytes(psh, 2, blockID.PartSetHeader.Hash); err != nil {
		return nil, err
	}

	buf := proto.NewBuffer(nil)
	if err := encodeBytes(buf, 1, blockID.Hash); err != nil {
		return nil, err
	}
	if err := encodeMessage(buf, 2, psh.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePubKey returns the tendermint.crypto.PublicKey message of pubKey,
// a oneof of the supported key types. A nil key encodes to nothing.
func (Codec) EncodePubKey(pubKey crypto.PubKey) ([]byte, error) {
	var field int
	switch pk := pubKey.(type) {
	case nil:
		return nil, nil
	case ed25519.PubKey:
		if len(pk) != ed25519.PubKeySize {
			return nil, crypto.ErrInvalidKeySize{Type: ed25519.KeyType, Got: len(pk), Expected: ed25519.PubKeySize}
		}
		field = 1
	case secp256k1.PubKey:
		if len(pk) != secp256k1.PubKeySize {
			return nil, crypto.ErrInvalidKeySize{Type: secp256k1.KeyType, Got: len(pk), Expected: secp256k1.PubKeySize}
		}
		field = 2
	default:
		return nil, crypto.ErrUnknownKeyType{Type: pubKey.Type()}
	}

	buf := proto.NewBuffer(nil)
	if err := encodeMessage(buf, field, pubKey.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeValidator returns the SimpleValidator message of val.
func (cdc Codec) EncodeValidator(val *types.Validator) ([]byte, error) {
	if err := wire.CheckInteger(val.VotingPower); err != nil {
		return nil, fmt.Errorf("voting power of %v: %w", val.Address, err)
	}
	pk, err := cdc.EncodePubKey(val.PubKey)
	if err != nil {
		return nil, err
	}

	buf := proto.NewBuffer(nil)
	if val.PubKey != nil {
		if err := encodeMessage(buf, 1, pk); err != nil {
			return nil, err
		}
	}
	if val.VotingPower != 0 {
		if err := encodeUint(buf, 2, uint64(val.VotingPower)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// VoteSignBytes returns the delimited CanonicalVote message. Height and
// round are sfixed64; the timestamp is always present.
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
	blockID, err := encodeCanonicalBlockID(vote.BlockID)
	if err != nil {
		return nil, err
	}

	buf := proto.NewBuffer(nil)
	if vote.Type != 0 {
		if err := encodeUint(buf, 1, uint64(vote.Type)); err != nil {
			return nil, err
		}
	}
	if vote.Height != 0 {
		if err := encodeFixed64(buf, 2, uint64(vote.Height)); err != nil {
			return nil, err
		}
	}
	if vote.Round != 0 {
		if err := encodeFixed64(buf, 3, uint64(vote.Round)); err != nil {
			return nil, err
		}
	}
	if blockID != nil {
		if err := encodeMessage(buf, 4, blockID); err != nil {
			return nil, err
		}
	}
	if err := encodeMessage(buf, 5, ts); err != nil {
		return nil, err
	}
	if vote.ChainID != "" {
		if err := encodeMessage(buf, 6, []byte(vote.ChainID)); err != nil {
			return nil, err
		}
	}

	return append(proto.EncodeVarint(uint64(len(buf.Bytes()))), buf.Bytes()...), nil
}

// HeaderHash returns the root of the tree over the 14 header fields, in
// declaration order.
func (cdc Codec) HeaderHash(h *types.Header) ([]byte, error) {
	if h == nil {
		return nil, types.ErrNilHeader
	}
	if err := wire.CheckInteger(h.Height); err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}

	version := proto.NewBuffer(nil)
	if h.Version.Block != 0 {
		if err := encodeUint(version, 1, h.Version.Block); err != nil {
			return nil, err
		}
	}
	if h.Version.App != 0 {
		if err := encodeUint(version, 2, h.Version.App); err != nil {
			return nil, err
		}
	}
	ts, err := cdc.EncodeTime(h.Time)
	if err != nil {
		return nil, err
	}
	lastBlockID, err := cdc.EncodeBlockID(h.LastBlockID)
	if err != nil {
		return nil, err
	}

	fields := [][]byte{version.Bytes()}
	for _, item := range []interface{}{h.ChainID, h.Height} {
		bz, err := cdcEncode(item)
		if err != nil {
			return nil, err
		}
		fields = append(fields, bz)
	}
	fields = append(fields, ts, lastBlockID)
	for _, hash := range [][]byte{
		h.LastCommitHash,
		h.DataHash,
		h.ValidatorsHash,
		h.NextValidatorsHash,
		h.ConsensusHash,
		h.AppHash,
		h.LastResultsHash,
		h.EvidenceHash,
		h.ProposerAddress,
	} {
		bz, err := cdcEncode(hash)
		if err != nil {
			return nil, err
		}
		fields = append(fields, bz)
	}

	return cdc.tree.HashFromByteSlices(fields), nil
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

// Address is the key's own address.
func (cdc Codec) Address(pubKey crypto.PubKey) (crypto.Address, error) {
	if pubKey == nil {
		return nil, crypto.ErrUnknownKeyType{Type: "nil"}
	}
	if _, err := cdc.EncodePubKey(pubKey); err != nil {
		return nil, err
	}
	return pubKey.Address(), nil
}

// cdcEncode wraps a header field in its well known type. Empty strings and
// byte slices encode to nil.
func cdcEncode(item interface{}) ([]byte, error) {
	switch item := item.(type) {
	case string:
		if item == "" {
			return nil, nil
		}
		i := gogotypes.StringValue{Value: item}
		return i.Marshal()
	case int64:
		i := gogotypes.Int64Value{Value: item}
		return i.Marshal()
	case []byte:
		if len(item) == 0 {
			return nil, nil
		}
		i := gogotypes.BytesValue{Value: item}
		return i.Marshal()
	default:
		return nil, fmt.Errorf("cannot encode %T", item)
	}
}

func encodeUint(buf *proto.Buffer, field int, x uint64) error {
	if err := buf.EncodeVarint(uint64(field)<<3 | proto.WireVarint); err != nil {
		return err
	}
	return buf.EncodeVarint(x)
}

func encodeFixed64(buf *proto.Buffer, field int, x uint64) error {
	if err := buf.EncodeVarint(uint64(field)<<3 | proto.WireFixed64); err != nil {
		return err
	}
	return buf.EncodeFixed64(x)
}

// encodeBytes writes a bytes field, skipping it when empty.
func encodeBytes(buf *proto.Buffer, field int, bz []byte) error {
	if len(bz) == 0 {
		return nil
	}
	return encodeMessage(buf, field, bz)
}

// encodeMessage writes a length-delimited field, even when bz is empty.
func encodeMessage(buf *proto.Buffer, field int, bz []byte) error {
	if err := buf.EncodeVarint(uint64(field)<<3 | proto.WireBytes); err != nil {
		return err
	}
	return buf.EncodeRawBytes(bz)
}
