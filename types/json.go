package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/encoding"
	tmbytes "github.com/tendermint/lightnode/libs/bytes"
	"github.com/tendermint/lightnode/wire"
)

// ParseInt parses a canonical non-negative decimal: digits only, no sign,
// no leading zeros, at most MaxSafeInteger.
func ParseInt(s string) (int64, error) {
	if s == "" || len(s) > 16 || (len(s) > 1 && s[0] == '0') {
		return 0, ErrInvalidInteger{Value: s}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidInteger{Value: s}
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n > wire.MaxSafeInteger {
		return 0, ErrInvalidInteger{Value: s}
	}
	return n, nil
}

// Int64 is an integer of RPC JSON. It decodes from a quoted canonical decimal
// (the Tendermint RPC form) or a bare JSON number, and is checked with
// ParseInt either way. It encodes as a quoted decimal.
type Int64 int64

func (i Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(i), 10))), nil
}

func (i *Int64) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return ErrInvalidInteger{Value: s}
		}
		s = unquoted
	}
	n, err := ParseInt(s)
	if err != nil {
		return err
	}
	*i = Int64(n)
	return nil
}

// jsonSignedInt64 is a full-range signed integer, quoted or bare. It is only
// used for values that are never hashed.
type jsonSignedInt64 int64

func (i jsonSignedInt64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(i), 10))), nil
}

func (i *jsonSignedInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ErrInvalidInteger{Value: s}
	}
	*i = jsonSignedInt64(n)
	return nil
}

// jsonTime is an RFC3339 timestamp which must be given in UTC with a "Z"
// suffix.
type jsonTime time.Time

func (t jsonTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

func (t *jsonTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if !strings.HasSuffix(s, "Z") {
		return fmt.Errorf("%q: %w", s, ErrNonUTCTime)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = jsonTime(parsed.UTC())
	return nil
}

//-----------------------------------------------------------------------------

type consensusJSON struct {
	Block Int64 `json:"block"`
	App   Int64 `json:"app"`
}

type headerJSON struct {
	Version            consensusJSON    `json:"version"`
	ChainID            string           `json:"chain_id"`
	Height             Int64            `json:"height"`
	Time               jsonTime         `json:"time"`
	NumTxs             Int64            `json:"num_txs,omitempty"`
	TotalTxs           Int64            `json:"total_txs,omitempty"`
	LastBlockID        BlockID          `json:"last_block_id"`
	LastCommitHash     tmbytes.HexBytes `json:"last_commit_hash"`
	DataHash           tmbytes.HexBytes `json:"data_hash"`
	ValidatorsHash     tmbytes.HexBytes `json:"validators_hash"`
	NextValidatorsHash tmbytes.HexBytes `json:"next_validators_hash"`
	ConsensusHash      tmbytes.HexBytes `json:"consensus_hash"`
	AppHash            tmbytes.HexBytes `json:"app_hash"`
	LastResultsHash    tmbytes.HexBytes `json:"last_results_hash"`
	EvidenceHash       tmbytes.HexBytes `json:"evidence_hash"`
	ProposerAddress    crypto.Address   `json:"proposer_address"`
}

func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerJSON{
		Version:            consensusJSON{Block: Int64(h.Version.Block), App: Int64(h.Version.App)},
		ChainID:            h.ChainID,
		Height:             Int64(h.Height),
		Time:               jsonTime(h.Time),
		NumTxs:             Int64(h.NumTxs),
		TotalTxs:           Int64(h.TotalTxs),
		LastBlockID:        h.LastBlockID,
		LastCommitHash:     h.LastCommitHash,
		DataHash:           h.DataHash,
		ValidatorsHash:     h.ValidatorsHash,
		NextValidatorsHash: h.NextValidatorsHash,
		ConsensusHash:      h.ConsensusHash,
		AppHash:            h.AppHash,
		LastResultsHash:    h.LastResultsHash,
		EvidenceHash:       h.EvidenceHash,
		ProposerAddress:    h.ProposerAddress,
	})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var hj headerJSON
	if err := json.Unmarshal(data, &hj); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	*h = Header{
		Version:            Consensus{Block: uint64(hj.Version.Block), App: uint64(hj.Version.App)},
		ChainID:            hj.ChainID,
		Height:             int64(hj.Height),
		Time:               time.Time(hj.Time),
		NumTxs:             int64(hj.NumTxs),
		TotalTxs:           int64(hj.TotalTxs),
		LastBlockID:        hj.LastBlockID,
		LastCommitHash:     hj.LastCommitHash,
		DataHash:           hj.DataHash,
		ValidatorsHash:     hj.ValidatorsHash,
		NextValidatorsHash: hj.NextValidatorsHash,
		ConsensusHash:      hj.ConsensusHash,
		AppHash:            hj.AppHash,
		LastResultsHash:    hj.LastResultsHash,
		EvidenceHash:       hj.EvidenceHash,
		ProposerAddress:    hj.ProposerAddress,
	}
	return nil
}

type partSetHeaderJSON struct {
	Total Int64            `json:"total"`
	Hash  tmbytes.HexBytes `json:"hash"`
}

func (psh PartSetHeader) MarshalJSON() ([]byte, error) {
	return json.Marshal(partSetHeaderJSON{Total: Int64(psh.Total), Hash: psh.Hash})
}

func (psh *PartSetHeader) UnmarshalJSON(data []byte) error {
	var pj partSetHeaderJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	if pj.Total > math.MaxUint32 {
		return ErrInvalidInteger{Field: "parts.total", Value: strconv.FormatInt(int64(pj.Total), 10)}
	}
	*psh = PartSetHeader{Total: uint32(pj.Total), Hash: pj.Hash}
	return nil
}

type commitSigJSON struct {
	BlockIDFlag      Int64          `json:"block_id_flag"`
	ValidatorAddress crypto.Address `json:"validator_address"`
	Timestamp        jsonTime       `json:"timestamp"`
	Signature        []byte         `json:"signature"`
}

func (cs CommitSig) MarshalJSON() ([]byte, error) {
	return json.Marshal(commitSigJSON{
		BlockIDFlag:      Int64(cs.BlockIDFlag),
		ValidatorAddress: cs.ValidatorAddress,
		Timestamp:        jsonTime(cs.Timestamp),
		Signature:        cs.Signature,
	})
}

func (cs *CommitSig) UnmarshalJSON(data []byte) error {
	var cj commitSigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	if cj.BlockIDFlag > math.MaxUint8 {
		return ErrInvalidInteger{Field: "block_id_flag", Value: strconv.FormatInt(int64(cj.BlockIDFlag), 10)}
	}
	*cs = CommitSig{
		BlockIDFlag:      BlockIDFlag(cj.BlockIDFlag),
		ValidatorAddress: cj.ValidatorAddress,
		Timestamp:        time.Time(cj.Timestamp),
		Signature:        cj.Signature,
	}
	return nil
}

// precommitJSON is a vote as found in pre-v0.33 commits, which list full
// precommit votes (or null for missing ones) instead of signatures.
type precommitJSON struct {
	ValidatorAddress crypto.Address `json:"validator_address"`
	Timestamp        jsonTime       `json:"timestamp"`
	BlockID          BlockID        `json:"block_id"`
	Signature        []byte         `json:"signature"`
}

type commitJSON struct {
	Height     Int64            `json:"height"`
	Round      Int64            `json:"round"`
	BlockID    BlockID          `json:"block_id"`
	Signatures []CommitSig      `json:"signatures"`
	Precommits []*precommitJSON `json:"precommits,omitempty"`
}

func (commit Commit) MarshalJSON() ([]byte, error) {
	return json.Marshal(commitJSON{
		Height:     Int64(commit.Height),
		Round:      Int64(commit.Round),
		BlockID:    commit.BlockID,
		Signatures: commit.Signatures,
	})
}

func (commit *Commit) UnmarshalJSON(data []byte) error {
	var cj commitJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if cj.Round > math.MaxInt32 {
		return ErrInvalidInteger{Field: "round", Value: strconv.FormatInt(int64(cj.Round), 10)}
	}

	sigs := cj.Signatures
	if len(sigs) == 0 && len(cj.Precommits) > 0 {
		sigs = make([]CommitSig, len(cj.Precommits))
		for i, pc := range cj.Precommits {
			switch {
			case pc == nil:
				sigs[i] = NewCommitSigAbsent()
			case pc.BlockID.Equals(cj.BlockID):
				sigs[i] = CommitSig{BlockIDFlagCommit, pc.ValidatorAddress, time.Time(pc.Timestamp), pc.Signature}
			case pc.BlockID.IsZero():
				sigs[i] = CommitSig{BlockIDFlagNil, pc.ValidatorAddress, time.Time(pc.Timestamp), pc.Signature}
			default:
				return fmt.Errorf("commit: precommit %d is for another block %v", i, pc.BlockID)
			}
		}
	}

	*commit = Commit{
		Height:     int64(cj.Height),
		Round:      int32(cj.Round),
		BlockID:    cj.BlockID,
		Signatures: sigs,
	}
	return nil
}

type validatorJSON struct {
	Address          crypto.Address  `json:"address"`
	PubKey           json.RawMessage `json:"pub_key"`
	VotingPower      Int64           `json:"voting_power"`
	ProposerPriority jsonSignedInt64 `json:"proposer_priority"`
}

func (v Validator) MarshalJSON() ([]byte, error) {
	pk, err := encoding.PubKeyToJSON(v.PubKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(validatorJSON{
		Address:          v.Address,
		PubKey:           pk,
		VotingPower:      Int64(v.VotingPower),
		ProposerPriority: jsonSignedInt64(v.ProposerPriority),
	})
}

func (v *Validator) UnmarshalJSON(data []byte) error {
	var vj validatorJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	var pk crypto.PubKey
	if len(bytes.TrimSpace(vj.PubKey)) > 0 {
		var err error
		if pk, err = encoding.PubKeyFromJSON(vj.PubKey); err != nil {
			return fmt.Errorf("validator %v: %w", vj.Address, err)
		}
	}
	*v = Validator{
		Address:          vj.Address,
		PubKey:           pk,
		VotingPower:      int64(vj.VotingPower),
		ProposerPriority: int64(vj.ProposerPriority),
	}
	return nil
}

// The embedded pointers of SignedHeader and LightBlock would otherwise
// promote Header's JSON methods.

type signedHeaderJSON struct {
	Header *Header `json:"header"`
	Commit *Commit `json:"commit"`
}

func (sh SignedHeader) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedHeaderJSON{Header: sh.Header, Commit: sh.Commit})
}

func (sh *SignedHeader) UnmarshalJSON(data []byte) error {
	var sj signedHeaderJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	sh.Header, sh.Commit = sj.Header, sj.Commit
	return nil
}

type lightBlockJSON struct {
	SignedHeader *SignedHeader `json:"signed_header"`
	ValidatorSet *ValidatorSet `json:"validator_set"`
}

func (lb LightBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(lightBlockJSON{SignedHeader: lb.SignedHeader, ValidatorSet: lb.ValidatorSet})
}

func (lb *LightBlock) UnmarshalJSON(data []byte) error {
	var lj lightBlockJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return err
	}
	lb.SignedHeader, lb.ValidatorSet = lj.SignedHeader, lj.ValidatorSet
	return nil
}
