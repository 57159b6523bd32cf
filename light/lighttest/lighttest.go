// Package lighttest builds signed chains for tests of the light client.
//
// Everything is deterministic: keys are derived from a seed and signatures
// are over fixed times, so a chain built twice is the same chain.
package lighttest

import (
	"fmt"
	"time"

	"github.com/tendermint/lightnode/codec"
	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/types"
	"github.com/tendermint/lightnode/version"
)

// ChainID of the chains built by default.
const ChainID = "test-chain"

// GenesisTime is the time of the first block of the chains built by
// GenChain.
var GenesisTime = time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)

// PrivKeys lets us simulate signing with many keys. The main use case is to
// create a set, and call GenSignedHeader to get properly signed header for
// testing.
type PrivKeys []crypto.PrivKey

// GenPrivKeys produces n ed25519 keys derived from seed.
func GenPrivKeys(n int, seed string) PrivKeys {
	res := make(PrivKeys, n)
	for i := range res {
		res[i] = ed25519.GenPrivKeyFromSecret([]byte(fmt.Sprintf("%s/%d", seed, i)))
	}
	return res
}

// Extend adds n more keys (to remove, just take a slice).
func (pkz PrivKeys) Extend(n int, seed string) PrivKeys {
	return append(pkz, GenPrivKeys(n, seed)...)
}

// ToValidators produces a valset from the set of keys, addressed the way cdc
// derives addresses. The first key has weight init and it increases by inc
// every step.
func (pkz PrivKeys) ToValidators(cdc codec.Codec, init, inc int64) *types.ValidatorSet {
	res := make([]*types.Validator, len(pkz))
	for i, k := range pkz {
		pk := k.PubKey()
		addr, err := cdc.Address(pk)
		if err != nil {
			panic(err)
		}
		res[i] = &types.Validator{
			Address:     addr,
			PubKey:      pk,
			VotingPower: init + int64(i)*inc,
		}
	}
	return types.NewValidatorSet(res)
}

// SignHeader signs header with the keys from first to last exclusive. The
// other keys are absent from the commit. Every key must be a member of vals.
func (pkz PrivKeys) SignHeader(
	cdc codec.Codec,
	header *types.Header,
	vals *types.ValidatorSet,
	first, last int) *types.Commit {

	hash, err := cdc.HeaderHash(header)
	if err != nil {
		panic(err)
	}
	commit := &types.Commit{
		Height: header.Height,
		Round:  1,
		BlockID: types.BlockID{
			Hash:          hash,
			PartSetHeader: types.PartSetHeader{Total: 1, Hash: crypto.Checksum(hash)},
		},
		Signatures: make([]types.CommitSig, len(pkz)),
	}

	for i := range pkz {
		commit.Signatures[i] = types.NewCommitSigAbsent()
	}
	for i := first; i < last && i < len(pkz); i++ {
		commit.Signatures[i] = pkz.Sign(cdc, i, header.ChainID, commit, vals, types.BlockIDFlagCommit, header.Time)
	}
	return commit
}

// Sign returns the signature of key i for commit with the given flag.
func (pkz PrivKeys) Sign(
	cdc codec.Codec,
	i int,
	chainID string,
	commit *types.Commit,
	vals *types.ValidatorSet,
	flag types.BlockIDFlag,
	ts time.Time) types.CommitSig {

	pk := pkz[i].PubKey()
	addr, err := cdc.Address(pk)
	if err != nil {
		panic(err)
	}
	if !vals.HasAddress(addr) {
		panic(fmt.Sprintf("key #%d is not a member of the validator set", i))
	}

	sig := types.CommitSig{
		BlockIDFlag:      flag,
		ValidatorAddress: addr,
		Timestamp:        ts,
	}
	signBytes, err := cdc.VoteSignBytes(commit.CanonicalVote(chainID, sig))
	if err != nil {
		panic(err)
	}
	sig.Signature, err = pkz[i].Sign(signBytes)
	if err != nil {
		panic(err)
	}
	return sig
}

// GenHeader returns a header at height whose validator hashes are those of
// vals and nextVals.
func GenHeader(
	cdc codec.Codec,
	chainID string,
	height int64,
	bTime time.Time,
	vals, nextVals *types.ValidatorSet) *types.Header {

	valsHash, err := cdc.ValidatorSetHash(vals)
	if err != nil {
		panic(err)
	}
	nextValsHash, err := cdc.ValidatorSetHash(nextVals)
	if err != nil {
		panic(err)
	}
	return &types.Header{
		Version:            types.Consensus{Block: version.BlockProtocol.Uint64(), App: 1},
		ChainID:            chainID,
		Height:             height,
		Time:               bTime,
		ValidatorsHash:     valsHash,
		NextValidatorsHash: nextValsHash,
		AppHash:            crypto.Checksum([]byte("app_hash")),
		ConsensusHash:      crypto.Checksum([]byte("cons_hash")),
		LastResultsHash:    crypto.Checksum([]byte("results_hash")),
		ProposerAddress:    vals.Validators[0].Address,
	}
}

// GenSignedHeader calls GenHeader and SignHeader and combines them into a
// SignedHeader.
func (pkz PrivKeys) GenSignedHeader(
	cdc codec.Codec,
	chainID string,
	height int64,
	bTime time.Time,
	vals, nextVals *types.ValidatorSet,
	first, last int) *types.SignedHeader {

	header := GenHeader(cdc, chainID, height, bTime, vals, nextVals)
	return &types.SignedHeader{
		Header: header,
		Commit: pkz.SignHeader(cdc, header, vals, first, last),
	}
}

// Chain is a fully signed chain, indexed by height.
type Chain struct {
	Headers    map[int64]*types.SignedHeader
	Validators map[int64]*types.ValidatorSet
	Keys       map[int64]PrivKeys
}

// LightBlock returns the light block at height.
func (c Chain) LightBlock(height int64) *types.LightBlock {
	return &types.LightBlock{
		SignedHeader: c.Headers[height],
		ValidatorSet: c.Validators[height],
	}
}

// GenChain builds blocks 1 to n, one minute apart from GenesisTime. keysAt
// returns the signers of each height; every signer signs with power 10.
//
// The NextValidatorsHash of a header is the hash of its own set, so a change
// of set is only trusted if the old validators sign the new header too.
func GenChain(cdc codec.Codec, n int64, keysAt func(height int64) PrivKeys) Chain {
	c := Chain{
		Headers:    make(map[int64]*types.SignedHeader, n),
		Validators: make(map[int64]*types.ValidatorSet, n),
		Keys:       make(map[int64]PrivKeys, n),
	}
	var lastBlockID types.BlockID
	for h := int64(1); h <= n; h++ {
		keys := keysAt(h)
		vals := keys.ToValidators(cdc, 10, 0)

		header := GenHeader(cdc, ChainID, h, GenesisTime.Add(time.Duration(h-1)*time.Minute), vals, vals)
		header.LastBlockID = lastBlockID
		sh := &types.SignedHeader{
			Header: header,
			Commit: keys.SignHeader(cdc, header, vals, 0, len(keys)),
		}
		lastBlockID = sh.Commit.BlockID

		c.Headers[h] = sh
		c.Validators[h] = vals
		c.Keys[h] = keys
	}
	return c
}

// GenBisectionChain builds 100 blocks; set A signs 1 to 49 and a disjoint
// set B signs 50 to 100. Both sets have three validators of power 10.
func GenBisectionChain(cdc codec.Codec) Chain {
	a, b := GenPrivKeys(3, "set-a"), GenPrivKeys(3, "set-b")
	return GenChain(cdc, 100, func(h int64) PrivKeys {
		if h < 50 {
			return a
		}
		return b
	})
}
