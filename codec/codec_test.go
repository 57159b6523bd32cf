package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/tmhash"
	"github.com/tendermint/lightnode/types"
)

func TestParseVersion(t *testing.T) {
	for _, s := range []string{"legacy", "amino", "proto", " Proto "} {
		v, err := ParseVersion(s)
		require.NoError(t, err, s)
		cdc, err := New(v)
		require.NoError(t, err)
		assert.Equal(t, string(v), cdc.Name())
	}

	_, err := ParseVersion("json")
	var target ErrUnknownVersion
	assert.True(t, errors.As(err, &target))

	_, err = New("json")
	assert.Error(t, err)
	assert.Panics(t, func() { MustNew("json") })
}

func testHeader() *types.Header {
	return &types.Header{
		Version:            types.Consensus{Block: 10},
		ChainID:            "test-chain",
		Height:             3,
		Time:               time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		LastBlockID:        types.BlockID{Hash: tmhash.Sum([]byte("last")), PartSetHeader: types.PartSetHeader{Total: 1, Hash: tmhash.Sum([]byte("parts"))}},
		ValidatorsHash:     tmhash.Sum([]byte("vals")),
		NextValidatorsHash: tmhash.Sum([]byte("vals")),
		ProposerAddress:    tmhash.SumTruncated([]byte("proposer")),
	}
}

func TestHeaderHashDeterministic(t *testing.T) {
	for _, v := range Versions {
		cdc := MustNew(v)
		h := testHeader()

		h1, err := cdc.HeaderHash(h)
		require.NoError(t, err)
		h2, err := cdc.HeaderHash(testHeader())
		require.NoError(t, err)
		assert.Equal(t, h1, h2, v)
		assert.Equal(t, testHeader(), h, "%s modified the header", v)

		h.AppHash = []byte{1}
		h3, err := cdc.HeaderHash(h)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h3, v)
	}
}

func TestCodecsRejectBadInput(t *testing.T) {
	for _, v := range Versions {
		cdc := MustNew(v)

		h := testHeader()
		h.Time = time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
		_, err := cdc.HeaderHash(h)
		assert.ErrorIs(t, err, types.ErrNonUTCTime, v)

		hash, err := cdc.HeaderHash(nil)
		assert.ErrorIs(t, err, types.ErrNilHeader, v)
		assert.Nil(t, hash, v)

		_, err = cdc.VoteSignBytes(types.CanonicalVote{Height: -1})
		assert.Error(t, err, v)

		_, err = cdc.Address(badKey{})
		var keyErr crypto.ErrUnknownKeyType
		assert.ErrorAs(t, err, &keyErr, v)

		_, err = cdc.ValidatorSetHash(types.NewValidatorSet(nil))
		assert.ErrorIs(t, err, types.ErrEmptyValidatorSet, v)

		val := types.NewValidator(ed25519.GenPrivKeyFromSecret([]byte("v")).PubKey(), 1<<53)
		_, err = cdc.EncodeValidator(val)
		assert.Error(t, err, v)
	}
}

type badKey struct{}

func (badKey) Address() crypto.Address                     { return nil }
func (badKey) Bytes() []byte                               { return nil }
func (badKey) VerifySignature(msg []byte, sig []byte) bool { return false }
func (badKey) Equals(crypto.PubKey) bool                   { return false }
func (badKey) Type() string                                { return "bad" }
