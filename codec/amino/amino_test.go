package amino

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/tmhash"
	"github.com/tendermint/lightnode/types"
)

func seq(from, n int) []byte {
	bz := make([]byte, n)
	for i := range bz {
		bz[i] = byte(from + i)
	}
	return bz
}

func fixturePubKey(t *testing.T) ed25519.PubKey {
	bz, err := hex.DecodeString("3638c440a52cabc174816c65dc1a14d8b8b99fb844cfd1ff2d7f34adf3315721")
	require.NoError(t, err)
	return ed25519.PubKey(bz)
}

func TestVoteSignBytesTestVectors(t *testing.T) {
	tests := []struct {
		vote types.CanonicalVote
		want []byte
	}{
		0: {
			types.CanonicalVote{},
			// NOTE: Height and Round are skipped here. This case needs to be considered while parsing.
			[]byte{0xd, 0x2a, 0xb, 0x8, 0x80, 0x92, 0xb8, 0xc3, 0x98, 0xfe, 0xff, 0xff, 0xff, 0x1},
		},
		// with proper (fixed size) height and round (PreCommit):
		1: {
			types.CanonicalVote{Height: 1, Round: 1, Type: types.PrecommitType},
			[]byte{
				0x21,                                   // length
				0x8,                                    // (field_number << 3) | wire_type
				0x2,                                    // PrecommitType
				0x11,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // height
				0x19,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // round
				0x2a, // (field_number << 3) | wire_type
				// remaining fields (timestamp):
				0xb, 0x8, 0x80, 0x92, 0xb8, 0xc3, 0x98, 0xfe, 0xff, 0xff, 0xff, 0x1},
		},
		// with proper (fixed size) height and round (PreVote):
		2: {
			types.CanonicalVote{Height: 1, Round: 1, Type: types.PrevoteType},
			[]byte{
				0x21,                                   // length
				0x8,                                    // (field_number << 3) | wire_type
				0x1,                                    // PrevoteType
				0x11,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // height
				0x19,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // round
				0x2a, // (field_number << 3) | wire_type
				// remaining fields (timestamp):
				0xb, 0x8, 0x80, 0x92, 0xb8, 0xc3, 0x98, 0xfe, 0xff, 0xff, 0xff, 0x1},
		},
		3: {
			types.CanonicalVote{Height: 1, Round: 1},
			[]byte{
				0x1f,                                   // length
				0x11,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // height
				0x19,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // round
				// remaining fields (timestamp):
				0x2a,
				0xb, 0x8, 0x80, 0x92, 0xb8, 0xc3, 0x98, 0xfe, 0xff, 0xff, 0xff, 0x1},
		},
		// containing non-empty chain_id:
		4: {
			types.CanonicalVote{Height: 1, Round: 1, ChainID: "test_chain_id"},
			[]byte{
				0x2e,                                   // length
				0x11,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // height
				0x19,                                   // (field_number << 3) | wire_type
				0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, // round
				// remaining fields:
				0x2a,                                                                // (field_number << 3) | wire_type
				0xb, 0x8, 0x80, 0x92, 0xb8, 0xc3, 0x98, 0xfe, 0xff, 0xff, 0xff, 0x1, // timestamp
				0x32,                                                                               // (field_number << 3) | wire_type
				0xd, 0x74, 0x65, 0x73, 0x74, 0x5f, 0x63, 0x68, 0x61, 0x69, 0x6e, 0x5f, 0x69, 0x64}, // chainID
		},
	}

	cdc := New()
	for i, tc := range tests {
		got, err := cdc.VoteSignBytes(tc.vote)
		require.NoError(t, err, "test case #%v", i)
		assert.Equal(t, tc.want, got, "test case #%v: got unexpected sign bytes for Vote.", i)
	}
}

func TestVoteSignBytesBlockID(t *testing.T) {
	vote := types.CanonicalVote{
		Type:   types.PrecommitType,
		Height: 1,
		BlockID: types.BlockID{
			Hash:          seq(0, 2),
			PartSetHeader: types.PartSetHeader{Total: 1, Hash: seq(2, 2)},
		},
	}
	got, err := New().VoteSignBytes(vote)
	require.NoError(t, err)
	assert.Equal(t,
		"26"+ // length
			"0802"+ // type
			"110100000000000000"+ // height
			"220c"+"0a020001"+"1206"+"0a020203"+"1001"+ // block id, hash before total
			"2a0b088092b8c398feffffff01", // timestamp
		hex.EncodeToString(got))
}

func TestEncodeTime(t *testing.T) {
	cdc := New()

	bz, err := cdc.EncodeTime(time.Unix(0, 0).UTC())
	require.NoError(t, err)
	assert.Empty(t, bz)

	bz, err = cdc.EncodeTime(time.Unix(1583064000, 123).UTC())
	require.NoError(t, err)
	assert.Equal(t, "08c0c7eef205107b", hex.EncodeToString(bz))

	_, err = cdc.EncodeTime(time.Unix(0, 0).In(time.FixedZone("X", 60)))
	assert.ErrorIs(t, err, types.ErrNonUTCTime)
}

func TestEncodeBlockID(t *testing.T) {
	cdc := New()

	bz, err := cdc.EncodeBlockID(types.BlockID{})
	require.NoError(t, err)
	assert.Equal(t, "1200", hex.EncodeToString(bz))

	bz, err = cdc.EncodeBlockID(types.BlockID{
		Hash:          seq(0, 32),
		PartSetHeader: types.PartSetHeader{Total: 1, Hash: seq(32, 32)},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"0a20000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"+
			"122408011220202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f",
		hex.EncodeToString(bz))
}

func TestEncodeValidator(t *testing.T) {
	pk := fixturePubKey(t)
	bz, err := New().EncodeValidator(types.NewValidator(pk, 100))
	require.NoError(t, err)
	assert.Equal(t,
		"0a251624de64203638c440a52cabc174816c65dc1a14d8b8b99fb844cfd1ff2d7f34adf33157211064",
		hex.EncodeToString(bz))
}

func TestValidatorSetHash(t *testing.T) {
	cdc := New()
	vals := types.NewValidatorSet([]*types.Validator{types.NewValidator(fixturePubKey(t), 100)})

	hash, err := cdc.ValidatorSetHash(vals)
	require.NoError(t, err)
	assert.Equal(t, "d6a60acb292d4ded107782eac3f6aeb073466872689051f2392c01bdb0febfb6", hex.EncodeToString(hash))

	_, err = cdc.ValidatorSetHash(nil)
	assert.ErrorIs(t, err, types.ErrEmptyValidatorSet)
}

func TestValidatorSetHashOrdersByPower(t *testing.T) {
	cdc := New()
	a := types.NewValidator(ed25519.GenPrivKeyFromSecret([]byte("a")).PubKey(), 10)
	b := types.NewValidator(ed25519.GenPrivKeyFromSecret([]byte("b")).PubKey(), 20)

	h1, err := cdc.ValidatorSetHash(types.NewValidatorSet([]*types.Validator{a, b}))
	require.NoError(t, err)
	h2, err := cdc.ValidatorSetHash(types.NewValidatorSet([]*types.Validator{b, a}))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	bzA, err := cdc.EncodeValidator(a)
	require.NoError(t, err)
	bzB, err := cdc.EncodeValidator(b)
	require.NoError(t, err)
	assert.Equal(t, cdc.tree.HashFromByteSlices([][]byte{bzB, bzA}), h1)
}

func TestHeaderHash(t *testing.T) {
	h := &types.Header{
		Version:            types.Consensus{Block: 10, App: 1},
		ChainID:            "test-chain",
		Height:             7,
		Time:               time.Unix(1583064000, 123).UTC(),
		LastBlockID:        types.BlockID{Hash: seq(0, 32), PartSetHeader: types.PartSetHeader{Total: 1, Hash: seq(32, 32)}},
		ValidatorsHash:     tmhash.Sum([]byte("vals")),
		NextValidatorsHash: tmhash.Sum([]byte("vals")),
		ConsensusHash:      tmhash.Sum([]byte("cons")),
		ProposerAddress:    seq(0, 20),
	}

	hash, err := New().HeaderHash(h)
	require.NoError(t, err)
	assert.Equal(t, "be5a00107856187b40124f87d2f1b30c0bf8dfc2c9fd9ffb0cea8beadcd36515", hex.EncodeToString(hash))

	genesis := *h
	genesis.Height = 1
	genesis.Time = time.Unix(1583064000, 0).UTC()
	genesis.LastBlockID = types.BlockID{}
	hash, err = New().HeaderHash(&genesis)
	require.NoError(t, err)
	assert.Equal(t, "3388d244aaecad96120b2b0e3e9fb0b092232246c2a0b581cfdee928b5d91709", hex.EncodeToString(hash))
}

func TestAddress(t *testing.T) {
	cdc := New()

	addr, err := cdc.Address(fixturePubKey(t))
	require.NoError(t, err)
	assert.Equal(t, "DE82BC42BBF06A8EBD541D7B26182FDFA3ED180D", addr.String())

	_, err = cdc.Address(nil)
	var keyErr crypto.ErrUnknownKeyType
	assert.ErrorAs(t, err, &keyErr)
}
