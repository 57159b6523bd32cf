package legacy

import (
	"encoding/base64"
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

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	bz, err := hex.DecodeString(s)
	require.NoError(t, err)
	return bz
}

func fixturePubKey(t *testing.T) ed25519.PubKey {
	bz, err := base64.StdEncoding.DecodeString("NjjEQKUsq8F0gWxl3BoU2Li5n7hEz9H/LX80rfMxVyE=")
	require.NoError(t, err)
	return ed25519.PubKey(bz)
}

func fixtureBlockID(t *testing.T) types.BlockID {
	return types.BlockID{
		Hash: mustHex(t, "9B24D4DE43C0C3CE003B19796B749D56DA3C6C84"),
		PartSetHeader: types.PartSetHeader{
			Total: 1,
			Hash:  mustHex(t, "0C6412C6F34FD48E88A9CEE88885342DDEF13719"),
		},
	}
}

func TestEncodeTime(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"2018-05-23T00:37:22.036663121Z", "09000000005b04b7c215022f6f5104"},
		{"2018-05-23T02:46:50.290965475Z", "09000000005b04d61a151157c7e304"},
		{"2018-05-23T02:46:53.334239655Z", "09000000005b04d61d1513ec17a704"},
		{"2018-05-23T02:48:14.21187523Z", "09000000005b04d66e150ca0f59e04"},
		{"2018-05-23T02:51:28.42456088Z", "09000000005b04d73015194e48f004"},
	}

	cdc := New()
	for _, tc := range testCases {
		ts, err := time.Parse(time.RFC3339Nano, tc.in)
		require.NoError(t, err)
		bz, err := cdc.EncodeTime(ts.UTC())
		require.NoError(t, err)
		assert.Equal(t, tc.want, hex.EncodeToString(bz), tc.in)
	}
}

func TestEncodeTimeRejects(t *testing.T) {
	cdc := New()

	_, err := cdc.EncodeTime(time.Date(2018, 5, 23, 0, 0, 0, 0, time.FixedZone("CET", 3600)))
	assert.ErrorIs(t, err, types.ErrNonUTCTime)

	_, err = cdc.EncodeTime(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestEncodeBlockID(t *testing.T) {
	cdc := New()

	bz, err := cdc.EncodeBlockID(types.BlockID{})
	require.NoError(t, err)
	assert.Equal(t, "1308000404", hex.EncodeToString(bz))

	bz, err = cdc.EncodeBlockID(fixtureBlockID(t))
	require.NoError(t, err)
	assert.Equal(t,
		"0a149b24d4de43c0c3ce003b19796b749d56da3c6c8413080212140c6412c6f34fd48e88a9cee88885342ddef137190404",
		hex.EncodeToString(bz))
}

func TestEncodePubKey(t *testing.T) {
	cdc := New()

	bz, err := cdc.EncodePubKey(nil)
	require.NoError(t, err)
	assert.Equal(t, "00", hex.EncodeToString(bz))

	bz, err = cdc.EncodePubKey(fixturePubKey(t))
	require.NoError(t, err)
	assert.Equal(t, "1624de62203638c440a52cabc174816c65dc1a14d8b8b99fb844cfd1ff2d7f34adf3315721", hex.EncodeToString(bz))

	_, err = cdc.EncodePubKey(ed25519.PubKey{1, 2, 3})
	var sizeErr crypto.ErrInvalidKeySize
	assert.ErrorAs(t, err, &sizeErr)
}

func TestAddress(t *testing.T) {
	addr, err := New().Address(fixturePubKey(t))
	require.NoError(t, err)
	assert.Equal(t, "135A9CBF8D5037E8B1507DDD3C6637364DF6D5EB", addr.String())
}

func TestEncodeValidator(t *testing.T) {
	val := &types.Validator{
		Address:     mustHex(t, "135A9CBF8D5037E8B1507DDD3C6637364DF6D5EB"),
		PubKey:      fixturePubKey(t),
		VotingPower: 100,
	}
	bz, err := New().EncodeValidator(val)
	require.NoError(t, err)
	assert.Equal(t,
		"0a14135a9cbf8d5037e8b1507ddd3c6637364df6d5eb171624de62203638c440a52cabc174816c65dc1a14d8b8b99fb844cfd1ff2d7f34adf331572119000000000000006404",
		hex.EncodeToString(bz))

	val.VotingPower = -1
	_, err = New().EncodeValidator(val)
	assert.Error(t, err)
}

func TestValidatorSetHash(t *testing.T) {
	cdc := New()
	val := &types.Validator{
		Address:     mustHex(t, "135A9CBF8D5037E8B1507DDD3C6637364DF6D5EB"),
		PubKey:      fixturePubKey(t),
		VotingPower: 100,
	}

	hash, err := cdc.ValidatorSetHash(types.NewValidatorSet([]*types.Validator{val}))
	require.NoError(t, err)
	assert.Equal(t, "afd58fe7116e27ebaffb5448219f8719d2c1f382", hex.EncodeToString(hash))

	// a single validator's hash is the set hash
	bz, err := cdc.EncodeValidator(val)
	require.NoError(t, err)
	assert.Equal(t, tmhash.SumRipemd160(bz), hash)

	_, err = cdc.ValidatorSetHash(types.NewValidatorSet(nil))
	assert.ErrorIs(t, err, types.ErrEmptyValidatorSet)
}

func TestValidatorSetHashIsOrderIndependent(t *testing.T) {
	cdc := New()
	valz := make([]*types.Validator, 3)
	for i := range valz {
		pk := ed25519.GenPrivKeyFromSecret([]byte{byte(i)}).PubKey()
		addr, err := cdc.Address(pk)
		require.NoError(t, err)
		valz[i] = &types.Validator{Address: addr, PubKey: pk, VotingPower: int64(10 + i)}
	}

	h1, err := cdc.ValidatorSetHash(types.NewValidatorSet(valz))
	require.NoError(t, err)
	h2, err := cdc.ValidatorSetHash(types.NewValidatorSet([]*types.Validator{valz[2], valz[0], valz[1]}))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

// The expected bytes are assembled field by field from the encodings above.
// They guard against regressions only: no sign bytes of a real go-wire chain
// are available to check them against.
func TestVoteSignBytes(t *testing.T) {
	ts, err := time.Parse(time.RFC3339Nano, "2018-05-23T00:37:22.036663121Z")
	require.NoError(t, err)

	bz, err := New().VoteSignBytes(types.CanonicalVote{
		Type:      types.PrecommitType,
		Height:    12,
		Round:     0,
		BlockID:   fixtureBlockID(t),
		Timestamp: ts,
		ChainID:   "test-chain",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"63"+ // length
			"09000000000000000c"+ // height
			"110000000000000000"+ // round
			"1804"+ // type
			"2309000000005b04b7c215022f6f5104"+ // timestamp
			"2b0a149b24d4de43c0c3ce003b19796b749d56da3c6c8413080212140c6412c6f34fd48e88a9cee88885342ddef137190404"+
			"320a746573742d636861696e"+ // chain id
			"04",
		hex.EncodeToString(bz))
}

func TestHeaderHash(t *testing.T) {
	ts, err := time.Parse(time.RFC3339Nano, "2018-05-23T00:37:22.036663121Z")
	require.NoError(t, err)
	valsHash := mustHex(t, "0000000000000000000000000000000000000001")

	h := &types.Header{
		ChainID:            "test-chain",
		Height:             12,
		Time:               ts,
		TotalTxs:           300,
		LastBlockID:        fixtureBlockID(t),
		ValidatorsHash:     valsHash,
		NextValidatorsHash: valsHash,
	}

	hash, err := New().HeaderHash(h)
	require.NoError(t, err)
	assert.Equal(t, "67db9632558f542cc769bf9ec7510152bcfc445a", hex.EncodeToString(hash))

	h.Height = -1
	_, err = New().HeaderHash(h)
	assert.Error(t, err)
}

// simpleHash is go-wire's SimpleHashFromHashes.
func simpleHash(hashes [][]byte) []byte {
	switch len(hashes) {
	case 0:
		return nil
	case 1:
		return hashes[0]
	default:
		k := (len(hashes) + 1) / 2
		left, right := simpleHash(hashes[:k]), simpleHash(hashes[k:])
		bz := append([]byte{byte(len(left))}, left...)
		bz = append(bz, byte(len(right)))
		return tmhash.SumRipemd160(append(bz, right...))
	}
}

func TestHeaderHashIsSimpleMap(t *testing.T) {
	ts, err := time.Parse(time.RFC3339Nano, "2018-05-23T00:37:22.036663121Z")
	require.NoError(t, err)
	valsHash := mustHex(t, "0000000000000000000000000000000000000001")
	h := &types.Header{
		ChainID:            "test-chain",
		Height:             12,
		Time:               ts,
		TotalTxs:           300,
		LastBlockID:        fixtureBlockID(t),
		ValidatorsHash:     valsHash,
		NextValidatorsHash: valsHash,
	}

	// binary values of the fields, sorted by key
	fields := []struct {
		key   string
		value string
	}{
		{"App", "00"},
		{"ChainID", "0a746573742d636861696e"},
		{"Consensus", "00"},
		{"Data", "00"},
		{"Evidence", "00"},
		{"Height", "010c"},
		{"LastBlockID", "0a149b24d4de43c0c3ce003b19796b749d56da3c6c8413080212140c6412c6f34fd48e88a9cee88885342ddef137190404"},
		{"LastCommit", "00"},
		{"NextValidators", "14" + hex.EncodeToString(valsHash)},
		{"NumTxs", "00"},
		{"Results", "00"},
		{"Time", "09000000005b04b7c215022f6f5104"},
		{"TotalTxs", "02012c"},
		{"Validators", "14" + hex.EncodeToString(valsHash)},
	}
	leaves := make([][]byte, len(fields))
	for i, f := range fields {
		bz := append([]byte{byte(len(f.key))}, f.key...)
		leaves[i] = tmhash.SumRipemd160(append(bz, mustHex(t, f.value)...))
	}

	hash, err := New().HeaderHash(h)
	require.NoError(t, err)
	assert.Equal(t, simpleHash(leaves), hash)
}
