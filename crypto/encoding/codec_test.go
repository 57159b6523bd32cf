package encoding

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/secp256k1"
)

func TestPubKeyJSONRoundTrip(t *testing.T) {
	keys := []crypto.PubKey{
		ed25519.GenPrivKey().PubKey(),
		secp256k1.GenPrivKey().PubKey(),
	}

	for _, pk := range keys {
		bz, err := PubKeyToJSON(pk)
		require.NoError(t, err)

		decoded, err := PubKeyFromJSON(bz)
		require.NoError(t, err)
		assert.True(t, pk.Equals(decoded), "%s", pk.Type())
	}
}

func TestPubKeyFromJSON(t *testing.T) {
	const value = "NjjEQKUsq8F0gWxl3BoU2Li5n7hEz9H/LX80rfMxVyE="
	raw, err := base64.StdEncoding.DecodeString(value)
	require.NoError(t, err)

	pk, err := PubKeyFromJSON([]byte(`{"type":"tendermint/PubKeyEd25519","value":"` + value + `"}`))
	require.NoError(t, err)
	assert.Equal(t, ed25519.PubKey(raw), pk)

	pk, err = PubKeyFromJSON([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, pk)

	_, err = PubKeyFromJSON([]byte(`{"type":"tendermint/PubKeySr25519","value":"` + value + `"}`))
	var unknown crypto.ErrUnknownKeyType
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "tendermint/PubKeySr25519", unknown.Type)

	_, err = PubKeyFromJSON([]byte(`{"type":"tendermint/PubKeyEd25519","value":"AAAA"}`))
	var badSize crypto.ErrInvalidKeySize
	require.True(t, errors.As(err, &badSize))
	assert.Equal(t, 3, badSize.Got)
}
