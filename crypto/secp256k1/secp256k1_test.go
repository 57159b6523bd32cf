package secp256k1_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	underlyingSecp256k1 "github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/secp256k1"
)

func TestSignAndValidateSecp256k1(t *testing.T) {
	privKey := secp256k1.GenPrivKey()
	pubKey := privKey.PubKey()

	msg := crypto.CRandBytes(128)
	sig, err := privKey.Sign(msg)
	require.NoError(t, err)

	assert.True(t, pubKey.VerifySignature(msg, sig))

	// Mutate the signature, just one bit.
	sig[3] ^= byte(0x01)

	assert.False(t, pubKey.VerifySignature(msg, sig))
}

func TestRejectsHighS(t *testing.T) {
	privKey := secp256k1.GenPrivKeySecp256k1([]byte("high-s"))
	pubKey := privKey.PubKey()

	msg := []byte("We have lingered long enough on the shores of the cosmic ocean.")
	sig, err := privKey.Sign(msg)
	require.NoError(t, err)
	require.True(t, pubKey.VerifySignature(msg, sig))

	// S' = N - S is an equally valid ECDSA signature with high S.
	s := new(big.Int).SetBytes(sig[32:])
	highS := new(big.Int).Sub(underlyingSecp256k1.S256().N, s).Bytes()
	malleated := make([]byte, 64)
	copy(malleated[:32], sig[:32])
	copy(malleated[64-len(highS):], highS)

	assert.False(t, pubKey.VerifySignature(msg, malleated))
}

func TestPubKeyAddress(t *testing.T) {
	// bitcoin's secret exponent 1 yields the generator point
	privKey := make(secp256k1.PrivKey, secp256k1.PrivKeySize)
	privKey[31] = 1
	pubKey := privKey.PubKey().(secp256k1.PubKey)

	assert.Equal(t,
		"0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798",
		hex.EncodeToString(pubKey))
	assert.Equal(t,
		"751E76E8199196D454941C45D1B3A323F1433BD6",
		pubKey.Address().String())
}
