package merkle

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendermint/lightnode/crypto/tmhash"
)

func TestHashFromKVPairs(t *testing.T) {
	pairs := []KVPair{
		{Key: "b", Value: []byte{2}},
		{Key: "a", Value: []byte{1}},
		{Key: "c", Value: []byte{3}},
	}
	tree := SHA256Tree()

	assert.Equal(t,
		"2a1f4ac5574a8f07e1459dc9b5a8cc8565c78b0c39881b55f548003390cbe409",
		hex.EncodeToString(tree.HashFromKVPairs(pairs, KeyOrderByName)))
	assert.Equal(t,
		"c54fdbf1833ae1d22cd65fd7134c1856f44c495d7b5d324a1bee121e64a79923",
		hex.EncodeToString(tree.HashFromKVPairs(pairs, KeyOrderByHash)))

	// input order does not matter, and the input is not reordered
	reversed := []KVPair{pairs[2], pairs[1], pairs[0]}
	assert.Equal(t, tree.HashFromKVPairs(pairs, KeyOrderByName), tree.HashFromKVPairs(reversed, KeyOrderByName))
	assert.Equal(t, "b", pairs[0].Key)
}

func TestGoWireKVPairLeaves(t *testing.T) {
	pairs := []KVPair{
		{Key: "b", Value: []byte{2}},
		{Key: "a", Value: []byte{1}},
		{Key: "c", Value: []byte{3}},
	}
	tree := RIPEMD160Tree()

	assert.Equal(t,
		"cbf6c0ed23f133ff4936f6667664dad6cacf5992",
		hex.EncodeToString(tree.HashFromKVPairs(pairs, KeyOrderByName)))
	assert.Equal(t,
		"9acda94545bf52609ad64cb240cafaaa91e7910b",
		hex.EncodeToString(tree.HashFromKVPairs(pairs, KeyOrderByHash)))

	// the value is appended to the length-prefixed key without its own prefix
	leaf := tmhash.SumRipemd160([]byte{0x01, 'a', 0x01})
	assert.Equal(t, leaf, tree.HashFromKVPairs(pairs[1:2], KeyOrderByName))
	assert.Nil(t, tree.HashFromKVPairs(nil, KeyOrderByName))
}

func TestHashFromMapMatchesPairs(t *testing.T) {
	m := map[string][]byte{
		"ChainID": []byte("chain"),
		"Height":  {0x01, 0x05},
		"App":     nil,
	}
	pairs := []KVPair{
		{Key: "App", Value: nil},
		{Key: "ChainID", Value: []byte("chain")},
		{Key: "Height", Value: []byte{0x01, 0x05}},
	}

	tree := RIPEMD160Tree()
	for _, order := range []KeyOrder{KeyOrderByName, KeyOrderByHash} {
		assert.Equal(t, tree.HashFromKVPairs(pairs, order), tree.HashFromMap(m, order))
	}
}
