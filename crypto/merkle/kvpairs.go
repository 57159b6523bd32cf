package merkle

import (
	"bytes"
	"sort"

	"github.com/tendermint/lightnode/wire"
)

// KeyOrder selects how key/value pairs are ordered before they are hashed.
type KeyOrder int

const (
	// KeyOrderByName sorts pairs lexicographically by key.
	KeyOrderByName KeyOrder = iota
	// KeyOrderByHash sorts pairs by the digest of their key.
	KeyOrderByHash
)

// KVPair is a named leaf. The leaf bytes are the length-prefixed key
// followed by the length-prefixed value. In a go-wire tree Value already
// holds the value's binary encoding and is appended as is, so the leaf hash
// is H(uvarint(len(key)) || key || value).
type KVPair struct {
	Key   string
	Value []byte
}

func (t Tree) kvLeafHash(kv KVPair) []byte {
	bz := wire.EncodeString(kv.Key)
	if t.GoWire {
		return t.Sum(append(bz, kv.Value...))
	}
	return t.LeafHash(wire.AppendByteSlice(bz, kv.Value))
}

// HashFromKVPairs sorts a copy of pairs by order and returns the root of
// the tree over their encodings.
func (t Tree) HashFromKVPairs(pairs []KVPair, order KeyOrder) []byte {
	sorted := make([]KVPair, len(pairs))
	copy(sorted, pairs)

	switch order {
	case KeyOrderByHash:
		keyHashes := make(map[string][]byte, len(sorted))
		for _, kv := range sorted {
			keyHashes[kv.Key] = t.Sum([]byte(kv.Key))
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return bytes.Compare(keyHashes[sorted[i].Key], keyHashes[sorted[j].Key]) < 0
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Key < sorted[j].Key
		})
	}

	leaves := make([][]byte, len(sorted))
	for i, kv := range sorted {
		leaves[i] = t.kvLeafHash(kv)
	}
	return t.hashFromLeafHashes(leaves)
}

// HashFromMap is HashFromKVPairs over the entries of m.
func (t Tree) HashFromMap(m map[string][]byte, order KeyOrder) []byte {
	pairs := make([]KVPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, KVPair{Key: k, Value: v})
	}
	return t.HashFromKVPairs(pairs, order)
}
