package merkle

import (
	"hash"
	"math/bits"

	"github.com/tendermint/lightnode/crypto/tmhash"
	"github.com/tendermint/lightnode/wire"
)

var (
	leafPrefix  = []byte{0}
	innerPrefix = []byte{1}
)

// SplitRule returns the size of the left subtree for a tree of n > 1 leaves.
type SplitRule func(n int) int

// SplitPowerOfTwo returns the largest power of 2 less than n. Tendermint
// v0.33 and later split this way.
func SplitPowerOfTwo(n int) int {
	if n < 1 {
		panic("Trying to split a tree with size < 1")
	}
	uLength := uint(n)
	bitlen := bits.Len(uLength)
	k := 1 << uint(bitlen-1)
	if k == n {
		k >>= 1
	}
	return k
}

// SplitHalfCeil returns ceil(n/2), the rule of the go-wire era SimpleTree.
func SplitHalfCeil(n int) int {
	if n < 1 {
		panic("Trying to split a tree with size < 1")
	}
	return (n + 1) / 2
}

// Tree is a binary Merkle tree parameterised by its digest and split rule.
// Leaves are hashed as H(0x00 || leaf) and inner nodes as
// H(0x01 || left || right). The tree of zero leaves hashes to H("").
//
// With GoWire set the tree follows go-wire's SimpleTree instead: leaves are
// H(leaf), inner nodes are H(uvarint(len(left)) || left ||
// uvarint(len(right)) || right) and the tree of zero leaves has a nil root.
type Tree struct {
	NewHash func() hash.Hash
	Split   SplitRule
	GoWire  bool
}

// SHA256Tree is the tree of Tendermint v0.33 and later.
func SHA256Tree() Tree {
	return Tree{NewHash: tmhash.New, Split: SplitPowerOfTwo}
}

// RIPEMD160Tree is the go-wire era SimpleTree.
func RIPEMD160Tree() Tree {
	return Tree{NewHash: tmhash.NewRipemd160, Split: SplitHalfCeil, GoWire: true}
}

// Sum returns H(bz).
func (t Tree) Sum(bz []byte) []byte {
	h := t.NewHash()
	h.Write(bz) //nolint:errcheck // never fails
	return h.Sum(nil)
}

// EmptyHash returns H(""), or nil for a go-wire tree.
func (t Tree) EmptyHash() []byte {
	if t.GoWire {
		return nil
	}
	return t.NewHash().Sum(nil)
}

// LeafHash returns H(0x00 || leaf), or H(leaf) for a go-wire tree.
func (t Tree) LeafHash(leaf []byte) []byte {
	if t.GoWire {
		return t.Sum(leaf)
	}
	h := t.NewHash()
	h.Write(leafPrefix) //nolint:errcheck // never fails
	h.Write(leaf)       //nolint:errcheck // never fails
	return h.Sum(nil)
}

// InnerHash returns H(0x01 || left || right). A go-wire tree length-prefixes
// both children instead.
func (t Tree) InnerHash(left []byte, right []byte) []byte {
	if t.GoWire {
		bz := wire.EncodeByteSlice(left)
		return t.Sum(wire.AppendByteSlice(bz, right))
	}
	h := t.NewHash()
	h.Write(innerPrefix) //nolint:errcheck // never fails
	h.Write(left)        //nolint:errcheck // never fails
	h.Write(right)       //nolint:errcheck // never fails
	return h.Sum(nil)
}

// HashFromByteSlices computes a Merkle tree where the leaves are the byte
// slice, in the provided order.
func (t Tree) HashFromByteSlices(items [][]byte) []byte {
	leaves := make([][]byte, len(items))
	for i, item := range items {
		leaves[i] = t.LeafHash(item)
	}
	return t.hashFromLeafHashes(leaves)
}

func (t Tree) hashFromLeafHashes(leaves [][]byte) []byte {
	switch len(leaves) {
	case 0:
		return t.EmptyHash()
	case 1:
		return leaves[0]
	default:
		k := t.Split(len(leaves))
		left := t.hashFromLeafHashes(leaves[:k])
		right := t.hashFromLeafHashes(leaves[k:])
		return t.InnerHash(left, right)
	}
}

// HashFromByteSlices computes the SHA-256 Merkle root of items using the
// power-of-two split.
func HashFromByteSlices(items [][]byte) []byte {
	return SHA256Tree().HashFromByteSlices(items)
}
