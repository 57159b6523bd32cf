package tmhash

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the legacy wire format
)

const (
	Size      = sha256.Size
	BlockSize = sha256.BlockSize

	// TruncatedSize is the size of a truncated SHA-256 and of a RIPEMD160 digest.
	TruncatedSize = 20
)

// New returns a new hash.Hash.
func New() hash.Hash {
	return sha256.New()
}

// Sum returns the SHA256 of the bz.
func Sum(bz []byte) []byte {
	h := sha256.Sum256(bz)
	return h[:]
}

// SumTruncated returns the first 20 bytes of SHA256 of the bz.
func SumTruncated(bz []byte) []byte {
	hash := sha256.Sum256(bz)
	return hash[:TruncatedSize]
}

// NewRipemd160 returns a RIPEMD160 hash.Hash, the digest of the legacy wire
// format.
func NewRipemd160() hash.Hash {
	return ripemd160.New()
}

// SumRipemd160 returns the RIPEMD160 of the bz.
func SumRipemd160(bz []byte) []byte {
	h := ripemd160.New()
	h.Write(bz) //nolint:errcheck // never fails
	return h.Sum(nil)
}
