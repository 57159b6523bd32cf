package wire

import (
	"fmt"
	"math/bits"
)

// MaxSafeInteger is the largest integer accepted by the checked encoders.
const MaxSafeInteger = 1<<53 - 1

// CheckInteger returns an error unless 0 <= n <= MaxSafeInteger.
func CheckInteger(n int64) error {
	if n < 0 {
		return fmt.Errorf("%d: %w", n, ErrNegativeInteger)
	}
	if n > MaxSafeInteger {
		return fmt.Errorf("%d: %w", n, ErrIntegerOverflow)
	}
	return nil
}

// AppendUvarint appends the protobuf base-128 encoding of x to dst.
func AppendUvarint(dst []byte, x uint64) []byte {
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}
	return append(dst, byte(x))
}

// UvarintSize returns the number of bytes AppendUvarint writes for x.
func UvarintSize(x uint64) int {
	return (bits.Len64(x|1) + 6) / 7
}

// EncodeUvarint returns the base-128 encoding of n.
func EncodeUvarint(n int64) ([]byte, error) {
	if err := CheckInteger(n); err != nil {
		return nil, err
	}
	return AppendUvarint(make([]byte, 0, UvarintSize(uint64(n))), uint64(n)), nil
}

// UvarintLength returns len(EncodeUvarint(n)) for n in the checked domain.
func UvarintLength(n int64) int {
	return UvarintSize(uint64(n))
}

// AppendVarint appends the zigzag base-128 encoding of x to dst.
func AppendVarint(dst []byte, x int64) []byte {
	return AppendUvarint(dst, uint64(x<<1)^uint64(x>>63))
}

// EncodeVarint returns the zigzag encoding of n. Its domain is
// [-MaxSafeInteger, MaxSafeInteger].
func EncodeVarint(n int64) ([]byte, error) {
	if n < -MaxSafeInteger || n > MaxSafeInteger {
		return nil, fmt.Errorf("%d: %w", n, ErrIntegerOverflow)
	}
	return AppendVarint(nil, n), nil
}

// EncodeSizedVarint returns the go-wire encoding of n: one byte holding the
// number of magnitude bytes, followed by the magnitude in big-endian order.
// Zero is the single byte 0x00.
func EncodeSizedVarint(n int64) ([]byte, error) {
	if err := CheckInteger(n); err != nil {
		return nil, err
	}
	size := SizedVarintLength(n) - 1
	bz := make([]byte, size+1)
	bz[0] = byte(size)
	for i := size; i > 0; i-- {
		bz[i] = byte(n)
		n >>= 8
	}
	return bz, nil
}

// SizedVarintLength returns len(EncodeSizedVarint(n)) for n in the checked
// domain.
func SizedVarintLength(n int64) int {
	return 1 + (bits.Len64(uint64(n))+7)/8
}
