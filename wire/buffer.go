package wire

import "encoding/binary"

// Typ3 values used in field keys.
const (
	TypeVarint     = 0
	Type8Byte      = 1
	TypeByteLength = 2
	TypeStruct     = 3
	TypeStructTerm = 4
	Type4Byte      = 5
	TypeInterface  = 7
)

// StructTerm closes a struct in the amino 0.9 binary format.
const StructTerm = 0x04

// AppendFieldKey appends the key of field num with wire type typ.
func AppendFieldKey(dst []byte, num int, typ byte) []byte {
	return AppendUvarint(dst, uint64(num)<<3|uint64(typ))
}

// AppendByteSlice appends bz prefixed by its uvarint length.
func AppendByteSlice(dst, bz []byte) []byte {
	dst = AppendUvarint(dst, uint64(len(bz)))
	return append(dst, bz...)
}

// AppendString appends s prefixed by its uvarint length.
func AppendString(dst []byte, s string) []byte {
	dst = AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// EncodeByteSlice returns bz prefixed by its uvarint length.
func EncodeByteSlice(bz []byte) []byte {
	return AppendByteSlice(make([]byte, 0, UvarintSize(uint64(len(bz)))+len(bz)), bz)
}

// EncodeString returns s prefixed by its uvarint length.
func EncodeString(s string) []byte {
	return AppendString(make([]byte, 0, UvarintSize(uint64(len(s)))+len(s)), s)
}

func AppendUint64BE(dst []byte, x uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	return append(dst, buf[:]...)
}

func AppendUint32BE(dst []byte, x uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], x)
	return append(dst, buf[:]...)
}

func AppendUint64LE(dst []byte, x uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	return append(dst, buf[:]...)
}
