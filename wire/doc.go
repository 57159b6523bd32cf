// Package wire implements the integer and byte-buffer primitives that every
// canonical encoder in lightnode is built from.
//
// Integers that take part in hashing are bounded by MaxSafeInteger (2^53-1).
// Checked encoders reject negative values and values above the ceiling so a
// header accepted here hashes identically on every client of the chain,
// including clients with 53-bit integer precision. The Append* helpers are
// unchecked and write raw 64-bit values; they are used for fields that are
// plain uint64 casts on the wire, such as amino timestamp seconds.
package wire
