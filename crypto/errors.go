package crypto

import "fmt"

// ErrUnknownKeyType is returned when a public key of an unsupported type is
// encoded, decoded or used to derive an address.
type ErrUnknownKeyType struct {
	Type string
}

func (e ErrUnknownKeyType) Error() string {
	return fmt.Sprintf("unknown public key type %q", e.Type)
}

// ErrInvalidKeySize is returned when a key has the wrong number of bytes for
// its type.
type ErrInvalidKeySize struct {
	Type     string
	Got      int
	Expected int
}

func (e ErrInvalidKeySize) Error() string {
	return fmt.Sprintf("invalid %s key size: got %d, expected %d", e.Type, e.Got, e.Expected)
}
