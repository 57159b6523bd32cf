package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tendermint/lightnode/crypto"
	"github.com/tendermint/lightnode/crypto/ed25519"
	"github.com/tendermint/lightnode/crypto/secp256k1"
)

// pubKeyJSON is the tagged form of a public key in Tendermint RPC responses.
type pubKeyJSON struct {
	Type  string `json:"type"`
	Value []byte `json:"value"`
}

// PubKeyFromTypeAndBytes builds a public key of the named type. Both the
// registered JSON names and the short key type names are accepted.
func PubKeyFromTypeAndBytes(keyType string, bz []byte) (crypto.PubKey, error) {
	switch keyType {
	case ed25519.PubKeyName, ed25519.KeyType:
		if len(bz) != ed25519.PubKeySize {
			return nil, crypto.ErrInvalidKeySize{Type: ed25519.KeyType, Got: len(bz), Expected: ed25519.PubKeySize}
		}
		pk := make(ed25519.PubKey, ed25519.PubKeySize)
		copy(pk, bz)
		return pk, nil
	case secp256k1.PubKeyName, secp256k1.KeyType:
		if len(bz) != secp256k1.PubKeySize {
			return nil, crypto.ErrInvalidKeySize{Type: secp256k1.KeyType, Got: len(bz), Expected: secp256k1.PubKeySize}
		}
		pk := make(secp256k1.PubKey, secp256k1.PubKeySize)
		copy(pk, bz)
		return pk, nil
	default:
		return nil, crypto.ErrUnknownKeyType{Type: keyType}
	}
}

// PubKeyFromJSON decodes {"type": ..., "value": base64}. JSON null decodes
// to a nil key.
func PubKeyFromJSON(bz []byte) (crypto.PubKey, error) {
	if bytes.Equal(bytes.TrimSpace(bz), []byte("null")) {
		return nil, nil
	}
	var pkj pubKeyJSON
	if err := json.Unmarshal(bz, &pkj); err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	return PubKeyFromTypeAndBytes(pkj.Type, pkj.Value)
}

// PubKeyToJSON is the inverse of PubKeyFromJSON.
func PubKeyToJSON(pk crypto.PubKey) ([]byte, error) {
	if pk == nil {
		return []byte("null"), nil
	}
	var name string
	switch pk.(type) {
	case ed25519.PubKey:
		name = ed25519.PubKeyName
	case secp256k1.PubKey:
		name = secp256k1.PubKeyName
	default:
		return nil, crypto.ErrUnknownKeyType{Type: pk.Type()}
	}
	return json.Marshal(pubKeyJSON{Type: name, Value: pk.Bytes()})
}
