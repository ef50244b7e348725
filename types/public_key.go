package types

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the size of a classical (Ed25519) key identifying owners, assets and authorities
const PublicKeySize = ed25519.PublicKeySize

// PublicKey is a 32 byte classical key, base58 encoded on the wire
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a base58 encoded 32 byte key
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, ErrInvalidPublicKey
	}
	if len(decoded) != PublicKeySize {
		return pk, ErrInvalidPublicKey
	}
	copy(pk[:], decoded)
	return pk, nil
}

// PublicKeyFromEd25519 converts an ed25519 public key
func PublicKeyFromEd25519(key ed25519.PublicKey) (PublicKey, error) {
	var pk PublicKey
	if len(key) != PublicKeySize {
		return pk, ErrInvalidPublicKey
	}
	copy(pk[:], key)
	return pk, nil
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
