package types

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

const PublicKeyLength = 32

// PublicKey is a ledger account address, rendered in base58.
type PublicKey [PublicKeyLength]byte

func ParsePublicKey(s string) (PublicKey, error) {
	var key PublicKey
	if s == "" {
		return key, fmt.Errorf("empty public key")
	}
	decoded := base58.Decode(s)
	if len(decoded) != PublicKeyLength {
		return key, fmt.Errorf("invalid public key %q: decoded length %d", s, len(decoded))
	}
	copy(key[:], decoded)
	return key, nil
}

// MustParsePublicKey panics on malformed input; only meant for constants.
func MustParsePublicKey(s string) PublicKey {
	key, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return key
}

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var key PublicKey
	if len(b) != PublicKeyLength {
		return key, fmt.Errorf("invalid public key length %d", len(b))
	}
	copy(key[:], b)
	return key, nil
}

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) Less(other PublicKey) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
