package types

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
)

var (
	TokenProgramID           = MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustParsePublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

var errNoViableBump = errors.New("no viable bump seed for program address")

const pdaMarker = "ProgramDerivedAddress"

// FindProgramAddress derives the program address for seeds, searching bump
// seeds downwards from 255 until the hash is not a valid curve point.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program[:])
		h.Write([]byte(pdaMarker))

		var key PublicKey
		copy(key[:], h.Sum(nil))
		if _, err := new(edwards25519.Point).SetBytes(key[:]); err != nil {
			return key, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, errNoViableBump
}

// AssociatedTokenAddress returns the canonical token account of wallet for mint.
func AssociatedTokenAddress(wallet, mint PublicKey) (PublicKey, error) {
	key, _, err := FindProgramAddress(
		[][]byte{wallet[:], TokenProgramID[:], mint[:]},
		AssociatedTokenProgramID,
	)
	return key, err
}
