package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns empty string
func RandomAlphaNum(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	randomString := make([]byte, length)
	for i := range randomString {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		randomString[i] = charset[num.Int64()]
	}

	return string(randomString), nil
}

func RandomPublicKey() types.PublicKey {
	var key types.PublicKey
	for i := range key {
		key[i] = gofakeit.Uint8()
	}
	return key
}

// RandomPosition returns a cliff position owned by owner with the given
// weight and locked amount; other fields are random.
func RandomPosition(owner types.PublicKey, weight, locked uint64) *types.Position {
	start := int64(gofakeit.IntRange(1_600_000_000, 1_700_000_000))
	duration := int64(gofakeit.IntRange(86400, 4*365*86400))
	return &types.Position{
		Key:          RandomPublicKey(),
		Mint:         RandomPublicKey(),
		Owner:        owner,
		LockedTokens: locked,
		StartTs:      start,
		EndTs:        start + duration,
		Duration:     duration,
		LockupKind:   types.LockupKindCliff,
		VotingWeight: math.NewIntFromUint64(weight),
		Info:         types.ZeroWeightInfo(),
	}
}
