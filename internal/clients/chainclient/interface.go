package chainclient

import (
	"context"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// KeyedAccount is a raw account returned by a program scan.
type KeyedAccount struct {
	Key  types.PublicKey
	Data []byte
}

// Filter narrows a program scan. Exactly one of DataSize and Memcmp is set.
type Filter struct {
	DataSize uint64
	Memcmp   *Memcmp
}

type Memcmp struct {
	Offset uint64
	Bytes  []byte
}

func DataSizeFilter(size uint64) Filter {
	return Filter{DataSize: size}
}

func MemcmpFilter(offset uint64, b []byte) Filter {
	return Filter{Memcmp: &Memcmp{Offset: offset, Bytes: b}}
}

type ChainInterface interface {
	// GetAccountInfo returns types.ErrAccountNotFound when the account does not exist.
	GetAccountInfo(ctx context.Context, key types.PublicKey) ([]byte, error)
	// GetMultipleAccounts returns one entry per key, nil for missing accounts.
	GetMultipleAccounts(ctx context.Context, keys []types.PublicKey) ([][]byte, error)
	GetProgramAccounts(ctx context.Context, program types.PublicKey, filters ...Filter) ([]KeyedAccount, error)
	GetTokenSupply(ctx context.Context, mint types.PublicKey) (math.Int, error)
	// GetTokenLargestAccounts lists token accounts of a mint, largest balance first.
	GetTokenLargestAccounts(ctx context.Context, mint types.PublicKey) ([]types.PublicKey, error)
}
