package services

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/decoder"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

// OwnerResolver maps positions to the wallet holding their position token.
// Resolved owners are cached across refresh cycles.
type OwnerResolver struct {
	chain       chainclient.ChainInterface
	cache       *lru.Cache[types.PublicKey, types.PublicKey]
	parallelism int
}

func NewOwnerResolver(chain chainclient.ChainInterface, cacheSize, parallelism int) (*OwnerResolver, error) {
	cache, err := lru.New[types.PublicKey, types.PublicKey](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner cache: %w", err)
	}
	return &OwnerResolver{
		chain:       chain,
		cache:       cache,
		parallelism: max(parallelism, 1),
	}, nil
}

// Resolve returns the owner of every position it could resolve. Positions
// whose token has no holder are left out; ledger errors abort the call.
func (r *OwnerResolver) Resolve(
	ctx context.Context, positions []types.PositionRecord,
) (map[types.PublicKey]types.PublicKey, error) {
	owners := make(map[types.PublicKey]types.PublicKey, len(positions))
	var misses []types.PositionRecord
	for _, p := range positions {
		if owner, ok := r.cache.Get(p.Key); ok {
			owners[p.Key] = owner
			continue
		}
		misses = append(misses, p)
	}
	if len(misses) == 0 {
		return owners, nil
	}

	tokenAccounts, err := r.tokenAccounts(ctx, misses)
	if err != nil {
		return nil, err
	}

	var lookup []types.PublicKey
	var lookupPositions []types.PublicKey
	for i, acc := range tokenAccounts {
		if acc.IsZero() {
			continue
		}
		lookup = append(lookup, acc)
		lookupPositions = append(lookupPositions, misses[i].Key)
	}

	data, err := r.chain.GetMultipleAccounts(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position token accounts: %w", err)
	}
	for i, raw := range data {
		if raw == nil {
			continue
		}
		owner, err := decoder.DecodeTokenAccountOwner(raw)
		if err != nil {
			return nil, fmt.Errorf("token account %s: %w", lookup[i], err)
		}
		owners[lookupPositions[i]] = owner
		r.cache.Add(lookupPositions[i], owner)
	}

	log.Ctx(ctx).Debug().
		Int("cached", len(positions)-len(misses)).
		Int("fetched", len(misses)).
		Int("resolved", len(owners)).
		Msg("Resolved position owners")
	return owners, nil
}

// tokenAccounts finds the token account holding each position mint. The zero
// key marks mints without a holder.
func (r *OwnerResolver) tokenAccounts(ctx context.Context, positions []types.PositionRecord) ([]types.PublicKey, error) {
	out := make([]types.PublicKey, len(positions))

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(r.parallelism).
		WithCancelOnError().
		WithFirstError()
	for i, pos := range positions {
		p.Go(func(ctx context.Context) error {
			accounts, err := r.chain.GetTokenLargestAccounts(ctx, pos.Mint)
			if err != nil {
				return fmt.Errorf("position %s: %w", pos.Key, err)
			}
			if len(accounts) > 0 {
				out[i] = accounts[0]
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops cached owners of positions that no longer exist.
func (r *OwnerResolver) Forget(keys []types.PublicKey) {
	for _, k := range keys {
		r.cache.Remove(k)
	}
}

func (r *OwnerResolver) Len() int {
	return r.cache.Len()
}
