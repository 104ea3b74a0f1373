package chainclient

import (
	"context"
	"time"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

type chainClientWithMetrics struct {
	chain ChainInterface
}

func NewChainClientWithMetrics(chain ChainInterface) *chainClientWithMetrics {
	return &chainClientWithMetrics{chain: chain}
}

func (c *chainClientWithMetrics) GetAccountInfo(ctx context.Context, key types.PublicKey) ([]byte, error) {
	return runChainClientMethodWithMetrics("GetAccountInfo", func() ([]byte, error) {
		return c.chain.GetAccountInfo(ctx, key)
	})
}

func (c *chainClientWithMetrics) GetMultipleAccounts(ctx context.Context, keys []types.PublicKey) ([][]byte, error) {
	return runChainClientMethodWithMetrics("GetMultipleAccounts", func() ([][]byte, error) {
		return c.chain.GetMultipleAccounts(ctx, keys)
	})
}

func (c *chainClientWithMetrics) GetProgramAccounts(
	ctx context.Context, program types.PublicKey, filters ...Filter,
) ([]KeyedAccount, error) {
	return runChainClientMethodWithMetrics("GetProgramAccounts", func() ([]KeyedAccount, error) {
		return c.chain.GetProgramAccounts(ctx, program, filters...)
	})
}

func (c *chainClientWithMetrics) GetTokenSupply(ctx context.Context, mint types.PublicKey) (math.Int, error) {
	return runChainClientMethodWithMetrics("GetTokenSupply", func() (math.Int, error) {
		return c.chain.GetTokenSupply(ctx, mint)
	})
}

func (c *chainClientWithMetrics) GetTokenLargestAccounts(ctx context.Context, mint types.PublicKey) ([]types.PublicKey, error) {
	return runChainClientMethodWithMetrics("GetTokenLargestAccounts", func() ([]types.PublicKey, error) {
		return c.chain.GetTokenLargestAccounts(ctx, mint)
	})
}

func runChainClientMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	metrics.RecordChainClientLatency(duration, method, err != nil)
	return v, err
}
