package chainclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

type ChainClient struct {
	httpClient *http.Client
	cfg        *config.ChainConfig
}

func NewChainClient(cfg *config.ChainConfig) *ChainClient {
	return &ChainClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

func (c *ChainClient) GetAccountInfo(ctx context.Context, key types.PublicKey) ([]byte, error) {
	callForAccount := func() (contextValue[*encodedAccount], error) {
		return call[contextValue[*encodedAccount]](ctx, c.httpClient, c.cfg.RPCAddr,
			"getAccountInfo", key.String(), base64Encoding)
	}

	res, err := clientCallWithRetry(ctx, callForAccount, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", key, err)
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAccountNotFound, key)
	}
	return res.Value.decode()
}

// GetMultipleAccounts splits keys into batches of cfg.BatchSize and fetches
// them concurrently, preserving input order.
func (c *ChainClient) GetMultipleAccounts(ctx context.Context, keys []types.PublicKey) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(c.cfg.Parallelism).
		WithCancelOnError().
		WithFirstError()

	for start := 0; start < len(keys); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(keys))
		p.Go(func(ctx context.Context) error {
			return c.fetchBatch(ctx, keys[start:end], out[start:end])
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChainClient) fetchBatch(ctx context.Context, keys []types.PublicKey, dst [][]byte) error {
	encoded := make([]string, len(keys))
	for i, k := range keys {
		encoded[i] = k.String()
	}

	callForAccounts := func() (contextValue[[]*encodedAccount], error) {
		return call[contextValue[[]*encodedAccount]](ctx, c.httpClient, c.cfg.RPCAddr,
			"getMultipleAccounts", encoded, base64Encoding)
	}

	res, err := clientCallWithRetry(ctx, callForAccounts, c.cfg)
	if err != nil {
		return fmt.Errorf("failed to get %d accounts: %w", len(keys), err)
	}
	if len(res.Value) != len(keys) {
		return fmt.Errorf("%w: getMultipleAccounts returned %d accounts for %d keys",
			types.ErrDecode, len(res.Value), len(keys))
	}

	for i, acc := range res.Value {
		if acc == nil {
			continue
		}
		data, err := acc.decode()
		if err != nil {
			return fmt.Errorf("account %s: %w", keys[i], err)
		}
		dst[i] = data
	}
	return nil
}

func (c *ChainClient) GetProgramAccounts(
	ctx context.Context, program types.PublicKey, filters ...Filter,
) ([]KeyedAccount, error) {
	encodedFilters := make([]map[string]any, 0, len(filters))
	for _, f := range filters {
		if f.Memcmp != nil {
			encodedFilters = append(encodedFilters, map[string]any{
				"memcmp": map[string]any{
					"offset": f.Memcmp.Offset,
					"bytes":  base58.Encode(f.Memcmp.Bytes),
				},
			})
			continue
		}
		encodedFilters = append(encodedFilters, map[string]any{"dataSize": f.DataSize})
	}
	opts := map[string]any{
		"encoding": "base64",
		"filters":  encodedFilters,
	}

	callForProgramAccounts := func() ([]keyedEncodedAccount, error) {
		return call[[]keyedEncodedAccount](ctx, c.httpClient, c.cfg.RPCAddr,
			"getProgramAccounts", program.String(), opts)
	}

	res, err := clientCallWithRetry(ctx, callForProgramAccounts, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to scan program %s: %w", program, err)
	}

	accounts := make([]KeyedAccount, 0, len(res))
	for _, acc := range res {
		key, err := types.ParsePublicKey(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("%w: program account key: %w", types.ErrDecode, err)
		}
		data, err := acc.Account.decode()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", key, err)
		}
		accounts = append(accounts, KeyedAccount{Key: key, Data: data})
	}
	return accounts, nil
}

func (c *ChainClient) GetTokenSupply(ctx context.Context, mint types.PublicKey) (math.Int, error) {
	callForSupply := func() (contextValue[tokenAmount], error) {
		return call[contextValue[tokenAmount]](ctx, c.httpClient, c.cfg.RPCAddr,
			"getTokenSupply", mint.String())
	}

	res, err := clientCallWithRetry(ctx, callForSupply, c.cfg)
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to get token supply of %s: %w", mint, err)
	}

	supply, ok := math.NewIntFromString(res.Value.Amount)
	if !ok {
		return math.Int{}, fmt.Errorf("%w: token supply %q", types.ErrDecode, res.Value.Amount)
	}
	return supply, nil
}

func (c *ChainClient) GetTokenLargestAccounts(ctx context.Context, mint types.PublicKey) ([]types.PublicKey, error) {
	callForLargest := func() (contextValue[[]tokenAccountBalance], error) {
		return call[contextValue[[]tokenAccountBalance]](ctx, c.httpClient, c.cfg.RPCAddr,
			"getTokenLargestAccounts", mint.String())
	}

	res, err := clientCallWithRetry(ctx, callForLargest, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts of %s: %w", mint, err)
	}

	keys := make([]types.PublicKey, 0, len(res.Value))
	for _, acc := range res.Value {
		key, err := types.ParsePublicKey(acc.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: token account address: %w", types.ErrDecode, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func clientCallWithRetry[T any](
	ctx context.Context, call retry.RetryableFuncWithData[T], cfg *config.ChainConfig,
) (T, error) {
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Err(err).
				Msg("failed to call the ledger RPC")
		}))
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
