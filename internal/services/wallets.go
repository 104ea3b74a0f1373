package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/decoder"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

// WalletReader reads the liquid network and sub-network token balances of
// an owner straight from the ledger.
type WalletReader struct {
	chain chainclient.ChainInterface
	keys  *config.ProgramKeys
}

func NewWalletReader(chain chainclient.ChainInterface, keys *config.ProgramKeys) *WalletReader {
	return &WalletReader{chain: chain, keys: keys}
}

// WalletBalances fetches the three associated token accounts of owner in
// parallel. A missing token account is a zero balance.
func (w *WalletReader) WalletBalances(ctx context.Context, owner types.PublicKey) (types.WalletBalances, error) {
	out := types.WalletBalances{
		Hnt:    types.TokenBalance{Mint: w.keys.NetworkMint, Decimals: types.NetworkTokenDecimals},
		Iot:    types.TokenBalance{Mint: w.keys.IotMint, Decimals: types.SubNetworkTokenDecimals},
		Mobile: types.TokenBalance{Mint: w.keys.MobileMint, Decimals: types.SubNetworkTokenDecimals},
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, bal := range []*types.TokenBalance{&out.Hnt, &out.Iot, &out.Mobile} {
		p.Go(func(ctx context.Context) error {
			amount, err := w.balance(ctx, owner, bal.Mint)
			if err != nil {
				return err
			}
			bal.Amount = amount
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return types.WalletBalances{}, err
	}
	return out, nil
}

func (w *WalletReader) balance(ctx context.Context, owner, mint types.PublicKey) (uint64, error) {
	ata, err := types.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("token account of %s for mint %s: %w", owner, mint, err)
	}
	data, err := w.chain.GetAccountInfo(ctx, ata)
	if errors.Is(err, types.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch token account %s: %w", ata, err)
	}
	amount, err := decoder.DecodeTokenAccountAmount(data)
	if err != nil {
		return 0, fmt.Errorf("token account %s: %w", ata, err)
	}
	return amount, nil
}
