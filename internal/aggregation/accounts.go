package aggregation

import (
	"fmt"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

func addToAccount(accounts map[types.PublicKey]*types.Account, p *types.Position, sub types.SubNetwork) error {
	acc, ok := accounts[p.Owner]
	if !ok {
		acc = &types.Account{
			Owner:     p.Owner,
			Balances:  types.NewLockedBalances(),
			Positions: make(map[types.Grouping][]types.PublicKey),
		}
		accounts[p.Owner] = acc
	}
	acc.Positions[p.Grouping] = append(acc.Positions[p.Grouping], p.Key)

	if err := addBalance(acc.Balances.Grouping(p.Grouping), p); err != nil {
		return fmt.Errorf("balance of %s: %w", p.Owner, err)
	}
	if p.Grouping != types.GroupingVeHnt {
		return nil
	}

	var err error
	switch sub {
	case types.SubNetworkIot:
		if err = addBalance(&acc.Balances.IotDelegated, p); err == nil {
			acc.Balances.PendingIotRewards, err = addUint64(acc.Balances.PendingIotRewards, p.Delegation.PendingRewards)
		}
	case types.SubNetworkMobile:
		if err = addBalance(&acc.Balances.MobileDelegated, p); err == nil {
			acc.Balances.PendingMobileRewards, err = addUint64(acc.Balances.PendingMobileRewards, p.Delegation.PendingRewards)
		}
	default:
		err = addBalance(&acc.Balances.Undelegated, p)
	}
	if err != nil {
		return fmt.Errorf("balance of %s: %w", p.Owner, err)
	}
	return nil
}

func addBalance(b *types.Balance, p *types.Position) error {
	locked, err := addUint64(b.LockedTokens, p.LockedTokens)
	if err != nil {
		return err
	}
	b.LockedTokens = locked
	b.VotingWeight = orZero(b.VotingWeight).Add(orZero(p.VotingWeight))
	return nil
}
