package aggregation

import (
	"fmt"
	"math/bits"
	"sort"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// ComputeStats returns totals, averages and medians of a pool. The median is
// the element at count/2 once values are sorted descending. An empty pool
// yields zero stats.
func ComputeStats(positions []*types.Position) (types.PoolData, error) {
	data := types.PoolData{Total: types.NewTotals(), Stats: types.NewStats()}

	weights := make([]math.Int, 0, len(positions))
	locked := make([]uint64, 0, len(positions))
	lockups := make([]uint64, 0, len(positions))

	for _, p := range positions {
		var err error
		data.Total.Count++
		data.Total.VotingWeight = data.Total.VotingWeight.Add(orZero(p.VotingWeight))
		data.Total.FallRate = data.Total.FallRate.Add(orZero(p.Info.PreGenesisEndFallRate))
		if data.Total.LockedTokens, err = addUint64(data.Total.LockedTokens, p.LockedTokens); err != nil {
			return data, fmt.Errorf("locked tokens of %s: %w", p.Key, err)
		}
		lockup := lockupSeconds(p)
		if data.Total.Lockup, err = addUint64(data.Total.Lockup, lockup); err != nil {
			return data, fmt.Errorf("lockup of %s: %w", p.Key, err)
		}

		weights = append(weights, orZero(p.VotingWeight))
		locked = append(locked, p.LockedTokens)
		lockups = append(lockups, lockup)
	}

	count := data.Total.Count
	if count == 0 {
		return data, nil
	}

	data.Stats.AvgVotingWeight = data.Total.VotingWeight.Quo(math.NewIntFromUint64(count))
	data.Stats.AvgLockedTokens = data.Total.LockedTokens / count
	data.Stats.AvgLockup = data.Total.Lockup / count

	sort.SliceStable(weights, func(i, j int) bool { return weights[i].GT(weights[j]) })
	sort.SliceStable(locked, func(i, j int) bool { return locked[i] > locked[j] })
	sort.SliceStable(lockups, func(i, j int) bool { return lockups[i] > lockups[j] })

	mid := count / 2
	data.Stats.MedianVotingWeight = weights[mid]
	data.Stats.MedianLockedTokens = locked[mid]
	data.Stats.MedianLockup = lockups[mid]

	return data, nil
}

func lockupSeconds(p *types.Position) uint64 {
	if p.Duration <= 0 {
		return 0
	}
	return uint64(p.Duration)
}

func orZero(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}

func addUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, types.ErrNumericOverflow
	}
	return sum, nil
}
