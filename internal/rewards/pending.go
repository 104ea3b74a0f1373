package rewards

import (
	"fmt"
	"math/big"

	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

// PendingReward sums the delegation rewards a position accrued in every
// complete epoch after its last claimed one. Each epoch pays the position's
// share of the sub-network weight at epoch start times the rewards issued.
func PendingReward(
	d types.Delegation,
	rec types.PositionRecord,
	cfg types.VotingMintConfig,
	epochs []types.EpochSummary,
) (uint64, error) {
	if d.SubNetwork != types.SubNetworkIot && d.SubNetwork != types.SubNetworkMobile {
		return 0, fmt.Errorf("%w: %q on delegation %s", types.ErrUnknownSubNetwork, d.SubNetwork, d.Key)
	}

	last, ok := LastCompleteEpoch(epochs)
	if !ok {
		return 0, nil
	}
	first := max(d.LastClaimedEpoch+1, types.FirstRewardableEpoch)
	if first > last {
		return 0, nil
	}

	base := epochs[0].Epoch
	if first < base {
		return 0, fmt.Errorf("%w: history starts at %d, need %d", types.ErrNonContiguousEpochs, base, first)
	}

	total := new(big.Int)
	for epoch := first; epoch <= last; epoch++ {
		idx := epoch - base
		if idx >= uint64(len(epochs)) || epochs[idx].Epoch != epoch {
			return 0, fmt.Errorf("%w: expected epoch %d at index %d", types.ErrNonContiguousEpochs, epoch, idx)
		}
		reward, err := epochReward(d, rec, cfg, epochs[idx])
		if err != nil {
			return 0, err
		}
		total.Add(total, reward)
	}

	if !total.IsUint64() {
		return 0, fmt.Errorf("%w: pending rewards of %s", types.ErrNumericOverflow, d.Key)
	}
	return total.Uint64(), nil
}

func epochReward(
	d types.Delegation, rec types.PositionRecord, cfg types.VotingMintConfig, summary types.EpochSummary,
) (*big.Int, error) {
	sub, _ := summary.SubNetwork(d.SubNetwork)
	if sub.VotingWeightAtEpochStart == 0 {
		return nil, fmt.Errorf("%w: epoch %d, %s", types.ErrZeroEpochWeight, summary.Epoch, d.SubNetwork)
	}
	if summary.StartTs == nil {
		return nil, fmt.Errorf("%w: epoch %d", types.ErrMissingEpochStart, summary.Epoch)
	}

	w, err := vsr.WeightAt(rec, cfg, *summary.StartTs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute weight at epoch %d: %w", summary.Epoch, err)
	}

	reward := vsr.ScaleDown(w).BigInt()
	reward.Mul(reward, new(big.Int).SetUint64(sub.DelegationRewardsIssued))
	reward.Quo(reward, new(big.Int).SetUint64(sub.VotingWeightAtEpochStart))
	return reward, nil
}

// LastCompleteEpoch returns the newest epoch whose rewards are final. Anything
// after it in the history is still in progress.
func LastCompleteEpoch(epochs []types.EpochSummary) (uint64, bool) {
	for i := len(epochs) - 1; i >= 0; i-- {
		if epochs[i].Complete() {
			return epochs[i].Epoch, true
		}
	}
	return 0, false
}
