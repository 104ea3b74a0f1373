package rewards

import (
	"fmt"
	"sort"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

type epochPair struct {
	iot    *types.SubNetworkEpochInfo
	mobile *types.SubNetworkEpochInfo
}

// BuildEpochSummaries joins both sub-networks' epoch records on the epoch
// index. Epochs not initialized on both sub-networks are left out. The last
// epoch's start is taken from the previous epoch's reward issuance, since the
// newest record has not issued rewards yet.
func BuildEpochSummaries(infos []types.SubNetworkEpochInfo) ([]types.EpochSummary, error) {
	pairs := make(map[uint64]*epochPair)
	for i := range infos {
		info := &infos[i]
		pair, ok := pairs[info.Epoch]
		if !ok {
			pair = &epochPair{}
			pairs[info.Epoch] = pair
		}
		switch info.SubNetwork {
		case types.SubNetworkIot:
			pair.iot = info
		case types.SubNetworkMobile:
			pair.mobile = info
		default:
			return nil, fmt.Errorf("%w: %q in epoch %d", types.ErrUnknownSubNetwork, info.SubNetwork, info.Epoch)
		}
	}

	summaries := make([]types.EpochSummary, 0, len(pairs))
	for epoch, pair := range pairs {
		if pair.iot == nil || pair.mobile == nil {
			continue
		}
		if !pair.iot.Initialized || !pair.mobile.Initialized {
			continue
		}
		summaries = append(summaries, summarize(epoch, pair))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Epoch < summaries[j].Epoch
	})

	if n := len(summaries); n >= 2 {
		summaries[n-1].StartTs = summaries[n-2].RewardsIssuedAt
	}
	return summaries, nil
}

func summarize(epoch uint64, pair *epochPair) types.EpochSummary {
	summary := types.EpochSummary{
		Epoch:           epoch,
		Iot:             subNetworkEpoch(pair.iot),
		Mobile:          subNetworkEpoch(pair.mobile),
		RewardsIssuedAt: pair.iot.RewardsIssuedAt,
	}
	if summary.RewardsIssuedAt == nil {
		summary.RewardsIssuedAt = pair.mobile.RewardsIssuedAt
	}
	if summary.RewardsIssuedAt != nil {
		start := types.EpochStart(epoch)
		summary.StartTs = &start
	}
	return summary
}

func subNetworkEpoch(info *types.SubNetworkEpochInfo) types.SubNetworkEpoch {
	return types.SubNetworkEpoch{
		DcBurned:                 info.DcBurned,
		VotingWeightAtEpochStart: info.VotingWeightAtEpochStart,
		DelegationRewardsIssued:  info.DelegationRewardsIssued,
		UtilityScore:             info.UtilityScore,
	}
}

// CurrentEpochEstimate synthesizes the epoch following the last known one
// from live sub-network weights, starting at now. Without any history the
// epoch containing now is used.
func CurrentEpochEstimate(epochs []types.EpochSummary, now int64, iotWeight, mobileWeight uint64) types.EpochSummary {
	epoch := types.CurrentEpoch(now)
	if n := len(epochs); n > 0 {
		epoch = epochs[n-1].Epoch + 1
	}
	start := now
	return types.EpochSummary{
		Epoch:   epoch,
		Iot:     types.SubNetworkEpoch{VotingWeightAtEpochStart: iotWeight},
		Mobile:  types.SubNetworkEpoch{VotingWeightAtEpochStart: mobileWeight},
		StartTs: &start,
	}
}
