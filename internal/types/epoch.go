package types

import "cosmossdk.io/math"

const (
	// EpochLength is the length of a reward epoch in seconds.
	EpochLength int64 = 86400
	// FirstEpoch is the first epoch present in the sub-network epoch history.
	FirstEpoch uint64 = 19465
	// FirstRewardableEpoch is the first epoch that distributed delegation rewards.
	FirstRewardableEpoch uint64 = 19467
)

// SubNetworkEpochInfo is one decoded per-sub-network epoch record.
type SubNetworkEpochInfo struct {
	Key                            PublicKey
	Epoch                          uint64
	SubDao                         PublicKey
	SubNetwork                     SubNetwork
	DcBurned                       uint64
	VotingWeightAtEpochStart       uint64
	VotingWeightInClosingPositions math.Int
	FallRatesFromClosingPositions  math.Int
	DelegationRewardsIssued        uint64
	UtilityScore                   *math.Int
	RewardsIssuedAt                *int64
	Initialized                    bool
}

type SubNetworkEpoch struct {
	DcBurned                 uint64    `json:"dc_burned"`
	VotingWeightAtEpochStart uint64    `json:"vehnt_at_epoch_start"`
	DelegationRewardsIssued  uint64    `json:"delegation_rewards_issued"`
	UtilityScore             *math.Int `json:"utility_score"`
}

// EpochSummary joins both sub-networks' records for one epoch index.
type EpochSummary struct {
	Epoch           uint64          `json:"epoch"`
	Iot             SubNetworkEpoch `json:"iot"`
	Mobile          SubNetworkEpoch `json:"mobile"`
	StartTs         *int64          `json:"start_ts"`
	RewardsIssuedAt *int64          `json:"rewards_issued_at"`
}

func (e EpochSummary) SubNetwork(s SubNetwork) (SubNetworkEpoch, bool) {
	switch s {
	case SubNetworkIot:
		return e.Iot, true
	case SubNetworkMobile:
		return e.Mobile, true
	default:
		return SubNetworkEpoch{}, false
	}
}

// Complete reports whether rewards for the epoch are final on both sub-networks.
func (e EpochSummary) Complete() bool {
	return e.RewardsIssuedAt != nil &&
		e.Iot.UtilityScore != nil && e.Mobile.UtilityScore != nil &&
		e.Iot.VotingWeightAtEpochStart > 0 && e.Mobile.VotingWeightAtEpochStart > 0
}

// EpochStart is the nominal start of an epoch index.
func EpochStart(epoch uint64) int64 {
	return int64(epoch) * EpochLength
}

// CurrentEpoch returns the epoch index containing ts.
func CurrentEpoch(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts / EpochLength)
}
