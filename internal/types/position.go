package types

import "cosmossdk.io/math"

// VotingMintConfig holds the decay parameters of one voting mint in a registrar.
type VotingMintConfig struct {
	Mint                                   PublicKey
	BaselineVoteWeightScaledFactor         uint64
	MaxExtraLockupVoteWeightScaledFactor   uint64
	GenesisVotePowerMultiplier             uint8
	GenesisVotePowerMultiplierExpirationTs int64
	LockupSaturationSecs                   uint64
	DigitShift                             int8
}

// Registrar is the decoded voting registrar; positions point at one of its mint configs.
type Registrar struct {
	Key                     PublicKey
	RealmGoverningTokenMint PublicKey
	TimeOffset              int64
	VotingMints             []VotingMintConfig
}

// VotingMint returns the config a position references by index.
func (r *Registrar) VotingMint(idx uint8) (VotingMintConfig, bool) {
	if int(idx) >= len(r.VotingMints) {
		return VotingMintConfig{}, false
	}
	return r.VotingMints[idx], true
}

// PositionRecord is a decoded position account before enrichment.
type PositionRecord struct {
	Key                 PublicKey
	Registrar           PublicKey
	Mint                PublicKey
	Lockup              Lockup
	Amount              uint64
	VotingMintConfigIdx uint8
	NumActiveVotes      uint16
	GenesisEnd          int64
}

// DelegationRecord is a decoded delegated-position account before enrichment.
type DelegationRecord struct {
	Key              PublicKey
	Mint             PublicKey
	PositionKey      PublicKey
	HntAmount        uint64
	SubDao           PublicKey
	LastClaimedEpoch uint64
	StartTs          int64
	Purged           bool
}

type Delegation struct {
	Key              PublicKey  `json:"delegated_position_key"`
	PositionKey      PublicKey  `json:"position_key"`
	SubNetwork       SubNetwork `json:"sub_network"`
	LastClaimedEpoch uint64     `json:"last_claimed_epoch"`
	StartTs          int64      `json:"start_ts"`
	PendingRewards   uint64     `json:"pending_rewards"`
	Purged           bool       `json:"purged"`
}

// WeightInfo describes how a position's voting weight evolves after the
// timestamp it was computed at. Values are precision-scaled.
type WeightInfo struct {
	HasGenesis                   bool
	WeightAtTs                   math.Int
	PreGenesisEndFallRate        math.Int
	PostGenesisEndFallRate       math.Int
	GenesisEndWeightCorrection   math.Int
	GenesisEndFallRateCorrection math.Int
	EndWeightCorrection          math.Int
	EndFallRateCorrection        math.Int
}

func ZeroWeightInfo() WeightInfo {
	return WeightInfo{
		WeightAtTs:                   math.ZeroInt(),
		PreGenesisEndFallRate:        math.ZeroInt(),
		PostGenesisEndFallRate:       math.ZeroInt(),
		GenesisEndWeightCorrection:   math.ZeroInt(),
		GenesisEndFallRateCorrection: math.ZeroInt(),
		EndWeightCorrection:          math.ZeroInt(),
		EndFallRateCorrection:        math.ZeroInt(),
	}
}

// Position is a decorated position as stored in a snapshot. It must not be
// mutated once the snapshot is installed.
type Position struct {
	Key          PublicKey   `json:"position_key"`
	Mint         PublicKey   `json:"mint"`
	Owner        PublicKey   `json:"owner"`
	Grouping     Grouping    `json:"grouping"`
	LockedTokens uint64      `json:"locked_tokens"`
	StartTs      int64       `json:"start_ts"`
	EndTs        int64       `json:"end_ts"`
	GenesisEnd   int64       `json:"genesis_end"`
	Duration     int64       `json:"duration"`
	LockupKind   LockupKind  `json:"lockup_kind"`
	VotingWeight math.Int    `json:"voting_weight"`
	Info         WeightInfo  `json:"-"`
	Delegation   *Delegation `json:"delegation,omitempty"`
}
