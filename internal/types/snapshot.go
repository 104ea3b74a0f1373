package types

import "cosmossdk.io/math"

type Totals struct {
	Count        uint64   `json:"count"`
	VotingWeight math.Int `json:"voting_weight"`
	LockedTokens uint64   `json:"locked_tokens"`
	Lockup       uint64   `json:"lockup"`
	FallRate     math.Int `json:"fall_rate"`
}

func NewTotals() Totals {
	return Totals{
		VotingWeight: math.ZeroInt(),
		FallRate:     math.ZeroInt(),
	}
}

type Stats struct {
	AvgVotingWeight    math.Int `json:"avg_voting_weight"`
	MedianVotingWeight math.Int `json:"median_voting_weight"`
	AvgLockedTokens    uint64   `json:"avg_locked_tokens"`
	MedianLockedTokens uint64   `json:"median_locked_tokens"`
	AvgLockup          uint64   `json:"avg_lockup"`
	MedianLockup       uint64   `json:"median_lockup"`
}

func NewStats() Stats {
	return Stats{
		AvgVotingWeight:    math.ZeroInt(),
		MedianVotingWeight: math.ZeroInt(),
	}
}

type PoolData struct {
	Total Totals `json:"total"`
	Stats Stats  `json:"stats"`
}

// Metadata carries the aggregate statistics of the network stake pool.
type Metadata struct {
	Timestamp   int64    `json:"timestamp"`
	Network     PoolData `json:"network"`
	Undelegated PoolData `json:"undelegated"`
	Iot         PoolData `json:"iot"`
	Mobile      PoolData `json:"mobile"`
}

type PositionSet struct {
	Grouping           Grouping    `json:"grouping"`
	Positions          []*Position `json:"positions"`
	DelegatedPositions []*Position `json:"delegated_positions"`
	TokenSupply        math.Int    `json:"token_supply"`
}

type Balance struct {
	LockedTokens uint64   `json:"locked_tokens"`
	VotingWeight math.Int `json:"voting_weight"`
}

func NewBalance() Balance {
	return Balance{VotingWeight: math.ZeroInt()}
}

type LockedBalances struct {
	VeHnt                Balance `json:"vehnt"`
	VeIot                Balance `json:"veiot"`
	VeMobile             Balance `json:"vemobile"`
	IotDelegated         Balance `json:"iot_delegated"`
	MobileDelegated      Balance `json:"mobile_delegated"`
	Undelegated          Balance `json:"undelegated"`
	PendingIotRewards    uint64  `json:"pending_iot_rewards"`
	PendingMobileRewards uint64  `json:"pending_mobile_rewards"`
}

func NewLockedBalances() LockedBalances {
	return LockedBalances{
		VeHnt:           NewBalance(),
		VeIot:           NewBalance(),
		VeMobile:        NewBalance(),
		IotDelegated:    NewBalance(),
		MobileDelegated: NewBalance(),
		Undelegated:     NewBalance(),
	}
}

// Grouping returns the locked balance held in one grouping.
func (b *LockedBalances) Grouping(g Grouping) *Balance {
	switch g {
	case GroupingVeIot:
		return &b.VeIot
	case GroupingVeMobile:
		return &b.VeMobile
	default:
		return &b.VeHnt
	}
}

// Account is the owner index entry of a snapshot.
type Account struct {
	Owner     PublicKey                `json:"owner"`
	Balances  LockedBalances           `json:"balances"`
	Positions map[Grouping][]PublicKey `json:"positions"`
}

// Snapshot is one immutable aggregation result.
type Snapshot struct {
	Timestamp int64                     `json:"timestamp"`
	Pools     map[Grouping]*PositionSet `json:"pools"`
	Stats     Metadata                  `json:"stats"`
	Accounts  map[PublicKey]*Account    `json:"accounts"`
	Epochs    []EpochSummary            `json:"epochs"`
}

func (s *Snapshot) Pool(g Grouping) *PositionSet {
	if s == nil {
		return nil
	}
	return s.Pools[g]
}
