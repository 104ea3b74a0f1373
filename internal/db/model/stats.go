package model

import (
	"fmt"
	"time"

	"cosmossdk.io/math"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// SnapshotStatsDocument archives the statistics of one installed snapshot.
// u128 values are stored as decimal strings.
type SnapshotStatsDocument struct {
	Timestamp   int64             `bson:"_id"`
	Network     PoolStatsDocument `bson:"network"`
	Undelegated PoolStatsDocument `bson:"undelegated"`
	Iot         PoolStatsDocument `bson:"iot"`
	Mobile      PoolStatsDocument `bson:"mobile"`
	Positions   map[string]int    `bson:"positions"` // position count per grouping
	CreatedAt   time.Time         `bson:"created_at"`
}

type PoolStatsDocument struct {
	Count              uint64 `bson:"count"`
	VotingWeight       string `bson:"voting_weight"`
	LockedTokens       uint64 `bson:"locked_tokens"`
	Lockup             uint64 `bson:"lockup"`
	FallRate           string `bson:"fall_rate"`
	AvgVotingWeight    string `bson:"avg_voting_weight"`
	MedianVotingWeight string `bson:"median_voting_weight"`
	AvgLockedTokens    uint64 `bson:"avg_locked_tokens"`
	MedianLockedTokens uint64 `bson:"median_locked_tokens"`
	AvgLockup          uint64 `bson:"avg_lockup"`
	MedianLockup       uint64 `bson:"median_lockup"`
}

func NewSnapshotStatsDocument(meta types.Metadata, positions map[string]int, now time.Time) *SnapshotStatsDocument {
	return &SnapshotStatsDocument{
		Timestamp:   meta.Timestamp,
		Network:     newPoolStatsDocument(meta.Network),
		Undelegated: newPoolStatsDocument(meta.Undelegated),
		Iot:         newPoolStatsDocument(meta.Iot),
		Mobile:      newPoolStatsDocument(meta.Mobile),
		Positions:   positions,
		CreatedAt:   now.UTC(),
	}
}

func newPoolStatsDocument(p types.PoolData) PoolStatsDocument {
	return PoolStatsDocument{
		Count:              p.Total.Count,
		VotingWeight:       p.Total.VotingWeight.String(),
		LockedTokens:       p.Total.LockedTokens,
		Lockup:             p.Total.Lockup,
		FallRate:           p.Total.FallRate.String(),
		AvgVotingWeight:    p.Stats.AvgVotingWeight.String(),
		MedianVotingWeight: p.Stats.MedianVotingWeight.String(),
		AvgLockedTokens:    p.Stats.AvgLockedTokens,
		MedianLockedTokens: p.Stats.MedianLockedTokens,
		AvgLockup:          p.Stats.AvgLockup,
		MedianLockup:       p.Stats.MedianLockup,
	}
}

// ToMetadata converts the archived document back into snapshot statistics.
func (d *SnapshotStatsDocument) ToMetadata() (types.Metadata, error) {
	meta := types.Metadata{Timestamp: d.Timestamp}
	pools := []struct {
		name string
		src  PoolStatsDocument
		dst  *types.PoolData
	}{
		{"network", d.Network, &meta.Network},
		{"undelegated", d.Undelegated, &meta.Undelegated},
		{"iot", d.Iot, &meta.Iot},
		{"mobile", d.Mobile, &meta.Mobile},
	}
	for _, p := range pools {
		data, err := p.src.toPoolData()
		if err != nil {
			return types.Metadata{}, fmt.Errorf("snapshot %d, %s pool: %w", d.Timestamp, p.name, err)
		}
		*p.dst = data
	}
	return meta, nil
}

func (p PoolStatsDocument) toPoolData() (types.PoolData, error) {
	values := map[string]string{
		"voting_weight":        p.VotingWeight,
		"fall_rate":            p.FallRate,
		"avg_voting_weight":    p.AvgVotingWeight,
		"median_voting_weight": p.MedianVotingWeight,
	}
	parsed := make(map[string]math.Int, len(values))
	for name, s := range values {
		v, ok := math.NewIntFromString(s)
		if !ok {
			return types.PoolData{}, fmt.Errorf("invalid %s %q", name, s)
		}
		parsed[name] = v
	}

	return types.PoolData{
		Total: types.Totals{
			Count:        p.Count,
			VotingWeight: parsed["voting_weight"],
			LockedTokens: p.LockedTokens,
			Lockup:       p.Lockup,
			FallRate:     parsed["fall_rate"],
		},
		Stats: types.Stats{
			AvgVotingWeight:    parsed["avg_voting_weight"],
			MedianVotingWeight: parsed["median_voting_weight"],
			AvgLockedTokens:    p.AvgLockedTokens,
			MedianLockedTokens: p.MedianLockedTokens,
			AvgLockup:          p.AvgLockup,
			MedianLockup:       p.MedianLockup,
		},
	}, nil
}
