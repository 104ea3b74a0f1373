package aggregation

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// Input is everything a snapshot is derived from. Positions carry their
// voting weight already; delegations are keyed by the position they delegate.
type Input struct {
	Timestamp   int64
	Positions   map[types.Grouping][]*types.Position
	Delegations map[types.PublicKey]types.Delegation
	Supply      map[types.Grouping]math.Int
	Epochs      []types.EpochSummary
}

// Aggregate builds a snapshot in a single pass over every grouping. Inputs are
// not modified, so aggregating the same input twice yields equal snapshots.
func Aggregate(in Input) (*types.Snapshot, error) {
	snap := &types.Snapshot{
		Timestamp: in.Timestamp,
		Pools:     make(map[types.Grouping]*types.PositionSet),
		Accounts:  make(map[types.PublicKey]*types.Account),
		Epochs:    in.Epochs,
	}

	var network, undelegated, iot, mobile []*types.Position
	attached := make(map[types.PublicKey]struct{}, len(in.Delegations))

	for _, g := range types.AllGroupings() {
		set := &types.PositionSet{
			Grouping:           g,
			Positions:          make([]*types.Position, 0, len(in.Positions[g])),
			DelegatedPositions: make([]*types.Position, 0),
			TokenSupply:        math.ZeroInt(),
		}
		if supply, ok := in.Supply[g]; ok && !supply.IsNil() {
			set.TokenSupply = supply
		}

		for _, src := range sortedByKey(in.Positions[g]) {
			p := *src
			p.Grouping = g
			p.Delegation = nil

			sub := types.SubNetworkUnknown
			if g == types.GroupingVeHnt {
				if d, ok := in.Delegations[p.Key]; ok {
					p.Delegation = &d
					attached[p.Key] = struct{}{}
				}

				var err error
				sub, err = classify(p.Delegation)
				if err != nil {
					return nil, fmt.Errorf("failed to classify position %s: %w", p.Key, err)
				}

				network = append(network, &p)
				switch sub {
				case types.SubNetworkIot:
					iot = append(iot, &p)
				case types.SubNetworkMobile:
					mobile = append(mobile, &p)
				default:
					undelegated = append(undelegated, &p)
				}
				if p.Delegation != nil {
					set.DelegatedPositions = append(set.DelegatedPositions, &p)
				}
			}

			set.Positions = append(set.Positions, &p)
			if err := addToAccount(snap.Accounts, &p, sub); err != nil {
				return nil, err
			}
		}
		snap.Pools[g] = set
	}

	for key := range in.Delegations {
		if _, ok := attached[key]; !ok {
			log.Warn().
				Str("position_key", key.String()).
				Msg("dropping delegation for missing position")
		}
	}

	stats := types.Metadata{Timestamp: in.Timestamp}
	var err error
	if stats.Network, err = ComputeStats(network); err != nil {
		return nil, err
	}
	if stats.Undelegated, err = ComputeStats(undelegated); err != nil {
		return nil, err
	}
	if stats.Iot, err = ComputeStats(iot); err != nil {
		return nil, err
	}
	if stats.Mobile, err = ComputeStats(mobile); err != nil {
		return nil, err
	}
	snap.Stats = stats

	return snap, nil
}

// classify maps a delegation onto the pool it belongs to. Undelegated
// positions and the explicit unknown sub-network both land in the
// undelegated pool; any other value is corrupt input.
func classify(d *types.Delegation) (types.SubNetwork, error) {
	if d == nil {
		return types.SubNetworkUnknown, nil
	}
	if err := d.SubNetwork.Validate(); err != nil {
		return types.SubNetworkUnknown, err
	}
	return d.SubNetwork, nil
}

func sortedByKey(positions []*types.Position) []*types.Position {
	sorted := make([]*types.Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key.Less(sorted[j].Key)
	})
	return sorted
}
