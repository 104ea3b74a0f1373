package aggregation

import (
	"encoding/json"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/testutil"
)

func withDuration(p *types.Position, d int64) *types.Position {
	p.Duration = d
	p.EndTs = p.StartTs + d
	return p
}

func TestComputeStats(t *testing.T) {
	t.Run("three positions", func(t *testing.T) {
		owner := testutil.RandomPublicKey()
		positions := []*types.Position{
			withDuration(testutil.RandomPosition(owner, 100, 10), 30),
			withDuration(testutil.RandomPosition(owner, 300, 30), 10),
			withDuration(testutil.RandomPosition(owner, 200, 20), 20),
		}

		data, err := ComputeStats(positions)
		require.NoError(t, err)

		assert.Equal(t, uint64(3), data.Total.Count)
		assert.Equal(t, "600", data.Total.VotingWeight.String())
		assert.Equal(t, uint64(60), data.Total.LockedTokens)
		assert.Equal(t, uint64(60), data.Total.Lockup)
		assert.Equal(t, "200", data.Stats.AvgVotingWeight.String())
		assert.Equal(t, "200", data.Stats.MedianVotingWeight.String())
		assert.Equal(t, uint64(20), data.Stats.AvgLockedTokens)
		assert.Equal(t, uint64(20), data.Stats.MedianLockedTokens)
		assert.Equal(t, uint64(20), data.Stats.MedianLockup)
	})

	t.Run("median of an even pool takes index count/2 of descending order", func(t *testing.T) {
		owner := testutil.RandomPublicKey()
		var positions []*types.Position
		for _, w := range []uint64{1, 4, 2, 3} {
			positions = append(positions, testutil.RandomPosition(owner, w, w))
		}
		data, err := ComputeStats(positions)
		require.NoError(t, err)
		assert.Equal(t, "2", data.Stats.MedianVotingWeight.String())
		assert.Equal(t, uint64(2), data.Stats.MedianLockedTokens)
	})

	t.Run("average times count approximates the total and median is a member", func(t *testing.T) {
		owner := testutil.RandomPublicKey()
		var positions []*types.Position
		members := make(map[string]bool)
		for i := uint64(1); i <= 17; i++ {
			w := i * i * 7919
			positions = append(positions, testutil.RandomPosition(owner, w, i))
			members[math.NewIntFromUint64(w).String()] = true
		}
		data, err := ComputeStats(positions)
		require.NoError(t, err)

		count := math.NewIntFromUint64(data.Total.Count)
		diff := data.Total.VotingWeight.Sub(data.Stats.AvgVotingWeight.Mul(count))
		assert.False(t, diff.IsNegative())
		assert.True(t, diff.LT(count))
		assert.True(t, members[data.Stats.MedianVotingWeight.String()])
	})

	t.Run("empty pool", func(t *testing.T) {
		data, err := ComputeStats(nil)
		require.NoError(t, err)
		assert.Zero(t, data.Total.Count)
		assert.True(t, data.Stats.AvgVotingWeight.IsZero())
		assert.True(t, data.Stats.MedianVotingWeight.IsZero())
		assert.Zero(t, data.Stats.MedianLockup)
	})

	t.Run("locked token overflow", func(t *testing.T) {
		owner := testutil.RandomPublicKey()
		_, err := ComputeStats([]*types.Position{
			testutil.RandomPosition(owner, 1, ^uint64(0)),
			testutil.RandomPosition(owner, 1, 1),
		})
		require.ErrorIs(t, err, types.ErrNumericOverflow)
	})
}

func TestAggregate(t *testing.T) {
	alice := testutil.RandomPublicKey()
	bob := testutil.RandomPublicKey()

	iotPos := testutil.RandomPosition(alice, 100, 10)
	mobilePos := testutil.RandomPosition(alice, 200, 20)
	freePos := testutil.RandomPosition(bob, 300, 30)
	veIotPos := testutil.RandomPosition(bob, 50, 5)

	input := func() Input {
		return Input{
			Timestamp: 1_700_000_000,
			Positions: map[types.Grouping][]*types.Position{
				types.GroupingVeHnt: {iotPos, mobilePos, freePos},
				types.GroupingVeIot: {veIotPos},
			},
			Delegations: map[types.PublicKey]types.Delegation{
				iotPos.Key:    {PositionKey: iotPos.Key, SubNetwork: types.SubNetworkIot, PendingRewards: 7},
				mobilePos.Key: {PositionKey: mobilePos.Key, SubNetwork: types.SubNetworkMobile, PendingRewards: 9},
			},
			Supply: map[types.Grouping]math.Int{types.GroupingVeHnt: math.NewInt(1_000)},
		}
	}

	t.Run("classifies into sub-network pools", func(t *testing.T) {
		snap, err := Aggregate(input())
		require.NoError(t, err)

		assert.Equal(t, int64(1_700_000_000), snap.Timestamp)
		assert.Equal(t, uint64(3), snap.Stats.Network.Total.Count)
		assert.Equal(t, "600", snap.Stats.Network.Total.VotingWeight.String())
		assert.Equal(t, "100", snap.Stats.Iot.Total.VotingWeight.String())
		assert.Equal(t, "200", snap.Stats.Mobile.Total.VotingWeight.String())
		assert.Equal(t, "300", snap.Stats.Undelegated.Total.VotingWeight.String())

		vehnt := snap.Pool(types.GroupingVeHnt)
		require.NotNil(t, vehnt)
		assert.Len(t, vehnt.Positions, 3)
		assert.Len(t, vehnt.DelegatedPositions, 2)
		assert.Equal(t, "1000", vehnt.TokenSupply.String())

		veiot := snap.Pool(types.GroupingVeIot)
		require.Len(t, veiot.Positions, 1)
		assert.Nil(t, veiot.Positions[0].Delegation)
		assert.True(t, veiot.TokenSupply.IsZero())

		assert.Empty(t, snap.Pool(types.GroupingVeMobile).Positions)
	})

	t.Run("builds the owner index", func(t *testing.T) {
		snap, err := Aggregate(input())
		require.NoError(t, err)

		a := snap.Accounts[alice]
		require.NotNil(t, a)
		assert.ElementsMatch(t, []types.PublicKey{iotPos.Key, mobilePos.Key}, a.Positions[types.GroupingVeHnt])
		assert.Equal(t, uint64(30), a.Balances.VeHnt.LockedTokens)
		assert.Equal(t, "100", a.Balances.IotDelegated.VotingWeight.String())
		assert.Equal(t, "200", a.Balances.MobileDelegated.VotingWeight.String())
		assert.Equal(t, uint64(7), a.Balances.PendingIotRewards)
		assert.Equal(t, uint64(9), a.Balances.PendingMobileRewards)

		b := snap.Accounts[bob]
		require.NotNil(t, b)
		assert.Equal(t, "300", b.Balances.Undelegated.VotingWeight.String())
		assert.Equal(t, "50", b.Balances.VeIot.VotingWeight.String())
		assert.Equal(t, []types.PublicKey{veIotPos.Key}, b.Positions[types.GroupingVeIot])
	})

	t.Run("is idempotent and leaves inputs untouched", func(t *testing.T) {
		in := input()
		first, err := Aggregate(in)
		require.NoError(t, err)
		second, err := Aggregate(in)
		require.NoError(t, err)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.JSONEq(t, string(a), string(b))
		assert.Nil(t, iotPos.Delegation)
	})

	t.Run("drops delegations without a position", func(t *testing.T) {
		in := input()
		orphan := testutil.RandomPublicKey()
		in.Delegations[orphan] = types.Delegation{PositionKey: orphan, SubNetwork: types.SubNetworkIot}

		snap, err := Aggregate(in)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), snap.Stats.Iot.Total.Count)
		assert.Len(t, snap.Pool(types.GroupingVeHnt).DelegatedPositions, 2)
	})

	t.Run("explicit unknown sub-network counts as undelegated", func(t *testing.T) {
		in := input()
		in.Delegations[freePos.Key] = types.Delegation{PositionKey: freePos.Key, SubNetwork: types.SubNetworkUnknown}

		snap, err := Aggregate(in)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), snap.Stats.Undelegated.Total.Count)
	})

	t.Run("zero-value delegation counts as undelegated", func(t *testing.T) {
		in := input()
		in.Delegations[iotPos.Key] = types.Delegation{PositionKey: iotPos.Key}

		snap, err := Aggregate(in)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), snap.Stats.Undelegated.Total.Count)
		assert.Zero(t, snap.Stats.Iot.Total.Count)
	})

	t.Run("unrecognized sub-network is fatal", func(t *testing.T) {
		in := input()
		in.Delegations[freePos.Key] = types.Delegation{PositionKey: freePos.Key, SubNetwork: types.SubNetwork(9)}

		_, err := Aggregate(in)
		require.ErrorIs(t, err, types.ErrUnknownSubNetwork)
	})
}
