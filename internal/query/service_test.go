package query

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsrlabs/positions-indexer/internal/aggregation"
	"github.com/vsrlabs/positions-indexer/internal/db/model"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
	"github.com/vsrlabs/positions-indexer/testutil"
)

const scale = vsr.PrecisionFactor

type fixture struct {
	cache     *snapshot.Cache
	svc       *Service
	alice     types.PublicKey
	bob       types.PublicKey
	positions []*types.Position
	delegated *types.Position
	iot       *types.Position
	wallets   *fakeWallets
}

type fakeWallets struct {
	balances map[types.PublicKey]types.WalletBalances
	err      error
}

func (w *fakeWallets) WalletBalances(_ context.Context, owner types.PublicKey) (types.WalletBalances, error) {
	if w.err != nil {
		return types.WalletBalances{}, w.err
	}
	return w.balances[owner], nil
}

func newFixture(t *testing.T, ts int64) *fixture {
	t.Helper()

	f := &fixture{
		cache: snapshot.NewCache(16 * time.Minute),
		alice: testutil.RandomPublicKey(),
		bob:   testutil.RandomPublicKey(),
	}
	f.wallets = &fakeWallets{balances: map[types.PublicKey]types.WalletBalances{
		f.bob: {Hnt: types.TokenBalance{Amount: 4_200, Decimals: types.NetworkTokenDecimals}},
	}}
	f.svc = NewService(f.cache, nil, f.wallets)

	f.positions = []*types.Position{
		testutil.RandomPosition(f.alice, 100*scale, 1_000),
		testutil.RandomPosition(f.bob, 300*scale, 3_000),
		testutil.RandomPosition(f.bob, 200*scale, 2_000),
	}
	f.delegated = f.positions[1]
	f.iot = testutil.RandomPosition(f.alice, 50*scale, 500)

	f.install(t, ts)
	return f
}

func (f *fixture) install(t *testing.T, ts int64) *types.Snapshot {
	t.Helper()
	start := types.EpochStart(19_600)
	issued := start + types.EpochLength + 10
	snap, err := aggregation.Aggregate(aggregation.Input{
		Timestamp: ts,
		Positions: map[types.Grouping][]*types.Position{
			types.GroupingVeHnt: f.positions,
			types.GroupingVeIot: {f.iot},
		},
		Delegations: map[types.PublicKey]types.Delegation{
			f.delegated.Key: {
				Key:              testutil.RandomPublicKey(),
				PositionKey:      f.delegated.Key,
				SubNetwork:       types.SubNetworkIot,
				LastClaimedEpoch: 19_590,
				PendingRewards:   77,
			},
		},
		Epochs: []types.EpochSummary{{Epoch: 19_600, StartTs: &start, RewardsIssuedAt: &issued}},
	})
	require.NoError(t, err)
	f.cache.Install(snap)
	return snap
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestNotInitialized(t *testing.T) {
	svc := NewService(snapshot.NewCache(0), nil, nil)

	_, err := svc.ListPositions(types.GroupingVeHnt, PageParams{})
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.GetPosition(types.GroupingVeHnt, testutil.RandomPublicKey())
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.Metadata(nil)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.TopOwners(types.GroupingVeHnt, 0)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.EpochInfo()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.ExportPositionsCSV(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.Account(context.Background(), testutil.RandomPublicKey())
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = svc.SnapshotTimestamps()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestListPositions(t *testing.T) {
	f := newFixture(t, 1_700_000_000)

	t.Run("defaults", func(t *testing.T) {
		page, err := f.svc.ListPositions(types.GroupingVeHnt, PageParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(1_700_000_000), page.Timestamp)
		assert.Len(t, page.Positions, 3)
		assert.Equal(t, 3, page.PositionsTotalLen)
	})

	t.Run("window", func(t *testing.T) {
		page, err := f.svc.ListPositions(types.GroupingVeHnt, PageParams{Start: intPtr(1), Limit: intPtr(1)})
		require.NoError(t, err)
		require.Len(t, page.Positions, 1)
		all, _ := f.svc.ListPositions(types.GroupingVeHnt, PageParams{})
		assert.Equal(t, all.Positions[1].Key, page.Positions[0].Key)
	})

	t.Run("limit is clamped to the remaining positions", func(t *testing.T) {
		page, err := f.svc.ListPositions(types.GroupingVeHnt, PageParams{Start: intPtr(2), Limit: intPtr(10_000)})
		require.NoError(t, err)
		assert.Len(t, page.Positions, 1)
	})

	t.Run("start at the end yields an empty page", func(t *testing.T) {
		page, err := f.svc.ListPositions(types.GroupingVeHnt, PageParams{Start: intPtr(3)})
		require.NoError(t, err)
		assert.Empty(t, page.Positions)
	})

	t.Run("start past the end", func(t *testing.T) {
		_, err := f.svc.ListPositions(types.GroupingVeHnt, PageParams{Start: intPtr(4)})
		require.ErrorIs(t, err, ErrInvalidStart)
	})

	t.Run("other grouping", func(t *testing.T) {
		page, err := f.svc.ListPositions(types.GroupingVeIot, PageParams{})
		require.NoError(t, err)
		require.Len(t, page.Positions, 1)
		assert.Equal(t, f.iot.Key, page.Positions[0].Key)
	})
}

func TestHistoricalLookup(t *testing.T) {
	f := newFixture(t, 1_700_000_000)
	f.install(t, 1_700_000_300)

	meta, err := f.svc.Metadata(int64Ptr(1_700_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), meta.Timestamp)

	latest, err := f.svc.Metadata(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_300), latest.Timestamp)

	_, err = f.svc.Metadata(int64Ptr(1_700_000_001))
	require.ErrorIs(t, err, ErrTimestampNotFound)
	_, err = f.svc.ListPositions(types.GroupingVeHnt, PageParams{Timestamp: int64Ptr(42)})
	require.ErrorIs(t, err, ErrTimestampNotFound)
}

func TestGetPosition(t *testing.T) {
	f := newFixture(t, 1_700_000_000)

	p, err := f.svc.GetPosition(types.GroupingVeHnt, f.delegated.Key)
	require.NoError(t, err)
	require.NotNil(t, p.Delegation)
	assert.Equal(t, uint64(77), p.Delegation.PendingRewards)

	_, err = f.svc.GetPosition(types.GroupingVeMobile, f.delegated.Key)
	require.ErrorIs(t, err, ErrPositionNotFound)
	_, err = f.svc.GetPosition(types.GroupingVeHnt, testutil.RandomPublicKey())
	require.ErrorIs(t, err, ErrPositionNotFound)
}

func TestTopOwners(t *testing.T) {
	f := newFixture(t, 1_700_000_000)

	top, err := f.svc.TopOwners(types.GroupingVeHnt, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, f.bob, top[0].Owner)
	assert.Equal(t, math.NewIntFromUint64(500*scale), top[0].Balances.VeHnt.VotingWeight)

	top, err = f.svc.TopOwners(types.GroupingVeIot, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, f.alice, top[0].Owner)
}

func TestAccount(t *testing.T) {
	f := newFixture(t, 1_700_000_000)
	ctx := context.Background()

	acc, err := f.svc.Account(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), acc.Timestamp)
	assert.Equal(t, uint64(77), acc.Balances.PendingIotRewards)
	assert.Equal(t, uint64(3_000), acc.Balances.IotDelegated.LockedTokens)
	require.NotNil(t, acc.Wallet)
	assert.Equal(t, uint64(4_200), acc.Wallet.Hnt.Amount)

	held := acc.Positions[types.GroupingVeHnt]
	require.Len(t, held, 2)
	var delegated *types.Position
	for _, p := range held {
		assert.Equal(t, f.bob, p.Owner)
		assert.False(t, p.VotingWeight.IsNil())
		if p.Key == f.delegated.Key {
			delegated = p
		}
	}
	require.NotNil(t, delegated)
	require.NotNil(t, delegated.Delegation)
	assert.Equal(t, types.SubNetworkIot, delegated.Delegation.SubNetwork)
	assert.Equal(t, uint64(77), delegated.Delegation.PendingRewards)

	alice, err := f.svc.Account(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, alice.Positions[types.GroupingVeIot], 1)
	assert.Equal(t, f.iot.Key, alice.Positions[types.GroupingVeIot][0].Key)
	assert.Equal(t, uint64(0), alice.Wallet.Hnt.Amount)

	stranger := testutil.RandomPublicKey()
	acc, err = f.svc.Account(ctx, stranger)
	require.NoError(t, err)
	assert.Equal(t, stranger, acc.Owner)
	assert.Empty(t, acc.Positions)
	assert.True(t, acc.Balances.VeHnt.VotingWeight.IsZero())
}

func TestAccountWalletError(t *testing.T) {
	f := newFixture(t, 1_700_000_000)
	f.wallets.err = errors.New("rpc unavailable")

	_, err := f.svc.Account(context.Background(), f.bob)
	require.ErrorIs(t, err, f.wallets.err)
}

func TestAccountWithoutWallets(t *testing.T) {
	f := newFixture(t, 1_700_000_000)
	svc := NewService(f.cache, nil, nil)

	acc, err := svc.Account(context.Background(), f.bob)
	require.NoError(t, err)
	assert.Nil(t, acc.Wallet)
	assert.Len(t, acc.Positions[types.GroupingVeHnt], 2)
}

func TestSnapshotTimestamps(t *testing.T) {
	f := newFixture(t, 1_700_000_000)
	f.install(t, 1_700_000_300)

	timestamps, err := f.svc.SnapshotTimestamps()
	require.NoError(t, err)
	assert.Equal(t, []int64{1_700_000_000, 1_700_000_300}, timestamps)
}

func TestDelegatedStakes(t *testing.T) {
	f := newFixture(t, 1_700_000_000)

	page, err := f.svc.DelegatedStakes(PageParams{})
	require.NoError(t, err)
	require.Len(t, page.Positions, 1)
	assert.Equal(t, f.delegated.Key, page.Positions[0].Key)
	assert.Equal(t, 1, page.PositionsTotalLen)
}

func TestEpochInfoAppendsCurrentEpoch(t *testing.T) {
	ts := types.EpochStart(19_602) + 100
	f := newFixture(t, ts)

	epochs, err := f.svc.EpochInfo()
	require.NoError(t, err)
	require.Len(t, epochs, 2)
	assert.Equal(t, uint64(19_600), epochs[0].Epoch)

	current := epochs[1]
	assert.Equal(t, uint64(19_601), current.Epoch)
	require.NotNil(t, current.StartTs)
	assert.Equal(t, ts, *current.StartTs)
	assert.Equal(t, uint64(300), current.Iot.VotingWeightAtEpochStart)
	assert.Equal(t, uint64(0), current.Mobile.VotingWeightAtEpochStart)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, 1_700_000_000)

	var buf bytes.Buffer
	ts, err := f.svc.ExportPositionsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), ts)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, positionsHeader, rows[0])
	for _, row := range rows[1:] {
		assert.Len(t, row, len(positionsHeader))
		if row[0] == f.delegated.Key.String() {
			assert.Equal(t, "300", row[7])
			assert.Equal(t, "iot", row[10])
			assert.Equal(t, "77", row[12])
		}
	}

	buf.Reset()
	_, err = f.svc.ExportDelegatedCSV(&buf)
	require.NoError(t, err)
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, delegatedHeader, rows[0])
	assert.Equal(t, "0.00003", rows[1][2])
	assert.Equal(t, "false", rows[1][9])
}

type fakeArchive struct {
	docs []*model.SnapshotStatsDocument
}

func (a *fakeArchive) Ping(context.Context) error { return nil }
func (a *fakeArchive) UpsertSnapshotStats(context.Context, *model.SnapshotStatsDocument) error {
	return nil
}
func (a *fakeArchive) GetLatestSnapshotStats(context.Context) (*model.SnapshotStatsDocument, error) {
	return a.docs[0], nil
}
func (a *fakeArchive) FindSnapshotStats(_ context.Context, from, to, limit int64) ([]*model.SnapshotStatsDocument, error) {
	var out []*model.SnapshotStatsDocument
	for _, d := range a.docs {
		if d.Timestamp >= from && d.Timestamp <= to && int64(len(out)) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestStatsHistory(t *testing.T) {
	f := newFixture(t, 1_700_000_000)
	_, err := f.svc.StatsHistory(context.Background(), 0, 1, 10)
	require.ErrorIs(t, err, ErrArchiveDisabled)

	latest, _ := f.cache.Latest()
	archive := &fakeArchive{docs: []*model.SnapshotStatsDocument{
		model.NewSnapshotStatsDocument(latest.Stats, nil, time.Now()),
	}}
	svc := NewService(f.cache, archive, nil)

	history, err := svc.StatsHistory(context.Background(), 0, 2_000_000_000, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, latest.Stats.Network.Total.Count, history[0].Network.Total.Count)
	assert.True(t, latest.Stats.Network.Total.VotingWeight.Equal(history[0].Network.Total.VotingWeight))
}
