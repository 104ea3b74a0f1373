package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/db/model"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
)

type fakeArchive struct {
	mu   sync.Mutex
	docs []*model.SnapshotStatsDocument
	err  error
}

func (a *fakeArchive) Ping(context.Context) error { return nil }

func (a *fakeArchive) UpsertSnapshotStats(_ context.Context, doc *model.SnapshotStatsDocument) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.docs = append(a.docs, doc)
	return nil
}

func (a *fakeArchive) GetLatestSnapshotStats(context.Context) (*model.SnapshotStatsDocument, error) {
	return nil, nil
}

func (a *fakeArchive) FindSnapshotStats(context.Context, int64, int64, int64) ([]*model.SnapshotStatsDocument, error) {
	return nil, nil
}

func statsSnapshot(ts int64) *types.Snapshot {
	snap := emptySnapshot(ts)
	pool := types.PoolData{Total: types.NewTotals(), Stats: types.NewStats()}
	pool.Total.VotingWeight = math.NewInt(42)
	snap.Stats = types.Metadata{Timestamp: ts, Network: pool, Undelegated: pool, Iot: pool, Mobile: pool}
	return snap
}

func TestServiceArchivesInstalledSnapshots(t *testing.T) {
	archive := &fakeArchive{}
	s, err := NewService(config.Default(), newFakeChain(), archive,
		snapshot.NewCache(0), clock.NewFake(time.Unix(1_700_000_000, 0)))
	require.NoError(t, err)

	s.onInstall(context.Background(), statsSnapshot(1_700_000_000))

	require.Len(t, archive.docs, 1)
	assert.Equal(t, int64(1_700_000_000), archive.docs[0].Timestamp)
	assert.Equal(t, "42", archive.docs[0].Network.VotingWeight)
	assert.Equal(t, map[string]int{"vehnt": 0, "veiot": 0, "vemobile": 0}, archive.docs[0].Positions)
}

func TestServiceArchiveFailureIsNotFatal(t *testing.T) {
	archive := &fakeArchive{err: errLedgerDown}
	s, err := NewService(config.Default(), newFakeChain(), archive,
		snapshot.NewCache(0), clock.NewFake(time.Unix(0, 0)))
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.onInstall(context.Background(), statsSnapshot(1)) })
}

func TestServiceWithoutArchive(t *testing.T) {
	s, err := NewService(config.Default(), newFakeChain(), nil,
		snapshot.NewCache(0), clock.NewFake(time.Unix(0, 0)))
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.onInstall(context.Background(), statsSnapshot(1)) })
	assert.Equal(t, StateIdle, s.RefresherState())
}

func TestNewServiceRejectsInvalidPrograms(t *testing.T) {
	cfg := config.Default()
	cfg.Programs.IotMint = "not-a-key"

	_, err := NewService(cfg, newFakeChain(), nil, snapshot.NewCache(0), clock.SystemClock{})
	require.Error(t, err)
}
