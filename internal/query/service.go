package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/vsrlabs/positions-indexer/internal/db"
	"github.com/vsrlabs/positions-indexer/internal/rewards"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

const (
	DefaultLimit     = 500
	DefaultTopOwners = 100
	// DefaultHistoryLimit caps the number of archived stats returned at once.
	DefaultHistoryLimit = 1000
)

// SnapshotStore is the read side of the snapshot cache.
type SnapshotStore interface {
	Latest() (*types.Snapshot, bool)
	At(ts int64) (*types.Snapshot, bool)
	LookupPosition(key types.PublicKey) (*types.Position, bool)
	Holdings(owner types.PublicKey) (snapshot.Holdings, bool)
	HistoryTimestamps() []int64
}

// WalletSource reads liquid token balances from the ledger.
type WalletSource interface {
	WalletBalances(ctx context.Context, owner types.PublicKey) (types.WalletBalances, error)
}

// Service answers read queries from installed snapshots. It never blocks on a
// refresh in progress.
type Service struct {
	store   SnapshotStore
	archive db.DbInterface
	wallets WalletSource
}

// NewService creates the query service. archive and wallets may be nil, the
// account view then carries no liquid balances.
func NewService(store SnapshotStore, archive db.DbInterface, wallets WalletSource) *Service {
	return &Service{store: store, archive: archive, wallets: wallets}
}

// PageParams selects a window of a position list. Nil fields take defaults.
type PageParams struct {
	Start     *int
	Limit     *int
	Timestamp *int64
}

type PositionsPage struct {
	Timestamp         int64             `json:"timestamp"`
	Positions         []*types.Position `json:"positions"`
	PositionsTotalLen int               `json:"positions_total_len"`
}

// snapshot returns the latest snapshot, or the one taken exactly at ts.
func (s *Service) snapshot(ts *int64) (*types.Snapshot, error) {
	latest, ok := s.store.Latest()
	if !ok {
		return nil, ErrNotInitialized
	}
	if ts == nil {
		return latest, nil
	}
	snap, ok := s.store.At(*ts)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTimestampNotFound, *ts)
	}
	return snap, nil
}

func (s *Service) ListPositions(g types.Grouping, params PageParams) (*PositionsPage, error) {
	snap, err := s.snapshot(params.Timestamp)
	if err != nil {
		return nil, err
	}
	var positions []*types.Position
	if set := snap.Pool(g); set != nil {
		positions = set.Positions
	}
	return page(snap.Timestamp, positions, params)
}

// DelegatedStakes lists the delegated network positions.
func (s *Service) DelegatedStakes(params PageParams) (*PositionsPage, error) {
	snap, err := s.snapshot(params.Timestamp)
	if err != nil {
		return nil, err
	}
	var positions []*types.Position
	if set := snap.Pool(types.GroupingVeHnt); set != nil {
		positions = set.DelegatedPositions
	}
	return page(snap.Timestamp, positions, params)
}

func page(ts int64, positions []*types.Position, params PageParams) (*PositionsPage, error) {
	total := len(positions)
	start := 0
	if params.Start != nil {
		start = *params.Start
	}
	if start < 0 || start > total {
		return nil, fmt.Errorf("%w: start %d, total %d", ErrInvalidStart, start, total)
	}

	limit := DefaultLimit
	if params.Limit != nil && *params.Limit >= 0 {
		limit = min(*params.Limit, DefaultLimit)
	}
	limit = min(limit, total-start)

	return &PositionsPage{
		Timestamp:         ts,
		Positions:         positions[start : start+limit],
		PositionsTotalLen: total,
	}, nil
}

func (s *Service) GetPosition(g types.Grouping, key types.PublicKey) (*types.Position, error) {
	if _, ok := s.store.Latest(); !ok {
		return nil, ErrNotInitialized
	}
	p, ok := s.store.LookupPosition(key)
	if !ok || p.Grouping != g {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, key)
	}
	return p, nil
}

func (s *Service) Metadata(ts *int64) (types.Metadata, error) {
	snap, err := s.snapshot(ts)
	if err != nil {
		return types.Metadata{}, err
	}
	return snap.Stats, nil
}

// AccountView is everything known about one owner: locked balances and
// decorated positions from the latest snapshot plus liquid wallet balances.
type AccountView struct {
	Owner     types.PublicKey
	Timestamp int64
	Balances  types.LockedBalances
	Wallet    *types.WalletBalances
	Positions map[types.Grouping][]*types.Position
}

// Account builds the owner's view. Owners without positions get empty locked
// balances. Wallet balances are read after the snapshot, never under the
// cache lock.
func (s *Service) Account(ctx context.Context, owner types.PublicKey) (*AccountView, error) {
	held, ok := s.store.Holdings(owner)
	if !ok {
		return nil, ErrNotInitialized
	}

	view := &AccountView{
		Owner:     owner,
		Timestamp: held.Timestamp,
		Balances:  types.NewLockedBalances(),
		Positions: make(map[types.Grouping][]*types.Position),
	}
	if held.Account != nil {
		view.Balances = held.Account.Balances
	}
	for _, p := range held.Positions {
		view.Positions[p.Grouping] = append(view.Positions[p.Grouping], p)
	}

	if s.wallets != nil {
		wallet, err := s.wallets.WalletBalances(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to read wallet of %s: %w", owner, err)
		}
		view.Wallet = &wallet
	}
	return view, nil
}

// SnapshotTimestamps lists the timestamps still queryable through the
// timestamp parameter, oldest first.
func (s *Service) SnapshotTimestamps() ([]int64, error) {
	if _, ok := s.store.Latest(); !ok {
		return nil, ErrNotInitialized
	}
	return s.store.HistoryTimestamps(), nil
}

// TopOwners ranks owners by voting weight held in one grouping, heaviest
// first. Ties are broken by owner key.
func (s *Service) TopOwners(g types.Grouping, n int) ([]*types.Account, error) {
	snap, err := s.snapshot(nil)
	if err != nil {
		return nil, err
	}

	accounts := make([]*types.Account, 0, len(snap.Accounts))
	for _, acc := range snap.Accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		wi := accounts[i].Balances.Grouping(g).VotingWeight
		wj := accounts[j].Balances.Grouping(g).VotingWeight
		if !wi.Equal(wj) {
			return wi.GT(wj)
		}
		return accounts[i].Owner.Less(accounts[j].Owner)
	})

	if n <= 0 {
		n = DefaultTopOwners
	}
	if len(accounts) > n {
		accounts = accounts[:n]
	}
	return accounts, nil
}

// EpochInfo returns the epoch history with an estimate of the epoch in
// progress appended, built from the latest sub-network weights.
func (s *Service) EpochInfo() ([]types.EpochSummary, error) {
	snap, err := s.snapshot(nil)
	if err != nil {
		return nil, err
	}

	iot := vsr.ScaleDown(snap.Stats.Iot.Total.VotingWeight)
	mobile := vsr.ScaleDown(snap.Stats.Mobile.Total.VotingWeight)
	if !iot.IsUint64() || !mobile.IsUint64() {
		return nil, fmt.Errorf("%w: sub-network weight", types.ErrNumericOverflow)
	}

	epochs := make([]types.EpochSummary, 0, len(snap.Epochs)+1)
	epochs = append(epochs, snap.Epochs...)
	epochs = append(epochs, rewards.CurrentEpochEstimate(snap.Epochs, snap.Timestamp, iot.Uint64(), mobile.Uint64()))
	return epochs, nil
}

// StatsHistory reads archived snapshot statistics with from <= timestamp <= to,
// newest first.
func (s *Service) StatsHistory(ctx context.Context, from, to int64, limit int) ([]types.Metadata, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	docs, err := s.archive.FindSnapshotStats(ctx, from, to, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read stats archive: %w", err)
	}
	out := make([]types.Metadata, 0, len(docs))
	for _, doc := range docs {
		meta, err := doc.ToMetadata()
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}
