package snapshot

import (
	"sort"
	"sync"
	"time"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

// DefaultRetention is how long superseded snapshots stay queryable by timestamp.
const DefaultRetention = 16 * time.Minute

// state is replaced as a whole on install so readers never observe a
// snapshot paired with another snapshot's indices.
type state struct {
	latest    *types.Snapshot
	positions map[types.PublicKey]*types.Position
	owners    map[types.PublicKey][]*types.Position
}

// Cache holds the latest snapshot and a short history of previous ones.
// Install is the only writer.
type Cache struct {
	mu        sync.RWMutex
	current   *state
	history   map[int64]*types.Snapshot
	retention time.Duration
}

func NewCache(retention time.Duration) *Cache {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Cache{
		history:   make(map[int64]*types.Snapshot),
		retention: retention,
	}
}

// Install publishes s as the latest snapshot and prunes history entries that
// are not newer than s.Timestamp minus the retention window.
func (c *Cache) Install(s *types.Snapshot) {
	next := buildState(s)
	cutoff := s.Timestamp - int64(c.retention/time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = next
	c.history[s.Timestamp] = s
	for ts := range c.history {
		if ts <= cutoff {
			delete(c.history, ts)
		}
	}
}

func (c *Cache) Latest() (*types.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, false
	}
	return c.current.latest, true
}

// At returns the snapshot created exactly at ts, if it is still retained.
func (c *Cache) At(ts int64) (*types.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.history[ts]
	return s, ok
}

func (c *Cache) LookupPosition(key types.PublicKey) (*types.Position, bool) {
	st := c.state()
	if st == nil {
		return nil, false
	}
	p, ok := st.positions[key]
	return p, ok
}

// Holdings is one owner's entry of the latest snapshot. Account and
// Positions are read from the same installed state.
type Holdings struct {
	Timestamp int64
	Account   *types.Account
	Positions []*types.Position
}

// Holdings returns what owner holds in the latest snapshot. The second result
// is false before the first install; an owner without positions yields a
// nil Account.
func (c *Cache) Holdings(owner types.PublicKey) (Holdings, bool) {
	st := c.state()
	if st == nil {
		return Holdings{}, false
	}
	return Holdings{
		Timestamp: st.latest.Timestamp,
		Account:   st.latest.Accounts[owner],
		Positions: st.owners[owner],
	}, true
}

// HistoryTimestamps lists retained snapshot timestamps, oldest first.
func (c *Cache) HistoryTimestamps() []int64 {
	c.mu.RLock()
	timestamps := make([]int64, 0, len(c.history))
	for ts := range c.history {
		timestamps = append(timestamps, ts)
	}
	c.mu.RUnlock()

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps
}

func (c *Cache) state() *state {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func buildState(s *types.Snapshot) *state {
	st := &state{
		latest:    s,
		positions: make(map[types.PublicKey]*types.Position),
		owners:    make(map[types.PublicKey][]*types.Position),
	}
	for _, g := range types.AllGroupings() {
		set := s.Pool(g)
		if set == nil {
			continue
		}
		for _, p := range set.Positions {
			st.positions[p.Key] = p
			st.owners[p.Owner] = append(st.owners[p.Owner], p)
		}
	}
	return st
}
