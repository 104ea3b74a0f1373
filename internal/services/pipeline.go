package services

import (
	"context"
	"fmt"
	"sort"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/aggregation"
	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/decoder"
	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
	"github.com/vsrlabs/positions-indexer/internal/rewards"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

// EpochSource provides the reward epoch history a pull computes rewards with.
type EpochSource interface {
	Latest() []types.EpochSummary
}

// Puller turns ledger state into a snapshot: scan, decode, weigh, attribute
// rewards, aggregate. It is driven by a single refresher goroutine.
type Puller struct {
	chain  chainclient.ChainInterface
	keys   *config.ProgramKeys
	owners *OwnerResolver
	epochs EpochSource
	clock  clock.Clock

	// positions seen by the previous pull, used to evict stale owners
	known map[types.PublicKey]struct{}
}

func NewPuller(
	chain chainclient.ChainInterface,
	keys *config.ProgramKeys,
	owners *OwnerResolver,
	epochs EpochSource,
	clk clock.Clock,
) *Puller {
	return &Puller{
		chain:  chain,
		keys:   keys,
		owners: owners,
		epochs: epochs,
		clock:  clk,
	}
}

// positionEntry is a decoded position with the voting config it references.
type positionEntry struct {
	record   types.PositionRecord
	config   types.VotingMintConfig
	grouping types.Grouping
}

func (p *Puller) Pull(ctx context.Context) (*types.Snapshot, error) {
	ts := p.clock.Now().Unix()
	log := log.Ctx(ctx)

	entries, err := p.fetchPositions(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]types.PositionRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.record)
	}
	owners, err := p.owners.Resolve(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve position owners: %w", err)
	}
	p.forgetVanished(entries)

	positions := make(map[types.Grouping][]*types.Position)
	byKey := make(map[types.PublicKey]positionEntry, len(entries))
	unresolved := 0
	for _, e := range entries {
		owner, ok := owners[e.record.Key]
		if !ok {
			unresolved++
			log.Warn().
				Str("position_key", e.record.Key.String()).
				Str("mint", e.record.Mint.String()).
				Msg("Skipping position without resolvable owner")
			continue
		}

		pos, err := decorate(e, owner, ts)
		if err != nil {
			return nil, err
		}
		positions[e.grouping] = append(positions[e.grouping], pos)
		if e.grouping == types.GroupingVeHnt {
			byKey[e.record.Key] = e
		}
	}
	metrics.AddUnresolvedOwners(unresolved)

	epochs := p.epochs.Latest()
	delegations, err := p.fetchDelegations(ctx, byKey, epochs)
	if err != nil {
		return nil, err
	}

	supply, err := FetchTokenSupply(ctx, p.chain, p.keys)
	if err != nil {
		return nil, err
	}

	snap, err := aggregation.Aggregate(aggregation.Input{
		Timestamp:   ts,
		Positions:   positions,
		Delegations: delegations,
		Supply:      supply,
		Epochs:      epochs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate snapshot: %w", err)
	}
	return snap, nil
}

// fetchPositions scans every position account and pairs it with the voting
// config of its registrar.
func (p *Puller) fetchPositions(ctx context.Context) ([]positionEntry, error) {
	accounts, err := p.chain.GetProgramAccounts(ctx, p.keys.VsrProgram,
		chainclient.DataSizeFilter(p.keys.PositionDataSize),
		chainclient.MemcmpFilter(0, decoder.PositionDiscriminator),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan positions: %w", err)
	}

	records := make([]types.PositionRecord, 0, len(accounts))
	registrarSet := make(map[types.PublicKey]struct{})
	for _, acc := range accounts {
		rec, err := decoder.DecodePosition(acc.Key, acc.Data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		registrarSet[rec.Registrar] = struct{}{}
	}

	registrars, err := p.fetchRegistrars(ctx, registrarSet)
	if err != nil {
		return nil, err
	}

	entries := make([]positionEntry, 0, len(records))
	for _, rec := range records {
		reg := registrars[rec.Registrar]
		cfg, ok := reg.VotingMint(rec.VotingMintConfigIdx)
		if !ok {
			return nil, fmt.Errorf("%w: position %s references voting mint %d of registrar %s",
				types.ErrInvalidVotingConfig, rec.Key, rec.VotingMintConfigIdx, rec.Registrar)
		}
		grouping, ok := p.keys.GroupingForMint(cfg.Mint)
		if !ok {
			log.Ctx(ctx).Warn().
				Str("position_key", rec.Key.String()).
				Str("mint", cfg.Mint.String()).
				Err(types.ErrUnknownMint).
				Msg("Skipping position")
			continue
		}
		entries = append(entries, positionEntry{record: rec, config: cfg, grouping: grouping})
	}
	return entries, nil
}

func (p *Puller) fetchRegistrars(
	ctx context.Context, set map[types.PublicKey]struct{},
) (map[types.PublicKey]*types.Registrar, error) {
	keys := make([]types.PublicKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	data, err := p.chain.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registrars: %w", err)
	}

	registrars := make(map[types.PublicKey]*types.Registrar, len(keys))
	for i, raw := range data {
		if raw == nil {
			return nil, fmt.Errorf("%w: registrar %s", types.ErrAccountNotFound, keys[i])
		}
		reg, err := decoder.DecodeRegistrar(keys[i], raw)
		if err != nil {
			return nil, err
		}
		for _, cfg := range reg.VotingMints {
			if err := vsr.ValidateConfig(cfg); err != nil {
				return nil, fmt.Errorf("registrar %s: %w", keys[i], err)
			}
		}
		registrars[keys[i]] = &reg
	}
	return registrars, nil
}

// fetchDelegations returns the delegations of known network positions keyed
// by position, with pending rewards attached. Delegations of positions that
// are not part of this pull are dropped.
func (p *Puller) fetchDelegations(
	ctx context.Context, positions map[types.PublicKey]positionEntry, epochs []types.EpochSummary,
) (map[types.PublicKey]types.Delegation, error) {
	accounts, err := p.chain.GetProgramAccounts(ctx, p.keys.DaoProgram,
		chainclient.MemcmpFilter(0, decoder.DelegationDiscriminator),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan delegations: %w", err)
	}

	log := log.Ctx(ctx)
	delegations := make(map[types.PublicKey]types.Delegation, len(accounts))
	dropped := 0
	for _, acc := range accounts {
		rec, err := decoder.DecodeDelegation(acc.Key, acc.Data)
		if err != nil {
			log.Warn().Err(err).Str("account", acc.Key.String()).Msg("Skipping undecodable delegation")
			continue
		}
		sub, err := p.keys.SubNetworkForSubDao(rec.SubDao)
		if err != nil {
			return nil, fmt.Errorf("delegation %s: %w", rec.Key, err)
		}

		entry, ok := positions[rec.PositionKey]
		if !ok {
			dropped++
			log.Warn().
				Str("delegation_key", rec.Key.String()).
				Str("position_key", rec.PositionKey.String()).
				Err(types.ErrMissingPosition).
				Msg("Dropping delegation")
			continue
		}

		d := types.Delegation{
			Key:              rec.Key,
			PositionKey:      rec.PositionKey,
			SubNetwork:       sub,
			LastClaimedEpoch: rec.LastClaimedEpoch,
			StartTs:          rec.StartTs,
			Purged:           rec.Purged,
		}
		d.PendingRewards, err = rewards.PendingReward(d, entry.record, entry.config, epochs)
		if err != nil {
			return nil, fmt.Errorf("failed to compute pending rewards of %s: %w", rec.Key, err)
		}
		delegations[rec.PositionKey] = d
	}
	metrics.AddDroppedDelegations(dropped)

	return delegations, nil
}

// FetchTokenSupply reads the circulating supply of every grouping's mint.
func FetchTokenSupply(
	ctx context.Context, chain chainclient.ChainInterface, keys *config.ProgramKeys,
) (map[types.Grouping]math.Int, error) {
	supply := make(map[types.Grouping]math.Int)
	for _, g := range types.AllGroupings() {
		mint := keys.MintForGrouping(g)
		amount, err := chain.GetTokenSupply(ctx, mint)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s supply: %w", g, err)
		}
		supply[g] = amount
	}
	return supply, nil
}

func (p *Puller) forgetVanished(entries []positionEntry) {
	current := make(map[types.PublicKey]struct{}, len(entries))
	for _, e := range entries {
		current[e.record.Key] = struct{}{}
	}
	var vanished []types.PublicKey
	for k := range p.known {
		if _, ok := current[k]; !ok {
			vanished = append(vanished, k)
		}
	}
	p.owners.Forget(vanished)
	p.known = current
}

// decorate computes the voting weight of a position at ts.
func decorate(e positionEntry, owner types.PublicKey, ts int64) (*types.Position, error) {
	weight, err := vsr.WeightAt(e.record, e.config, ts)
	if err != nil {
		return nil, fmt.Errorf("position %s: %w", e.record.Key, err)
	}
	info, err := vsr.Info(e.record, e.config, ts)
	if err != nil {
		return nil, fmt.Errorf("position %s: %w", e.record.Key, err)
	}

	return &types.Position{
		Key:          e.record.Key,
		Mint:         e.record.Mint,
		Owner:        owner,
		Grouping:     e.grouping,
		LockedTokens: e.record.Amount,
		StartTs:      e.record.Lockup.StartTs,
		EndTs:        e.record.Lockup.EndTs,
		GenesisEnd:   e.record.GenesisEnd,
		Duration:     e.record.Lockup.Duration(),
		LockupKind:   e.record.Lockup.Kind,
		VotingWeight: weight,
		Info:         info,
	}, nil
}
