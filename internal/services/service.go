package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/db"
	"github.com/vsrlabs/positions-indexer/internal/db/model"
	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
	"github.com/vsrlabs/positions-indexer/internal/observability/tracing"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
)

const archiveTimeout = 10 * time.Second

type Service struct {
	cfg       *config.Config
	db        db.DbInterface
	cache     *snapshot.Cache
	clock     clock.Clock
	epochs    *EpochStore
	puller    *Puller
	refresher *Refresher
}

// NewService wires the indexing pipeline. database may be nil, in which case
// snapshot statistics are not archived.
func NewService(
	cfg *config.Config,
	chain chainclient.ChainInterface,
	database db.DbInterface,
	cache *snapshot.Cache,
	clk clock.Clock,
) (*Service, error) {
	keys, err := cfg.Programs.Keys()
	if err != nil {
		return nil, fmt.Errorf("invalid programs config: %w", err)
	}
	owners, err := NewOwnerResolver(chain, cfg.Owners.CacheSize, cfg.Chain.Parallelism)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		db:     database,
		cache:  cache,
		clock:  clk,
		epochs: NewEpochStore(chain, keys),
	}
	s.puller = NewPuller(chain, keys, owners, s.epochs, clk)
	s.refresher = NewRefresher(s.puller.Pull, cache, clk, cfg.Refresher, s.onInstall)
	return s, nil
}

// StartIndexer loads the epoch history and starts the background refresh
// loops. It returns once both goroutines are running.
func (s *Service) StartIndexer(ctx context.Context) error {
	if err := s.epochs.Bootstrap(ctx); err != nil {
		return err
	}

	go s.epochs.Watch(tracing.InjectComponent(ctx, "epochs"), s.clock, s.cfg.Epochs.PollingInterval)
	go s.refresher.Run(ctx)

	return nil
}

// PullOnce computes a single snapshot without installing it.
func (s *Service) PullOnce(ctx context.Context) (*types.Snapshot, error) {
	if err := s.epochs.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return s.puller.Pull(ctx)
}

func (s *Service) RefresherState() RefresherState {
	return s.refresher.State()
}

func (s *Service) onInstall(ctx context.Context, snap *types.Snapshot) {
	counts := positionCounts(snap)
	metrics.RecordSnapshot(snap.Timestamp, counts)

	if s.db == nil {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	doc := model.NewSnapshotStatsDocument(snap.Stats, counts, s.clock.Now())
	if err := s.db.UpsertSnapshotStats(archiveCtx, doc); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Int64("timestamp", snap.Timestamp).
			Msg("Failed to archive snapshot stats")
	}
}
