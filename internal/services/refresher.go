package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
	"github.com/vsrlabs/positions-indexer/internal/observability/tracing"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
)

type RefresherState int32

const (
	StateIdle RefresherState = iota
	StatePulling
	StateFailedBackoff
)

func (s RefresherState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePulling:
		return "pulling"
	case StateFailedBackoff:
		return "failed_backoff"
	default:
		return "unknown"
	}
}

// PullFunc builds a complete snapshot from ledger state.
type PullFunc func(ctx context.Context) (*types.Snapshot, error)

// InstallHook observes every snapshot right after it became the latest one.
type InstallHook func(ctx context.Context, s *types.Snapshot)

var errEmptySnapshot = errors.New("pull returned no snapshot")

// Refresher periodically replaces the cached snapshot. A failed pull leaves the
// previous snapshot installed.
type Refresher struct {
	pull      PullFunc
	cache     *snapshot.Cache
	clock     clock.Clock
	cfg       config.RefresherConfig
	onInstall InstallHook

	state atomic.Int32
	// failures is only touched by the goroutine calling Step
	failures int
}

func NewRefresher(
	pull PullFunc,
	cache *snapshot.Cache,
	clk clock.Clock,
	cfg config.RefresherConfig,
	onInstall InstallHook,
) *Refresher {
	return &Refresher{
		pull:      pull,
		cache:     cache,
		clock:     clk,
		cfg:       cfg,
		onInstall: onInstall,
	}
}

func (r *Refresher) State() RefresherState {
	return RefresherState(r.state.Load())
}

func (r *Refresher) setState(s RefresherState) {
	r.state.Store(int32(s))
	metrics.RecordRefresherState(int(s))
}

// Step runs one pull and returns how long to wait before the next one. The
// pull is not interrupted by cancellation of ctx.
func (r *Refresher) Step(ctx context.Context) time.Duration {
	ctx = tracing.InjectComponent(tracing.InjectTraceID(ctx), "refresher")
	log := log.Ctx(ctx)

	r.setState(StatePulling)

	var snap *types.Snapshot
	err := metrics.ObserveJob(context.WithoutCancel(ctx), "refresh", func(ctx context.Context) error {
		var err error
		snap, err = r.pull(ctx)
		if err == nil && snap == nil {
			err = errEmptySnapshot
		}
		return err
	})
	if err != nil {
		r.failures++
		metrics.IncRefreshFailures()
		r.setState(StateFailedBackoff)

		if r.failures <= r.cfg.MaxImmediateRetries {
			log.Error().
				Err(err).
				Int("consecutive_failures", r.failures).
				Msg("Refresh failed, retrying immediately")
			return 0
		}

		log.Error().
			Err(err).
			Int("consecutive_failures", r.failures).
			Dur("backoff", r.cfg.Backoff).
			Msg("Refresh failed, backing off")
		r.failures = 0
		return r.cfg.Backoff
	}

	r.cache.Install(snap)
	r.failures = 0
	if r.onInstall != nil {
		r.onInstall(ctx, snap)
	}
	r.setState(StateIdle)

	log.Info().
		Int64("timestamp", snap.Timestamp).
		Interface("positions", positionCounts(snap)).
		Msg("Installed new snapshot")
	return r.cfg.Interval
}

// Run refreshes until ctx is cancelled. Cancellation is observed between
// cycles only.
func (r *Refresher) Run(ctx context.Context) {
	logger := log.Ctx(ctx)
	logger.Info().
		Dur("interval", r.cfg.Interval).
		Msg("Starting snapshot refresher")

	for {
		wait := r.Step(ctx)
		if ctx.Err() != nil {
			logger.Info().Msg("Refresher stopped due to context cancellation")
			return
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Refresher stopped due to context cancellation")
			return
		case <-r.clock.After(wait):
		}
	}
}

func positionCounts(s *types.Snapshot) map[string]int {
	counts := make(map[string]int, len(s.Pools))
	for g, set := range s.Pools {
		counts[g.String()] = len(set.Positions)
	}
	return counts
}
