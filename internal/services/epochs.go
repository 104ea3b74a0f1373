package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/decoder"
	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
	"github.com/vsrlabs/positions-indexer/internal/rewards"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
)

const (
	epochsBootstrapAttempts = 10
	epochsBootstrapDelay    = 30 * time.Second
)

// EpochStore keeps the reward epoch history used for pending reward
// computation. The list is replaced only when a new epoch shows up.
type EpochStore struct {
	chain chainclient.ChainInterface
	keys  *config.ProgramKeys

	mu     sync.RWMutex
	epochs []types.EpochSummary
}

func NewEpochStore(chain chainclient.ChainInterface, keys *config.ProgramKeys) *EpochStore {
	return &EpochStore{chain: chain, keys: keys}
}

// Latest returns the current epoch history. Callers must not modify it.
func (s *EpochStore) Latest() []types.EpochSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epochs
}

// Bootstrap loads the history, retrying until it succeeds or attempts run out.
func (s *EpochStore) Bootstrap(ctx context.Context) error {
	return s.bootstrap(ctx, epochsBootstrapAttempts, epochsBootstrapDelay)
}

func (s *EpochStore) bootstrap(ctx context.Context, attempts uint, delay time.Duration) error {
	epochs, err := retry.DoWithData(
		func() ([]types.EpochSummary, error) {
			return FetchEpochSummaries(ctx, s.chain, s.keys)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().
				Err(err).
				Uint("attempt", n+1).
				Uint("max_attempts", attempts).
				Msg("Failed to load epoch history, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to load epoch history: %w", err)
	}

	s.mu.Lock()
	s.epochs = epochs
	s.mu.Unlock()

	log.Ctx(ctx).Info().Int("epochs", len(epochs)).Msg("Loaded epoch history")
	return nil
}

// Refresh pulls the history again and swaps it in if it grew.
func (s *EpochStore) Refresh(ctx context.Context) error {
	epochs, err := FetchEpochSummaries(ctx, s.chain, s.keys)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !newEpochAppeared(s.epochs, epochs) {
		return nil
	}
	s.epochs = epochs

	log.Ctx(ctx).Info().
		Uint64("latest_epoch", epochs[len(epochs)-1].Epoch).
		Msg("New epoch data pulled")
	return nil
}

// Watch reloads the history every interval until ctx is done. A failed reload
// keeps the previous history and is retried on the next tick.
func (s *EpochStore) Watch(ctx context.Context, clk clock.Clock, interval time.Duration) {
	log := log.Ctx(ctx)
	log.Info().Dur("interval", interval).Msg("Watching epoch history")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopped watching epoch history")
			return
		case <-clk.After(interval):
		}

		if err := metrics.ObserveJob(ctx, "epochs", s.Refresh); err != nil {
			log.Error().Err(err).Msg("Failed to reload epoch history")
		}
	}
}

func newEpochAppeared(current, pulled []types.EpochSummary) bool {
	if len(pulled) == 0 {
		return false
	}
	if len(current) != len(pulled) {
		return true
	}
	return current[len(current)-1].Epoch != pulled[len(pulled)-1].Epoch
}

// FetchEpochSummaries scans the sub-network epoch records and joins them into
// per-epoch summaries. Records of sub-networks other than the two rewarded
// ones are ignored.
func FetchEpochSummaries(
	ctx context.Context, chain chainclient.ChainInterface, keys *config.ProgramKeys,
) ([]types.EpochSummary, error) {
	accounts, err := chain.GetProgramAccounts(ctx, keys.DaoProgram,
		chainclient.DataSizeFilter(keys.EpochInfoDataSize),
		chainclient.MemcmpFilter(0, decoder.EpochInfoDiscriminator),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan epoch records: %w", err)
	}

	infos := make([]types.SubNetworkEpochInfo, 0, len(accounts))
	for _, acc := range accounts {
		info, err := decoder.DecodeEpochInfo(acc.Key, acc.Data)
		if err != nil {
			return nil, err
		}
		sub, err := keys.SubNetworkForSubDao(info.SubDao)
		if err != nil {
			log.Ctx(ctx).Debug().
				Str("account", acc.Key.String()).
				Str("sub_dao", info.SubDao.String()).
				Msg("Skipping epoch record of unrelated sub-network")
			continue
		}
		info.SubNetwork = sub
		infos = append(infos, info)
	}

	return rewards.BuildEpochSummaries(infos)
}
