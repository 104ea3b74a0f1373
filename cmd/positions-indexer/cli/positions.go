package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/services"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

// PositionsCmd computes one snapshot and prints its statistics.
// Usage: ./positions-indexer positions --config config.yml
func PositionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Computes a single positions snapshot and prints a summary",
		Args:  cobra.ExactArgs(0),
		RunE:  positions,
	}
}

func positions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := pullSnapshot(cmd.Context(), cfg, chainclient.NewChainClient(&cfg.Chain))
	if err != nil {
		return err
	}
	return printSummary(os.Stdout, snap)
}

// pullSnapshot runs one full pull without starting the refresher.
func pullSnapshot(ctx context.Context, cfg *config.Config, chain chainclient.ChainInterface) (*types.Snapshot, error) {
	service, err := services.NewService(cfg, chain, nil, snapshot.NewCache(0), clock.SystemClock{})
	if err != nil {
		return nil, err
	}

	snap, err := service.PullOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute snapshot: %w", err)
	}
	log.Ctx(ctx).Info().Int64("timestamp", snap.Timestamp).Msg("Snapshot computed")
	return snap, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, snap *types.Snapshot) error {
	if _, err := fmt.Fprintf(w, "snapshot at %d\n", snap.Timestamp); err != nil {
		return err
	}

	for _, g := range types.AllGroupings() {
		set := snap.Pool(g)
		if set == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-9s positions=%d delegated=%d supply=%s\n",
			g, len(set.Positions), len(set.DelegatedPositions),
			types.FormatAmount(set.TokenSupply, g.Decimals()),
		); err != nil {
			return err
		}
	}

	pools := []struct {
		name string
		data types.PoolData
	}{
		{"network", snap.Stats.Network},
		{"undelegated", snap.Stats.Undelegated},
		{"iot", snap.Stats.Iot},
		{"mobile", snap.Stats.Mobile},
	}
	for _, p := range pools {
		total := p.data.Total
		if _, err := fmt.Fprintf(w,
			"%-12s count=%d locked=%s weight=%s median_weight=%s avg_lockup_days=%d\n",
			p.name,
			total.Count,
			types.FormatTokens(total.LockedTokens, types.NetworkTokenDecimals),
			types.FormatAmount(vsr.ScaleDown(total.VotingWeight), types.NetworkTokenDecimals),
			types.FormatAmount(vsr.ScaleDown(p.data.Stats.MedianVotingWeight), types.NetworkTokenDecimals),
			p.data.Stats.AvgLockup/86400,
		); err != nil {
			return err
		}
	}
	return nil
}
