package cli

import (
	"io"
	"os"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

// LockedCmd computes one snapshot and prints the tokens locked per voting mint.
// Usage: ./positions-indexer locked --config config.yml
func LockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locked",
		Short: "Prints the tokens locked in positions per voting mint as JSON",
		Args:  cobra.ExactArgs(0),
		RunE:  locked,
	}
}

func locked(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keys, err := cfg.Programs.Keys()
	if err != nil {
		return err
	}

	snap, err := pullSnapshot(cmd.Context(), cfg, chainclient.NewChainClient(&cfg.Chain))
	if err != nil {
		return err
	}
	return writeLockedJSON(os.Stdout, keys, snap)
}

type lockedEntry struct {
	Mint         types.PublicKey `json:"mint"`
	Positions    int             `json:"positions"`
	LockedTokens math.Int        `json:"locked_tokens"`
	UiLocked     string          `json:"ui_locked"`
}

// writeLockedJSON sums locked amounts as big integers so the totals of large
// pools cannot wrap.
func writeLockedJSON(w io.Writer, keys *config.ProgramKeys, snap *types.Snapshot) error {
	out := make(map[types.Grouping]lockedEntry)
	for _, g := range types.AllGroupings() {
		total := math.ZeroInt()
		count := 0
		if set := snap.Pool(g); set != nil {
			for _, p := range set.Positions {
				total = total.Add(math.NewIntFromUint64(p.LockedTokens))
			}
			count = len(set.Positions)
		}
		out[g] = lockedEntry{
			Mint:         keys.MintForGrouping(g),
			Positions:    count,
			LockedTokens: total,
			UiLocked:     types.FormatAmount(total, g.Decimals()),
		}
	}
	return printJSON(w, out)
}
