package cli

import (
	"io"
	"os"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/services"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

// SupplyCmd prints the token supply of the network and sub-network mints.
// Usage: ./positions-indexer supply --config config.yml
func SupplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Prints the network and sub-network token supply as JSON",
		Args:  cobra.ExactArgs(0),
		RunE:  supply,
	}
}

func supply(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keys, err := cfg.Programs.Keys()
	if err != nil {
		return err
	}

	chain := chainclient.NewChainClient(&cfg.Chain)
	amounts, err := services.FetchTokenSupply(cmd.Context(), chain, keys)
	if err != nil {
		return err
	}
	return writeSupplyJSON(os.Stdout, keys, amounts)
}

type supplyEntry struct {
	Mint     types.PublicKey `json:"mint"`
	Supply   math.Int        `json:"supply"`
	UiSupply string          `json:"ui_supply"`
}

func writeSupplyJSON(w io.Writer, keys *config.ProgramKeys, amounts map[types.Grouping]math.Int) error {
	out := make(map[types.Grouping]supplyEntry, len(amounts))
	for _, g := range types.AllGroupings() {
		amount, ok := amounts[g]
		if !ok || amount.IsNil() {
			amount = math.ZeroInt()
		}
		out[g] = supplyEntry{
			Mint:     keys.MintForGrouping(g),
			Supply:   amount,
			UiSupply: types.FormatAmount(amount, g.Decimals()),
		}
	}
	return printJSON(w, out)
}
