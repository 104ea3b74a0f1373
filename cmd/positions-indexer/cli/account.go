package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/api"
	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/query"
	"github.com/vsrlabs/positions-indexer/internal/services"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

// AccountCmd prints the positions and balances of one owner.
// Usage: ./positions-indexer account <pubkey> --config config.yml
func AccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account <pubkey>",
		Short: "Prints the positions, locked and liquid balances of an owner as JSON",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), publicKeyArg),
		RunE:  account,
	}
}

func publicKeyArg(_ *cobra.Command, args []string) error {
	if _, err := types.ParsePublicKey(args[0]); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	return nil
}

func account(cmd *cobra.Command, args []string) error {
	owner, err := types.ParsePublicKey(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keys, err := cfg.Programs.Keys()
	if err != nil {
		return err
	}

	chain := chainclient.NewChainClient(&cfg.Chain)
	snap, err := pullSnapshot(cmd.Context(), cfg, chain)
	if err != nil {
		return err
	}

	cache := snapshot.NewCache(0)
	cache.Install(snap)
	q := query.NewService(cache, nil, services.NewWalletReader(chain, keys))
	view, err := q.Account(cmd.Context(), owner)
	if err != nil {
		return err
	}
	return writeAccountJSON(os.Stdout, view)
}

func writeAccountJSON(w io.Writer, view *query.AccountView) error {
	return printJSON(w, api.NewAccountResponse(view))
}
