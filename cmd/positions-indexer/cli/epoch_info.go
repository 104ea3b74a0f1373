package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/services"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

// EpochInfoCmd prints the joined sub-network epoch history as CSV.
// Usage: ./positions-indexer epoch-info --config config.yml
func EpochInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "epoch-info",
		Short: "Prints the sub-network epoch history as CSV",
		Args:  cobra.ExactArgs(0),
		RunE:  epochInfo,
	}
}

func epochInfo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keys, err := cfg.Programs.Keys()
	if err != nil {
		return err
	}

	chain := chainclient.NewChainClient(&cfg.Chain)
	epochs, err := services.FetchEpochSummaries(cmd.Context(), chain, keys)
	if err != nil {
		return err
	}
	return writeEpochsCSV(os.Stdout, epochs)
}

var epochsHeader = []string{
	"epoch", "start_ts", "rewards_issued_at",
	"iot_dc_burned", "iot_vehnt_at_epoch_start", "iot_delegation_rewards_issued", "iot_utility_score",
	"mobile_dc_burned", "mobile_vehnt_at_epoch_start", "mobile_delegation_rewards_issued", "mobile_utility_score",
}

func writeEpochsCSV(w io.Writer, epochs []types.EpochSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(epochsHeader); err != nil {
		return err
	}
	for _, e := range epochs {
		row := []string{strconv.FormatUint(e.Epoch, 10), optionalTs(e.StartTs), optionalTs(e.RewardsIssuedAt)}
		row = append(row, subNetworkColumns(e.Iot)...)
		row = append(row, subNetworkColumns(e.Mobile)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write epoch %d: %w", e.Epoch, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func subNetworkColumns(e types.SubNetworkEpoch) []string {
	score := ""
	if e.UtilityScore != nil {
		score = vsr.ScaleDown(*e.UtilityScore).String()
	}
	return []string{
		strconv.FormatUint(e.DcBurned, 10),
		strconv.FormatUint(e.VotingWeightAtEpochStart, 10),
		strconv.FormatUint(e.DelegationRewardsIssued, 10),
		score,
	}
}

func optionalTs(ts *int64) string {
	if ts == nil {
		return ""
	}
	return strconv.FormatInt(*ts, 10)
}
