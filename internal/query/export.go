package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

var positionsHeader = []string{
	"position_key", "owner", "hnt_amount", "start_ts", "genesis_end_ts", "end_ts",
	"duration_s", "vehnt", "lockup_type", "delegated_position_key", "delegated_sub_dao",
	"delegated_last_claimed_epoch", "delegated_pending_rewards",
}

var delegatedHeader = []string{
	"position_key", "delegated_position_key", "hnt_amount", "sub_dao", "last_claimed_epoch",
	"start_ts", "genesis_end_ts", "end_ts", "duration_s", "purged", "vehnt", "lockup_type",
}

// ExportPositionsCSV writes every network position of the latest snapshot and
// returns the snapshot timestamp. Weights are written scaled down.
func (s *Service) ExportPositionsCSV(w io.Writer) (int64, error) {
	snap, err := s.snapshot(nil)
	if err != nil {
		return 0, err
	}
	var positions []*types.Position
	if set := snap.Pool(types.GroupingVeHnt); set != nil {
		positions = set.Positions
	}
	return snap.Timestamp, writeCSV(w, positionsHeader, positions, positionRow)
}

// ExportDelegatedCSV writes the delegated network positions of the latest snapshot.
func (s *Service) ExportDelegatedCSV(w io.Writer) (int64, error) {
	snap, err := s.snapshot(nil)
	if err != nil {
		return 0, err
	}
	var positions []*types.Position
	if set := snap.Pool(types.GroupingVeHnt); set != nil {
		positions = set.DelegatedPositions
	}
	return snap.Timestamp, writeCSV(w, delegatedHeader, positions, delegatedRow)
}

func writeCSV(w io.Writer, header []string, positions []*types.Position, row func(*types.Position) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range positions {
		if err := cw.Write(row(p)); err != nil {
			return fmt.Errorf("failed to write position %s: %w", p.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func utoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func positionRow(p *types.Position) []string {
	row := []string{
		p.Key.String(),
		p.Owner.String(),
		utoa(p.LockedTokens),
		itoa(p.StartTs),
		itoa(p.GenesisEnd),
		itoa(p.EndTs),
		itoa(p.Duration),
		vsr.ScaleDown(p.VotingWeight).String(),
		p.LockupKind.String(),
	}
	if d := p.Delegation; d != nil {
		return append(row, d.Key.String(), d.SubNetwork.String(), utoa(d.LastClaimedEpoch), utoa(d.PendingRewards))
	}
	return append(row, "", "", "", "")
}

func delegatedRow(p *types.Position) []string {
	d := p.Delegation
	if d == nil {
		d = &types.Delegation{}
	}
	return []string{
		p.Key.String(),
		d.Key.String(),
		types.FormatTokens(p.LockedTokens, types.NetworkTokenDecimals),
		d.SubNetwork.String(),
		utoa(d.LastClaimedEpoch),
		itoa(p.StartTs),
		itoa(p.GenesisEnd),
		itoa(p.EndTs),
		itoa(p.Duration),
		strconv.FormatBool(d.Purged),
		vsr.ScaleDown(p.VotingWeight).String(),
		p.LockupKind.String(),
	}
}
