package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/vsrlabs/positions-indexer/internal/query"
	"github.com/vsrlabs/positions-indexer/internal/types"
	"github.com/vsrlabs/positions-indexer/internal/vsr"
)

const dataNotInitializedMsg = "Data not initialized yet. Please try again in a few minutes."

type errorResponse struct {
	Error string `json:"error"`
}

type delegatedResponse struct {
	DelegatedPositionKey types.PublicKey `json:"delegated_position_key"`
	SubDao               string          `json:"sub_dao"`
	LastClaimedEpoch     uint64          `json:"last_claimed_epoch"`
	StartTs              int64           `json:"start_ts"`
	PendingRewards       uint64          `json:"pending_rewards"`
	Purged               bool            `json:"purged"`
}

type positionResponse struct {
	PositionKey  types.PublicKey    `json:"position_key"`
	Mint         types.PublicKey    `json:"mint"`
	Owner        types.PublicKey    `json:"owner"`
	LockedTokens uint64             `json:"locked_tokens"`
	StartTs      int64              `json:"start_ts"`
	GenesisEndTs int64              `json:"genesis_end_ts"`
	EndTs        int64              `json:"end_ts"`
	DurationS    int64              `json:"duration_s"`
	VotingWeight math.Int           `json:"voting_weight"`
	LockupType   string             `json:"lockup_type"`
	Delegated    *delegatedResponse `json:"delegated,omitempty"`
}

func newPositionResponse(p *types.Position) positionResponse {
	resp := positionResponse{
		PositionKey:  p.Key,
		Mint:         p.Mint,
		Owner:        p.Owner,
		LockedTokens: p.LockedTokens,
		StartTs:      p.StartTs,
		GenesisEndTs: p.GenesisEnd,
		EndTs:        p.EndTs,
		DurationS:    p.Duration,
		VotingWeight: scaleDown(p.VotingWeight),
		LockupType:   p.LockupKind.String(),
	}
	if d := p.Delegation; d != nil {
		resp.Delegated = &delegatedResponse{
			DelegatedPositionKey: d.Key,
			SubDao:               d.SubNetwork.String(),
			LastClaimedEpoch:     d.LastClaimedEpoch,
			StartTs:              d.StartTs,
			PendingRewards:       d.PendingRewards,
			Purged:               d.Purged,
		}
	}
	return resp
}

func newPositionResponses(positions []*types.Position) []positionResponse {
	out := make([]positionResponse, len(positions))
	for i, p := range positions {
		out[i] = newPositionResponse(p)
	}
	return out
}

type positionsResponse struct {
	Timestamp         int64              `json:"timestamp"`
	Positions         []positionResponse `json:"positions"`
	PositionsTotalLen int                `json:"positions_total_len"`
}

type delegatedStakesResponse struct {
	Timestamp          int64              `json:"timestamp"`
	DelegatedPositions []positionResponse `json:"delegated_positions"`
	PositionsTotalLen  int                `json:"positions_total_len"`
}

type topOwnerResponse struct {
	Owner        types.PublicKey `json:"owner"`
	LockedTokens uint64          `json:"locked_tokens"`
	VotingWeight math.Int        `json:"voting_weight"`
}

type topOwnersResponse struct {
	Top []topOwnerResponse `json:"top"`
}

type tokenBalanceResponse struct {
	Mint     types.PublicKey `json:"mint"`
	Amount   uint64          `json:"amount"`
	UiAmount string          `json:"ui_amount"`
}

func newTokenBalanceResponse(b types.TokenBalance) tokenBalanceResponse {
	return tokenBalanceResponse{Mint: b.Mint, Amount: b.Amount, UiAmount: b.String()}
}

type walletResponse struct {
	Hnt    tokenBalanceResponse `json:"hnt"`
	Iot    tokenBalanceResponse `json:"iot"`
	Mobile tokenBalanceResponse `json:"mobile"`
}

// AccountResponse is the rendered account view shared by the HTTP API and the
// command line.
type AccountResponse struct {
	Owner     types.PublicKey                       `json:"owner"`
	Timestamp int64                                 `json:"timestamp"`
	Balances  types.LockedBalances                  `json:"balances"`
	Wallet    *walletResponse                       `json:"wallet,omitempty"`
	Positions map[types.Grouping][]positionResponse `json:"positions"`
}

func NewAccountResponse(acc *query.AccountView) AccountResponse {
	b := acc.Balances
	for _, bal := range []*types.Balance{
		&b.VeHnt, &b.VeIot, &b.VeMobile, &b.IotDelegated, &b.MobileDelegated, &b.Undelegated,
	} {
		bal.VotingWeight = scaleDown(bal.VotingWeight)
	}

	resp := AccountResponse{
		Owner:     acc.Owner,
		Timestamp: acc.Timestamp,
		Balances:  b,
		Positions: make(map[types.Grouping][]positionResponse, len(acc.Positions)),
	}
	for g, positions := range acc.Positions {
		resp.Positions[g] = newPositionResponses(positions)
	}
	if w := acc.Wallet; w != nil {
		resp.Wallet = &walletResponse{
			Hnt:    newTokenBalanceResponse(w.Hnt),
			Iot:    newTokenBalanceResponse(w.Iot),
			Mobile: newTokenBalanceResponse(w.Mobile),
		}
	}
	return resp
}

type timestampsResponse struct {
	Timestamps []int64 `json:"timestamps"`
}

type historyResponse struct {
	Stats []types.Metadata `json:"stats"`
}

type healthResponse struct {
	Status            string `json:"status"`
	RefresherState    string `json:"refresher_state"`
	Initialized       bool   `json:"initialized"`
	SnapshotTimestamp int64  `json:"snapshot_timestamp,omitempty"`
}

// scaleMetadata converts voting weights to their display precision. Fall
// rates stay precision-scaled, they would round to zero otherwise.
func scaleMetadata(m types.Metadata) types.Metadata {
	for _, p := range []*types.PoolData{&m.Network, &m.Undelegated, &m.Iot, &m.Mobile} {
		p.Total.VotingWeight = scaleDown(p.Total.VotingWeight)
		p.Stats.AvgVotingWeight = scaleDown(p.Stats.AvgVotingWeight)
		p.Stats.MedianVotingWeight = scaleDown(p.Stats.MedianVotingWeight)
	}
	return m
}

func scaleEpochs(epochs []types.EpochSummary) []types.EpochSummary {
	out := make([]types.EpochSummary, len(epochs))
	for i, e := range epochs {
		e.Iot.UtilityScore = scaleDownPtr(e.Iot.UtilityScore)
		e.Mobile.UtilityScore = scaleDownPtr(e.Mobile.UtilityScore)
		out[i] = e
	}
	return out
}

func scaleDown(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return vsr.ScaleDown(v)
}

func scaleDownPtr(v *math.Int) *math.Int {
	if v == nil {
		return nil
	}
	scaled := scaleDown(*v)
	return &scaled
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// writeError maps query errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrNotInitialized):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: dataNotInitializedMsg})
	case errors.Is(err, query.ErrTimestampNotFound),
		errors.Is(err, query.ErrPositionNotFound),
		errors.Is(err, query.ErrArchiveDisabled):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, query.ErrInvalidStart):
		writeBadRequest(w, err)
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
