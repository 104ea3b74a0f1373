package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vsrlabs/positions-indexer/internal/query"
	"github.com/vsrlabs/positions-indexer/internal/types"
)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:         "ok",
		RefresherState: s.indexer.RefresherState().String(),
	}
	if meta, err := s.query.Metadata(nil); err == nil {
		resp.Initialized = true
		resp.SnapshotTimestamp = meta.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listPositions(g types.Grouping) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePageParams(r)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		page, err := s.query.ListPositions(g, params)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, positionsResponse{
			Timestamp:         page.Timestamp,
			Positions:         newPositionResponses(page.Positions),
			PositionsTotalLen: page.PositionsTotalLen,
		})
	}
}

func (s *Server) getPosition(g types.Grouping) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := types.ParsePublicKey(chi.URLParam(r, "position"))
		if err != nil {
			writeBadRequest(w, fmt.Errorf("invalid position key: %w", err))
			return
		}
		p, err := s.query.GetPosition(g, key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newPositionResponse(p))
	}
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	ts, err := optionalInt64(r, "timestamp")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	meta, err := s.query.Metadata(ts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scaleMetadata(meta))
}

func (s *Server) statsHistory(w http.ResponseWriter, r *http.Request) {
	from, err := optionalInt64(r, "from")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := optionalInt64(r, "to")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	limit, err := optionalInt(r, "limit")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	var fromTs, toTs int64 = 0, time.Now().Unix()
	if from != nil {
		fromTs = *from
	}
	if to != nil {
		toTs = *to
	}
	var n int
	if limit != nil {
		n = *limit
	}

	stats, err := s.query.StatsHistory(r.Context(), fromTs, toTs, n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range stats {
		stats[i] = scaleMetadata(stats[i])
	}
	writeJSON(w, http.StatusOK, historyResponse{Stats: stats})
}

func (s *Server) delegatedStakes(w http.ResponseWriter, r *http.Request) {
	params, err := parsePageParams(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	page, err := s.query.DelegatedStakes(params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, delegatedStakesResponse{
		Timestamp:          page.Timestamp,
		DelegatedPositions: newPositionResponses(page.Positions),
		PositionsTotalLen:  page.PositionsTotalLen,
	})
}

func (s *Server) positionsCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, "positions", s.query.ExportPositionsCSV)
}

func (s *Server) delegatedCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, "delegated_positions", s.query.ExportDelegatedCSV)
}

// serveCSV renders the export in memory first, the file name carries the
// snapshot timestamp which is only known once the export ran.
func (s *Server) serveCSV(w http.ResponseWriter, r *http.Request, name string, export func(io.Writer) (int64, error)) {
	var buf bytes.Buffer
	ts, err := export(&buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s_%d.csv", name, ts)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	owner, err := types.ParsePublicKey(chi.URLParam(r, "account"))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid account: %w", err))
		return
	}
	acc, err := s.query.Account(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewAccountResponse(acc))
}

func (s *Server) snapshotTimestamps(w http.ResponseWriter, r *http.Request) {
	timestamps, err := s.query.SnapshotTimestamps()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timestampsResponse{Timestamps: timestamps})
}

func (s *Server) topOwners(g types.Grouping) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := optionalInt(r, "limit")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		n := query.DefaultTopOwners
		if limit != nil {
			n = *limit
		}
		accounts, err := s.query.TopOwners(g, n)
		if err != nil {
			writeError(w, r, err)
			return
		}
		top := make([]topOwnerResponse, len(accounts))
		for i, acc := range accounts {
			bal := acc.Balances.Grouping(g)
			top[i] = topOwnerResponse{
				Owner:        acc.Owner,
				LockedTokens: bal.LockedTokens,
				VotingWeight: scaleDown(bal.VotingWeight),
			}
		}
		writeJSON(w, http.StatusOK, topOwnersResponse{Top: top})
	}
}

func (s *Server) epochInfo(w http.ResponseWriter, r *http.Request) {
	epochs, err := s.query.EpochInfo()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scaleEpochs(epochs))
}

func parsePageParams(r *http.Request) (query.PageParams, error) {
	var params query.PageParams
	var err error
	if params.Start, err = optionalInt(r, "start"); err != nil {
		return params, err
	}
	if params.Limit, err = optionalInt(r, "limit"); err != nil {
		return params, err
	}
	if params.Timestamp, err = optionalInt64(r, "timestamp"); err != nil {
		return params, err
	}
	return params, nil
}

func optionalInt(r *http.Request, name string) (*int, error) {
	v, err := optionalInt64(r, name)
	if err != nil || v == nil {
		return nil, err
	}
	n := int(*v)
	return &n, nil
}

func optionalInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}
