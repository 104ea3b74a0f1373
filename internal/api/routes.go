package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(recordMetrics)

	r.Get("/healthz", s.healthz)

	r.Route("/v1/positions", func(r chi.Router) {
		r.Get("/", s.listPositions(types.GroupingVeHnt))
		r.Get("/info", s.metadata)
		r.Get("/info/history", s.statsHistory)
		r.Get("/history", s.snapshotTimestamps)
		r.Get("/csv", s.positionsCSV)
		r.Get("/{position}", s.getPosition(types.GroupingVeHnt))
		for _, g := range types.AllGroupings() {
			r.Get("/"+g.String(), s.listPositions(g))
			r.Get("/"+g.String()+"/{position}", s.getPosition(g))
		}
		r.Get("/vehnt/metadata", s.metadata)
	})

	r.Route("/v1/delegated_stakes", func(r chi.Router) {
		r.Get("/", s.delegatedStakes)
		r.Get("/csv", s.delegatedCSV)
		r.Get("/info", s.metadata)
	})

	r.Route("/v1/accounts", func(r chi.Router) {
		r.Get("/{account}", s.account)
		for _, g := range types.AllGroupings() {
			r.Get("/"+g.String()+"/top", s.topOwners(g))
		}
	})

	r.Get("/v1/epoch/info", s.epochInfo)

	return r
}
