package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vsrlabs/positions-indexer/internal/api"
	"github.com/vsrlabs/positions-indexer/internal/clients/chainclient"
	"github.com/vsrlabs/positions-indexer/internal/config"
	"github.com/vsrlabs/positions-indexer/internal/db"
	dbmodel "github.com/vsrlabs/positions-indexer/internal/db/model"
	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
	"github.com/vsrlabs/positions-indexer/internal/observability/tracing"
	"github.com/vsrlabs/positions-indexer/internal/query"
	"github.com/vsrlabs/positions-indexer/internal/services"
	"github.com/vsrlabs/positions-indexer/internal/snapshot"
	"github.com/vsrlabs/positions-indexer/internal/utils/clock"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the positions indexer and its query API",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error while loading config")
	}

	// initialize metrics with the metrics address from config
	metrics.Init(cfg.Metrics.Addr())

	// the stats archive is optional
	var dbClient db.DbInterface
	if cfg.Db != nil {
		dbClient = setupDb(ctx, cfg.Db)
	}

	var chain chainclient.ChainInterface = chainclient.NewChainClient(&cfg.Chain)
	chain = chainclient.NewChainClientWithMetrics(chain)

	cache := snapshot.NewCache(cfg.Refresher.HistoryRetention)
	service, err := services.NewService(cfg, chain, dbClient, cache, clock.SystemClock{})
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating service")
	}

	if err := service.StartIndexer(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while starting indexer")
	}

	keys, err := cfg.Programs.Keys()
	if err != nil {
		log.Fatal().Err(err).Msg("error while parsing program keys")
	}
	wallets := services.NewWalletReader(chain, keys)

	server := api.New(&cfg.Server, query.NewService(cache, dbClient, wallets), service)
	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("query API server failed")
	}

	log.Info().Msg("Shutting down")
	return nil
}

func setupDb(ctx context.Context, cfg *config.DbConfig) db.DbInterface {
	log := log.Ctx(ctx)

	if err := dbmodel.Setup(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("error while setting up stats db model")
	}

	dbClient, err := db.New(ctx, *cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	return db.NewDbWithMetrics(dbClient)
}
