package db

import (
	"context"
	"time"

	"github.com/vsrlabs/positions-indexer/internal/db/model"
	"github.com/vsrlabs/positions-indexer/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) UpsertSnapshotStats(ctx context.Context, doc *model.SnapshotStatsDocument) error {
	return d.run("UpsertSnapshotStats", func() error {
		return d.db.UpsertSnapshotStats(ctx, doc)
	})
}

func (d *DbWithMetrics) GetLatestSnapshotStats(ctx context.Context) (result *model.SnapshotStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetLatestSnapshotStats", func() error {
		result, err = d.db.GetLatestSnapshotStats(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) FindSnapshotStats(
	ctx context.Context, from, to int64, limit int64,
) (result []*model.SnapshotStatsDocument, err error) {
	//nolint:errcheck
	d.run("FindSnapshotStats", func() error {
		result, err = d.db.FindSnapshotStats(ctx, from, to, limit)
		return err
	})

	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
