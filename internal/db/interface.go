package db

import (
	"context"

	"github.com/vsrlabs/positions-indexer/internal/db/model"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	UpsertSnapshotStats(ctx context.Context, doc *model.SnapshotStatsDocument) error
	GetLatestSnapshotStats(ctx context.Context) (*model.SnapshotStatsDocument, error)
	// FindSnapshotStats returns archived statistics with from <= timestamp <= to, newest first.
	FindSnapshotStats(ctx context.Context, from, to int64, limit int64) ([]*model.SnapshotStatsDocument, error)
}
