package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vsrlabs/positions-indexer/internal/db/model"
)

// UpsertSnapshotStats stores the statistics of a snapshot keyed by its timestamp
func (db *Database) UpsertSnapshotStats(ctx context.Context, doc *model.SnapshotStatsDocument) error {
	filter := bson.M{"_id": doc.Timestamp}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.SnapshotStatsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetLatestSnapshotStats(ctx context.Context) (*model.SnapshotStatsDocument, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	res := db.collection(model.SnapshotStatsCollection).FindOne(ctx, bson.M{}, opts)

	var doc model.SnapshotStatsDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     "latest",
				Message: "no snapshot stats archived yet",
			}
		}
		return nil, err
	}
	return &doc, nil
}

func (db *Database) FindSnapshotStats(
	ctx context.Context, from, to int64, limit int64,
) ([]*model.SnapshotStatsDocument, error) {
	filter := bson.M{"_id": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.SnapshotStatsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*model.SnapshotStatsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
