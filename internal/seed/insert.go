// File path: internal/seed/insert.go

package seed

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nl2mongo/internal/common"
)

// IndexSpec declares one single-field index of the sample dataset.
type IndexSpec struct {
	Collection string
	Field      string
	Unique     bool
}

// IndexSpecs lists every index the dataset is loaded with. The tracking
// identifier is unique on the event collection and a plain lookup key on the
// per-channel collections.
func IndexSpecs() []IndexSpec {
	return []IndexSpec{
		{Collection: CollectionEvents, Field: "event_tracking_id", Unique: true},
		{Collection: CollectionEvents, Field: "event_name"},
		{Collection: CollectionEvents, Field: "customer_id"},
		{Collection: CollectionEvents, Field: "created_at"},
		{Collection: CollectionEmail, Field: "event_tracking_id"},
		{Collection: CollectionEmail, Field: "recipient_email"},
		{Collection: CollectionEmail, Field: "status"},
		{Collection: CollectionSMS, Field: "event_tracking_id"},
		{Collection: CollectionSMS, Field: "recipient_phone"},
		{Collection: CollectionSMS, Field: "status"},
		{Collection: CollectionPush, Field: "event_tracking_id"},
		{Collection: CollectionPush, Field: "recipient_id"},
		{Collection: CollectionPush, Field: "status"},
		{Collection: CollectionInApp, Field: "event_tracking_id"},
		{Collection: CollectionInApp, Field: "recipient_id"},
		{Collection: CollectionInApp, Field: "status"},
	}
}

// Insert loads the dataset into the database. With clear set, existing
// documents in the dataset collections are removed first. Indexes are created
// after the documents are in place.
func Insert(ctx context.Context, db *mongo.Database, ds *Dataset, clear bool) error {
	logger := common.Logger()
	if clear {
		for _, name := range Collections() {
			if _, err := db.Collection(name).DeleteMany(ctx, bson.D{}); err != nil {
				return fmt.Errorf("seed: clear %s: %w", name, err)
			}
		}
		logger.Info("seed: cleared existing notification data")
	}
	for _, name := range Collections() {
		docs := ds.ByCollection()[name]
		if len(docs) == 0 {
			continue
		}
		batch := make([]interface{}, 0, len(docs))
		for _, doc := range docs {
			batch = append(batch, doc)
		}
		if _, err := db.Collection(name).InsertMany(ctx, batch); err != nil {
			return fmt.Errorf("seed: insert %s: %w", name, err)
		}
		logger.Info("seed: inserted documents", "collection", name, "count", len(docs))
	}
	if err := createIndexes(ctx, db); err != nil {
		return err
	}
	logger.Info("seed: indexes created")
	return nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range IndexSpecs() {
		model := mongo.IndexModel{Keys: bson.D{{Key: spec.Field, Value: 1}}}
		if spec.Unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := db.Collection(spec.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("seed: index %s.%s: %w", spec.Collection, spec.Field, err)
		}
	}
	return nil
}
