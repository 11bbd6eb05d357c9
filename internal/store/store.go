// File path: internal/store/store.go

// Package store wraps the MongoDB driver behind the narrow surface the rest
// of the service needs: listing, sampling, index metadata, bounded value
// probes, and the three read-only execution modes. Every call is bounded by
// the configured per-operation timeout, and every document leaving this
// package is normalized to plain JSON-safe Go types.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"nl2mongo/internal/common"
	"nl2mongo/internal/schema"
)

const defaultTimeout = 10 * time.Second

// Store is a connected MongoDB database handle.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	logger  *slog.Logger
}

// Connect dials the database and verifies it with a ping.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	logger := common.Logger()
	logger.Info("store: connected", "database", dbName)
	return &Store{
		client:  client,
		db:      client.Database(dbName),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// DatabaseName returns the connected database name.
func (s *Store) DatabaseName() string {
	return s.db.Name()
}

// Database exposes the raw driver handle for tooling that writes documents,
// such as the sample dataset loader. The service request paths never use it.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Ping verifies connectivity, for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CollectionNames lists the database's collections in sorted order.
func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("store: list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// CountDocuments counts every document in the collection.
func (s *Store) CountDocuments(ctx context.Context, collection string) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	count, err := s.db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("store: count %s: %w", collection, err)
	}
	return count, nil
}

// CountMatching counts documents matching the filter.
func (s *Store) CountMatching(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if filter == nil {
		filter = map[string]any{}
	}
	count, err := s.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("store: count %s: %w", collection, err)
	}
	return count, nil
}

// SampleDocuments returns up to limit documents in natural order, normalized
// to plain Go types. First-N keeps schema inference deterministic over an
// unchanged collection.
func (s *Store) SampleDocuments(ctx context.Context, collection string, limit int) ([]map[string]any, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	opts := options.Find().SetLimit(int64(limit))
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: sample %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []map[string]any
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("store: decode sample from %s: %w", collection, err)
		}
		docs = append(docs, NormalizeDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store: sample cursor %s: %w", collection, err)
	}
	return docs, nil
}

// CollectionIndexes reports the collection's indexes with field order
// preserved.
func (s *Store) CollectionIndexes(ctx context.Context, collection string) ([]schema.IndexInfo, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	cursor, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list indexes %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var out []schema.IndexInfo
	for cursor.Next(ctx) {
		var spec struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cursor.Decode(&spec); err != nil {
			return nil, fmt.Errorf("store: decode index %s: %w", collection, err)
		}
		info := schema.IndexInfo{Name: spec.Name, Unique: spec.Unique}
		for _, elem := range spec.Key {
			info.Fields = append(info.Fields, elem.Key)
		}
		out = append(out, info)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store: index cursor %s: %w", collection, err)
	}
	return out, nil
}

// SampleFieldValues draws up to limit non-null values of a field, rendered
// as strings. The values feed bounded overlap probes and are discarded
// afterwards.
func (s *Store) SampleFieldValues(ctx context.Context, collection, field string, limit int) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	filter := bson.M{field: bson.M{"$ne": nil}}
	opts := options.Find().SetLimit(int64(limit)).SetProjection(bson.M{field: 1, "_id": 0})
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: sample values %s.%s: %w", collection, field, err)
	}
	defer cursor.Close(ctx)

	var values []string
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("store: decode value from %s: %w", collection, err)
		}
		value, ok := lookupPath(NormalizeDocument(raw), field)
		if !ok || value == nil {
			continue
		}
		if text := stringifyValue(value); text != "" {
			values = append(values, text)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store: value cursor %s: %w", collection, err)
	}
	return values, nil
}

// CountMatches reports how many of the given values occur in the target
// field. Values that look like ObjectId hex are matched in both string and
// ObjectId form.
func (s *Store) CountMatches(ctx context.Context, collection, field string, values []string) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	candidates := make([]any, 0, len(values)*2)
	for _, v := range values {
		candidates = append(candidates, v)
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			candidates = append(candidates, oid)
		}
	}
	found, err := s.db.Collection(collection).Distinct(ctx, field, bson.M{field: bson.M{"$in": candidates}})
	if err != nil {
		return 0, fmt.Errorf("store: match %s.%s: %w", collection, field, err)
	}
	present := make(map[string]bool, len(found))
	for _, v := range found {
		present[stringifyValue(normalizeValue(v))] = true
	}
	matched := 0
	for _, v := range values {
		if present[v] {
			matched++
		}
	}
	return matched, nil
}

// FindOptions shape a find execution.
type FindOptions struct {
	Projection map[string]any
	Sort       map[string]any
	Limit      int64
}

// FindDocuments runs a filtered find and returns normalized documents.
func (s *Store) FindDocuments(ctx context.Context, collection string, filter map[string]any, findOpts FindOptions) ([]map[string]any, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if filter == nil {
		filter = map[string]any{}
	}
	opts := options.Find()
	if findOpts.Limit > 0 {
		opts.SetLimit(findOpts.Limit)
	}
	if len(findOpts.Projection) > 0 {
		opts.SetProjection(findOpts.Projection)
	}
	if len(findOpts.Sort) > 0 {
		opts.SetSort(sortDocument(findOpts.Sort))
	}
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	return drainCursor(ctx, cursor, collection, int(findOpts.Limit))
}

// AggregateDocuments runs a pipeline and returns up to limit normalized
// documents.
func (s *Store) AggregateDocuments(ctx context.Context, collection string, pipeline []any, limit int) ([]map[string]any, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("store: aggregate %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	return drainCursor(ctx, cursor, collection, limit)
}

func drainCursor(ctx context.Context, cursor *mongo.Cursor, collection string, limit int) ([]map[string]any, error) {
	var docs []map[string]any
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("store: decode result from %s: %w", collection, err)
		}
		docs = append(docs, NormalizeDocument(raw))
		if limit > 0 && len(docs) >= limit {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store: result cursor %s: %w", collection, err)
	}
	return docs, nil
}

// sortDocument renders a sort map as an ordered document with deterministic
// key order.
func sortDocument(sortMap map[string]any) bson.D {
	keys := make([]string, 0, len(sortMap))
	for key := range sortMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	doc := make(bson.D, 0, len(keys))
	for _, key := range keys {
		doc = append(doc, bson.E{Key: key, Value: sortMap[key]})
	}
	return doc
}
