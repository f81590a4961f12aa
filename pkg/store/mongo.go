// Package store persists extracted packages in MongoDB with compound-key
// idempotent upsert semantics.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "telimport/pkg/common/errors"
	"telimport/pkg/extract"
)

// UpsertResult counts the outcome of one bulk upsert. A failing item never
// blocks the rest of the batch; it is tallied in Errors.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}

// Statistics summarizes the collection for the query API.
type Statistics struct {
	TotalPackages int64            `json:"total_packages"`
	ByPartner     map[string]int64 `json:"by_partner"`
	ByServiceType map[string]int64 `json:"by_service_type"`
}

// Store wraps the packages collection.
type Store struct {
	coll *mongo.Collection
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	s := &Store{coll: client.Database(database).Collection(collection)}
	if err := s.ensureIndexes(ctx); err != nil {
		// Index creation failure is not fatal: upserts still work, only the
		// cross-writer uniqueness guarantee weakens.
		log.Printf("store: failed to ensure indexes: %v", err)
	}
	log.Printf("store: connected to %s.%s", database, collection)
	return s, nil
}

// NewWithCollection wires an existing collection handle (used by tests).
func NewWithCollection(coll *mongo.Collection) *Store { return &Store{coll: coll} }

// ensureIndexes creates the unique compound index mirroring the upsert key,
// plus the secondary read indexes.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: 1},
				{Key: "partner_name", Value: 1},
				{Key: "attributes.billing_cycle", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("package_unique_idx"),
		},
		{
			Keys:    bson.D{{Key: "partner_name", Value: 1}},
			Options: options.Index().SetName("partner_idx"),
		},
		{
			Keys:    bson.D{{Key: "service_type", Value: 1}},
			Options: options.Index().SetName("service_type_idx"),
		},
	})
	return err
}

// buildUpsertFilter derives the compound upsert key for a package. The filter
// always carries attributes.billing_cycle (nil when the record has none) so
// it matches the unique index exactly; a record without a cycle can therefore
// never collide with the same package that has one.
func buildUpsertFilter(pkg extract.Package) bson.M {
	filter := bson.M{
		"name":         pkg.Name,
		"partner_name": pkg.PartnerName,
	}
	if cycle, ok := pkg.Attributes["billing_cycle"]; ok && cycle != "" {
		filter["attributes.billing_cycle"] = cycle
	} else {
		filter["attributes.billing_cycle"] = nil
	}
	return filter
}

// Upsert performs an unordered bulk write matching each record by its
// compound key. Matched documents get every provided field overwritten and
// updated_at refreshed; new documents additionally get created_at.
func (s *Store) Upsert(ctx context.Context, packages []extract.Package) (UpsertResult, error) {
	var result UpsertResult
	if len(packages) == 0 {
		return result, nil
	}

	now := time.Now().UTC()
	var ops []mongo.WriteModel
	for _, pkg := range packages {
		if pkg.Name == "" {
			log.Printf("store: skipping package with empty name")
			result.Errors++
			continue
		}
		update := bson.M{
			"$set": bson.M{
				"name":         pkg.Name,
				"partner_name": pkg.PartnerName,
				"service_type": pkg.ServiceType,
				"attributes":   pkg.Attributes,
				"updated_at":   now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		}
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(buildUpsertFilter(pkg)).
			SetUpdate(update).
			SetUpsert(true))
	}
	if len(ops) == 0 {
		return result, nil
	}

	res, err := s.coll.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if err != nil {
		// Partial results may still be present on a bulk error.
		if res != nil {
			result.Inserted = int(res.UpsertedCount)
			result.Updated = int(res.ModifiedCount)
		}
		result.Errors += len(ops) - result.Inserted - result.Updated
		return result, apperrors.New(apperrors.ErrPersistence, "bulk write failed", err)
	}

	result.Inserted = int(res.UpsertedCount)
	result.Updated = int(res.ModifiedCount)
	log.Printf("store: upsert complete: %d inserted, %d updated, %d errors",
		result.Inserted, result.Updated, result.Errors)
	return result, nil
}

// Find returns packages matching filter, capped at limit.
func (s *Store) Find(ctx context.Context, filter bson.M, limit int64) ([]extract.Package, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := s.coll.Find(ctx, filter,
		options.Find().SetLimit(limit).SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrPersistence, "find failed", err)
	}
	defer cursor.Close(ctx)

	var packages []extract.Package
	if err := cursor.All(ctx, &packages); err != nil {
		return nil, apperrors.New(apperrors.ErrPersistence, "cursor decode failed", err)
	}
	return packages, nil
}

// FindByPartner returns all packages for a partner.
func (s *Store) FindByPartner(ctx context.Context, partner string) ([]extract.Package, error) {
	return s.Find(ctx, bson.M{"partner_name": partner}, 1000)
}

// FindByServiceType returns all packages of a service type.
func (s *Store) FindByServiceType(ctx context.Context, serviceType string) ([]extract.Package, error) {
	return s.Find(ctx, bson.M{"service_type": serviceType}, 1000)
}

// Count counts packages matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.coll.CountDocuments(ctx, filter)
}

// Delete removes packages matching filter. An empty filter is rejected
// rather than interpreted as "delete all".
func (s *Store) Delete(ctx context.Context, filter bson.M) (int64, error) {
	if len(filter) == 0 {
		return 0, apperrors.Validation("filter required for delete operation")
	}
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrPersistence, "delete failed", err)
	}
	return res.DeletedCount, nil
}

// Statistics aggregates package counts by partner and service type.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{
		ByPartner:     map[string]int64{},
		ByServiceType: map[string]int64{},
	}

	total, err := s.Count(ctx, nil)
	if err != nil {
		return stats, err
	}
	stats.TotalPackages = total

	for field, dest := range map[string]map[string]int64{
		"$partner_name": stats.ByPartner,
		"$service_type": stats.ByServiceType,
	} {
		cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
		})
		if err != nil {
			return stats, apperrors.New(apperrors.ErrPersistence, "aggregation failed", err)
		}
		var rows []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			return stats, apperrors.New(apperrors.ErrPersistence, "aggregation decode failed", err)
		}
		for _, row := range rows {
			dest[row.ID] = row.Count
		}
	}
	return stats, nil
}
