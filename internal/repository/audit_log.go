package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentaudit/internal/db"
	"rentaudit/internal/models"
	"rentaudit/internal/utils"
)

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	Find(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error)
	// LatestTimestamps returns, per listing, the time of its newest audit entry.
	// Listings without any entry are absent from the map.
	LatestTimestamps(ctx context.Context, listingIDs []utils.SixID) (map[utils.SixID]time.Time, error)
}

type mongoAuditLogRepository struct {
	coll *mongo.Collection
}

func NewAuditLogRepository(database *mongo.Database) AuditLogRepository {
	return &mongoAuditLogRepository{coll: database.Collection(db.AuditLogsCollection)}
}

func (r *mongoAuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	err := db.Try(func() error {
		entry.GenID()
		_, err := r.coll.InsertOne(ctx, entry)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s audit log for listing %s: %w", entry.Action, entry.ListingID, err)
	}
	return nil
}

func (r *mongoAuditLogRepository) Find(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := filter.BSON()
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(models.Skip(filter.Page, filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit logs: %w", err)
	}
	return logs, total, nil
}

func (r *mongoAuditLogRepository) LatestTimestamps(ctx context.Context, listingIDs []utils.SixID) (map[utils.SixID]time.Time, error) {
	latest := make(map[utils.SixID]time.Time, len(listingIDs))
	if len(listingIDs) == 0 {
		return latest, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"listingId": bson.M{"$in": listingIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$listingId", "last": bson.M{"$max": "$timestamp"}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate audit timestamps: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ListingID utils.SixID `bson:"_id"`
		Last      time.Time   `bson:"last"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode audit timestamps: %w", err)
	}
	for _, row := range rows {
		latest[row.ListingID] = row.Last
	}
	return latest, nil
}
