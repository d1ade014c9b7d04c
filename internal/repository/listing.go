package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentaudit/internal/db"
	"rentaudit/internal/models"
	"rentaudit/internal/utils"
)

// ListingRepository persists listings. Listings are never deleted.
type ListingRepository interface {
	Insert(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error)
	// Find returns one page of listings matching the filter, newest first,
	// together with the total number of matches.
	Find(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error)
	// Update applies set to the listing and returns the document as it was
	// before the update.
	Update(ctx context.Context, id utils.SixID, set map[string]interface{}) (*models.Listing, error)
	FindUpdatedSince(ctx context.Context, since time.Time) ([]models.Listing, error)
}

type mongoListingRepository struct {
	coll *mongo.Collection
}

func NewListingRepository(database *mongo.Database) ListingRepository {
	return &mongoListingRepository{coll: database.Collection(db.ListingsCollection)}
}

func (r *mongoListingRepository) Insert(ctx context.Context, listing *models.Listing) error {
	err := db.Try(func() error {
		listing.GenID()
		_, err := r.coll.InsertOne(ctx, listing)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert listing (last attempted ID: %s): %w", listing.ID, err)
	}
	return nil
}

func (r *mongoListingRepository) FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	var listing models.Listing
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding listing %s: %w", id, err)
	}
	return &listing, nil
}

func (r *mongoListingRepository) Find(ctx context.Context, filter ListingFilter) ([]models.Listing, int64, error) {
	query := filter.BSON()
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(models.Skip(filter.Page, filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, total, nil
}

func (r *mongoListingRepository) Update(ctx context.Context, id utils.SixID, set map[string]interface{}) (*models.Listing, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var previous models.Listing
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&previous)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update listing %s: %w", id, err)
	}
	return &previous, nil
}

func (r *mongoListingRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"updatedAt": bson.M{"$gte": since}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recently updated listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}
