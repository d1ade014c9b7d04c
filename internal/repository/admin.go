package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rentaudit/internal/db"
	"rentaudit/internal/models"
)

type AdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	// Insert returns ErrDuplicateEntry when the email is already taken.
	Insert(ctx context.Context, admin *models.Admin) error
}

type mongoAdminRepository struct {
	coll *mongo.Collection
}

func NewAdminRepository(database *mongo.Database) AdminRepository {
	return &mongoAdminRepository{coll: database.Collection(db.AdminsCollection)}
}

// NormalizeEmail is the form admin emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *mongoAdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := r.coll.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding admin by email: %w", err)
	}
	return &admin, nil
}

func (r *mongoAdminRepository) Insert(ctx context.Context, admin *models.Admin) error {
	admin.Email = NormalizeEmail(admin.Email)
	if _, err := r.FindByEmail(ctx, admin.Email); err == nil {
		return ErrDuplicateEntry
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	err := db.Try(func() error {
		admin.GenID()
		_, err := r.coll.InsertOne(ctx, admin)
		return err
	})
	if db.IsMongoDuplicateKeyError(err) {
		// Lost a race on the unique email index.
		return ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to insert admin %s: %w", admin.Email, err)
	}
	return nil
}
