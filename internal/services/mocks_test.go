package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentaudit/internal/models"
	"rentaudit/internal/repository"
	"rentaudit/internal/utils"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Insert(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	if args.Error(0) == nil {
		if listing.ID.IsZero() {
			listing.GenID()
		}
	}
	return args.Error(0)
}

func (m *MockListingRepository) FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if l := args.Get(0); l != nil {
		return l.(*models.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockListingRepository) Find(ctx context.Context, filter repository.ListingFilter) ([]models.Listing, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingRepository) Update(ctx context.Context, id utils.SixID, set map[string]interface{}) (*models.Listing, error) {
	args := m.Called(ctx, id, set)
	if l := args.Get(0); l != nil {
		return l.(*models.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockListingRepository) FindUpdatedSince(ctx context.Context, since time.Time) ([]models.Listing, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]models.Listing), args.Error(1)
}

type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	if args.Error(0) == nil {
		if entry.ID.IsZero() {
			entry.GenID()
		}
	}
	return args.Error(0)
}

func (m *MockAuditLogRepository) Find(ctx context.Context, filter repository.AuditLogFilter) ([]models.AuditLog, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.AuditLog), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditLogRepository) LatestTimestamps(ctx context.Context, listingIDs []utils.SixID) (map[utils.SixID]time.Time, error) {
	args := m.Called(ctx, listingIDs)
	return args.Get(0).(map[utils.SixID]time.Time), args.Error(1)
}

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	args := m.Called(ctx, email)
	if a := args.Get(0); a != nil {
		return a.(*models.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAdminRepository) Insert(ctx context.Context, admin *models.Admin) error {
	return m.Called(ctx, admin).Error(0)
}

type MockQueryCache struct {
	mock.Mock
}

func (m *MockQueryCache) Get(ctx context.Context, key string, dest interface{}) (string, bool, error) {
	args := m.Called(ctx, key, dest)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockQueryCache) Set(ctx context.Context, slot string, value interface{}) error {
	return m.Called(ctx, slot, value).Error(0)
}

func (m *MockQueryCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockTaskQueue struct {
	mock.Mock
}

func (m *MockTaskQueue) EnqueueStatusNotification(ctx context.Context, listing *models.Listing, entry *models.AuditLog) error {
	return m.Called(ctx, listing, entry).Error(0)
}

func (m *MockTaskQueue) EnqueueImageProcess(ctx context.Context, listingID utils.SixID, imageURL string) error {
	return m.Called(ctx, listingID, imageURL).Error(0)
}

// recordingTx runs fn directly and counts invocations.
type recordingTx struct {
	calls int
}

func (r *recordingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}
