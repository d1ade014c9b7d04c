package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentaudit/internal/models"
	"rentaudit/internal/services"
	"rentaudit/internal/utils"
)

// --- Mocks ---

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Submit(ctx context.Context, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) QueryAdmin(ctx context.Context, q services.ListingQuery) (models.Page[models.Listing], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(models.Page[models.Listing]), args.Error(1)
}

func (m *MockListingService) QueryPublic(ctx context.Context, q services.PublicListingQuery) (models.Page[models.Listing], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(models.Page[models.Listing]), args.Error(1)
}

func (m *MockListingService) Edit(ctx context.Context, id utils.SixID, updates map[string]interface{}, admin models.Principal) (*models.Listing, *models.AuditLog, error) {
	args := m.Called(ctx, id, updates, admin)
	listing, _ := args.Get(0).(*models.Listing)
	entry, _ := args.Get(1).(*models.AuditLog)
	return listing, entry, args.Error(2)
}

func (m *MockListingService) Transition(ctx context.Context, id utils.SixID, action models.AuditAction, admin models.Principal) (*models.Listing, *models.AuditLog, error) {
	args := m.Called(ctx, id, action, admin)
	listing, _ := args.Get(0).(*models.Listing)
	entry, _ := args.Get(1).(*models.AuditLog)
	return listing, entry, args.Error(2)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Query(ctx context.Context, q services.AuditQuery) (models.Page[models.AuditLog], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(models.Page[models.AuditLog]), args.Error(1)
}

func (m *MockAuditService) FindUnauditedListings(ctx context.Context, window time.Duration) ([]services.UnauditedListing, error) {
	args := m.Called(ctx, window)
	list, _ := args.Get(0).([]services.UnauditedListing)
	return list, args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Login(ctx context.Context, email, password string) (string, models.Principal, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(models.Principal), args.Error(2)
}

func (m *MockAdminService) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) error {
	args := m.Called(ctx, email, password, name)
	return args.Error(0)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStorage) PublicURL(key string) string {
	return "https://img.example.com/" + key
}

func (m *MockStorage) KeyFromURL(url string) (string, bool) {
	return "", false
}
