package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentaudit/internal/models"
	"rentaudit/internal/repository"
	"rentaudit/internal/utils"
)

func newAuditFixture() (*auditService, *MockAuditLogRepository, *MockListingRepository) {
	audits := new(MockAuditLogRepository)
	listings := new(MockListingRepository)
	svc := NewAuditService(testConfig(), audits, listings).(*auditService)
	svc.now = func() time.Time { return fixedNow }
	return svc, audits, listings
}

func TestAuditQuery_Defaults(t *testing.T) {
	svc, audits, _ := newAuditFixture()
	audits.On("Find", mock.Anything, repository.AuditLogFilter{Page: 1, Limit: 20}).
		Return([]models.AuditLog{}, int64(41), nil)

	page, err := svc.Query(context.Background(), AuditQuery{Action: "all", AdminID: "all"})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []models.AuditLog{}, page.Data)
}

func TestAuditQuery_Filters(t *testing.T) {
	svc, audits, _ := newAuditFixture()
	adminID := utils.SixID{7, 7, 7, 7, 7, 7}
	audits.On("Find", mock.Anything, repository.AuditLogFilter{
		Action: models.AuditActionEdit, AdminID: &adminID, Page: 2, Limit: 5,
	}).Return([]models.AuditLog{{Action: models.AuditActionEdit}}, int64(6), nil)

	page, err := svc.Query(context.Background(), AuditQuery{Page: 2, Limit: 5, Action: "edit", AdminID: adminID.String()})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.TotalPages)
}

func TestAuditQuery_InvalidInput(t *testing.T) {
	svc, audits, _ := newAuditFixture()
	var verr *ValidationError

	_, err := svc.Query(context.Background(), AuditQuery{Action: "delete"})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Query(context.Background(), AuditQuery{AdminID: "not-an-id"})
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "adminId", verr.Field)

	audits.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestFindUnauditedListings(t *testing.T) {
	svc, audits, listings := newAuditFixture()

	created := fixedNow.Add(-3 * time.Hour)
	audited := models.Listing{Base: models.Base{ID: utils.SixID{1}}, Title: "audited", CreatedAt: created, UpdatedAt: fixedNow.Add(-time.Hour)}
	lost := models.Listing{Base: models.Base{ID: utils.SixID{2}}, Title: "lost audit", CreatedAt: created, UpdatedAt: fixedNow.Add(-time.Hour)}
	stale := models.Listing{Base: models.Base{ID: utils.SixID{3}}, Title: "stale audit", CreatedAt: created, UpdatedAt: fixedNow.Add(-time.Minute)}
	fresh := models.Listing{Base: models.Base{ID: utils.SixID{4}}, Title: "just submitted", CreatedAt: fixedNow.Add(-time.Minute), UpdatedAt: fixedNow.Add(-time.Minute)}

	listings.On("FindUpdatedSince", mock.Anything, fixedNow.Add(-24*time.Hour)).
		Return([]models.Listing{audited, lost, stale, fresh}, nil)
	audits.On("LatestTimestamps", mock.Anything, []utils.SixID{audited.ID, lost.ID, stale.ID, fresh.ID}).
		Return(map[utils.SixID]time.Time{
			audited.ID: audited.UpdatedAt,
			stale.ID:   fixedNow.Add(-time.Hour),
		}, nil)

	found, err := svc.FindUnauditedListings(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, lost.ID, found[0].ListingID)
	assert.Nil(t, found[0].LastAuditedAt)
	assert.Equal(t, stale.ID, found[1].ListingID)
	require.NotNil(t, found[1].LastAuditedAt)
	assert.Equal(t, fixedNow.Add(-time.Hour), *found[1].LastAuditedAt)
}
