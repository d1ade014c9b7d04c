package services

import (
	"context"
	"fmt"
	"time"

	"rentaudit/internal/config"
	"rentaudit/internal/models"
	"rentaudit/internal/repository"
	"rentaudit/internal/utils"
)

// IAuditService reads the audit trail. Entries are only ever written by the
// listing service.
type IAuditService interface {
	Query(ctx context.Context, q AuditQuery) (models.Page[models.AuditLog], error)
	FindUnauditedListings(ctx context.Context, window time.Duration) ([]UnauditedListing, error)
}

// AuditQuery filters the audit trail. Action and AdminID accept "all".
type AuditQuery struct {
	Page    int
	Limit   int
	Action  string
	AdminID string
}

// UnauditedListing is a listing modified after its newest audit entry.
type UnauditedListing struct {
	ListingID     utils.SixID
	Title         string
	UpdatedAt     time.Time
	LastAuditedAt *time.Time
}

type auditService struct {
	cfg      *config.Config
	audits   repository.AuditLogRepository
	listings repository.ListingRepository
	now      func() time.Time
}

func NewAuditService(cfg *config.Config, audits repository.AuditLogRepository, listings repository.ListingRepository) IAuditService {
	return &auditService{cfg: cfg, audits: audits, listings: listings, now: defaultNow}
}

func (s *auditService) Query(ctx context.Context, q AuditQuery) (models.Page[models.AuditLog], error) {
	page, limit := normalizePage(q.Page, q.Limit, s.cfg.AuditPageSize, s.cfg.MaxPageSize)
	filter := repository.AuditLogFilter{Page: page, Limit: limit}

	if q.Action != "" && q.Action != "all" {
		action := models.AuditAction(q.Action)
		if !action.Valid() {
			return models.Page[models.AuditLog]{}, newValidationError("action", "Invalid action")
		}
		filter.Action = action
	}
	if q.AdminID != "" && q.AdminID != "all" {
		adminID, err := utils.ParseSixID(q.AdminID)
		if err != nil {
			return models.Page[models.AuditLog]{}, newValidationError("adminId", "Invalid admin ID")
		}
		filter.AdminID = &adminID
	}

	logs, total, err := s.audits.Find(ctx, filter)
	if err != nil {
		return models.Page[models.AuditLog]{}, fmt.Errorf("failed to query audit logs: %w", err)
	}
	return models.NewPage(logs, total, page, limit), nil
}

// FindUnauditedListings returns listings updated within the window whose
// updatedAt is later than both their creation and their newest audit entry.
// A listing write whose audit write was lost shows up here. Edits that
// changed nothing refresh updatedAt without an entry, so they show up too.
func (s *auditService) FindUnauditedListings(ctx context.Context, window time.Duration) ([]UnauditedListing, error) {
	listings, err := s.listings.FindUpdatedSince(ctx, s.now().Add(-window))
	if err != nil {
		return nil, err
	}
	ids := make([]utils.SixID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	latest, err := s.audits.LatestTimestamps(ctx, ids)
	if err != nil {
		return nil, err
	}

	var unaudited []UnauditedListing
	for _, l := range listings {
		if !l.UpdatedAt.After(l.CreatedAt) {
			continue
		}
		last, audited := latest[l.ID]
		if audited && !l.UpdatedAt.After(last) {
			continue
		}
		u := UnauditedListing{ListingID: l.ID, Title: l.Title, UpdatedAt: l.UpdatedAt}
		if audited {
			u.LastAuditedAt = &last
		}
		unaudited = append(unaudited, u)
	}
	return unaudited, nil
}
