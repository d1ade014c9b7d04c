package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"rentaudit/internal/cache"
	"rentaudit/internal/config"
	"rentaudit/internal/db"
	"rentaudit/internal/models"
	"rentaudit/internal/repository"
	"rentaudit/internal/utils"
)

// IListingService is the moderation engine: public submission, admin and
// public queries, edits and approve/reject transitions. Every edit that
// changes something and every transition writes one audit entry.
type IListingService interface {
	Submit(ctx context.Context, input ListingInput) (*models.Listing, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error)
	QueryAdmin(ctx context.Context, q ListingQuery) (models.Page[models.Listing], error)
	QueryPublic(ctx context.Context, q PublicListingQuery) (models.Page[models.Listing], error)
	Edit(ctx context.Context, id utils.SixID, updates map[string]interface{}, admin models.Principal) (*models.Listing, *models.AuditLog, error)
	Transition(ctx context.Context, id utils.SixID, action models.AuditAction, admin models.Principal) (*models.Listing, *models.AuditLog, error)
}

// ITaskQueue schedules follow-up work. Implementations must not block on the
// work itself.
type ITaskQueue interface {
	EnqueueStatusNotification(ctx context.Context, listing *models.Listing, entry *models.AuditLog) error
	EnqueueImageProcess(ctx context.Context, listingID utils.SixID, imageURL string) error
}

// ListingQuery is the admin listing query.
type ListingQuery struct {
	Page   int
	Limit  int
	Status string // "all" or empty means any status
	Search string
}

// PublicListingQuery is the public browse query. Results are always
// restricted to approved listings.
type PublicListingQuery struct {
	Page         int      `json:"page"`
	Limit        int      `json:"limit"`
	Search       string   `json:"search,omitempty"`
	Location     string   `json:"location,omitempty"`
	MinPrice     *float64 `json:"minPrice,omitempty"`
	MaxPrice     *float64 `json:"maxPrice,omitempty"`
	FuelType     string   `json:"fuelType,omitempty"`
	Transmission string   `json:"transmission,omitempty"`
}

type listingService struct {
	cfg      *config.Config
	listings repository.ListingRepository
	audits   repository.AuditLogRepository
	tx       db.TxRunner
	cache    cache.IQueryCache
	queue    ITaskQueue
	now      func() time.Time
}

// NewListingService creates a new ListingService. cache and queue may be nil.
func NewListingService(
	cfg *config.Config,
	listings repository.ListingRepository,
	audits repository.AuditLogRepository,
	tx db.TxRunner,
	queryCache cache.IQueryCache,
	queue ITaskQueue,
) IListingService {
	return &listingService{
		cfg:      cfg,
		listings: listings,
		audits:   audits,
		tx:       tx,
		cache:    queryCache,
		queue:    queue,
		now:      defaultNow,
	}
}

// defaultNow is truncated to the millisecond precision MongoDB stores, so a
// listing's updatedAt and its audit timestamp compare equal after a round trip.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// normalizePage clamps page to >= 1 and limit to (0, max], using def for
// missing or non-positive limits.
func normalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return page, limit
}

// Submit validates a public submission and stores it as pending.
func (s *listingService) Submit(ctx context.Context, input ListingInput) (*models.Listing, error) {
	listing, err := ValidateSubmission(input, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.listings.Insert(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to submit listing: %w", err)
	}
	s.enqueueImages(ctx, listing.ID, listing.Images)
	return listing, nil
}

func (s *listingService) FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	return s.listings.FindByID(ctx, id)
}

func (s *listingService) QueryAdmin(ctx context.Context, q ListingQuery) (models.Page[models.Listing], error) {
	page, limit := normalizePage(q.Page, q.Limit, s.cfg.AdminPageSize, s.cfg.MaxPageSize)
	filter := repository.ListingFilter{Search: strings.TrimSpace(q.Search), Page: page, Limit: limit}

	if q.Status != "" && q.Status != "all" {
		status := models.ListingStatus(q.Status)
		if !status.Valid() {
			return models.Page[models.Listing]{}, newValidationError("status", "Invalid status")
		}
		filter.Status = status
	}

	listings, total, err := s.listings.Find(ctx, filter)
	if err != nil {
		return models.Page[models.Listing]{}, fmt.Errorf("failed to query listings: %w", err)
	}
	return models.NewPage(listings, total, page, limit), nil
}

func (s *listingService) QueryPublic(ctx context.Context, q PublicListingQuery) (models.Page[models.Listing], error) {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit, s.cfg.AdminPageSize, s.cfg.MaxPageSize)
	q.Search = strings.TrimSpace(q.Search)
	q.Location = strings.TrimSpace(q.Location)

	var cacheSlot string
	if s.cache != nil {
		keyBytes, _ := json.Marshal(q)
		var cached models.Page[models.Listing]
		slot, hit, err := s.cache.Get(ctx, string(keyBytes), &cached)
		cacheSlot = slot
		if err != nil {
			log.Printf("WARN: public listing cache read failed: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	filter := repository.ListingFilter{
		Status:       models.ListingStatusApproved,
		Search:       q.Search,
		Location:     q.Location,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		FuelType:     q.FuelType,
		Transmission: q.Transmission,
		Page:         q.Page,
		Limit:        q.Limit,
	}
	listings, total, err := s.listings.Find(ctx, filter)
	if err != nil {
		return models.Page[models.Listing]{}, fmt.Errorf("failed to query public listings: %w", err)
	}
	result := models.NewPage(listings, total, q.Page, q.Limit)

	if s.cache != nil && cacheSlot != "" {
		if err := s.cache.Set(ctx, cacheSlot, result); err != nil {
			log.Printf("WARN: public listing cache write failed: %v", err)
		}
	}
	return result, nil
}

// Edit applies the given fields and records one edit entry holding only the
// fields whose value actually changed. An edit that changes nothing still
// refreshes updatedAt but writes no audit entry.
func (s *listingService) Edit(ctx context.Context, id utils.SixID, updates map[string]interface{}, admin models.Principal) (*models.Listing, *models.AuditLog, error) {
	now := s.now()
	values, err := ValidateEdit(updates, now)
	if err != nil {
		return nil, nil, err
	}

	set := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		set[k] = v
	}
	set["updatedAt"] = now

	var updated *models.Listing
	var entry *models.AuditLog
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		previous, err := s.listings.Update(ctx, id, set)
		if err != nil {
			return err
		}

		changes := DiffListing(previous, values)
		copied := *previous
		updated = &copied
		for field, v := range values {
			updated.SetField(field, v)
		}
		updated.UpdatedAt = now

		if len(changes) == 0 {
			return nil
		}
		entry = &models.AuditLog{
			Action:       models.AuditActionEdit,
			ListingID:    previous.ID,
			ListingTitle: previous.Title,
			AdminID:      admin.ID,
			AdminName:    admin.Name,
			AdminEmail:   admin.Email,
			Changes:      changes,
			Timestamp:    now,
		}
		return s.audits.Insert(ctx, entry)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to edit listing %s: %w", id, err)
	}

	s.invalidatePublicCache(ctx)
	if entry != nil {
		if change, ok := entry.Changes[models.FieldImages]; ok {
			previousImages, _ := change.From.([]string)
			s.enqueueImages(ctx, id, addedImages(previousImages, updated.Images))
		}
	}
	return updated, entry, nil
}

// Transition approves or rejects a listing from whatever status it is in and
// always records the transition, even when the status does not change.
func (s *listingService) Transition(ctx context.Context, id utils.SixID, action models.AuditAction, admin models.Principal) (*models.Listing, *models.AuditLog, error) {
	var newStatus models.ListingStatus
	switch action {
	case models.AuditActionApprove:
		newStatus = models.ListingStatusApproved
	case models.AuditActionReject:
		newStatus = models.ListingStatusRejected
	default:
		return nil, nil, newValidationError("action", "Invalid action")
	}

	now := s.now()
	var updated *models.Listing
	var entry *models.AuditLog
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		previous, err := s.listings.Update(ctx, id, map[string]interface{}{
			"status":    newStatus,
			"updatedAt": now,
		})
		if err != nil {
			return err
		}

		copied := *previous
		copied.Status = newStatus
		copied.UpdatedAt = now
		updated = &copied

		entry = &models.AuditLog{
			Action:         action,
			ListingID:      previous.ID,
			ListingTitle:   previous.Title,
			AdminID:        admin.ID,
			AdminName:      admin.Name,
			AdminEmail:     admin.Email,
			PreviousStatus: previous.Status,
			NewStatus:      newStatus,
			Timestamp:      now,
		}
		return s.audits.Insert(ctx, entry)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to %s listing %s: %w", action, id, err)
	}

	s.invalidatePublicCache(ctx)
	if s.queue != nil {
		if err := s.queue.EnqueueStatusNotification(ctx, updated, entry); err != nil {
			log.Printf("WARN: failed to enqueue status notification for listing %s: %v", id, err)
		}
	}
	return updated, entry, nil
}

func (s *listingService) invalidatePublicCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("WARN: failed to invalidate public listing cache: %v", err)
	}
}

// enqueueImages schedules normalisation for images stored in our bucket.
func (s *listingService) enqueueImages(ctx context.Context, listingID utils.SixID, images []string) {
	if s.queue == nil || s.cfg.ImageBaseS3URL == "" {
		return
	}
	for _, img := range images {
		if !strings.HasPrefix(img, s.cfg.ImageBaseS3URL) {
			continue
		}
		if err := s.queue.EnqueueImageProcess(ctx, listingID, img); err != nil {
			log.Printf("WARN: failed to enqueue image processing for listing %s: %v", listingID, err)
		}
	}
}

func addedImages(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, img := range before {
		seen[img] = true
	}
	var added []string
	for _, img := range after {
		if !seen[img] {
			added = append(added, img)
		}
	}
	return added
}
