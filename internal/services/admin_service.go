package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rentaudit/internal/auth"
	"rentaudit/internal/config"
	"rentaudit/internal/models"
	"rentaudit/internal/repository"
)

// IAdminService authenticates administrators.
type IAdminService interface {
	Login(ctx context.Context, email, password string) (string, models.Principal, error)
	EnsureBootstrapAdmin(ctx context.Context, email, password, name string) error
}

type adminService struct {
	cfg    *config.Config
	admins repository.AdminRepository
}

func NewAdminService(cfg *config.Config, admins repository.AdminRepository) IAdminService {
	return &adminService{cfg: cfg, admins: admins}
}

// Login checks the credentials and issues a signed token for the admin.
func (s *adminService) Login(ctx context.Context, email, password string) (string, models.Principal, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", models.Principal{}, newValidationError("", "Email and password are required")
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", models.Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.Principal{}, fmt.Errorf("failed to look up admin: %w", err)
	}
	if !auth.CheckPasswordHash(password, admin.PasswordHash) {
		return "", models.Principal{}, ErrInvalidCredentials
	}

	principal := admin.Principal()
	token, err := auth.GenerateJWT(principal, s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return "", models.Principal{}, err
	}
	return token, principal, nil
}

// EnsureBootstrapAdmin creates the configured admin unless one with that email
// already exists. Existing admins are never modified.
func (s *adminService) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.admins.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.Admin{
		Email:        email,
		Name:         name,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.admins.Insert(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	log.Printf("Created bootstrap admin %s", admin.Email)
	return nil
}
