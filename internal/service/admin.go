package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/store"
)

type AdminService struct {
	admins *store.AdminStore
	events EventPublisher
	logger *slog.Logger
}

func NewAdminService(as *store.AdminStore, events EventPublisher, logger *slog.Logger) *AdminService {
	return &AdminService{admins: as, events: events, logger: logger}
}

// AdminIdentity builds the token identity for an admin account.
func AdminIdentity(a *model.Admin) model.AdminIdentity {
	perms := make([]model.Permission, len(a.Permissions))
	copy(perms, a.Permissions)
	return model.AdminIdentity{AdminID: a.ID, Role: a.Role, Permissions: perms}
}

// Authenticate verifies an admin login and stamps lastLoginAt.
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (*model.Admin, error) {
	a, err := s.admins.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if a == nil {
		auth.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(a.PasswordHash, password) || !a.Active {
		return nil, ErrInvalidCredentials
	}

	if err := s.admins.TouchLastLogin(ctx, a.ID); err != nil {
		s.logger.Warn("touch last login", "admin_id", a.ID, "error", err)
	}
	return a, nil
}

func (s *AdminService) CreateAdmin(ctx context.Context, in AdminInput) (*model.Admin, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	perms := in.Permissions
	if perms == nil {
		perms = []model.Permission{}
	}

	a, err := s.admins.Create(ctx, &model.Admin{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		Permissions:  perms,
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if s.events != nil {
		s.events.Publish(EntityAdmin, ActionCreated, a.ID)
	}
	return a, nil
}

func (s *AdminService) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAdminNotFound
	}
	return a, nil
}

func (s *AdminService) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	return s.admins.List(ctx)
}

// EnsureSuperAdmin creates a super admin with the given credentials unless
// an account with that email already exists. It reports whether one was
// created.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := s.admins.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	_, err = s.CreateAdmin(ctx, AdminInput{
		Name:        name,
		Email:       email,
		Password:    password,
		Role:        model.RoleSuperAdmin,
		Permissions: model.AllPermissions,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
