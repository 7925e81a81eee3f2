package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/parishhub/parish/internal/database"
	"github.com/parishhub/parish/internal/model"
)

const adminColumns = "id, name, email, password_hash, role, permissions, active, last_login_at, created_at, updated_at"

type AdminStore struct {
	db *database.DB
}

func NewAdminStore(db *database.DB) *AdminStore {
	return &AdminStore{db: db}
}

func scanAdmin(sc scanner) (*model.Admin, error) {
	var (
		a         model.Admin
		role      string
		perms     string
		lastLogin sql.NullTime
	)
	err := sc.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &perms, &a.Active, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Role = model.Role(role)
	a.Permissions = splitPermissions(perms)
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}

func joinPermissions(perms []model.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func splitPermissions(s string) []model.Permission {
	perms := []model.Permission{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, model.Permission(p))
		}
	}
	return perms
}

func (s *AdminStore) Create(ctx context.Context, a *model.Admin) (*model.Admin, error) {
	id, err := s.db.InsertID(ctx,
		"INSERT INTO admins (name, email, password_hash, role, permissions, active) VALUES (?, ?, ?, ?, ?, ?)",
		a.Name, a.Email, a.PasswordHash, string(a.Role), joinPermissions(a.Permissions), a.Active,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "email") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AdminStore) GetByID(ctx context.Context, id int64) (*model.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx, "SELECT "+adminColumns+" FROM admins WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query admin: %w", err)
	}
	return a, nil
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx, "SELECT "+adminColumns+" FROM admins WHERE email = ?", email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query admin by email: %w", err)
	}
	return a, nil
}

func (s *AdminStore) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+adminColumns+" FROM admins ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	defer rows.Close()

	admins := []model.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

func (s *AdminStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// TouchLastLogin stamps the admin's last successful login.
func (s *AdminStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE admins SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
