package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parishhub/parish/internal/database"
	"github.com/parishhub/parish/internal/model"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicatePhone      = errors.New("a family with this phone number already exists")
	ErrDuplicateRegisterNo = errors.New("a family with this register number already exists")
	ErrDuplicateEmail      = errors.New("an admin with this email already exists")
)

// querier is satisfied by both *database.DB and *database.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	InsertID(ctx context.Context, query string, args ...any) (int64, error)
}

var (
	_ querier = (*database.DB)(nil)
	_ querier = (*database.Tx)(nil)
)

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func intArg(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func parseNullDate(ns sql.NullString) (*model.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := model.ParseDate(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored date: %w", err)
	}
	return &d, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
