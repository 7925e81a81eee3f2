package database

import (
	"context"
	"errors"
	"testing"
)

func TestPostgresRebind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM families WHERE id = ?", "SELECT * FROM families WHERE id = $1"},
		{"UPDATE admins SET name = ?, role = ? WHERE id = ?", "UPDATE admins SET name = $1, role = $2 WHERE id = $3"},
	}
	for _, tt := range tests {
		if got := (postgresDialect{}).Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	mem := (sqliteDialect{}).DSN(Config{Path: ":memory:"})
	if mem != ":memory:?_pragma=foreign_keys(1)" {
		t.Errorf("memory DSN = %q", mem)
	}
	file := (sqliteDialect{}).DSN(Config{Path: "parish.db"})
	want := "parish.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if file != want {
		t.Errorf("file DSN = %q, want %q", file, want)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := OpenConfig(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"families", "family_members", "admins"} {
		var n int
		err := db.QueryRowContext(context.Background(),
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		if err != nil {
			t.Fatalf("query %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	insert := "INSERT INTO families (family_name, head_of_family, phone, password_hash) VALUES (?, ?, ?, ?)"
	if _, err := db.InsertID(ctx, insert, "Thomas", "Joseph", "9876543210", "x"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = db.InsertID(ctx, insert, "Mathew", "George", "9876543210", "x")
	if err == nil {
		t.Fatal("expected duplicate phone error")
	}
	if !IsUniqueViolation(err, "phone") {
		t.Errorf("IsUniqueViolation(phone) = false for %v", err)
	}
	if IsUniqueViolation(err, "register_no") {
		t.Error("IsUniqueViolation(register_no) = true for phone conflict")
	}
	if IsUniqueViolation(errors.New("boom"), "phone") {
		t.Error("plain error reported as unique violation")
	}
}

func TestTxRollback(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	tx, err := db.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.InsertID(ctx,
		"INSERT INTO admins (name, email, password_hash) VALUES (?, ?, ?)", "A", "a@example.com", "x"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("admins = %d after rollback, want 0", n)
	}
}
