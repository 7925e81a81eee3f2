package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect interface {
	// DriverName is the database/sql driver registered for the dialect.
	DriverName() string
	// GooseDialect is the dialect name passed to goose.
	GooseDialect() string
	DSN(cfg Config) string
	// Rebind converts ? placeholders to the dialect's native form.
	Rebind(query string) string
	SupportsLastInsertID() bool
	Configure(db *sql.DB, cfg Config)
	MigrationsDir() string
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string   { return "sqlite" }
func (sqliteDialect) GooseDialect() string { return "sqlite3" }

func (sqliteDialect) DSN(cfg Config) string {
	pragmas := []string{"_pragma=foreign_keys(1)"}
	if !isMemory(cfg.Path) {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=busy_timeout(5000)")
	}
	return cfg.Path + "?" + strings.Join(pragmas, "&")
}

func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) SupportsLastInsertID() bool { return true }

func (sqliteDialect) Configure(db *sql.DB, cfg Config) {
	// Every connection to :memory: is a separate database.
	if isMemory(cfg.Path) {
		db.SetMaxOpenConns(1)
	}
}

func (sqliteDialect) MigrationsDir() string { return "migrations/sqlite" }

type postgresDialect struct{}

func (postgresDialect) DriverName() string   { return "postgres" }
func (postgresDialect) GooseDialect() string { return "postgres" }
func (postgresDialect) DSN(cfg Config) string { return cfg.URL }

var placeholder = regexp.MustCompile(`\?`)

func (postgresDialect) Rebind(query string) string {
	n := 0
	return placeholder.ReplaceAllStringFunc(query, func(string) string {
		n++
		return "$" + strconv.Itoa(n)
	})
}

func (postgresDialect) SupportsLastInsertID() bool { return false }

func (postgresDialect) Configure(db *sql.DB, _ Config) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

func (postgresDialect) MigrationsDir() string { return "migrations/postgres" }

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
