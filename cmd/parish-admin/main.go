// Command parish-admin seeds the first super admin account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/parishhub/parish/internal/config"
	"github.com/parishhub/parish/internal/database"
	"github.com/parishhub/parish/internal/logging"
	"github.com/parishhub/parish/internal/service"
	"github.com/parishhub/parish/internal/store"
	"github.com/parishhub/parish/internal/validation"
)

const minAdminPassword = 8

func main() {
	name := flag.String("name", "Super Admin", "display name")
	emailAddr := flag.String("email", "", "login email (required)")
	password := flag.String("password", os.Getenv("PARISH_ADMIN_PASSWORD"), "login password, defaults to $PARISH_ADMIN_PASSWORD")
	flag.Parse()

	if err := run(*name, *emailAddr, *password); err != nil {
		fmt.Fprintln(os.Stderr, "parish-admin:", err)
		os.Exit(1)
	}
}

func run(name, emailAddr, password string) error {
	if emailAddr == "" {
		return fmt.Errorf("-email is required")
	}
	if err := validation.Validator().Var(emailAddr, "required,email"); err != nil {
		return fmt.Errorf("invalid email %q", emailAddr)
	}
	if len(password) < minAdminPassword {
		return fmt.Errorf("password must be at least %d characters", minAdminPassword)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.OpenConfig(database.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		URL:    cfg.Database.URL,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admins := service.NewAdminService(store.NewAdminStore(db), nil, logger)
	created, err := admins.EnsureSuperAdmin(ctx, name, emailAddr, password)
	if err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	if created {
		logger.Info("super admin created", "email", emailAddr)
	} else {
		logger.Info("admin already exists, nothing to do", "email", emailAddr)
	}
	return nil
}
