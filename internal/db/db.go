package db

import (
	"fmt"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kompvlz/zakupki/internal/blob"
)

// Open connects to the database named by dsn. URL-style postgres DSNs go
// through the postgres driver; everything else is treated as a sqlite path,
// which is the default for single-device deployments.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(strings.Trim(dsn, "\"'"))
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	if isPostgres(dsn) {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

// Migrate prepares the blobs table. When MIGRATIONS=1 and the target is
// postgres, SQL migrations from ./migrations run via golang-migrate;
// otherwise gorm AutoMigrate keeps the schema current (dev convenience and
// the only option on sqlite).
func Migrate(db *gorm.DB, dsn string) error {
	if wantSQLMigrations() && isPostgres(dsn) {
		return runSQLMigrations(dsn)
	}
	if err := db.AutoMigrate(&blob.Blob{}); err != nil {
		return fmt.Errorf("automigrate blobs: %w", err)
	}
	return nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func wantSQLMigrations() bool {
	v := strings.ToLower(os.Getenv("MIGRATIONS"))
	return v == "1" || v == "true" || v == "yes"
}

func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
