package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// schemas names what each migration version creates, for the logs.
var schemas = map[uint]string{
	1: "compound catalog",
	2: "consent records",
}

// schemaName returns the schema a migration version creates.
func schemaName(version uint) string {
	if name, ok := schemas[version]; ok {
		return name
	}
	return "unknown"
}

// schemasBetween lists the schemas of versions after from, up to and
// including to.
func schemasBetween(from, to uint) []string {
	var names []string
	for v := from + 1; v <= to; v++ {
		names = append(names, schemaName(v))
	}
	return names
}

// MigrationRunner applies the catalog and consent schema migrations
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a runner reading migrations from a directory
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return &MigrationRunner{
		migrate: m,
		log:     logger,
	}, nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up(ctx context.Context) error {
	mr.log.Info("Running database migrations up")
	from := mr.currentVersion()

	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.WithField("schema", schemaName(from)).Info("No pending migrations to run")
			return nil
		}
		return fmt.Errorf("running migrations up: %w", err)
	}

	for _, name := range schemasBetween(from, mr.currentVersion()) {
		mr.log.WithField("schema", name).Info("Applied schema migration")
	}
	mr.logVersion("Migrations completed successfully")
	return nil
}

// Down rolls back one migration
func (mr *MigrationRunner) Down(ctx context.Context) error {
	from := mr.currentVersion()
	mr.log.WithField("schema", schemaName(from)).Info("Rolling back one migration")

	if err := mr.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rolling back migration: %w", err)
	}

	mr.logVersion("Migration rolled back successfully")
	return nil
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not get migration version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"version": version,
		"schema":  schemaName(version),
		"dirty":   dirty,
	}).Info(msg)
}

// currentVersion is zero before the first migration or when the version
// cannot be read.
func (mr *MigrationRunner) currentVersion() uint {
	version, _, err := mr.migrate.Version()
	if err != nil {
		return 0
	}
	return version
}

// Version returns the current migration version
func (mr *MigrationRunner) Version() (uint, bool, error) {
	return mr.migrate.Version()
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
