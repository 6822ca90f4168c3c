package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-tournament/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	database, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite has a single writer and in-memory databases live per connection
		database.SetMaxOpenConns(1)
		if _, err := database.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			database.Close()
			return nil, err
		}
	} else {
		database.SetMaxOpenConns(25)
		database.SetMaxIdleConns(25)
		database.SetConnMaxLifetime(5 * time.Minute)
	}

	slog.Info("database connected", "driver", driver)
	return database, nil
}

// RunMigrations applies the embedded schema. The migrate instance is not
// closed because that would close the shared connection pool.
func RunMigrations(database *sqlx.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	var driver migratedb.Driver
	switch database.DriverName() {
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(database.DB, &migratesqlite.Config{})
	case DriverPostgres:
		driver, err = migratepostgres.WithInstance(database.DB, &migratepostgres.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", database.DriverName())
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, database.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
