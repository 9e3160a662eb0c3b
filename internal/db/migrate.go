package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// Migrations holds the ordered schema steps for the car table. Steps only
// ever add tables or columns and each one is safe to re-run against a table
// created before migrations were tracked.
//
//go:embed migrations/*.sql
var Migrations embed.FS

func newMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	migrations, err := fs.Sub(Migrations, "migrations")
	if err != nil {
		return nil, err
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("failed to create migration lock: %w", err)
	}
	return goose.NewProvider(goose.DialectPostgres, db, migrations, goose.WithSessionLocker(locker))
}

// EnsureSchema applies every migration that has not been applied yet.
// Calling it on an up-to-date database is a no-op.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) (err error) {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		dbErr := db.Close()
		if dbErr != nil && err == nil {
			err = fmt.Errorf("failed to close database handle: %w", dbErr)
		}
	}()

	provider, err := newMigrationProvider(db)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	_, err = provider.Up(ctx)
	if err != nil {
		err = fmt.Errorf("failed to apply migrations: %w", err)
	}
	return
}

// MigrateTo migrates the database behind connectionURL to version, which is
// either a migration number or "latest".
func MigrateTo(ctx context.Context, connectionURL string, version string) (err error) {
	db, err := sql.Open("pgx", connectionURL)
	if err != nil {
		return fmt.Errorf("failed to connect with database: %w", err)
	}

	defer func() {
		dbErr := db.Close()
		if dbErr != nil {
			if err == nil {
				err = fmt.Errorf("failed to close database connection: %w", dbErr)
			} else {
				err = fmt.Errorf("multiple errors occurred: %w, %s", err, dbErr)
			}
		}
	}()

	provider, err := newMigrationProvider(db)
	if err != nil {
		err = fmt.Errorf("failed to load migrations: %w", err)
		return
	}
	if version == "latest" {
		_, err = provider.Up(ctx)
		return
	}
	versionInt, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		err = fmt.Errorf("failed to parse version: %w", err)
		return
	}
	_, err = provider.UpTo(ctx, versionInt)
	return
}
