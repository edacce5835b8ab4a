// Package sqlite opens the SQLite databases loxoracle keeps its run history
// in. Two drivers are supported:
//
//   - Default: pure Go modernc.org/sqlite (CGO_ENABLED=0 friendly)
//   - -tags cgo_sqlite: github.com/mattn/go-sqlite3 (requires CGO)
//
// Use Open instead of sql.Open so the driver matching the build is used.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// DriverName returns the database/sql driver name for this build.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// connPragmas are applied to the single connection Open keeps.
var connPragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open opens the database at path with foreign keys enforced. The pool is
// limited to one connection so per-connection pragmas always hold.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range connPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return db, nil
}

// OpenReadOnly opens a database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open("file:" + path + "?mode=ro")
}

// Migrate brings the schema up to date. migrations[i] upgrades the schema
// from version i to i+1; the current version is kept in PRAGMA
// user_version. It returns the resulting version.
func Migrate(ctx context.Context, db *sql.DB, migrations []string) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("sqlite: failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return version, fmt.Errorf("sqlite: schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for ; version < len(migrations); version++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return version, fmt.Errorf("sqlite: failed to begin migration %d: %w", version+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("sqlite: migration %d failed: %w", version+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			tx.Rollback()
			return version, fmt.Errorf("sqlite: failed to record schema version %d: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return version, fmt.Errorf("sqlite: failed to commit migration %d: %w", version+1, err)
		}
	}

	return version, nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
