// Package fusiondb persists fusion runs, candidates, and per-cycle
// observations to SQLite for offline evaluation. The engine writes through
// the Store synchronously once per cycle; write failures are logged by the
// engine and never abort processing.
package fusiondb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle so store methods hang off one type.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the fusion database at path and brings
// the schema up to the latest migration.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open fusion db: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}
