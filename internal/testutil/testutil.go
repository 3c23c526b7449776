// Package testutil contains helpers for tests which need a database.
package testutil

import (
	"database/sql"

	"github.com/ErikKalkoken/evefit/internal/storage"
)

// New returns a new in-memory database, a storage and a factory for tests.
func New() (*sql.DB, *storage.Storage, Factory) {
	db, err := storage.ConnectDB(":memory:", true)
	if err != nil {
		panic(err)
	}
	st := storage.New(db)
	factory := NewFactory(st)
	return db, st, factory
}

// TruncateTables will purge data from all tables. This is meant for tests.
func TruncateTables(db *sql.DB) {
	if _, err := db.Exec(`DELETE FROM character_tokens;`); err != nil {
		panic(err)
	}
}
