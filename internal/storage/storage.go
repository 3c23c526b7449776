// Package storage persists character credentials in a local SQLite database.
//
// Only data needed to obtain new access tokens is stored.
// Access tokens are never written to the database.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// ConnectDB opens the database and returns it.
// When create is true missing tables are created.
func ConnectDB(dataSourceName string, create bool) (*sql.DB, error) {
	v := url.Values{}
	v.Add("_fk", "on")
	v.Add("_journal_mode", "WAL")
	v.Add("_synchronous", "normal")
	dsn := fmt.Sprintf("%s?%s", dataSourceName, v.Encode())
	slog.Debug("Connecting to sqlite", "dsn", dsn)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// each connection to :memory: opens a new database
	db.SetMaxOpenConns(1)
	if create {
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	slog.Info("Connected to database", "path", dataSourceName)
	return db, nil
}
