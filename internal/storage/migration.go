package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"slices"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS migrations(
	id INTEGER PRIMARY KEY NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	name TEXT NOT NULL,
	UNIQUE (name)
);
`

func listMigrations(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM migrations;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// runMigrations applies all embedded migrations, which have not yet been applied.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	applied, err := listMigrations(db)
	if err != nil {
		return err
	}
	entries, err := embedMigrations.ReadDir("migrations")
	if err != nil {
		return err
	}
	var filenames []string
	for _, e := range entries {
		filenames = append(filenames, e.Name())
	}
	slices.Sort(filenames)
	var count int
	for _, fn := range filenames {
		if slices.Contains(applied, fn) {
			continue
		}
		data, err := embedMigrations.ReadFile(path.Join("migrations", fn))
		if err != nil {
			return err
		}
		if err := applyMigration(db, fn, string(data)); err != nil {
			return fmt.Errorf("migration %s: %w", fn, err)
		}
		count++
	}
	if count > 0 {
		slog.Info("Migrations applied", "count", count)
	}
	return nil
}

func applyMigration(db *sql.DB, name, query string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(query); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO migrations(name) VALUES(?);`, name); err != nil {
		return err
	}
	return tx.Commit()
}
