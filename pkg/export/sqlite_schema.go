package export

import (
	"database/sql"
	"fmt"
)

// Schema version for tracking migrations
const SchemaVersion = 1

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CreateSchema creates all tables and indexes of a scene database. The
// satellites, coverage_areas and coverage tables are what the datasource
// reader loads back.
func CreateSchema(db execer) error {
	if err := createCoreTables(db); err != nil {
		return fmt.Errorf("create core tables: %w", err)
	}
	if err := createSelectionTables(db); err != nil {
		return fmt.Errorf("create selection tables: %w", err)
	}
	if err := createMetaTable(db); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

func createCoreTables(db execer) error {
	stmts := []struct{ name, sql string }{
		{"satellites", `
			CREATE TABLE IF NOT EXISTS satellites (
				id TEXT PRIMARY KEY,
				x REAL NOT NULL,
				y REAL NOT NULL,
				z REAL NOT NULL
			)`},
		{"coverage_areas", `
			CREATE TABLE IF NOT EXISTS coverage_areas (
				id TEXT PRIMARY KEY,
				x REAL NOT NULL,
				y REAL NOT NULL,
				z REAL NOT NULL
			)`},
		// satellite_id may name a satellite that does not exist
		{"coverage", `
			CREATE TABLE IF NOT EXISTS coverage (
				area_id TEXT NOT NULL,
				satellite_id TEXT NOT NULL,
				PRIMARY KEY (area_id, satellite_id),
				FOREIGN KEY (area_id) REFERENCES coverage_areas(id)
			)`},
		{"idx_coverage_satellite", `CREATE INDEX IF NOT EXISTS idx_coverage_satellite ON coverage(satellite_id)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

func createSelectionTables(db execer) error {
	stmts := []struct{ name, sql string }{
		{"selection", `
			CREATE TABLE IF NOT EXISTS selection (
				area_id TEXT NOT NULL,
				satellite_id TEXT NOT NULL,
				PRIMARY KEY (area_id, satellite_id)
			)`},
		{"connector_points", `
			CREATE TABLE IF NOT EXISTS connector_points (
				satellite_id TEXT NOT NULL,
				seq INTEGER NOT NULL,
				x REAL NOT NULL,
				y REAL NOT NULL,
				z REAL NOT NULL,
				PRIMARY KEY (satellite_id, seq)
			)`},
		{"labels", `
			CREATE TABLE IF NOT EXISTS labels (
				node_id TEXT PRIMARY KEY,
				text TEXT NOT NULL,
				x REAL NOT NULL,
				y REAL NOT NULL,
				z REAL NOT NULL
			)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

// createMetaTable creates the export metadata table.
func createMetaTable(db execer) error {
	metaSQL := `
		CREATE TABLE IF NOT EXISTS export_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)
	`
	if _, err := db.Exec(metaSQL); err != nil {
		return fmt.Errorf("create export_meta table: %w", err)
	}
	return nil
}

// InsertMetaValue inserts or updates a metadata key-value pair.
func InsertMetaValue(db execer, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO export_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}
