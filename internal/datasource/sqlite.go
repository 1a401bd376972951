package datasource

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/orbview/pkg/model"
)

// SQLiteReader provides read access to an orbview database. The tables are
// the ones pkg/export writes: satellites, coverage_areas and coverage.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDataset reads every satellite, coverage area and membership row.
func (r *SQLiteReader) LoadDataset() (model.Dataset, error) {
	var ds model.Dataset

	rows, err := r.db.Query(`SELECT id FROM satellites ORDER BY id`)
	if err != nil {
		return ds, fmt.Errorf("query satellites: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return ds, fmt.Errorf("scan satellite: %w", err)
		}
		ds.Nodes = append(ds.Nodes, model.NodeRecord{ID: id})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("error iterating satellites: %w", err)
	}

	members, err := r.loadMemberships()
	if err != nil {
		return ds, err
	}

	rows, err = r.db.Query(`SELECT id FROM coverage_areas ORDER BY id`)
	if err != nil {
		return ds, fmt.Errorf("query coverage areas: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ds, fmt.Errorf("scan coverage area: %w", err)
		}
		ds.Regions = append(ds.Regions, model.RegionRecord{ID: id, Members: members[id]})
	}
	if err := rows.Err(); err != nil {
		return ds, fmt.Errorf("error iterating coverage areas: %w", err)
	}
	return ds, nil
}

func (r *SQLiteReader) loadMemberships() (map[string][]string, error) {
	rows, err := r.db.Query(`SELECT area_id, satellite_id FROM coverage ORDER BY area_id, satellite_id`)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var area, sat string
		if err := rows.Scan(&area, &sat); err != nil {
			return nil, fmt.Errorf("scan coverage: %w", err)
		}
		out[area] = append(out[area], sat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coverage: %w", err)
	}
	return out, nil
}

// Counts returns the number of satellites and coverage areas.
func (r *SQLiteReader) Counts() (nodes, regions int, err error) {
	if err = r.db.QueryRow(`SELECT COUNT(*) FROM satellites`).Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err = r.db.QueryRow(`SELECT COUNT(*) FROM coverage_areas`).Scan(&regions); err != nil {
		return 0, 0, err
	}
	return nodes, regions, nil
}
