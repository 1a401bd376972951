// Package export writes the scene out of the process: orthographic SVG/PNG
// snapshots and a SQLite database of the entities and the active selection.
package export

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/orbview/pkg/metrics"
	"github.com/vanderheijden86/orbview/pkg/model"
	"github.com/vanderheijden86/orbview/pkg/selection"
	"github.com/vanderheijden86/orbview/pkg/version"
)

// DefaultDatabaseName matches the file internal/datasource discovers, so an
// export directory can be used as a data directory.
const DefaultDatabaseName = "orbview.db"

// SQLiteExportConfig tunes what gets written.
type SQLiteExportConfig struct {
	FileName string
	// IncludeSelection writes the selection, connector_points and labels rows.
	IncludeSelection bool
}

// DefaultSQLiteExportConfig returns the default export settings.
func DefaultSQLiteExportConfig() SQLiteExportConfig {
	return SQLiteExportConfig{FileName: DefaultDatabaseName, IncludeSelection: true}
}

// SQLiteExporter exports the scene to a SQLite database.
type SQLiteExporter struct {
	Model  *model.Model
	State  selection.State
	Config SQLiteExportConfig
	now    func() time.Time
}

// NewSQLiteExporter creates a new exporter for m and the given selection.
func NewSQLiteExporter(m *model.Model, st selection.State) *SQLiteExporter {
	return &SQLiteExporter{
		Model:  m,
		State:  st,
		Config: DefaultSQLiteExportConfig(),
		now:    time.Now,
	}
}

// Export writes the database into outputDir, replacing any previous export,
// and returns its path.
func (e *SQLiteExporter) Export(outputDir string) (string, error) {
	defer metrics.Timer(metrics.SQLiteExport)()

	if e.Model == nil {
		return "", fmt.Errorf("no scene to export")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := e.Config.FileName
	if name == "" {
		name = DefaultDatabaseName
	}
	dbPath := filepath.Join(outputDir, name)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	if err := e.write(tx); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return dbPath, nil
}

func (e *SQLiteExporter) write(tx *sql.Tx) error {
	if err := CreateSchema(tx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := e.insertNodes(tx); err != nil {
		return fmt.Errorf("insert satellites: %w", err)
	}
	if err := e.insertRegions(tx); err != nil {
		return fmt.Errorf("insert coverage areas: %w", err)
	}
	if e.Config.IncludeSelection && e.State.Active {
		if err := e.insertSelection(tx); err != nil {
			return fmt.Errorf("insert selection: %w", err)
		}
	}
	return e.insertMeta(tx)
}

func (e *SQLiteExporter) insertNodes(tx *sql.Tx) error {
	stmt, err := tx.Prepare(`INSERT INTO satellites (id, x, y, z) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, n := range e.Model.AllNodes() {
		if _, err := stmt.Exec(n.ID, n.Position.X, n.Position.Y, n.Position.Z); err != nil {
			return fmt.Errorf("%s: %w", n.ID, err)
		}
	}
	return nil
}

func (e *SQLiteExporter) insertRegions(tx *sql.Tx) error {
	area, err := tx.Prepare(`INSERT INTO coverage_areas (id, x, y, z) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer area.Close()
	member, err := tx.Prepare(`INSERT INTO coverage (area_id, satellite_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer member.Close()

	for _, r := range e.Model.AllRegions() {
		if _, err := area.Exec(r.ID, r.Position.X, r.Position.Y, r.Position.Z); err != nil {
			return fmt.Errorf("%s: %w", r.ID, err)
		}
		for _, m := range r.Members {
			if _, err := member.Exec(r.ID, m); err != nil {
				return fmt.Errorf("%s/%s: %w", r.ID, m, err)
			}
		}
	}
	return nil
}

func (e *SQLiteExporter) insertSelection(tx *sql.Tx) error {
	st := e.State
	for _, id := range st.Highlighted {
		if _, err := tx.Exec(`INSERT INTO selection (area_id, satellite_id) VALUES (?, ?)`, st.ActiveRegionID, id); err != nil {
			return err
		}
	}

	point, err := tx.Prepare(`INSERT INTO connector_points (satellite_id, seq, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer point.Close()
	for _, c := range st.Connectors {
		for i, p := range c.Path {
			if _, err := point.Exec(c.NodeID, i, p.X, p.Y, p.Z); err != nil {
				return fmt.Errorf("connector %s: %w", c.NodeID, err)
			}
		}
	}

	for _, l := range st.Labels {
		if _, err := tx.Exec(`INSERT INTO labels (node_id, text, x, y, z) VALUES (?, ?, ?, ?, ?)`,
			l.NodeID, l.Text, l.Position.X, l.Position.Y, l.Position.Z); err != nil {
			return fmt.Errorf("label %s: %w", l.NodeID, err)
		}
	}
	return nil
}

func (e *SQLiteExporter) insertMeta(tx *sql.Tx) error {
	meta := map[string]string{
		"schema_version": strconv.Itoa(SchemaVersion),
		"version":        version.Version,
		"exported_at":    e.now().UTC().Format(time.RFC3339),
		"sphere_radius":  strconv.FormatFloat(e.Model.SphereRadius(), 'g', -1, 64),
		"active_area":    e.State.ActiveRegionID,
	}
	for k, v := range meta {
		if err := InsertMetaValue(tx, k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}
	return nil
}
