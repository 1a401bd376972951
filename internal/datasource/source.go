// Package datasource discovers, validates and selects where the scene dataset
// comes from: a JSON data directory or an orbview SQLite database. The
// freshest valid source wins.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vanderheijden86/orbview/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is an orbview.db database
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a satellites.json + coverage.json pair
	SourceTypeJSON SourceType = "json"
)

// SQLiteFile is the database name looked for in the data directory.
const SQLiteFile = "orbview.db"

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSON   = 50
)

// ErrNoSources is returned when discovery finds nothing usable.
var ErrNoSources = errors.New("no valid data sources")

// DataSource represents a potential source of scene data
type DataSource struct {
	Type SourceType `json:"type"`
	// Path is the database file, or the directory holding the JSON pair
	Path     string    `json:"path"`
	Priority int       `json:"priority"`
	ModTime  time.Time `json:"mod_time"`
	Valid    bool      `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	NodeCount       int    `json:"node_count"`
	RegionCount     int    `json:"region_count"`
	Size            int64  `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, satellites=%d, areas=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.NodeCount, s.RegionCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// DataDir is the dataset directory (optional, see loader.GetDataDir)
	DataDir string
	// RootPath is used to resolve the default data directory
	RootPath               string
	ValidateAfterDiscovery bool
	IncludeInvalid         bool
	Verbose                bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds all potential data sources in the data directory,
// freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = loader.GetDataDir(opts.RootPath)
		if err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(dataDir); err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dataDir))
	}

	var sources []DataSource
	if s, ok := discoverSQLite(dataDir); ok {
		sources = append(sources, s)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found SQLite: %s (mod=%s)", s.Path, s.ModTime.Format(time.RFC3339)))
		}
	}
	if s, ok := discoverJSON(dataDir); ok {
		sources = append(sources, s)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found JSON: %s (mod=%s)", s.Path, s.ModTime.Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

func discoverSQLite(dataDir string) (DataSource, bool) {
	path := filepath.Join(dataDir, SQLiteFile)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return DataSource{}, false
	}
	return DataSource{
		Type:     SourceTypeSQLite,
		Path:     path,
		Priority: PrioritySQLite,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, true
}

// discoverJSON reports the JSON pair when both files exist. Its ModTime is
// the newer of the two.
func discoverJSON(dataDir string) (DataSource, bool) {
	src := DataSource{Type: SourceTypeJSON, Path: dataDir, Priority: PriorityJSON}
	for _, name := range []string{loader.NodesFile, loader.RegionsFile} {
		info, err := os.Stat(filepath.Join(dataDir, name))
		if err != nil || info.IsDir() {
			return DataSource{}, false
		}
		if info.ModTime().After(src.ModTime) {
			src.ModTime = info.ModTime()
		}
		src.Size += info.Size()
	}
	return src, true
}

// ValidateSource loads the source and records whether it parsed, along with
// its entity counts.
func ValidateSource(s *DataSource) error {
	ds, err := loadQuiet(*s)
	if err == nil {
		err = ds.Validate()
	}
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.NodeCount = len(ds.Nodes)
	s.RegionCount = len(ds.Regions)
	return nil
}

// SelectBestSource returns the freshest valid source, preferring higher
// priority on equal timestamps.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, ErrNoSources
	}
	sortSources(valid)
	return valid[0], nil
}
