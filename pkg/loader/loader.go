// Package loader reads the satellite and coverage datasets from disk.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/orbview/pkg/debug"
	"github.com/vanderheijden86/orbview/pkg/metrics"
	"github.com/vanderheijden86/orbview/pkg/model"
)

// DataDirEnvVar overrides the dataset directory.
const DataDirEnvVar = "ORBVIEW_DATA_DIR"

// Dataset file names inside the data directory.
const (
	NodesFile   = "satellites.json"
	RegionsFile = "coverage.json"
)

// GetDataDir returns the dataset directory, respecting ORBVIEW_DATA_DIR.
// Otherwise it falls back to ./data under root (or the cwd if root is empty).
func GetDataDir(root string) (string, error) {
	if envDir := os.Getenv(DataDirEnvVar); envDir != "" {
		return envDir, nil
	}
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}
	return filepath.Join(root, "data"), nil
}

// ParseOptions configures the parsers.
type ParseOptions struct {
	// WarningHandler is called for every skipped or suspicious entry.
	// If nil, warnings are printed to os.Stderr unless OV_ROBOT=1.
	WarningHandler func(string)
}

func (o ParseOptions) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv("OV_ROBOT") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// LoadDataset reads both dataset files from dir.
func LoadDataset(dir string) (model.Dataset, error) {
	return LoadDatasetWithOptions(dir, ParseOptions{})
}

// LoadDatasetWithOptions is LoadDataset with custom options.
func LoadDatasetWithOptions(dir string, opts ParseOptions) (model.Dataset, error) {
	defer metrics.Timer(metrics.DatasetLoad)()
	defer debug.LogEnterExit("loader.LoadDataset " + dir)()

	nodes, err := loadFile(filepath.Join(dir, NodesFile), func(r io.Reader) ([]model.NodeRecord, error) {
		return ParseNodes(r, opts)
	})
	if err != nil {
		return model.Dataset{}, err
	}
	regions, err := loadFile(filepath.Join(dir, RegionsFile), func(r io.Reader) ([]model.RegionRecord, error) {
		return ParseRegions(r, opts)
	})
	if err != nil {
		return model.Dataset{}, err
	}
	return model.Dataset{Nodes: nodes, Regions: regions}, nil
}

func loadFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no dataset found at %s", path)
		}
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

type nodeWire struct {
	Satellite   string `json:"satellite"`
	SatelliteID string `json:"satelliteId"`
}

type regionWire struct {
	Location   string   `json:"location"`
	Satellites []string `json:"satellites"`
}

// ParseNodes parses a satellites.json array. Entries that fail to decode or
// carry no id are skipped with a warning; repeated ids keep the first entry.
func ParseNodes(r io.Reader, opts ParseOptions) ([]model.NodeRecord, error) {
	elems, err := readArray(r)
	if err != nil {
		return nil, err
	}
	warn := opts.warn()

	out := make([]model.NodeRecord, 0, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for i, raw := range elems {
		var w nodeWire
		if err := json.Unmarshal(raw, &w); err != nil {
			warn(fmt.Sprintf("skipping malformed satellite at index %d: %v", i, err))
			continue
		}
		id := strings.TrimSpace(w.Satellite)
		if id == "" {
			id = strings.TrimSpace(w.SatelliteID)
		}
		if id == "" {
			warn(fmt.Sprintf("skipping satellite at index %d: missing id", i))
			continue
		}
		if _, dup := seen[id]; dup {
			warn(fmt.Sprintf("duplicate satellite %q at index %d ignored", id, i))
			continue
		}
		seen[id] = struct{}{}
		out = append(out, model.NodeRecord{ID: id})
	}
	return out, nil
}

// ParseRegions parses a coverage.json array. Blank member ids are dropped;
// members naming unknown satellites are kept and resolved later.
func ParseRegions(r io.Reader, opts ParseOptions) ([]model.RegionRecord, error) {
	elems, err := readArray(r)
	if err != nil {
		return nil, err
	}
	warn := opts.warn()

	out := make([]model.RegionRecord, 0, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for i, raw := range elems {
		var w regionWire
		if err := json.Unmarshal(raw, &w); err != nil {
			warn(fmt.Sprintf("skipping malformed coverage area at index %d: %v", i, err))
			continue
		}
		id := strings.TrimSpace(w.Location)
		if id == "" {
			warn(fmt.Sprintf("skipping coverage area at index %d: missing location", i))
			continue
		}
		if _, dup := seen[id]; dup {
			warn(fmt.Sprintf("duplicate coverage area %q at index %d ignored", id, i))
			continue
		}
		seen[id] = struct{}{}

		members := make([]string, 0, len(w.Satellites))
		for _, m := range w.Satellites {
			m = strings.TrimSpace(m)
			if m == "" {
				warn(fmt.Sprintf("coverage area %q lists a blank satellite id", id))
				continue
			}
			members = append(members, m)
		}
		out = append(out, model.RegionRecord{ID: id, Members: members})
	}
	return out, nil
}

// readArray decodes the top-level JSON array into its raw elements so a bad
// element does not sink the whole file.
func readArray(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("dataset is not a JSON array: %w", err)
	}
	return elems, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
