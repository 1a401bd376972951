// Package testutil provides coverage dataset fixtures and assertions.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/orbview/pkg/geom"
	"github.com/vanderheijden86/orbview/pkg/loader"
	"github.com/vanderheijden86/orbview/pkg/model"
)

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed         uint64 // Random seed for determinism (0 = 42)
	NodePrefix   string // Prefix for satellite ids (default: "SAT")
	RegionPrefix string // Prefix for coverage area ids (default: "AREA")
	// DanglingRate is the chance that a membership entry names a satellite
	// missing from the dataset.
	DanglingRate float64
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{Seed: 42, NodePrefix: "SAT", RegionPrefix: "AREA"}
}

// Generator creates coverage datasets with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.NodePrefix == "" {
		cfg.NodePrefix = "SAT"
	}
	if cfg.RegionPrefix == "" {
		cfg.RegionPrefix = "AREA"
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// NodeID returns the i-th generated satellite id.
func (g *Generator) NodeID(i int) string {
	return fmt.Sprintf("%s-%d", g.cfg.NodePrefix, i)
}

// RegionID returns the i-th generated coverage area id.
func (g *Generator) RegionID(i int) string {
	return fmt.Sprintf("%s-%d", g.cfg.RegionPrefix, i)
}

func (g *Generator) nodes(n int) []model.NodeRecord {
	out := make([]model.NodeRecord, n)
	for i := range out {
		out[i] = model.NodeRecord{ID: g.NodeID(i)}
	}
	return out
}

func (g *Generator) maybeDangling(members []string, region int) []string {
	if g.cfg.DanglingRate > 0 && g.rng.Float64() < g.cfg.DanglingRate {
		members = append(members, fmt.Sprintf("GHOST-%d", region))
	}
	return members
}

// Random covers each area with every satellite independently with
// probability density.
func (g *Generator) Random(nodes, regions int, density float64) model.Dataset {
	ds := model.Dataset{Nodes: g.nodes(nodes)}
	for r := 0; r < regions; r++ {
		var members []string
		for n := 0; n < nodes; n++ {
			if g.rng.Float64() < density {
				members = append(members, g.NodeID(n))
			}
		}
		ds.Regions = append(ds.Regions, model.RegionRecord{ID: g.RegionID(r), Members: g.maybeDangling(members, r)})
	}
	return ds
}

// Disjoint creates components groups, each one area covered by its own
// size satellites.
func (g *Generator) Disjoint(components, size int) model.Dataset {
	ds := model.Dataset{Nodes: g.nodes(components * size)}
	for c := 0; c < components; c++ {
		members := make([]string, size)
		for i := range members {
			members[i] = g.NodeID(c*size + i)
		}
		ds.Regions = append(ds.Regions, model.RegionRecord{ID: g.RegionID(c), Members: g.maybeDangling(members, c)})
	}
	return ds
}

// Shared creates regions areas that are all covered by every satellite.
func (g *Generator) Shared(regions, nodes int) model.Dataset {
	ds := model.Dataset{Nodes: g.nodes(nodes)}
	for r := 0; r < regions; r++ {
		members := make([]string, nodes)
		for i := range members {
			members[i] = g.NodeID(i)
		}
		ds.Regions = append(ds.Regions, model.RegionRecord{ID: g.RegionID(r), Members: members})
	}
	return ds
}

// Scenario is the small hand-written dataset most tests start from:
// R1 is covered by A and B, R2 by B and C, R3 by X and a missing satellite,
// and R4 by nothing.
func Scenario() model.Dataset {
	return model.Dataset{
		Nodes: []model.NodeRecord{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "X"}},
		Regions: []model.RegionRecord{
			{ID: "R1", Members: []string{"A", "B"}},
			{ID: "R2", Members: []string{"B", "C"}},
			{ID: "R3", Members: []string{"X", "ghost"}},
			{ID: "R4"},
		},
	}
}

// BuildModel places ds with the default placement and a fixed seed.
func BuildModel(t testing.TB, ds model.Dataset) *model.Model {
	t.Helper()
	m, err := model.Build(ds, model.DefaultPlacement(), geom.NewSampler(7))
	if err != nil {
		t.Fatalf("model.Build: %v", err)
	}
	return m
}

// ToJSON renders ds as the two dataset files.
func ToJSON(ds model.Dataset) (nodes, regions []byte, err error) {
	if ds.Nodes == nil {
		ds.Nodes = []model.NodeRecord{}
	}
	if ds.Regions == nil {
		ds.Regions = []model.RegionRecord{}
	}
	if nodes, err = json.MarshalIndent(ds.Nodes, "", "  "); err != nil {
		return nil, nil, err
	}
	if regions, err = json.MarshalIndent(ds.Regions, "", "  "); err != nil {
		return nil, nil, err
	}
	return nodes, regions, nil
}

// WriteDataset writes ds into dir as satellites.json and coverage.json.
func WriteDataset(t testing.TB, dir string, ds model.Dataset) {
	t.Helper()
	nodes, regions, err := ToJSON(ds)
	if err != nil {
		t.Fatalf("marshal dataset: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create data dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, loader.NodesFile), nodes, 0o644); err != nil {
		t.Fatalf("write %s: %v", loader.NodesFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, loader.RegionsFile), regions, 0o644); err != nil {
		t.Fatalf("write %s: %v", loader.RegionsFile, err)
	}
}

// TempDataDir writes ds into a fresh temporary directory and returns it.
func TempDataDir(t testing.TB, ds model.Dataset) string {
	t.Helper()
	dir := t.TempDir()
	WriteDataset(t, dir, ds)
	return dir
}
