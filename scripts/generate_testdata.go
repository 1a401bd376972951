//go:build ignore

// generate_testdata.go creates standard datasets for benchmarking and manual runs.
// Usage: go run scripts/generate_testdata.go
//
// Creates one data directory per size, each holding satellites.json and
// coverage.json:
//
//	testdata/datasets/small   (20 satellites, 10 areas)
//	testdata/datasets/medium  (200 satellites, 60 areas)
//	testdata/datasets/large   (2000 satellites, 300 areas)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/orbview/pkg/loader"
	"github.com/vanderheijden86/orbview/pkg/testutil"
)

type datasetSpec struct {
	name    string
	nodes   int
	regions int
}

var datasets = []datasetSpec{
	{"small", 20, 10},
	{"medium", 200, 60},
	{"large", 2000, 300},
}

func main() {
	outputDir := filepath.Join("testdata", "datasets")

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d satellites, %d areas)...\n", ds.name, ds.nodes, ds.regions)

		cfg := testutil.DefaultConfig()
		cfg.Seed = uint64(ds.nodes) // Reproducible per-size
		cfg.DanglingRate = 0.02

		gen := testutil.New(cfg)
		data := gen.Random(ds.nodes, ds.regions, calculateDensity(ds.nodes))

		nodes, regions, err := testutil.ToJSON(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}

		dir := filepath.Join(outputDir, ds.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}
		for name, body := range map[string][]byte{loader.NodesFile: nodes, loader.RegionsFile: regions} {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, body, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
				os.Exit(1)
			}
		}

		fmt.Printf("  Written %s (%d + %d bytes)\n", dir, len(nodes), len(regions))
	}

	fmt.Println("\nDone! Datasets created in", outputDir)
}

// calculateDensity keeps each area to a handful of covering satellites.
func calculateDensity(nodes int) float64 {
	switch {
	case nodes <= 20:
		return 0.15
	case nodes <= 200:
		return 0.03
	default:
		return 0.004
	}
}
