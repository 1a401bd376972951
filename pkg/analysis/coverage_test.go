package analysis

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/geom"
	"github.com/vanderheijden86/orbview/pkg/testutil"
)

func TestSummarize_Scenario(t *testing.T) {
	m := testutil.BuildModel(t, testutil.Scenario())
	s := Summarize(m)

	if s.NodeCount != 4 || s.RegionCount != 4 {
		t.Errorf("counts = %d/%d, want 4/4", s.NodeCount, s.RegionCount)
	}
	if s.Memberships != 5 {
		t.Errorf("Memberships = %d, want 5", s.Memberships)
	}
	if !reflect.DeepEqual(s.Dangling, map[string][]string{"R3": {"ghost"}}) {
		t.Errorf("Dangling = %v", s.Dangling)
	}
	if len(s.Uncovered) != 0 {
		t.Errorf("Uncovered = %v, want none", s.Uncovered)
	}
	if !reflect.DeepEqual(s.EmptyAreas, []string{"R4"}) {
		t.Errorf("EmptyAreas = %v, want [R4]", s.EmptyAreas)
	}
	wantCov := map[string]int{"A": 1, "B": 2, "C": 1, "X": 1}
	if !reflect.DeepEqual(s.Coverage, wantCov) {
		t.Errorf("Coverage = %v, want %v", s.Coverage, wantCov)
	}
	if s.MaxCoverage != 2 || math.Abs(s.MeanCoverage-1.25) > 1e-12 {
		t.Errorf("max/mean = %d/%.3f, want 2/1.25", s.MaxCoverage, s.MeanCoverage)
	}

	want := []Cluster{
		{Regions: []string{"R1", "R2"}, Nodes: []string{"A", "B", "C"}},
		{Regions: []string{"R3"}, Nodes: []string{"X"}},
		{Regions: []string{"R4"}},
	}
	if !reflect.DeepEqual(s.Clusters, want) {
		t.Errorf("Clusters = %+v, want %+v", s.Clusters, want)
	}
	if !reflect.DeepEqual(s.Bridges, []string{"B"}) {
		t.Errorf("Bridges = %v, want [B]", s.Bridges)
	}
}

func TestSummarize_Uncovered(t *testing.T) {
	ds := testutil.NewDefault().Disjoint(2, 3)
	ds.Regions = ds.Regions[:1]
	s := Summarize(testutil.BuildModel(t, ds))

	if len(s.Uncovered) != 3 {
		t.Errorf("Uncovered = %v, want 3 satellites", s.Uncovered)
	}
	if len(s.Clusters) != 1 {
		t.Errorf("clusters = %d, want 1", len(s.Clusters))
	}
	if s.Dangling != nil {
		t.Errorf("Dangling = %v, want nil", s.Dangling)
	}
}

func TestSummarize_DisjointClusters(t *testing.T) {
	s := Summarize(testutil.BuildModel(t, testutil.NewDefault().Disjoint(4, 2)))
	if len(s.Clusters) != 4 {
		t.Fatalf("clusters = %d, want 4", len(s.Clusters))
	}
	for _, c := range s.Clusters {
		if len(c.Regions) != 1 || len(c.Nodes) != 2 {
			t.Errorf("cluster %+v, want 1 area and 2 satellites", c)
		}
	}
	if len(s.Bridges) != 0 {
		t.Errorf("Bridges = %v, want none", s.Bridges)
	}
}

func TestSummarize_Empty(t *testing.T) {
	m := testutil.BuildModel(t, testutil.NewDefault().Random(0, 0, 0))
	s := Summarize(m)
	if s.NodeCount != 0 || s.MeanCoverage != 0 || len(s.Clusters) != 0 {
		t.Errorf("unexpected summary for empty scene: %+v", s)
	}
}

func TestUniformity_SampledNodes(t *testing.T) {
	m := testutil.BuildModel(t, testutil.NewDefault().Random(3000, 0, 0))
	_, p := Uniformity(NodePositions(m), 10)
	if p < 0.001 {
		t.Errorf("p = %.5f, placement looks non-uniform", p)
	}
}

func TestUniformity_Clustered(t *testing.T) {
	s := geom.NewSampler(3)
	pts := make([]r3.Vec, 0, 2000)
	for i := 0; i < 2000; i++ {
		p, err := s.Sample(1)
		if err != nil {
			t.Fatal(err)
		}
		p.Z = math.Abs(p.Z) // fold onto the northern hemisphere
		pts = append(pts, p)
	}
	if _, p := Uniformity(pts, 10); p > 1e-6 {
		t.Errorf("p = %.5f, expected hemisphere to be rejected", p)
	}
}

func TestUniformity_Degenerate(t *testing.T) {
	if chi, p := Uniformity(nil, 10); chi != 0 || p != 1 {
		t.Errorf("empty input = (%.2f, %.2f)", chi, p)
	}
	if chi, p := Uniformity(NodePositions(testutil.BuildModel(t, testutil.Scenario())), 1); chi != 0 || p != 1 {
		t.Errorf("one bin = (%.2f, %.2f)", chi, p)
	}
}
