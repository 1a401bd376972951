package model_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/geom"
	"github.com/vanderheijden86/orbview/pkg/model"
)

func sampleDataset() model.Dataset {
	return model.Dataset{
		Nodes: []model.NodeRecord{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Regions: []model.RegionRecord{
			{ID: "X", Members: []string{"B", "A", "A"}},
			{ID: "Y", Members: []string{"C", "GHOST"}},
		},
	}
}

func buildSample(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.Build(sampleDataset(), model.DefaultPlacement(), geom.NewSampler(1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestBuild_PositionsOnShells(t *testing.T) {
	m := buildSample(t)
	for _, n := range m.AllNodes() {
		if r := r3.Norm(n.Position); r < 105-1e-9 || r >= 110 {
			t.Errorf("node %s radius %v outside [105, 110)", n.ID, r)
		}
	}
	for _, r := range m.AllRegions() {
		if got := r3.Norm(r.Position); math.Abs(got-95) > 1e-9 {
			t.Errorf("region %s radius %v, want 95", r.ID, got)
		}
	}
}

func TestLookup(t *testing.T) {
	m := buildSample(t)

	if _, err := m.Node("A"); err != nil {
		t.Errorf("Node(A): %v", err)
	}
	if _, err := m.Node("Z"); !errors.Is(err, model.ErrUnknownID) {
		t.Errorf("Node(Z) error = %v, want ErrUnknownID", err)
	}
	if _, err := m.Region("nowhere"); !errors.Is(err, model.ErrUnknownID) {
		t.Errorf("Region(nowhere) error = %v, want ErrUnknownID", err)
	}
	if _, err := m.MembersOf("nowhere"); !errors.Is(err, model.ErrUnknownID) {
		t.Errorf("MembersOf(nowhere) error = %v, want ErrUnknownID", err)
	}

	members, err := m.MembersOf("X")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(members, want) {
		t.Errorf("MembersOf(X) = %v, want %v", members, want)
	}
}

func TestMembersOf_KeepsDanglingReferences(t *testing.T) {
	m := buildSample(t)
	members, _ := m.MembersOf("Y")
	if want := []string{"C", "GHOST"}; !reflect.DeepEqual(members, want) {
		t.Errorf("MembersOf(Y) = %v, want %v", members, want)
	}
	dangling := m.DanglingRefs()
	if want := map[string][]string{"Y": {"GHOST"}}; !reflect.DeepEqual(dangling, want) {
		t.Errorf("DanglingRefs = %v, want %v", dangling, want)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	m := buildSample(t)

	members, _ := m.MembersOf("X")
	members[0] = "mutated"
	r, _ := m.Region("X")
	if r.Members[0] != "A" {
		t.Fatal("MembersOf exposed internal slice")
	}
	r.Members[0] = "mutated"
	regions := m.AllRegions()
	if regions[0].Members[0] != "A" {
		t.Fatal("Region exposed internal slice")
	}
	nodes := m.AllNodes()
	nodes[0].ID = "mutated"
	if n, _ := m.Node("A"); n.ID != "A" {
		t.Fatal("AllNodes exposed internal slice")
	}
}

func TestBuild_DuplicatesKeepFirst(t *testing.T) {
	ds := model.Dataset{
		Nodes:   []model.NodeRecord{{ID: "A"}, {ID: "A"}, {ID: " B "}},
		Regions: []model.RegionRecord{{ID: "X", Members: []string{"A"}}, {ID: "X", Members: []string{"B"}}},
	}
	m, err := model.Build(ds, model.DefaultPlacement(), geom.NewSampler(2))
	if err != nil {
		t.Fatal(err)
	}
	if m.NodeCount() != 2 || m.RegionCount() != 1 {
		t.Fatalf("counts = %d nodes, %d regions; want 2, 1", m.NodeCount(), m.RegionCount())
	}
	if !m.HasNode("B") {
		t.Error("ids should be trimmed")
	}
	members, _ := m.MembersOf("X")
	if !reflect.DeepEqual(members, []string{"A"}) {
		t.Errorf("first region occurrence should win, got %v", members)
	}
}

func TestBuild_InvalidPlacementAborts(t *testing.T) {
	place := model.DefaultPlacement()
	place.RegionInset = place.SphereRadius
	_, err := model.Build(sampleDataset(), place, geom.NewSampler(1))
	if !errors.Is(err, geom.ErrInvalidRadius) {
		t.Errorf("error = %v, want ErrInvalidRadius", err)
	}
}

func TestBuild_EmptyIDRejected(t *testing.T) {
	ds := model.Dataset{Nodes: []model.NodeRecord{{ID: "  "}}}
	if _, err := model.Build(ds, model.DefaultPlacement(), geom.NewSampler(1)); err == nil {
		t.Error("expected error for empty node id")
	}
}

func TestRegion_HasMember(t *testing.T) {
	m := buildSample(t)
	r, _ := m.Region("X")
	if !r.HasMember("A") || !r.HasMember("B") || r.HasMember("C") {
		t.Errorf("HasMember mismatch for members %v", r.Members)
	}
}
