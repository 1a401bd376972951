// Package model holds the immutable scene entities: satellites (nodes) placed
// on an outer shell and coverage areas (regions) on an inner shell, plus the
// region to node membership relation.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownID is returned when looking up an id absent from the dataset.
var ErrUnknownID = errors.New("unknown id")

// NodeRecord is a satellite as it appears in the input dataset.
type NodeRecord struct {
	ID string `json:"satellite"`
}

// RegionRecord is a coverage area as it appears in the input dataset.
type RegionRecord struct {
	ID      string   `json:"location"`
	Members []string `json:"satellites"`
}

// Dataset is the raw input handed to Build.
type Dataset struct {
	Nodes   []NodeRecord
	Regions []RegionRecord
}

// Validate checks that every record has an id.
func (d Dataset) Validate() error {
	for i, n := range d.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("node %d: id cannot be empty", i)
		}
	}
	for i, r := range d.Regions {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("region %d: id cannot be empty", i)
		}
	}
	return nil
}

// Node is a satellite with its fixed position.
type Node struct {
	ID       string
	Position r3.Vec
}

// Region is a coverage area with its fixed position and member node ids.
type Region struct {
	ID       string
	Position r3.Vec
	Members  []string // sorted, unique
}

// HasMember reports whether id is listed as a member of r.
func (r Region) HasMember(id string) bool {
	i := sort.SearchStrings(r.Members, id)
	return i < len(r.Members) && r.Members[i] == id
}

func (r Region) clone() Region {
	r.Members = append([]string(nil), r.Members...)
	return r
}

// Model is the read-only lookup over nodes and regions. Positions and
// membership never change after Build.
type Model struct {
	nodes     []Node
	nodeIdx   map[string]int
	regions   []Region
	regionIdx map[string]int
	placement Placement
	dangling  map[string][]string
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (Node, error) {
	i, ok := m.nodeIdx[id]
	if !ok {
		return Node{}, fmt.Errorf("node %q: %w", id, ErrUnknownID)
	}
	return m.nodes[i], nil
}

// Region returns the region with the given id.
func (m *Model) Region(id string) (Region, error) {
	i, ok := m.regionIdx[id]
	if !ok {
		return Region{}, fmt.Errorf("region %q: %w", id, ErrUnknownID)
	}
	return m.regions[i].clone(), nil
}

// MembersOf returns the node ids listed for a region, dangling ones included.
func (m *Model) MembersOf(regionID string) ([]string, error) {
	i, ok := m.regionIdx[regionID]
	if !ok {
		return nil, fmt.Errorf("region %q: %w", regionID, ErrUnknownID)
	}
	return append([]string(nil), m.regions[i].Members...), nil
}

// HasNode reports whether id names a known node.
func (m *Model) HasNode(id string) bool {
	_, ok := m.nodeIdx[id]
	return ok
}

// HasRegion reports whether id names a known region.
func (m *Model) HasRegion(id string) bool {
	_, ok := m.regionIdx[id]
	return ok
}

// AllNodes returns every node in dataset order.
func (m *Model) AllNodes() []Node {
	return append([]Node(nil), m.nodes...)
}

// AllRegions returns every region in dataset order.
func (m *Model) AllRegions() []Region {
	out := make([]Region, len(m.regions))
	for i, r := range m.regions {
		out[i] = r.clone()
	}
	return out
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// RegionCount returns the number of regions.
func (m *Model) RegionCount() int { return len(m.regions) }

// SphereRadius returns the radius of the globe the shells are built around.
func (m *Model) SphereRadius() float64 { return m.placement.SphereRadius }

// Placement returns the shell geometry used to build the model.
func (m *Model) Placement() Placement { return m.placement }

// DanglingRefs maps region ids to member ids that name no known node.
func (m *Model) DanglingRefs() map[string][]string {
	out := make(map[string][]string, len(m.dangling))
	for k, v := range m.dangling {
		out[k] = append([]string(nil), v...)
	}
	return out
}
