package model

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/debug"
	"github.com/vanderheijden86/orbview/pkg/metrics"
)

// Placer draws a position on a shell between two radii.
type Placer interface {
	SampleShell(minRadius, maxRadius float64) (r3.Vec, error)
}

// Placement describes the shells nodes and regions are scattered on.
type Placement struct {
	SphereRadius  float64
	NodeMinOffset float64 // nodes at SphereRadius + [NodeMinOffset, NodeMaxOffset)
	NodeMaxOffset float64
	RegionInset   float64 // regions at SphereRadius - RegionInset
}

// DefaultPlacement is the stock globe: radius 100, satellites 5-10
// units above the surface, coverage markers 5 units below it.
func DefaultPlacement() Placement {
	return Placement{
		SphereRadius:  100,
		NodeMinOffset: 5,
		NodeMaxOffset: 10,
		RegionInset:   5,
	}
}

// Build places every node and region once and indexes them. Duplicate ids
// keep their first occurrence. A placement failure aborts the build.
func Build(ds Dataset, place Placement, placer Placer) (*Model, error) {
	defer metrics.Timer(metrics.ModelBuild)()

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}

	m := &Model{
		nodes:     make([]Node, 0, len(ds.Nodes)),
		nodeIdx:   make(map[string]int, len(ds.Nodes)),
		regions:   make([]Region, 0, len(ds.Regions)),
		regionIdx: make(map[string]int, len(ds.Regions)),
		placement: place,
		dangling:  make(map[string][]string),
	}

	nodeMin := place.SphereRadius + place.NodeMinOffset
	nodeMax := place.SphereRadius + place.NodeMaxOffset
	for _, rec := range ds.Nodes {
		id := strings.TrimSpace(rec.ID)
		if _, dup := m.nodeIdx[id]; dup {
			debug.Log("model: duplicate node %q ignored", id)
			continue
		}
		pos, err := placer.SampleShell(nodeMin, nodeMax)
		if err != nil {
			return nil, fmt.Errorf("placing node %q: %w", id, err)
		}
		m.nodeIdx[id] = len(m.nodes)
		m.nodes = append(m.nodes, Node{ID: id, Position: pos})
	}

	regionRadius := place.SphereRadius - place.RegionInset
	for _, rec := range ds.Regions {
		id := strings.TrimSpace(rec.ID)
		if _, dup := m.regionIdx[id]; dup {
			debug.Log("model: duplicate region %q ignored", id)
			continue
		}
		pos, err := placer.SampleShell(regionRadius, regionRadius)
		if err != nil {
			return nil, fmt.Errorf("placing region %q: %w", id, err)
		}
		members := uniqueSorted(rec.Members)
		for _, nid := range members {
			if !m.HasNode(nid) {
				m.dangling[id] = append(m.dangling[id], nid)
			}
		}
		m.regionIdx[id] = len(m.regions)
		m.regions = append(m.regions, Region{ID: id, Position: pos, Members: members})
	}

	debug.LogIf(len(m.dangling) > 0, "model: %d regions reference unknown satellites", len(m.dangling))
	return m, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
