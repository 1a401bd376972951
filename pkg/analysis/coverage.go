// Package analysis computes scene parameters for a placed coverage model:
// counts, dangling references, coverage depth per satellite and the clusters
// of areas that share satellites.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vanderheijden86/orbview/pkg/model"
)

// Scene is the read side of a model that Summarize needs. *model.Model
// implements it.
type Scene interface {
	AllNodes() []model.Node
	AllRegions() []model.Region
	HasNode(id string) bool
	DanglingRefs() map[string][]string
}

// Cluster is a connected group of coverage areas and the satellites they
// share.
type Cluster struct {
	Regions []string `json:"areas"`
	Nodes   []string `json:"satellites"`
}

// Summary holds the scene parameters.
type Summary struct {
	NodeCount   int `json:"satellite_count"`
	RegionCount int `json:"area_count"`
	// Memberships counts region/node pairs that resolve to a known satellite.
	Memberships int `json:"memberships"`

	Dangling   map[string][]string `json:"dangling,omitempty"`
	Uncovered  []string            `json:"uncovered_satellites,omitempty"` // in no area
	EmptyAreas []string            `json:"empty_areas,omitempty"`          // no known satellite

	// Coverage is the number of areas each satellite belongs to.
	Coverage     map[string]int `json:"coverage"`
	MaxCoverage  int            `json:"max_coverage"`
	MeanCoverage float64        `json:"mean_coverage"`

	Clusters []Cluster `json:"clusters"`
	// Bridges are satellites ranked by betweenness in the coverage graph,
	// highest first. Only satellites with a non-zero score are listed.
	Bridges []string `json:"bridges,omitempty"`
}

// coverageGraph is the bipartite area/satellite graph with its id mapping.
type coverageGraph struct {
	g      *simple.UndirectedGraph
	ids    map[int64]string
	region map[int64]bool
}

func buildCoverageGraph(s Scene) coverageGraph {
	cg := coverageGraph{
		g:      simple.NewUndirectedGraph(),
		ids:    make(map[int64]string),
		region: make(map[int64]bool),
	}
	nodeIdx := make(map[string]int64)
	var next int64
	for _, n := range s.AllNodes() {
		cg.g.AddNode(simple.Node(next))
		cg.ids[next] = n.ID
		nodeIdx[n.ID] = next
		next++
	}
	for _, r := range s.AllRegions() {
		rid := next
		next++
		cg.g.AddNode(simple.Node(rid))
		cg.ids[rid] = r.ID
		cg.region[rid] = true
		for _, m := range r.Members {
			if nid, ok := nodeIdx[m]; ok {
				cg.g.SetEdge(simple.Edge{F: simple.Node(rid), T: simple.Node(nid)})
			}
		}
	}
	return cg
}

// Summarize computes the scene parameters of s.
func Summarize(s Scene) Summary {
	nodes := s.AllNodes()
	regions := s.AllRegions()

	sum := Summary{
		NodeCount:   len(nodes),
		RegionCount: len(regions),
		Dangling:    s.DanglingRefs(),
		Coverage:    make(map[string]int, len(nodes)),
	}
	if len(sum.Dangling) == 0 {
		sum.Dangling = nil
	}

	for _, n := range nodes {
		sum.Coverage[n.ID] = 0
	}
	for _, r := range regions {
		known := 0
		for _, m := range r.Members {
			if s.HasNode(m) {
				sum.Coverage[m]++
				known++
			}
		}
		sum.Memberships += known
		if known == 0 {
			sum.EmptyAreas = append(sum.EmptyAreas, r.ID)
		}
	}

	depths := make([]float64, 0, len(nodes))
	for _, n := range nodes {
		c := sum.Coverage[n.ID]
		if c == 0 {
			sum.Uncovered = append(sum.Uncovered, n.ID)
		}
		sum.MaxCoverage = max(sum.MaxCoverage, c)
		depths = append(depths, float64(c))
	}
	if len(depths) > 0 {
		sum.MeanCoverage = stat.Mean(depths, nil)
	}
	sort.Strings(sum.Uncovered)
	sort.Strings(sum.EmptyAreas)

	cg := buildCoverageGraph(s)
	sum.Clusters = clusters(cg)
	sum.Bridges = bridges(cg)
	return sum
}

// clusters returns the connected components that contain at least one area,
// largest first.
func clusters(cg coverageGraph) []Cluster {
	var out []Cluster
	for _, comp := range topo.ConnectedComponents(cg.g) {
		var c Cluster
		for _, n := range comp {
			id := cg.ids[n.ID()]
			if cg.region[n.ID()] {
				c.Regions = append(c.Regions, id)
			} else {
				c.Nodes = append(c.Nodes, id)
			}
		}
		if len(c.Regions) == 0 {
			continue
		}
		sort.Strings(c.Regions)
		sort.Strings(c.Nodes)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		si := len(out[i].Regions) + len(out[i].Nodes)
		sj := len(out[j].Regions) + len(out[j].Nodes)
		if si != sj {
			return si > sj
		}
		return out[i].Regions[0] < out[j].Regions[0]
	})
	return out
}

func bridges(cg coverageGraph) []string {
	scores := network.Betweenness(cg.g)
	type scored struct {
		id    string
		score float64
	}
	var ranked []scored
	for nid, score := range scores {
		if cg.region[nid] || score <= 0 {
			continue
		}
		ranked = append(ranked, scored{cg.ids[nid], score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.id
	}
	return out
}

// Uniformity tests whether points are spread uniformly over directions from
// the origin. Equal-width bands of cos(polar angle) carry equal area on a
// sphere, so a chi-square test over bands gives the p-value returned.
func Uniformity(points []r3.Vec, bins int) (chi2, p float64) {
	if bins < 2 || len(points) == 0 {
		return 0, 1
	}
	obs := make([]float64, bins)
	for _, pt := range points {
		n := r3.Norm(pt)
		if n == 0 {
			continue
		}
		u := (pt.Z/n + 1) / 2
		b := int(math.Floor(u * float64(bins)))
		obs[min(max(b, 0), bins-1)]++
	}
	var total float64
	for _, o := range obs {
		total += o
	}
	exp := make([]float64, bins)
	for i := range exp {
		exp[i] = total / float64(bins)
	}
	chi2 = stat.ChiSquare(obs, exp)
	return chi2, distuv.ChiSquared{K: float64(bins - 1)}.Survival(chi2)
}

// NodePositions returns the positions of every satellite in s.
func NodePositions(s Scene) []r3.Vec {
	nodes := s.AllNodes()
	out := make([]r3.Vec, len(nodes))
	for i, n := range nodes {
		out[i] = n.Position
	}
	return out
}
