package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/orbview/pkg/model"
)

// DatasetDiff represents differences between two datasets, typically the one
// on screen and the one just reloaded.
type DatasetDiff struct {
	SourceA string
	SourceB string
	// AddedNodes are satellites present in B but not in A
	AddedNodes     []string
	RemovedNodes   []string
	AddedRegions   []string
	RemovedRegions []string
	// MembershipChanged lists areas present in both whose satellites differ
	MembershipChanged []MembershipDifference
}

// MembershipDifference is the membership change of one coverage area.
type MembershipDifference struct {
	ID      string   `json:"id"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// HasChanges returns true if the datasets differ
func (d DatasetDiff) HasChanges() bool {
	return len(d.AddedNodes)+len(d.RemovedNodes)+len(d.AddedRegions)+len(d.RemovedRegions)+len(d.MembershipChanged) > 0
}

// Summary returns a human-readable summary of the differences
func (d DatasetDiff) Summary() string {
	if !d.HasChanges() {
		return "Datasets match"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Changes between %s and %s:\n", d.SourceA, d.SourceB)
	writeIDs(&b, "satellites added", d.AddedNodes)
	writeIDs(&b, "satellites removed", d.RemovedNodes)
	writeIDs(&b, "coverage areas added", d.AddedRegions)
	writeIDs(&b, "coverage areas removed", d.RemovedRegions)
	if len(d.MembershipChanged) > 0 {
		fmt.Fprintf(&b, "  - %d coverage areas changed membership\n", len(d.MembershipChanged))
		if len(d.MembershipChanged) <= 5 {
			for _, m := range d.MembershipChanged {
				fmt.Fprintf(&b, "    - %s: +%d -%d\n", m.ID, len(m.Added), len(m.Removed))
			}
		}
	}
	return b.String()
}

func writeIDs(b *strings.Builder, what string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "  - %d %s\n", len(ids), what)
	if len(ids) <= 5 {
		for _, id := range ids {
			fmt.Fprintf(b, "    - %s\n", id)
		}
	}
}

// DiffDatasets compares two datasets. All id lists come back sorted.
func DiffDatasets(a, b model.Dataset, sourceA, sourceB string) DatasetDiff {
	diff := DatasetDiff{SourceA: sourceA, SourceB: sourceB}

	nodesA := make(map[string]struct{}, len(a.Nodes))
	for _, n := range a.Nodes {
		nodesA[n.ID] = struct{}{}
	}
	nodesB := make(map[string]struct{}, len(b.Nodes))
	for _, n := range b.Nodes {
		nodesB[n.ID] = struct{}{}
	}
	diff.RemovedNodes = missingFrom(nodesA, nodesB)
	diff.AddedNodes = missingFrom(nodesB, nodesA)

	regionsA := regionMap(a.Regions)
	regionsB := regionMap(b.Regions)
	diff.RemovedRegions = missingFrom(regionsA, regionsB)
	diff.AddedRegions = missingFrom(regionsB, regionsA)

	for id, membersA := range regionsA {
		membersB, ok := regionsB[id]
		if !ok {
			continue
		}
		removed := missingFrom(membersA, membersB)
		added := missingFrom(membersB, membersA)
		if len(added)+len(removed) > 0 {
			diff.MembershipChanged = append(diff.MembershipChanged, MembershipDifference{ID: id, Added: added, Removed: removed})
		}
	}
	sort.Slice(diff.MembershipChanged, func(i, j int) bool {
		return diff.MembershipChanged[i].ID < diff.MembershipChanged[j].ID
	})
	return diff
}

func regionMap(regions []model.RegionRecord) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(regions))
	for _, r := range regions {
		set := make(map[string]struct{}, len(r.Members))
		for _, m := range r.Members {
			set[m] = struct{}{}
		}
		out[r.ID] = set
	}
	return out
}

// missingFrom returns the sorted keys of a that are absent from b.
func missingFrom[V any](a, b map[string]V) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource) (*DatasetDiff, error) {
	a, err := loadQuiet(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}
	b, err := loadQuiet(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}
	diff := DiffDatasets(a, b, sourceA.Path, sourceB.Path)
	return &diff, nil
}
