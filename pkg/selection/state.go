package selection

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/annotation"
)

// Connector is the path from the selected region to one highlighted node.
type Connector struct {
	NodeID string
	Path   []r3.Vec
}

// State is what the renderer draws. The zero value is the idle state.
type State struct {
	ActiveRegionID  string
	Active          bool
	Highlighted     []string // sorted
	Connectors      []Connector
	Labels          []annotation.Label
	PulseGeneration uint64
}

// IsHighlighted reports whether node id is in the highlight set.
func (s State) IsHighlighted(id string) bool {
	i := sort.SearchStrings(s.Highlighted, id)
	return i < len(s.Highlighted) && s.Highlighted[i] == id
}

// Connector returns the connector for node id, if any.
func (s State) Connector(id string) (Connector, bool) {
	for _, c := range s.Connectors {
		if c.NodeID == id {
			return c, true
		}
	}
	return Connector{}, false
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Highlighted = append([]string(nil), s.Highlighted...)
	out.Labels = append([]annotation.Label(nil), s.Labels...)
	if s.Connectors != nil {
		out.Connectors = make([]Connector, len(s.Connectors))
		for i, c := range s.Connectors {
			out.Connectors[i] = Connector{NodeID: c.NodeID, Path: append([]r3.Vec(nil), c.Path...)}
		}
	}
	return out
}

// EventKind distinguishes transitions.
type EventKind int

const (
	Selected EventKind = iota
	Deselected
)

func (k EventKind) String() string {
	if k == Deselected {
		return "deselected"
	}
	return "selected"
}

// Event describes a completed transition. Nodes in Left go back to their
// default look; nodes in Entered become highlighted.
type Event struct {
	Kind             EventKind
	RegionID         string
	PreviousRegionID string
	Entered          []string
	Left             []string
}

// diffSorted returns the elements of a missing from b and of b missing from
// a. Both inputs must be sorted.
func diffSorted(a, b []string) (onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return onlyA, onlyB
}
