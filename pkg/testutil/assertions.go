package testutil

import (
	"reflect"
	"sort"
	"testing"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/selection"
)

// AssertHighlighted verifies the highlight set exactly.
func AssertHighlighted(t testing.TB, st selection.State, ids ...string) {
	t.Helper()
	want := append([]string{}, ids...)
	sort.Strings(want)
	got := append([]string{}, st.Highlighted...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("highlighted = %v, want %v", got, want)
	}
}

// AssertLabels verifies the labelled ids exactly, in any order.
func AssertLabels(t testing.TB, st selection.State, ids ...string) {
	t.Helper()
	want := append([]string{}, ids...)
	sort.Strings(want)
	got := make([]string, 0, len(st.Labels))
	for _, l := range st.Labels {
		got = append(got, l.NodeID)
	}
	sort.Strings(got)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("labels = %v, want %v", got, want)
	}
}

// AssertIdle verifies that nothing is selected, highlighted or labelled.
func AssertIdle(t testing.TB, st selection.State) {
	t.Helper()
	if st.Active || st.ActiveRegionID != "" {
		t.Errorf("expected idle state, active region %q", st.ActiveRegionID)
	}
	if len(st.Highlighted)+len(st.Connectors)+len(st.Labels) != 0 {
		t.Errorf("idle state carries %d highlighted, %d connectors, %d labels",
			len(st.Highlighted), len(st.Connectors), len(st.Labels))
	}
}

// AssertConnectorsOutside verifies every connector sample lies outside the
// sphere of the given radius.
func AssertConnectorsOutside(t testing.TB, st selection.State, radius float64) {
	t.Helper()
	for _, c := range st.Connectors {
		for i, p := range c.Path {
			if r3.Norm(p) < radius {
				t.Errorf("connector %s sample %d at radius %.3f, inside %.3f", c.NodeID, i, r3.Norm(p), radius)
				return
			}
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t testing.TB, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}
