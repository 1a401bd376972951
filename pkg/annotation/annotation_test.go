package annotation

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestReplace_DropsStaleLabels(t *testing.T) {
	m := NewManager(0)
	m.Replace([]Entry{
		{NodeID: "A", Position: r3.Vec{X: 1}},
		{NodeID: "B", Position: r3.Vec{Y: 1}},
		{NodeID: "X", Position: r3.Vec{Z: 1}},
	})
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}

	got := m.Replace([]Entry{{NodeID: "C", Position: r3.Vec{X: 2}}})
	if len(got) != 1 || got[0].NodeID != "C" {
		t.Fatalf("Replace = %+v, want only C", got)
	}
	for _, l := range m.Labels() {
		if l.NodeID != "C" {
			t.Errorf("stale label %q survived Replace", l.NodeID)
		}
	}
}

func TestReplace_TextAndPosition(t *testing.T) {
	m := NewManager(0)
	pos := r3.Vec{X: 3, Y: 4, Z: 5}
	labels := m.Replace([]Entry{
		{NodeID: "SAT-7", Position: pos},
		{NodeID: "Lagos", Text: "Lagos (3)", Position: pos},
	})
	if labels[0].Text != "SAT-7" {
		t.Errorf("derived text = %q, want id", labels[0].Text)
	}
	if labels[1].Text != "Lagos (3)" {
		t.Errorf("explicit text = %q", labels[1].Text)
	}
	for _, l := range labels {
		if l.Position != pos {
			t.Errorf("label %s position = %v, want %v", l.NodeID, l.Position, pos)
		}
	}
}

func TestReplace_DuplicateIDsCollapse(t *testing.T) {
	m := NewManager(0)
	labels := m.Replace([]Entry{
		{NodeID: "A", Text: "first"},
		{NodeID: "A", Text: "second"},
	})
	if len(labels) != 1 || labels[0].Text != "first" {
		t.Errorf("labels = %+v, want single first entry", labels)
	}
}

func TestReplace_EmptyClears(t *testing.T) {
	m := NewManager(0)
	m.Replace([]Entry{{NodeID: "A"}})
	m.Replace(nil)
	if m.Len() != 0 {
		t.Errorf("Len = %d after empty Replace", m.Len())
	}
}

func TestLabels_ReturnsCopy(t *testing.T) {
	m := NewManager(0)
	m.Replace([]Entry{{NodeID: "A"}})
	out := m.Labels()
	out[0].Text = "mutated"
	if m.Labels()[0].Text != "A" {
		t.Error("Labels exposed internal slice")
	}
}

func TestClear(t *testing.T) {
	m := NewManager(0)
	m.Replace([]Entry{{NodeID: "A"}, {NodeID: "B"}})
	m.Clear()
	if m.Len() != 0 || len(m.Labels()) != 0 {
		t.Error("Clear left labels behind")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
	}{
		{"short", 10},
		{"a-very-long-coverage-area-name", 10},
		{"東京都千代田区丸の内", 8},
		{"abc", 1},
		{"abc", 0},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.width)
		if w := runewidth.StringWidth(got); w > tt.width {
			t.Errorf("Truncate(%q, %d) = %q (width %d)", tt.in, tt.width, got, w)
		}
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate kept-short = %q", got)
	}
}
