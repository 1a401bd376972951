// Package annotation manages the text labels attached to highlighted
// satellites and the selected coverage area. Labels are replaced wholesale;
// turning them toward the camera is left to the renderer.
package annotation

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/metrics"
)

// DefaultMaxWidth is the label width, in terminal cells, before truncation.
const DefaultMaxWidth = 24

const ellipsis = "…"

// Entry requests a label for an entity.
type Entry struct {
	NodeID   string
	Text     string // optional; derived from NodeID when empty
	Position r3.Vec
}

// Label is a placed annotation. Position always equals the entity position.
type Label struct {
	NodeID   string
	Text     string
	Position r3.Vec
}

// Manager owns the current label set. It is not safe for concurrent use.
type Manager struct {
	maxWidth int
	labels   []Label
}

// NewManager returns a Manager truncating text to maxWidth cells.
// Non-positive widths use DefaultMaxWidth.
func NewManager(maxWidth int) *Manager {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Manager{maxWidth: maxWidth}
}

// Replace drops every existing label, then creates one label per entry in
// order. Repeated ids keep their first entry. The returned slice is a copy.
func (m *Manager) Replace(entries []Entry) []Label {
	defer metrics.Timer(metrics.LabelReplace)()

	m.labels = nil
	next := make([]Label, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.NodeID] {
			continue
		}
		seen[e.NodeID] = true
		text := e.Text
		if strings.TrimSpace(text) == "" {
			text = e.NodeID
		}
		next = append(next, Label{
			NodeID:   e.NodeID,
			Text:     Truncate(text, m.maxWidth),
			Position: e.Position,
		})
	}
	m.labels = next
	return m.Labels()
}

// Clear removes every label.
func (m *Manager) Clear() {
	m.labels = nil
}

// Labels returns a copy of the current labels.
func (m *Manager) Labels() []Label {
	return append([]Label(nil), m.labels...)
}

// Len returns the number of live labels.
func (m *Manager) Len() int {
	return len(m.labels)
}

// Truncate shortens s to maxWidth display cells, ending with an ellipsis
// when cut. Wide runes count double.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if runewidth.StringWidth(ellipsis) > maxWidth {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, ellipsis)
}
