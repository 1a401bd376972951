package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/orbview/pkg/version"
)

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.list.View(),
		strings.Repeat(" ", SpaceSM),
		m.renderDetail(m.width-m.listWidth()-SpaceSM),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderFooter())
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.Header.Render("orbview " + version.Version)
	counts := t.SecondaryText.Render(fmt.Sprintf(" %d satellites · %d areas · %d clusters",
		m.summary.NodeCount, m.summary.RegionCount, len(m.summary.Clusters)))
	return title + counts
}

func (m Model) renderDetail(width int) string {
	t := m.theme
	if width < 20 {
		width = 20
	}
	var sb strings.Builder

	st := m.state
	if !st.Active {
		sb.WriteString(t.MutedText.Render("No coverage area selected"))
		sb.WriteString("\n\n")
		sb.WriteString(t.SecondaryText.Render("enter: select · ?: help"))
		return t.Panel.Width(width - 2).Render(sb.String())
	}

	sb.WriteString(t.AreaText.Render("● " + st.ActiveRegionID))
	sb.WriteString("\n")
	if r, err := m.scene.Region(st.ActiveRegionID); err == nil {
		sb.WriteString(t.MutedText.Render(fmt.Sprintf("at (%.1f, %.1f, %.1f)", r.Position.X, r.Position.Y, r.Position.Z)))
		sb.WriteString("\n")
	}

	ps := m.anim.State()
	lo, hi := m.anim.Bounds()
	sb.WriteString(fmt.Sprintf("pulse %s %.2f\n", t.AreaText.Render(pulseBar(ps.Scale, lo, hi, 12)), ps.Scale))
	sb.WriteString("\n")

	sb.WriteString(t.PrimaryBold.Render(fmt.Sprintf("Covering satellites (%d)", len(st.Highlighted))))
	sb.WriteString("\n")
	labels := make(map[string]string, len(st.Labels))
	for _, l := range st.Labels {
		labels[l.NodeID] = l.Text
	}
	for _, id := range st.Highlighted {
		text := labels[id]
		if text == "" {
			text = id
		}
		samples := 0
		if c, ok := st.Connector(id); ok {
			samples = len(c.Path)
		}
		line := fmt.Sprintf("%s %s %s",
			t.CoveringText.Render("●"),
			t.Base.Render(padRight(truncateRunesHelper(text, width-16, "…"), width-16)),
			t.ConnectorText.Render(fmt.Sprintf("%3d pts", samples)))
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if len(st.Highlighted) == 0 {
		sb.WriteString(t.MutedText.Render("  none"))
		sb.WriteString("\n")
	}

	if missing := m.summary.Dangling[st.ActiveRegionID]; len(missing) > 0 {
		sb.WriteString("\n")
		sb.WriteString(t.WarningText.Render(fmt.Sprintf("Unknown satellites: %s", strings.Join(missing, ", "))))
		sb.WriteString("\n")
	}

	return t.Panel.Width(width - 2).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderFooter() string {
	t := m.theme
	status := m.status
	switch {
	case status == "":
		status = t.MutedText.Render("ready")
	case m.statusIsError:
		status = t.ErrorText.Render(status)
	default:
		status = t.SuccessText.Render(status)
	}
	if !m.lastReload.IsZero() {
		status += t.MutedText.Render(" · reloaded " + FormatTimeRel(m.lastReload))
	}
	if m.watcher != nil && m.watcher.IsPolling() {
		status += t.MutedText.Render(" · polling")
	}
	hints := t.SecondaryText.Render("↑/↓ move · enter select · esc clear · / filter · s snapshot · r reload · q quit")
	return status + "\n" + hints
}

func (m Model) renderHelp() string {
	t := m.theme
	rows := [][2]string{
		{"↑/k ↓/j", "move through coverage areas"},
		{"enter", "select the area under the cursor"},
		{"esc", "clear the filter, then the selection"},
		{"/", "filter areas by id or satellite"},
		{"s", "write an SVG snapshot"},
		{"r", "reload the dataset"},
		{"q", "quit"},
	}
	var sb strings.Builder
	sb.WriteString(t.PrimaryBold.Render("Keys"))
	sb.WriteString("\n\n")
	for _, r := range rows {
		sb.WriteString(t.InfoText.Render(padRight(r[0], 10)))
		sb.WriteString(" ")
		sb.WriteString(r[1])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(t.MutedText.Render("press any key to close"))
	return t.Panel.Render(sb.String())
}
