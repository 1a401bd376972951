package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AreaDelegate renders coverage areas in the list.
type AreaDelegate struct {
	Theme Theme
}

func (d AreaDelegate) Height() int {
	return 1
}

func (d AreaDelegate) Spacing() int {
	return 0
}

func (d AreaDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render lays a row out as: [cursor] [marker] [id...] [count].
func (d AreaDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(AreaItem)
	if !ok {
		return
	}

	t := d.Theme
	width := m.Width()
	if width <= 0 {
		width = 40
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	isSelected := index == m.Index()

	cursor := "  "
	if isSelected {
		cursor = t.PrimaryBold.Render("▸ ")
	}

	marker := t.AreaText.Render("○")
	if i.Active {
		marker = t.AreaText.Render("●")
	}

	count := fmt.Sprintf("%3d", i.Known)
	if i.Missing > 0 {
		count += t.WarningText.Render(fmt.Sprintf(" +%d?", i.Missing))
	}
	right := t.MutedText.Render(count)

	idWidth := width - lipgloss.Width(cursor) - lipgloss.Width(marker) - lipgloss.Width(right) - 2
	id := padRight(truncateRunesHelper(i.Region.ID, idWidth, "…"), idWidth)
	if i.Active {
		id = t.AreaText.Render(id)
	} else {
		id = t.Base.Render(id)
	}

	row := cursor + marker + " " + id + " " + right
	if isSelected {
		row = t.Renderer.NewStyle().Background(t.Highlight).Render(row)
	}
	fmt.Fprint(w, row)
}
