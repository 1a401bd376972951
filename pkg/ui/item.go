package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/orbview/pkg/model"
)

// AreaItem wraps a coverage area to implement list.Item.
type AreaItem struct {
	Region  model.Region
	Known   int  // members present in the scene
	Missing int  // members referencing unknown satellites
	Active  bool // currently selected
}

func newAreaItem(r model.Region, scene *model.Model, active string) AreaItem {
	item := AreaItem{Region: r, Active: r.ID == active}
	for _, id := range r.Members {
		if scene.HasNode(id) {
			item.Known++
		} else {
			item.Missing++
		}
	}
	return item
}

func (i AreaItem) Title() string {
	return i.Region.ID
}

func (i AreaItem) Description() string {
	if i.Missing > 0 {
		return fmt.Sprintf("%d satellites (%d missing)", i.Known, i.Missing)
	}
	return fmt.Sprintf("%d satellites", i.Known)
}

// FilterValue matches on the area id and its member ids.
func (i AreaItem) FilterValue() string {
	var sb strings.Builder
	sb.WriteString(i.Region.ID)
	for _, m := range i.Region.Members {
		sb.WriteString(" ")
		sb.WriteString(m)
	}
	return sb.String()
}
