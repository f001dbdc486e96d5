package tui

import (
	"github.com/evanschultz/kanboard/internal/dnd"
	zone "github.com/lrstanley/bubblezone"
)

// boardZones names the mouse zones marked around columns and cards while
// rendering. Bounds come from the last frame the manager scanned.
type boardZones struct {
	manager *zone.Manager
	prefix  string
}

// newBoardZones binds a zone prefix to manager so several boards can share one.
func newBoardZones(manager *zone.Manager) boardZones {
	if manager == nil {
		manager = zone.New()
	}
	return boardZones{manager: manager, prefix: manager.NewPrefix()}
}

func (z boardZones) column(columnID string) string {
	return z.prefix + "column:" + columnID
}

func (z boardZones) card(cardID string) string {
	return z.prefix + "card:" + cardID
}

// mark wraps rendered text in the markers of zone id.
func (z boardZones) mark(id, rendered string) string {
	if z.manager == nil {
		return rendered
	}
	return z.manager.Mark(id, rendered)
}

// scan strips zone markers from frame and records their positions.
func (z boardZones) scan(frame string) string {
	if z.manager == nil {
		return frame
	}
	return z.manager.Scan(frame)
}

// rect returns the cell bounds of zone id. Zone end coordinates are inclusive.
func (z boardZones) rect(id string) (dnd.Rect, bool) {
	if z.manager == nil {
		return dnd.Rect{}, false
	}
	info := z.manager.Get(id)
	if info == nil || info.IsZero() || info.EndX < info.StartX || info.EndY < info.StartY {
		return dnd.Rect{}, false
	}
	return dnd.Rect{
		Left:   float64(info.StartX),
		Top:    float64(info.StartY),
		Width:  float64(info.EndX - info.StartX + 1),
		Height: float64(info.EndY - info.StartY + 1),
	}, true
}

// columnRect returns the rendered bounds of a visible column.
func (m Model) columnRect(column columnLayout) (dnd.Rect, bool) {
	return m.zones.rect(m.zones.column(column.id))
}

// cardRect returns the rendered bounds of a visible card. Cards the layout
// scrolled out of view have no rect even if an older frame marked them.
func (m Model) cardRect(layout boardLayout, cardID string) (dnd.Rect, bool) {
	for _, column := range layout.columns {
		for _, card := range column.cards {
			if card.id == cardID {
				if !card.visible {
					return dnd.Rect{}, false
				}
				return m.zones.rect(m.zones.card(cardID))
			}
		}
	}
	return dnd.Rect{}, false
}

// droppables publishes every visible column and card with its rendered bounds.
func (m Model) droppables(layout boardLayout) []dnd.Droppable {
	out := make([]dnd.Droppable, 0, len(layout.columns)*4)
	for _, column := range layout.columns {
		rect, ok := m.columnRect(column)
		out = append(out, dnd.Droppable{
			Kind:     dnd.KindColumn,
			ColumnID: column.id,
			Rect:     rect,
			HasRect:  ok,
		})
		for _, card := range column.cards {
			d := dnd.Droppable{Kind: dnd.KindCard, ColumnID: column.id, CardID: card.id}
			if card.visible {
				d.Rect, d.HasRect = m.zones.rect(m.zones.card(card.id))
			}
			out = append(out, d)
		}
	}
	return out
}

// columnAt returns the visible column under cell (x, y).
func (m Model) columnAt(layout boardLayout, x, y int) (columnLayout, bool) {
	p := pointerAt(x, y)
	for _, column := range layout.columns {
		if rect, ok := m.columnRect(column); ok && rect.Contains(p) {
			return column, true
		}
	}
	return columnLayout{}, false
}

// cardAt returns the visible card under cell (x, y), its column, and its bounds.
func (m Model) cardAt(layout boardLayout, x, y int) (columnLayout, cardLayout, dnd.Rect, bool) {
	column, ok := m.columnAt(layout, x, y)
	if !ok {
		return columnLayout{}, cardLayout{}, dnd.Rect{}, false
	}
	p := pointerAt(x, y)
	for _, card := range column.cards {
		if !card.visible {
			continue
		}
		if rect, ok := m.zones.rect(m.zones.card(card.id)); ok && rect.Contains(p) {
			return column, card, rect, true
		}
	}
	return column, cardLayout{}, dnd.Rect{}, false
}
