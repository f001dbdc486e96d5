package tui

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/kanboard/internal/dnd"
)

// pointerAt converts a terminal cell to the pointer position at its center.
func pointerAt(x, y int) dnd.Point {
	return dnd.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

// handleMouseClick arms the pointer sensor over a card, or selects the
// column under the pointer.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	if mouse.Button != tea.MouseLeft {
		return m, nil
	}
	if m.mode == modeCardInfo {
		m.mode = modeNone
		m.infoCardID = ""
		m.status = "ready"
		return m, nil
	}
	if m.mode != modeNone || !m.loaded {
		return m, nil
	}
	if m.session.Dragging() {
		return m, nil
	}

	layout := m.layout()
	column, card, rect, onCard := m.cardAt(layout, mouse.X, mouse.Y)
	if column.id == "" {
		return m, nil
	}
	m.selectedColumnIdx = column.index
	if !onCard {
		m.selectedCardIdx = clamp(m.selectedCardIdx, 0, max(0, len(m.board.Columns[column.index].Cards)-1))
		return m, nil
	}
	m.selectedCardIdx = card.index
	if m.drag.Enabled {
		m.sensor.Press(card.id, pointerAt(mouse.X, mouse.Y))
		m.dragOrigin = rect
	}
	return m, nil
}

// handleMouseMotion activates a drag once the sensor allows it and feeds
// pointer samples to the session.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.sensor.Armed() {
		return m, nil
	}
	mouse := msg.Mouse()
	pointer := pointerAt(mouse.X, mouse.Y)
	if !m.session.Dragging() {
		if !m.sensor.Move(pointer) {
			return m, nil
		}
		if !m.session.Start(m.board, m.sensor.CardID()) {
			m.sensor.Reset()
			return m, nil
		}
		if card, _, ok := m.activeCard(); ok {
			m.status = "dragging " + card.Title
		}
	}
	m.dragPointer = pointer
	m.overPointer(pointer)
	return m, nil
}

// overPointer reports one pointer sample to the session.
func (m *Model) overPointer(pointer dnd.Point) {
	dx, dy := m.sensor.Delta(pointer)
	layout := m.layout()
	m.session.Over(dnd.Sample{
		Pointer:    &pointer,
		ActiveRect: m.dragOrigin.Translate(dx, dy),
		HasRect:    !m.dragOrigin.Empty(),
		Droppables: m.droppables(layout),
	})
}

// handleMouseRelease commits the drag, or ends a plain click.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if !m.session.Dragging() {
		m.sensor.Release()
		m.sensor.Reset()
		return m, nil
	}
	mouse := msg.Mouse()
	pointer := pointerAt(mouse.X, mouse.Y)
	if pointer != m.dragPointer {
		m.overPointer(pointer)
	}
	m.sensor.Reset()
	m.dragOrigin = emptyRect
	m.dragPointer = dnd.Point{}

	next, move, ok := m.session.Drop(m.board, m.now())
	if !ok {
		m.status = "drop cancelled"
		return m, nil
	}
	m.board = next
	m.focusCard(move.CardID)
	m.status = "saving..."
	return m, m.persistMove(move)
}

// cancelDrag abandons any pending or active drag.
func (m *Model) cancelDrag() bool {
	active := m.session.Dragging()
	m.session.Cancel()
	m.sensor.Reset()
	m.dragOrigin = emptyRect
	m.dragPointer = dnd.Point{}
	return active
}

// persistMove stores a move that was already applied to the local board.
// The board is reloaded either way so a failed save reverts the view.
func (m Model) persistMove(move dnd.Move) tea.Cmd {
	return func() tea.Msg {
		_, err := m.svc.MoveCard(context.Background(), move.CardID, move.FromColumnID, move.ToColumnID, move.Index)
		if err != nil {
			return actionMsg{err: fmt.Errorf("move card: %w", err), reload: true}
		}
		return actionMsg{status: "moved card", reload: true, focusCardID: move.CardID}
	}
}

// handleMouseWheel scrolls the column under the pointer. A drag in progress
// is resampled by the next motion, once the scrolled frame has been drawn.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || !m.loaded {
		return m, nil
	}
	mouse := msg.Mouse()
	layout := m.layout()
	column, ok := m.columnAt(layout, mouse.X, mouse.Y)
	if !ok {
		return m, nil
	}
	delta := 0
	switch mouse.Button {
	case tea.MouseWheelUp:
		delta = -1
	case tea.MouseWheelDown:
		delta = 1
	default:
		return m, nil
	}
	cards := len(m.board.Columns[column.index].Cards)
	maxScroll := max(0, cards-visibleCardSlots(layout.innerHeight))
	m.scroll[column.id] = clamp(column.scroll+delta, 0, maxScroll)
	return m, nil
}

var emptyRect = dnd.Rect{}
