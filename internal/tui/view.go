package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"
	"github.com/evanschultz/kanboard/internal/dnd"
	"github.com/evanschultz/kanboard/internal/domain"
)

var (
	accentColor   = lipgloss.Color("62")
	mutedColor    = lipgloss.Color("241")
	dimColor      = lipgloss.Color("239")
	selectedColor = lipgloss.Color("212")
	warnColor     = lipgloss.Color("203")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle   = lipgloss.NewStyle().Foreground(dimColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	cardStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	ghostStyle    = lipgloss.NewStyle().Foreground(dimColor).Faint(true)
	metaStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	warnStyle     = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	dropStyle     = lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	dragStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

var priorityColors = map[domain.Priority]color.Color{
	domain.PriorityHigh:   lipgloss.Color("203"),
	domain.PriorityMedium: lipgloss.Color("214"),
	domain.PriorityLow:    lipgloss.Color("244"),
}

// View renders the board.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render returns the full frame as text.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready || !m.loaded {
		return "loading..."
	}

	header := titleStyle.Render("kanboard") + "  " + fmt.Sprintf("%d cards", m.board.CardCount())
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	layout := m.layout()
	if hidden := len(m.board.Columns) - len(layout.columns); hidden > 0 && len(layout.columns) > 0 {
		first := layout.columns[0].index + 1
		last := layout.columns[len(layout.columns)-1].index + 1
		header += statusStyle.Render(fmt.Sprintf("  columns %d-%d of %d", first, last, len(m.board.Columns)))
	}

	body := m.renderBoard(layout)
	content := header + "\n\n" + body
	helpLine := m.renderHelp()
	statusLine := statusStyle.Render(truncate(m.statusText(), max(1, m.width)))
	if m.height > 0 {
		contentHeight := max(0, m.height-lipgloss.Height(helpLine)-1)
		content = fitLines(content, contentHeight)
	}
	frame := m.zones.scan(content + "\n" + statusLine + "\n" + helpLine)

	width := max(1, m.width)
	height := lipgloss.Height(frame)
	if m.height > 0 {
		height = m.height
	}
	if preview, x, y, ok := m.dragPreview(layout); ok {
		frame = composeAt(frame, preview, x, y, width, height)
	}
	if overlay := m.renderModeOverlay(max(24, m.width-8)); overlay != "" {
		frame = overlayOnContent(frame, overlay, width, height)
	}
	return frame
}

// renderHelp renders the help bar.
func (m Model) renderHelp() string {
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	return lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
}

// statusText describes the drag in progress, or the last status.
func (m Model) statusText() string {
	card, _, ok := m.activeCard()
	if !ok {
		return m.status
	}
	drop := m.session.Pending()
	if drop.Empty() {
		return "dragging " + card.Title + " • no target • esc cancel"
	}
	column, _ := domain.FindColumn(m.board, drop.ColumnID)
	switch drop.Position {
	case dnd.PositionColumn:
		return fmt.Sprintf("dragging %s → end of %s", card.Title, column.Title)
	default:
		target, _, _ := domain.FindCard(m.board, drop.CardID)
		return fmt.Sprintf("dragging %s → %s %s in %s", card.Title, drop.Position, target.Title, column.Title)
	}
}

// renderBoard renders the visible columns side by side.
func (m Model) renderBoard(layout boardLayout) string {
	if len(layout.columns) == 0 {
		return strings.Join([]string{
			"No columns yet.",
			"Press C to add a column.",
		}, "\n")
	}
	drop := m.session.Pending()
	indicatorColumn, indicatorRow := layout.indicatorRow(m.board, drop)
	gap := strings.Repeat(" ", columnGap)
	views := make([]string, 0, len(layout.columns)*2)
	for i, cl := range layout.columns {
		if i > 0 {
			views = append(views, gap)
		}
		row := -1
		if cl.id == indicatorColumn {
			row = indicatorRow
		}
		views = append(views, m.renderColumn(layout, cl, row, drop.ColumnID == cl.id))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderColumn renders one column box. indicatorRow is the inner row of
// the drop indicator, or -1.
func (m Model) renderColumn(layout boardLayout, cl columnLayout, indicatorRow int, dropTarget bool) string {
	column := m.board.Columns[cl.index]
	w := layout.innerWidth
	lines := make([]string, layout.innerHeight)
	for i := range lines {
		lines[i] = strings.Repeat(" ", w)
	}

	colAccent := color.Color(accentColor)
	if strings.TrimSpace(column.Color) != "" {
		colAccent = lipgloss.Color(column.Color)
	}
	count := fmt.Sprintf(" %d", len(column.Cards))
	if column.MaxCards > 0 {
		count = fmt.Sprintf(" %d/%d", len(column.Cards), column.MaxCards)
	}
	warn := ""
	if m.showWIPWarnings && column.OverLimit() {
		warn = " !"
	}
	title := truncate(column.Title, max(1, w-len([]rune(count))-len(warn)))
	lines[0] = padCell(
		lipgloss.NewStyle().Bold(true).Foreground(colAccent).Render(title)+metaStyle.Render(count)+warnStyle.Render(warn),
		lipgloss.Width(title+count+warn),
		w,
	)
	if len(lines) > 1 {
		lines[1] = statusStyle.Render(strings.Repeat("─", w))
	}

	selected := cl.index == m.selectedColumnIdx
	activeID := ""
	if m.session.Dragging() {
		activeID = m.session.ActiveCardID()
	}
	for _, card := range cl.cards {
		if !card.visible {
			continue
		}
		row := cl.cardRow(card.index)
		first, second := m.renderCardLines(column.Cards[card.index], w, selected && card.index == m.selectedCardIdx, card.id == activeID)
		marked := strings.SplitN(m.zones.mark(m.zones.card(card.id), first+"\n"+second), "\n", 2)
		lines[row], lines[row+1] = marked[0], marked[1]
	}
	if cl.scroll > 0 && len(lines) > firstSpacerRow {
		lines[firstSpacerRow] = padCell(metaStyle.Render("↑ more"), len("↑ more"), w)
	}
	if n := len(cl.cards); n > 0 && !cl.cards[n-1].visible && cl.scroll < n {
		// Spacer below the last visible card.
		end := cl.spacerRow(cl.scroll + visibleCardSlots(layout.innerHeight))
		if end > 0 && end < len(lines) {
			lines[end] = padCell(metaStyle.Render("↓ more"), len("↓ more"), w)
		}
	}
	if indicatorRow >= 0 && indicatorRow < len(lines) {
		lines[indicatorRow] = dropStyle.Render(strings.Repeat("╌", w))
	}

	border := color.Color(dimColor)
	switch {
	case dropTarget:
		border = selectedColor
	case selected:
		border = colAccent
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Render(strings.Join(lines, "\n"))
	return m.zones.mark(m.zones.column(cl.id), box)
}

// renderCardLines renders the two rows of a card.
func (m Model) renderCardLines(card domain.Card, w int, selected, ghost bool) (string, string) {
	prefix := "  "
	style := cardStyle
	switch {
	case ghost:
		prefix = "┆ "
		style = ghostStyle
	case selected:
		prefix = "› "
		style = selectedStyle
	}
	titleText := truncate(card.Title, max(1, w-2))
	first := padCell(style.Render(prefix+titleText), lipgloss.Width(prefix+titleText), w)

	metaText, metaColor := m.cardMeta(card)
	metaText = truncate(metaText, max(1, w-2))
	metaRender := metaStyle
	if ghost {
		metaRender = ghostStyle
	} else if metaColor != nil {
		metaRender = metaStyle.Foreground(metaColor)
	}
	second := padCell(metaRender.Render("  "+metaText), lipgloss.Width("  "+metaText), w)
	return first, second
}

// cardMeta builds the second card row from the enabled card fields.
func (m Model) cardMeta(card domain.Card) (string, color.Color) {
	parts := make([]string, 0, 5)
	var c color.Color
	if m.cardFields.ShowPriority && card.Priority != domain.PriorityNone {
		parts = append(parts, "!"+string(card.Priority))
		c = priorityColors[card.Priority]
	}
	if m.cardFields.ShowDueDate && card.DueAt != nil {
		due := card.DueAt.UTC().Format("01-02")
		if card.DueAt.Before(m.now()) {
			due += "!"
		}
		parts = append(parts, "due "+due)
	}
	if m.cardFields.ShowTags && len(card.Tags) > 0 {
		tags := make([]string, 0, len(card.Tags))
		for _, tag := range card.Tags {
			tags = append(tags, "#"+tag)
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if m.cardFields.ShowAssignee && card.Assignee != "" {
		parts = append(parts, "@"+card.Assignee)
	}
	if m.cardFields.ShowDescription && card.Description != "" {
		first, _, _ := strings.Cut(card.Description, "\n")
		parts = append(parts, strings.TrimSpace(first))
	}
	if len(parts) == 0 {
		return "·", nil
	}
	return strings.Join(parts, " "), c
}

// dragPreview returns the floating card drawn under the pointer while dragging.
func (m Model) dragPreview(layout boardLayout) (string, int, int, bool) {
	card, _, ok := m.activeCard()
	if !ok || m.dragOrigin.Empty() || m.dragPointer == (dnd.Point{}) {
		return "", 0, 0, false
	}
	dx, dy := m.sensor.Delta(m.dragPointer)
	rect := m.dragOrigin.Translate(dx, dy)
	label := " " + truncate(card.Title, max(1, layout.innerWidth-2)) + " "
	return dragStyle.Render(label), int(rect.Left), int(rect.Top), true
}

// renderModeOverlay renders the modal box for the current mode, or "".
func (m Model) renderModeOverlay(maxWidth int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1)
	heading := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	width := min(maxWidth, 72)

	switch m.mode {
	case modeAddCard, modeEditCard:
		title := "New card"
		if m.mode == modeEditCard {
			title = "Edit card"
		}
		lines := []string{heading.Render(title), ""}
		for i, in := range m.formInputs {
			label := fmt.Sprintf("%-12s", cardFormLabels[i])
			if i == m.formFocus {
				label = selectedStyle.Render(label)
			} else {
				label = helpStyle.Render(label)
			}
			lines = append(lines, label+in.View())
		}
		lines = append(lines, "", helpStyle.Render("tab next • shift+tab prev • enter save • esc cancel"))
		return boxStyle.Width(width).Render(strings.Join(lines, "\n"))

	case modeAddColumn, modeRenameColumn, modeColumnLimit:
		lines := []string{
			heading.Render(m.modeLabel()),
			"",
			m.promptInput.View(),
			"",
			helpStyle.Render("enter save • esc cancel"),
		}
		return boxStyle.Width(width).Render(strings.Join(lines, "\n"))

	case modeConfirm:
		lines := []string{
			warnStyle.Render(fmt.Sprintf("Delete %s?", m.confirm.kind)),
			"",
			truncate(m.confirm.label, width-4),
			"",
			helpStyle.Render("y confirm • n cancel"),
		}
		return boxStyle.BorderForeground(warnColor).Render(strings.Join(lines, "\n"))

	case modeCardInfo:
		return m.renderCardInfo(boxStyle.Width(width), heading, width)
	}
	return ""
}

// renderCardInfo renders the card detail overlay.
func (m Model) renderCardInfo(box lipgloss.Style, heading lipgloss.Style, width int) string {
	card, columnID, ok := domain.FindCard(m.board, m.infoCardID)
	if !ok {
		return box.Render("card not found")
	}
	column, _ := domain.FindColumn(m.board, columnID)
	now := m.now()
	lines := []string{heading.Render(card.Title), ""}
	field := func(name, value string) {
		if value == "" {
			return
		}
		lines = append(lines, helpStyle.Render(fmt.Sprintf("%-10s", name))+value)
	}
	field("column", column.Title)
	field("priority", string(card.Priority))
	field("assignee", card.Assignee)
	if card.DueAt != nil {
		field("due", formatDueValue(card.DueAt)+" ("+humanize.RelTime(*card.DueAt, now, "ago", "from now")+")")
	}
	field("tags", strings.Join(card.Tags, ", "))
	field("created", humanize.RelTime(card.CreatedAt, now, "ago", "from now"))
	field("updated", humanize.RelTime(card.UpdatedAt, now, "ago", "from now"))
	if desc := m.markdown.render(card.Description, width-4); desc != "" {
		lines = append(lines, "", desc)
	}
	lines = append(lines, "", helpStyle.Render("e edit • y copy • esc close"))
	return box.Render(strings.Join(lines, "\n"))
}

// padCell pads styled text of visible width textWidth to width cells.
func padCell(styled string, textWidth, width int) string {
	if textWidth >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-textWidth)
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay on top of base.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	return composeAt(base, centered, 0, 0, width, height)
}

// composeAt draws layer on top of base with its top-left corner at (x, y).
func composeAt(base, layer string, x, y, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(layer).X(max(0, x)).Y(max(0, y)).Z(10))
	return canvas.Render()
}

// truncate cuts s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
