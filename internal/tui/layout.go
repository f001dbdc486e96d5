package tui

import (
	"github.com/evanschultz/kanboard/internal/dnd"
	"github.com/evanschultz/kanboard/internal/domain"
)

// Board geometry. Every column is a bordered box; inside it row 0 is the
// title, row 1 a rule, then a spacer row followed by cards that are
// cardHeight rows tall, each followed by another spacer row. Drop indicators
// are drawn on spacer rows so the layout never shifts during a drag.
// Hit-testing uses the zones marked while rendering; the layout only decides
// what is drawn where.
const (
	boardTop        = 2
	columnGap       = 1
	minColumnInner  = 16
	maxColumnInner  = 36
	minColumnHeight = 5
	cardHeight      = 2
	cardStride      = cardHeight + 1
	firstSpacerRow  = 2
	footerLines     = 3
)

// boardLayout maps board content to screen cells for one frame.
type boardLayout struct {
	innerWidth  int
	innerHeight int
	columns     []columnLayout
}

// columnLayout is one visible column.
type columnLayout struct {
	index  int
	id     string
	x      int
	scroll int
	cards  []cardLayout
}

// cardLayout is one card of a visible column. Cards scrolled out of view
// have visible=false and are not drawn.
type cardLayout struct {
	id      string
	index   int
	visible bool
}

// visibleColumnCount returns how many columns fit in width.
func visibleColumnCount(total, width int) int {
	if total <= 0 {
		return 0
	}
	if width <= 0 {
		return total
	}
	fits := max(1, (width+columnGap)/(minColumnInner+2+columnGap))
	return min(total, fits)
}

// columnInnerWidth returns the content width of each of n columns.
func columnInnerWidth(n, width int) int {
	if n <= 0 {
		return minColumnInner
	}
	if width <= 0 {
		return 28
	}
	w := (width-columnGap*(n-1))/n - 2
	return clamp(w, minColumnInner, maxColumnInner)
}

// columnInnerHeight returns the number of content rows in a column box.
func columnInnerHeight(height int) int {
	if height <= 0 {
		return 20
	}
	return max(minColumnHeight, height-boardTop-2-footerLines)
}

// visibleCardSlots returns how many cards fit in a column of innerHeight rows.
func visibleCardSlots(innerHeight int) int {
	return max(1, (innerHeight-firstSpacerRow)/cardStride)
}

// computeLayout lays out the columns starting at colOffset.
func computeLayout(b domain.Board, width, height, colOffset int, scroll map[string]int) boardLayout {
	n := visibleColumnCount(len(b.Columns), width)
	colOffset = clamp(colOffset, 0, max(0, len(b.Columns)-n))
	out := boardLayout{
		innerWidth:  columnInnerWidth(n, width),
		innerHeight: columnInnerHeight(height),
		columns:     make([]columnLayout, 0, n),
	}
	outerWidth := out.innerWidth + 2
	slots := visibleCardSlots(out.innerHeight)
	for i := 0; i < n; i++ {
		column := b.Columns[colOffset+i]
		cl := columnLayout{
			index:  colOffset + i,
			id:     column.ID,
			x:      i * (outerWidth + columnGap),
			scroll: clamp(scroll[column.ID], 0, max(0, len(column.Cards)-slots)),
			cards:  make([]cardLayout, 0, len(column.Cards)),
		}
		for k, card := range column.Cards {
			row := cl.cardRow(k)
			cl.cards = append(cl.cards, cardLayout{
				id:      card.ID,
				index:   k,
				visible: row >= 0 && row+cardHeight <= out.innerHeight,
			})
		}
		out.columns = append(out.columns, cl)
	}
	return out
}

// cardRow returns the inner row of card k's first line, negative when
// scrolled above the viewport.
func (c columnLayout) cardRow(k int) int {
	if k < c.scroll {
		return -1
	}
	return firstSpacerRow + 1 + (k-c.scroll)*cardStride
}

// spacerRow returns the inner row of the spacer above card k. k may equal
// the card count for the spacer after the last card.
func (c columnLayout) spacerRow(k int) int {
	if k < c.scroll {
		return -1
	}
	return firstSpacerRow + (k-c.scroll)*cardStride
}

// column returns the layout of the column with columnID when it is visible.
func (l boardLayout) column(columnID string) (columnLayout, bool) {
	for _, column := range l.columns {
		if column.id == columnID {
			return column, true
		}
	}
	return columnLayout{}, false
}

// indicatorRow returns the inner row, within column columnID, where the
// indicator for drop is drawn, or -1.
func (l boardLayout) indicatorRow(b domain.Board, drop dnd.PendingDrop) (string, int) {
	if drop.Empty() {
		return "", -1
	}
	column, ok := l.column(drop.ColumnID)
	if !ok {
		return "", -1
	}
	boardColumn, ok := domain.FindColumn(b, drop.ColumnID)
	if !ok {
		return "", -1
	}
	var k int
	switch drop.Position {
	case dnd.PositionColumn:
		k = len(boardColumn.Cards)
	case dnd.PositionBefore:
		k = boardColumn.CardIndex(drop.CardID)
	case dnd.PositionAfter:
		k = boardColumn.CardIndex(drop.CardID) + 1
	default:
		return "", -1
	}
	if k < 0 {
		return "", -1
	}
	row := column.spacerRow(k)
	if row < 0 || row >= l.innerHeight {
		return "", -1
	}
	return column.id, row
}
