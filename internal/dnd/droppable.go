package dnd

// Kind tags a droppable region.
type Kind string

const (
	KindCard   Kind = "card"
	KindColumn Kind = "column"
)

// Droppable is a rendered region that can receive a dragged card.
// HasRect is false when the region is known but not currently measured,
// for example a card scrolled out of view.
type Droppable struct {
	Kind     Kind
	ColumnID string
	CardID   string
	Rect     Rect
	HasRect  bool
}

// ID returns the identifier of the card or column the region stands for.
func (d Droppable) ID() string {
	if d.Kind == KindCard {
		return d.CardID
	}
	return d.ColumnID
}

// Collision is one ranked candidate produced by a detection strategy.
// Value is strategy specific: a distance for center-based rankings, an
// intersection ratio for rect intersection.
type Collision struct {
	Droppable Droppable
	Value     float64
}

func (c Collision) isCard(cardID string) bool {
	return c.Droppable.Kind == KindCard && c.Droppable.CardID == cardID
}
