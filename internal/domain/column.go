package domain

import (
	"maps"
	"strings"
)

// Column is an ordered list of cards with an optional card limit.
type Column struct {
	ID       string
	Title    string
	Cards    []Card
	MaxCards int
	Color    string
	Metadata map[string]any
}

// ColumnPatch describes a partial column update. Nil fields are left untouched.
type ColumnPatch struct {
	Title    *string
	MaxCards *int
	Color    *string
	Metadata map[string]any
}

// NewColumn validates id, title and maxCards and returns an empty column.
func NewColumn(id, title string, maxCards int) (Column, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if title == "" {
		return Column{}, ErrInvalidTitle
	}
	if maxCards < 0 {
		return Column{}, ErrInvalidMaxCards
	}
	return Column{
		ID:       id,
		Title:    title,
		Cards:    []Card{},
		MaxCards: maxCards,
	}, nil
}

// Validate checks the patch without applying it.
func (p ColumnPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrInvalidTitle
	}
	if p.MaxCards != nil && *p.MaxCards < 0 {
		return ErrInvalidMaxCards
	}
	return nil
}

// Apply returns a copy of c with the patch merged in. Cards are shared with c.
func (p ColumnPatch) Apply(c Column) Column {
	out := c
	if p.Title != nil {
		if title := strings.TrimSpace(*p.Title); title != "" {
			out.Title = title
		}
	}
	if p.MaxCards != nil && *p.MaxCards >= 0 {
		out.MaxCards = *p.MaxCards
	}
	if p.Color != nil {
		out.Color = strings.TrimSpace(*p.Color)
	}
	if p.Metadata != nil {
		out.Metadata = maps.Clone(p.Metadata)
	}
	return out
}

// OverLimit reports whether the column holds more cards than its configured maximum.
func (c Column) OverLimit() bool {
	return c.MaxCards > 0 && len(c.Cards) > c.MaxCards
}

// Clone deep-copies the column and its cards.
func (c Column) Clone() Column {
	out := c
	out.Cards = make([]Card, len(c.Cards))
	for i, card := range c.Cards {
		out.Cards[i] = card.Clone()
	}
	out.Metadata = maps.Clone(c.Metadata)
	return out
}

// CardIndex returns the index of cardID within the column, or -1.
func (c Column) CardIndex(cardID string) int {
	for i, card := range c.Cards {
		if card.ID == cardID {
			return i
		}
	}
	return -1
}
