package domain

import (
	"fmt"
	"slices"
	"time"
)

// Board is the ordered collection of columns and their cards.
//
// Mutation functions in this file are pure: they never modify their input
// board and share untouched columns with it. Unknown ids are ignored and the
// input board is returned unchanged.
type Board struct {
	Columns []Column
}

// Clone deep-copies the board.
func (b Board) Clone() Board {
	out := Board{Columns: make([]Column, len(b.Columns))}
	for i, column := range b.Columns {
		out.Columns[i] = column.Clone()
	}
	return out
}

// CardCount returns the number of cards across all columns.
func (b Board) CardCount() int {
	total := 0
	for _, column := range b.Columns {
		total += len(column.Cards)
	}
	return total
}

func (b Board) columnIndex(columnID string) int {
	for i, column := range b.Columns {
		if column.ID == columnID {
			return i
		}
	}
	return -1
}

// FindCard returns the first card with cardID and the id of the column holding it.
func FindCard(b Board, cardID string) (Card, string, bool) {
	for _, column := range b.Columns {
		if idx := column.CardIndex(cardID); idx >= 0 {
			return column.Cards[idx], column.ID, true
		}
	}
	return Card{}, "", false
}

// FindColumn returns the column with columnID.
func FindColumn(b Board, columnID string) (Column, bool) {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return Column{}, false
	}
	return b.Columns[idx], true
}

// MoveCard removes cardID from fromColumnID and inserts it into toColumnID at
// targetIndex, clamped to the destination bounds after removal.
func MoveCard(b Board, cardID, fromColumnID, toColumnID string, targetIndex int, now time.Time) Board {
	fromIdx := b.columnIndex(fromColumnID)
	toIdx := b.columnIndex(toColumnID)
	if fromIdx < 0 || toIdx < 0 {
		return b
	}
	cardIdx := b.Columns[fromIdx].CardIndex(cardID)
	if cardIdx < 0 {
		return b
	}

	columns := slices.Clone(b.Columns)
	card := columns[fromIdx].Cards[cardIdx].Clone()
	card.UpdatedAt = now.UTC()

	fromCards := slices.Clone(columns[fromIdx].Cards)
	fromCards = slices.Delete(fromCards, cardIdx, cardIdx+1)
	columns[fromIdx].Cards = fromCards

	toCards := columns[toIdx].Cards
	if toIdx != fromIdx {
		toCards = slices.Clone(toCards)
	}
	targetIndex = clampIndex(targetIndex, len(toCards))
	columns[toIdx].Cards = slices.Insert(toCards, targetIndex, card)
	return Board{Columns: columns}
}

// AddCard appends card to columnID.
func AddCard(b Board, columnID string, card Card) Board {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return b
	}
	columns := slices.Clone(b.Columns)
	cards := make([]Card, 0, len(columns[idx].Cards)+1)
	cards = append(cards, columns[idx].Cards...)
	columns[idx].Cards = append(cards, card.Clone())
	return Board{Columns: columns}
}

// DeleteCard removes cardID from columnID.
func DeleteCard(b Board, cardID, columnID string) Board {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return b
	}
	cardIdx := b.Columns[idx].CardIndex(cardID)
	if cardIdx < 0 {
		return b
	}
	columns := slices.Clone(b.Columns)
	columns[idx].Cards = slices.Delete(slices.Clone(columns[idx].Cards), cardIdx, cardIdx+1)
	return Board{Columns: columns}
}

// UpdateCard merges patch into the first card with cardID in column then card order.
func UpdateCard(b Board, cardID string, patch CardPatch, now time.Time) Board {
	for colIdx, column := range b.Columns {
		cardIdx := column.CardIndex(cardID)
		if cardIdx < 0 {
			continue
		}
		columns := slices.Clone(b.Columns)
		cards := slices.Clone(column.Cards)
		cards[cardIdx] = patch.Apply(cards[cardIdx], now)
		columns[colIdx].Cards = cards
		return Board{Columns: columns}
	}
	return b
}

// UpdateColumn merges patch into columnID.
func UpdateColumn(b Board, columnID string, patch ColumnPatch) Board {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return b
	}
	columns := slices.Clone(b.Columns)
	columns[idx] = patch.Apply(columns[idx])
	return Board{Columns: columns}
}

// AddColumn appends column to the board. A column whose id is already taken is ignored.
func AddColumn(b Board, column Column) Board {
	if b.columnIndex(column.ID) >= 0 {
		return b
	}
	columns := make([]Column, 0, len(b.Columns)+1)
	columns = append(columns, b.Columns...)
	return Board{Columns: append(columns, column.Clone())}
}

// DeleteColumn removes columnID and every card it holds.
func DeleteColumn(b Board, columnID string) Board {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return b
	}
	return Board{Columns: slices.Delete(slices.Clone(b.Columns), idx, idx+1)}
}

// ValidateBoard checks that column ids are unique and that every card id appears once.
func ValidateBoard(b Board) error {
	seenColumns := map[string]struct{}{}
	seenCards := map[string]string{}
	for _, column := range b.Columns {
		if column.ID == "" {
			return fmt.Errorf("column %q: %w", column.Title, ErrInvalidID)
		}
		if _, ok := seenColumns[column.ID]; ok {
			return fmt.Errorf("column %s: %w", column.ID, ErrDuplicateID)
		}
		seenColumns[column.ID] = struct{}{}
		if column.MaxCards < 0 {
			return fmt.Errorf("column %s: %w", column.ID, ErrInvalidMaxCards)
		}
		for _, card := range column.Cards {
			if card.ID == "" {
				return fmt.Errorf("card %q in column %s: %w", card.Title, column.ID, ErrInvalidID)
			}
			if owner, ok := seenCards[card.ID]; ok {
				return fmt.Errorf("card %s in columns %s and %s: %w", card.ID, owner, column.ID, ErrDuplicateID)
			}
			seenCards[card.ID] = column.ID
		}
	}
	return nil
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx > length {
		return length
	}
	return idx
}
