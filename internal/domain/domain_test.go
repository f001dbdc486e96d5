package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func mustCard(t *testing.T, id, title string, now time.Time) Card {
	t.Helper()
	card, err := NewCard(id, CardInput{Title: title}, now)
	if err != nil {
		t.Fatalf("NewCard(%q) error = %v", id, err)
	}
	return card
}

func mustColumn(t *testing.T, id, title string, cards ...Card) Column {
	t.Helper()
	column, err := NewColumn(id, title, 0)
	if err != nil {
		t.Fatalf("NewColumn(%q) error = %v", id, err)
	}
	column.Cards = append(column.Cards, cards...)
	return column
}

func cardIDs(column Column) []string {
	out := make([]string, 0, len(column.Cards))
	for _, card := range column.Cards {
		out = append(out, card.ID)
	}
	return out
}

func sampleBoard(t *testing.T, now time.Time) Board {
	t.Helper()
	return Board{Columns: []Column{
		mustColumn(t, "todo", "Todo",
			mustCard(t, "a", "A", now),
			mustCard(t, "b", "B", now),
			mustCard(t, "c", "C", now),
			mustCard(t, "d", "D", now),
		),
		mustColumn(t, "doing", "Doing"),
	}}
}

func TestNewCardValidation(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	if _, err := NewCard("", CardInput{Title: "ok"}, now); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewCard("c1", CardInput{Title: "  "}, now); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := NewCard("c1", CardInput{Title: "ok", Priority: "urgent"}, now); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}

	card, err := NewCard("c1", CardInput{
		Title: "  Ship it ",
		Tags:  []string{"Backend", " backend", "", "api"},
	}, now)
	if err != nil {
		t.Fatalf("NewCard() error = %v", err)
	}
	if card.Title != "Ship it" {
		t.Fatalf("unexpected title %q", card.Title)
	}
	if !reflect.DeepEqual(card.Tags, []string{"api", "backend"}) {
		t.Fatalf("unexpected tags %#v", card.Tags)
	}
	if !card.CreatedAt.Equal(now) || !card.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %v %v", card.CreatedAt, card.UpdatedAt)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		raw     string
		want    Priority
		wantErr bool
	}{
		{raw: "", want: PriorityNone},
		{raw: " HIGH ", want: PriorityHigh},
		{raw: "low", want: PriorityLow},
		{raw: "soon", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParsePriority(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidPriority) {
				t.Fatalf("ParsePriority(%q) expected error, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParsePriority(%q) = %q, %v", tc.raw, got, err)
		}
	}
}

func TestNewColumnValidation(t *testing.T) {
	if _, err := NewColumn("", "Todo", 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewColumn("todo", " ", 0); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := NewColumn("todo", "Todo", -1); !errors.Is(err, ErrInvalidMaxCards) {
		t.Fatalf("expected ErrInvalidMaxCards, got %v", err)
	}
}

func TestFindCardAndColumn(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b := sampleBoard(t, now)

	card, columnID, ok := FindCard(b, "c")
	if !ok || card.ID != "c" || columnID != "todo" {
		t.Fatalf("FindCard() = %#v, %q, %t", card, columnID, ok)
	}
	if _, _, ok := FindCard(b, "missing"); ok {
		t.Fatal("expected missing card not found")
	}
	column, ok := FindColumn(b, "doing")
	if !ok || column.Title != "Doing" {
		t.Fatalf("FindColumn() = %#v, %t", column, ok)
	}
	if _, ok := FindColumn(b, "nope"); ok {
		t.Fatal("expected missing column not found")
	}
}

func TestMoveCardSameColumn(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	b := sampleBoard(t, now)

	out := MoveCard(b, "c", "todo", "todo", 0, later)
	if got := cardIDs(out.Columns[0]); !reflect.DeepEqual(got, []string{"c", "a", "b", "d"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if got := cardIDs(b.Columns[0]); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("input board mutated: %v", got)
	}
	moved, _, _ := FindCard(out, "c")
	if !moved.UpdatedAt.Equal(later) {
		t.Fatalf("expected refreshed updated_at, got %v", moved.UpdatedAt)
	}
}

func TestMoveCardCrossColumnClampsIndex(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b := sampleBoard(t, now)

	out := MoveCard(b, "a", "todo", "doing", 42, now)
	if got := cardIDs(out.Columns[1]); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected destination %v", got)
	}
	if got := cardIDs(out.Columns[0]); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Fatalf("unexpected source %v", got)
	}
	if out.CardCount() != b.CardCount() {
		t.Fatalf("card count changed: %d -> %d", b.CardCount(), out.CardCount())
	}

	out = MoveCard(out, "d", "todo", "doing", -5, now)
	if got := cardIDs(out.Columns[1]); !reflect.DeepEqual(got, []string{"d", "a"}) {
		t.Fatalf("expected negative index clamped to 0, got %v", got)
	}
}

func TestMoveCardIndexStable(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	for target := 0; target < 6; target++ {
		b := sampleBoard(t, now)
		out := MoveCard(b, "b", "todo", "todo", target, now)
		column := out.Columns[0]
		want := min(target, len(column.Cards)-1)
		if got := column.CardIndex("b"); got != want {
			t.Fatalf("target %d: expected index %d, got %d", target, want, got)
		}
	}
}

func TestMutationsIgnoreUnknownIDs(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b := sampleBoard(t, now)
	title := "renamed"
	card := mustCard(t, "z", "Z", now)

	cases := map[string]Board{
		"move unknown card":     MoveCard(b, "missing", "todo", "doing", 0, now),
		"move unknown source":   MoveCard(b, "a", "nope", "doing", 0, now),
		"move unknown dest":     MoveCard(b, "a", "todo", "nope", 0, now),
		"move wrong source":     MoveCard(b, "a", "doing", "todo", 0, now),
		"add unknown column":    AddCard(b, "nope", card),
		"delete unknown column": DeleteCard(b, "a", "nope"),
		"delete unknown card":   DeleteCard(b, "missing", "todo"),
		"update unknown card":   UpdateCard(b, "missing", CardPatch{Title: &title}, now),
		"update unknown column": UpdateColumn(b, "nope", ColumnPatch{Title: &title}),
		"delete unknown col":    DeleteColumn(b, "nope"),
	}
	for name, out := range cases {
		if !reflect.DeepEqual(out, b) {
			t.Fatalf("%s: expected board unchanged", name)
		}
	}
}

func TestAddAndDeleteCard(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b := sampleBoard(t, now)
	card := mustCard(t, "e", "E", now)

	out := AddCard(b, "doing", card)
	if got := cardIDs(out.Columns[1]); !reflect.DeepEqual(got, []string{"e"}) {
		t.Fatalf("unexpected doing cards %v", got)
	}
	if len(b.Columns[1].Cards) != 0 {
		t.Fatal("input board mutated by AddCard")
	}

	out = DeleteCard(out, "b", "todo")
	if got := cardIDs(out.Columns[0]); !reflect.DeepEqual(got, []string{"a", "c", "d"}) {
		t.Fatalf("unexpected todo cards %v", got)
	}
	// Card exists on the board but not in the named column.
	out = DeleteCard(out, "e", "todo")
	if got := cardIDs(out.Columns[0]); !reflect.DeepEqual(got, []string{"a", "c", "d"}) {
		t.Fatalf("expected todo cards unchanged, got %v", got)
	}
}

func TestUpdateCardFirstMatch(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)
	b := Board{Columns: []Column{
		mustColumn(t, "one", "One", mustCard(t, "dup", "first", now)),
		mustColumn(t, "two", "Two", mustCard(t, "dup", "second", now)),
	}}
	title := "patched"
	priority := PriorityHigh
	due := later.Add(48 * time.Hour)

	out := UpdateCard(b, "dup", CardPatch{
		Title:    &title,
		Priority: &priority,
		DueAt:    &due,
		Metadata: map[string]any{"points": 3},
	}, later)
	if out.Columns[0].Cards[0].Title != "patched" {
		t.Fatalf("expected first match patched, got %q", out.Columns[0].Cards[0].Title)
	}
	if out.Columns[1].Cards[0].Title != "second" {
		t.Fatal("expected later match untouched")
	}
	patched := out.Columns[0].Cards[0]
	if patched.Priority != PriorityHigh || patched.DueAt == nil || patched.Metadata["points"] != 3 {
		t.Fatalf("unexpected patched card %#v", patched)
	}
	if !patched.UpdatedAt.Equal(later) {
		t.Fatalf("expected updated_at refreshed, got %v", patched.UpdatedAt)
	}
	if b.Columns[0].Cards[0].Title != "first" {
		t.Fatal("input board mutated by UpdateCard")
	}

	cleared := UpdateCard(out, "dup", CardPatch{ClearDueAt: true}, later)
	if cleared.Columns[0].Cards[0].DueAt != nil {
		t.Fatal("expected due date cleared")
	}
}

func TestUpdateAndDeleteColumn(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b := sampleBoard(t, now)
	title := "Backlog"
	limit := 3

	out := UpdateColumn(b, "todo", ColumnPatch{Title: &title, MaxCards: &limit})
	if out.Columns[0].Title != "Backlog" || out.Columns[0].MaxCards != 3 {
		t.Fatalf("unexpected column %#v", out.Columns[0])
	}
	if !out.Columns[0].OverLimit() {
		t.Fatal("expected 4 cards over a limit of 3")
	}
	if b.Columns[0].Title != "Todo" {
		t.Fatal("input board mutated by UpdateColumn")
	}

	out = DeleteColumn(out, "todo")
	if len(out.Columns) != 1 || out.Columns[0].ID != "doing" {
		t.Fatalf("unexpected columns after delete %#v", out.Columns)
	}
	if out.CardCount() != 0 {
		t.Fatalf("expected cards removed with column, got %d", out.CardCount())
	}
}

func TestAddColumnRejectsDuplicate(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	b := sampleBoard(t, now)
	done := mustColumn(t, "done", "Done")

	out := AddColumn(b, done)
	if len(out.Columns) != 3 || out.Columns[2].ID != "done" {
		t.Fatalf("unexpected columns %#v", out.Columns)
	}
	if again := AddColumn(out, done); len(again.Columns) != 3 {
		t.Fatal("expected duplicate column ignored")
	}
}

func TestValidateBoard(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	if err := ValidateBoard(sampleBoard(t, now)); err != nil {
		t.Fatalf("ValidateBoard() error = %v", err)
	}
	dupColumns := Board{Columns: []Column{mustColumn(t, "x", "X"), mustColumn(t, "x", "Y")}}
	if err := ValidateBoard(dupColumns); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for columns, got %v", err)
	}
	dupCards := Board{Columns: []Column{
		mustColumn(t, "x", "X", mustCard(t, "a", "A", now)),
		mustColumn(t, "y", "Y", mustCard(t, "a", "A", now)),
	}}
	if err := ValidateBoard(dupCards); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for cards, got %v", err)
	}
}
