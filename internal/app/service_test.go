package app

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/kanboard/internal/domain"
)

type fakeStore struct {
	board   domain.Board
	found   bool
	saves   int
	saveErr error
	loadErr error
}

func (f *fakeStore) LoadBoard(context.Context) (domain.Board, bool, error) {
	if f.loadErr != nil {
		return domain.Board{}, false, f.loadErr
	}
	return f.board.Clone(), f.found, nil
}

func (f *fakeStore) SaveBoard(_ context.Context, b domain.Board) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.board = b.Clone()
	f.found = true
	f.saves++
	return nil
}

func testClock() time.Time {
	return time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
}

func counterIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

func newTestService(t *testing.T, store BoardStore, cfg ServiceConfig) *Service {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	svc := NewService(store, counterIDs("id-"), testClock, cfg)
	if _, err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return svc
}

func columnIDs(b domain.Board) []string {
	out := make([]string, 0, len(b.Columns))
	for _, c := range b.Columns {
		out = append(out, c.ID)
	}
	return out
}

func cardIDs(t *testing.T, b domain.Board, columnID string) []string {
	t.Helper()
	column, ok := domain.FindColumn(b, columnID)
	if !ok {
		t.Fatalf("column %q not found", columnID)
	}
	out := []string{}
	for _, c := range column.Cards {
		out = append(out, c.ID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadSeedsTemplateColumns(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, ServiceConfig{})
	got := columnIDs(svc.Board())
	if !equalStrings(got, []string{"todo", "progress", "done"}) {
		t.Fatalf("unexpected seeded columns %v", got)
	}
	if store.saves != 1 {
		t.Fatalf("expected seeded board to be saved once, got %d", store.saves)
	}
}

func TestLoadUsesConfiguredTemplates(t *testing.T) {
	svc := newTestService(t, nil, ServiceConfig{ColumnTemplates: []ColumnTemplate{
		{Title: "Backlog"},
		{ID: "WIP", Title: "Work In Progress", MaxCards: 3},
		{Title: "  "},
		{ID: "wip", Title: "Duplicate"},
	}})
	b := svc.Board()
	if !equalStrings(columnIDs(b), []string{"backlog", "wip"}) {
		t.Fatalf("unexpected columns %v", columnIDs(b))
	}
	if b.Columns[1].MaxCards != 3 {
		t.Fatalf("expected max cards 3, got %d", b.Columns[1].MaxCards)
	}
}

func TestLoadKeepsStoredBoard(t *testing.T) {
	column, _ := domain.NewColumn("only", "Only", 0)
	store := &fakeStore{board: domain.Board{Columns: []domain.Column{column}}, found: true}
	svc := newTestService(t, store, ServiceConfig{})
	if !equalStrings(columnIDs(svc.Board()), []string{"only"}) {
		t.Fatalf("unexpected columns %v", columnIDs(svc.Board()))
	}
	if store.saves != 0 {
		t.Fatalf("expected no save on load, got %d", store.saves)
	}
}

func TestLoadErrorPropagation(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeStore{loadErr: boom}, nil, nil, ServiceConfig{Logger: log.New(io.Discard)})
	if _, err := svc.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}

func TestCardLifecycleAndHooks(t *testing.T) {
	ctx := context.Background()
	var moved, deleted, updated []string
	added := 0
	store := &fakeStore{}
	svc := newTestService(t, store, ServiceConfig{Hooks: Hooks{
		OnCardMoved: func(cardID, from, to string, index int) {
			moved = append(moved, cardID+":"+from+"->"+to+"@"+strconv.Itoa(index))
		},
		OnCardAdded:   func(string, domain.Card) { added++ },
		OnCardUpdated: func(cardID string, _ domain.CardPatch) { updated = append(updated, cardID) },
		OnCardDeleted: func(cardID, columnID string) { deleted = append(deleted, cardID+"@"+columnID) },
	}})

	c1, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "Write parser", Tags: []string{"Go", "go"}})
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	c2, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "Ship it"})
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 add hooks, got %d", added)
	}
	if len(c1.Tags) != 1 || c1.Tags[0] != "go" {
		t.Fatalf("expected normalized tags, got %v", c1.Tags)
	}

	b, err := svc.MoveCard(ctx, c1.ID, "todo", "progress", 0)
	if err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if !equalStrings(cardIDs(t, b, "todo"), []string{c2.ID}) || !equalStrings(cardIDs(t, b, "progress"), []string{c1.ID}) {
		t.Fatalf("unexpected board after move %#v", b)
	}
	if len(moved) != 1 || moved[0] != c1.ID+":todo->progress@0" {
		t.Fatalf("unexpected move notifications %v", moved)
	}

	title := "Write lexer"
	card, err := svc.UpdateCard(ctx, c1.ID, domain.CardPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateCard() error = %v", err)
	}
	if card.Title != title || len(updated) != 1 {
		t.Fatalf("unexpected update result %#v hooks=%v", card, updated)
	}

	if err := svc.DeleteCard(ctx, c2.ID); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	if len(deleted) != 1 || deleted[0] != c2.ID+"@todo" {
		t.Fatalf("unexpected delete notifications %v", deleted)
	}
	if got := store.board.CardCount(); got != 1 {
		t.Fatalf("expected persisted board to hold 1 card, got %d", got)
	}
}

func TestMoveCardHookReportsLandedIndex(t *testing.T) {
	ctx := context.Background()
	var indexes []int
	svc := newTestService(t, nil, ServiceConfig{Hooks: Hooks{
		OnCardMoved: func(_, _, _ string, index int) { indexes = append(indexes, index) },
	}})

	first, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "First"})
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	second, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "Second"})
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}

	b, err := svc.MoveCard(ctx, first.ID, "todo", "done", 99)
	if err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if !equalStrings(cardIDs(t, b, "done"), []string{first.ID}) {
		t.Fatalf("unexpected done column %v", cardIDs(t, b, "done"))
	}
	if _, err := svc.MoveCard(ctx, second.ID, "todo", "done", 99); err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if len(indexes) != 2 || indexes[0] != 0 || indexes[1] != 1 {
		t.Fatalf("expected hooks to report landed indexes [0 1], got %v", indexes)
	}
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(t, store, ServiceConfig{})
	before := svc.Board()
	saves := store.saves

	if _, err := svc.AddCard(ctx, "missing", domain.CardInput{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AddCard() expected ErrNotFound, got %v", err)
	}
	if _, err := svc.MoveCard(ctx, "nope", "todo", "done", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MoveCard() expected ErrNotFound, got %v", err)
	}
	title := "x"
	if _, err := svc.UpdateCard(ctx, "nope", domain.CardPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateCard() expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteCard(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteCard() expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateColumn(ctx, "nope", domain.ColumnPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateColumn() expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteColumn(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteColumn() expected ErrNotFound, got %v", err)
	}
	if store.saves != saves {
		t.Fatalf("expected no saves for failed mutations, got %d", store.saves-saves)
	}
	if !equalStrings(columnIDs(svc.Board()), columnIDs(before)) {
		t.Fatal("expected board unchanged")
	}
}

func TestMoveCardFromWrongColumn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{})
	card, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "a"})
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if _, err := svc.MoveCard(ctx, card.ID, "done", "progress", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong source column, got %v", err)
	}
}

func TestValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{})
	if _, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "  "}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	negative := -1
	if _, err := svc.UpdateColumn(ctx, "todo", domain.ColumnPatch{MaxCards: &negative}); !errors.Is(err, domain.ErrInvalidMaxCards) {
		t.Fatalf("expected ErrInvalidMaxCards, got %v", err)
	}
	if _, err := svc.AddColumn(ctx, "", 0); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestColumnLifecycleAndHooks(t *testing.T) {
	ctx := context.Background()
	var updatedCols, deletedCols []string
	svc := newTestService(t, nil, ServiceConfig{Hooks: Hooks{
		OnColumnUpdated: func(columnID string, _ domain.ColumnPatch) { updatedCols = append(updatedCols, columnID) },
		OnColumnDeleted: func(columnID string) { deletedCols = append(deletedCols, columnID) },
	}})

	column, err := svc.AddColumn(ctx, "Review", 2)
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if got := columnIDs(svc.Board()); got[len(got)-1] != column.ID {
		t.Fatalf("expected new column last, got %v", got)
	}

	limit := 5
	title := "Code Review"
	updated, err := svc.UpdateColumn(ctx, column.ID, domain.ColumnPatch{Title: &title, MaxCards: &limit})
	if err != nil {
		t.Fatalf("UpdateColumn() error = %v", err)
	}
	if updated.Title != title || updated.MaxCards != 5 {
		t.Fatalf("unexpected updated column %#v", updated)
	}

	if _, err := svc.AddCard(ctx, column.ID, domain.CardInput{Title: "pr"}); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if err := svc.DeleteColumn(ctx, column.ID); err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	if _, ok := domain.FindColumn(svc.Board(), column.ID); ok {
		t.Fatal("expected column removed")
	}
	if svc.Board().CardCount() != 0 {
		t.Fatal("expected cards removed with column")
	}
	if len(updatedCols) != 1 || len(deletedCols) != 1 {
		t.Fatalf("unexpected column hooks updated=%v deleted=%v", updatedCols, deletedCols)
	}
}

func TestSaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	hookCalls := 0
	svc := newTestService(t, store, ServiceConfig{Hooks: Hooks{OnCardAdded: func(string, domain.Card) { hookCalls++ }}})
	store.saveErr = errors.New("disk full")

	if _, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "x"}); !errors.Is(err, store.saveErr) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if svc.Board().CardCount() != 0 {
		t.Fatal("expected in-memory board unchanged after failed save")
	}
	if hookCalls != 0 {
		t.Fatal("expected no hook after failed save")
	}
}

func TestBoardReturnsCopy(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{})
	if _, err := svc.AddCard(ctx, "todo", domain.CardInput{Title: "a"}); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	b := svc.Board()
	b.Columns[0].Cards[0].Title = "mutated"
	if got := svc.Board().Columns[0].Cards[0].Title; got != "a" {
		t.Fatalf("expected service board isolated from caller, got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"In Progress":   "in-progress",
		"  To-Do!! ":    "to-do",
		"QA / Review 2": "qa-review-2",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
