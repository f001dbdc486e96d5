package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/kanboard/internal/domain"
)

func seededService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{})
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, err := svc.AddCard(ctx, "todo", domain.CardInput{
		Title:       "Parser",
		Description: "## Steps\n- lex\n- parse",
		Tags:        []string{"go"},
		Priority:    domain.PriorityHigh,
		Assignee:    "sam",
		DueAt:       &due,
		Metadata:    map[string]any{"estimate": "3d"},
	}); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if _, err := svc.AddCard(ctx, "done", domain.CardInput{Title: "Setup"}); err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	return svc
}

func TestExportSnapshotIncludesExpectedData(t *testing.T) {
	svc := seededService(t)
	snap, err := svc.ExportSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	if snap.Version != SnapshotVersion {
		t.Fatalf("unexpected version %q", snap.Version)
	}
	if len(snap.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(snap.Columns))
	}
	todo := snap.Columns[0]
	if len(todo.Cards) != 1 || todo.Cards[0].Priority != domain.PriorityHigh || todo.Cards[0].Metadata["estimate"] != "3d" {
		t.Fatalf("unexpected todo column %#v", todo)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("exported snapshot should validate, got %v", err)
	}
}

func TestSnapshotRoundTripFormats(t *testing.T) {
	for _, format := range []SnapshotFormat{SnapshotFormatJSON, SnapshotFormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			source := seededService(t)
			snap, err := source.ExportSnapshot(context.Background())
			if err != nil {
				t.Fatalf("ExportSnapshot() error = %v", err)
			}
			var buf bytes.Buffer
			if err := snap.Encode(&buf, format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, err := DecodeSnapshot(&buf, format)
			if err != nil {
				t.Fatalf("DecodeSnapshot() error = %v", err)
			}

			target := newTestService(t, nil, ServiceConfig{ColumnTemplates: []ColumnTemplate{{Title: "Other"}}})
			board, err := target.ImportSnapshot(context.Background(), decoded)
			if err != nil {
				t.Fatalf("ImportSnapshot() error = %v", err)
			}
			if !equalStrings(columnIDs(board), []string{"todo", "progress", "done"}) {
				t.Fatalf("unexpected imported columns %v", columnIDs(board))
			}
			card := board.Columns[0].Cards[0]
			if card.Title != "Parser" || card.Assignee != "sam" || card.DueAt == nil || !card.DueAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected imported card %#v", card)
			}
			if card.Metadata["estimate"] != "3d" {
				t.Fatalf("expected metadata preserved, got %#v", card.Metadata)
			}
			if !card.CreatedAt.Equal(testClock()) {
				t.Fatalf("expected created_at preserved, got %v", card.CreatedAt)
			}
		})
	}
}

func TestImportSnapshotValidateErrors(t *testing.T) {
	svc := newTestService(t, nil, ServiceConfig{})
	cases := map[string]Snapshot{
		"version": {Version: "other"},
		"column title": {Version: SnapshotVersion, Columns: []SnapshotColumn{
			{ID: "a", Title: " "},
		}},
		"card title": {Version: SnapshotVersion, Columns: []SnapshotColumn{
			{ID: "a", Title: "A", Cards: []SnapshotCard{{ID: "c1"}}},
		}},
		"priority": {Version: SnapshotVersion, Columns: []SnapshotColumn{
			{ID: "a", Title: "A", Cards: []SnapshotCard{{ID: "c1", Title: "x", Priority: "urgent"}}},
		}},
		"duplicate card": {Version: SnapshotVersion, Columns: []SnapshotColumn{
			{ID: "a", Title: "A", Cards: []SnapshotCard{{ID: "c1", Title: "x"}}},
			{ID: "b", Title: "B", Cards: []SnapshotCard{{ID: "c1", Title: "y"}}},
		}},
		"duplicate column": {Version: SnapshotVersion, Columns: []SnapshotColumn{
			{ID: "a", Title: "A"},
			{ID: "a", Title: "B"},
		}},
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ImportSnapshot(context.Background(), snap); !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
	if !equalStrings(columnIDs(svc.Board()), []string{"todo", "progress", "done"}) {
		t.Fatal("expected board unchanged after rejected imports")
	}
}

func TestDecodeSnapshotErrors(t *testing.T) {
	if _, err := DecodeSnapshot(strings.NewReader(""), SnapshotFormatJSON); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for empty json, got %v", err)
	}
	if _, err := DecodeSnapshot(strings.NewReader(""), SnapshotFormatYAML); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for empty yaml, got %v", err)
	}
	if _, err := DecodeSnapshot(strings.NewReader("{"), SnapshotFormatJSON); err == nil {
		t.Fatal("expected decode error for truncated json")
	}
	if _, err := DecodeSnapshot(strings.NewReader("{}"), SnapshotFormat("xml")); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestParseSnapshotFormat(t *testing.T) {
	cases := map[string]SnapshotFormat{"": SnapshotFormatJSON, "JSON": SnapshotFormatJSON, "yml": SnapshotFormatYAML, " yaml ": SnapshotFormatYAML}
	for in, want := range cases {
		got, err := ParseSnapshotFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseSnapshotFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSnapshotFormat("toml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
