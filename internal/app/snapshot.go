package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evanschultz/kanboard/internal/domain"
	"gopkg.in/yaml.v3"
)

// SnapshotVersion tags the snapshot layout; imports reject any other value.
const SnapshotVersion = "kanboard.snapshot.v1"

// SnapshotFormat selects the snapshot encoding.
type SnapshotFormat string

const (
	SnapshotFormatJSON SnapshotFormat = "json"
	SnapshotFormatYAML SnapshotFormat = "yaml"
)

// ParseSnapshotFormat normalizes a format name. "yml" is accepted for YAML.
func ParseSnapshotFormat(raw string) (SnapshotFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return SnapshotFormatJSON, nil
	case "yaml", "yml":
		return SnapshotFormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q", raw)
	}
}

// Snapshot is a portable copy of the whole board.
type Snapshot struct {
	Version    string           `json:"version" yaml:"version"`
	ExportedAt time.Time        `json:"exported_at" yaml:"exported_at"`
	Columns    []SnapshotColumn `json:"columns" yaml:"columns"`
}

// SnapshotColumn is one column of a snapshot with its cards in order.
type SnapshotColumn struct {
	ID       string         `json:"id" yaml:"id"`
	Title    string         `json:"title" yaml:"title"`
	MaxCards int            `json:"max_cards,omitempty" yaml:"max_cards,omitempty"`
	Color    string         `json:"color,omitempty" yaml:"color,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Cards    []SnapshotCard `json:"cards" yaml:"cards"`
}

// SnapshotCard is one card of a snapshot.
type SnapshotCard struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Assignee    string          `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DueAt       *time.Time      `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`
	Metadata    map[string]any  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ExportSnapshot captures the current board.
func (s *Service) ExportSnapshot(context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SnapshotFromBoard(s.board, s.clock()), nil
}

// ImportSnapshot validates snap and replaces the whole board with it.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) (domain.Board, error) {
	if err := snap.Validate(); err != nil {
		return domain.Board{}, err
	}
	board := snap.Board()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, "import snapshot", board); err != nil {
		return domain.Board{}, err
	}
	s.loaded = true
	s.logger.Info("imported snapshot", "columns", len(board.Columns), "cards", board.CardCount())
	return board.Clone(), nil
}

// SnapshotFromBoard converts a board into its snapshot form.
func SnapshotFromBoard(b domain.Board, now time.Time) Snapshot {
	out := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Columns:    make([]SnapshotColumn, 0, len(b.Columns)),
	}
	for _, column := range b.Columns {
		sc := SnapshotColumn{
			ID:       column.ID,
			Title:    column.Title,
			MaxCards: column.MaxCards,
			Color:    column.Color,
			Metadata: column.Clone().Metadata,
			Cards:    make([]SnapshotCard, 0, len(column.Cards)),
		}
		for _, card := range column.Cards {
			sc.Cards = append(sc.Cards, snapshotCardFromDomain(card.Clone()))
		}
		out.Columns = append(out.Columns, sc)
	}
	return out
}

func snapshotCardFromDomain(c domain.Card) SnapshotCard {
	return SnapshotCard{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Tags:        c.Tags,
		Priority:    c.Priority,
		Assignee:    c.Assignee,
		DueAt:       c.DueAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Metadata:    c.Metadata,
	}
}

// Validate checks version, required fields and id uniqueness.
func (s Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	for i, column := range s.Columns {
		if strings.TrimSpace(column.Title) == "" {
			return fmt.Errorf("%w: columns[%d].title is required", ErrInvalidSnapshot, i)
		}
		for j, card := range column.Cards {
			if strings.TrimSpace(card.Title) == "" {
				return fmt.Errorf("%w: columns[%d].cards[%d].title is required", ErrInvalidSnapshot, i, j)
			}
			if _, err := domain.ParsePriority(string(card.Priority)); err != nil {
				return fmt.Errorf("%w: columns[%d].cards[%d]: %w", ErrInvalidSnapshot, i, j, err)
			}
		}
	}
	if err := domain.ValidateBoard(s.Board()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return nil
}

// Board converts the snapshot back into a board.
func (s Snapshot) Board() domain.Board {
	out := domain.Board{Columns: make([]domain.Column, 0, len(s.Columns))}
	for _, sc := range s.Columns {
		column := domain.Column{
			ID:       strings.TrimSpace(sc.ID),
			Title:    strings.TrimSpace(sc.Title),
			MaxCards: sc.MaxCards,
			Color:    sc.Color,
			Metadata: sc.Metadata,
			Cards:    make([]domain.Card, 0, len(sc.Cards)),
		}
		for _, card := range sc.Cards {
			column.Cards = append(column.Cards, card.toDomain())
		}
		out.Columns = append(out.Columns, column.Clone())
	}
	return out
}

func (c SnapshotCard) toDomain() domain.Card {
	card := domain.Card{
		ID:          strings.TrimSpace(c.ID),
		Title:       strings.TrimSpace(c.Title),
		Description: c.Description,
		Tags:        c.Tags,
		Priority:    c.Priority,
		Assignee:    c.Assignee,
		DueAt:       c.DueAt,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
		Metadata:    c.Metadata,
	}
	return card.Clone()
}

// Encode writes the snapshot in the given format.
func (s Snapshot) Encode(w io.Writer, format SnapshotFormat) error {
	switch format {
	case SnapshotFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode snapshot yaml: %w", err)
		}
		return enc.Close()
	case SnapshotFormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown snapshot format %q", format)
	}
}

// DecodeSnapshot reads a snapshot in the given format.
func DecodeSnapshot(r io.Reader, format SnapshotFormat) (Snapshot, error) {
	var snap Snapshot
	switch format {
	case SnapshotFormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			if errors.Is(err, io.EOF) {
				return Snapshot{}, fmt.Errorf("%w: empty input", ErrInvalidSnapshot)
			}
			return Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
	case SnapshotFormatJSON, "":
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			if errors.Is(err, io.EOF) {
				return Snapshot{}, fmt.Errorf("%w: empty input", ErrInvalidSnapshot)
			}
			return Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("unknown snapshot format %q", format)
	}
	return snap, nil
}
