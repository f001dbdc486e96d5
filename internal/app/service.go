package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/kanboard/internal/domain"
)

// ServiceConfig holds the optional collaborators of a Service.
type ServiceConfig struct {
	ColumnTemplates []ColumnTemplate
	Hooks           Hooks
	Logger          *log.Logger
}

// ColumnTemplate describes a column seeded into an empty board.
type ColumnTemplate struct {
	ID       string
	Title    string
	MaxCards int
	Color    string
}

// Hooks are notified after a mutation has been applied and persisted.
// Nil hooks are skipped. Hooks run outside the service lock.
type Hooks struct {
	OnCardMoved     func(cardID, fromColumnID, toColumnID string, index int)
	OnCardAdded     func(columnID string, card domain.Card)
	OnCardUpdated   func(cardID string, patch domain.CardPatch)
	OnCardDeleted   func(cardID, columnID string)
	OnColumnUpdated func(columnID string, patch domain.ColumnPatch)
	OnColumnDeleted func(columnID string)
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the authoritative board. Every mutation applies a pure domain
// function, persists the result and only then swaps it in.
type Service struct {
	mu        sync.Mutex
	store     BoardStore
	idGen     IDGenerator
	clock     Clock
	templates []ColumnTemplate
	hooks     Hooks
	logger    *log.Logger

	board  domain.Board
	loaded bool
}

// NewService builds a Service over store. A nil store keeps the
// board in memory only.
func NewService(store BoardStore, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	templates := sanitizeColumnTemplates(cfg.ColumnTemplates)
	if len(templates) == 0 {
		templates = DefaultColumnTemplates()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:     store,
		idGen:     idGen,
		clock:     clock,
		templates: templates,
		hooks:     cfg.Hooks,
		logger:    logger,
	}
}

// DefaultColumnTemplates returns the columns of a fresh board.
func DefaultColumnTemplates() []ColumnTemplate {
	return []ColumnTemplate{
		{ID: "todo", Title: "To Do"},
		{ID: "progress", Title: "In Progress"},
		{ID: "done", Title: "Done"},
	}
}

func sanitizeColumnTemplates(in []ColumnTemplate) []ColumnTemplate {
	out := make([]ColumnTemplate, 0, len(in))
	seen := map[string]struct{}{}
	for _, tpl := range in {
		tpl.Title = strings.TrimSpace(tpl.Title)
		if tpl.Title == "" {
			continue
		}
		tpl.ID = strings.TrimSpace(strings.ToLower(tpl.ID))
		if tpl.ID == "" {
			tpl.ID = slugify(tpl.Title)
		}
		if _, ok := seen[tpl.ID]; ok {
			continue
		}
		if tpl.MaxCards < 0 {
			tpl.MaxCards = 0
		}
		seen[tpl.ID] = struct{}{}
		out = append(out, tpl)
	}
	return out
}

func slugify(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

// Load reads the board from the store, seeding template columns when the
// store is empty. Without a store it seeds once and keeps the board in memory.
func (s *Service) Load(ctx context.Context) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		if !s.loaded {
			s.board = s.seedBoard()
			s.loaded = true
		}
		return s.board.Clone(), nil
	}

	board, found, err := s.store.LoadBoard(ctx)
	if err != nil {
		return domain.Board{}, fmt.Errorf("load board: %w", err)
	}
	if !found {
		board = s.seedBoard()
		if err := s.store.SaveBoard(ctx, board); err != nil {
			return domain.Board{}, fmt.Errorf("seed board: %w", err)
		}
		s.logger.Info("seeded board", "columns", len(board.Columns))
	}
	if err := domain.ValidateBoard(board); err != nil {
		return domain.Board{}, fmt.Errorf("load board: %w", err)
	}
	s.board = board
	s.loaded = true
	return s.board.Clone(), nil
}

func (s *Service) seedBoard() domain.Board {
	board := domain.Board{}
	for _, tpl := range s.templates {
		column, err := domain.NewColumn(tpl.ID, tpl.Title, tpl.MaxCards)
		if err != nil {
			continue
		}
		column.Color = tpl.Color
		board = domain.AddColumn(board, column)
	}
	return board
}

// Board returns a copy of the current board.
func (s *Service) Board() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

// commit persists next and swaps it in. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, op string, next domain.Board) error {
	if s.store != nil {
		if err := s.store.SaveBoard(ctx, next); err != nil {
			s.logger.Error("save board failed", "op", op, "err", err)
			return fmt.Errorf("%s: save board: %w", op, err)
		}
	}
	s.board = next
	return nil
}

// MoveCard moves cardID out of fromColumnID into toColumnID at index.
func (s *Service) MoveCard(ctx context.Context, cardID, fromColumnID, toColumnID string, index int) (domain.Board, error) {
	s.mu.Lock()
	from, ok := domain.FindColumn(s.board, fromColumnID)
	if !ok || from.CardIndex(cardID) < 0 {
		s.mu.Unlock()
		return domain.Board{}, fmt.Errorf("move card %s from %s: %w", cardID, fromColumnID, ErrNotFound)
	}
	if _, ok := domain.FindColumn(s.board, toColumnID); !ok {
		s.mu.Unlock()
		return domain.Board{}, fmt.Errorf("move card %s to %s: %w", cardID, toColumnID, ErrNotFound)
	}
	next := domain.MoveCard(s.board, cardID, fromColumnID, toColumnID, index, s.clock())
	if err := s.commit(ctx, "move card", next); err != nil {
		s.mu.Unlock()
		return domain.Board{}, err
	}
	out := next.Clone()
	s.mu.Unlock()

	// The domain clamps index, so report where the card actually landed.
	landed, _ := domain.FindColumn(out, toColumnID)
	final := landed.CardIndex(cardID)
	s.logger.Debug("card moved", "card", cardID, "from", fromColumnID, "to", toColumnID, "index", final)
	if s.hooks.OnCardMoved != nil {
		s.hooks.OnCardMoved(cardID, fromColumnID, toColumnID, final)
	}
	return out, nil
}

// AddCard creates a card at the end of columnID.
func (s *Service) AddCard(ctx context.Context, columnID string, in domain.CardInput) (domain.Card, error) {
	s.mu.Lock()
	if _, ok := domain.FindColumn(s.board, columnID); !ok {
		s.mu.Unlock()
		return domain.Card{}, fmt.Errorf("add card to %s: %w", columnID, ErrNotFound)
	}
	card, err := domain.NewCard(s.idGen(), in, s.clock())
	if err != nil {
		s.mu.Unlock()
		return domain.Card{}, err
	}
	if _, _, exists := domain.FindCard(s.board, card.ID); exists {
		s.mu.Unlock()
		return domain.Card{}, fmt.Errorf("add card %s: %w", card.ID, domain.ErrDuplicateID)
	}
	if err := s.commit(ctx, "add card", domain.AddCard(s.board, columnID, card)); err != nil {
		s.mu.Unlock()
		return domain.Card{}, err
	}
	s.mu.Unlock()

	s.logger.Debug("card added", "card", card.ID, "column", columnID)
	if s.hooks.OnCardAdded != nil {
		s.hooks.OnCardAdded(columnID, card.Clone())
	}
	return card, nil
}

// UpdateCard merges patch into cardID.
func (s *Service) UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error) {
	if err := patch.Validate(); err != nil {
		return domain.Card{}, err
	}
	s.mu.Lock()
	if _, _, ok := domain.FindCard(s.board, cardID); !ok {
		s.mu.Unlock()
		return domain.Card{}, fmt.Errorf("update card %s: %w", cardID, ErrNotFound)
	}
	next := domain.UpdateCard(s.board, cardID, patch, s.clock())
	if err := s.commit(ctx, "update card", next); err != nil {
		s.mu.Unlock()
		return domain.Card{}, err
	}
	card, _, _ := domain.FindCard(next, cardID)
	s.mu.Unlock()

	s.logger.Debug("card updated", "card", cardID)
	if s.hooks.OnCardUpdated != nil {
		s.hooks.OnCardUpdated(cardID, patch)
	}
	return card.Clone(), nil
}

// DeleteCard removes cardID from whichever column holds it.
func (s *Service) DeleteCard(ctx context.Context, cardID string) error {
	s.mu.Lock()
	_, columnID, ok := domain.FindCard(s.board, cardID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete card %s: %w", cardID, ErrNotFound)
	}
	if err := s.commit(ctx, "delete card", domain.DeleteCard(s.board, cardID, columnID)); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Debug("card deleted", "card", cardID, "column", columnID)
	if s.hooks.OnCardDeleted != nil {
		s.hooks.OnCardDeleted(cardID, columnID)
	}
	return nil
}

// AddColumn appends a new empty column.
func (s *Service) AddColumn(ctx context.Context, title string, maxCards int) (domain.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, err := domain.NewColumn(s.idGen(), title, maxCards)
	if err != nil {
		return domain.Column{}, err
	}
	if _, exists := domain.FindColumn(s.board, column.ID); exists {
		return domain.Column{}, fmt.Errorf("add column %s: %w", column.ID, domain.ErrDuplicateID)
	}
	if err := s.commit(ctx, "add column", domain.AddColumn(s.board, column)); err != nil {
		return domain.Column{}, err
	}
	s.logger.Debug("column added", "column", column.ID, "title", column.Title)
	return column, nil
}

// UpdateColumn merges patch into columnID.
func (s *Service) UpdateColumn(ctx context.Context, columnID string, patch domain.ColumnPatch) (domain.Column, error) {
	if err := patch.Validate(); err != nil {
		return domain.Column{}, err
	}
	s.mu.Lock()
	if _, ok := domain.FindColumn(s.board, columnID); !ok {
		s.mu.Unlock()
		return domain.Column{}, fmt.Errorf("update column %s: %w", columnID, ErrNotFound)
	}
	next := domain.UpdateColumn(s.board, columnID, patch)
	if err := s.commit(ctx, "update column", next); err != nil {
		s.mu.Unlock()
		return domain.Column{}, err
	}
	column, _ := domain.FindColumn(next, columnID)
	s.mu.Unlock()

	s.logger.Debug("column updated", "column", columnID)
	if s.hooks.OnColumnUpdated != nil {
		s.hooks.OnColumnUpdated(columnID, patch)
	}
	return column.Clone(), nil
}

// DeleteColumn removes columnID together with its cards.
func (s *Service) DeleteColumn(ctx context.Context, columnID string) error {
	s.mu.Lock()
	column, ok := domain.FindColumn(s.board, columnID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete column %s: %w", columnID, ErrNotFound)
	}
	if err := s.commit(ctx, "delete column", domain.DeleteColumn(s.board, columnID)); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Debug("column deleted", "column", columnID, "cards", len(column.Cards))
	if s.hooks.OnColumnDeleted != nil {
		s.hooks.OnColumnDeleted(columnID)
	}
	return nil
}
