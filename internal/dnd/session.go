package dnd

import (
	"time"

	"github.com/evanschultz/kanboard/internal/domain"
)

// Phase is the drag session state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Position places a pending drop relative to its target.
type Position string

const (
	PositionNone   Position = ""
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	// PositionColumn means the empty region of a column: insert at its end.
	PositionColumn Position = "column"
)

// PendingDrop describes where the dragged card would land if released now.
// The zero value means there is no target.
type PendingDrop struct {
	CardID   string
	ColumnID string
	Position Position
}

// Empty reports whether the drop has no target.
func (d PendingDrop) Empty() bool {
	return d == PendingDrop{}
}

// Move describes a committed card move.
type Move struct {
	CardID       string
	FromColumnID string
	ToColumnID   string
	Index        int
}

// Sample is one pointer-over observation.
type Sample struct {
	Pointer    *Point
	ActiveRect Rect
	HasRect    bool
	Droppables []Droppable
}

// Listener receives session notifications. Nil callbacks are skipped.
type Listener struct {
	OnDragStart func(cardID string)
	// OnDragOver receives nil when the pending drop is cleared.
	OnDragOver  func(drop *PendingDrop)
	OnCardMoved func(move Move)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithResolver replaces the default collision resolver.
func WithResolver(r *Resolver) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithListener attaches session notifications.
func WithListener(l Listener) SessionOption {
	return func(s *Session) {
		s.listener = l
	}
}

// WithEnabled toggles drag and drop. A disabled session refuses to start.
func WithEnabled(enabled bool) SessionOption {
	return func(s *Session) {
		s.disabled = !enabled
	}
}

// dragState is everything that lives only while a drag is in progress.
type dragState struct {
	phase        Phase
	cardID       string
	fromColumnID string
	pending      PendingDrop
}

// Session is the drag controller: idle until a card drag starts, dragging
// while pointer samples arrive, back to idle on drop or cancel.
type Session struct {
	resolver *Resolver
	listener Listener
	disabled bool
	state    dragState
}

// NewSession constructs an idle session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{resolver: DefaultResolver()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Phase returns the current state.
func (s *Session) Phase() Phase { return s.state.phase }

// Dragging reports whether a card is being dragged.
func (s *Session) Dragging() bool { return s.state.phase == PhaseDragging }

// ActiveCardID returns the dragged card, or "" when idle.
func (s *Session) ActiveCardID() string { return s.state.cardID }

// SourceColumnID returns the column the dragged card started in.
func (s *Session) SourceColumnID() string { return s.state.fromColumnID }

// Pending returns the current pending drop.
func (s *Session) Pending() PendingDrop { return s.state.pending }

// Start begins dragging cardID. It reports false, leaving the session idle,
// when drag and drop is disabled or the card is not on the board.
func (s *Session) Start(board domain.Board, cardID string) bool {
	if s.disabled {
		s.reset()
		return false
	}
	_, columnID, ok := domain.FindCard(board, cardID)
	if !ok {
		s.reset()
		return false
	}
	s.state = dragState{phase: PhaseDragging, cardID: cardID, fromColumnID: columnID}
	if s.listener.OnDragStart != nil {
		s.listener.OnDragStart(cardID)
	}
	return true
}

// Over resolves one pointer sample into a pending drop. It reports true only
// when the drop differs from the previous sample; listeners are notified on
// the same condition.
func (s *Session) Over(sample Sample) (PendingDrop, bool) {
	if s.state.phase != PhaseDragging {
		return PendingDrop{}, false
	}
	next := s.classify(sample)
	if next == s.state.pending {
		return next, false
	}
	s.state.pending = next
	if s.listener.OnDragOver != nil {
		if next.Empty() {
			s.listener.OnDragOver(nil)
		} else {
			drop := next
			s.listener.OnDragOver(&drop)
		}
	}
	return next, true
}

func (s *Session) classify(sample Sample) PendingDrop {
	target, ok := s.resolver.First(Args{
		ActiveCardID:  s.state.cardID,
		ActiveRect:    sample.ActiveRect,
		HasActiveRect: sample.HasRect,
		Pointer:       sample.Pointer,
		Droppables:    sample.Droppables,
	})
	if !ok {
		return PendingDrop{}
	}
	switch target.Kind {
	case KindCard:
		// Without the dragged card's rect there is no way to tell before
		// from after, so the previous drop stands.
		if !sample.HasRect {
			return s.state.pending
		}
		position := PositionAfter
		if sample.ActiveRect.Top < target.Rect.Top {
			position = PositionBefore
		}
		return PendingDrop{CardID: target.CardID, ColumnID: target.ColumnID, Position: position}
	case KindColumn:
		return PendingDrop{ColumnID: target.ColumnID, Position: PositionColumn}
	default:
		return PendingDrop{}
	}
}

// Drop commits the pending drop against board and returns the new board.
// The session is idle afterwards whatever the outcome. ok is false when the
// drop was cancelled or would not change the card's position.
func (s *Session) Drop(board domain.Board, now time.Time) (domain.Board, Move, bool) {
	state := s.state
	s.reset()
	if state.phase != PhaseDragging || state.pending.Empty() {
		return board, Move{}, false
	}

	_, fromColumnID, found := domain.FindCard(board, state.cardID)
	if !found {
		return board, Move{}, false
	}
	target, found := domain.FindColumn(board, state.pending.ColumnID)
	if !found {
		return board, Move{}, false
	}

	var insertIndex int
	switch state.pending.Position {
	case PositionColumn:
		insertIndex = len(target.Cards)
	case PositionBefore, PositionAfter:
		insertIndex = target.CardIndex(state.pending.CardID)
		if insertIndex < 0 {
			return board, Move{}, false
		}
		if state.pending.Position == PositionAfter {
			insertIndex++
		}
	default:
		return board, Move{}, false
	}

	if fromColumnID == target.ID {
		activeIndex := target.CardIndex(state.cardID)
		if activeIndex < insertIndex {
			insertIndex--
		}
		if activeIndex == insertIndex {
			return board, Move{}, false
		}
	}

	move := Move{
		CardID:       state.cardID,
		FromColumnID: fromColumnID,
		ToColumnID:   target.ID,
		Index:        insertIndex,
	}
	out := domain.MoveCard(board, move.CardID, move.FromColumnID, move.ToColumnID, move.Index, now)
	if s.listener.OnCardMoved != nil {
		s.listener.OnCardMoved(move)
	}
	return out, move, true
}

// Cancel abandons the drag without touching the board.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.state = dragState{}
}
