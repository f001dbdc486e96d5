package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/evanschultz/kanboard/internal/dnd"
	"github.com/evanschultz/kanboard/internal/domain"
)

// Service is the board API the model drives.
type Service interface {
	Load(context.Context) (domain.Board, error)
	MoveCard(ctx context.Context, cardID, fromColumnID, toColumnID string, index int) (domain.Board, error)
	AddCard(ctx context.Context, columnID string, in domain.CardInput) (domain.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	AddColumn(ctx context.Context, title string, maxCards int) (domain.Column, error)
	UpdateColumn(ctx context.Context, columnID string, patch domain.ColumnPatch) (domain.Column, error)
	DeleteColumn(ctx context.Context, columnID string) error
}

// inputMode is the modal state of the board.
type inputMode int

const (
	modeNone inputMode = iota
	modeAddCard
	modeEditCard
	modeAddColumn
	modeRenameColumn
	modeColumnLimit
	modeConfirm
	modeCardInfo
)

// modeLabel returns a short label for the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddCard:
		return "new card"
	case modeEditCard:
		return "edit card"
	case modeAddColumn:
		return "new column"
	case modeRenameColumn:
		return "rename column"
	case modeColumnLimit:
		return "column limit"
	case modeConfirm:
		return "confirm"
	case modeCardInfo:
		return "card info"
	}
	if m.session.Dragging() {
		return "dragging"
	}
	return "board"
}

// confirmAction is a destructive action waiting for y/n.
type confirmAction struct {
	kind     string
	cardID   string
	columnID string
	label    string
}

// Model is the bubbletea model for the board.
type Model struct {
	svc    Service
	logger *log.Logger

	ready  bool
	loaded bool
	width  int
	height int
	err    error
	status string

	board             domain.Board
	selectedColumnIdx int
	selectedCardIdx   int
	columnOffset      int
	scroll            map[string]int
	pendingCardID     string
	pendingColumnID   string

	mode inputMode
	help help.Model
	keys keyMap

	cardFields      CardFieldConfig
	showWIPWarnings bool
	drag            DragConfig

	zones       boardZones
	session     *dnd.Session
	sensor      *dnd.PointerSensor
	dragOrigin  dnd.Rect
	dragPointer dnd.Point

	formInputs     []textinput.Model
	formFocus      int
	editingCardID  string
	formColumnID   string
	promptInput    textinput.Model
	promptColumnID string
	confirm        confirmAction
	infoCardID     string

	markdown  *markdownRenderer
	clipboard func(string) error
	now       func() time.Time
}

// loadedMsg carries a freshly loaded board.
type loadedMsg struct {
	board domain.Board
	err   error
}

// actionMsg carries the outcome of a service command.
type actionMsg struct {
	err           error
	status        string
	reload        bool
	focusCardID   string
	focusColumnID string
}

// NewModel constructs a board model backed by svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:             svc,
		logger:          log.Default(),
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		cardFields:      DefaultCardFieldConfig(),
		showWIPWarnings: true,
		drag:            DefaultDragConfig(),
		scroll:          map[string]int{},
		markdown:        &markdownRenderer{},
		clipboard:       clipboard.WriteAll,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.zones.manager == nil {
		m.zones = newBoardZones(nil)
	}
	logger := m.logger
	m.session = dnd.NewSession(
		dnd.WithEnabled(m.drag.Enabled),
		dnd.WithListener(dnd.Listener{
			OnDragStart: func(cardID string) {
				logger.Debug("drag start", "card", cardID)
			},
			OnDragOver: func(drop *dnd.PendingDrop) {
				if drop == nil {
					logger.Debug("drag over", "target", "none")
					return
				}
				logger.Debug("drag over", "column", drop.ColumnID, "card", drop.CardID, "position", drop.Position)
			},
			OnCardMoved: func(move dnd.Move) {
				logger.Info("card moved", "card", move.CardID, "from", move.FromColumnID, "to", move.ToColumnID, "index", move.Index)
			},
		}),
	)
	m.sensor = dnd.NewPointerSensor(m.drag.ActivationDistance)
	return m
}

// Init starts the first board load.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData loads the board from the service.
func (m Model) loadData() tea.Msg {
	board, err := m.svc.Load(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{board: board}
}

// Update applies one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.clampSelections()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			if !m.loaded {
				m.err = msg.err
			}
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.board = msg.board
		if m.session.Dragging() {
			if _, _, ok := domain.FindCard(m.board, m.session.ActiveCardID()); !ok {
				m.cancelDrag()
				m.status = "drag cancelled"
			}
		}
		if m.pendingCardID != "" {
			m.focusCard(m.pendingCardID)
			m.pendingCardID = ""
		} else if m.pendingColumnID != "" {
			m.focusColumn(m.pendingColumnID)
			m.pendingColumnID = ""
		}
		m.clampSelections()
		if m.status == "loading..." || m.status == "" {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.logger.Error("board action failed", "err", msg.err)
			m.status = "error: " + msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		if msg.focusCardID != "" {
			m.pendingCardID = msg.focusCardID
		}
		if msg.focusColumnID != "" {
			m.pendingColumnID = msg.focusColumnID
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// handleKey routes a key press by mode.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case modeAddCard, modeEditCard:
		return m.handleFormKey(msg)
	case modeAddColumn, modeRenameColumn, modeColumnLimit:
		return m.handlePromptKey(msg)
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeCardInfo:
		return m.handleInfoKey(msg)
	}

	if m.err != nil {
		switch {
		case key.Matches(msg, m.keys.reload):
			m.status = "loading..."
			return m, m.loadData
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.cancelDrag) {
		if m.cancelDrag() {
			m.status = "drag cancelled"
		}
		return m, nil
	}
	if m.session.Dragging() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		m.selectColumn(m.selectedColumnIdx - 1)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectColumn(m.selectedColumnIdx + 1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectCard(m.selectedCardIdx - 1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectCard(m.selectedCardIdx + 1)
		return m, nil
	case key.Matches(msg, m.keys.addCard):
		if _, ok := m.selectedColumn(); !ok {
			m.status = "add a column first"
			return m, nil
		}
		return m, m.startCardForm(nil)
	case key.Matches(msg, m.keys.editCard):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m, m.startCardForm(&card)
	case key.Matches(msg, m.keys.cardInfo):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.mode = modeCardInfo
		m.infoCardID = card.ID
		m.status = "card info"
		return m, nil
	case key.Matches(msg, m.keys.deleteCard):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.startConfirm(confirmAction{kind: "card", cardID: card.ID, label: card.Title})
		return m, nil
	case key.Matches(msg, m.keys.copyCard):
		return m.copySelectedCard()
	case key.Matches(msg, m.keys.addColumn):
		return m, m.startColumnPrompt(modeAddColumn)
	case key.Matches(msg, m.keys.renameColumn):
		return m, m.startColumnPrompt(modeRenameColumn)
	case key.Matches(msg, m.keys.columnLimit):
		return m, m.startColumnPrompt(modeColumnLimit)
	case key.Matches(msg, m.keys.deleteColumn):
		column, ok := m.selectedColumn()
		if !ok {
			m.status = "no column selected"
			return m, nil
		}
		m.startConfirm(confirmAction{kind: "column", columnID: column.ID, label: column.Title})
		return m, nil
	}
	return m, nil
}

// startConfirm asks for confirmation of action.
func (m *Model) startConfirm(action confirmAction) {
	m.mode = modeConfirm
	m.confirm = action
	m.status = fmt.Sprintf("delete %s %q? y/n", action.kind, action.label)
}

// handleConfirmKey resolves the pending confirmation.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	action := m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
	case "n", "N", "esc":
		m.mode = modeNone
		m.confirm = confirmAction{}
		m.status = "cancelled"
		return m, nil
	default:
		return m, nil
	}
	m.mode = modeNone
	m.confirm = confirmAction{}
	m.status = "deleting..."
	switch action.kind {
	case "card":
		return m, func() tea.Msg {
			if err := m.svc.DeleteCard(context.Background(), action.cardID); err != nil {
				return actionMsg{err: fmt.Errorf("delete card: %w", err)}
			}
			return actionMsg{status: "deleted " + action.label, reload: true}
		}
	case "column":
		return m, func() tea.Msg {
			if err := m.svc.DeleteColumn(context.Background(), action.columnID); err != nil {
				return actionMsg{err: fmt.Errorf("delete column: %w", err)}
			}
			return actionMsg{status: "deleted column " + action.label, reload: true}
		}
	}
	return m, nil
}

// handleInfoKey handles keys while the card info overlay is open.
func (m Model) handleInfoKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc", key.Matches(msg, m.keys.cardInfo):
		m.mode = modeNone
		m.infoCardID = ""
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.editCard):
		card, _, ok := domain.FindCard(m.board, m.infoCardID)
		m.infoCardID = ""
		if !ok {
			m.mode = modeNone
			return m, nil
		}
		return m, m.startCardForm(&card)
	case key.Matches(msg, m.keys.copyCard):
		return m.copySelectedCard()
	}
	return m, nil
}

// copySelectedCard writes the selected card to the clipboard as markdown.
func (m Model) copySelectedCard() (tea.Model, tea.Cmd) {
	card, ok := m.selectedCard()
	if m.mode == modeCardInfo {
		card, _, ok = domain.FindCard(m.board, m.infoCardID)
	}
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	if err := m.clipboard(cardMarkdown(card)); err != nil {
		m.logger.Warn("clipboard write failed", "err", err)
		m.status = "copy failed: " + err.Error()
		return m, nil
	}
	m.status = "copied " + card.Title
	return m, nil
}

// cardMarkdown renders card as a markdown snippet.
func cardMarkdown(card domain.Card) string {
	var b strings.Builder
	b.WriteString("## " + card.Title + "\n")
	if card.Priority != domain.PriorityNone {
		b.WriteString("\n- priority: " + string(card.Priority))
	}
	if card.Assignee != "" {
		b.WriteString("\n- assignee: " + card.Assignee)
	}
	if card.DueAt != nil {
		b.WriteString("\n- due: " + formatDueValue(card.DueAt))
	}
	if len(card.Tags) > 0 {
		b.WriteString("\n- tags: " + strings.Join(card.Tags, ", "))
	}
	if card.Description != "" {
		b.WriteString("\n\n" + card.Description)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// layout computes the board geometry for the current frame.
func (m Model) layout() boardLayout {
	return computeLayout(m.board, m.width, m.height, m.columnOffset, m.scroll)
}

// selectedColumn returns the selected column.
func (m Model) selectedColumn() (domain.Column, bool) {
	if len(m.board.Columns) == 0 {
		return domain.Column{}, false
	}
	return m.board.Columns[clamp(m.selectedColumnIdx, 0, len(m.board.Columns)-1)], true
}

// selectedColumnID returns the selected column id, or "".
func (m Model) selectedColumnID() string {
	column, _ := m.selectedColumn()
	return column.ID
}

// selectedCard returns the selected card.
func (m Model) selectedCard() (domain.Card, bool) {
	column, ok := m.selectedColumn()
	if !ok || len(column.Cards) == 0 {
		return domain.Card{}, false
	}
	return column.Cards[clamp(m.selectedCardIdx, 0, len(column.Cards)-1)], true
}

// activeCard returns the card being dragged.
func (m Model) activeCard() (domain.Card, string, bool) {
	if !m.session.Dragging() {
		return domain.Card{}, "", false
	}
	return domain.FindCard(m.board, m.session.ActiveCardID())
}

// selectColumn selects column idx, keeping the card row where possible.
func (m *Model) selectColumn(idx int) {
	if len(m.board.Columns) == 0 {
		return
	}
	m.selectedColumnIdx = clamp(idx, 0, len(m.board.Columns)-1)
	m.clampSelections()
}

// selectCard selects card idx within the selected column.
func (m *Model) selectCard(idx int) {
	m.selectedCardIdx = idx
	m.clampSelections()
}

// focusCard selects cardID wherever it is.
func (m *Model) focusCard(cardID string) {
	for ci, column := range m.board.Columns {
		if k := column.CardIndex(cardID); k >= 0 {
			m.selectedColumnIdx = ci
			m.selectedCardIdx = k
			m.clampSelections()
			return
		}
	}
}

// focusColumn selects columnID.
func (m *Model) focusColumn(columnID string) {
	for ci, column := range m.board.Columns {
		if column.ID == columnID {
			m.selectedColumnIdx = ci
			m.selectedCardIdx = 0
			m.clampSelections()
			return
		}
	}
}

// clampSelections keeps the selection valid and scrolled into view.
func (m *Model) clampSelections() {
	if len(m.board.Columns) == 0 {
		m.selectedColumnIdx = 0
		m.selectedCardIdx = 0
		m.columnOffset = 0
		return
	}
	m.selectedColumnIdx = clamp(m.selectedColumnIdx, 0, len(m.board.Columns)-1)
	column := m.board.Columns[m.selectedColumnIdx]
	m.selectedCardIdx = clamp(m.selectedCardIdx, 0, max(0, len(column.Cards)-1))

	visible := visibleColumnCount(len(m.board.Columns), m.width)
	if m.selectedColumnIdx < m.columnOffset {
		m.columnOffset = m.selectedColumnIdx
	}
	if m.selectedColumnIdx >= m.columnOffset+visible {
		m.columnOffset = m.selectedColumnIdx - visible + 1
	}
	m.columnOffset = clamp(m.columnOffset, 0, max(0, len(m.board.Columns)-visible))

	if len(column.Cards) == 0 {
		return
	}
	slots := visibleCardSlots(columnInnerHeight(m.height))
	offset := m.scroll[column.ID]
	if m.selectedCardIdx < offset {
		offset = m.selectedCardIdx
	}
	if m.selectedCardIdx >= offset+slots {
		offset = m.selectedCardIdx - slots + 1
	}
	m.scroll[column.ID] = clamp(offset, 0, max(0, len(column.Cards)-slots))
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
