package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/kanboard/internal/domain"
)

// Card form field indexes.
const (
	cardFieldTitle = iota
	cardFieldDescription
	cardFieldPriority
	cardFieldTags
	cardFieldAssignee
	cardFieldDue
)

var cardFormLabels = []string{"title", "description", "priority", "tags", "assignee", "due"}

// newModalInput constructs a text input for forms and prompts.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// startCardForm opens the card form, prefilled from card when editing.
func (m *Model) startCardForm(card *domain.Card) tea.Cmd {
	m.formFocus = 0
	m.formInputs = []textinput.Model{
		newModalInput("", "card title (required)", "", 120),
		newModalInput("", "markdown description", "", 1000),
		newModalInput("", "low | medium | high", "", 16),
		newModalInput("", "csv tags", "", 160),
		newModalInput("", "who owns it", "", 80),
		newModalInput("", "YYYY-MM-DD[THH:MM] or -", "", 32),
	}
	if card != nil {
		m.formInputs[cardFieldTitle].SetValue(card.Title)
		m.formInputs[cardFieldDescription].SetValue(card.Description)
		m.formInputs[cardFieldPriority].SetValue(string(card.Priority))
		m.formInputs[cardFieldTags].SetValue(strings.Join(card.Tags, ","))
		m.formInputs[cardFieldAssignee].SetValue(card.Assignee)
		m.formInputs[cardFieldDue].SetValue(formatDueValue(card.DueAt))
		m.mode = modeEditCard
		m.editingCardID = card.ID
		m.status = "edit card"
	} else {
		m.mode = modeAddCard
		m.editingCardID = ""
		m.formColumnID = m.selectedColumnID()
		m.status = "new card"
	}
	return m.focusFormField(0)
}

// focusFormField focuses the card form field at idx.
func (m *Model) focusFormField(idx int) tea.Cmd {
	if len(m.formInputs) == 0 {
		return nil
	}
	idx = clamp(idx, 0, len(m.formInputs)-1)
	m.formFocus = idx
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	return m.formInputs[idx].Focus()
}

// handleFormKey routes keys while the card form is open.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForm()
		m.status = "cancelled"
		return m, nil
	case "tab", "down":
		return m, m.focusFormField((m.formFocus + 1) % len(m.formInputs))
	case "shift+tab", "up":
		return m, m.focusFormField((m.formFocus - 1 + len(m.formInputs)) % len(m.formInputs))
	case "enter":
		return m.submitCardForm()
	}
	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

// closeForm drops every form and prompt input.
func (m *Model) closeForm() {
	m.mode = modeNone
	m.formInputs = nil
	m.formFocus = 0
	m.editingCardID = ""
	m.formColumnID = ""
	m.promptColumnID = ""
	m.promptInput.Blur()
}

// formValue returns the trimmed value of field idx.
func (m Model) formValue(idx int) string {
	if idx < 0 || idx >= len(m.formInputs) {
		return ""
	}
	return strings.TrimSpace(m.formInputs[idx].Value())
}

// submitCardForm validates the form and issues the add or update command.
func (m Model) submitCardForm() (tea.Model, tea.Cmd) {
	title := m.formValue(cardFieldTitle)
	if title == "" {
		m.status = "title required"
		return m, nil
	}
	priority, err := domain.ParsePriority(m.formValue(cardFieldPriority))
	if err != nil {
		m.status = "priority must be low, medium, high or blank"
		return m, nil
	}
	dueAt, err := parseDueInput(m.formValue(cardFieldDue))
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	description := m.formValue(cardFieldDescription)
	tags := parseTagsInput(m.formValue(cardFieldTags))
	assignee := m.formValue(cardFieldAssignee)

	if m.mode == modeEditCard {
		cardID := m.editingCardID
		patch := domain.CardPatch{
			Title:       &title,
			Description: &description,
			Tags:        &tags,
			Priority:    &priority,
			Assignee:    &assignee,
			DueAt:       dueAt,
			ClearDueAt:  dueAt == nil,
		}
		m.closeForm()
		m.status = "saving..."
		return m, func() tea.Msg {
			card, err := m.svc.UpdateCard(context.Background(), cardID, patch)
			if err != nil {
				return actionMsg{err: fmt.Errorf("update card: %w", err)}
			}
			return actionMsg{status: "updated " + card.Title, reload: true, focusCardID: card.ID}
		}
	}

	columnID := m.formColumnID
	in := domain.CardInput{
		Title:       title,
		Description: description,
		Tags:        tags,
		Priority:    priority,
		Assignee:    assignee,
		DueAt:       dueAt,
	}
	m.closeForm()
	m.status = "saving..."
	return m, func() tea.Msg {
		card, err := m.svc.AddCard(context.Background(), columnID, in)
		if err != nil {
			return actionMsg{err: fmt.Errorf("add card: %w", err)}
		}
		return actionMsg{status: "added " + card.Title, reload: true, focusCardID: card.ID}
	}
}

// startColumnPrompt opens the single-line prompt used by column actions.
func (m *Model) startColumnPrompt(mode inputMode) tea.Cmd {
	column, hasColumn := m.selectedColumn()
	switch mode {
	case modeAddColumn:
		m.promptInput = newModalInput("title: ", "column title", "", 80)
		m.status = "new column"
	case modeRenameColumn:
		if !hasColumn {
			m.status = "no column selected"
			return nil
		}
		m.promptInput = newModalInput("title: ", "column title", column.Title, 80)
		m.status = "rename column"
	case modeColumnLimit:
		if !hasColumn {
			m.status = "no column selected"
			return nil
		}
		m.promptInput = newModalInput("max cards: ", "0 for unlimited", strconv.Itoa(column.MaxCards), 6)
		m.status = "column limit"
	default:
		return nil
	}
	m.mode = mode
	m.promptColumnID = column.ID
	return m.promptInput.Focus()
}

// handlePromptKey routes keys while a column prompt is open.
func (m Model) handlePromptKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForm()
		m.status = "cancelled"
		return m, nil
	case "enter":
		return m.submitColumnPrompt()
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

// submitColumnPrompt issues the column command for the open prompt.
func (m Model) submitColumnPrompt() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.promptInput.Value())
	columnID := m.promptColumnID
	mode := m.mode

	switch mode {
	case modeAddColumn, modeRenameColumn:
		if value == "" {
			m.status = "title required"
			return m, nil
		}
	case modeColumnLimit:
		if value == "" {
			value = "0"
		}
	}

	var cmd tea.Cmd
	switch mode {
	case modeAddColumn:
		cmd = func() tea.Msg {
			column, err := m.svc.AddColumn(context.Background(), value, 0)
			if err != nil {
				return actionMsg{err: fmt.Errorf("add column: %w", err)}
			}
			return actionMsg{status: "added column " + column.Title, reload: true, focusColumnID: column.ID}
		}
	case modeRenameColumn:
		cmd = func() tea.Msg {
			column, err := m.svc.UpdateColumn(context.Background(), columnID, domain.ColumnPatch{Title: &value})
			if err != nil {
				return actionMsg{err: fmt.Errorf("rename column: %w", err)}
			}
			return actionMsg{status: "renamed column " + column.Title, reload: true}
		}
	case modeColumnLimit:
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			m.status = "max cards must be a number >= 0"
			return m, nil
		}
		cmd = func() tea.Msg {
			column, err := m.svc.UpdateColumn(context.Background(), columnID, domain.ColumnPatch{MaxCards: &limit})
			if err != nil {
				return actionMsg{err: fmt.Errorf("set column limit: %w", err)}
			}
			return actionMsg{status: fmt.Sprintf("%s limit %d", column.Title, column.MaxCards), reload: true}
		}
	default:
		return m, nil
	}
	m.closeForm()
	m.status = "saving..."
	return m, cmd
}

// parseDueInput parses a due date. Blank and "-" clear it.
func parseDueInput(raw string) (*time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" || text == "-" {
		return nil, nil
	}
	layouts := []string{
		"2006-01-02",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		time.RFC3339,
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			ts := parsed.UTC()
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("due date must be YYYY-MM-DD, YYYY-MM-DDTHH:MM, RFC3339, or -")
}

// formatDueValue formats a due date for compact display and editing.
func formatDueValue(dueAt *time.Time) string {
	if dueAt == nil {
		return "-"
	}
	due := dueAt.UTC()
	if due.Hour() == 0 && due.Minute() == 0 {
		return due.Format("2006-01-02")
	}
	return due.Format("2006-01-02 15:04")
}

// parseTagsInput splits comma separated tags. "-" means none.
func parseTagsInput(raw string) []string {
	text := strings.TrimSpace(raw)
	if text == "" || text == "-" {
		return []string{}
	}
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, tag := range parts {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
