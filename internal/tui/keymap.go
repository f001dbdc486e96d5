package tui

import (
	"strings"
	"unicode"

	"charm.land/bubbles/v2/key"
)

// keyMap holds the board key bindings.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	addCard      key.Binding
	cardInfo     key.Binding
	editCard     key.Binding
	deleteCard   key.Binding
	copyCard     key.Binding
	addColumn    key.Binding
	renameColumn key.Binding
	columnLimit  key.Binding
	deleteColumn key.Binding
	cancelDrag   key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		addCard:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new card")),
		cardInfo:     key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "card info")),
		editCard:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit card")),
		deleteCard:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete card")),
		copyCard:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy card")),
		addColumn:    key.NewBinding(key.WithKeys("C", "shift+c"), key.WithHelp("C", "new column")),
		renameColumn: key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "rename column")),
		columnLimit:  key.NewBinding(key.WithKeys("L", "shift+l"), key.WithHelp("L", "column limit")),
		deleteColumn: key.NewBinding(key.WithKeys("X", "shift+x"), key.WithHelp("X", "delete column")),
		cancelDrag:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
	}
}

// ShortHelp returns the bindings shown in the collapsed help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addCard, k.cardInfo, k.editCard, k.deleteCard, k.addColumn, k.toggleHelp, k.quit,
	}
}

// FullHelp returns every binding, grouped by concern.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addCard, k.cardInfo, k.editCard, k.deleteCard, k.copyCard},
		{k.addColumn, k.renameColumn, k.columnLimit, k.deleteColumn},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.cancelDrag},
		{k.reload, k.toggleHelp, k.quit},
	}
}

// KeyConfig overrides the keys of selected bindings. Blank fields keep the default.
type KeyConfig struct {
	AddCard    string
	EditCard   string
	DeleteCard string
	CardInfo   string
	CopyCard   string
	Reload     string
}

// applyConfig applies key overrides from cfg.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.addCard, cfg.AddCard, "n", "new card")
	configureBinding(&k.editCard, cfg.EditCard, "e", "edit card")
	configureBinding(&k.deleteCard, cfg.DeleteCard, "d", "delete card")
	configureBinding(&k.copyCard, cfg.CopyCard, "y", "copy card")
	configureBinding(&k.reload, cfg.Reload, "r", "reload")
	if strings.TrimSpace(cfg.CardInfo) != "" {
		keys, help := parseBindingKeys(cfg.CardInfo, "i")
		k.cardInfo.SetKeys(append(keys, "enter")...)
		k.cardInfo.SetHelp(help+"/enter", "card info")
	}
}

// configureBinding replaces b's keys with raw, or fallback when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns a configured key into matcher keys and help text.
// Single uppercase runes also match their shift+ form.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") || raw == " " {
		return []string{" ", "space"}, "space"
	}
	runes := []rune(raw)
	if len(runes) == 1 {
		r := runes[0]
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}
