package tui

import (
	"time"

	"github.com/charmbracelet/log"
	zone "github.com/lrstanley/bubblezone"
)

// CardFieldConfig selects which optional card fields appear on the board.
type CardFieldConfig struct {
	ShowPriority    bool
	ShowDueDate     bool
	ShowTags        bool
	ShowAssignee    bool
	ShowDescription bool
}

// DragConfig controls mouse drag and drop.
type DragConfig struct {
	Enabled bool
	// ActivationDistance is the pointer travel, in cells, that turns a press into a drag.
	ActivationDistance float64
}

type Option func(*Model)

func DefaultCardFieldConfig() CardFieldConfig {
	return CardFieldConfig{
		ShowPriority:    true,
		ShowDueDate:     true,
		ShowTags:        true,
		ShowAssignee:    true,
		ShowDescription: false,
	}
}

func DefaultDragConfig() DragConfig {
	return DragConfig{Enabled: true, ActivationDistance: 1}
}

func WithCardFieldConfig(cfg CardFieldConfig) Option {
	return func(m *Model) {
		m.cardFields = cfg
	}
}

func WithDragConfig(cfg DragConfig) Option {
	return func(m *Model) {
		if cfg.ActivationDistance < 0 {
			cfg.ActivationDistance = 0
		}
		m.drag = cfg
	}
}

func WithWIPWarnings(show bool) Option {
	return func(m *Model) {
		m.showWIPWarnings = show
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboard replaces the clipboard writer used by the copy binding.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.clipboard = write
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithZoneManager shares a mouse zone manager with other components drawn in
// the same frame. Each model otherwise owns its own.
func WithZoneManager(manager *zone.Manager) Option {
	return func(m *Model) {
		if manager != nil {
			m.zones = newBoardZones(manager)
		}
	}
}
