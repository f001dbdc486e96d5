package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Board      BoardConfig      `toml:"board"`
	CardFields CardFieldsConfig `toml:"card_fields"`
	Drag       DragConfig       `toml:"drag"`
	Keys       KeyConfig        `toml:"keys"`
	Logging    LoggingConfig    `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// BoardConfig seeds the columns of a new board. Existing boards keep their own columns.
type BoardConfig struct {
	Columns         []ColumnConfig `toml:"columns"`
	ShowWIPWarnings bool           `toml:"show_wip_warnings"`
}

type ColumnConfig struct {
	ID       string `toml:"id"`
	Title    string `toml:"title"`
	MaxCards int    `toml:"max_cards"`
	Color    string `toml:"color"`
}

type CardFieldsConfig struct {
	ShowPriority    bool `toml:"show_priority"`
	ShowDueDate     bool `toml:"show_due_date"`
	ShowTags        bool `toml:"show_tags"`
	ShowAssignee    bool `toml:"show_assignee"`
	ShowDescription bool `toml:"show_description"`
}

type DragConfig struct {
	Enabled bool `toml:"enabled"`
	// ActivationDistance is how far, in cells, the pointer must travel after
	// a press before a drag starts.
	ActivationDistance float64 `toml:"activation_distance"`
}

// KeyConfig overrides TUI key bindings. Blank values keep the built-in keys.
type KeyConfig struct {
	AddCard    string `toml:"add_card"`
	EditCard   string `toml:"edit_card"`
	DeleteCard string `toml:"delete_card"`
	CardInfo   string `toml:"card_info"`
	CopyCard   string `toml:"copy_card"`
	Reload     string `toml:"reload"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
	"fatal": {},
}

func defaultColumns() []ColumnConfig {
	return []ColumnConfig{
		{ID: "todo", Title: "To Do"},
		{ID: "progress", Title: "In Progress"},
		{ID: "done", Title: "Done"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Board: BoardConfig{
			Columns:         defaultColumns(),
			ShowWIPWarnings: true,
		},
		CardFields: CardFieldsConfig{
			ShowPriority:    true,
			ShowDueDate:     true,
			ShowTags:        true,
			ShowAssignee:    true,
			ShowDescription: false,
		},
		Drag: DragConfig{
			Enabled:            true,
			ActivationDistance: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".kanboard/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	cfg.Board.Columns = append([]ColumnConfig(nil), defaults.Board.Columns...)
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// Columns from the file replace the defaults instead of extending them.
	cfg.Board.Columns = nil
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Board.Columns) == 0 {
		cfg.Board.Columns = append([]ColumnConfig(nil), defaults.Board.Columns...)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	for i := range c.Board.Columns {
		c.Board.Columns[i].ID = strings.ToLower(strings.TrimSpace(c.Board.Columns[i].ID))
		c.Board.Columns[i].Title = strings.TrimSpace(c.Board.Columns[i].Title)
		c.Board.Columns[i].Color = strings.TrimSpace(c.Board.Columns[i].Color)
	}
	for _, field := range []*string{&c.Keys.AddCard, &c.Keys.EditCard, &c.Keys.DeleteCard, &c.Keys.CardInfo, &c.Keys.CopyCard, &c.Keys.Reload} {
		*field = strings.TrimSpace(*field)
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if len(c.Board.Columns) == 0 {
		return errors.New("board.columns must include at least one column")
	}
	seenColumnID := map[string]struct{}{}
	for idx, column := range c.Board.Columns {
		id := strings.ToLower(strings.TrimSpace(column.ID))
		if strings.TrimSpace(column.Title) == "" {
			return fmt.Errorf("board.columns[%d].title is required", idx)
		}
		if column.MaxCards < 0 {
			return fmt.Errorf("board.columns[%d].max_cards must be >= 0", idx)
		}
		if id == "" {
			continue
		}
		if _, ok := seenColumnID[id]; ok {
			return fmt.Errorf("board.columns[%d].id is duplicated: %s", idx, id)
		}
		seenColumnID[id] = struct{}{}
	}

	if c.Drag.ActivationDistance < 0 {
		return fmt.Errorf("drag.activation_distance must be >= 0, got %v", c.Drag.ActivationDistance)
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if _, ok := validLogLevels[level]; !ok {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes cfg to path unless a file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
