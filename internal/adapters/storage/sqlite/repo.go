package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/kanboard/internal/app"
	"github.com/evanschultz/kanboard/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql name of the modernc sqlite driver.
const driverName = "sqlite"

var _ app.BoardStore = (*Repository)(nil)

// Repository stores one board in a sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the board database at path, creating its directory.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	dsn := fmt.Sprintf("file:kanboard-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the board tables and indexes when missing.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS board_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS board_columns (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			max_cards INTEGER NOT NULL DEFAULT 0,
			color TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			column_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags_json TEXT NOT NULL DEFAULT '[]',
			priority TEXT NOT NULL DEFAULT '',
			assignee TEXT NOT NULL DEFAULT '',
			due_at TEXT,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(column_id) REFERENCES board_columns(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_column_position ON cards(column_id, position);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// LoadBoard reads every column and card in position order. found is false
// until the first SaveBoard.
func (r *Repository) LoadBoard(ctx context.Context) (domain.Board, bool, error) {
	var savedAt string
	err := r.db.QueryRowContext(ctx, `SELECT saved_at FROM board_state WHERE id = 1`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, false, nil
	}
	if err != nil {
		return domain.Board{}, false, fmt.Errorf("read board state: %w", err)
	}

	columns, err := r.listColumns(ctx)
	if err != nil {
		return domain.Board{}, false, err
	}
	byID := make(map[string]int, len(columns))
	for i, column := range columns {
		byID[column.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, column_id, title, description, tags_json, priority, assignee, due_at, metadata_json, created_at, updated_at
		FROM cards
		ORDER BY column_id, position ASC
	`)
	if err != nil {
		return domain.Board{}, false, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		card, columnID, err := scanCard(rows)
		if err != nil {
			return domain.Board{}, false, err
		}
		idx, ok := byID[columnID]
		if !ok {
			continue
		}
		columns[idx].Cards = append(columns[idx].Cards, card)
	}
	if err := rows.Err(); err != nil {
		return domain.Board{}, false, fmt.Errorf("list cards: %w", err)
	}
	return domain.Board{Columns: columns}, true, nil
}

func (r *Repository) listColumns(ctx context.Context) ([]domain.Column, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, max_cards, color, metadata_json
		FROM board_columns
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Column, 0)
	for rows.Next() {
		var (
			c           domain.Column
			metadataRaw string
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.MaxCards, &c.Color, &metadataRaw); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		metadata, err := decodeMetadata(metadataRaw)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.ID, err)
		}
		c.Metadata = metadata
		c.Cards = []domain.Card{}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return out, nil
}

// SaveBoard replaces the stored board in a single transaction.
func (r *Repository) SaveBoard(ctx context.Context, b domain.Board) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save board: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range []string{`DELETE FROM cards`, `DELETE FROM board_columns`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear board: %w", err)
		}
	}
	for colPos, column := range b.Columns {
		metadataJSON, err := encodeMetadata(column.Metadata)
		if err != nil {
			return fmt.Errorf("column %s: %w", column.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_columns(id, title, max_cards, position, color, metadata_json)
			VALUES(?, ?, ?, ?, ?, ?)
		`, column.ID, column.Title, column.MaxCards, colPos, column.Color, metadataJSON); err != nil {
			return fmt.Errorf("insert column %s: %w", column.ID, err)
		}
		for cardPos, card := range column.Cards {
			if err := insertCard(ctx, tx, column.ID, cardPos, card); err != nil {
				return err
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO board_state(id, saved_at) VALUES(1, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at
	`, ts(time.Now())); err != nil {
		return fmt.Errorf("write board state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save board: %w", err)
	}
	return nil
}

func insertCard(ctx context.Context, tx *sql.Tx, columnID string, position int, card domain.Card) error {
	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode card %s tags: %w", card.ID, err)
	}
	metadataJSON, err := encodeMetadata(card.Metadata)
	if err != nil {
		return fmt.Errorf("card %s: %w", card.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cards(id, column_id, position, title, description, tags_json, priority, assignee, due_at, metadata_json, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		columnID,
		position,
		card.Title,
		card.Description,
		string(tagsJSON),
		string(card.Priority),
		card.Assignee,
		nullableTS(card.DueAt),
		metadataJSON,
		ts(card.CreatedAt),
		ts(card.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert card %s: %w", card.ID, err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanCard returns the card and the id of its column.
func scanCard(s scanner) (domain.Card, string, error) {
	var (
		c           domain.Card
		columnID    string
		tagsRaw     string
		priority    string
		dueRaw      sql.NullString
		metadataRaw string
		createdRaw  string
		updatedRaw  string
	)
	if err := s.Scan(
		&c.ID,
		&columnID,
		&c.Title,
		&c.Description,
		&tagsRaw,
		&priority,
		&c.Assignee,
		&dueRaw,
		&metadataRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return domain.Card{}, "", fmt.Errorf("scan card: %w", err)
	}
	c.Priority = domain.Priority(priority)
	c.DueAt = parseNullTS(dueRaw)
	c.CreatedAt = parseTS(createdRaw)
	c.UpdatedAt = parseTS(updatedRaw)
	if strings.TrimSpace(tagsRaw) == "" {
		tagsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(tagsRaw), &c.Tags); err != nil {
		return domain.Card{}, "", fmt.Errorf("decode tags_json: %w", err)
	}
	metadata, err := decodeMetadata(metadataRaw)
	if err != nil {
		return domain.Card{}, "", fmt.Errorf("card %s: %w", c.ID, err)
	}
	c.Metadata = metadata
	return c, columnID, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata_json: %w", err)
	}
	return string(raw), nil
}

// decodeMetadata returns nil for an empty object.
func decodeMetadata(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode metadata_json: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ts formats t as UTC RFC3339 with nanoseconds.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS stores a nil time as NULL.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS reads a stored timestamp as UTC. Malformed values give the zero time.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS reads an optional timestamp; NULL and blank give nil.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
