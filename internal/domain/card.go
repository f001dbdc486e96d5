package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority normalizes user input into a priority value.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validPriorities, p) {
		return PriorityNone, ErrInvalidPriority
	}
	return p, nil
}

// Card is a single unit of work. Identity is the ID; every other field is mutable.
type Card struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Priority    Priority
	Assignee    string
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Metadata    map[string]any
}

// CardInput holds the caller-supplied fields of a new card.
type CardInput struct {
	Title       string
	Description string
	Tags        []string
	Priority    Priority
	Assignee    string
	DueAt       *time.Time
	Metadata    map[string]any
}

// CardPatch describes a partial card update. Nil fields are left untouched.
type CardPatch struct {
	Title       *string
	Description *string
	Tags        *[]string
	Priority    *Priority
	Assignee    *string
	DueAt       *time.Time
	ClearDueAt  bool
	Metadata    map[string]any
}

func NewCard(id string, in CardInput, now time.Time) (Card, error) {
	id = strings.TrimSpace(id)
	in.Title = strings.TrimSpace(in.Title)
	if id == "" {
		return Card{}, ErrInvalidID
	}
	if in.Title == "" {
		return Card{}, ErrInvalidTitle
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Card{}, ErrInvalidPriority
	}
	return Card{
		ID:          id,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Tags:        normalizeTags(in.Tags),
		Priority:    in.Priority,
		Assignee:    strings.TrimSpace(in.Assignee),
		DueAt:       normalizeDueAt(in.DueAt),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
		Metadata:    maps.Clone(in.Metadata),
	}, nil
}

// Validate checks the patch without applying it.
func (p CardPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrInvalidTitle
	}
	if p.Priority != nil && !slices.Contains(validPriorities, *p.Priority) {
		return ErrInvalidPriority
	}
	return nil
}

// Apply returns a copy of c with the patch merged in and UpdatedAt refreshed.
func (p CardPatch) Apply(c Card, now time.Time) Card {
	out := c.Clone()
	if p.Title != nil {
		if title := strings.TrimSpace(*p.Title); title != "" {
			out.Title = title
		}
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.Tags != nil {
		out.Tags = normalizeTags(*p.Tags)
	}
	if p.Priority != nil && slices.Contains(validPriorities, *p.Priority) {
		out.Priority = *p.Priority
	}
	if p.Assignee != nil {
		out.Assignee = strings.TrimSpace(*p.Assignee)
	}
	switch {
	case p.ClearDueAt:
		out.DueAt = nil
	case p.DueAt != nil:
		out.DueAt = normalizeDueAt(p.DueAt)
	}
	if p.Metadata != nil {
		out.Metadata = maps.Clone(p.Metadata)
	}
	out.UpdatedAt = now.UTC()
	return out
}

// Clone deep-copies the card's slice, pointer and map fields.
func (c Card) Clone() Card {
	out := c
	out.Tags = slices.Clone(c.Tags)
	if c.DueAt != nil {
		due := *c.DueAt
		out.DueAt = &due
	}
	out.Metadata = maps.Clone(c.Metadata)
	return out
}

func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}
