package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidMaxCards = errors.New("invalid max cards")
	ErrDuplicateID     = errors.New("duplicate id")
)
