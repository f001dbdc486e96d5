package app

import (
	"context"

	"github.com/evanschultz/kanboard/internal/domain"
)

// BoardStore persists the whole board. LoadBoard reports found=false when
// nothing has been saved yet.
type BoardStore interface {
	LoadBoard(context.Context) (domain.Board, bool, error)
	SaveBoard(context.Context, domain.Board) error
}
