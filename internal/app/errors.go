package service

import (
	"errors"
	"fmt"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
)

// Sentinel kinds for lifecycle errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrMissingStore = errors.New("projection store not configured")
	ErrMissingCache = errors.New("cache backend not configured")
	ErrMissingFeed  = errors.New("schedule feed not configured")
)

// Request validation errors. All match model.ErrInvalidRequest.
var (
	ErrInvalidBudget  = fmt.Errorf("%w: remaining budget must not be negative", model.ErrInvalidRequest)
	ErrInvalidPlayer  = fmt.Errorf("%w: player id must be positive", model.ErrInvalidRequest)
	ErrDuplicateEntry = fmt.Errorf("%w: player listed twice in roster", model.ErrInvalidRequest)
)
