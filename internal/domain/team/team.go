// Package team assembles the best affordable team for a gameweek.
package team

import (
	"context"
	"fmt"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

// Store is the subset of the projection store the assembler reads.
type Store interface {
	// TopByPosition returns up to limit players of the position costing at
	// most maxCost, highest projected points first.
	TopByPosition(ctx context.Context, pos model.Position, maxCost, period, limit int) ([]model.PlayerProjection, error)
}

// Option applies a configuration option to the Assembler.
type Option func(*Assembler)

// WithPositions sets which positions are filled, in order.
func WithPositions(positions []model.Position) Option {
	return func(a *Assembler) {
		if len(positions) > 0 {
			a.positions = append([]model.Position(nil), positions...)
		}
	}
}

// WithLimits sets how many players are picked per position.
func WithLimits(limits map[model.Position]int) Option {
	return func(a *Assembler) {
		if len(limits) > 0 {
			a.limits = make(map[model.Position]int, len(limits))
			for pos, n := range limits {
				a.limits[pos] = n
			}
		}
	}
}

// WithLogger sets the assembler logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// Assembler picks the top players per position independently.
//
// The budget ceiling is applied to each position query on its own; it is a
// per-player cost cap, not a pool shared across the team.
type Assembler struct {
	store     Store
	positions []model.Position
	limits    map[model.Position]int
	logger    logger.Logger
}

// New constructs an Assembler with the default squad rules.
func New(store Store, opts ...Option) *Assembler {
	a := &Assembler{
		store:     store,
		positions: model.DefaultAssemblyPositions(),
		limits:    model.DefaultPositionLimits(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns the best team for period under maxBudget. Groups appear
// in position order and each group is ordered by projected points. A
// position with fewer candidates than its limit yields a shorter group.
func (a *Assembler) Assemble(ctx context.Context, maxBudget, period int) (model.TeamPayload, error) {
	team := model.TeamPayload{Players: []model.PlayerProjection{}}
	for _, pos := range a.positions {
		limit := a.limits[pos]
		if limit <= 0 {
			continue
		}
		players, err := a.store.TopByPosition(ctx, pos, maxBudget, period, limit)
		if err != nil {
			return model.TeamPayload{}, model.NewUpstreamError("store", fmt.Sprintf("top %s", pos), err)
		}
		if len(players) > limit {
			players = players[:limit]
		}
		if len(players) < limit && a.logger != nil {
			a.logger.Warn(ctx, "not enough candidates for position",
				logger.String("position", string(pos)),
				logger.Int("wanted", limit),
				logger.Int("found", len(players)),
				logger.Int("gameweek", period),
			)
		}
		team.Players = append(team.Players, players...)
	}
	return team, nil
}
