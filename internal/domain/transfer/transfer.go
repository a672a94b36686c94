// Package transfer finds the single best one-for-one transfer for a roster.
package transfer

import (
	"context"
	"fmt"
	"math"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

// Store is the subset of the projection store the optimizer reads.
type Store interface {
	// Projection returns the player's projection for the period, or false
	// when the player has no row for it.
	Projection(ctx context.Context, playerID, period int) (model.PlayerProjection, bool, error)
	// BestReplacement returns the highest projected player of the given
	// position, not in exclude, costing at most maxCost. Ties are broken
	// by player id ascending.
	BestReplacement(ctx context.Context, pos model.Position, exclude []int, maxCost, period int) (model.PlayerProjection, bool, error)
}

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for skipped slots.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// Optimizer searches a roster for the swap with the largest projected gain.
type Optimizer struct {
	store  Store
	logger logger.Logger
}

// New constructs an Optimizer reading from store.
func New(store Store, opts ...Option) *Optimizer {
	o := &Optimizer{store: store}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns the best transfer for roster in the given period, or nil
// when no slot has any affordable same-position replacement.
//
// Each slot's cost is returned to the pool before pricing its replacement,
// so the ceiling for slot i is remainingBudget + cost(i). Slots without a
// projection for the period are skipped. On equal improvement the earlier
// slot wins. The returned improvement can be negative when every
// replacement is worse than the player it would replace.
func (o *Optimizer) Optimize(ctx context.Context, roster []model.RosterSlot, period, remainingBudget int) (*model.TransferProposal, error) {
	exclude := make([]int, len(roster))
	for i, slot := range roster {
		exclude[i] = slot.PlayerID
	}

	var best *model.TransferProposal
	bestImprovement := math.Inf(-1)

	for _, slot := range roster {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, ok, err := o.store.Projection(ctx, slot.PlayerID, period)
		if err != nil {
			return nil, model.NewUpstreamError("store", fmt.Sprintf("projection for player %d", slot.PlayerID), err)
		}
		if !ok {
			o.debug(ctx, "no projection for roster slot; skipping",
				logger.Int("player_id", slot.PlayerID),
				logger.Int("gameweek", period),
			)
			continue
		}

		maxAffordable := remainingBudget + current.Cost
		incoming, ok, err := o.store.BestReplacement(ctx, current.Position, exclude, maxAffordable, period)
		if err != nil {
			return nil, model.NewUpstreamError("store", fmt.Sprintf("replacement for player %d", slot.PlayerID), err)
		}
		if !ok {
			continue
		}

		improvement := incoming.Points - current.Points
		if improvement > bestImprovement {
			bestImprovement = improvement
			best = &model.TransferProposal{
				Outgoing: model.OutgoingPlayer{
					RosterSlot: outgoingSlot(slot, current),
					Position:   current.Position,
					Cost:       current.Cost,
					Points:     current.Points,
				},
				Incoming:    incoming,
				Improvement: improvement,
			}
		}
	}

	return best, nil
}

// outgoingSlot keeps the caller's slot and fills the display name from the
// directory when the caller did not send one.
func outgoingSlot(slot model.RosterSlot, current model.PlayerProjection) model.RosterSlot {
	if slot.WebName == "" {
		slot.WebName = current.WebName
	}
	return slot
}

func (o *Optimizer) debug(ctx context.Context, msg string, fields ...logger.Field) {
	if o.logger != nil {
		o.logger.Debug(ctx, msg, fields...)
	}
}
