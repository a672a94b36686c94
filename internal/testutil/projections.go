// Package testutil provides in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
)

// ProjectionStore is an in-memory projection store. Queries follow the same
// ordering as the SQL stores: points desc, then player id asc.
type ProjectionStore struct {
	mu    sync.Mutex
	rows  []model.PlayerProjection
	calls int

	// Err, when set, is returned by every query.
	Err error
}

// NewProjectionStore returns a store seeded with rows.
func NewProjectionStore(rows ...model.PlayerProjection) *ProjectionStore {
	return &ProjectionStore{rows: append([]model.PlayerProjection(nil), rows...)}
}

// Calls returns the number of queries issued so far.
func (s *ProjectionStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Add appends rows.
func (s *ProjectionStore) Add(rows ...model.PlayerProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

func (s *ProjectionStore) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.Err
}

// Projection implements the per-slot lookup.
func (s *ProjectionStore) Projection(_ context.Context, playerID, period int) (model.PlayerProjection, bool, error) {
	if err := s.begin(); err != nil {
		return model.PlayerProjection{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.PlayerID == playerID && r.PeriodID == period {
			return r, true, nil
		}
	}
	return model.PlayerProjection{}, false, nil
}

// BestReplacement implements the replacement search.
func (s *ProjectionStore) BestReplacement(_ context.Context, pos model.Position, exclude []int, maxCost, period int) (model.PlayerProjection, bool, error) {
	if err := s.begin(); err != nil {
		return model.PlayerProjection{}, false, err
	}
	skip := make(map[int]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	candidates := s.filter(func(r model.PlayerProjection) bool {
		_, excluded := skip[r.PlayerID]
		return !excluded && r.Position == pos && r.Cost <= maxCost && r.PeriodID == period
	})
	if len(candidates) == 0 {
		return model.PlayerProjection{}, false, nil
	}
	return candidates[0], true, nil
}

// TopByPosition implements the top-N query.
func (s *ProjectionStore) TopByPosition(_ context.Context, pos model.Position, maxCost, period, limit int) ([]model.PlayerProjection, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	candidates := s.filter(func(r model.PlayerProjection) bool {
		return r.Position == pos && r.Cost <= maxCost && r.PeriodID == period
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// SearchPlayers matches web names case-insensitively by substring.
func (s *ProjectionStore) SearchPlayers(_ context.Context, query string, limit int) ([]model.Player, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int]struct{})
	var out []model.Player
	for _, r := range s.rows {
		if _, ok := seen[r.PlayerID]; ok {
			continue
		}
		if strings.Contains(strings.ToLower(r.WebName), strings.ToLower(query)) {
			seen[r.PlayerID] = struct{}{}
			out = append(out, model.Player{ID: r.PlayerID, WebName: r.WebName})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *ProjectionStore) filter(keep func(model.PlayerProjection) bool) []model.PlayerProjection {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PlayerProjection
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
