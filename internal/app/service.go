// Package service wires the schedule feed, projection store and result cache
// into the operations exposed by the HTTP API.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/internal/domain/resultcache"
	"github.com/m-mukund/fpl-optimizer/internal/domain/schedule"
	"github.com/m-mukund/fpl-optimizer/internal/domain/team"
	"github.com/m-mukund/fpl-optimizer/internal/domain/transfer"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
	"github.com/m-mukund/fpl-optimizer/pkg/metrics"
)

const (
	defaultTotalBudget = 100
	defaultSearchLimit = 5
)

// Store is the projection store surface the service needs.
type Store interface {
	transfer.Store
	team.Store
	SearchPlayers(ctx context.Context, query string, limit int) ([]model.Player, error)
}

// Schedule supplies the ordered gameweek list.
type Schedule interface {
	Periods(ctx context.Context) ([]model.ScoringPeriod, error)
}

// Service implements the API dependencies for the optimizer.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store    Store
	backend  resultcache.Backend
	schedule Schedule

	// Core components, built on Start
	optimizer *transfer.Optimizer
	assembler *team.Assembler
	cache     *resultcache.Cache

	// Configuration
	now            func() time.Time
	teamMaxBudget  int
	totalBudget    int
	positions      []model.Position
	limits         map[model.Position]int
	searchLimit    int
	cacheTTL       time.Duration
	cacheKeyPrefix string

	// State
	started    bool
	transfers  atomic.Int64
	teams      atomic.Int64
	searches   atomic.Int64
	lastPeriod atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the projection store.
func WithStore(store Store) Option {
	return func(s *Service) { s.store = store }
}

// WithCache sets the backing store of the best-team cache.
func WithCache(backend resultcache.Backend) Option {
	return func(s *Service) { s.backend = backend }
}

// WithFeed sets the gameweek schedule source.
func WithFeed(feed Schedule) Option {
	return func(s *Service) { s.schedule = feed }
}

// WithClock sets the time source used to resolve the active gameweek.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTeamMaxBudget sets the cost ceiling applied to each best-team position query.
func WithTeamMaxBudget(budget int) Option {
	return func(s *Service) {
		if budget > 0 {
			s.teamMaxBudget = budget
		}
	}
}

// WithTotalBudget sets the squad budget ceiling. Remaining budgets above it
// are logged, not rejected.
func WithTotalBudget(budget int) Option {
	return func(s *Service) {
		if budget > 0 {
			s.totalBudget = budget
		}
	}
}

// WithAssemblyPositions sets which positions the best team includes, in order.
func WithAssemblyPositions(positions []model.Position) Option {
	return func(s *Service) {
		if len(positions) > 0 {
			s.positions = append([]model.Position(nil), positions...)
		}
	}
}

// WithPositionLimits sets how many players each position contributes.
func WithPositionLimits(limits map[model.Position]int) Option {
	return func(s *Service) {
		if len(limits) > 0 {
			s.limits = limits
		}
	}
}

// WithSearchLimit caps autocomplete results.
func WithSearchLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

// WithCacheTTL sets how long an assembled team is served from cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCacheKeyPrefix sets the cache key prefix.
func WithCacheKeyPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.cacheKeyPrefix = prefix
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		now:            time.Now,
		teamMaxBudget:  resultcache.DefaultMaxBudget,
		totalBudget:    defaultTotalBudget,
		positions:      model.DefaultAssemblyPositions(),
		limits:         model.DefaultPositionLimits(),
		searchLimit:    defaultSearchLimit,
		cacheTTL:       resultcache.DefaultTTL,
		cacheKeyPrefix: resultcache.DefaultKeyPrefix,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the optimizer, assembler and cache over the configured collaborators.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	switch {
	case s.store == nil:
		return ErrMissingStore
	case s.backend == nil:
		return ErrMissingCache
	case s.schedule == nil:
		return ErrMissingFeed
	}

	s.optimizer = transfer.New(s.store, transfer.WithLogger(s.logger.Named("transfer")))
	s.assembler = team.New(s.store,
		team.WithPositions(s.positions),
		team.WithLimits(s.limits),
		team.WithLogger(s.logger.Named("team")),
	)
	s.cache = resultcache.New(s.backend, s.assembler,
		resultcache.WithTTL(s.cacheTTL),
		resultcache.WithKeyPrefix(s.cacheKeyPrefix),
		resultcache.WithMaxBudget(s.teamMaxBudget),
		resultcache.WithLogger(s.logger.Named("cache")),
	)

	s.started = true
	s.logger.Info(ctx, "optimizer service started",
		logger.Int("teamMaxBudget", s.teamMaxBudget),
		logger.Int("totalBudget", s.totalBudget),
		logger.String("positions", joinPositions(s.positions)),
		logger.Duration("cacheTTL", s.cacheTTL),
	)

	return nil
}

// Stop closes collaborators that hold connections.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping optimizer service...")

	for _, c := range []any{s.store, s.backend} {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.logger.Warn(context.Background(), "close failed", logger.Error(err))
			}
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "optimizer service stopped")
}

// ActivePeriod resolves the current gameweek from the schedule feed.
func (s *Service) ActivePeriod(ctx context.Context) (model.ScoringPeriod, error) {
	periods, err := s.schedule.Periods(ctx)
	if err != nil {
		return model.ScoringPeriod{}, s.observeErr(err)
	}
	p, err := schedule.ResolveActivePeriod(periods, s.now())
	if err != nil {
		return model.ScoringPeriod{}, err
	}
	s.lastPeriod.Store(int64(p.ID))
	metrics.UpdateActiveGameweek(p.ID)
	return p, nil
}

// RecommendTransfer returns the single best one-for-one transfer for roster in
// the active gameweek, or nil when no slot has a replacement.
func (s *Service) RecommendTransfer(ctx context.Context, roster []model.RosterSlot, remainingBudget int) (*model.TransferProposal, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := validateRoster(roster, remainingBudget); err != nil {
		return nil, err
	}
	if remainingBudget > s.totalBudget {
		s.logger.Warn(ctx, "remaining budget exceeds total budget",
			logger.Int("remainingBudget", remainingBudget),
			logger.Int("totalBudget", s.totalBudget),
		)
	}

	period, err := s.ActivePeriod(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	proposal, err := s.optimizer.Optimize(ctx, roster, period.ID, remainingBudget)
	metrics.RecordOptimizeLatency(metrics.SinceMs(start))
	if err != nil {
		return nil, s.observeErr(err)
	}
	s.transfers.Add(1)

	if proposal == nil {
		metrics.RecordTransferNoResult()
		s.logger.Info(ctx, "no transfer found",
			logger.Int("gameweek", period.ID),
			logger.Int("rosterSize", len(roster)),
		)
		return nil, nil
	}

	metrics.RecordTransferRecommended(proposal.Improvement)
	s.logger.Info(ctx, "transfer recommended",
		logger.Int("gameweek", period.ID),
		logger.Int("out", proposal.Outgoing.PlayerID),
		logger.Int("in", proposal.Incoming.PlayerID),
		logger.Float64("improvement", proposal.Improvement),
	)
	return proposal, nil
}

// BestTeam returns the cached or freshly assembled team for the active gameweek.
func (s *Service) BestTeam(ctx context.Context) (model.TeamPayload, error) {
	if err := s.ready(); err != nil {
		return model.TeamPayload{}, err
	}

	period, err := s.ActivePeriod(ctx)
	if err != nil {
		return model.TeamPayload{}, err
	}

	payload, err := s.cache.GetOrComputeTeam(ctx, period.ID)
	if err != nil {
		return model.TeamPayload{}, s.observeErr(err)
	}
	s.teams.Add(1)
	metrics.RecordBestTeamRequest(len(payload.Players))
	return payload, nil
}

// SearchPlayers returns up to the search limit of players whose name contains
// query. A blank query matches nothing.
func (s *Service) SearchPlayers(ctx context.Context, query string) ([]model.Player, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Player{}, nil
	}

	players, err := s.store.SearchPlayers(ctx, query, s.searchLimit)
	if err != nil {
		return nil, s.observeErr(model.NewUpstreamError("store", "search", err))
	}
	s.searches.Add(1)
	if players == nil {
		players = []model.Player{}
	}
	return players, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":           s.started,
		"transfersComputed": s.transfers.Load(),
		"teamsServed":       s.teams.Load(),
		"searches":          s.searches.Load(),
		"lastGameweek":      s.lastPeriod.Load(),
		"teamMaxBudget":     s.teamMaxBudget,
		"totalBudget":       s.totalBudget,
		"searchLimit":       s.searchLimit,
		"assemblyPositions": joinPositions(s.positions),
		"cacheTTLSeconds":   int(s.cacheTTL / time.Second),
		"cacheKeyPrefix":    s.cacheKeyPrefix,
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// observeErr counts upstream failures by source and returns err unchanged.
func (s *Service) observeErr(err error) error {
	var ue *model.UpstreamError
	if errors.As(err, &ue) {
		metrics.RecordUpstreamError(ue.Source)
	}
	return err
}

func validateRoster(roster []model.RosterSlot, remainingBudget int) error {
	if remainingBudget < 0 {
		return ErrInvalidBudget
	}
	seen := make(map[int]struct{}, len(roster))
	for _, slot := range roster {
		if slot.PlayerID <= 0 {
			return ErrInvalidPlayer
		}
		if _, dup := seen[slot.PlayerID]; dup {
			return ErrDuplicateEntry
		}
		seen[slot.PlayerID] = struct{}{}
	}
	return nil
}

func joinPositions(positions []model.Position) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}
