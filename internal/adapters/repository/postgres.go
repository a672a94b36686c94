package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

const (
	pgProjection = `
SELECT ep.player_id, COALESCE(p.web_name, ''), ep.position, ep.cost::int, ep.expected_points::float8, ep.gameweek
FROM expected_points ep
LEFT JOIN players p ON p.id = ep.player_id
WHERE ep.player_id = $1 AND ep.gameweek = $2
LIMIT 1`

	pgBestReplacement = `
SELECT ep.player_id, p.web_name, ep.position, ep.cost::int, ep.expected_points::float8, ep.gameweek
FROM expected_points ep
JOIN players p ON p.id = ep.player_id
WHERE ep.position = $1
  AND ep.player_id <> ALL($2)
  AND ep.cost <= $3
  AND ep.gameweek = $4
ORDER BY ep.expected_points DESC, ep.player_id ASC
LIMIT 1`

	pgTopByPosition = `
SELECT ep.player_id, p.web_name, ep.position, ep.cost::int, ep.expected_points::float8, ep.gameweek
FROM expected_points ep
JOIN players p ON p.id = ep.player_id
WHERE ep.position = $1
  AND ep.cost <= $2
  AND ep.gameweek = $3
ORDER BY ep.expected_points DESC, ep.player_id ASC
LIMIT $4`

	pgSearchPlayers = `
SELECT id, web_name
FROM players
WHERE web_name ILIKE $1
ORDER BY id
LIMIT $2`
)

// PostgresStore queries the expected_points and players tables through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres creates a pool for dsn and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	o := buildOptions(opts)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, logger: o.logger}, nil
}

// Projection implements Store.
func (s *PostgresStore) Projection(ctx context.Context, playerID, period int) (p model.PlayerProjection, found bool, err error) {
	start := time.Now()
	defer func() { observe("projection", start, err) }()

	p, err = scanProjection(s.pool.QueryRow(ctx, pgProjection, playerID, period))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PlayerProjection{}, false, nil
	}
	if err != nil {
		return model.PlayerProjection{}, false, fmt.Errorf("projection %d gw%d: %w", playerID, period, err)
	}
	return p, true, nil
}

// BestReplacement implements Store.
func (s *PostgresStore) BestReplacement(ctx context.Context, pos model.Position, exclude []int, maxCost, period int) (p model.PlayerProjection, found bool, err error) {
	start := time.Now()
	defer func() { observe("best_replacement", start, err) }()

	ids := make([]int64, len(exclude))
	for i, id := range exclude {
		ids[i] = int64(id)
	}

	p, err = scanProjection(s.pool.QueryRow(ctx, pgBestReplacement, string(pos), ids, maxCost, period))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PlayerProjection{}, false, nil
	}
	if err != nil {
		return model.PlayerProjection{}, false, fmt.Errorf("best replacement %s gw%d: %w", pos, period, err)
	}
	return p, true, nil
}

// TopByPosition implements Store.
func (s *PostgresStore) TopByPosition(ctx context.Context, pos model.Position, maxCost, period, limit int) (out []model.PlayerProjection, err error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observe("top_by_position", start, err) }()

	rows, err := s.pool.Query(ctx, pgTopByPosition, string(pos), maxCost, period, limit)
	if err != nil {
		return nil, fmt.Errorf("top %s gw%d: %w", pos, period, err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return nil, fmt.Errorf("top %s gw%d: %w", pos, period, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top %s gw%d: %w", pos, period, err)
	}
	return out, nil
}

// SearchPlayers implements Store.
func (s *PostgresStore) SearchPlayers(ctx context.Context, query string, limit int) (out []model.Player, err error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observe("search_players", start, err) }()

	rows, err := s.pool.Query(ctx, pgSearchPlayers, likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.WebName); err != nil {
			return nil, fmt.Errorf("search players: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	s.logger.Debug(ctx, "player search", logger.String("query", query), logger.Int("matches", len(out)))
	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProjection(row rowScanner) (model.PlayerProjection, error) {
	var (
		p   model.PlayerProjection
		pos string
	)
	if err := row.Scan(&p.PlayerID, &p.WebName, &pos, &p.Cost, &p.Points, &p.PeriodID); err != nil {
		return model.PlayerProjection{}, err
	}
	p.Position = model.Position(pos)
	return p, nil
}
