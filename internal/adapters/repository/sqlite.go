package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS players (
    id       INTEGER PRIMARY KEY,
    web_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expected_points (
    player_id       INTEGER NOT NULL,
    gameweek        INTEGER NOT NULL,
    position        TEXT    NOT NULL,
    cost            INTEGER NOT NULL,
    expected_points REAL    NOT NULL,
    PRIMARY KEY (player_id, gameweek)
);

CREATE INDEX IF NOT EXISTS idx_ep_gw_pos ON expected_points(gameweek, position, expected_points DESC);
`

const (
	sqliteProjection = `
SELECT ep.player_id, COALESCE(p.web_name, ''), ep.position, ep.cost, ep.expected_points, ep.gameweek
FROM expected_points ep
LEFT JOIN players p ON p.id = ep.player_id
WHERE ep.player_id = ? AND ep.gameweek = ?
LIMIT 1`

	sqliteBestReplacement = `
SELECT ep.player_id, p.web_name, ep.position, ep.cost, ep.expected_points, ep.gameweek
FROM expected_points ep
JOIN players p ON p.id = ep.player_id
WHERE ep.position = ?
  AND ep.player_id NOT IN (SELECT value FROM json_each(?))
  AND ep.cost <= ?
  AND ep.gameweek = ?
ORDER BY ep.expected_points DESC, ep.player_id ASC
LIMIT 1`

	sqliteTopByPosition = `
SELECT ep.player_id, p.web_name, ep.position, ep.cost, ep.expected_points, ep.gameweek
FROM expected_points ep
JOIN players p ON p.id = ep.player_id
WHERE ep.position = ?
  AND ep.cost <= ?
  AND ep.gameweek = ?
ORDER BY ep.expected_points DESC, ep.player_id ASC
LIMIT ?`

	sqliteSearchPlayers = `
SELECT id, web_name
FROM players
WHERE lower(web_name) LIKE lower(?) ESCAPE '\'
ORDER BY id
LIMIT ?`

	sqliteUpsertPlayer = `
INSERT INTO players (id, web_name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET web_name = excluded.web_name`

	sqliteUpsertProjection = `
INSERT INTO expected_points (player_id, gameweek, position, cost, expected_points)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(player_id, gameweek) DO UPDATE SET
    position        = excluded.position,
    cost            = excluded.cost,
    expected_points = excluded.expected_points`
)

// SQLiteStore is a file-backed or in-memory projection store for local runs.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrEmptyDSN
	}
	o := buildOptions(opts)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// Load upserts projections and their player names in one transaction.
func (s *SQLiteStore) Load(ctx context.Context, rows ...model.PlayerProjection) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range rows {
		if !r.Position.Valid() {
			return fmt.Errorf("load player %d: %w", r.PlayerID, model.ErrInvalidPosition)
		}
		if _, err := tx.ExecContext(ctx, sqliteUpsertPlayer, r.PlayerID, r.WebName); err != nil {
			return fmt.Errorf("upsert player %d: %w", r.PlayerID, err)
		}
		if _, err := tx.ExecContext(ctx, sqliteUpsertProjection, r.PlayerID, r.PeriodID, string(r.Position), r.Cost, r.Points); err != nil {
			return fmt.Errorf("upsert projection %d gw%d: %w", r.PlayerID, r.PeriodID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	s.logger.Info(ctx, "projections loaded", logger.Int("rows", len(rows)))
	return nil
}

// Projection implements Store.
func (s *SQLiteStore) Projection(ctx context.Context, playerID, period int) (p model.PlayerProjection, found bool, err error) {
	start := time.Now()
	defer func() { observe("projection", start, err) }()

	p, err = scanProjection(s.db.QueryRowContext(ctx, sqliteProjection, playerID, period))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerProjection{}, false, nil
	}
	if err != nil {
		return model.PlayerProjection{}, false, fmt.Errorf("projection %d gw%d: %w", playerID, period, err)
	}
	return p, true, nil
}

// BestReplacement implements Store.
func (s *SQLiteStore) BestReplacement(ctx context.Context, pos model.Position, exclude []int, maxCost, period int) (p model.PlayerProjection, found bool, err error) {
	start := time.Now()
	defer func() { observe("best_replacement", start, err) }()

	if exclude == nil {
		exclude = []int{}
	}
	ids, err := json.Marshal(exclude)
	if err != nil {
		return model.PlayerProjection{}, false, fmt.Errorf("encode exclusions: %w", err)
	}

	p, err = scanProjection(s.db.QueryRowContext(ctx, sqliteBestReplacement, string(pos), string(ids), maxCost, period))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerProjection{}, false, nil
	}
	if err != nil {
		return model.PlayerProjection{}, false, fmt.Errorf("best replacement %s gw%d: %w", pos, period, err)
	}
	return p, true, nil
}

// TopByPosition implements Store.
func (s *SQLiteStore) TopByPosition(ctx context.Context, pos model.Position, maxCost, period, limit int) (out []model.PlayerProjection, err error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observe("top_by_position", start, err) }()

	rows, err := s.db.QueryContext(ctx, sqliteTopByPosition, string(pos), maxCost, period, limit)
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
func (s *SQLiteStore) SearchPlayers(ctx context.Context, query string, limit int) (out []model.Player, err error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observe("search_players", start, err) }()

	rows, err := s.db.QueryContext(ctx, sqliteSearchPlayers, likePattern(query), limit)
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
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
