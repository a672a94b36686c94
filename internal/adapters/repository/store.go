// Package repository implements the projection store on Postgres and SQLite.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
	"github.com/m-mukund/fpl-optimizer/pkg/metrics"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store answers the projection queries used by the optimizer, the team
// assembler and player search. Rows are ordered by expected points desc,
// then player id asc.
type Store interface {
	// Projection returns the player's projection for a gameweek.
	// found is false when the player has no row for that gameweek.
	Projection(ctx context.Context, playerID, period int) (model.PlayerProjection, bool, error)

	// BestReplacement returns the highest projected player at pos whose id is
	// not in exclude and whose cost is at most maxCost.
	BestReplacement(ctx context.Context, pos model.Position, exclude []int, maxCost, period int) (model.PlayerProjection, bool, error)

	// TopByPosition returns up to limit players at pos with cost at most maxCost.
	TopByPosition(ctx context.Context, pos model.Position, maxCost, period, limit int) ([]model.PlayerProjection, error)

	// SearchPlayers matches the player directory by case-insensitive substring.
	SearchPlayers(ctx context.Context, query string, limit int) ([]model.Player, error)

	Close() error
}

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, opts...)
	case DriverSQLite:
		return OpenSQLite(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// likePattern escapes LIKE metacharacters in q and wraps it for substring search.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// observe records latency and outcome for a named query.
func observe(query string, start time.Time, err error) {
	metrics.RecordStoreQuery(query, metrics.SinceMs(start), err)
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return nil
}
