package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

// Sentinel kinds for invalid invocations.
var (
	ErrUnknownMode   = errors.New("unknown mode")
	ErrUnknownFormat = errors.New("unknown output format")
	ErrEmptyRoster   = errors.New("transfer mode needs -roster")
	ErrBadRoster     = errors.New("roster must be comma-separated player ids")
)

// Run executes one command against the service.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}
	if cfg.Format != FormatTable && cfg.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	log := logger.Get().Named("fplctl")
	log.Debug(ctx, "running", logger.String("mode", cfg.Mode), logger.String("url", cfg.BaseURL))

	switch cfg.Mode {
	case ModeTransfer:
		if len(cfg.Roster) == 0 {
			return ErrEmptyRoster
		}
		t, err := client.RecommendTransfer(ctx, cfg.Roster, cfg.Budget)
		if err != nil {
			return err
		}
		if cfg.Format == FormatJSON {
			return renderJSON(cfg.Out, t)
		}
		return renderTransfer(cfg.Out, t)

	case ModeTeam:
		players, err := client.BestTeam(ctx)
		if err != nil {
			return err
		}
		if cfg.Format == FormatJSON {
			return renderJSON(cfg.Out, players)
		}
		return renderTeam(cfg.Out, players)

	case ModeSearch:
		players, err := client.Search(ctx, cfg.Query)
		if err != nil {
			return err
		}
		if cfg.Format == FormatJSON {
			return renderJSON(cfg.Out, players)
		}
		return renderPlayers(cfg.Out, players)

	case ModeStats:
		stats, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		if cfg.Format == FormatJSON {
			return renderJSON(cfg.Out, stats)
		}
		return renderStats(cfg.Out, stats)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// ParseRoster parses "1, 2,3" into player ids.
func ParseRoster(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadRoster, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
