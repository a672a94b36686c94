// Package cli implements fplctl, a terminal client for the optimizer API.
package cli

import (
	"io"
	"time"
)

// Modes accepted by Run.
const (
	ModeTransfer = "transfer"
	ModeTeam     = "team"
	ModeSearch   = "search"
	ModeStats    = "stats"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config holds configuration for one fplctl invocation.
type Config struct {
	BaseURL string        // Base URL of the service
	Mode    string        // transfer, team, search or stats
	Roster  []int         // Player ids for transfer mode
	Budget  int           // Remaining budget for transfer mode
	Query   string        // Name fragment for search mode
	Timeout time.Duration // HTTP request timeout
	Format  string        // table or json
	Out     io.Writer     // Destination for rendered output
}

// Player is an autocomplete match.
type Player struct {
	ID      int    `json:"player_id"`
	WebName string `json:"web_name"`
}

// Projection is a player's projected row as returned by the API.
type Projection struct {
	PlayerID int     `json:"player_id"`
	WebName  string  `json:"web_name"`
	Position string  `json:"position"`
	Cost     int     `json:"cost"`
	Points   float64 `json:"points"`
	Gameweek int     `json:"gameweek"`
}

// Transfer is the recommended swap.
type Transfer struct {
	Outgoing    Projection `json:"outgoing_player"`
	Incoming    Projection `json:"incoming_player"`
	Improvement float64    `json:"improvement"`
}

type transferRequest struct {
	CurrentTeam     []rosterSlot `json:"current_team"`
	RemainingBudget int          `json:"remaining_budget"`
}

type rosterSlot struct {
	PlayerID int `json:"player_id"`
}

type transferResponse struct {
	Success         bool      `json:"success"`
	OptimalTransfer *Transfer `json:"optimal_transfer"`
}

type teamResponse struct {
	Success  bool `json:"success"`
	BestTeam struct {
		Players []Projection `json:"players"`
	} `json:"best_team"`
}
