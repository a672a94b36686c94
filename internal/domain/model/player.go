// Package model contains domain models passed between layers.
package model

import "strings"

// Position is a player's playing position as stored in the projection table.
type Position string

// Known positions.
const (
	GK  Position = "GK"
	DEF Position = "DEF"
	MID Position = "MID"
	FWD Position = "FWD"
)

// Valid reports whether p is one of the known positions.
func (p Position) Valid() bool {
	switch p {
	case GK, DEF, MID, FWD:
		return true
	}
	return false
}

// ParsePosition normalizes s ("def", " Mid ") into a Position.
func ParsePosition(s string) (Position, bool) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.Valid()
}

// DefaultPositionLimits is the per-position squad size used when assembling a team.
func DefaultPositionLimits() map[Position]int {
	return map[Position]int{
		GK:  1,
		DEF: 4,
		MID: 4,
		FWD: 2,
	}
}

// DefaultAssemblyPositions lists the positions the team assembler fills, in order.
// GK has a limit but is not assembled.
func DefaultAssemblyPositions() []Position {
	return []Position{DEF, MID, FWD}
}

// Player is a row of the player directory.
type Player struct {
	ID      int    `json:"player_id"`
	WebName string `json:"web_name"`
}

// RosterSlot is one player the user currently owns. Position, cost and
// points are resolved against the projection store per request.
type RosterSlot struct {
	PlayerID int    `json:"player_id"`
	WebName  string `json:"web_name,omitempty"`
}

// PlayerProjection is a player's projected output for a single gameweek.
type PlayerProjection struct {
	PlayerID int      `json:"player_id"`
	WebName  string   `json:"web_name"`
	Position Position `json:"position"`
	Cost     int      `json:"cost"`
	Points   float64  `json:"points"`
	PeriodID int      `json:"gameweek"`
}

// OutgoingPlayer is a roster slot joined with its projection for the period.
type OutgoingPlayer struct {
	RosterSlot
	Position Position `json:"position"`
	Cost     int      `json:"cost"`
	Points   float64  `json:"points"`
}

// TransferProposal is the single best one-for-one swap for a roster.
type TransferProposal struct {
	Outgoing    OutgoingPlayer   `json:"outgoing_player"`
	Incoming    PlayerProjection `json:"incoming_player"`
	Improvement float64          `json:"improvement"`
}

// TeamPayload is the assembled best team, grouped by position in fetch order.
type TeamPayload struct {
	Players []PlayerProjection `json:"players"`
}
