package model

import "time"

// ScoringPeriod is a gameweek descriptor from the schedule feed.
type ScoringPeriod struct {
	ID       int       `json:"id"`
	Deadline time.Time `json:"deadline_time"`
	Finished bool      `json:"finished"`
}
