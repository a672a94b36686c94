// Package schedule resolves the active gameweek from the season schedule.
package schedule

import (
	"time"

	"github.com/m-mukund/fpl-optimizer/internal/domain/model"
)

// ResolveActivePeriod returns the gameweek whose data is currently open.
//
// Periods are scanned in feed order. For the first unfinished period, the
// period itself is active while now is before its deadline. Once the deadline
// has passed but the period is not yet marked finished, the following period
// is active. Returns model.ErrNoActivePeriod when nothing qualifies.
func ResolveActivePeriod(periods []model.ScoringPeriod, now time.Time) (model.ScoringPeriod, error) {
	for i, p := range periods {
		if p.Finished {
			continue
		}
		if now.Before(p.Deadline) {
			return p, nil
		}
		if i+1 < len(periods) {
			return periods[i+1], nil
		}
	}
	return model.ScoringPeriod{}, model.ErrNoActivePeriod
}
